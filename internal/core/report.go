package core

import "github.com/shopspring/decimal"

// MonthsPerReport is the fixed width of every monthly series.
const MonthsPerReport = 12

type (
	SubcategoryReport struct {
		Key     string
		Name    string
		Monthly []decimal.Decimal
		Average decimal.Decimal
		Total   decimal.Decimal
	}

	// CategoryReport carries its own monthly series, used only when it has
	// no subcategories.
	CategoryReport struct {
		Key           string
		Name          string
		Monthly       []decimal.Decimal
		Average       decimal.Decimal
		Total         decimal.Decimal
		Subcategories []SubcategoryReport
	}

	FundReport struct {
		Key        string
		Name       string
		Categories []CategoryReport
	}

	CategoryMonthlySeries struct {
		ID          string            `json:"id"`
		Description string            `json:"description"`
		Monthly     []decimal.Decimal `json:"monthly"`
		Average     decimal.Decimal   `json:"average"`
		Total       decimal.Decimal   `json:"total"`
	}

	BifurcationResult struct {
		IncomeData  []CategoryMonthlySeries `json:"incomeData"`
		ExpenseData []CategoryMonthlySeries `json:"expenseData"`
	}
)

// NormalizeMonthly returns a fresh series of exactly MonthsPerReport values.
// Missing trailing months read as zero and extra values are ignored.
func NormalizeMonthly(in []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, MonthsPerReport)
	for i := range out {
		if i < len(in) {
			out[i] = in[i]
		} else {
			out[i] = decimal.Zero
		}
	}
	return out
}
