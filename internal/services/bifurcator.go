package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"fundreport/internal/core"
)

const (
	rowIDSeparator    = "-"
	descriptionJoiner = " - "
)

var monthsPerReport = decimal.NewFromInt(core.MonthsPerReport)

// sourceRow is one flattened leaf of the category tree.
type sourceRow struct {
	id          string
	description string
	monthly     []decimal.Decimal
	average     decimal.Decimal
	total       decimal.Decimal
}

// BifurcateCategoryAmounts flattens the fund/category/subcategory tree and
// splits every leaf series into an income report and an expense report
// holding non-negative amounts.
//
// Rows whose months all share a sign go to one side with their cells and
// source aggregates made absolute and rounded. Rows mixing signs are split
// cell by cell, and each half gets a total and average recomputed from its
// rounded cells. Output follows the tree's traversal order.
func BifurcateCategoryAmounts(funds []core.FundReport) core.BifurcationResult {
	result := core.BifurcationResult{
		IncomeData:  []core.CategoryMonthlySeries{},
		ExpenseData: []core.CategoryMonthlySeries{},
	}

	for _, fund := range funds {
		for _, category := range fund.Categories {
			for _, row := range flattenCategory(fund, category) {
				income, expense := bifurcateRow(row)
				if income != nil {
					result.IncomeData = append(result.IncomeData, *income)
				}
				if expense != nil {
					result.ExpenseData = append(result.ExpenseData, *expense)
				}
			}
		}
	}

	return result
}

func flattenCategory(fund core.FundReport, category core.CategoryReport) []sourceRow {
	if len(category.Subcategories) == 0 {
		return []sourceRow{{
			id:          rowID(fund.Key, category.Key),
			description: category.Name,
			monthly:     core.NormalizeMonthly(category.Monthly),
			average:     category.Average,
			total:       category.Total,
		}}
	}

	rows := make([]sourceRow, 0, len(category.Subcategories))
	for _, sub := range category.Subcategories {
		rows = append(rows, sourceRow{
			id:          rowID(fund.Key, category.Key, sub.Key),
			description: subcategoryDescription(category.Name, sub.Name),
			monthly:     core.NormalizeMonthly(sub.Monthly),
			average:     sub.Average,
			total:       sub.Total,
		})
	}
	return rows
}

func rowID(keys ...string) string {
	return strings.Join(keys, rowIDSeparator)
}

func subcategoryDescription(category, subcategory string) string {
	if category == subcategory {
		return category
	}
	return category + descriptionJoiner + subcategory
}

func bifurcateRow(row sourceRow) (income, expense *core.CategoryMonthlySeries) {
	hasIncome, hasExpense := false, false
	for _, v := range row.monthly {
		switch v.Sign() {
		case 1:
			hasIncome = true
		case -1:
			hasExpense = true
		}
	}

	switch {
	case !hasExpense:
		pure := absoluteRow(row)
		return &pure, nil
	case !hasIncome:
		pure := absoluteRow(row)
		return nil, &pure
	}

	incomeMonthly := make([]decimal.Decimal, len(row.monthly))
	expenseMonthly := make([]decimal.Decimal, len(row.monthly))
	for i, v := range row.monthly {
		incomeMonthly[i], expenseMonthly[i] = decimal.Zero, decimal.Zero
		switch v.Sign() {
		case 1:
			incomeMonthly[i] = core.Round2(v)
		case -1:
			expenseMonthly[i] = core.Round2(v.Abs())
		}
	}

	in := recomputedRow(row, incomeMonthly)
	out := recomputedRow(row, expenseMonthly)
	return &in, &out
}

// absoluteRow keeps the source aggregates: with no sign split there is no
// rounding drift between them and the cells.
func absoluteRow(row sourceRow) core.CategoryMonthlySeries {
	monthly := make([]decimal.Decimal, len(row.monthly))
	for i, v := range row.monthly {
		monthly[i] = core.Round2(v.Abs())
	}
	return core.CategoryMonthlySeries{
		ID:          row.id,
		Description: row.description,
		Monthly:     monthly,
		Average:     core.Round2(row.average.Abs()),
		Total:       core.Round2(row.total.Abs()),
	}
}

// recomputedRow derives total and average from already rounded cells.
func recomputedRow(row sourceRow, monthly []decimal.Decimal) core.CategoryMonthlySeries {
	total := core.Sum(monthly)
	average := decimal.Zero
	if !total.IsZero() {
		average = core.Round2(total.Div(monthsPerReport))
	}
	return core.CategoryMonthlySeries{
		ID:          row.id,
		Description: row.description,
		Monthly:     monthly,
		Average:     average,
		Total:       core.Round2(total),
	}
}
