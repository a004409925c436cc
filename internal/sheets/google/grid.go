package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fundreport/internal/core"
	"fundreport/internal/services"
)

// Report sides, used in tab names.
const (
	SideIncome   = "Income"
	SideExpenses = "Expenses"
)

const totalsRowID = "TOTAL"

// textPrefix makes Sheets store a USER_ENTERED cell as literal text, so ids
// like "1-2" are not read as dates and "=..." is not run as a formula.
const textPrefix = "'"

var monthHeaders = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// TabName returns the sheet title for one side of a yearly report,
// e.g. "2024 Income".
func TabName(year int, side string) string {
	return fmt.Sprintf("%d %s", year, side)
}

func headerRow() []any {
	row := make([]any, 0, 4+core.MonthsPerReport)
	row = append(row, "ID", "Description")
	for _, m := range monthHeaders {
		row = append(row, m)
	}
	return append(row, "Average", "Total")
}

// BuildGrid lays out series as a header row, one row per series and a
// totals footer. Amounts are written with two decimals; id and
// description cells are forced to text.
func BuildGrid(series []core.CategoryMonthlySeries) [][]any {
	grid := make([][]any, 0, len(series)+2)
	grid = append(grid, headerRow())

	for _, s := range series {
		grid = append(grid, amountRow(s.ID, s.Description, core.NormalizeMonthly(s.Monthly), s.Average, s.Total))
	}

	totals := services.ColumnTotals(series)
	sum := core.Sum(totals)
	average := core.Round2(sum.Div(decimal.NewFromInt(core.MonthsPerReport)))
	grid = append(grid, amountRow(totalsRowID, "Total", totals, average, sum))
	return grid
}

func amountRow(id, description string, monthly []decimal.Decimal, average, total decimal.Decimal) []any {
	row := make([]any, 0, 4+core.MonthsPerReport)
	row = append(row, textCell(id), textCell(description))
	for _, v := range monthly {
		row = append(row, v.StringFixed(core.AmountPlaces))
	}
	return append(row, average.StringFixed(core.AmountPlaces), total.StringFixed(core.AmountPlaces))
}

// ParseGrid reads back a grid written by BuildGrid. The totals footer and
// blank rows are skipped. Cells may carry thousands separators as rendered
// by Sheets.
func ParseGrid(values [][]any) ([]core.CategoryMonthlySeries, error) {
	if len(values) == 0 {
		return nil, nil
	}

	headers := toStrings(values[0])
	colID := indexOf(headers, "ID")
	colDesc := indexOf(headers, "Description")
	colAvg := indexOf(headers, "Average")
	colTotal := indexOf(headers, "Total")
	monthCols := make([]int, len(monthHeaders))
	var missing []string
	for i, m := range monthHeaders {
		monthCols[i] = indexOf(headers, m)
		if monthCols[i] == -1 {
			missing = append(missing, m)
		}
	}
	for _, c := range []struct {
		name string
		col  int
	}{{"ID", colID}, {"Description", colDesc}, {"Average", colAvg}, {"Total", colTotal}} {
		if c.col == -1 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected report header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	var out []core.CategoryMonthlySeries
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := fromTextCell(safeGet(row, colID))
		if id == "" || id == totalsRowID {
			continue
		}

		series := core.CategoryMonthlySeries{
			ID:          id,
			Description: fromTextCell(safeGet(row, colDesc)),
			Monthly:     make([]decimal.Decimal, core.MonthsPerReport),
		}
		var err error
		for m, col := range monthCols {
			if series.Monthly[m], err = parseCell(safeGet(row, col)); err != nil {
				return nil, fmt.Errorf("row %d %s: %w", i+1, monthHeaders[m], err)
			}
		}
		if series.Average, err = parseCell(safeGet(row, colAvg)); err != nil {
			return nil, fmt.Errorf("row %d Average: %w", i+1, err)
		}
		if series.Total, err = parseCell(safeGet(row, colTotal)); err != nil {
			return nil, fmt.Errorf("row %d Total: %w", i+1, err)
		}
		out = append(out, series)
	}
	return out, nil
}

func textCell(s string) string {
	return textPrefix + s
}

// fromTextCell drops the text prefix. Sheets hides it on read, but raw
// values and hand-edited tabs may still carry it.
func fromTextCell(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), textPrefix))
}

func parseCell(s string) (decimal.Decimal, error) {
	return core.ParseAmount(strings.ReplaceAll(s, ",", ""))
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, s := range arr {
		if strings.EqualFold(s, target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
