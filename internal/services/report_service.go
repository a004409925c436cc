package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"fundreport/internal/cache"
	"fundreport/internal/core"
	"fundreport/internal/sources"
)

const (
	minReportYear = 1900
	maxReportYear = 9999
)

// ReportTotals holds per-month column sums of both sides of a report.
type ReportTotals struct {
	Income  []decimal.Decimal `json:"income"`
	Expense []decimal.Decimal `json:"expense"`
}

// ReportService bifurcates yearly category reports, caching results per year.
type ReportService struct {
	source sources.ReportSource
	cache  cache.Cache[core.BifurcationResult]
}

// NewReportService creates the service; c may be nil to disable caching.
func NewReportService(source sources.ReportSource, c cache.Cache[core.BifurcationResult]) *ReportService {
	return &ReportService{source: source, cache: c}
}

// Bifurcated returns the income/expense split of a year's category tree.
// Every call returns a fresh copy, cached or not.
func (s *ReportService) Bifurcated(ctx context.Context, year int) (core.BifurcationResult, error) {
	if year < minReportYear || year > maxReportYear {
		return core.BifurcationResult{}, fmt.Errorf("year %d: %w", year, core.ErrInvalidYear)
	}

	key := strconv.Itoa(year)
	if s.cache != nil {
		if result, ok := s.cache.Get(key); ok {
			return cloneResult(result), nil
		}
	}

	funds, err := s.source.ReadCategoryTree(ctx, year)
	if err != nil {
		return core.BifurcationResult{}, fmt.Errorf("read category tree for %d: %w", year, err)
	}

	result := BifurcateCategoryAmounts(funds)
	slog.InfoContext(ctx, "Report bifurcated",
		"year", year,
		"funds", len(funds),
		"income_rows", len(result.IncomeData),
		"expense_rows", len(result.ExpenseData))

	if s.cache != nil {
		s.cache.Set(key, cloneResult(result))
	}
	return result, nil
}

func cloneResult(r core.BifurcationResult) core.BifurcationResult {
	return core.BifurcationResult{
		IncomeData:  cloneSeries(r.IncomeData),
		ExpenseData: cloneSeries(r.ExpenseData),
	}
}

func cloneSeries(rows []core.CategoryMonthlySeries) []core.CategoryMonthlySeries {
	if rows == nil {
		return nil
	}
	out := make([]core.CategoryMonthlySeries, len(rows))
	for i, row := range rows {
		row.Monthly = slices.Clone(row.Monthly)
		out[i] = row
	}
	return out
}

// Invalidate drops the cached report of a year.
func (s *ReportService) Invalidate(year int) {
	if s.cache != nil {
		s.cache.Delete(strconv.Itoa(year))
	}
}

// Totals sums the rounded cells of every month on both sides.
func Totals(result core.BifurcationResult) ReportTotals {
	return ReportTotals{
		Income:  ColumnTotals(result.IncomeData),
		Expense: ColumnTotals(result.ExpenseData),
	}
}

// ColumnTotals returns the per-month sum of the given rows.
func ColumnTotals(rows []core.CategoryMonthlySeries) []decimal.Decimal {
	totals := core.NormalizeMonthly(nil)
	for _, row := range rows {
		for i := 0; i < core.MonthsPerReport && i < len(row.Monthly); i++ {
			totals[i] = totals[i].Add(row.Monthly[i])
		}
	}
	return totals
}
