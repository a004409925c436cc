package memory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fundreport/internal/core"
)

type (
	seedFile struct {
		Schedules    []seedSchedule    `json:"schedules"`
		Transactions []seedTransaction `json:"transactions"`
		Reports      []seedReport      `json:"reports"`
	}

	seedSchedule struct {
		ID             string          `json:"id"`
		Description    string          `json:"description"`
		BaseAmount     decimal.Decimal `json:"baseAmount"`
		RecurringStart string          `json:"recurringStart"`
		RecurringEnd   string          `json:"recurringEnd"`
		Active         bool            `json:"active"`
	}

	seedTransaction struct {
		ID           string          `json:"id"`
		ScheduleID   string          `json:"scheduleId"`
		Amount       decimal.Decimal `json:"amount"`
		BaseAmount   decimal.Decimal `json:"baseAmount"`
		TransactedAt string          `json:"transactedAt"`
		Status       string          `json:"status"`
	}

	seedReport struct {
		Year  int        `json:"year"`
		Funds []seedFund `json:"funds"`
	}

	seedFund struct {
		Key        string         `json:"key"`
		Name       string         `json:"name"`
		Categories []seedCategory `json:"categories"`
	}

	seedCategory struct {
		seedSeries
		Subcategories []seedSeries `json:"subcategories"`
	}

	seedSeries struct {
		Key     string              `json:"key"`
		Name    string              `json:"name"`
		Monthly []decimal.Decimal   `json:"monthly"`
		Average decimal.NullDecimal `json:"average"`
		Total   decimal.NullDecimal `json:"total"`
	}
)

func parseSeed(data []byte) (seedFile, error) {
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return seedFile{}, err
	}
	return seed, nil
}

func (s *Store) load(seed seedFile) error {
	for _, sc := range seed.Schedules {
		schedule := core.RecurringSchedule{
			ID:             sc.ID,
			Description:    sc.Description,
			BaseAmount:     sc.BaseAmount,
			RecurringStart: core.ParseTimestamp(sc.RecurringStart),
			RecurringEnd:   core.ParseTimestamp(sc.RecurringEnd),
			Active:         sc.Active,
		}
		if err := s.AddSchedule(schedule); err != nil {
			return err
		}
	}

	for _, st := range seed.Transactions {
		tx := core.Transaction{
			ID:           st.ID,
			Amount:       st.Amount,
			BaseAmount:   st.BaseAmount,
			TransactedAt: core.ParseTimestamp(st.TransactedAt),
			Status:       core.TransferStatus(strings.ToUpper(st.Status)),
		}
		if err := s.AddTransaction(tx, st.ScheduleID); err != nil {
			return err
		}
	}

	for _, r := range seed.Reports {
		if r.Year < 1 {
			return fmt.Errorf("report year %d: %w", r.Year, core.ErrInvalidYear)
		}
		s.SetReport(r.Year, toFundReports(r.Funds))
	}
	return nil
}

func toFundReports(funds []seedFund) []core.FundReport {
	out := make([]core.FundReport, 0, len(funds))
	for _, f := range funds {
		fund := core.FundReport{Key: f.Key, Name: f.Name}
		for _, c := range f.Categories {
			monthly, average, total := c.aggregates()
			category := core.CategoryReport{
				Key:     c.Key,
				Name:    c.Name,
				Monthly: monthly,
				Average: average,
				Total:   total,
			}
			for _, sub := range c.Subcategories {
				monthly, average, total := sub.aggregates()
				category.Subcategories = append(category.Subcategories, core.SubcategoryReport{
					Key:     sub.Key,
					Name:    sub.Name,
					Monthly: monthly,
					Average: average,
					Total:   total,
				})
			}
			fund.Categories = append(fund.Categories, category)
		}
		out = append(out, fund)
	}
	return out
}

// aggregates fills in total and average when the seed leaves them out.
func (s seedSeries) aggregates() ([]decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	monthly := core.NormalizeMonthly(s.Monthly)
	total := core.Sum(monthly)
	if s.Total.Valid {
		total = s.Total.Decimal
	}
	average := total.Div(decimal.NewFromInt(core.MonthsPerReport))
	if s.Average.Valid {
		average = s.Average.Decimal
	}
	return monthly, average, total
}
