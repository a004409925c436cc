package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fundreport/internal/core"
)

const (
	ownerCategory    = "category"
	ownerSubcategory = "subcategory"
)

type monthlyKey struct {
	kind string
	id   int64
}

// SaveCategoryTree replaces the category tree stored for year.
func (r *SQLiteRepository) SaveCategoryTree(ctx context.Context, year int, funds []core.FundReport) error {
	if year < 1 {
		return fmt.Errorf("save category tree: %w", core.ErrInvalidYear)
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteYear(ctx, tx, year); err != nil {
			return err
		}
		for fi, fund := range funds {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO funds (year, fund_key, name, position) VALUES (?, ?, ?, ?)`,
				year, fund.Key, fund.Name, fi)
			if err != nil {
				return fmt.Errorf("insert fund %q: %w", fund.Key, err)
			}
			fundID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("fund id: %w", err)
			}
			for ci, category := range fund.Categories {
				if err := insertCategory(ctx, tx, fundID, ci, category); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save category tree %d: %w", year, err)
	}

	slog.InfoContext(ctx, "Category tree saved", "component", "storage", "year", year, "funds", len(funds))
	return nil
}

func deleteYear(ctx context.Context, tx *sql.Tx, year int) error {
	statements := []string{
		`DELETE FROM monthly_amounts WHERE owner_kind = 'subcategory' AND owner_id IN (
			SELECT s.id FROM subcategories s
			JOIN categories c ON c.id = s.category_id
			JOIN funds f ON f.id = c.fund_id WHERE f.year = ?)`,
		`DELETE FROM monthly_amounts WHERE owner_kind = 'category' AND owner_id IN (
			SELECT c.id FROM categories c
			JOIN funds f ON f.id = c.fund_id WHERE f.year = ?)`,
		`DELETE FROM subcategories WHERE category_id IN (
			SELECT c.id FROM categories c
			JOIN funds f ON f.id = c.fund_id WHERE f.year = ?)`,
		`DELETE FROM categories WHERE fund_id IN (SELECT id FROM funds WHERE year = ?)`,
		`DELETE FROM funds WHERE year = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, year); err != nil {
			return fmt.Errorf("clear year %d: %w", year, err)
		}
	}
	return nil
}

func insertCategory(ctx context.Context, tx *sql.Tx, fundID int64, position int, category core.CategoryReport) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO categories (fund_id, category_key, name, position, average, total) VALUES (?, ?, ?, ?, ?, ?)`,
		fundID, category.Key, category.Name, position, category.Average, category.Total)
	if err != nil {
		return fmt.Errorf("insert category %q: %w", category.Key, err)
	}
	categoryID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	if err := insertMonthly(ctx, tx, ownerCategory, categoryID, category.Monthly); err != nil {
		return err
	}

	for si, sub := range category.Subcategories {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO subcategories (category_id, subcategory_key, name, position, average, total) VALUES (?, ?, ?, ?, ?, ?)`,
			categoryID, sub.Key, sub.Name, si, sub.Average, sub.Total)
		if err != nil {
			return fmt.Errorf("insert subcategory %q: %w", sub.Key, err)
		}
		subID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("subcategory id: %w", err)
		}
		if err := insertMonthly(ctx, tx, ownerSubcategory, subID, sub.Monthly); err != nil {
			return err
		}
	}
	return nil
}

func insertMonthly(ctx context.Context, tx *sql.Tx, kind string, ownerID int64, monthly []decimal.Decimal) error {
	for i, amount := range core.NormalizeMonthly(monthly) {
		if amount.IsZero() {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO monthly_amounts (owner_kind, owner_id, month, amount) VALUES (?, ?, ?, ?)`,
			kind, ownerID, i+1, amount); err != nil {
			return fmt.Errorf("insert %s %d month %d: %w", kind, ownerID, i+1, err)
		}
	}
	return nil
}

// ReadCategoryTree loads the funds of a year in their stored order. Months
// without a row read as zero.
func (r *SQLiteRepository) ReadCategoryTree(ctx context.Context, year int) ([]core.FundReport, error) {
	monthly, err := r.readMonthly(ctx, year)
	if err != nil {
		return nil, err
	}
	series := func(kind string, id int64) []decimal.Decimal {
		if values, ok := monthly[monthlyKey{kind, id}]; ok {
			return values
		}
		return core.NormalizeMonthly(nil)
	}

	funds, fundIndex, err := r.readFunds(ctx, year)
	if err != nil {
		return nil, err
	}

	type position struct{ fund, category int }
	categoryIndex := make(map[int64]position)

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.fund_id, c.category_key, c.name, c.average, c.total
		FROM categories c JOIN funds f ON f.id = c.fund_id
		WHERE f.year = ?
		ORDER BY f.position, c.position`, year)
	if err != nil {
		return nil, fmt.Errorf("read categories %d: %w", year, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, fundID int64
			category   core.CategoryReport
		)
		if err := rows.Scan(&id, &fundID, &category.Key, &category.Name, &category.Average, &category.Total); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		category.Monthly = series(ownerCategory, id)
		fi := fundIndex[fundID]
		funds[fi].Categories = append(funds[fi].Categories, category)
		categoryIndex[id] = position{fund: fi, category: len(funds[fi].Categories) - 1}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	// Release the single connection before the next query.
	rows.Close()

	subRows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.category_id, s.subcategory_key, s.name, s.average, s.total
		FROM subcategories s
		JOIN categories c ON c.id = s.category_id
		JOIN funds f ON f.id = c.fund_id
		WHERE f.year = ?
		ORDER BY f.position, c.position, s.position`, year)
	if err != nil {
		return nil, fmt.Errorf("read subcategories %d: %w", year, err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var (
			id, categoryID int64
			sub            core.SubcategoryReport
		)
		if err := subRows.Scan(&id, &categoryID, &sub.Key, &sub.Name, &sub.Average, &sub.Total); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		sub.Monthly = series(ownerSubcategory, id)
		pos := categoryIndex[categoryID]
		category := &funds[pos.fund].Categories[pos.category]
		category.Subcategories = append(category.Subcategories, sub)
	}
	if err := subRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subcategories: %w", err)
	}

	return funds, nil
}

func (r *SQLiteRepository) readFunds(ctx context.Context, year int) ([]core.FundReport, map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, fund_key, name FROM funds WHERE year = ? ORDER BY position`, year)
	if err != nil {
		return nil, nil, fmt.Errorf("read funds %d: %w", year, err)
	}
	defer rows.Close()

	var funds []core.FundReport
	index := make(map[int64]int)
	for rows.Next() {
		var (
			id   int64
			fund core.FundReport
		)
		if err := rows.Scan(&id, &fund.Key, &fund.Name); err != nil {
			return nil, nil, fmt.Errorf("scan fund: %w", err)
		}
		index[id] = len(funds)
		funds = append(funds, fund)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate funds: %w", err)
	}
	return funds, index, nil
}

func (r *SQLiteRepository) readMonthly(ctx context.Context, year int) (map[monthlyKey][]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.owner_kind, m.owner_id, m.month, m.amount
		FROM monthly_amounts m
		WHERE (m.owner_kind = 'category' AND m.owner_id IN (
				SELECT c.id FROM categories c JOIN funds f ON f.id = c.fund_id WHERE f.year = ?))
		   OR (m.owner_kind = 'subcategory' AND m.owner_id IN (
				SELECT s.id FROM subcategories s
				JOIN categories c ON c.id = s.category_id
				JOIN funds f ON f.id = c.fund_id WHERE f.year = ?))`, year, year)
	if err != nil {
		return nil, fmt.Errorf("read monthly amounts %d: %w", year, err)
	}
	defer rows.Close()

	out := make(map[monthlyKey][]decimal.Decimal)
	for rows.Next() {
		var (
			key    monthlyKey
			month  int
			amount decimal.Decimal
		)
		if err := rows.Scan(&key.kind, &key.id, &month, &amount); err != nil {
			return nil, fmt.Errorf("scan monthly amount: %w", err)
		}
		if month < 1 || month > core.MonthsPerReport {
			continue
		}
		values, ok := out[key]
		if !ok {
			values = core.NormalizeMonthly(nil)
			out[key] = values
		}
		values[month-1] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly amounts: %w", err)
	}
	return out, nil
}
