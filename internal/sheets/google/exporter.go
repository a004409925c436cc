// Package google exports bifurcated reports to Google Sheets.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fundreport/internal/core"
)

// Credentials selects the service account used to reach the spreadsheet.
// Inline JSON wins over the file path.
type Credentials struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func NewExporter(ctx context.Context, creds Credentials) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(creds.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(creds.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "component", "sheets")
	return service, nil
}

// ExportReport writes both sides of a year's report, one tab each. Tabs
// are created when missing and cleared before writing.
func (e *Exporter) ExportReport(ctx context.Context, year int, result core.BifurcationResult) error {
	tabs := []struct {
		side   string
		series []core.CategoryMonthlySeries
	}{
		{SideIncome, result.IncomeData},
		{SideExpenses, result.ExpenseData},
	}

	titles, err := e.sheetTitles(ctx)
	if err != nil {
		return err
	}

	for _, tab := range tabs {
		name := TabName(year, tab.side)
		if _, ok := titles[name]; !ok {
			if err := e.addSheet(ctx, name); err != nil {
				return err
			}
		}
		if err := e.writeTab(ctx, name, BuildGrid(tab.series)); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Report tab exported",
			"component", "sheets",
			"sheet", name,
			"rows", len(tab.series))
	}
	return nil
}

// ReadTab reads back one side of an exported report.
func (e *Exporter) ReadTab(ctx context.Context, year int, side string) ([]core.CategoryMonthlySeries, error) {
	name := TabName(year, side)
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, quoteSheet(name)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	series, err := ParseGrid(resp.Values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return series, nil
}

func (e *Exporter) sheetTitles(ctx context.Context) (map[string]struct{}, error) {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	titles := make(map[string]struct{}, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = struct{}{}
		}
	}
	return titles, nil
}

func (e *Exporter) addSheet(ctx context.Context, name string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	return nil
}

func (e *Exporter) writeTab(ctx context.Context, name string, grid [][]any) error {
	rng := quoteSheet(name)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}

	vr := &gsheet.ValueRange{Values: grid}
	_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}
	return nil
}

// quoteSheet quotes a sheet title for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
