package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fundreport/internal/cli"
	"fundreport/internal/core"
	"fundreport/internal/log"
	"fundreport/internal/services"
	"fundreport/internal/sheets/google"
)

func main() {
	year := flag.Int("year", 0, "reporting year to export (default: current year)")
	verify := flag.Bool("verify", false, "read the tabs back and compare row ids")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall export timeout")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentSheets)

	if *year == 0 {
		*year = time.Now().In(cfg.Location()).Year()
	}

	backend := cli.InitBackend(cfg, logger)
	defer backend.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg.GoogleSpreadsheetID, google.Credentials{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}, services.NewReportService(backend, nil), *year, *verify, logger); err != nil {
		logger.Error("Export failed", log.FieldError, err, log.FieldYear, *year)
		os.Exit(1)
	}
}

func run(ctx context.Context, spreadsheetID string, creds google.Credentials, reports *services.ReportService, year int, verify bool, logger *log.Logger) error {
	result, err := reports.Bifurcated(ctx, year)
	if err != nil {
		return err
	}

	exporter, err := google.NewExporter(ctx, creds)
	if err != nil {
		return err
	}
	if err := exporter.ExportReport(ctx, year, result); err != nil {
		return err
	}
	logger.Info("Report exported",
		log.FieldYear, year,
		"spreadsheet_id", spreadsheetID,
		"income_rows", len(result.IncomeData),
		"expense_rows", len(result.ExpenseData))

	if !verify {
		return nil
	}
	for _, tab := range []struct {
		side string
		want []core.CategoryMonthlySeries
	}{
		{google.SideIncome, result.IncomeData},
		{google.SideExpenses, result.ExpenseData},
	} {
		got, err := exporter.ReadTab(ctx, year, tab.side)
		if err != nil {
			return err
		}
		if err := sameRows(got, tab.want); err != nil {
			return fmt.Errorf("verify %s: %w", google.TabName(year, tab.side), err)
		}
	}
	logger.Info("Export verified", log.FieldYear, year)
	return nil
}

func sameRows(got, want []core.CategoryMonthlySeries) error {
	if len(got) != len(want) {
		return fmt.Errorf("read %d rows, wrote %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || !got[i].Total.Equal(want[i].Total) {
			return fmt.Errorf("row %d: read %s (%s), wrote %s (%s)", i, got[i].ID, got[i].Total, want[i].ID, want[i].Total)
		}
	}
	return nil
}
