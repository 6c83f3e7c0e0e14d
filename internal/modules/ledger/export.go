package ledger

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook
const (
	SheetSummary = "Summary"
	SheetTrades  = "Trades"
	SheetEquity  = "Equity"
)

var tradeHeader = []interface{}{
	"Entry Date", "Exit Date", "Position", "Entry Spread", "Exit Spread",
	"Profit", "Entry Z", "Exit Z", "Forced Close",
}

var equityHeader = []interface{}{"Date", "Spread", "Z-Score", "Capital"}

// ExportExcel writes run as an .xlsx workbook with Summary, Trades and Equity sheets.
// The Equity sheet is omitted when the run has no series.
func ExportExcel(run *Run, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the summary
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename default sheet: %w", err)
	}
	if err := writeSummarySheet(f, run); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetTrades); err != nil {
		return fmt.Errorf("failed to create trades sheet: %w", err)
	}
	if err := writeTradesSheet(f, run); err != nil {
		return err
	}

	if run.Series != nil {
		if _, err := f.NewSheet(SheetEquity); err != nil {
			return fmt.Errorf("failed to create equity sheet: %w", err)
		}
		if err := writeEquitySheet(f, run.Series); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, run *Run) error {
	s := run.Summary
	rows := [][]interface{}{
		{"Run", run.ID},
		{"Pair", run.SymbolA + " / " + run.SymbolB},
		{"P-Value", run.PValue},
		{"Hedge Ratio", run.HedgeRatio},
		{"Normalization", run.Normalization},
		{"Period", run.StartDate.Format("2006-01-02") + " to " + run.EndDate.Format("2006-01-02")},
		{"Observations", run.Observations},
		{"Entry Threshold", run.EntryThreshold},
		{"Exit Threshold", run.ExitThreshold},
		{"Total Trades", s.TotalTrades},
		{"Long Trades", s.LongTrades},
		{"Short Trades", s.ShortTrades},
		{"Wins", s.Wins},
		{"Losses", s.Losses},
		{"Win Rate %", s.WinRate},
		{"Average Win", s.AvgWin},
		{"Largest Win", s.LargestWin},
		{"Average Loss", s.AvgLoss},
		{"Largest Loss", s.LargestLoss},
		{"Total P&L", s.TotalProfit},
		{"Initial Capital", run.InitialCapital},
		{"Final Capital", run.FinalCapital},
		{"Return %", s.ReturnPct},
		{"Max Drawdown %", s.MaxDrawdownPct},
	}
	return writeRows(f, SheetSummary, rows)
}

func writeTradesSheet(f *excelize.File, run *Run) error {
	rows := make([][]interface{}, 0, len(run.Trades)+1)
	rows = append(rows, tradeHeader)
	for _, t := range run.Trades {
		rows = append(rows, []interface{}{
			t.EntryTime.Format("2006-01-02"),
			t.ExitTime.Format("2006-01-02"),
			string(t.Direction),
			t.EntrySpread,
			t.ExitSpread,
			t.Profit,
			cellFloat(t.EntryZ),
			cellFloat(t.ExitZ),
			t.ForcedClose,
		})
	}
	return writeRows(f, SheetTrades, rows)
}

func writeEquitySheet(f *excelize.File, series *RunSeries) error {
	rows := make([][]interface{}, 0, len(series.Times)+1)
	rows = append(rows, equityHeader)
	for i, ts := range series.Times {
		rows = append(rows, []interface{}{
			time.Unix(ts, 0).UTC().Format("2006-01-02"),
			cellAt(series.Spread, i),
			cellAt(series.ZScores, i),
			cellAt(series.Capital, i),
		})
	}
	return writeRows(f, SheetEquity, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cellFloat leaves NaN cells empty
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func cellAt(values []float64, i int) interface{} {
	if i >= len(values) {
		return nil
	}
	return cellFloat(values[i])
}
