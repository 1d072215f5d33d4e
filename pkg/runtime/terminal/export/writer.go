package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"

	TimeSeriesSheet = "timeseries"
	CurveSheet      = "curve"
)

var timeSeriesHeader = []string{
	"date", "current_price", "optimal_price", "lower_bound", "upper_bound", "revenue_at_optimal", "elasticity",
}

var curveHeader = []string{"price", "demand", "revenue"}

// FormatFromPath infers the export format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format for %q, use .csv or .xlsx", path)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Encode renders the state in the given format.
func Encode(format Format, state domain.AnalysisState) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatCSV:
		err = WriteCSV(&buf, state.Rows)
	case FormatXLSX:
		err = WriteXLSX(&buf, state.Rows, state.Curve)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteCSV(w io.Writer, rows []domain.TimeSeriesRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(timeSeriesHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Date.Format("2006-01-02"),
			formatFloat(r.CurrentPrice),
			formatFloat(r.OptimalPrice),
			formatFloat(r.LowerBound),
			formatFloat(r.UpperBound),
			formatFloat(r.RevenueAtOptimal),
			"",
		}
		if r.Elasticity != nil {
			record[6] = formatFloat(*r.Elasticity)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the time series and, when present, the elasticity curve as separate sheets.
func WriteXLSX(w io.Writer, rows []domain.TimeSeriesRow, curve *domain.ElasticityCurve) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TimeSeriesSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := setRow(f, TimeSeriesSheet, 1, toCells(timeSeriesHeader)); err != nil {
		return err
	}
	for i, r := range rows {
		var elasticity any
		if r.Elasticity != nil {
			elasticity = *r.Elasticity
		}
		cells := []any{
			r.Date.Format("2006-01-02"),
			r.CurrentPrice, r.OptimalPrice, r.LowerBound, r.UpperBound, r.RevenueAtOptimal,
			elasticity,
		}
		if err := setRow(f, TimeSeriesSheet, i+2, cells); err != nil {
			return err
		}
	}

	if curve != nil {
		if _, err := f.NewSheet(CurveSheet); err != nil {
			return fmt.Errorf("failed to add curve sheet: %w", err)
		}
		if err := setRow(f, CurveSheet, 1, toCells(curveHeader)); err != nil {
			return err
		}
		for i, p := range curve.Points {
			if err := setRow(f, CurveSheet, i+2, []any{p.Price, p.Demand, p.Revenue}); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
