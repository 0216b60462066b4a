// Package export writes tabular reports as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Supported formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// TimeLayout is how time.Time cells are rendered.
const TimeLayout = "2006-01-02 15:04:05"

// Table is a header row plus data rows. Cells may be strings, numbers,
// booleans or time.Time values.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]interface{}
}

// ParseFormat normalizes a format query value, defaulting to CSV.
func ParseFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", format)
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Write renders table in format to w.
func Write(w io.Writer, format string, table Table) error {
	if format == FormatXLSX {
		return WriteXLSX(w, table)
	}
	return WriteCSV(w, table)
}

// WriteCSV writes a UTF-8 BOM so Excel detects the encoding, then the table.
func WriteCSV(w io.Writer, table Table) error {
	// BOM
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(table.Headers); err != nil {
		return err
	}
	record := make([]string, len(table.Headers))
	for _, row := range table.Rows {
		record = record[:0]
		for _, cell := range row {
			record = append(record, formatCell(cell))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX streams the table into a single-sheet workbook.
func WriteXLSX(w io.Writer, table Table) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet
	sheet := table.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return err
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	// Header row
	headers := make([]interface{}, len(table.Headers))
	for i, h := range table.Headers {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	// Data rows start at A2
	for i, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			switch v := cell.(type) {
			case string:
				cells[j] = SanitizeCell(v)
			case time.Time:
				cells[j] = v.Format(TimeLayout)
			default:
				cells[j] = cell
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush stream writer: %w", err)
	}
	return f.Write(w)
}

// SanitizeCell neutralizes values that spreadsheet apps would evaluate as formulas.
func SanitizeCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// formatCell renders one CSV cell.
func formatCell(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return SanitizeCell(v)
	case float64:
		return fmt.Sprintf("%.2f", v)
	case time.Time:
		return v.Format(TimeLayout)
	case fmt.Stringer:
		return SanitizeCell(v.String())
	default:
		return fmt.Sprint(v)
	}
}
