// internal/export/export.go

// Package export renders product records as downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bullionwatch/bullionwatch/pkg/types"
)

var header = []string{
	"Title", "Price", "Price Value", "Stock", "URL", "Vendor",
	"Timestamp", "Original Title", "Page", "Error",
}

// WriteCSV writes records as UTF-8 CSV with a header row.
func WriteCSV(w io.Writer, records []types.ProductRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range records {
		if err := cw.Write(row(&records[i])); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExcel writes records as a single-sheet XLSX workbook.
func WriteExcel(w io.Writer, records []types.ProductRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Products"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range records {
		cell := fmt.Sprintf("A%d", i+2)
		values := row(&records[i])
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		// Keep the numeric price as a number so the sheet sorts.
		if records[i].PriceValue != nil {
			cells[2] = *records[i].PriceValue
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 50); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func row(r *types.ProductRecord) []string {
	priceValue := ""
	if r.PriceValue != nil {
		priceValue = strconv.FormatFloat(*r.PriceValue, 'f', -1, 64)
	}
	return []string{
		r.Title, r.Price, priceValue, r.Stock, r.URL, r.Vendor,
		r.Timestamp.UTC().Format(time.RFC3339), r.OriginalTitle,
		strconv.Itoa(r.SourcePage), r.Error,
	}
}
