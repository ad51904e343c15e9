// internal/export/export_test.go
package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bullionwatch/bullionwatch/pkg/types"
)

func ptr(v float64) *float64 { return &v }

func sampleRecords() []types.ProductRecord {
	return []types.ProductRecord{
		{
			Title: "Full Sovereign 2024", Price: "£625.10", PriceValue: ptr(625.10),
			Stock: "In Stock", URL: "https://a.example/1", Vendor: "BullionByPost",
			Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			OriginalTitle: "Sovereign 2024", SourcePage: 1,
		},
		{
			Title: "", Price: "", Stock: "", URL: "https://a.example/2",
			Vendor: "Chards", Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			SourcePage: 3, Error: "navigation failed",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 records", len(rows))
	}
	if rows[0][0] != "Title" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "Full Sovereign 2024" || rows[1][2] != "625.1" {
		t.Errorf("record row = %v", rows[1])
	}
	if rows[2][9] != "navigation failed" {
		t.Errorf("error column = %v", rows[2])
	}
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExcel(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteExcel failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a valid workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Products")
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 records", len(rows))
	}
	if rows[1][0] != "Full Sovereign 2024" {
		t.Errorf("record row = %v", rows[1])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil || len(rows) != 1 {
		t.Errorf("empty export should be header only: rows=%v err=%v", rows, err)
	}
}
