// internal/store/store_test.go
package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bullionwatch/bullionwatch/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func record(url, vendor, title string, priceValue *float64) types.ProductRecord {
	return types.ProductRecord{
		Title:         title,
		Price:         "£625.10",
		PriceValue:    priceValue,
		Stock:         "In Stock",
		URL:           url,
		Vendor:        vendor,
		Timestamp:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		OriginalTitle: title,
		SourcePage:    1,
	}
}

func TestReplaceVendorIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := []types.ProductRecord{
		record("https://a.example/1", "VendorA", "Sovereign 2024", ptr(625.10)),
		record("https://a.example/2", "VendorA", "Sovereign 2023", ptr(610)),
		record("https://a.example/3", "VendorA", "Sovereign 2022", nil),
	}
	if n, err := s.ReplaceVendor(ctx, "VendorA", first); err != nil || n != 3 {
		t.Fatalf("first replace: n=%d err=%v", n, err)
	}

	// A second run supersedes the first completely.
	second := []types.ProductRecord{
		record("https://a.example/1", "VendorA", "Sovereign 2024", ptr(630)),
		record("https://a.example/4", "VendorA", "Sovereign 2021", ptr(598)),
	}
	if n, err := s.ReplaceVendor(ctx, "VendorA", second); err != nil || n != 2 {
		t.Fatalf("second replace: n=%d err=%v", n, err)
	}

	records, err := s.Find(ctx, types.Filter{Vendor: "VendorA"})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records after replace, want 2", len(records))
	}
	for _, r := range records {
		if r.URL == "https://a.example/2" || r.URL == "https://a.example/3" {
			t.Errorf("stale record survived replace: %s", r.URL)
		}
		if r.URL == "https://a.example/1" && (r.PriceValue == nil || *r.PriceValue != 630) {
			t.Errorf("record not updated: %+v", r)
		}
	}
}

func TestReplaceVendorScopedToVendor(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.ReplaceVendor(ctx, "VendorA", []types.ProductRecord{
		record("https://a.example/1", "VendorA", "Sovereign A", ptr(600)),
	})
	s.ReplaceVendor(ctx, "VendorB", []types.ProductRecord{
		record("https://b.example/1", "VendorB", "Sovereign B", ptr(610)),
	})

	// Replacing VendorA must not touch VendorB.
	s.ReplaceVendor(ctx, "VendorA", []types.ProductRecord{
		record("https://a.example/2", "VendorA", "Sovereign A2", ptr(605)),
	})

	counts, err := s.VendorCounts(ctx)
	if err != nil {
		t.Fatalf("VendorCounts failed: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("got %d vendors, want 2: %+v", len(counts), counts)
	}
	for _, vc := range counts {
		if vc.Count != 1 {
			t.Errorf("vendor %s count = %d, want 1", vc.Vendor, vc.Count)
		}
	}
}

func TestReplaceVendorRejectsInvalidRecord(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.ReplaceVendor(ctx, "VendorA", []types.ProductRecord{
		record("https://a.example/1", "VendorA", "Sovereign A", ptr(600)),
	})

	bad := record("", "VendorA", "No URL", ptr(500))
	if _, err := s.ReplaceVendor(ctx, "VendorA", []types.ProductRecord{bad}); err == nil {
		t.Fatal("expected an error for a record without a URL")
	}

	// The failed replace must roll back, keeping the old snapshot.
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("count after rollback = %d, want 1", n)
	}
}

func TestReplaceVendorPersistsErrorRecords(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	failed := record("https://a.example/broken", "VendorA", "", nil)
	failed.Price = ""
	failed.Stock = ""
	failed.Error = "navigation failed"

	if _, err := s.ReplaceVendor(ctx, "VendorA", []types.ProductRecord{failed}); err != nil {
		t.Fatalf("ReplaceVendor failed: %v", err)
	}

	records, err := s.Find(ctx, types.Filter{Vendor: "VendorA"})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(records) != 1 || records[0].Error != "navigation failed" {
		t.Fatalf("error record not round-tripped: %+v", records)
	}
	if !records[0].Failed() {
		t.Error("record should report failure")
	}
}

func TestFindFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	records := []types.ProductRecord{
		record("https://a.example/1", "VendorA", "Full Sovereign 2024", ptr(625.10)),
		record("https://a.example/2", "VendorA", "Half Sovereign 2024", ptr(320)),
		record("https://a.example/3", "VendorA", "Quarter Sovereign", ptr(165)),
		record("https://a.example/4", "VendorA", "Sovereign POA", nil),
	}
	if _, err := s.ReplaceVendor(ctx, "VendorA", records); err != nil {
		t.Fatalf("ReplaceVendor failed: %v", err)
	}

	t.Run("text query is case-insensitive", func(t *testing.T) {
		got, err := s.Find(ctx, types.Filter{TextQuery: "half sov"})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Half Sovereign 2024" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("price bounds exclude unpriced records", func(t *testing.T) {
		got, err := s.Find(ctx, types.Filter{MinPrice: ptr(100), MaxPrice: ptr(400)})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d records, want 2: %+v", len(got), got)
		}
		for _, r := range got {
			if r.PriceValue == nil {
				t.Error("unpriced record leaked into a price-bounded query")
			}
		}
	})

	t.Run("price ascending pushes unpriced last", func(t *testing.T) {
		got, err := s.Find(ctx, types.Filter{SortBy: types.SortPriceAsc})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("got %d records, want 4", len(got))
		}
		if *got[0].PriceValue != 165 || *got[1].PriceValue != 320 || *got[2].PriceValue != 625.10 {
			t.Errorf("wrong ascending order: %+v", got)
		}
		if got[3].PriceValue != nil {
			t.Error("unpriced record should sort last")
		}
	})

	t.Run("price descending", func(t *testing.T) {
		got, err := s.Find(ctx, types.Filter{SortBy: types.SortPriceDesc})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if *got[0].PriceValue != 625.10 {
			t.Errorf("wrong descending order: %+v", got)
		}
		if got[3].PriceValue != nil {
			t.Error("unpriced record should sort last")
		}
	})
}

func TestLastScrape(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if last, err := s.LastScrape(ctx); err != nil || last != "" {
		t.Fatalf("empty store: last=%q err=%v", last, err)
	}

	older := record("https://a.example/1", "VendorA", "Sovereign", ptr(600))
	older.Timestamp = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	newer := record("https://a.example/2", "VendorA", "Sovereign", ptr(610))
	newer.Timestamp = time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	s.ReplaceVendor(ctx, "VendorA", []types.ProductRecord{older, newer})

	last, err := s.LastScrape(ctx)
	if err != nil {
		t.Fatalf("LastScrape failed: %v", err)
	}
	if last != "2026-08-01T09:00:00Z" {
		t.Errorf("last scrape = %q", last)
	}
}
