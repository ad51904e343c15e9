// pkg/types/types_test.go
package types

import "testing"

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		in   string
		want SortOrder
	}{
		{"price-asc", SortPriceAsc},
		{"PRICE-DESC", SortPriceDesc},
		{"recency", SortRecency},
		{"", SortRecency},
		{"bogus", SortRecency},
	}
	for _, tt := range tests {
		if got := ParseSortOrder(tt.in); got != tt.want {
			t.Errorf("ParseSortOrder(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestProductRecordValidate(t *testing.T) {
	r := ProductRecord{URL: "https://shop.example/p/1", Vendor: "VendorA"}
	if err := r.Validate(); err != nil {
		t.Errorf("valid record rejected: %v", err)
	}

	if err := (&ProductRecord{Vendor: "VendorA"}).Validate(); err == nil {
		t.Error("record without URL should be invalid")
	}
	if err := (&ProductRecord{URL: "https://shop.example/p/1"}).Validate(); err == nil {
		t.Error("record without vendor should be invalid")
	}
}

func TestProductRecordFailed(t *testing.T) {
	ok := ProductRecord{URL: "u", Vendor: "v"}
	if ok.Failed() {
		t.Error("record without error should not report failure")
	}
	bad := ProductRecord{URL: "u", Vendor: "v", Error: "timeout"}
	if !bad.Failed() {
		t.Error("record with error should report failure")
	}
}
