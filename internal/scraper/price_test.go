// internal/scraper/price_test.go
package scraper

import "testing"

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"plain", "£625.10", 625.10, true},
		{"plain with thousands separator", "£1,234.56", 1234.56, true},
		{"from prefix", "Price from £625.10", 625.10, true},
		{"from prefix uppercase", "FROM £450", 450, true},
		{"range takes maximum", "£600 - £650", 650, true},
		{"range reversed still maximum", "£650 - £600", 650, true},
		{"per coin", "£625.10 per coin", 625.10, true},
		{"per unit other word", "£95.50 per gram", 95.50, true},
		{"bare number in text", "now only 499.99 while stocks last", 499.99, true},
		{"dollar symbol", "$2,499.99", 2499.99, true},
		{"euro symbol", "€310.00", 310.00, true},
		{"no price", "no price here", 0, false},
		{"empty", "", 0, false},
		{"whitespace only", "   ", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePrice(tt.input)
			if ok != tt.ok {
				t.Fatalf("NormalizePrice(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("NormalizePrice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePriceRangePolicy(t *testing.T) {
	// Bulk/range prices must resolve to the higher unit price.
	got, ok := NormalizePrice("£100 - £120")
	if !ok {
		t.Fatal("expected range price to parse")
	}
	if got != 120 {
		t.Fatalf("range price = %v, want 120", got)
	}
}

func TestNormalizePriceValue(t *testing.T) {
	if v := NormalizePriceValue("£625.10"); v == nil || *v != 625.10 {
		t.Fatalf("NormalizePriceValue(\"£625.10\") = %v, want 625.10", v)
	}
	if v := NormalizePriceValue("out of stock"); v != nil {
		t.Fatalf("NormalizePriceValue on unparseable text = %v, want nil", v)
	}
}
