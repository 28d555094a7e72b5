package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputePricing(t *testing.T) {
	tests := []struct {
		name     string
		lines    []CartLine
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		{
			name:     "above free shipping threshold",
			lines:    []CartLine{{ID: "a", Price: dec("50"), Quantity: 3}},
			subtotal: "150",
			tax:      "12",
			shipping: "0",
			total:    "162",
		},
		{
			name:     "below threshold pays flat shipping",
			lines:    []CartLine{{ID: "a", Price: dec("20"), Quantity: 2}},
			subtotal: "40",
			tax:      "3.2",
			shipping: "10",
			total:    "53.2",
		},
		{
			name:     "exactly at threshold still pays shipping",
			lines:    []CartLine{{ID: "a", Price: dec("25"), Quantity: 4}},
			subtotal: "100",
			tax:      "8",
			shipping: "10",
			total:    "118",
		},
		{
			name:     "empty cart",
			lines:    nil,
			subtotal: "0",
			tax:      "0",
			shipping: "10",
			total:    "10",
		},
		{
			name: "cents do not drift",
			lines: []CartLine{
				{ID: "a", Price: dec("0.1"), Quantity: 3},
				{ID: "b", Price: dec("0.2"), Quantity: 1},
			},
			subtotal: "0.5",
			tax:      "0.04",
			shipping: "10",
			total:    "10.54",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePricing(tt.lines)
			assertDecimal(t, "subtotal", got.Subtotal, tt.subtotal)
			assertDecimal(t, "tax", got.Tax, tt.tax)
			assertDecimal(t, "shipping", got.Shipping, tt.shipping)
			assertDecimal(t, "total", got.Total, tt.total)
		})
	}
}

func TestComputePricing_DoesNotMutateInput(t *testing.T) {
	lines := []CartLine{{ID: "a", Price: dec("9.99"), Quantity: 2}}
	_ = ComputePricing(lines)
	if lines[0].Quantity != 2 || !lines[0].Price.Equal(dec("9.99")) {
		t.Fatalf("input lines changed: %+v", lines[0])
	}
}

func TestFormatMoney(t *testing.T) {
	if got := FormatMoney(dec("53.2")); got != "53.20" {
		t.Fatalf("expected 53.20, got %s", got)
	}
	if got := FormatMoney(dec("0.045")); got != "0.05" {
		t.Fatalf("expected 0.05, got %s", got)
	}
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}
