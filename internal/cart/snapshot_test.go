package cart_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	lines := []domain.CartLine{
		{ID: "a", Name: "A", Price: decimal.RequireFromString("12.34"), Image: "a.png", Quantity: 2},
		{ID: "b", Name: "B", Price: decimal.RequireFromString("0.99"), Quantity: 1},
	}

	data, err := cart.EncodeSnapshot(lines)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := cart.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(lines, decoded, decimalEqual); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshot_EncodeNilAsEmptyArray(t *testing.T) {
	data, err := cart.EncodeSnapshot(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected [], got %s", data)
	}
}

func TestSnapshot_DecodeNormalizes(t *testing.T) {
	data := []byte(`[
		{"id":"a","name":"A","price":"1","quantity":1},
		{"id":"","name":"no id","price":"1","quantity":1},
		{"id":"b","name":"B","price":"2","quantity":0},
		{"id":"a","name":"A","price":"1","quantity":2}
	]`)

	lines, err := cart.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lines) != 1 || lines[0].ID != "a" || lines[0].Quantity != 3 {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestSnapshot_DecodeCorrupted(t *testing.T) {
	if _, err := cart.DecodeSnapshot([]byte(`{"id":`)); !errors.Is(err, domain.ErrSnapshotCorrupted) {
		t.Fatalf("expected ErrSnapshotCorrupted, got %v", err)
	}
}

func TestSnapshot_DecodeClampsQuantity(t *testing.T) {
	data := []byte(`[{"id":"a","name":"A","price":"1","quantity":9223372036854775807},{"id":"a","name":"A","price":"1","quantity":5}]`)

	lines, err := cart.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != domain.MaxLineQuantity {
		t.Fatalf("expected one line clamped to %d, got %+v", domain.MaxLineQuantity, lines)
	}
}
