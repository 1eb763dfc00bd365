package model

import "testing"

func TestLedgerTypeDirection(t *testing.T) {
	cases := []struct {
		typ  LedgerType
		want int
	}{
		{LedgerStockIn, 1},
		{LedgerReturn, 1},
		{LedgerStockOut, -1},
		{LedgerSale, -1},
		{LedgerExpired, -1},
		{LedgerAdjustment, 0},
	}
	for _, tc := range cases {
		if got := tc.typ.Direction(); got != tc.want {
			t.Errorf("%s.Direction() = %d, want %d", tc.typ, got, tc.want)
		}
	}
}

func TestSignedQuantity(t *testing.T) {
	in := &LedgerEntry{Type: LedgerStockIn, Quantity: 7}
	if got := in.SignedQuantity(); got != 7 {
		t.Errorf("stock_in signed = %d, want 7", got)
	}
	out := &LedgerEntry{Type: LedgerSale, Quantity: 7}
	if got := out.SignedQuantity(); got != -7 {
		t.Errorf("sale signed = %d, want -7", got)
	}
}
