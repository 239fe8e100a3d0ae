package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMultiplyZeroQuantityIsExactZero(t *testing.T) {
	prices := []string{"0.00", "12.00", "99.99"}
	for _, price := range prices {
		got := Multiply(decimal.Zero, decimal.RequireFromString(price))
		if !got.Equal(decimal.Zero) {
			t.Fatalf("Multiply(0, %s) = %s, want exact zero", price, got)
		}
	}
}

func TestMultiplyKeepsFullPrecision(t *testing.T) {
	qty := decimal.RequireFromString("2.505")
	price := decimal.RequireFromString("3.33")

	got := Multiply(qty, price)
	want := decimal.RequireFromString("8.34165")
	if !got.Equal(want) {
		t.Fatalf("Multiply(%s, %s) = %s, want %s", qty, price, got, want)
	}
	if got.Exponent() != qty.Exponent()+price.Exponent() {
		t.Fatalf("expected combined scale %d, got exponent %d", qty.Exponent()+price.Exponent(), got.Exponent())
	}
}

func TestSumEmptyIsExactZero(t *testing.T) {
	got := Sum()
	if !got.Equal(decimal.Zero) {
		t.Fatalf("Sum() = %s, want exact zero", got)
	}
}

func TestSumDoesNotLosePrecision(t *testing.T) {
	got := Sum(
		decimal.RequireFromString("0.001"),
		decimal.RequireFromString("0.002"),
		decimal.RequireFromString("10.997"),
	)
	if !got.Equal(decimal.RequireFromString("11.000")) {
		t.Fatalf("unexpected sum %s", got)
	}
}

func TestRoundMoney(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"8.34165", "8.34"},
		{"8.345", "8.35"},
		{"0", "0.00"},
	}
	for _, tc := range cases {
		got := RoundMoney(decimal.RequireFromString(tc.in))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("RoundMoney(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
