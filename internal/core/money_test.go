package core

import (
	"errors"
	"math"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"100000000000", 1e13, true},
		{"100000000000.01", 0, false},
		{"46000000000000000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		1:     "0.01",
		150:   "1.50",
		12345: "123.45",
		0:     "0.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyDecimalRoundTrip(t *testing.T) {
	m, err := NewMoney("42.42")
	if err != nil {
		t.Fatalf("NewMoney: %v", err)
	}
	cents, err := DecimalToCents(m.Decimal())
	if err != nil || cents != 4242 {
		t.Fatalf("round trip got %d (err=%v)", cents, err)
	}
}

func TestMoneyAddSaturates(t *testing.T) {
	max := Money{Cents: MaxAmountCents}
	var total Money
	for i := 0; i < 3; i++ {
		total = total.Add(max)
	}
	if total.Cents != 3*MaxAmountCents {
		t.Fatalf("total = %d", total.Cents)
	}

	near := Money{Cents: math.MaxInt64 - 5}
	if got := near.Add(Money{Cents: 10}); got.Cents != math.MaxInt64 {
		t.Fatalf("Add wrapped to %d", got.Cents)
	}
}

func TestDecimalToCentsCap(t *testing.T) {
	if _, err := ParseDecimalToCents("100000000000.01"); !errors.Is(err, ErrAmountTooLarge) || !errors.Is(err, ErrValidation) {
		t.Fatalf("over the cap: %v", err)
	}
}
