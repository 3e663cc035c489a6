package fees

import (
	"errors"
	"testing"
)

func TestSplitHoldersConservesAmount(t *testing.T) {
	holders := []Holder{
		{Account: account(1), Units: 1},
		{Account: account(2), Units: 0},
		{Account: account(3), Units: 2},
		{Account: account(4), Units: 4},
	}
	shares, err := SplitHolders(1_000, holders)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(shares) != 3 {
		t.Fatalf("zero-unit holder should be skipped, got %d shares", len(shares))
	}
	want := []uint64{142, 285, 573}
	var sum uint64
	for i, share := range shares {
		if share.Amount != want[i] {
			t.Fatalf("share %d: got %d want %d", i, share.Amount, want[i])
		}
		sum += share.Amount
	}
	if sum != 1_000 {
		t.Fatalf("holder split lost value: %d", sum)
	}
}

func TestSplitHoldersEmpty(t *testing.T) {
	shares, err := SplitHolders(10, []Holder{{Account: account(1)}})
	if err != nil || shares != nil {
		t.Fatalf("expected no eligible holders, got %v %v", shares, err)
	}
}

func TestSplitHoldersOverflow(t *testing.T) {
	holders := []Holder{{Account: account(1), Units: ^uint64(0)}, {Account: account(2), Units: 1}}
	if _, err := SplitHolders(10, holders); !errors.Is(err, ErrHolderOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestConversion(t *testing.T) {
	conv := Conversion{Numerator: 16_966, Denominator: 1_000_000}
	out, err := conv.Apply(100_000_000)
	if err != nil || out != 1_696_600 {
		t.Fatalf("conversion: got %d err %v", out, err)
	}
	if out, _ := (Conversion{}).Apply(55); out != 55 {
		t.Fatalf("identity conversion changed amount")
	}
	if err := (Conversion{Numerator: 1}).Validate(); !errors.Is(err, ErrInvalidConversion) {
		t.Fatalf("expected invalid conversion, got %v", err)
	}
}
