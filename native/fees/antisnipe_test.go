package fees

import (
	"testing"

	"drippy/core/types"
)

func TestEffectiveRateBps(t *testing.T) {
	const start uint64 = 1_700_000_000
	seller := account(10)
	listed := account(11)
	window := NewTaxWindow(start+3600, 500, DefaultPenaltyRateBps, listed)

	cases := []struct {
		name   string
		now    uint64
		sell   bool
		actor  types.AccountID
		window TaxWindow
		want   uint32
	}{
		{name: "sell inside window", now: start + 10, sell: true, actor: seller, window: window, want: 5000},
		{name: "whitelisted seller", now: start + 10, sell: true, actor: listed, window: window, want: 500},
		{name: "buy inside window", now: start + 10, sell: false, actor: seller, window: window, want: 500},
		{name: "window closed", now: start + 3600, sell: true, actor: seller, window: window, want: 500},
		{name: "window disabled", now: 0, sell: true, actor: seller, window: NewTaxWindow(0, 500, 5000), want: 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EffectiveRateBps(tc.now, tc.window, tc.sell, tc.actor); got != tc.want {
				t.Fatalf("rate: got %d want %d", got, tc.want)
			}
		})
	}
}

func TestApplyTax(t *testing.T) {
	res := ApplyTax(1_000_001, 5000)
	if res.Tax != 500_000 || res.Net != 500_001 {
		t.Fatalf("unexpected split %+v", res)
	}
	res = ApplyTax(77, 20_000)
	if res.Tax != 77 || res.Net != 0 || res.RateBps != 10_000 {
		t.Fatalf("rate above 100%% must clamp: %+v", res)
	}
	res = Apply(ApplyInput{Gross: 2_000_000, Now: 5, IsSellSide: true, Actor: account(1), Window: NewTaxWindow(100, 0, 5000)})
	if !res.Penalty || res.Tax != 1_000_000 {
		t.Fatalf("expected penalty tax, got %+v", res)
	}
}
