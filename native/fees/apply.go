package fees

import (
	"drippy/core/types"
	"drippy/native/common"
)

// TaxResult splits an amount into the withheld tax and the net remainder.
type TaxResult struct {
	RateBps uint32
	Penalty bool
	Tax     uint64
	Net     uint64
}

// ApplyTax withholds floor(amount*rate/10000). Rates above 100% are clamped.
func ApplyTax(amount uint64, rateBps uint32) TaxResult {
	if rateBps > common.BpsDenominator {
		rateBps = common.BpsDenominator
	}
	tax := common.BpsOf(amount, rateBps)
	return TaxResult{RateBps: rateBps, Tax: tax, Net: amount - tax}
}

// ApplyInput captures a taxable inbound transfer.
type ApplyInput struct {
	Gross      uint64
	Now        uint64
	IsSellSide bool
	Actor      types.AccountID
	Window     TaxWindow
}

// Apply evaluates the tax window for input and returns the split.
func Apply(input ApplyInput) TaxResult {
	penalty := input.Window.Penalized(input.Now, input.IsSellSide, input.Actor)
	rate := input.Window.NormalRateBps
	if penalty {
		rate = input.Window.PenaltyRateBps
	}
	result := ApplyTax(input.Gross, rate)
	result.Penalty = penalty
	return result
}
