package fees

import "drippy/core/types"

// DefaultPenaltyRateBps is the anti-snipe sell tax (50%).
const DefaultPenaltyRateBps uint32 = 5_000

// TaxWindow is the anti-snipe configuration. A zero WindowEnd disables the
// penalty entirely.
type TaxWindow struct {
	WindowEnd      uint64
	NormalRateBps  uint32
	PenaltyRateBps uint32
	Whitelist      map[types.AccountID]struct{}
}

// NewTaxWindow builds a window with the supplied whitelist.
func NewTaxWindow(end uint64, normalBps, penaltyBps uint32, whitelist ...types.AccountID) TaxWindow {
	window := TaxWindow{
		WindowEnd:      end,
		NormalRateBps:  normalBps,
		PenaltyRateBps: penaltyBps,
		Whitelist:      make(map[types.AccountID]struct{}, len(whitelist)),
	}
	for _, id := range whitelist {
		window.Whitelist[id] = struct{}{}
	}
	return window
}

// Whitelisted reports whether actor is exempt from the penalty rate.
func (w TaxWindow) Whitelisted(actor types.AccountID) bool {
	_, ok := w.Whitelist[actor]
	return ok
}

// Active reports whether the penalty window is open at now.
func (w TaxWindow) Active(now uint64) bool {
	return w.WindowEnd > 0 && now < w.WindowEnd
}

// Penalized reports whether a transfer pays the penalty rate.
func (w TaxWindow) Penalized(now uint64, isSellSide bool, actor types.AccountID) bool {
	return w.Active(now) && isSellSide && !w.Whitelisted(actor)
}

// EffectiveRateBps returns the tax rate applying to a transfer.
func EffectiveRateBps(now uint64, window TaxWindow, isSellSide bool, actor types.AccountID) uint32 {
	if window.Penalized(now, isSellSide, actor) {
		return window.PenaltyRateBps
	}
	return window.NormalRateBps
}
