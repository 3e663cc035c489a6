package accrual

import (
	"drippy/core/types"
	"drippy/native/common"
)

const (
	// DefaultMinClaim is the smallest accrued balance that may be claimed.
	DefaultMinClaim uint64 = 1_000_000
	// DefaultBoostMax caps the payout multiplier at 5.0x.
	DefaultBoostMax uint32 = 500
	// NeutralMultiplier is the 1.0x payout multiplier.
	NeutralMultiplier uint32 = common.PercentDenominator
)

// State is the reward bookkeeping kept for one account.
type State struct {
	Accrued         uint64
	LastClaimTime   uint64
	ClaimCount      uint32
	BoostMultiplier uint32
	DailyClaimed    uint64
}

// EffectiveMultiplier returns the payout multiplier in percent. An unset
// multiplier is neutral.
func (s State) EffectiveMultiplier() uint32 {
	if s.BoostMultiplier == 0 {
		return NeutralMultiplier
	}
	return s.BoostMultiplier
}

// DailyResetDay is the day index at which DailyClaimed was last valid.
func (s State) DailyResetDay() uint32 {
	return common.DayIndex(s.LastClaimTime)
}

func (s State) meter() common.DailyMeter {
	return common.DailyMeter{Day: s.DailyResetDay(), Used: s.DailyClaimed}
}

// Params are the claim rules. Zero values disable MaxPerClaim, Cooldown and
// DailyMax; MinClaim and BoostMax fall back to their defaults.
type Params struct {
	Admin       types.AccountID
	Asset       types.Asset
	MaxPerClaim uint64
	Cooldown    uint64
	DailyMax    uint64
	MinClaim    uint64
	BoostMax    uint32
}

// Normalize fills the defaults.
func (p Params) Normalize() Params {
	if p.MinClaim == 0 {
		p.MinClaim = DefaultMinClaim
	}
	if p.BoostMax == 0 {
		p.BoostMax = DefaultBoostMax
	}
	return p
}
