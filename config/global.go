package config

import (
	"fmt"
	"slices"
	"time"

	"drippy/core/types"
	"drippy/native/accrual"
	"drippy/native/fees"
)

// Asset is the unit claims and distributions are paid in.
func (h Hook) Asset() types.Asset {
	if h.Currency == "" {
		return types.NativeAsset
	}
	return types.Asset{Currency: h.Currency, Issuer: h.Issuer}
}

// HolderAsset is the unit holder pools are paid in. It defaults to Asset.
func (h Hook) HolderAsset() types.Asset {
	if h.HolderCurrency == "" {
		return h.Asset()
	}
	return types.Asset{Currency: h.HolderCurrency, Issuer: h.HolderIssuer}
}

// ClaimParams converts the hook parameters into claim machine limits.
func (h Hook) ClaimParams() accrual.Params {
	return accrual.Params{
		Admin:       h.Admin,
		Asset:       h.Asset(),
		MaxPerClaim: h.MaxPerClaim,
		Cooldown:    h.CooldownSeconds,
		DailyMax:    h.DailyMax,
		MinClaim:    h.MinClaim,
		BoostMax:    h.BoostMax,
	}.Normalize()
}

// Pools returns the fixed pools with weights in basis points.
func (h Hook) Pools() ([]fees.Pool, error) {
	weights := []uint32{h.NFTAlloc, h.HoldAlloc, h.TreaAlloc, h.AMMAlloc}
	accounts := []types.AccountID{h.Accounts.NFT, h.Accounts.Hold, h.Accounts.Treasury, h.Accounts.AMM}
	pools := make([]fees.Pool, len(PoolOrder))
	for i, id := range PoolOrder {
		weight := weights[i]
		switch h.WeightUnit {
		case WeightUnitPercent, "":
			if weight > 100 {
				return nil, fmt.Errorf("config: hook.%s_alloc %d exceeds 100 percent", id, weight)
			}
			weight = fees.PercentToBps(weight)
		case WeightUnitBps:
		default:
			return nil, fmt.Errorf("config: unknown hook.weight_unit %q", h.WeightUnit)
		}
		pools[i] = fees.Pool{
			ID:        id,
			WeightBps: weight,
			Account:   accounts[i],
			Holders:   slices.Contains(h.HolderPools, id),
		}
	}
	if err := fees.ValidatePools(pools); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return pools, nil
}

// TaxWindow returns the anti-snipe window. Without an end time the penalty
// rate never applies and is dropped.
func (h Hook) TaxWindow() fees.TaxWindow {
	penalty := h.PenaltyBps
	if h.AntiSnipeEnd == 0 {
		penalty = 0
	}
	return fees.NewTaxWindow(h.AntiSnipeEnd, h.FeeBps, penalty, h.Whitelist...)
}

// DistributorConfig assembles the distribution settings.
func (h Hook) DistributorConfig() (fees.DistributorConfig, error) {
	pools, err := h.Pools()
	if err != nil {
		return fees.DistributorConfig{}, err
	}
	cfg := fees.DistributorConfig{
		Pools:            pools,
		Window:           h.TaxWindow(),
		PenaltyCollector: h.PenaltyCollector,
		Asset:            h.Asset(),
		HolderAsset:      h.HolderAsset(),
		Conversion: fees.Conversion{
			Numerator:   h.ConversionNumerator,
			Denominator: h.ConversionDenominator,
		},
	}
	if err := cfg.Validate(); err != nil {
		return fees.DistributorConfig{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// WalletTimeout is the per-submit deadline for the signing wallet.
func (w Wallet) WalletTimeout() time.Duration {
	if w.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(w.TimeoutSeconds) * time.Second
}
