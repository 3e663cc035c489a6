package config

import (
	"fmt"
	"slices"

	"drippy/storage"
)

// MaxBoostPercent bounds boost_max; larger multipliers overflow the payout
// arithmetic long before they are useful.
const MaxBoostPercent = 10_000

var knownModules = []string{"claim", "distribute", "admin"}

// Validate checks the configuration for values the engine cannot run with.
func Validate(cfg *Config) error {
	switch cfg.StorageBackend {
	case "", storage.BackendMemory, storage.BackendLevelDB, storage.BackendBolt, storage.BackendPebble:
	default:
		return fmt.Errorf("config: unknown storage_backend %q", cfg.StorageBackend)
	}
	for _, module := range cfg.PausedModules {
		if !slices.Contains(knownModules, module) {
			return fmt.Errorf("config: unknown paused module %q", module)
		}
	}
	if cfg.API.RateLimitPerSecond < 0 || cfg.API.RateLimitBurst < 0 {
		return fmt.Errorf("config: api rate limits must be non-negative")
	}
	return validateHook(cfg.Hook)
}

func validateHook(h Hook) error {
	if h.BoostMax > MaxBoostPercent {
		return fmt.Errorf("config: hook.boost_max %d above %d", h.BoostMax, MaxBoostPercent)
	}
	if h.MaxPerClaim > 0 && h.DailyMax > 0 && h.MaxPerClaim > h.DailyMax {
		return fmt.Errorf("config: hook.max_per_claim exceeds hook.daily_max")
	}
	if h.FeeBps > 10_000 || h.PenaltyBps > 10_000 {
		return fmt.Errorf("config: hook tax rates must be at most 10000 bps")
	}
	if h.Currency != "" && h.Issuer.IsZero() {
		return fmt.Errorf("config: hook.currency %q requires hook.issuer", h.Currency)
	}
	if h.HolderCurrency != "" && h.HolderIssuer.IsZero() {
		return fmt.Errorf("config: hook.holder_currency %q requires hook.holder_issuer", h.HolderCurrency)
	}
	if (h.ConversionNumerator == 0) != (h.ConversionDenominator == 0) {
		return fmt.Errorf("config: hook conversion needs both numerator and denominator")
	}
	if (h.FeeBps > 0 || (h.AntiSnipeEnd > 0 && h.PenaltyBps > 0)) && h.PenaltyCollector.IsZero() {
		return fmt.Errorf("config: hook.penalty_collector is required when a tax applies")
	}
	for _, pool := range h.HolderPools {
		if !slices.Contains(PoolOrder, pool) {
			return fmt.Errorf("config: unknown holder pool %q", pool)
		}
	}
	pools, err := h.Pools()
	if err != nil {
		return err
	}
	for _, pool := range pools {
		if pool.Account.IsZero() {
			return fmt.Errorf("config: hook.accounts.%s is required", pool.ID)
		}
	}
	return nil
}
