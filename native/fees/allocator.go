package fees

import (
	"fmt"
	"strings"

	"drippy/core/types"
	"drippy/native/common"
)

// Pool is a fixed distribution destination.
type Pool struct {
	ID        string
	WeightBps uint32
	Account   types.AccountID
	// Holders routes the share to the pool's registered holders instead of
	// Account.
	Holders bool
}

// Share is one pool's slice of a distribution.
type Share struct {
	PoolID    string
	WeightBps uint32
	Account   types.AccountID
	Holders   bool
	Amount    uint64
}

// Plan is the ordered split of one distribution.
type Plan struct {
	TotalInput     uint64
	TotalAllocated uint64
	Shares         []Share
}

// NonZero returns the shares that carry value.
func (p Plan) NonZero() []Share {
	out := make([]Share, 0, len(p.Shares))
	for _, share := range p.Shares {
		if share.Amount > 0 {
			out = append(out, share)
		}
	}
	return out
}

// PercentToBps converts whole-percent weights (40/30/20/10) to basis points.
func PercentToBps(pct uint32) uint32 {
	return pct * (common.BpsDenominator / common.PercentDenominator)
}

// ValidatePools checks that pools form a complete allocation.
func ValidatePools(pools []Pool) error {
	if len(pools) == 0 {
		return ErrNoPools
	}
	var sum uint64
	seen := make(map[string]struct{}, len(pools))
	for _, pool := range pools {
		id := strings.ToLower(strings.TrimSpace(pool.ID))
		if id == "" {
			return fmt.Errorf("%w: empty pool id", ErrInvalidAllocation)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePool, pool.ID)
		}
		seen[id] = struct{}{}
		sum += uint64(pool.WeightBps)
	}
	if sum != common.BpsDenominator {
		return fmt.Errorf("%w: got %d", ErrInvalidAllocation, sum)
	}
	return nil
}

// Allocate splits total across pools by weight. Every pool but the last
// receives floor(total*weight/10000); the last absorbs the remainder so the
// shares always sum to total.
func Allocate(total uint64, pools []Pool) (Plan, error) {
	if err := ValidatePools(pools); err != nil {
		return Plan{}, err
	}
	plan := Plan{TotalInput: total, Shares: make([]Share, len(pools))}
	var allocated uint64
	last := len(pools) - 1
	for i, pool := range pools {
		share := Share{PoolID: pool.ID, WeightBps: pool.WeightBps, Account: pool.Account, Holders: pool.Holders}
		if i == last {
			share.Amount = total - allocated
		} else {
			share.Amount = common.BpsOf(total, pool.WeightBps)
		}
		allocated += share.Amount
		plan.Shares[i] = share
	}
	plan.TotalAllocated = allocated
	return plan, nil
}
