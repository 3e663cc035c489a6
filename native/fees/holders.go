package fees

import (
	"context"
	"fmt"

	"drippy/core/types"
	"drippy/native/common"
)

// Holder is one entry of a pool's holder snapshot.
type Holder struct {
	Account types.AccountID
	Units   uint64
}

// HolderShare is the converted amount owed to one holder.
type HolderShare struct {
	Account types.AccountID
	Amount  uint64
}

// HolderSource supplies the current holder snapshot of a pool.
type HolderSource interface {
	Holders(ctx context.Context, poolID string) ([]Holder, error)
}

// Conversion scales a pool share into the holder payout asset. The zero
// value is the identity.
type Conversion struct {
	Numerator   uint64
	Denominator uint64
}

// Identity reports whether the conversion leaves amounts unchanged.
func (c Conversion) Identity() bool {
	return c.Numerator == 0 && c.Denominator == 0
}

// Validate rejects half-configured conversions.
func (c Conversion) Validate() error {
	if c.Identity() {
		return nil
	}
	if c.Numerator == 0 || c.Denominator == 0 {
		return ErrInvalidConversion
	}
	return nil
}

// Apply converts amount, truncating.
func (c Conversion) Apply(amount uint64) (uint64, error) {
	if c.Identity() {
		return amount, nil
	}
	out, err := common.MulDiv(amount, c.Numerator, c.Denominator)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidConversion, err)
	}
	return out, nil
}

// SplitHolders divides amount pro rata by holder units. Holders without units
// are ignored; the last remaining holder absorbs the rounding remainder. An
// empty result means nobody is eligible.
func SplitHolders(amount uint64, holders []Holder) ([]HolderShare, error) {
	eligible := make([]Holder, 0, len(holders))
	var units uint64
	for _, holder := range holders {
		if holder.Units == 0 || holder.Account.IsZero() {
			continue
		}
		sum, err := common.AddChecked(units, holder.Units)
		if err != nil {
			return nil, ErrHolderOverflow
		}
		units = sum
		eligible = append(eligible, holder)
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	shares := make([]HolderShare, len(eligible))
	var assigned uint64
	last := len(eligible) - 1
	for i, holder := range eligible {
		var part uint64
		if i == last {
			part = amount - assigned
		} else {
			var err error
			part, err = common.MulDiv(amount, holder.Units, units)
			if err != nil {
				return nil, ErrHolderOverflow
			}
		}
		assigned += part
		shares[i] = HolderShare{Account: holder.Account, Amount: part}
	}
	return shares, nil
}
