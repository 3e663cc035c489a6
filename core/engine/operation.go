package engine

import (
	"fmt"
	"strings"

	"drippy/core/types"
)

// Kind discriminates decoded operations.
type Kind uint8

const (
	KindNone Kind = iota
	KindDistribute
	KindClaim
	KindAccrue
	KindSetBoost
)

var kindNames = map[Kind]string{
	KindNone:       "none",
	KindDistribute: "distribute",
	KindClaim:      "claim",
	KindAccrue:     "accrue",
	KindSetBoost:   "set_boost",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a kind name.
func ParseKind(raw string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "setboost" {
		normalized = "set_boost"
	}
	for kind, name := range kindNames {
		if name == normalized {
			return kind, nil
		}
	}
	return KindNone, fmt.Errorf("engine: unknown operation kind %q", raw)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Operation is one decoded inbound request. Actor is the claimant, the
// distribution sender or the admin caller depending on Kind.
type Operation struct {
	Kind       Kind            `json:"kind"`
	Actor      types.AccountID `json:"actor"`
	Target     types.AccountID `json:"target,omitempty"`
	Amount     uint64          `json:"amount,omitempty,string"`
	Multiplier uint32          `json:"multiplier,omitempty"`
	IsSellSide bool            `json:"sellSide,omitempty"`
	Reference  string          `json:"reference,omitempty"`
	// Now overrides the engine clock, in epoch seconds.
	Now uint64 `json:"now,omitempty"`
}

// Distribute routes amount through the tax policy and allocator.
func Distribute(amount uint64, isSellSide bool, actor types.AccountID) Operation {
	return Operation{Kind: KindDistribute, Amount: amount, IsSellSide: isSellSide, Actor: actor}
}

// Claim pays out actor's accrual.
func Claim(actor types.AccountID) Operation {
	return Operation{Kind: KindClaim, Actor: actor}
}

// Accrue credits target on behalf of caller.
func Accrue(caller, target types.AccountID, amount uint64) Operation {
	return Operation{Kind: KindAccrue, Actor: caller, Target: target, Amount: amount}
}

// SetBoost updates target's multiplier on behalf of caller.
func SetBoost(caller, target types.AccountID, multiplier uint32) Operation {
	return Operation{Kind: KindSetBoost, Actor: caller, Target: target, Multiplier: multiplier}
}

// None is an accepted no-op.
func None() Operation {
	return Operation{Kind: KindNone}
}

func (op Operation) module() string {
	switch op.Kind {
	case KindClaim:
		return "claim"
	case KindDistribute:
		return "distribute"
	case KindAccrue, KindSetBoost:
		return "admin"
	default:
		return ""
	}
}

func (op Operation) lockKey() string {
	switch op.Kind {
	case KindClaim:
		return "account/" + op.Actor.Hex()
	case KindAccrue, KindSetBoost:
		return "account/" + op.Target.Hex()
	case KindDistribute:
		return "stats"
	default:
		return ""
	}
}
