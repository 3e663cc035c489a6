package payoutd

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"drippy/native/common"
)

// ErrPolicyNotFound indicates that no policy exists for the requested asset.
var ErrPolicyNotFound = errors.New("payoutd: policy not found")

// ErrDailyCapExceeded indicates that applying a payout would exceed the configured daily cap.
var ErrDailyCapExceeded = errors.New("payoutd: daily cap exceeded")

// Policy captures emission limits for a single asset. A zero DailyCap is
// unlimited. Reserve seeds the boost reserve the first time the asset is seen.
type Policy struct {
	Asset    string
	DailyCap uint64
	Reserve  uint64
}

// policyFile mirrors the YAML representation of a policy entry.
type policyFile struct {
	Asset    string `yaml:"asset"`
	DailyCap string `yaml:"daily_cap"`
	Reserve  string `yaml:"boost_reserve"`
}

// LoadPolicies reads policies from the provided YAML file on disk.
func LoadPolicies(path string) ([]Policy, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policies: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	var entries []policyFile
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode policies: %w", err)
	}
	policies := make([]Policy, 0, len(entries))
	seen := make(map[string]struct{})
	for _, entry := range entries {
		asset := normalizeAsset(entry.Asset)
		if asset == "" {
			return nil, fmt.Errorf("policy asset required")
		}
		if _, exists := seen[asset]; exists {
			return nil, fmt.Errorf("duplicate policy for asset %s", asset)
		}
		capAmount, err := parseAmount(entry.DailyCap)
		if err != nil {
			return nil, fmt.Errorf("asset %s daily_cap: %w", asset, err)
		}
		reserve, err := parseAmount(entry.Reserve)
		if err != nil {
			return nil, fmt.Errorf("asset %s boost_reserve: %w", asset, err)
		}
		policies = append(policies, Policy{Asset: asset, DailyCap: capAmount, Reserve: reserve})
		seen[asset] = struct{}{}
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Asset < policies[j].Asset })
	return policies, nil
}

func parseAmount(raw string) (uint64, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if trimmed == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer amount %q", raw)
	}
	return value, nil
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// PolicyEnforcer coordinates access to the configured payout caps.
type PolicyEnforcer struct {
	mu       sync.Mutex
	policies map[string]Policy
	meters   map[string]common.DailyMeter
}

// NewPolicyEnforcer constructs an enforcer for the supplied policies.
func NewPolicyEnforcer(policies []Policy) (*PolicyEnforcer, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("at least one policy must be configured")
	}
	registry := make(map[string]Policy, len(policies))
	for _, policy := range policies {
		asset := normalizeAsset(policy.Asset)
		if asset == "" {
			return nil, fmt.Errorf("policy asset required")
		}
		if _, exists := registry[asset]; exists {
			return nil, fmt.Errorf("duplicate policy for asset %s", asset)
		}
		policy.Asset = asset
		registry[asset] = policy
	}
	return &PolicyEnforcer{policies: registry, meters: make(map[string]common.DailyMeter)}, nil
}

// Policies returns the configured policies sorted by asset.
func (p *PolicyEnforcer) Policies() []Policy {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Policy, 0, len(p.policies))
	for _, policy := range p.policies {
		out = append(out, policy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

// Validate ensures the per-asset totals of a batch comply with the caps.
func (p *PolicyEnforcer) Validate(totals map[string]uint64, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for asset, amount := range totals {
		if err := p.validateLocked(asset, amount, now); err != nil {
			return fmt.Errorf("%w: %s", err, asset)
		}
	}
	return nil
}

func (p *PolicyEnforcer) validateLocked(asset string, amount uint64, now time.Time) error {
	policy, ok := p.policies[normalizeAsset(asset)]
	if !ok {
		return ErrPolicyNotFound
	}
	if policy.DailyCap == 0 {
		return nil
	}
	meter := p.meterLocked(policy.Asset, now)
	if meter.Remaining(policy.DailyCap) < amount {
		return ErrDailyCapExceeded
	}
	return nil
}

func (p *PolicyEnforcer) meterLocked(asset string, now time.Time) common.DailyMeter {
	return p.meters[asset].Roll(common.DayIndex(uint64(now.Unix())))
}

// Record notes accepted totals against the caps.
func (p *PolicyEnforcer) Record(totals map[string]uint64, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for asset, amount := range totals {
		key := normalizeAsset(asset)
		if _, ok := p.policies[key]; !ok {
			continue
		}
		meter, err := p.meterLocked(key, now).Add(amount)
		if err != nil {
			meter.Used = math.MaxUint64
		}
		p.meters[key] = meter
	}
}

// RemainingCap reports the remaining allowance for the asset today. Unlimited
// assets report math.MaxUint64.
func (p *PolicyEnforcer) RemainingCap(asset string, now time.Time) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := normalizeAsset(asset)
	policy, ok := p.policies[key]
	if !ok {
		return 0
	}
	return p.meterLocked(key, now).Remaining(policy.DailyCap)
}

// DailyCap returns the configured total cap for the asset.
func (p *PolicyEnforcer) DailyCap(asset string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policies[normalizeAsset(asset)].DailyCap
}

// Snapshot returns the remaining cap per capped asset for observability endpoints.
func (p *PolicyEnforcer) Snapshot(now time.Time) map[string]uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]uint64, len(p.policies))
	for asset, policy := range p.policies {
		if policy.DailyCap == 0 {
			continue
		}
		out[asset] = p.meterLocked(asset, now).Remaining(policy.DailyCap)
	}
	return out
}
