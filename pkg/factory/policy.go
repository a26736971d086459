package factory

import (
	"context"
	"fmt"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
	"github.com/cloudconnect/cloudconnect/pkg/kinds"
)

// FamilyPolicy is a composable pre-processing step keyed by kind family. It
// receives a private copy of the configuration, may inject defaults for
// missing fields, and rejects family-wide bound violations with a
// FamilyPolicyViolation error.
type FamilyPolicy interface {
	// Name identifies the policy in logs, metrics and errors.
	Name() string

	// Applies reports whether the policy covers the family.
	Applies(family engine.Family) bool

	// Apply defaults and checks config in place.
	Apply(ctx context.Context, kind engine.Kind, config map[string]interface{}) error
}

// Bound limits a numeric field. Non-numeric values are left for the kind
// validator to reject.
type Bound struct {
	Field string
	Min   *float64
	Max   *float64
}

// DefaultsPolicy injects default values for missing fields and enforces
// numeric bounds afterwards.
type DefaultsPolicy struct {
	PolicyName string
	Families   []engine.Family
	Defaults   map[string]interface{}
	// DefaultOrder fixes the order in which defaults are injected.
	DefaultOrder []string
	Bounds       []Bound
}

// Name implements FamilyPolicy.
func (p *DefaultsPolicy) Name() string {
	return p.PolicyName
}

// Applies implements FamilyPolicy.
func (p *DefaultsPolicy) Applies(family engine.Family) bool {
	for _, f := range p.Families {
		if f == family {
			return true
		}
	}
	return false
}

// Apply implements FamilyPolicy. Defaults are only written for absent
// fields, so applying the policy twice is the same as applying it once.
func (p *DefaultsPolicy) Apply(_ context.Context, _ engine.Kind, config map[string]interface{}) error {
	for _, field := range p.DefaultOrder {
		if _, present := config[field]; !present {
			config[field] = p.Defaults[field]
		}
	}

	for _, b := range p.Bounds {
		raw, present := config[b.Field]
		if !present || !kinds.IsNumeric(raw) {
			continue
		}
		v, _ := kinds.AsFloat(raw)
		if b.Max != nil && v > *b.Max {
			return engine.NewPolicyViolationError(b.Field,
				fmt.Sprintf("%s cannot exceed %s", b.Field, formatBound(*b.Max))).
				WithOperation("create")
		}
		if b.Min != nil && v < *b.Min {
			return engine.NewPolicyViolationError(b.Field,
				fmt.Sprintf("%s must be at least %s", b.Field, formatBound(*b.Min))).
				WithOperation("create")
		}
	}
	return nil
}

func formatBound(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

func limit(v float64) *float64 {
	return &v
}

// AppPolicy defaults replica_count to 1.
func AppPolicy() FamilyPolicy {
	return &DefaultsPolicy{
		PolicyName:   "app",
		Families:     []engine.Family{engine.FamilyApp},
		Defaults:     map[string]interface{}{"replica_count": 1},
		DefaultOrder: []string{"replica_count"},
	}
}

// StoragePolicy defaults encryption on and the size to 100 GB, and caps the
// size at 1024 GB.
func StoragePolicy() FamilyPolicy {
	return &DefaultsPolicy{
		PolicyName: "storage",
		Families:   []engine.Family{engine.FamilyStorage},
		Defaults: map[string]interface{}{
			"encryption_enabled": true,
			"max_size_gb":        100,
		},
		DefaultOrder: []string{"encryption_enabled", "max_size_gb"},
		Bounds: []Bound{
			{Field: "max_size_gb", Max: limit(1024)},
		},
	}
}

// CachePolicy defaults eviction to LRU and the TTL to one hour, and requires
// a TTL of at least 300 seconds. It covers both the cache and the database
// families.
func CachePolicy() FamilyPolicy {
	return &DefaultsPolicy{
		PolicyName: "cache",
		Families:   []engine.Family{engine.FamilyCache, engine.FamilyDatabase},
		Defaults: map[string]interface{}{
			"eviction_policy": "LRU",
			"ttl_seconds":     3600,
		},
		DefaultOrder: []string{"eviction_policy", "ttl_seconds"},
		Bounds: []Bound{
			{Field: "ttl_seconds", Min: limit(300)},
		},
	}
}

// StandardPolicies returns the builtin app, storage and cache policies.
func StandardPolicies() []FamilyPolicy {
	return []FamilyPolicy{AppPolicy(), StoragePolicy(), CachePolicy()}
}

// BaselinePolicies returns no policies.
func BaselinePolicies() []FamilyPolicy {
	return nil
}

// PoliciesFor resolves a named policy set ("standard" or "baseline").
func PoliciesFor(set string) ([]FamilyPolicy, error) {
	switch set {
	case "", "standard":
		return StandardPolicies(), nil
	case "baseline":
		return BaselinePolicies(), nil
	default:
		return nil, fmt.Errorf("unknown family policy set: %s", set)
	}
}
