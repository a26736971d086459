package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
	"github.com/cloudconnect/cloudconnect/pkg/factory"
	"github.com/cloudconnect/cloudconnect/pkg/telemetry"
)

// EngineName is the family policy name the Rego engine reports.
const EngineName = "rego"

// Engine evaluates Rego admission policies during construction. It
// implements factory.FamilyPolicy: blocking violations reject the resource
// with a FamilyPolicyViolation error, warnings are only logged.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*compiledPolicy
	logger   zerolog.Logger
	tel      *telemetry.Telemetry
	clock    func() time.Time
}

var _ factory.FamilyPolicy = (*Engine)(nil)

// compiledPolicy represents a compiled Rego policy.
type compiledPolicy struct {
	policy   *Policy
	query    rego.PreparedEvalQuery
	compiled time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTelemetry records reload metrics and events.
func WithTelemetry(tel *telemetry.Telemetry) EngineOption {
	return func(e *Engine) {
		if tel != nil {
			e.tel = tel
		}
	}
}

// WithClock sets the clock used for the input timestamp.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine creates an engine with no policies.
func NewEngine(logger zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		policies: make(map[string]*compiledPolicy),
		logger:   logger.With().Str("component", "policy-engine").Logger(),
		tel:      telemetry.NewNoop(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements factory.FamilyPolicy.
func (e *Engine) Name() string {
	return EngineName
}

// Applies implements factory.FamilyPolicy.
func (e *Engine) Applies(family engine.Family) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, cp := range e.policies {
		if cp.policy.Enabled && cp.policy.Covers(string(family)) {
			return true
		}
	}
	return false
}

// Apply implements factory.FamilyPolicy.
func (e *Engine) Apply(ctx context.Context, kind engine.Kind, config map[string]interface{}) error {
	input := Input{
		Resource: ResourceInput{
			Name:   factory.ResourceName(ctx),
			Kind:   kind.Name(),
			Family: string(kind.Family()),
			Config: config,
		},
		Context: InputContext{
			Timestamp: e.clock(),
			Operation: "create",
		},
	}

	violations, err := e.Evaluate(ctx, input)
	if err != nil {
		return engine.Errorf(engine.CodeFamilyPolicyViolation, "policy evaluation failed: %v", err).
			WithOperation("create")
	}

	for i := range violations {
		v := &violations[i]
		if v.Severity.Blocks() {
			return engine.NewPolicyViolationError(v.Field, v.Message).WithOperation("create")
		}
		e.logger.Warn().
			Str("policy", v.Policy).
			Str("resource", input.Resource.Name).
			Str("severity", string(v.Severity)).
			Msg(v.Message)
	}
	return nil
}

// Evaluate runs every enabled policy covering the input's family, in name
// order, and returns all violations.
func (e *Engine) Evaluate(ctx context.Context, input Input) ([]Violation, error) {
	doc, err := toDocument(input)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var all []Violation
	for _, name := range e.sortedNames() {
		cp := e.policies[name]
		if !cp.policy.Enabled || !cp.policy.Covers(input.Resource.Family) {
			continue
		}

		results, err := cp.query.Eval(ctx, rego.EvalInput(doc))
		if err != nil {
			e.logger.Error().Err(err).
				Str("policy", name).
				Str("resource", input.Resource.Name).
				Msg("Policy evaluation failed")
			return nil, fmt.Errorf("policy %s: %w", name, err)
		}

		for _, result := range results {
			if len(result.Expressions) == 0 {
				continue
			}
			denySet, ok := result.Expressions[0].Value.([]interface{})
			if !ok {
				continue
			}
			for _, d := range denySet {
				all = append(all, createViolation(cp.policy, d, input.Resource.Name))
			}
		}
	}

	// Set iteration order is not stable across evaluations.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Policy != all[j].Policy {
			return all[i].Policy < all[j].Policy
		}
		return all[i].Message < all[j].Message
	})
	return all, nil
}

// toDocument converts the input to plain JSON values so numbers of any Go
// type reach Rego as numbers.
func toDocument(input Input) (interface{}, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy input: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode policy input: %w", err)
	}
	return doc, nil
}

// createViolation creates a Violation from one element of a deny set. The
// element may be a message string or an object with message, severity and
// field keys.
func createViolation(policy *Policy, result interface{}, resource string) Violation {
	violation := Violation{
		Policy:   policy.Name,
		Resource: resource,
		Severity: policy.Severity,
	}

	switch v := result.(type) {
	case string:
		violation.Message = v
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			violation.Message = msg
		}
		if sev, ok := v["severity"].(string); ok {
			violation.Severity = Severity(sev)
		}
		if field, ok := v["field"].(string); ok {
			violation.Field = field
		}
	default:
		violation.Message = fmt.Sprintf("%v", result)
	}

	if violation.Message == "" {
		violation.Message = fmt.Sprintf("denied by policy %s", policy.Name)
	}
	return violation
}

// compile parses and prepares a policy without adding it to the engine.
func compile(ctx context.Context, policy *Policy) (*compiledPolicy, error) {
	module, err := ast.ParseModule(policy.Name, policy.Rego)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	r := rego.New(
		rego.Module(policy.Name, policy.Rego),
		rego.Query(module.Package.Path.String()+".deny"),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare query: %w", err)
	}

	if policy.Severity == "" {
		policy.Severity = SeverityError
	}

	return &compiledPolicy{
		policy:   policy,
		query:    query,
		compiled: time.Now(),
	}, nil
}

// Add compiles and registers a policy, replacing one with the same name.
func (e *Engine) Add(ctx context.Context, policy Policy) error {
	cp, err := compile(ctx, &policy)
	if err != nil {
		return fmt.Errorf("failed to compile policy %s: %w", policy.Name, err)
	}

	e.mu.Lock()
	e.policies[policy.Name] = cp
	e.mu.Unlock()

	e.logger.Debug().Str("policy", policy.Name).Msg("Policy compiled successfully")
	return nil
}

// LoadPolicies loads and compiles policy files. Nothing is registered unless
// every policy compiles.
func (e *Engine) LoadPolicies(ctx context.Context, paths []string) error {
	loader := NewLoader(e.logger)
	policies, err := loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	compiled, err := compileAll(ctx, policies)
	if err != nil {
		return err
	}

	e.mu.Lock()
	for name, cp := range compiled {
		e.policies[name] = cp
	}
	e.mu.Unlock()

	e.logger.Info().Int("count", len(policies)).Msg("Policies loaded successfully")
	return nil
}

// Replace swaps the whole policy set. On a compile error the current set is
// kept. Reloads are counted in metrics and published as events.
func (e *Engine) Replace(ctx context.Context, source string, policies []Policy) error {
	compiled, err := compileAll(ctx, policies)
	if err != nil {
		e.tel.Metrics.RecordPolicyReload(telemetry.ResultFailure)
		return err
	}

	e.mu.Lock()
	// Builtins enabled earlier survive a reload of file policies.
	for name, cp := range e.policies {
		if _, replaced := compiled[name]; !replaced && cp.policy.Source == builtinSource {
			compiled[name] = cp
		}
	}
	e.policies = compiled
	e.mu.Unlock()

	e.tel.Metrics.RecordPolicyReload(telemetry.ResultSuccess)
	_ = e.tel.Events.PublishPolicyReloaded(source, len(policies))
	e.logger.Info().Str("source", source).Int("count", len(policies)).Msg("Policies replaced")
	return nil
}

func compileAll(ctx context.Context, policies []Policy) (map[string]*compiledPolicy, error) {
	compiled := make(map[string]*compiledPolicy, len(policies))
	for i := range policies {
		p := policies[i]
		cp, err := compile(ctx, &p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile policy %s: %w", p.Name, err)
		}
		compiled[p.Name] = cp
	}
	return compiled, nil
}

// Watch reloads the policies under paths whenever a policy file changes,
// until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, paths []string) (*Loader, error) {
	loader := NewLoader(e.logger)
	err := loader.Watch(ctx, paths, func(policies []Policy) error {
		return e.Replace(ctx, "watch", policies)
	})
	if err != nil {
		return nil, err
	}
	return loader, nil
}

// GetPolicy returns a policy by name.
func (e *Engine) GetPolicy(name string) (*Policy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp, exists := e.policies[name]
	if !exists {
		return nil, fmt.Errorf("policy not found: %s", name)
	}

	p := *cp.policy
	return &p, nil
}

// ListPolicies returns all loaded policies sorted by name.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]Policy, 0, len(e.policies))
	for _, name := range e.sortedNames() {
		policies = append(policies, *e.policies[name].policy)
	}
	return policies
}

// EnablePolicy enables a policy by name.
func (e *Engine) EnablePolicy(name string) error {
	return e.setEnabled(name, true)
}

// DisablePolicy disables a policy by name.
func (e *Engine) DisablePolicy(name string) error {
	return e.setEnabled(name, false)
}

func (e *Engine) setEnabled(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, exists := e.policies[name]
	if !exists {
		return fmt.Errorf("policy not found: %s", name)
	}

	cp.policy.Enabled = enabled
	e.logger.Info().Str("policy", name).Bool("enabled", enabled).Msg("Policy state changed")
	return nil
}

// sortedNames must be called with e.mu held.
func (e *Engine) sortedNames() []string {
	names := make([]string, 0, len(e.policies))
	for name := range e.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
