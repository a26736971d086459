package factory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
	"github.com/cloudconnect/cloudconnect/pkg/kinds"
	"github.com/cloudconnect/cloudconnect/pkg/telemetry"
)

// Options configures a Pipeline.
type Options struct {
	// Policies are applied in order to every kind whose family they cover.
	Policies []FamilyPolicy

	// Logger receives debug output for each construction. Defaults to a
	// no-op logger.
	Logger *zerolog.Logger

	// Telemetry records spans, metrics and policy events. Optional.
	Telemetry *telemetry.Telemetry
}

// Pipeline produces validated resources from a kind name, a resource name and
// a configuration. It performs no registry mutation and no I/O of its own.
type Pipeline struct {
	catalog *kinds.Catalog
	logger  zerolog.Logger
	tel     *telemetry.Telemetry

	mu       sync.RWMutex
	policies []FamilyPolicy
}

// New creates a pipeline over the given catalog.
func New(catalog *kinds.Catalog, opts Options) *Pipeline {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "factory").Logger()
	}

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.NewNoop()
	}

	return &Pipeline{
		catalog:  catalog,
		logger:   logger,
		tel:      tel,
		policies: append([]FamilyPolicy(nil), opts.Policies...),
	}
}

// NewStandard creates a pipeline with the builtin family policies.
func NewStandard(catalog *kinds.Catalog) *Pipeline {
	return New(catalog, Options{Policies: StandardPolicies()})
}

// NewBaseline creates a pipeline with no family policies.
func NewBaseline(catalog *kinds.Catalog) *Pipeline {
	return New(catalog, Options{Policies: BaselinePolicies()})
}

// AddPolicy appends a family policy. It applies to constructions that start
// after the call.
func (p *Pipeline) AddPolicy(policy FamilyPolicy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policies = append(p.policies, policy)
}

// Policies returns the configured policies in application order.
func (p *Pipeline) Policies() []FamilyPolicy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]FamilyPolicy(nil), p.policies...)
}

// Catalog returns the kind catalog the pipeline resolves against.
func (p *Pipeline) Catalog() *kinds.Catalog {
	return p.catalog
}

// Construct runs the four pipeline steps: resolve the kind, apply family
// policies on a private copy of config, instantiate the resource, and run
// the kind validator. The caller's config is never modified.
func (p *Pipeline) Construct(ctx context.Context, kindName, name string, config map[string]interface{}) (*engine.Resource, error) {
	ctx, span := p.tel.Tracer.StartConstructionSpan(ctx, kindName, name)
	defer span.End()
	timer := telemetry.NewTimer()

	res, err := p.construct(ctx, kindName, name, config)

	result := telemetry.ResultSuccess
	label := kindName
	if res != nil {
		label = res.Kind()
	}
	if err != nil {
		result = telemetry.ResultFailure
		telemetry.RecordError(span, err)
		span.SetAttributes(telemetry.AttrErrorCode.String(string(engine.CodeOf(err))))
		p.tel.Metrics.RecordError(string(engine.CodeOf(err)))
		p.logger.Debug().Err(err).Str("kind", kindName).Str("resource", name).Msg("Construction rejected")
	} else {
		telemetry.RecordSuccess(span)
		p.logger.Debug().Str("kind", label).Str("resource", res.Name()).Msg("Resource constructed")
	}
	p.tel.Metrics.RecordConstruction(label, result, timer.Duration())

	return res, err
}

func (p *Pipeline) construct(ctx context.Context, kindName, name string, config map[string]interface{}) (*engine.Resource, error) {
	kind, err := p.catalog.Lookup(kindName)
	if err != nil {
		return nil, err
	}

	prepared, err := p.applyPolicies(ctx, kind, name, config)
	if err != nil {
		return nil, err
	}

	res, err := engine.NewResource(kind, name, prepared)
	if err != nil {
		return nil, err
	}

	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// Prepare resolves the kind and returns the configuration after family
// policies, without instantiating a resource.
func (p *Pipeline) Prepare(ctx context.Context, kindName, name string, config map[string]interface{}) (engine.Kind, map[string]interface{}, error) {
	kind, err := p.catalog.Lookup(kindName)
	if err != nil {
		return nil, nil, err
	}
	prepared, err := p.applyPolicies(ctx, kind, name, config)
	if err != nil {
		return nil, nil, err
	}
	return kind, prepared, nil
}

func (p *Pipeline) applyPolicies(ctx context.Context, kind engine.Kind, name string, config map[string]interface{}) (map[string]interface{}, error) {
	prepared := engine.CopyConfig(config)
	family := kind.Family()
	ctx = WithResourceName(ctx, name)

	for _, policy := range p.Policies() {
		if !policy.Applies(family) {
			continue
		}

		policyCtx, span := p.tel.Tracer.StartPolicySpan(ctx, policy.Name(), kind.Name())
		err := policy.Apply(policyCtx, kind, prepared)
		if err != nil {
			telemetry.RecordError(span, err)
			span.End()

			var ee *engine.EngineError
			if errors.As(err, &ee) && ee.Code == engine.CodeFamilyPolicyViolation {
				if ee.Resource == "" {
					ee.Resource = name
				}
				p.tel.Metrics.RecordPolicyViolation(policy.Name(), string(family))
				_ = p.tel.Events.PublishPolicyViolation(name, kind.Name(), policy.Name(), ee.Message)
			}
			return nil, err
		}
		telemetry.RecordSuccess(span)
		span.End()
	}

	return prepared, nil
}

type resourceNameKey struct{}

// WithResourceName records the name of the resource under construction so
// policies that need it can read it with ResourceName.
func WithResourceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, resourceNameKey{}, strings.TrimSpace(name))
}

// ResourceName returns the name of the resource under construction, or "".
func ResourceName(ctx context.Context) string {
	name, _ := ctx.Value(resourceNameKey{}).(string)
	return name
}
