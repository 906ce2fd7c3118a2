package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"ddigate/internal/domain"
	"ddigate/internal/infra/pipeline"
	"ddigate/internal/infra/upstream"
)

// Registry is the static tool catalog: name → descriptor with a resolved
// input schema. Assembled once at startup, read-only afterwards.
type Registry struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger

	mu     sync.RWMutex
	sealed bool
	tools  map[string]*entry
}

type entry struct {
	desc     domain.ToolDescriptor
	resolved *jsonschema.Resolved
}

// Deps carries everything tool handlers need.
type Deps struct {
	Pipeline *pipeline.Pipeline
	DDI      *upstream.Client
	Atcfw    *upstream.Client
	Insights *upstream.Client
	NIOSXaaS *upstream.Client
	Logger   *zap.Logger
}

// New returns an empty, unsealed registry. Build assembles the full
// catalog; New exists for wiring custom tool sets in tests.
func New(pipe *pipeline.Pipeline, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		pipeline: pipe,
		logger:   logger.Named("registry"),
		tools:    make(map[string]*entry),
	}
}

// Build assembles the full catalog.
func Build(deps Deps) (*Registry, error) {
	r := New(deps.Pipeline, deps.Logger)

	for _, register := range []func(*Registry, Deps) error{
		registerIPAMTools,
		registerDNSTools,
		registerDHCPTools,
		registerFederationTools,
		registerSecurityTools,
		registerInsightTools,
		registerVPNTools,
	} {
		if err := register(r, deps); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
	r.logger.Info("tool_catalog_built", zap.Int("tools", len(r.tools)))
	return r, nil
}

// Register adds one descriptor. Mutating tools must not declare a cache
// policy; names must be unique.
func (r *Registry) Register(desc domain.ToolDescriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if desc.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", desc.Name)
	}
	if desc.Classification == "" {
		desc.Classification = domain.ToolRead
	}
	if desc.Classification == domain.ToolMutate && desc.CachePolicy.Enabled() {
		return fmt.Errorf("tool %s: mutating tools must not declare a cache policy", desc.Name)
	}
	if desc.InputSchema == nil {
		desc.InputSchema = objectSchema(nil)
	}

	resolved, err := desc.InputSchema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("tool %s: resolve input schema: %w", desc.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("tool %s: registry is sealed", desc.Name)
	}
	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("tool %s: duplicate registration", desc.Name)
	}
	r.tools[desc.Name] = &entry{desc: desc, resolved: resolved}
	return nil
}

// List returns every descriptor sorted by name.
func (r *Registry) List() []domain.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ToolDescriptor, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Invoke validates raw arguments against the tool's schema (unknown fields
// rejected, required enforced, enums enforced, defaults applied) and
// dispatches through the resilience pipeline. Schema violations never
// reach the upstream.
func (r *Registry) Invoke(ctx context.Context, name string, rawArgs json.RawMessage) (any, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.E(domain.KindUnknownTool, name, "tool not registered", nil)
	}

	args := map[string]any{}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, domain.E(domain.KindSchemaViolation, name, "arguments must be a JSON object", err)
		}
	}

	if err := e.resolved.ApplyDefaults(&args); err != nil {
		return nil, domain.E(domain.KindSchemaViolation, name, "apply argument defaults", err)
	}
	if err := e.resolved.Validate(args); err != nil {
		return nil, domain.E(domain.KindSchemaViolation, name, err.Error(), err)
	}

	return r.pipeline.Invoke(ctx, &e.desc, args)
}
