package domain

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// Classification separates read-only tools from mutations. Only read tools
// may declare a TTL cache policy; mutations always bypass the cache.
type Classification string

const (
	ToolRead   Classification = "READ"
	ToolMutate Classification = "MUTATE"
)

// CachePolicy is either disabled or TTL-based. A zero TTL on an enabled
// policy means the configured default TTL applies.
type CachePolicy struct {
	Cacheable bool
	TTL       time.Duration
}

// CacheNone returns the disabled cache policy.
func CacheNone() CachePolicy { return CachePolicy{} }

// CacheTTL returns a TTL cache policy with an explicit duration.
func CacheTTL(ttl time.Duration) CachePolicy { return CachePolicy{Cacheable: true, TTL: ttl} }

// CacheDefaultTTL returns a TTL cache policy that takes its duration from
// configuration.
func CacheDefaultTTL() CachePolicy { return CachePolicy{Cacheable: true} }

// Enabled reports whether responses may be served from cache.
func (p CachePolicy) Enabled() bool { return p.Cacheable }

// Handler executes one tool call. Arguments arrive validated against the
// descriptor's input schema with defaults applied. The returned value is
// JSON-encoded into the result frame.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// ToolDescriptor binds a tool name to its schema, handler and policies.
// Descriptors are immutable after registration.
type ToolDescriptor struct {
	Name           string
	Description    string
	InputSchema    *jsonschema.Schema
	Handler        Handler
	CachePolicy    CachePolicy
	Classification Classification
	// Service names the upstream breaker domain this tool calls into.
	Service string
	// Timeout overrides the gateway default per-call deadline when > 0.
	Timeout time.Duration
}
