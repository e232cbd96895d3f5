package tools

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is the contract every adapter implements.
// Tools describe themselves (name, description, parameter schema), generate
// synthetic results for mock mode, and perform their actual work in Execute.
//
// Execute receives parameters that have already passed schema validation.
// It may block for the duration of an external call; cancellation and
// timeouts are its own responsibility via ctx. Errors returned from Execute
// are classified by the pipeline and never reach callers raw.
type Tool interface {
	// Name returns the unique identifier of the tool.
	Name() string

	// Description returns a description of the tool's functionality.
	Description() string

	// Schema returns the declared parameter constraints (types, ranges,
	// length bounds, enumerations). A nil schema means the tool takes no
	// parameters.
	Schema() *jsonschema.Schema

	// MockResult returns a synthetic result for mock mode. It must not
	// perform external calls.
	MockResult(p Params) any

	// Execute performs the tool's work and returns its output.
	Execute(ctx context.Context, p Params) (any, error)
}

// CacheSpec declares how a cacheable tool's results are keyed and how long
// they stay fresh.
//
// Fields is an explicit allow-list of parameter names: only these fields
// participate in the cache key, so identical requests differing in
// display-only fields still share an entry. TTL is tool-specific - short for
// volatile data (prices), long for stable reference data.
type CacheSpec struct {
	Fields []string
	TTL    time.Duration
}

// Cacheable is implemented by tools whose results may be cached.
// Tools that do not implement it skip the cache entirely.
type Cacheable interface {
	CacheSpec() CacheSpec
}

// RateSpec declares a tool's admission-control scope and per-window limit.
// A zero Scope defaults to the tool name; a zero Limit defaults to the
// pipeline-wide limit.
type RateSpec struct {
	Scope string
	Limit int
}

// RateLimited is implemented by tools that override the default admission
// limit. Distinct scopes are independent windows.
type RateLimited interface {
	RateSpec() RateSpec
}

// Validator is implemented by tools with parameter rules the schema cannot
// express (cross-field constraints, credential presence). It runs after
// schema validation and before any side effect.
type Validator interface {
	ValidateParams(p Params) error
}
