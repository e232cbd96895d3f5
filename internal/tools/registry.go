package tools

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	// ErrNilTool indicates Register was called with a nil tool.
	ErrNilTool = errors.New("tool is nil")

	// ErrEmptyName indicates a tool with an empty name.
	ErrEmptyName = errors.New("tool name is empty")

	// ErrDuplicateTool indicates a tool name registered twice.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrUnknownTool indicates a lookup for a name that was never registered.
	ErrUnknownTool = errors.New("unknown tool")
)

// Registration is a registered tool plus its resolved parameter schema.
// The schema is resolved once at registration so per-invocation validation
// is a pure lookup-and-check.
type Registration struct {
	Tool   Tool
	Schema *jsonschema.Resolved // nil when the tool declares no parameters
}

// Registry maps tool identity to implementation. It is populated by explicit
// Register calls and is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Registration
	names []string // registration order, for stable listings
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Registration)}
}

// Register adds a tool. The tool's schema, if any, is resolved here;
// a schema that fails to resolve is a programming error in the adapter and
// rejects the registration.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return ErrNilTool
	}
	name := t.Name()
	if name == "" {
		return ErrEmptyName
	}

	var resolved *jsonschema.Resolved
	if s := t.Schema(); s != nil {
		var err error
		resolved, err = s.Resolve(nil)
		if err != nil {
			return fmt.Errorf("resolving schema for %q: %w", name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, name)
	}
	r.tools[name] = &Registration{Tool: t, Schema: resolved}
	r.names = append(r.names, name)
	return nil
}

// Get returns the registration for name.
func (r *Registry) Get(name string) (*Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return reg, nil
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
