package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownTable is returned by Lookup for tables that were never registered.
	ErrUnknownTable = errors.New("unknown table")

	// ErrSealed is returned by Register after Seal.
	ErrSealed = errors.New("registry is sealed")
)

// Registry resolves table metadata by name.
//
// Thread-safety: all methods are safe for concurrent use. The intended
// lifecycle is Register during startup, Seal, then Lookup from any goroutine.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
	suffix string
	sealed bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithShadowSuffix overrides DefaultShadowSuffix.
func WithShadowSuffix(suffix string) Option {
	return func(r *Registry) {
		if suffix != "" {
			r.suffix = suffix
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tables: make(map[string]*Table),
		suffix: DefaultShadowSuffix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates a table definition and adds a private copy of it.
// Registering the same name twice is an error.
func (r *Registry) Register(t Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register %q: %w", t.Name, ErrSealed)
	}
	if _, exists := r.tables[t.Name]; exists {
		return fmt.Errorf("register %q: table already registered", t.Name)
	}

	tbl := t.clone()
	tbl.shadowSuffix = r.suffix
	if err := tbl.Validate(); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	r.tables[tbl.Name] = tbl
	return nil
}

// MustRegister is Register for static definitions; it panics on error.
func (r *Registry) MustRegister(t Table) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Seal prevents further registrations.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Lookup returns the metadata of a registered table.
func (r *Registry) Lookup(name string) (*Table, error) {
	r.mu.RLock()
	t, ok := r.tables[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// Tables returns the registered table names in sorted order.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.tables))
	for name := range r.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ShadowSuffix returns the suffix used for shadow table names.
func (r *Registry) ShadowSuffix() string {
	return r.suffix
}
