package checker

import (
	"fmt"
	"path"
	"sync"
)

// Registry manages the collection of available use case checkers.
// Registration order is preserved; checkers execute and report in the
// order they were registered.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]Checker
	checkers []Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]Checker),
	}
}

// Register adds a checker. Returns an error if a checker with the same ID
// already exists.
func (r *Registry) Register(c Checker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[c.ID()]; exists {
		return fmt.Errorf("checker with ID %s already registered", c.ID())
	}

	r.byID[c.ID()] = c
	r.checkers = append(r.checkers, c)

	return nil
}

// MustRegister registers a checker and panics if registration fails. Use
// during command construction where failure is unrecoverable.
func (r *Registry) MustRegister(c Checker) {
	if err := r.Register(c); err != nil {
		panic(fmt.Sprintf("failed to register checker %s: %v", c.ID(), err))
	}
}

// Get looks up a checker by ID.
func (r *Registry) Get(id string) (Checker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]

	return c, ok
}

// ListAll returns all registered checkers in registration order.
func (r *Registry) ListAll() []Checker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Checker, len(r.checkers))
	copy(out, r.checkers)

	return out
}

// ListByPatterns returns checkers matching any of the selector patterns,
// in registration order. Patterns can be "*", an exact ID, or a glob such
// as "power.*".
func (r *Registry) ListByPatterns(patterns []string) ([]Checker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		matched, err := matchesAny(c.ID(), patterns)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, c)
		}
	}

	return out, nil
}

func matchesAny(id string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		if pattern == "*" || pattern == id {
			return true, nil
		}
		matched, err := path.Match(pattern, id)
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}

	return false, nil
}

// ValidatePatterns validates checker selector patterns ahead of execution.
func ValidatePatterns(patterns []string) error {
	if len(patterns) == 0 {
		return fmt.Errorf("at least one checker selector is required")
	}
	for _, pattern := range patterns {
		if pattern == "" {
			return fmt.Errorf("checker selector cannot be empty")
		}
		if _, err := path.Match(pattern, "power.control"); err != nil {
			return fmt.Errorf("invalid checker selector pattern %q: %w", pattern, err)
		}
	}

	return nil
}
