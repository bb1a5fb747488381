// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package preset

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrDuplicatePreset is returned when a fully qualified name is registered twice.
	ErrDuplicatePreset = errors.New("preset already registered")
	// ErrInvalidPreset is returned when a preset cannot be registered.
	ErrInvalidPreset = errors.New("invalid preset")
)

// Registry holds presets supplied by the application, keyed by a fully qualified
// name such as "mycompany.logging.Audit". A Registry is passed explicitly to the
// Resolver, there is no process wide registry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	names     []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds factory under fqn. Names are compared ignoring case.
func (r *Registry) Register(fqn string, factory Factory) error {
	fqn = strings.TrimSpace(fqn)
	if fqn == "" || factory == nil {
		return fmt.Errorf("%w: %q needs a name and a factory", ErrInvalidPreset, fqn)
	}

	key := strings.ToLower(fqn)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[string]Factory)
	}
	if _, found := r.factories[key]; found {
		return fmt.Errorf("%w: %s", ErrDuplicatePreset, fqn)
	}

	r.factories[key] = factory
	r.names = append(r.names, fqn)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(fqn string, factory Factory) *Registry {
	if err := r.Register(fqn, factory); err != nil {
		panic(err)
	}

	return r
}

// Names returns the registered fully qualified names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Clone(r.names)
	slices.Sort(names)
	return names
}

// Lookup returns a fresh instance of the preset designated by token, either its
// fully qualified name or the name or preference key of the preset it builds.
func (r *Registry) Lookup(token string) (Preset, bool) {
	if r == nil {
		return nil, false
	}

	token = strings.ToLower(strings.TrimSpace(token))

	r.mu.RLock()
	defer r.mu.RUnlock()
	if factory, found := r.factories[token]; found {
		return factory(), true
	}

	for _, fqn := range r.names {
		if p := r.factories[strings.ToLower(fqn)](); Matches(p, token) {
			return p, true
		}
	}

	return nil, false
}
