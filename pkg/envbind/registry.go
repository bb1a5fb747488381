// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package envbind

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/loggia/internal/strutil"
)

var (
	// ErrDuplicateBinding is returned when an environment variable name is bound more than once.
	ErrDuplicateBinding = errors.New("cannot use the same environment binding twice")
	// ErrInvalidBinding is returned when a binding cannot be registered.
	ErrInvalidBinding = errors.New("invalid environment binding")
)

// claimedNames holds every variable name bound by any registry in the process.
var claimedNames = struct {
	sync.Mutex
	names map[string]struct{}
}{names: make(map[string]struct{})}

// Setter applies one parsed argument tuple to target.
type Setter[T any] func(target T, args Args) error

// Binding ties an environment variable name to a parser and a setter.
type Binding[T any] struct {
	Name   string
	Parser Parser
	Setter Setter[T]
}

// Registry is the ordered table of bindings for targets of type T.
type Registry[T any] struct {
	bindings     []Binding[T]
	onParseError func(target T, name string, err error)
}

// NewRegistry returns an empty Registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Register binds name to parser and setter. An empty name is derived from the setter
// function name, and a nil parser means Default.
func (r *Registry[T]) Register(name string, parser Parser, setter Setter[T]) error {
	if setter == nil {
		return fmt.Errorf("%w: %q has no setter", ErrInvalidBinding, name)
	}
	if name == "" {
		name = DeriveName(setter)
	}
	if name == "" {
		return fmt.Errorf("%w: cannot derive a variable name", ErrInvalidBinding)
	}
	if parser == nil {
		parser = Default
	}

	claimedNames.Lock()
	defer claimedNames.Unlock()
	if _, found := claimedNames.names[name]; found {
		return fmt.Errorf("%w: %s", ErrDuplicateBinding, name)
	}
	claimedNames.names[name] = struct{}{}

	r.bindings = append(r.bindings, Binding[T]{Name: name, Parser: parser, Setter: setter})
	return nil
}

// MustRegister is like Register but panics on error. It is meant for package level
// binding tables, where a duplicate name must stop the program before any target is built.
func (r *Registry[T]) MustRegister(name string, parser Parser, setter Setter[T]) *Registry[T] {
	if err := r.Register(name, parser, setter); err != nil {
		panic(err)
	}

	return r
}

// OnParseError makes Apply hand the values rejected by a parser to fn and move on
// to the next binding, leaving target untouched for that variable. Setter errors
// still stop Apply.
func (r *Registry[T]) OnParseError(fn func(target T, name string, err error)) *Registry[T] {
	r.onParseError = fn
	return r
}

// Names returns the bound variable names in registration order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.bindings))
	for _, binding := range r.bindings {
		names = append(names, binding.Name)
	}

	return names
}

// Apply looks up every bound variable in env and calls its setter on target once per
// parsed argument tuple. Variables missing from env are skipped. A nil env means the
// process environment.
func (r *Registry[T]) Apply(target T, env map[string]string) error {
	if env == nil {
		env = Environ()
	}

	for _, binding := range r.bindings {
		value, found := env[binding.Name]
		if !found {
			continue
		}

		parsed, err := binding.Parser(value)
		if err != nil && r.onParseError != nil {
			r.onParseError(target, binding.Name, err)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", binding.Name, err)
		}

		for _, args := range parsed {
			if err := binding.Setter(target, args); err != nil {
				return fmt.Errorf("%s: %w", binding.Name, err)
			}
		}
	}

	return nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	return env.ToMap(os.Environ())
}

// DeriveName returns the upper snake case name of the function fn, so that the
// method expression (*Dev).setAddCaller becomes SET_ADD_CALLER.
func DeriveName(fn any) string {
	value := reflect.ValueOf(fn)
	if value.Kind() != reflect.Func || value.IsNil() {
		return ""
	}

	info := runtime.FuncForPC(value.Pointer())
	if info == nil {
		return ""
	}

	name := strutil.LastSegment(info.Name(), ".")
	name = strings.TrimSuffix(name, "-fm")
	return strings.ToUpper(strutil.ToSnakeCase(name))
}
