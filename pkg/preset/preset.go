// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package preset

import (
	"reflect"
	"strings"

	"github.com/mia-platform/loggia/internal/strutil"
	"github.com/mia-platform/loggia/pkg/conf"
)

// Preset mutates a logging configuration.
type Preset interface {
	Apply(c *conf.Configuration) error
}

// Slotted is implemented by presets that are mutually exclusive with every other
// preset sharing at least one of their slots.
type Slotted interface {
	Slots() []string
}

// Dependent is implemented by presets that are only applied when their
// requirement is satisfied by the other selected presets.
type Dependent interface {
	Requirements() Requirement
}

// Named is implemented by presets that want a name different from their type name.
type Named interface {
	Name() string
}

// EnvConfigurable is implemented by presets that read their own settings from
// environment variables before being applied.
type EnvConfigurable interface {
	ApplyEnv(env map[string]string) error
}

// Factory returns a fresh preset instance.
type Factory func() Preset

// NameOf returns the name of p: the value of Name if p is Named, else its type name.
func NameOf(p Preset) string {
	if named, ok := p.(Named); ok {
		return named.Name()
	}

	t := reflect.TypeOf(p)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}

	return t.Name()
}

// PreferenceKey returns the key used to select p, the snake cased name of p.
func PreferenceKey(p Preset) string {
	return strutil.ToSnakeCase(NameOf(p))
}

// SlotsOf returns the slots of p, or nil if p is not Slotted.
func SlotsOf(p Preset) []string {
	if slotted, ok := p.(Slotted); ok {
		return slotted.Slots()
	}

	return nil
}

// RequirementsOf returns the requirement of p, or nil if p is not Dependent.
func RequirementsOf(p Preset) Requirement {
	if dependent, ok := p.(Dependent); ok {
		return dependent.Requirements()
	}

	return nil
}

// Matches reports whether ref designates p, by name or by preference key, ignoring case.
func Matches(p Preset, ref string) bool {
	ref = strings.TrimSpace(ref)
	return strings.EqualFold(ref, NameOf(p)) || strings.EqualFold(ref, PreferenceKey(p))
}
