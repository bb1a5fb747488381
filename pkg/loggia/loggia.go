// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package loggia

import (
	"errors"
	"fmt"

	"github.com/mia-platform/loggia/pkg/bootstrap"
	"github.com/mia-platform/loggia/pkg/conf"
	"github.com/mia-platform/loggia/pkg/preset"
	"github.com/mia-platform/loggia/pkg/preset/builtin"
)

var (
	// ErrInvalidSettings is returned when the settings cannot be read.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrPresetFailed is returned when a preset fails to configure itself or the configuration.
	ErrPresetFailed = errors.New("preset failed")
	// ErrInitialize is returned when a configuration cannot be turned into a running sink.
	ErrInitialize = errors.New("cannot initialize logging")
)

// NewConfiguration builds a configuration from the defaults, the resolved presets,
// the settings and the process environment, in this order.
func NewConfiguration(opts ...Option) (*conf.Configuration, error) {
	c := conf.New()
	s, err := prepare(c.Diagnostics, opts)
	if err != nil {
		return nil, err
	}

	for _, p := range s.resolution.Resolved {
		if err := applyPreset(c, p, s.settings, s.environ); err != nil {
			return nil, err
		}
	}

	if err := c.ApplyEnv(s.settings); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := c.ApplyEnv(s.environ); err != nil {
		return nil, err
	}

	return c, nil
}

// Resolve runs only the preset resolution step of NewConfiguration, reporting on diagnostics.
func Resolve(diagnostics *bootstrap.Logger, opts ...Option) (*preset.Resolution, error) {
	s, err := prepare(diagnostics, opts)
	if err != nil {
		return nil, err
	}
	return s.resolution, nil
}

type sources struct {
	settings   map[string]string
	environ    map[string]string
	resolution *preset.Resolution
}

func prepare(diagnostics *bootstrap.Logger, opts []Option) (*sources, error) {
	o := &options{builtins: builtin.All()}
	for _, opt := range opts {
		opt(o)
	}

	settings, err := o.loadSettings()
	if err != nil {
		return nil, err
	}
	environ := o.environment()

	preferences, err := o.preferences(settings, environ)
	if err != nil {
		return nil, err
	}

	resolver := preset.Resolver{Builtins: o.builtins, Registry: o.registry, Diagnostics: diagnostics}
	resolution := resolver.Resolve(preferences)
	diagnostics.Trace("resolved presets: %v", resolution.Keys())

	return &sources{settings: settings, environ: environ, resolution: resolution}, nil
}

// Setup builds a configuration and initializes it.
func Setup(opts ...Option) (*Runtime, error) {
	c, err := NewConfiguration(opts...)
	if err != nil {
		return nil, err
	}

	return Initialize(c)
}

func applyPreset(c *conf.Configuration, p preset.Preset, settings, environ map[string]string) error {
	key := preset.PreferenceKey(p)
	if configurable, ok := p.(preset.EnvConfigurable); ok {
		for _, env := range []map[string]string{settings, environ} {
			if err := configurable.ApplyEnv(env); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrPresetFailed, key, err)
			}
		}
	}

	if err := p.Apply(c); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPresetFailed, key, err)
	}

	return nil
}
