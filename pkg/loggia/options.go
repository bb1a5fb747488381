// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package loggia

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mia-platform/loggia/pkg/envbind"
	"github.com/mia-platform/loggia/pkg/preset"
)

// PresetsEnvName is the variable holding the comma separated preset preferences.
const PresetsEnvName = "LOGGIA_PRESETS"

// DefaultPreset is used when no preset preference is given.
const DefaultPreset = "prod"

// Option customizes the construction of a configuration.
type Option func(*options)

type options struct {
	settings     map[string]string
	settingsFile string
	presets      []string
	presetsSet   bool
	registry     *preset.Registry
	builtins     []preset.Factory
	environ      map[string]string
}

// WithSettings provides variables with the same names and syntax as the LOGGIA_*
// environment variables. They override the presets and are overridden by the
// process environment.
func WithSettings(settings map[string]string) Option {
	return func(o *options) {
		if o.settings == nil {
			o.settings = make(map[string]string, len(settings))
		}
		maps.Copy(o.settings, settings)
	}
}

// WithSettingsFile reads settings from a yaml file mapping variable names to values.
// Values set with WithSettings take precedence over the file.
func WithSettingsFile(path string) Option {
	return func(o *options) {
		o.settingsFile = path
	}
}

// WithPresets sets the preset preferences, ignoring LOGGIA_PRESETS.
func WithPresets(presets ...string) Option {
	return func(o *options) {
		o.presets = append(o.presets, presets...)
		o.presetsSet = true
	}
}

// WithRegistry makes the presets of registry selectable by fully qualified name.
func WithRegistry(registry *preset.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithBuiltins replaces the builtin presets.
func WithBuiltins(factories ...preset.Factory) Option {
	return func(o *options) {
		o.builtins = factories
	}
}

// WithEnviron replaces the process environment.
func WithEnviron(environ map[string]string) Option {
	return func(o *options) {
		o.environ = environ
	}
}

type presetsEnv struct {
	Presets []string `env:"LOGGIA_PRESETS" envSeparator:","`
}

// loadSettings merges the settings file with the explicit settings.
func (o *options) loadSettings() (map[string]string, error) {
	settings := make(map[string]string)
	if o.settingsFile != "" {
		data, err := os.ReadFile(o.settingsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}

		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSettings, o.settingsFile, err)
		}

		for name, value := range raw {
			settings[name] = settingValue(value)
		}
	}

	maps.Copy(settings, o.settings)
	return settings, nil
}

// environment returns the replaced environment or the process one.
func (o *options) environment() map[string]string {
	if o.environ != nil {
		return o.environ
	}

	return envbind.Environ()
}

// preferences returns the preset preferences: the explicit ones, else LOGGIA_PRESETS
// from the settings, else LOGGIA_PRESETS from the environment, else DefaultPreset.
func (o *options) preferences(settings, environ map[string]string) ([]string, error) {
	if o.presetsSet {
		if presets := cleanPresets(o.presets); len(presets) > 0 {
			return presets, nil
		}
		return []string{DefaultPreset}, nil
	}

	for _, source := range []map[string]string{settings, environ} {
		var parsed presetsEnv
		if err := env.ParseWithOptions(&parsed, env.Options{Environment: source}); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}

		if presets := cleanPresets(parsed.Presets); len(presets) > 0 {
			return presets, nil
		}
	}

	return []string{DefaultPreset}, nil
}

func cleanPresets(presets []string) []string {
	cleaned := make([]string, 0, len(presets))
	for _, p := range presets {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}

	return cleaned
}

func settingValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}
