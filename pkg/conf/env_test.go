// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package conf

import (
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/loggia/pkg/envbind"
)

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	conf := New()
	err := conf.ApplyEnv(map[string]string{
		"LOGGIA_LEVEL":            "CRITICAL",
		"LOGGIA_FORCE_LEVEL":      "numba:WARNING,numpy:DEBUG",
		"LOGGIA_SUB_LEVEL":        "alpha:WARNING,beta:DEBUG",
		"LOGGIA_SUB_PROPAGATION":  "fiber.access:0,grpc:yes",
		"LOGGIA_EXTRA_FILTERS":    "loggia.DropFields,fiber.access:loggia.ExtraAllow",
		"LOGGIA_FORMATTER":        "loggia.TextFormatter",
		"LOGGIA_OUTPUT":           "stdout",
		"LOGGIA_ADD_CALLER":       "on",
		"LOGGIA_CAPTURE_STDLOG":   "true",
		"LOGGIA_CAPTURE_LOGRUS":   "disabled",
		"LOGGIA_SET_PANIC_HOOK":   "ARMED",
		"LOGGIA_UNKNOWN_VARIABLE": "ignored",
	})
	require.NoError(t, err)

	// "on" is not a truthy string
	assert.False(t, conf.AddCaller)
	var reported bool
	for _, entry := range conf.Diagnostics.Entries() {
		if strings.Contains(entry.Message, "LOGGIA_ADD_CALLER") {
			reported = true
			assert.Equal(t, hclog.Error, entry.Level)
			require.ErrorIs(t, entry.Err, envbind.ErrInvalidBoolean)
		}
	}
	assert.True(t, reported, "the rejected boolean is recorded")

	// the other bindings are still applied
	assert.Equal(t, LevelCritical, conf.GeneralLevel())
	assert.Equal(t, "TextFormatter", conf.Handlers[DefaultHandler].Formatter)
	assert.Equal(t, "stdout", conf.Handlers[DefaultHandler].Output)
	assert.True(t, conf.CaptureStdlog)
	assert.True(t, conf.PanicHook)
}

func TestApplyEnvLayers(t *testing.T) {
	t.Parallel()

	conf := New()
	require.NoError(t, conf.ApplyEnv(map[string]string{
		"LOGGIA_LEVEL":           "CRITICAL",
		"LOGGIA_FORCE_LEVEL":     "numba:WARNING,numpy:DEBUG",
		"LOGGIA_SUB_LEVEL":       "alpha:WARNING,beta:DEBUG",
		"LOGGIA_SUB_PROPAGATION": "fiber.access:0,grpc:yes",
		"LOGGIA_EXTRA_FILTERS":   "loggia.DropFields,fiber.access:loggia.ExtraAllow",
		"LOGGIA_CAPTURE_STDLOG":  "true",
		"LOGGIA_CAPTURE_LOGRUS":  "disabled",
		"LOGGIA_SET_PANIC_HOOK":  "ARMED",
	}))

	assert.Equal(t, LevelCritical, conf.GeneralLevel())
	assert.Equal(t, LevelWarning, conf.Loggers["numba"].Level)
	assert.Equal(t, LevelDebug, conf.Loggers["numpy"].Level)
	assert.Equal(t, LevelWarning, conf.Loggers["alpha"].Level)
	assert.Equal(t, LevelDebug, conf.Loggers["beta"].Level)
	assert.False(t, conf.Loggers["fiber.access"].Propagates())
	assert.True(t, conf.Loggers["grpc"].Propagates())
	assert.Equal(t, []string{"DropFields"}, conf.Loggers[RootLogger].Filters)
	assert.Equal(t, []string{"ExtraAllow"}, conf.Loggers["fiber.access"].Filters)
	assert.True(t, conf.CaptureStdlog)
	assert.False(t, conf.CaptureLogrus)
	assert.True(t, conf.PanicHook)
}

func TestApplyEnvInvalidLevel(t *testing.T) {
	t.Parallel()

	conf := New()
	err := conf.ApplyEnv(map[string]string{"LOGGIA_SUB_LEVEL": "alpha:LOUD"})
	require.ErrorIs(t, err, ErrInvalidLevel)

	err = conf.ApplyEnv(map[string]string{"LOGGIA_SUB_LEVEL": "alpha"})
	require.ErrorIs(t, err, envbind.ErrArity)
}

func TestEnvNames(t *testing.T) {
	t.Parallel()

	names := EnvNames()
	assert.Equal(t, "LOGGIA_LEVEL", names[0])
	assert.Contains(t, names, "LOGGIA_SUB_LEVEL")
	assert.Contains(t, names, "LOGGIA_SET_PANIC_HOOK")
	for _, name := range names {
		assert.Regexp(t, "^LOGGIA_[A-Z_]+$", name)
	}
}

func TestBindingsCannotBeRegisteredTwice(t *testing.T) {
	t.Parallel()

	err := envbind.NewRegistry[*Configuration]().Register("LOGGIA_LEVEL", envbind.Comma, setGeneralLevel)
	require.ErrorIs(t, err, envbind.ErrDuplicateBinding)
}
