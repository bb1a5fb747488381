// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogLevelSetting(t *testing.T) {
	t.Parallel()

	conf := New()
	require.NoError(t, conf.SetLoggerLevel("numba", "WARNING"))
	require.NoError(t, conf.SetGeneralLevel("critical"))

	assert.Equal(t, LevelCritical, conf.GeneralLevel())
	assert.Equal(t, LevelWarning, conf.Loggers["numba"].Level)
	assert.Equal(t, []string{DefaultHandler}, conf.Loggers["numba"].Handlers)

	// every configuration starts from a fresh copy of the defaults
	assert.NotContains(t, New().Loggers, "numba")
	assert.Equal(t, LevelInfo, New().GeneralLevel())
}

func TestInvalidLevelIsCallerResponsibility(t *testing.T) {
	t.Parallel()

	conf := New()
	err := conf.SetGeneralLevel("LOUD")
	require.ErrorIs(t, err, ErrInvalidLevel)
	assert.Equal(t, LevelInfo, conf.GeneralLevel())

	err = conf.SetLoggerLevel("grpc", "")
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		input    string
		expected Level
		zap      zapcore.Level
	}{
		"trace":          {input: "trace", expected: LevelTrace, zap: TraceLevel},
		"debug":          {input: "DEBUG", expected: LevelDebug, zap: zapcore.DebugLevel},
		"info":           {input: " Info ", expected: LevelInfo, zap: zapcore.InfoLevel},
		"warn alias":     {input: "warn", expected: LevelWarning, zap: zapcore.WarnLevel},
		"warning":        {input: "WARNING", expected: LevelWarning, zap: zapcore.WarnLevel},
		"error":          {input: "error", expected: LevelError, zap: zapcore.ErrorLevel},
		"fatal alias":    {input: "FATAL", expected: LevelCritical, zap: zapcore.DPanicLevel},
		"critical level": {input: "Critical", expected: LevelCritical, zap: zapcore.DPanicLevel},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			level, err := ParseLevel(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, level)
			assert.Equal(t, tc.zap, level.ZapLevel())
			assert.Equal(t, string(tc.expected), LevelName(tc.zap))
		})
	}

	assert.Equal(t, zapcore.InfoLevel, Level("unknown").ZapLevel())
	assert.Equal(t, "CRITICAL", LevelName(zapcore.FatalLevel))
}

func TestLoggerPropagation(t *testing.T) {
	t.Parallel()

	conf := New()
	assert.True(t, conf.Loggers[RootLogger].Propagates())

	conf.SetLoggerPropagation("fiber.access", false)
	assert.False(t, conf.Loggers["fiber.access"].Propagates())

	conf.SetLoggerPropagation("fiber.access", true)
	assert.True(t, conf.Loggers["fiber.access"].Propagates())
}

func TestComponentRegistration(t *testing.T) {
	t.Parallel()

	conf := New()
	allow := Class("ExtraAllow", map[string]any{"allow": []string{"toto"}})
	assert.Equal(t, "ExtraAllow", allow.ID())

	require.NoError(t, conf.AddLogFilter("test", allow))
	require.NoError(t, conf.AddLogFilter("test", allow))
	require.NoError(t, conf.AddDefaultHandlerFilter(Component{Class: "loggia.DropFields"}))

	assert.Equal(t, []string{"ExtraAllow"}, conf.Loggers["test"].Filters)
	assert.Equal(t, []string{"DropFields"}, conf.Handlers[DefaultHandler].Filters)
	assert.Equal(t, allow, conf.Filters["ExtraAllow"])

	err := conf.AddLogFilter("other", Component{Class: "myapp.ExtraAllow"})
	require.ErrorIs(t, err, ErrComponentConflict)
	assert.Contains(t, err.Error(), "myapp.ExtraAllow conflicts with loggia.ExtraAllow")

	require.NoError(t, conf.SetDefaultFormatter(Class("PrettyFormatter", nil)))
	assert.Equal(t, "PrettyFormatter", conf.Handlers[DefaultHandler].Formatter)

	err = conf.SetDefaultFormatter(Component{Class: "other.PrettyFormatter"})
	require.ErrorIs(t, err, ErrComponentConflict)

	err = conf.SetDefaultFormatter(Component{Class: "loggia."})
	require.ErrorIs(t, err, ErrComponentConflict)
}

func TestZeroConfigurationIsUsable(t *testing.T) {
	t.Parallel()

	conf := &Configuration{}
	require.NoError(t, conf.SetLoggerLevel("grpc", "INFO"))
	require.NoError(t, conf.SetDefaultFormatter(Class("JSONFormatter", nil)))
	require.NoError(t, conf.AddDefaultHandlerFilter(Class("DropFields", nil)))
	conf.SetHandlerOutput("stdout")

	assert.Equal(t, "stdout", conf.Handlers[DefaultHandler].Output)
	assert.Equal(t, []string{"grpc"}, conf.LoggerNames())
}

func TestToggles(t *testing.T) {
	t.Parallel()

	conf := New()
	assert.True(t, conf.CaptureHclog)
	assert.True(t, conf.CaptureLogrus)
	assert.False(t, conf.CaptureStdlog)
	assert.False(t, conf.PanicHook)

	conf.SetAddCaller(true)
	conf.SetCaptureStdlog(true)
	conf.SetCaptureHclog(false)
	conf.SetCaptureLogrus(false)
	conf.SetDisallowLogrusReconfig(false)
	conf.SetPanicHook(true)

	assert.True(t, conf.AddCaller)
	assert.True(t, conf.CaptureStdlog)
	assert.False(t, conf.CaptureHclog)
	assert.False(t, conf.CaptureLogrus)
	assert.False(t, conf.DisallowLogrusReconfig)
	assert.True(t, conf.PanicHook)
}
