// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	logger := NewLogger(buffer)

	logger.SetLevel(TRACE)
	namedLogger := logger.WithName("resolve")
	namedLogger.Info("new log line for INFO level")
	logger.Trace("new log line for TRACE level")
	logger.SetLevel(DEBUG)
	logger.Debug("new log line for DEBUG level")
	namedLogger.Warn("new log line for WARN level")

	logger.SetLevel(ERROR)
	namedLogger.Warn("silenced log line for WARN level")
	logger.SetLevel(WARN)
	logger.Error("new log line for ERROR level")
	logger.Debug("silenced log line for TRACE level")

	logger.SetLevel(999) // invalid level; should default to INFO
	logger.Info("new log line for INFO level after invalid level set")
	namedLogger.Debug("silenced log line for DEBUG level after invalid level set")

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	require.Len(t, lines, 6)

	record := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "resolve", record["@module"])
}

func TestLevelStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "TRACE", TRACE.String())
	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "INFO", INFO.String())
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "ERROR", ERROR.String())
	assert.Equal(t, "Level(999)", Level(999).String())
	assert.Equal(t, "Level(-1)", Level(-1).String())
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	testCases := map[string]Level{
		"TRACE":    TRACE,
		"debug":    DEBUG,
		"Info":     INFO,
		"WARN":     WARN,
		"warning":  WARN,
		"ERROR":    ERROR,
		"CRITICAL": ERROR,
		" trace ":  TRACE,
		"INVALID":  INFO,
		"":         INFO,
	}

	for input, expected := range testCases {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, expected, LevelFromString(input))
		})
	}
}

func TestFromHclog(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	base := hclog.New(&hclog.LoggerOptions{Output: buffer, Level: hclog.Trace})

	logger := FromHclog(base).WithName("serve")
	logger.Debug("listening", "port", 3000)
	assert.Contains(t, buffer.String(), "serve: listening: port=3000")
	assert.Equal(t, "serve", logger.Hclog().Name())

	assert.Equal(t, nullLogger, FromHclog(nil))
}
