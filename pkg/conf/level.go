// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package conf

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ErrInvalidLevel is returned when a string does not name a known log level.
var ErrInvalidLevel = errors.New("invalid log level")

// Level is a log level name as stored in the Configuration.
type Level string

// Known levels, from the most to the least verbose.
const (
	LevelTrace    Level = "TRACE"
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// TraceLevel is the zap level used for TRACE, one step below zap's debug level.
const TraceLevel = zapcore.DebugLevel - 1

var levelAliases = map[string]Level{
	"TRACE":    LevelTrace,
	"DEBUG":    LevelDebug,
	"INFO":     LevelInfo,
	"WARN":     LevelWarning,
	"WARNING":  LevelWarning,
	"ERROR":    LevelError,
	"CRITICAL": LevelCritical,
	"FATAL":    LevelCritical,
}

var zapLevels = map[Level]zapcore.Level{
	LevelTrace:    TraceLevel,
	LevelDebug:    zapcore.DebugLevel,
	LevelInfo:     zapcore.InfoLevel,
	LevelWarning:  zapcore.WarnLevel,
	LevelError:    zapcore.ErrorLevel,
	LevelCritical: zapcore.DPanicLevel,
}

// ParseLevel converts a case-insensitive level name into a Level.
func ParseLevel(s string) (Level, error) {
	if level, ok := levelAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return level, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// ZapLevel returns the zap level matching l. Unknown levels map to info.
func (l Level) ZapLevel() zapcore.Level {
	if level, ok := zapLevels[l]; ok {
		return level
	}

	return zapcore.InfoLevel
}

// LevelName returns the Level name for a zap level, as printed by the loggia encoders.
func LevelName(level zapcore.Level) string {
	switch {
	case level <= TraceLevel:
		return string(LevelTrace)
	case level == zapcore.DebugLevel:
		return string(LevelDebug)
	case level == zapcore.InfoLevel:
		return string(LevelInfo)
	case level == zapcore.WarnLevel:
		return string(LevelWarning)
	case level == zapcore.ErrorLevel:
		return string(LevelError)
	default:
		return string(LevelCritical)
	}
}
