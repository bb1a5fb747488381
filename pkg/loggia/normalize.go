// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package loggia

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	cookieKey = "cookie"
	errorKey  = "error"

	// StrippedCookie replaces the value of any cookie field at emission.
	StrippedCookie = "STRIPPED_AT_EMISSION"
)

// normalizingEncoder strips cookies and, when errors is set, rewrites the
// error field of a record into the Datadog error.message, error.kind and
// error.stack attributes.
type normalizingEncoder struct {
	zapcore.Encoder
	errors bool
}

func (e normalizingEncoder) Clone() zapcore.Encoder {
	return normalizingEncoder{Encoder: e.Encoder.Clone(), errors: e.errors}
}

// AddString is reached by fields bound with Logger.With.
func (e normalizingEncoder) AddString(key, value string) {
	switch {
	case key == cookieKey:
		value = StrippedCookie
	case e.errors && key == errorKey:
		key = "error.message"
	}
	e.Encoder.AddString(key, value)
}

func (e normalizingEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	normalized := make([]zapcore.Field, 0, len(fields)+2)
	for _, field := range fields {
		switch {
		case field.Key == cookieKey:
			normalized = append(normalized, zap.String(cookieKey, StrippedCookie))
		case e.errors && field.Key == errorKey && field.Type == zapcore.ErrorType:
			err, ok := field.Interface.(error)
			if !ok || err == nil {
				normalized = append(normalized, field)
				continue
			}

			message := err.Error()
			normalized = append(normalized,
				zap.String("error.message", message),
				zap.String("error.kind", fmt.Sprintf("%T", err)),
			)

			// errors carrying their own trace print it with %+v
			if verbose := fmt.Sprintf("%+v", err); verbose != message {
				normalized = append(normalized, zap.String("error.stack", verbose))
				entry.Stack = ""
			}
		default:
			normalized = append(normalized, field)
		}
	}

	return e.Encoder.EncodeEntry(entry, normalized)
}
