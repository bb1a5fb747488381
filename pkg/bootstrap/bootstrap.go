// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package bootstrap records diagnostics emitted before the real logging system exists.
// Entries are kept in memory, can be inspected by the caller, and are replayed into
// a logger once one is available.
package bootstrap

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Entry is a single buffered diagnostic.
type Entry struct {
	Level   hclog.Level
	Message string
	Err     error
}

// String returns the entry formatted as "[LEVEL] message".
func (e Entry) String() string {
	s := fmt.Sprintf("[%s] %s", strings.ToUpper(e.Level.String()), e.Message)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}

	return s
}

// Logger buffers diagnostics until Replay is called.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns an empty Logger.
func New() *Logger {
	return &Logger{}
}

// Trace records a message at trace level.
func (l *Logger) Trace(format string, args ...any) {
	l.Log(hclog.Trace, nil, format, args...)
}

// Warn records a message at warning level.
func (l *Logger) Warn(format string, args ...any) {
	l.Log(hclog.Warn, nil, format, args...)
}

// Error records a message at error level together with the error that caused it.
func (l *Logger) Error(err error, format string, args ...any) {
	l.Log(hclog.Error, err, format, args...)
}

// Log records a message at the given level. A nil Logger discards everything.
func (l *Logger) Log(level hclog.Level, err error, format string, args ...any) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	})
}

// Entries returns a copy of the recorded entries.
func (l *Logger) Entries() []Entry {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// Len returns the number of recorded entries.
func (l *Logger) Len() int {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Reset drops every recorded entry.
func (l *Logger) Reset() {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Replay writes every recorded entry to logger, in recording order.
// Entries are kept, so the trail stays inspectable afterwards.
func (l *Logger) Replay(logger hclog.Logger) {
	for _, entry := range l.Entries() {
		args := []any{}
		if entry.Err != nil {
			args = append(args, "error", entry.Err.Error())
		}
		logger.Log(entry.Level, entry.Message, args...)
	}
}
