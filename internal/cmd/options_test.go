// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/loggia/internal/server"
	"github.com/mia-platform/loggia/internal/server/fake"
	"github.com/mia-platform/loggia/pkg/loggia"
)

// writeServeSettings returns a settings file sending records to a temporary file
// with the process wide captures disabled.
func writeServeSettings(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	output := filepath.Join(dir, "records.log")
	settings := filepath.Join(dir, "settings.yaml")
	content := "LOGGIA_OUTPUT: " + output + "\n" +
		"LOGGIA_CAPTURE_HCLOG: no\n" +
		"LOGGIA_CAPTURE_LOGRUS: no\n" +
		"LOGGIA_CAPTURE_STDLOG: no\n"
	require.NoError(t, os.WriteFile(settings, []byte(content), 0o600))

	return settings, output
}

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		options       *options
		expectedError error
	}{
		"no restriction": {
			options: &options{output: "anything"},
		},
		"known output": {
			options: &options{output: outputJSON, outputs: []string{outputYAML, outputJSON}},
		},
		"unknown output": {
			options:       &options{output: outputText, outputs: []string{outputYAML, outputJSON}},
			expectedError: errInvalidOutput,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, test.options.validate(), test.expectedError)
		})
	}
}

func TestExecuteServe(t *testing.T) {
	t.Parallel()

	settings, output := writeServeSettings(t)
	levelFile := filepath.Join(filepath.Dir(settings), "levels.yaml")
	require.NoError(t, os.WriteFile(levelFile, []byte("log_level: DEBUG\n"), 0o600))

	srv := fake.NewFakeServer(t)
	opts := &options{
		presets:      []string{"prod"},
		presetsSet:   true,
		settingsFile: settings,
		levelFile:    levelFile,
		serverGetter: func(*loggia.Runtime) (server.Server, error) { return srv, nil },
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- opts.executeServe(ctx) }()

	select {
	case <-srv.StartedServer():
	case <-time.After(5 * time.Second):
		require.FailNow(t, "server not started")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "serve did not stop")
	}
	<-srv.StoppedServer()

	records, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(records), "status server listening")
	assert.Contains(t, string(records), "termination requested")
}

func TestExecuteServeErrors(t *testing.T) {
	t.Parallel()

	errServer := errors.New("no server")
	settings, _ := writeServeSettings(t)

	testCases := map[string]struct {
		options       *options
		expectedError error
	}{
		"invalid settings": {
			options:       &options{settingsFile: filepath.Join(t.TempDir(), "missing.yaml")},
			expectedError: loggia.ErrInvalidSettings,
		},
		"missing level file": {
			options:       &options{settingsFile: settings, levelFile: filepath.Join(t.TempDir(), "missing.yaml")},
			expectedError: loggia.ErrLevelFile,
		},
		"server cannot be built": {
			options: &options{
				settingsFile: settings,
				serverGetter: func(*loggia.Runtime) (server.Server, error) { return nil, errServer },
			},
			expectedError: errServer,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, test.options.executeServe(t.Context()), test.expectedError)
		})
	}
}
