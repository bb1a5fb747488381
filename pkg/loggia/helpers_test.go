// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package loggia

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mia-platform/loggia/pkg/conf"
)

// testConfiguration returns a configuration writing JSON records to a temporary
// file, with every process wide capture disabled.
func testConfiguration(t *testing.T) (*conf.Configuration, string) {
	t.Helper()

	output := filepath.Join(t.TempDir(), "records.log")
	c := conf.New()
	c.SetHandlerOutput(output)
	require.NoError(t, c.SetDefaultFormatter(conf.Class("JSONFormatter", nil)))
	c.SetCaptureHclog(false)
	c.SetCaptureLogrus(false)
	c.SetCaptureStdlog(false)

	return c, output
}

func initialize(t *testing.T, c *conf.Configuration) *Runtime {
	t.Helper()

	rt, err := Initialize(c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	return rt
}

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var records []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(line) == 0 {
			continue
		}

		var record map[string]any
		require.NoError(t, json.Unmarshal(line, &record), string(line))
		records = append(records, record)
	}

	return records
}

func messages(records []map[string]any) []string {
	result := make([]string, 0, len(records))
	for _, record := range records {
		if message, ok := record["message"].(string); ok {
			result = append(result, message)
		}
	}

	return result
}

// processSettings disables the captures that touch process wide state.
func processSettings(output string) map[string]string {
	return map[string]string{
		"LOGGIA_OUTPUT":         output,
		"LOGGIA_CAPTURE_HCLOG":  "no",
		"LOGGIA_CAPTURE_LOGRUS": "no",
		"LOGGIA_CAPTURE_STDLOG": "no",
	}
}
