// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mia-platform/loggia/internal/logger"
	"github.com/mia-platform/loggia/pkg/loggia"
)

func TestCmds(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		cmd                  func() *cobra.Command
		args                 []string
		expectedError        error
		expectedErrorMessage string
		expectedUsage        bool
		expectedOutput       []string
	}{
		"presets as a table": {
			cmd:  PresetsCmd,
			args: []string{},
			expectedOutput: []string{
				"KEY",
				"datadog_normalisation  DatadogNormalisation  normalization  prod",
				"null_preset",
			},
		},
		"presets with an invalid output print usage": {
			cmd:                  PresetsCmd,
			args:                 []string{"-o", "xml"},
			expectedError:        errInvalidOutput,
			expectedErrorMessage: errInvalidOutput.Error() + `: "xml", expected one of: text, yaml, json` + "\n",
			expectedUsage:        true,
		},
		"resolve from arguments": {
			cmd:  ResolveCmd,
			args: []string{"dev"},
			expectedOutput: []string{
				"ORDER",
				"slot main: dev",
			},
		},
		"resolve reports unknown presets": {
			cmd:  ResolveCmd,
			args: []string{"--presets", "prod,shiny"},
			expectedOutput: []string{
				"slot normalization: datadog_normalisation",
				`"shiny" matches no builtin`,
			},
		},
		"config cannot be printed as text": {
			cmd:                  ConfigCmd,
			args:                 []string{"-o", "text"},
			expectedError:        errInvalidOutput,
			expectedErrorMessage: errInvalidOutput.Error() + `: "text", expected one of: yaml, json` + "\n",
			expectedUsage:        true,
		},
		"config with a missing settings file": {
			cmd:                  ConfigCmd,
			args:                 []string{"-p", "dev", "-f", filepath.Join("testdata", "missing.yaml")},
			expectedError:        loggia.ErrInvalidSettings,
			expectedErrorMessage: loggia.ErrInvalidSettings.Error() + ": open " + filepath.Join("testdata", "missing.yaml") + ": no such file or directory\n",
		},
		"config with the dev preset": {
			cmd:  ConfigCmd,
			args: []string{"-p", "dev"},
			expectedOutput: []string{
				"class: loggia.PrettyFormatter",
				"addCaller: true",
			},
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			cmd := test.cmd()
			errBuffer := new(bytes.Buffer)
			outBuffer := new(bytes.Buffer)
			cmd.SetOut(outBuffer)
			cmd.SetErr(errBuffer)
			cmd.SetUsageTemplate("usage string")
			cmd.SetArgs(test.args)

			ctx := logger.WithContext(t.Context(), logger.NewLogger(errBuffer))
			err := cmd.ExecuteContext(ctx)
			if test.expectedError != nil {
				assert.ErrorIs(t, err, test.expectedError)
				assert.Equal(t, test.expectedErrorMessage, errBuffer.String())
			} else {
				assert.NoError(t, err)
			}

			output := outBuffer.String()
			if test.expectedUsage {
				assert.Equal(t, "usage string", output)
			}
			for _, expected := range test.expectedOutput {
				assert.Contains(t, output, expected)
			}
		})
	}
}

func TestStructuredOutputs(t *testing.T) {
	t.Parallel()

	t.Run("presets as json", func(t *testing.T) {
		t.Parallel()

		out := new(bytes.Buffer)
		opts := &options{output: outputJSON, out: out}
		require.NoError(t, opts.executePresets())

		var infos []presetInfo
		require.NoError(t, json.Unmarshal(out.Bytes(), &infos))
		keys := make([]string, 0, len(infos))
		for _, info := range infos {
			keys = append(keys, info.Key)
		}
		assert.Equal(t, []string{"datadog_normalisation", "dev", "fiber", "null_preset", "prod"}, keys)
		assert.Equal(t, []string{"main"}, infos[1].Slots)
		assert.Equal(t, "prod", infos[0].Requires)
	})

	t.Run("resolve as yaml", func(t *testing.T) {
		t.Parallel()

		out := new(bytes.Buffer)
		opts := &options{output: outputYAML, out: out, presets: []string{"dev", "prod"}, presetsSet: true}
		require.NoError(t, opts.executeResolve())

		var report resolveReport
		require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
		assert.Equal(t, "dev", report.Selected["main"])
		assert.Equal(t, []string{"datadog_normalisation"}, report.Dropped)
		assert.Contains(t, strings.Join(report.Diagnostics, "\n"), `preset slot "main" is ambiguous`)
	})

	t.Run("config from a settings file as json", func(t *testing.T) {
		t.Parallel()

		settings := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(settings, []byte("LOGGIA_LEVEL: error\nLOGGIA_SUB_LEVEL: [\"app:DEBUG\"]\n"), 0o600))

		out := new(bytes.Buffer)
		opts := &options{output: outputJSON, out: out, presets: []string{"prod"}, presetsSet: true, settingsFile: settings}
		require.NoError(t, opts.executeConfig(t.Context()))

		var payload struct {
			Loggers map[string]struct {
				Level string `json:"level"`
			} `json:"loggers"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
		assert.Equal(t, "ERROR", payload.Loggers[""].Level)
		assert.Equal(t, "DEBUG", payload.Loggers["app"].Level)
	})
}

func TestCompletion(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		args               []string
		toComplete         string
		expectedCompletion []string
	}{
		"partial string, return filtered presets": {
			toComplete: "d",
			expectedCompletion: []string{
				"datadog_normalisation\tDatadogNormalisation, slots: normalization, requires: prod",
				"dev\tDev, slots: main",
			},
		},
		"already given presets are not completed": {
			args:       []string{"dev"},
			toComplete: "de",
		},
		"partial wrong string, return no preset": {
			toComplete: "x",
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			args, directive := validArgsFunc(availablePresets)(nil, test.args, test.toComplete)
			assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
			assert.Equal(t, test.expectedCompletion, args)
		})
	}
}
