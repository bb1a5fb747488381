// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mia-platform/loggia/internal/server"
	"github.com/mia-platform/loggia/pkg/preset"
	"github.com/mia-platform/loggia/pkg/preset/builtin"
)

const (
	outputText = "text"
	outputYAML = "yaml"
	outputJSON = "json"
)

var (
	errInvalidOutput = errors.New("invalid output format")

	// serverGetter builds the status server for the serve command.
	// It can be overridden for testing purposes.
	serverGetter = server.NewServer
)

// handleError will do custom print error handling based on the type of error received.
// It returns the original error so the command exits with a non zero code.
func handleError(cmd *cobra.Command, err error) error {
	switch {
	case errors.Is(err, errInvalidOutput):
		cmd.PrintErrln(err)
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return err
	default:
		cmd.PrintErrln(err)
		return err
	}
}

// availablePresets returns the builtin preset keys with a short description
// for command completion.
func availablePresets() map[string]string {
	presets := make(map[string]string)
	for _, factory := range builtin.All() {
		p := factory()
		presets[preset.PreferenceKey(p)] = describe(p)
	}

	return presets
}

func describe(p preset.Preset) string {
	parts := []string{preset.NameOf(p)}
	if slots := preset.SlotsOf(p); len(slots) > 0 {
		parts = append(parts, "slots: "+strings.Join(slots, ","))
	}
	if requirement := preset.RequirementsOf(p); requirement != nil {
		parts = append(parts, "requires: "+requirement.String())
	}

	return strings.Join(parts, ", ")
}

// validArgsFunc completes the preset keys not already present in args.
func validArgsFunc(choices func() map[string]string) cobra.CompletionFunc {
	return func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var comps []string
		for name, description := range choices() {
			if strings.HasPrefix(name, toComplete) && !slices.Contains(args, name) {
				comps = append(comps, cobra.CompletionWithDesc(name, description))
			}
		}
		slices.Sort(comps)

		return comps, cobra.ShellCompDirectiveNoFileComp
	}
}

// encode writes value on w in the structured output format.
func encode(w io.Writer, output string, value any) error {
	switch output {
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("%w: %s", errInvalidOutput, output)
	}
}
