// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

const (
	presetsFlagName  = "presets"
	presetsFlagShort = "p"
	presetsFlagUsage = "Preset preferences, as preset keys or names. Can be specified multiple times or comma separated. Overrides LOGGIA_PRESETS."

	settingsFileFlagName  = "settings-file"
	settingsFileFlagShort = "f"
	settingsFileFlagUsage = "Path to a yaml file of LOGGIA_* settings, applied before the process environment"

	outputFlagName  = "output"
	outputFlagShort = "o"
	outputFlagUsage = "Output format, one of: "

	levelFileFlagName  = "level-file"
	levelFileFlagUsage = "Path to a yaml file of logger levels, applied and watched for changes while serving"
)

// flags collects the CLI options shared by the loggia commands.
type flags struct {
	presets      []string
	settingsFile string
	output       string
	levelFile    string

	outputs []string
}

// addFlags registers the preset and settings flags on cmd.
func (f *flags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.presets, presetsFlagName, presetsFlagShort, nil, presetsFlagUsage)
	cmd.Flags().StringVarP(&f.settingsFile, settingsFileFlagName, settingsFileFlagShort, "", settingsFileFlagUsage)
}

// addOutputFlag registers the output flag accepting outputs, the first one is the default.
func (f *flags) addOutputFlag(cmd *cobra.Command, outputs ...string) {
	f.outputs = outputs
	cmd.Flags().StringVarP(&f.output, outputFlagName, outputFlagShort, outputs[0], outputFlagUsage+strings.Join(outputs, ", "))
	_ = cmd.RegisterFlagCompletionFunc(outputFlagName, cobra.FixedCompletions(outputs, cobra.ShellCompDirectiveNoFileComp))
}

// addLevelFileFlag registers the level file flag on cmd.
func (f *flags) addLevelFileFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.levelFile, levelFileFlagName, "", levelFileFlagUsage)
}

// toOptions builds an options instance from the parsed flags and CLI arguments.
// Positional arguments are additional preset preferences.
func (f *flags) toOptions(cmd *cobra.Command, args []string) *options {
	presets := append(append([]string{}, f.presets...), args...)
	return &options{
		presets:      presets,
		presetsSet:   cmd.Flags().Changed(presetsFlagName) || len(args) > 0,
		settingsFile: f.settingsFile,
		output:       strings.ToLower(f.output),
		outputs:      f.outputs,
		levelFile:    f.levelFile,
		serverGetter: serverGetter,
		out:          cmd.OutOrStdout(),
	}
}
