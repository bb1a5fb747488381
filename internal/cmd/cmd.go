// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	presetsCmdUsage = "presets"
	presetsCmdShort = "list the builtin presets"
	presetsCmdLong  = `List the builtin presets with their preference key, the slots they
	compete for and the presets they require.`

	resolveCmdUsage = "resolve [PRESET...]"
	resolveCmdShort = "show which presets would be applied"
	resolveCmdLong  = `Resolve the preset preferences and print the presets that would be
	applied, in application order, together with the preset chosen for every slot,
	the presets dropped for unmet requirements and the resolution diagnostics.

	Preferences are read from the arguments, the --presets flag, the LOGGIA_PRESETS
	setting or environment variable, in this order. Without preferences the prod
	preset is used.`

	resolveCmdExample = `# Resolve the development presets
	loggia resolve dev

	# Resolve the presets selected by a settings file
	loggia resolve --settings-file settings.yaml --output json`

	configCmdUsage = "config"
	configCmdShort = "print the resulting logging configuration"
	configCmdLong  = `Build the logging configuration from the defaults, the resolved presets,
	the settings file and the LOGGIA_* environment variables, and print it.`

	configCmdExample = `# Print the production configuration as json
	LOGGIA_PRESETS=prod loggia config -o json`

	serveCmdUsage = "serve"
	serveCmdShort = "start the status server with logging configured"
	serveCmdLong  = `Configure logging like an application would and start a status server.
	Every request is logged on the fiber.access logger, and the server exposes:
	- /-/healthz and /-/ready: health probes
	- /-/config: the active configuration and logger levels
	- PUT /-/levels/LOGGER?level=LEVEL: change a logger level

	The listening address is read from HTTP_HOST and HTTP_PORT.`

	serveCmdExample = `# Serve with the development presets, reloading levels from a file
	loggia serve -p dev --level-file levels.yaml`
)

// PresetsCmd returns the Cobra command listing the builtin presets.
func PresetsCmd() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:   presetsCmdUsage,
		Short: heredoc.Doc(presetsCmdShort),
		Long:  heredoc.Doc(presetsCmdLong),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.toOptions(cmd, args)
			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.executePresets(); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addOutputFlag(cmd, outputText, outputYAML, outputJSON)
	return cmd
}

// ResolveCmd returns the Cobra command printing the preset resolution.
func ResolveCmd() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:     resolveCmdUsage,
		Short:   heredoc.Doc(resolveCmdShort),
		Long:    heredoc.Doc(resolveCmdLong),
		Example: heredoc.Doc(resolveCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: validArgsFunc(availablePresets),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.toOptions(cmd, args)
			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.executeResolve(); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	flags.addOutputFlag(cmd, outputText, outputYAML, outputJSON)
	return cmd
}

// ConfigCmd returns the Cobra command printing the resulting configuration.
func ConfigCmd() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:     configCmdUsage,
		Short:   heredoc.Doc(configCmdShort),
		Long:    heredoc.Doc(configCmdLong),
		Example: heredoc.Doc(configCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.toOptions(cmd, args)
			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.executeConfig(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	flags.addOutputFlag(cmd, outputYAML, outputJSON)
	return cmd
}

// ServeCmd returns the Cobra command starting the status server.
func ServeCmd() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:     serveCmdUsage,
		Short:   heredoc.Doc(serveCmdShort),
		Long:    heredoc.Doc(serveCmdLong),
		Example: heredoc.Doc(serveCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.toOptions(cmd, args)
			if err := opts.executeServe(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	flags.addLevelFileFlag(cmd)
	return cmd
}
