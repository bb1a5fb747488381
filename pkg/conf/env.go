// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package conf

import (
	"github.com/mia-platform/loggia/pkg/envbind"
)

// EnvPrefix is the prefix of every environment variable read by the Configuration.
const EnvPrefix = "LOGGIA_"

// bindings maps the LOGGIA_* variables to the Configuration setters.
var bindings = envbind.NewRegistry[*Configuration]().
	MustRegister(EnvPrefix+"LEVEL", envbind.Default, setGeneralLevel).
	// LOGGIA_SUB_LEVEL=grpc:INFO,fiber.access:WARNING
	MustRegister(EnvPrefix+"SUB_LEVEL", envbind.CommaColon, setLoggerLevel).
	MustRegister(EnvPrefix+"FORCE_LEVEL", envbind.CommaColon, setLoggerLevel).
	MustRegister(EnvPrefix+"SUB_PROPAGATION", envbind.CommaColon, setLoggerPropagation).
	// LOGGIA_EXTRA_FILTERS=loggia.ExtraAllow,fiber.access:loggia.DropFields
	MustRegister(EnvPrefix+"EXTRA_FILTERS", envbind.CommaColon, addLogFilter).
	MustRegister(EnvPrefix+"FORMATTER", envbind.Default, setDefaultFormatter).
	MustRegister(EnvPrefix+"OUTPUT", envbind.Default, setHandlerOutput).
	MustRegister(EnvPrefix+"ADD_CALLER", envbind.SingleBoolean, boolSetter((*Configuration).SetAddCaller)).
	MustRegister(EnvPrefix+"CAPTURE_STDLOG", envbind.SingleBoolean, boolSetter((*Configuration).SetCaptureStdlog)).
	MustRegister(EnvPrefix+"CAPTURE_HCLOG", envbind.SingleBoolean, boolSetter((*Configuration).SetCaptureHclog)).
	MustRegister(EnvPrefix+"CAPTURE_LOGRUS", envbind.SingleBoolean, boolSetter((*Configuration).SetCaptureLogrus)).
	MustRegister(EnvPrefix+"DISALLOW_LOGRUS_RECONFIG", envbind.SingleBoolean, boolSetter((*Configuration).SetDisallowLogrusReconfig)).
	MustRegister(EnvPrefix+"SET_PANIC_HOOK", envbind.SingleBoolean, boolSetter((*Configuration).SetPanicHook)).
	OnParseError(func(c *Configuration, name string, err error) {
		c.Diagnostics.Error(err, "%s is ignored, keeping the previous value", name)
	})

// ApplyEnv applies the LOGGIA_* variables found in env. A nil env means the process environment.
// Values of the wrong type are recorded on Diagnostics and skipped; invalid
// levels, arities and component conflicts are returned.
func (c *Configuration) ApplyEnv(env map[string]string) error {
	return bindings.Apply(c, env)
}

// EnvNames returns the environment variables understood by ApplyEnv.
func EnvNames() []string {
	return bindings.Names()
}

func setGeneralLevel(c *Configuration, args envbind.Args) error {
	level, err := args.String(0)
	if err != nil {
		return err
	}

	return c.SetGeneralLevel(level)
}

func setLoggerLevel(c *Configuration, args envbind.Args) error {
	if err := args.Expect(2); err != nil {
		return err
	}

	name, _ := args.String(0)
	level, _ := args.String(1)
	return c.SetLoggerLevel(name, level)
}

func setLoggerPropagation(c *Configuration, args envbind.Args) error {
	if err := args.Expect(2); err != nil {
		return err
	}

	name, _ := args.String(0)
	propagate, err := args.Bool(1)
	if err != nil {
		return err
	}

	c.SetLoggerPropagation(name, propagate)
	return nil
}

// addLogFilter accepts either "class", attached to the root logger, or "logger:class".
func addLogFilter(c *Configuration, args envbind.Args) error {
	if err := args.Expect(1, 2); err != nil {
		return err
	}

	name := RootLogger
	class, _ := args.String(args.Len() - 1)
	if args.Len() == 2 {
		name, _ = args.String(0)
	}

	return c.AddLogFilter(name, Component{Class: class})
}

func setDefaultFormatter(c *Configuration, args envbind.Args) error {
	class, err := args.String(0)
	if err != nil {
		return err
	}

	return c.SetDefaultFormatter(Component{Class: class})
}

func setHandlerOutput(c *Configuration, args envbind.Args) error {
	output, err := args.String(0)
	if err != nil {
		return err
	}

	c.SetHandlerOutput(output)
	return nil
}

func boolSetter(set func(*Configuration, bool)) envbind.Setter[*Configuration] {
	return func(c *Configuration, args envbind.Args) error {
		enabled, err := args.Bool(0)
		if err != nil {
			return err
		}

		set(c, enabled)
		return nil
	}
}
