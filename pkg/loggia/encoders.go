// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package loggia

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/mia-platform/loggia/pkg/conf"
)

// Formatter classes understood by Initialize.
const (
	JSONFormatter    = conf.ComponentPrefix + "JSONFormatter"
	DatadogFormatter = conf.ComponentPrefix + "DatadogFormatter"
	PrettyFormatter  = conf.ComponentPrefix + "PrettyFormatter"
	TextFormatter    = conf.ComponentPrefix + "TextFormatter"
)

type formatterOptions struct {
	// TimeFormat is iso8601, rfc3339, epoch or a time layout.
	TimeFormat string `yaml:"time_format"`
	// Palette is dark or light.
	Palette     string `yaml:"palette"`
	ForceColors bool   `yaml:"force_colors"`
}

type encoderFactory func(opts formatterOptions) zapcore.Encoder

var formatters = map[string]encoderFactory{
	JSONFormatter:    newJSONEncoder,
	DatadogFormatter: newDatadogEncoder,
	PrettyFormatter:  newPrettyEncoder,
	TextFormatter:    newTextEncoder,
}

func formatterClasses() []string {
	return []string{JSONFormatter, DatadogFormatter, PrettyFormatter, TextFormatter}
}

// buildEncoder returns the encoder for the formatter id of a handler. The default
// formatter id and unknown classes produce a JSON encoder.
func buildEncoder(c *conf.Configuration, id string) zapcore.Encoder {
	if id == conf.DefaultFormatterID {
		return newJSONEncoder(formatterOptions{})
	}

	component, found := c.Formatters[id]
	if !found {
		c.Diagnostics.Warn("formatter %q is not registered, falling back to JSON", id)
		return newJSONEncoder(formatterOptions{})
	}

	factory, found := formatters[component.Class]
	if !found {
		c.Diagnostics.Warn("formatter class %q is unknown (known: %s), falling back to JSON",
			component.Class, strings.Join(formatterClasses(), ", "))
		return newJSONEncoder(formatterOptions{})
	}

	var opts formatterOptions
	if err := decodeOptions(component.Options, &opts); err != nil {
		c.Diagnostics.Error(err, "formatter %q has invalid options, using the defaults", id)
		opts = formatterOptions{}
	}

	return factory(opts)
}

// decodeOptions converts the free form options of a component into out.
func decodeOptions(options map[string]any, out any) error {
	if len(options) == 0 {
		return nil
	}

	data, err := yaml.Marshal(options)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, out)
}

func baseEncoderConfig(opts formatterOptions) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelNameEncoder,
		EncodeTime:     timeEncoder(opts.TimeFormat),
		EncodeDuration: zapcore.NanosDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

func newJSONEncoder(opts formatterOptions) zapcore.Encoder {
	return normalizingEncoder{Encoder: zapcore.NewJSONEncoder(baseEncoderConfig(opts))}
}

// newDatadogEncoder uses the Datadog reserved and standard attribute names.
// Without an error of its own, error.stack holds the stack of the logging call.
func newDatadogEncoder(opts formatterOptions) zapcore.Encoder {
	cfg := baseEncoderConfig(opts)
	cfg.LevelKey = "status"
	cfg.NameKey = "logger.name"
	cfg.CallerKey = "logger.path_name"
	cfg.FunctionKey = "logger.method_name"
	cfg.StacktraceKey = "error.stack"
	cfg.EncodeCaller = zapcore.FullCallerEncoder
	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(strings.ToLower(conf.LevelName(level)))
	}
	if opts.TimeFormat == "" {
		cfg.EncodeTime = zapcore.EpochMillisTimeEncoder
	}

	return normalizingEncoder{Encoder: zapcore.NewJSONEncoder(cfg), errors: true}
}

func newTextEncoder(opts formatterOptions) zapcore.Encoder {
	cfg := baseEncoderConfig(opts)
	cfg.ConsoleSeparator = " "
	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("%-8s", conf.LevelName(level)))
	}

	return zapcore.NewConsoleEncoder(cfg)
}

// newPrettyEncoder colors the time, level, logger name and caller of each record
// according to the record level.
func newPrettyEncoder(opts formatterOptions) zapcore.Encoder {
	p := newPalette(opts.Palette, opts.ForceColors)

	cfg := baseEncoderConfig(opts)
	cfg.ConsoleSeparator = " "
	if opts.TimeFormat == "" {
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}
	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(p.level(level).Sprintf("%-8s", conf.LevelName(level)))
	}
	cfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(p.name.Sprint(name))
	}
	cfg.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(p.name.Sprint(caller.TrimmedPath()))
	}

	return zapcore.NewConsoleEncoder(cfg)
}

type palette struct {
	levels map[zapcore.Level]*color.Color
	name   *color.Color
}

func newPalette(name string, force bool) palette {
	var p palette
	switch strings.ToLower(name) {
	case "light":
		p = palette{
			levels: map[zapcore.Level]*color.Color{
				conf.TraceLevel:     color.New(color.FgHiBlack),
				zapcore.DebugLevel:  color.New(color.FgBlue),
				zapcore.InfoLevel:   color.New(color.FgGreen),
				zapcore.WarnLevel:   color.New(color.FgMagenta),
				zapcore.ErrorLevel:  color.New(color.FgRed),
				zapcore.DPanicLevel: color.New(color.FgRed, color.Bold, color.Underline),
			},
			name: color.New(color.FgBlack),
		}
	default:
		p = palette{
			levels: map[zapcore.Level]*color.Color{
				conf.TraceLevel:     color.New(color.FgHiBlack),
				zapcore.DebugLevel:  color.New(color.FgCyan),
				zapcore.InfoLevel:   color.New(color.FgHiGreen),
				zapcore.WarnLevel:   color.New(color.FgHiYellow),
				zapcore.ErrorLevel:  color.New(color.FgHiRed),
				zapcore.DPanicLevel: color.New(color.FgHiRed, color.Bold, color.Underline),
			},
			name: color.New(color.FgHiBlack),
		}
	}

	if force {
		p.name.EnableColor()
		for _, c := range p.levels {
			c.EnableColor()
		}
	}

	return p
}

func (p palette) level(level zapcore.Level) *color.Color {
	if level > zapcore.DPanicLevel {
		level = zapcore.DPanicLevel
	}
	if level < conf.TraceLevel {
		level = conf.TraceLevel
	}

	return p.levels[level]
}

func levelNameEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(conf.LevelName(level))
}

func timeEncoder(format string) zapcore.TimeEncoder {
	switch strings.ToLower(format) {
	case "", "iso8601":
		return zapcore.ISO8601TimeEncoder
	case "rfc3339":
		return zapcore.RFC3339NanoTimeEncoder
	case "epoch":
		return zapcore.EpochMillisTimeEncoder
	default:
		return zapcore.TimeEncoderOfLayout(format)
	}
}
