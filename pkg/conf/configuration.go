// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package conf

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/mia-platform/loggia/internal/strutil"
	"github.com/mia-platform/loggia/pkg/bootstrap"
)

const (
	// RootLogger is the name of the root logger.
	RootLogger = ""
	// DefaultHandler is the name of the handler every logger writes to by default.
	DefaultHandler = "default"
	// DefaultFormatterID is the formatter id used by the default handler before any preset runs.
	DefaultFormatterID = "structured"
	// DefaultOutput is the output of the default handler.
	DefaultOutput = "stderr"

	// ComponentPrefix is the prefix of the formatter and filter classes shipped with loggia.
	ComponentPrefix = "loggia."

	formatterKind = "formatter"
	filterKind    = "filter"
)

// ErrComponentConflict is returned when a formatter or filter id is registered again
// with a different class.
var ErrComponentConflict = errors.New("component conflict")

// Component describes a formatter or a filter by class name and options.
type Component struct {
	Class   string         `json:"class" yaml:"class"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// ID returns the identifier derived from the class: its last dotted segment.
func (c Component) ID() string {
	return strutil.LastSegment(c.Class, ".")
}

// Class returns a Component for one of the classes shipped with loggia.
func Class(name string, options map[string]any) Component {
	return Component{Class: ComponentPrefix + name, Options: options}
}

// Logger holds the settings of a single named logger.
type Logger struct {
	Level     Level    `json:"level,omitempty" yaml:"level,omitempty"`
	Propagate *bool    `json:"propagate,omitempty" yaml:"propagate,omitempty"`
	Handlers  []string `json:"handlers,omitempty" yaml:"handlers,omitempty"`
	Filters   []string `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// Propagates reports whether records of the logger also reach the handlers of its ancestors.
func (l *Logger) Propagates() bool {
	return l.Propagate == nil || *l.Propagate
}

// Handler holds the settings of an output handler.
type Handler struct {
	Output    string   `json:"output" yaml:"output"`
	Formatter string   `json:"formatter" yaml:"formatter"`
	Filters   []string `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// Configuration is the full logging configuration.
type Configuration struct {
	Loggers    map[string]*Logger   `json:"loggers" yaml:"loggers"`
	Handlers   map[string]*Handler  `json:"handlers" yaml:"handlers"`
	Formatters map[string]Component `json:"formatters,omitempty" yaml:"formatters,omitempty"`
	Filters    map[string]Component `json:"filters,omitempty" yaml:"filters,omitempty"`

	AddCaller              bool `json:"addCaller" yaml:"addCaller"`
	CaptureStdlog          bool `json:"captureStdlog" yaml:"captureStdlog"`
	CaptureHclog           bool `json:"captureHclog" yaml:"captureHclog"`
	CaptureLogrus          bool `json:"captureLogrus" yaml:"captureLogrus"`
	DisallowLogrusReconfig bool `json:"disallowLogrusReconfig" yaml:"disallowLogrusReconfig"`
	PanicHook              bool `json:"panicHook" yaml:"panicHook"`

	// Diagnostics collects the recoverable problems met while building and
	// initializing the configuration.
	Diagnostics *bootstrap.Logger `json:"-" yaml:"-"`
}

// New returns the base configuration: a root logger at INFO writing to the default
// handler, and the bridges for hclog and logrus enabled.
func New() *Configuration {
	return &Configuration{
		Loggers: map[string]*Logger{
			RootLogger: {
				Level:    LevelInfo,
				Handlers: []string{DefaultHandler},
			},
		},
		Handlers: map[string]*Handler{
			DefaultHandler: {
				Output:    DefaultOutput,
				Formatter: DefaultFormatterID,
			},
		},
		Formatters:             map[string]Component{},
		Filters:                map[string]Component{},
		CaptureHclog:           true,
		CaptureLogrus:          true,
		DisallowLogrusReconfig: true,
		Diagnostics:            bootstrap.New(),
	}
}

// SetGeneralLevel sets the level of the root logger.
func (c *Configuration) SetGeneralLevel(level string) error {
	return c.SetLoggerLevel(RootLogger, level)
}

// GeneralLevel returns the level of the root logger.
func (c *Configuration) GeneralLevel() Level {
	return c.enforceLogger(RootLogger).Level
}

// SetLoggerLevel sets a specific level for a specific logger.
func (c *Configuration) SetLoggerLevel(name string, level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logger %q: %w", name, err)
	}

	c.enforceLogger(name).Level = parsed
	return nil
}

// SetLoggerPropagation sets whether records of the logger reach the handlers of its ancestors.
func (c *Configuration) SetLoggerPropagation(name string, propagate bool) {
	c.enforceLogger(name).Propagate = &propagate
}

// AddLogFilter registers filter and attaches it to the logger.
func (c *Configuration) AddLogFilter(name string, filter Component) error {
	id, err := c.register(filterKind, filter)
	if err != nil {
		return err
	}

	logger := c.enforceLogger(name)
	if !slices.Contains(logger.Filters, id) {
		logger.Filters = append(logger.Filters, id)
	}

	return nil
}

// AddDefaultHandlerFilter registers filter and attaches it to the default handler,
// so that it applies to every record regardless of the emitting logger.
func (c *Configuration) AddDefaultHandlerFilter(filter Component) error {
	id, err := c.register(filterKind, filter)
	if err != nil {
		return err
	}

	handler := c.defaultHandler()
	if !slices.Contains(handler.Filters, id) {
		handler.Filters = append(handler.Filters, id)
	}

	return nil
}

// SetDefaultFormatter registers formatter and uses it for the default handler.
func (c *Configuration) SetDefaultFormatter(formatter Component) error {
	id, err := c.register(formatterKind, formatter)
	if err != nil {
		return err
	}

	c.defaultHandler().Formatter = id
	return nil
}

// SetHandlerOutput sets where the default handler writes: stderr, stdout or a file path.
func (c *Configuration) SetHandlerOutput(output string) {
	c.defaultHandler().Output = output
}

// SetAddCaller enables the caller annotation on every record.
func (c *Configuration) SetAddCaller(enabled bool) {
	c.AddCaller = enabled
}

// SetCaptureStdlog enables the redirection of the standard library log package.
func (c *Configuration) SetCaptureStdlog(enabled bool) {
	c.CaptureStdlog = enabled
}

// SetCaptureHclog enables the redirection of the default hclog logger.
func (c *Configuration) SetCaptureHclog(enabled bool) {
	c.CaptureHclog = enabled
}

// SetCaptureLogrus enables the redirection of the standard logrus logger.
func (c *Configuration) SetCaptureLogrus(enabled bool) {
	c.CaptureLogrus = enabled
}

// SetDisallowLogrusReconfig prevents the standard logrus logger from being pointed
// elsewhere once it has been captured.
func (c *Configuration) SetDisallowLogrusReconfig(enabled bool) {
	c.DisallowLogrusReconfig = enabled
}

// SetPanicHook enables logging of unhandled panics through Runtime.LogPanic.
func (c *Configuration) SetPanicHook(enabled bool) {
	c.PanicHook = enabled
}

// LoggerNames returns the configured logger names, sorted.
func (c *Configuration) LoggerNames() []string {
	return slices.Sorted(maps.Keys(c.Loggers))
}

// enforceLogger returns the named logger, creating it with the default handler if missing.
func (c *Configuration) enforceLogger(name string) *Logger {
	if c.Loggers == nil {
		c.Loggers = make(map[string]*Logger)
	}

	logger, ok := c.Loggers[name]
	if !ok || logger == nil {
		logger = &Logger{Handlers: []string{DefaultHandler}}
		c.Loggers[name] = logger
	}

	return logger
}

// defaultHandler returns the default handler, creating it if missing.
func (c *Configuration) defaultHandler() *Handler {
	if c.Handlers == nil {
		c.Handlers = make(map[string]*Handler)
	}

	handler, ok := c.Handlers[DefaultHandler]
	if !ok || handler == nil {
		handler = &Handler{Output: DefaultOutput, Formatter: DefaultFormatterID}
		c.Handlers[DefaultHandler] = handler
	}

	return handler
}

// register stores component under its derived id and returns the id. The same id
// with a different class is a conflict.
func (c *Configuration) register(kind string, component Component) (string, error) {
	if c.Formatters == nil {
		c.Formatters = make(map[string]Component)
	}
	if c.Filters == nil {
		c.Filters = make(map[string]Component)
	}

	registry := c.Filters
	if kind == formatterKind {
		registry = c.Formatters
	}

	id := component.ID()
	if id == "" {
		return "", fmt.Errorf("%w: %s %q has no class name", ErrComponentConflict, kind, component.Class)
	}

	if registered, found := registry[id]; found {
		if registered.Class != component.Class {
			return "", fmt.Errorf("%w: %s %s conflicts with %s", ErrComponentConflict, kind, component.Class, registered.Class)
		}

		return id, nil
	}

	registry[id] = component
	return id, nil
}
