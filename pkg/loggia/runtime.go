// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package loggia

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mia-platform/loggia/pkg/bootstrap"
	"github.com/mia-platform/loggia/pkg/conf"
)

// DiagnosticsLogger is the logger receiving the diagnostics recorded while
// building and initializing the configuration.
const DiagnosticsLogger = "loggia"

// Runtime is an initialized configuration: the zap cores of every handler and the
// levels of every configured logger, which can be changed while running.
type Runtime struct {
	config *conf.Configuration

	mu       sync.RWMutex
	levels   map[string]zap.AtomicLevel
	loggers  map[string]*zap.Logger
	handlers map[string]zapcore.Core

	closers  []func()
	restores []func()

	bridges map[string]*zap.Logger

	hclogOnce  sync.Once
	hclogRoot  hclog.InterceptLogger
	logrusOnce sync.Once
	logrusLog  *logrus.Logger
}

// Initialize opens the outputs of c and bridges the logging front-ends it enables.
// The diagnostics recorded in c are replayed into the loggia logger.
func Initialize(c *conf.Configuration) (*Runtime, error) {
	if c.Diagnostics == nil {
		c.Diagnostics = bootstrap.New()
	}

	rt := &Runtime{
		config:   c,
		levels:   make(map[string]zap.AtomicLevel),
		loggers:  make(map[string]*zap.Logger),
		handlers: make(map[string]zapcore.Core),
		bridges:  make(map[string]*zap.Logger),
	}

	for _, name := range c.LoggerNames() {
		logger := c.Loggers[name]
		if logger == nil || logger.Level == "" {
			continue
		}

		level, err := conf.ParseLevel(string(logger.Level))
		if err != nil {
			return nil, fmt.Errorf("%w: logger %q: %w", ErrInitialize, name, err)
		}
		rt.levels[name] = zap.NewAtomicLevelAt(level.ZapLevel())
	}

	for _, name := range slices.Sorted(maps.Keys(c.Handlers)) {
		core, err := rt.buildHandler(name, c.Handlers[name])
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.handlers[name] = core
	}

	// building the configured loggers records the problems of their filters
	for _, name := range c.LoggerNames() {
		rt.Logger(name)
	}

	rt.capture()
	c.Diagnostics.Replay(rt.Hclog(DiagnosticsLogger))

	return rt, nil
}

func (rt *Runtime) buildHandler(name string, handler *conf.Handler) (zapcore.Core, error) {
	if handler == nil {
		return zapcore.NewNopCore(), nil
	}

	output := handler.Output
	if output == "" {
		output = conf.DefaultOutput
	}

	sink, closeSink, err := zap.Open(output)
	if err != nil {
		return nil, fmt.Errorf("%w: handler %q: %w", ErrInitialize, name, err)
	}
	rt.closers = append(rt.closers, closeSink)

	core := zapcore.NewCore(buildEncoder(rt.config, handler.Formatter), sink, zap.LevelEnablerFunc(func(zapcore.Level) bool { return true }))
	return wrapFilters(rt.config, core, handler.Filters), nil
}

// Config returns the configuration the Runtime was initialized with.
func (rt *Runtime) Config() *conf.Configuration {
	return rt.config
}

// Logger returns the logger called name. Dotted names form a hierarchy: a logger
// uses the level of its nearest ancestor with a level, and writes to the handlers
// of every ancestor up to the first one that does not propagate.
func (rt *Runtime) Logger(name string) *zap.Logger {
	rt.mu.RLock()
	logger, found := rt.loggers[name]
	rt.mu.RUnlock()
	if found {
		return logger
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if logger, found := rt.loggers[name]; found {
		return logger
	}

	logger = rt.newLogger(name)
	rt.loggers[name] = logger
	return logger
}

func (rt *Runtime) newLogger(name string) *zap.Logger {
	var handlerNames, filterIDs []string
	for _, ancestor := range ancestors(name) {
		logger := rt.config.Loggers[ancestor]
		if logger == nil {
			continue
		}

		for _, handler := range logger.Handlers {
			if !slices.Contains(handlerNames, handler) {
				handlerNames = append(handlerNames, handler)
			}
		}
		for _, filter := range logger.Filters {
			if !slices.Contains(filterIDs, filter) {
				filterIDs = append(filterIDs, filter)
			}
		}

		if !logger.Propagates() {
			break
		}
	}

	cores := make([]zapcore.Core, 0, len(handlerNames))
	for _, handler := range handlerNames {
		if core, found := rt.handlers[handler]; found {
			cores = append(cores, core)
		}
	}

	var core zapcore.Core = &levelCore{
		Core:  wrapFilters(rt.config, zapcore.NewTee(cores...), filterIDs),
		level: func() zapcore.Level { return rt.effectiveLevel(name) },
	}

	opts := []zap.Option{
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	}
	if rt.config.AddCaller {
		opts = append(opts, zap.AddCaller())
	}

	logger := zap.New(core, opts...)
	if name != conf.RootLogger {
		logger = logger.Named(name)
	}

	return logger
}

// effectiveLevel returns the level of the nearest ancestor of name having one.
func (rt *Runtime) effectiveLevel(name string) zapcore.Level {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	for _, ancestor := range ancestors(name) {
		if level, found := rt.levels[ancestor]; found {
			return level.Level()
		}
	}

	return zapcore.InfoLevel
}

// SetLevel changes the level of the logger called name and of its descendants
// without a level of their own.
func (rt *Runtime) SetLevel(name string, level string) error {
	parsed, err := conf.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logger %q: %w", name, err)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if current, found := rt.levels[name]; found {
		current.SetLevel(parsed.ZapLevel())
		return nil
	}

	rt.levels[name] = zap.NewAtomicLevelAt(parsed.ZapLevel())
	return nil
}

// Levels returns the current level of every logger having one.
func (rt *Runtime) Levels() map[string]conf.Level {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	levels := make(map[string]conf.Level, len(rt.levels))
	for name, level := range rt.levels {
		levels[name] = conf.Level(conf.LevelName(level.Level()))
	}

	return levels
}

// LogPanic logs a recovered panic on the panic logger and panics again. It does
// nothing unless the panic hook is enabled, and must be deferred directly:
//
//	defer rt.LogPanic()
func (rt *Runtime) LogPanic() {
	if !rt.config.PanicHook {
		return
	}

	if recovered := recover(); recovered != nil {
		var fields []zap.Field
		if err, ok := recovered.(error); ok {
			fields = append(fields, zap.Error(err))
		} else {
			fields = append(fields, zap.Any("panic", recovered))
		}

		if checked := rt.Logger("panic").Check(conf.LevelCritical.ZapLevel(), "unhandled panic"); checked != nil {
			checked.Write(fields...)
		}
		_ = rt.Sync()
		panic(recovered)
	}
}

// Sync flushes every handler.
func (rt *Runtime) Sync() error {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(rt.handlers)) {
		if err := rt.handlers[name].Sync(); err != nil && !isUnsyncable(err) {
			errs = append(errs, fmt.Errorf("handler %q: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// Close flushes the handlers, gives the bridged front-ends back their previous
// configuration and closes the outputs.
func (rt *Runtime) Close() error {
	err := rt.Sync()

	for i := len(rt.restores) - 1; i >= 0; i-- {
		rt.restores[i]()
	}
	rt.restores = nil

	for _, closeSink := range rt.closers {
		closeSink()
	}
	rt.closers = nil

	return err
}

// ancestors returns name followed by its dotted ancestors, ending with the root logger.
func ancestors(name string) []string {
	chain := []string{name}
	for name != conf.RootLogger {
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[:idx]
		} else {
			name = conf.RootLogger
		}
		chain = append(chain, name)
	}

	return chain
}

// isUnsyncable reports whether err comes from syncing a terminal or a pipe,
// which do not support it.
func isUnsyncable(err error) bool {
	message := err.Error()
	return strings.Contains(message, "invalid argument") || strings.Contains(message, "inappropriate ioctl")
}
