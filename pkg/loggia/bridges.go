// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package loggia

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mia-platform/loggia/pkg/conf"
)

const (
	// StdlibLogger receives the records of the standard library log package.
	StdlibLogger = "stdlib"
	// LogrusLogger receives the logrus records without a "logger" field.
	LogrusLogger = "logrus"
)

// capture redirects the front-ends enabled in the configuration into the handlers.
func (rt *Runtime) capture() {
	if rt.config.CaptureHclog {
		previous := hclog.Default()
		hclog.SetDefault(rt.Hclog(conf.RootLogger))
		rt.restores = append(rt.restores, func() { hclog.SetDefault(previous) })
	}

	if rt.config.CaptureLogrus {
		rt.captureLogrus()
	}

	if rt.config.CaptureStdlog {
		restore, err := zap.RedirectStdLogAt(rt.bridgeLogger(StdlibLogger), zapcore.InfoLevel)
		if err != nil {
			rt.config.Diagnostics.Error(err, "cannot capture the standard library logger")
			return
		}
		rt.restores = append(rt.restores, restore)
	}
}

// bridgeLogger is Logger without caller annotation, since the caller of a bridged
// record is always the bridge itself.
func (rt *Runtime) bridgeLogger(name string) *zap.Logger {
	rt.mu.RLock()
	logger, found := rt.bridges[name]
	rt.mu.RUnlock()
	if found {
		return logger
	}

	logger = rt.Logger(name).WithOptions(zap.WithCaller(false))

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if existing, found := rt.bridges[name]; found {
		return existing
	}
	rt.bridges[name] = logger
	return logger
}

// Hclog returns an hclog logger called name writing to the handlers of the
// logger with the same name.
func (rt *Runtime) Hclog(name string) hclog.Logger {
	rt.hclogOnce.Do(func() {
		rt.hclogRoot = hclog.NewInterceptLogger(&hclog.LoggerOptions{
			Output: io.Discard,
			Level:  hclog.Trace,
		})
		rt.hclogRoot.RegisterSink(&hclogSink{rt: rt})
	})

	if name == conf.RootLogger {
		return rt.hclogRoot
	}

	return rt.hclogRoot.Named(name)
}

// hclogSink forwards the records of the intercept logger to zap.
type hclogSink struct {
	rt *Runtime
}

func (s *hclogSink) Accept(name string, level hclog.Level, msg string, args ...interface{}) {
	checked := s.rt.bridgeLogger(name).Check(hclogLevel(level), msg)
	if checked == nil {
		return
	}

	checked.Write(hclogFields(args)...)
}

func hclogLevel(level hclog.Level) zapcore.Level {
	switch level {
	case hclog.Trace:
		return conf.TraceLevel
	case hclog.Debug:
		return zapcore.DebugLevel
	case hclog.Warn:
		return zapcore.WarnLevel
	case hclog.Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func hclogFields(args []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			fields = append(fields, zap.Any(hclog.MissingKey, args[i]))
			break
		}

		key := fmt.Sprint(args[i])
		if err, ok := args[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}

	return fields
}

// Logrus returns a logrus logger writing to the handlers: the standard logger if
// logrus capture is enabled, a dedicated one otherwise.
func (rt *Runtime) Logrus() *logrus.Logger {
	rt.logrusOnce.Do(func() {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		logger.SetLevel(logrus.TraceLevel)
		logger.AddHook(&logrusHook{rt: rt, guard: true})
		rt.logrusLog = logger
	})

	return rt.logrusLog
}

func (rt *Runtime) captureLogrus() {
	std := logrus.StandardLogger()
	previousOut := std.Out
	previousLevel := std.GetLevel()

	hooks := make(logrus.LevelHooks)
	previousHooks := std.ReplaceHooks(hooks)
	for level, levelHooks := range previousHooks {
		hooks[level] = append(hooks[level], levelHooks...)
	}
	std.AddHook(&logrusHook{rt: rt, guard: rt.config.DisallowLogrusReconfig})
	std.SetOutput(io.Discard)
	std.SetLevel(logrus.TraceLevel)

	rt.logrusOnce.Do(func() { rt.logrusLog = std })
	rt.restores = append(rt.restores, func() {
		std.ReplaceHooks(previousHooks)
		std.SetOutput(previousOut)
		std.SetLevel(previousLevel)
	})
}

// logrusHook forwards logrus entries to zap. A guarding hook also puts back the
// discarded output and the trace level on every entry, so that a later
// reconfiguration of the logrus logger cannot print records twice.
type logrusHook struct {
	rt    *Runtime
	guard bool
}

func (h *logrusHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *logrusHook) Fire(entry *logrus.Entry) error {
	if h.guard {
		entry.Logger.SetOutput(io.Discard)
		entry.Logger.SetLevel(logrus.TraceLevel)
	}

	name := LogrusLogger
	fields := make([]zap.Field, 0, len(entry.Data))
	for key, value := range entry.Data {
		switch {
		case key == "logger":
			if s, ok := value.(string); ok {
				name = s
				continue
			}
		case key == logrus.ErrorKey:
			if err, ok := value.(error); ok {
				fields = append(fields, zap.Error(err))
				continue
			}
		}
		fields = append(fields, zap.Any(key, value))
	}

	checked := h.rt.bridgeLogger(name).Check(logrusLevel(entry.Level), entry.Message)
	if checked == nil {
		return nil
	}

	checked.Time = entry.Time
	checked.Write(fields...)
	return nil
}

func logrusLevel(level logrus.Level) zapcore.Level {
	switch level {
	case logrus.TraceLevel:
		return conf.TraceLevel
	case logrus.DebugLevel:
		return zapcore.DebugLevel
	case logrus.InfoLevel:
		return zapcore.InfoLevel
	case logrus.WarnLevel:
		return zapcore.WarnLevel
	case logrus.ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return conf.LevelCritical.ZapLevel()
	}
}
