// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package loggia

import (
	"slices"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/mia-platform/loggia/pkg/conf"
)

// Filter classes understood by Initialize.
const (
	// ExtraAllow keeps only the fields listed in its "allow" option.
	ExtraAllow = conf.ComponentPrefix + "ExtraAllow"
	// DropFields removes the fields listed in its "fields" option.
	DropFields = conf.ComponentPrefix + "DropFields"
	// ExcludeMessages drops the records whose message starts with one of its "prefixes".
	ExcludeMessages = conf.ComponentPrefix + "ExcludeMessages"
)

type filterOptions struct {
	Allow    []string `yaml:"allow"`
	Fields   []string `yaml:"fields"`
	Prefixes []string `yaml:"prefixes"`
}

type filterFactory func(core zapcore.Core, opts filterOptions) zapcore.Core

var filters = map[string]filterFactory{
	ExtraAllow: func(core zapcore.Core, opts filterOptions) zapcore.Core {
		return &fieldFilterCore{Core: core, keep: func(key string) bool { return slices.Contains(opts.Allow, key) }}
	},
	DropFields: func(core zapcore.Core, opts filterOptions) zapcore.Core {
		return &fieldFilterCore{Core: core, keep: func(key string) bool { return !slices.Contains(opts.Fields, key) }}
	},
	ExcludeMessages: func(core zapcore.Core, opts filterOptions) zapcore.Core {
		return &messageFilterCore{Core: core, prefixes: opts.Prefixes}
	},
}

func filterClasses() []string {
	return []string{ExtraAllow, DropFields, ExcludeMessages}
}

// wrapFilters wraps core with the filters designated by ids, in order.
// Unknown filters are skipped.
func wrapFilters(c *conf.Configuration, core zapcore.Core, ids []string) zapcore.Core {
	for _, id := range ids {
		component, found := c.Filters[id]
		if !found {
			c.Diagnostics.Warn("filter %q is not registered, skipping it", id)
			continue
		}

		factory, found := filters[component.Class]
		if !found {
			c.Diagnostics.Warn("filter class %q is unknown (known: %s), skipping it",
				component.Class, strings.Join(filterClasses(), ", "))
			continue
		}

		var opts filterOptions
		if err := decodeOptions(component.Options, &opts); err != nil {
			c.Diagnostics.Error(err, "filter %q has invalid options, skipping it", id)
			continue
		}

		core = factory(core, opts)
	}

	return core
}

// fieldFilterCore removes the fields for which keep returns false, both from
// the context added with With and from each record.
type fieldFilterCore struct {
	zapcore.Core
	keep func(key string) bool
}

func (c *fieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &fieldFilterCore{Core: c.Core.With(c.filter(fields)), keep: c.keep}
}

func (c *fieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}

	return checked
}

func (c *fieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(entry, c.filter(fields))
}

func (c *fieldFilterCore) filter(fields []zapcore.Field) []zapcore.Field {
	kept := make([]zapcore.Field, 0, len(fields))
	for _, field := range fields {
		if c.keep(field.Key) {
			kept = append(kept, field)
		}
	}

	return kept
}

// messageFilterCore drops the records whose message starts with one of prefixes.
type messageFilterCore struct {
	zapcore.Core
	prefixes []string
}

func (c *messageFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &messageFilterCore{Core: c.Core.With(fields), prefixes: c.prefixes}
}

func (c *messageFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.excluded(entry.Message) || !c.Enabled(entry.Level) {
		return checked
	}

	return checked.AddCore(entry, c)
}

func (c *messageFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if c.excluded(entry.Message) {
		return nil
	}

	return c.Core.Write(entry, fields)
}

func (c *messageFilterCore) excluded(message string) bool {
	return slices.ContainsFunc(c.prefixes, func(prefix string) bool {
		return strings.HasPrefix(message, prefix)
	})
}

// levelCore gates a core with a level that can change while the core is in use.
type levelCore struct {
	zapcore.Core
	level func() zapcore.Level
}

func (c *levelCore) Enabled(level zapcore.Level) bool {
	return level >= c.level() && c.Core.Enabled(level)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if entry.Level < c.level() {
		return checked
	}

	return c.Core.Check(entry, checked)
}

func (c *levelCore) Level() zapcore.Level {
	return c.level()
}
