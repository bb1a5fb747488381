// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/oklog/run"

	"github.com/mia-platform/loggia/internal/logger"
	"github.com/mia-platform/loggia/internal/server"
	"github.com/mia-platform/loggia/pkg/bootstrap"
	"github.com/mia-platform/loggia/pkg/loggia"
	"github.com/mia-platform/loggia/pkg/preset"
	"github.com/mia-platform/loggia/pkg/preset/builtin"
)

const (
	cliLoggerName = "loggia.cli"
	noValue       = "-"
)

// options configures a single execution of a loggia command.
type options struct {
	presets      []string
	presetsSet   bool
	settingsFile string
	output       string
	outputs      []string
	levelFile    string
	serverGetter func(*loggia.Runtime) (server.Server, error)
	out          io.Writer

	lock sync.Mutex
}

// validate checks the configured values and reports invalid setups.
func (o *options) validate() error {
	if len(o.outputs) > 0 && !slices.Contains(o.outputs, o.output) {
		return fmt.Errorf("%w: %q, expected one of: %s", errInvalidOutput, o.output, strings.Join(o.outputs, ", "))
	}

	return nil
}

// loggiaOptions translates the command options for the loggia package.
func (o *options) loggiaOptions() []loggia.Option {
	var opts []loggia.Option
	if o.presetsSet {
		opts = append(opts, loggia.WithPresets(o.presets...))
	}
	if o.settingsFile != "" {
		opts = append(opts, loggia.WithSettingsFile(o.settingsFile))
	}

	return opts
}

type presetInfo struct {
	Name     string   `json:"name" yaml:"name"`
	Key      string   `json:"key" yaml:"key"`
	Slots    []string `json:"slots,omitempty" yaml:"slots,omitempty"`
	Requires string   `json:"requires,omitempty" yaml:"requires,omitempty"`
}

func newPresetInfo(p preset.Preset) presetInfo {
	info := presetInfo{
		Name:  preset.NameOf(p),
		Key:   preset.PreferenceKey(p),
		Slots: preset.SlotsOf(p),
	}
	if requirement := preset.RequirementsOf(p); requirement != nil {
		info.Requires = requirement.String()
	}

	return info
}

func orDash(values ...string) string {
	if joined := strings.Join(values, ","); joined != "" {
		return joined
	}
	return noValue
}

// executePresets lists the builtin presets.
func (o *options) executePresets() error {
	infos := make([]presetInfo, 0)
	for _, factory := range builtin.All() {
		infos = append(infos, newPresetInfo(factory()))
	}
	slices.SortFunc(infos, func(a, b presetInfo) int { return strings.Compare(a.Key, b.Key) })

	if o.output != outputText {
		return encode(o.out, o.output, infos)
	}

	w := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tSLOTS\tREQUIRES")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Key, info.Name, orDash(info.Slots...), orDash(info.Requires))
	}
	return w.Flush()
}

type resolveReport struct {
	Preferences []string          `json:"preferences" yaml:"preferences"`
	Presets     []presetInfo      `json:"presets" yaml:"presets"`
	Selected    map[string]string `json:"selected,omitempty" yaml:"selected,omitempty"`
	Dropped     []string          `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Diagnostics []string          `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

func newResolveReport(resolution *preset.Resolution, diagnostics *bootstrap.Logger) resolveReport {
	report := resolveReport{
		Preferences: resolution.Preferences,
		Presets:     make([]presetInfo, 0, len(resolution.Resolved)),
		Selected:    make(map[string]string, len(resolution.Selected)),
	}
	for _, p := range resolution.Resolved {
		report.Presets = append(report.Presets, newPresetInfo(p))
	}
	for slot, p := range resolution.Selected {
		report.Selected[slot] = preset.PreferenceKey(p)
	}
	for _, p := range resolution.Dropped {
		report.Dropped = append(report.Dropped, preset.PreferenceKey(p))
	}
	for _, entry := range diagnostics.Entries() {
		report.Diagnostics = append(report.Diagnostics, entry.String())
	}

	return report
}

// executeResolve prints the presets that would be applied, in application order.
func (o *options) executeResolve() error {
	diagnostics := bootstrap.New()
	resolution, err := loggia.Resolve(diagnostics, o.loggiaOptions()...)
	if err != nil {
		return err
	}

	report := newResolveReport(resolution, diagnostics)
	if o.output != outputText {
		return encode(o.out, o.output, report)
	}

	w := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tKEY\tSLOTS\tREQUIRES")
	for i, info := range report.Presets {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, info.Key, orDash(info.Slots...), orDash(info.Requires))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, slot := range slices.Sorted(maps.Keys(report.Selected)) {
		fmt.Fprintf(o.out, "slot %s: %s\n", slot, report.Selected[slot])
	}
	if len(report.Dropped) > 0 {
		fmt.Fprintf(o.out, "dropped: %s\n", strings.Join(report.Dropped, ", "))
	}
	for _, diagnostic := range report.Diagnostics {
		fmt.Fprintln(o.out, diagnostic)
	}

	return nil
}

// executeConfig prints the configuration built from presets, settings and environment.
// Construction diagnostics are reported on the command logger.
func (o *options) executeConfig(ctx context.Context) error {
	c, err := loggia.NewConfiguration(o.loggiaOptions()...)
	if err != nil {
		return err
	}

	c.Diagnostics.Replay(logger.FromContext(ctx).Hclog())
	return encode(o.out, o.output, c)
}

// executeServe sets up logging and serves the status routes until ctx is done.
func (o *options) executeServe(ctx context.Context) (err error) {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	rt, err := loggia.Setup(o.loggiaOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); err == nil {
			err = closeErr
		}
	}()
	defer rt.LogPanic()

	log := logger.FromHclog(rt.Hclog(cliLoggerName))
	ctx = logger.WithContext(ctx, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if o.levelFile != "" {
		if err := rt.WatchLevels(ctx, o.levelFile); err != nil {
			return err
		}
	}

	srv, err := o.serverGetter(rt)
	if err != nil {
		return err
	}

	var g run.Group

	// Status server.
	{
		g.Add(
			func() error {
				log.Info("status server listening", "address", srv.Address())
				return srv.Start()
			},
			func(_ error) {
				if err := srv.Stop(); err != nil {
					log.Warn("cannot stop status server", "error", err)
				}
			},
		)
	}

	// Context cancellation (from parent signal handling).
	{
		g.Add(
			func() error {
				<-ctx.Done()
				log.Debug("termination requested")
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}
