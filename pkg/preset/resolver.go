// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package preset

import (
	"maps"
	"slices"
	"strings"

	"github.com/mia-platform/loggia/pkg/bootstrap"
)

// Resolution holds every step of a preset resolution.
type Resolution struct {
	// Preferences are the normalized preference tokens, including the keys of the
	// presets found in the Registry.
	Preferences []string
	// Unslotted presets are candidates regardless of the preferences.
	Unslotted []Preset
	// Slotted maps every slot to its candidates, sorted by preference key.
	Slotted map[string][]Preset
	// Selected maps every slot to the candidate chosen for it.
	Selected map[string]Preset
	// Dropped presets were candidates whose requirements were not met.
	Dropped []Preset
	// Resolved presets are the ones to apply, in application order.
	Resolved []Preset
}

// Keys returns the preference keys of the resolved presets in application order.
func (r *Resolution) Keys() []string {
	keys := make([]string, 0, len(r.Resolved))
	for _, p := range r.Resolved {
		keys = append(keys, PreferenceKey(p))
	}

	return keys
}

// Resolver selects the presets to apply among the builtins and the presets
// requested from the Registry.
type Resolver struct {
	Builtins    []Factory
	Registry    *Registry
	Diagnostics *bootstrap.Logger
}

// Resolve runs the resolution for the given preference tokens. Tokens are
// preference keys, preset names or fully qualified names known by the Registry,
// and are compared ignoring case. Problems are recorded in Diagnostics and never
// stop the resolution.
func (r Resolver) Resolve(preferences []string) *Resolution {
	wanted := normalize(preferences)
	pool := r.instantiate()

	for _, token := range slices.Sorted(maps.Keys(wanted)) {
		if matchesAny(pool, token) {
			continue
		}

		p, found := r.Registry.Lookup(token)
		if !found {
			r.Diagnostics.Warn("preset %q matches no builtin nor registered preset, skipping it", token)
			continue
		}

		key := PreferenceKey(p)
		if _, shadowed := pool[key]; shadowed {
			r.Diagnostics.Trace("preset %q replaces the builtin preset with the same key", token)
		}
		pool[key] = p
		wanted[key] = struct{}{}
	}

	resolution := &Resolution{
		Preferences: slices.Sorted(maps.Keys(wanted)),
		Slotted:     make(map[string][]Preset),
		Selected:    make(map[string]Preset),
	}

	for _, key := range slices.Sorted(maps.Keys(pool)) {
		p := pool[key]
		slots := SlotsOf(p)
		if len(slots) == 0 {
			resolution.Unslotted = append(resolution.Unslotted, p)
			continue
		}

		for _, slot := range slices.Compact(slices.Sorted(slices.Values(slots))) {
			resolution.Slotted[slot] = append(resolution.Slotted[slot], p)
		}
	}

	candidates := slices.Clone(resolution.Unslotted)
	for _, slot := range slices.Sorted(maps.Keys(resolution.Slotted)) {
		winner := r.selectSlot(slot, resolution.Slotted[slot], resolution.Preferences)
		resolution.Selected[slot] = winner
		if !containsKey(candidates, PreferenceKey(winner)) {
			candidates = append(candidates, winner)
		}
	}

	kept, dropped := Eliminate(candidates)
	for _, p := range dropped {
		r.Diagnostics.Trace("preset %q disabled: requirement %s is not met", PreferenceKey(p), RequirementsOf(p))
	}
	resolution.Dropped = dropped

	ordered, cyclic := Order(kept)
	if len(cyclic) > 0 {
		r.Diagnostics.Warn("presets %s have cyclic requirements, applying them in alphabetical order", strings.Join(keysOf(cyclic), ", "))
	}
	resolution.Resolved = append(ordered, cyclic...)

	return resolution
}

// selectSlot picks the candidate of slot matching the preferences, falling back
// to the alphabetically first key when the choice is ambiguous.
func (r Resolver) selectSlot(slot string, candidates []Preset, preferences []string) Preset {
	if len(candidates) == 1 {
		return candidates[0]
	}

	var matching []Preset
	for _, p := range candidates {
		if slices.ContainsFunc(preferences, func(token string) bool { return Matches(p, token) }) {
			matching = append(matching, p)
		}
	}

	switch len(matching) {
	case 1:
		return matching[0]
	case 0:
		r.Diagnostics.Warn(
			"preset slot %q is ambiguous: several presets are available (%s) but no preference is set, use LOGGIA_PRESETS to force one; defaulting to %q",
			slot, strings.Join(keysOf(candidates), ", "), PreferenceKey(candidates[0]),
		)
		return candidates[0]
	default:
		r.Diagnostics.Warn(
			"preset slot %q is ambiguous: preferences match several presets (%s), use LOGGIA_PRESETS to force one; defaulting to %q",
			slot, strings.Join(keysOf(matching), ", "), PreferenceKey(matching[0]),
		)
		return matching[0]
	}
}

// instantiate builds the builtins, indexed by preference key.
func (r Resolver) instantiate() map[string]Preset {
	pool := make(map[string]Preset, len(r.Builtins))
	for _, factory := range r.Builtins {
		if factory == nil {
			continue
		}

		p := factory()
		key := PreferenceKey(p)
		if _, found := pool[key]; found {
			r.Diagnostics.Warn("builtin preset %q is declared twice, keeping the last one", key)
		}
		pool[key] = p
	}

	return pool
}

// Eliminate removes from candidates the presets whose requirements are not
// satisfied by the remaining candidates, until no preset is removed in a full
// pass. Running it again on kept removes nothing.
func Eliminate(candidates []Preset) (kept, dropped []Preset) {
	kept = slices.Clone(candidates)
	for {
		current := kept
		present := func(ref string) bool {
			return slices.ContainsFunc(current, func(p Preset) bool { return Matches(p, ref) })
		}

		next := make([]Preset, 0, len(current))
		for _, p := range current {
			if satisfied(RequirementsOf(p), present) {
				next = append(next, p)
				continue
			}
			dropped = append(dropped, p)
		}

		kept = next
		if len(next) == len(current) {
			return kept, dropped
		}
	}
}

// Order sorts presets so that every preset comes after the presets its requirement
// refers to, breaking ties by preference key. Presets caught in a requirement cycle
// cannot be ordered and are returned apart, sorted by preference key.
func Order(presets []Preset) (ordered, cyclic []Preset) {
	sorted := slices.Clone(presets)
	slices.SortStableFunc(sorted, func(a, b Preset) int {
		return strings.Compare(PreferenceKey(a), PreferenceKey(b))
	})

	dependents := make([][]int, len(sorted))
	pending := make([]int, len(sorted))
	for i, p := range sorted {
		requirement := RequirementsOf(p)
		if requirement == nil {
			continue
		}

		refs := requirement.Refs()
		for j, q := range sorted {
			if i == j || !slices.ContainsFunc(refs, func(ref string) bool { return Matches(q, ref) }) {
				continue
			}
			dependents[j] = append(dependents[j], i)
			pending[i]++
		}
	}

	var ready []int
	for i := range sorted {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	done := make([]bool, len(sorted))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		done[i] = true
		ordered = append(ordered, sorted[i])

		for _, dependent := range dependents[i] {
			pending[dependent]--
			if pending[dependent] == 0 {
				ready = append(ready, dependent)
				slices.Sort(ready)
			}
		}
	}

	for i, p := range sorted {
		if !done[i] {
			cyclic = append(cyclic, p)
		}
	}

	return ordered, cyclic
}

func normalize(preferences []string) map[string]struct{} {
	wanted := make(map[string]struct{}, len(preferences))
	for _, token := range preferences {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" {
			wanted[token] = struct{}{}
		}
	}

	return wanted
}

func matchesAny(pool map[string]Preset, token string) bool {
	for _, p := range pool {
		if Matches(p, token) {
			return true
		}
	}

	return false
}

func keysOf(presets []Preset) []string {
	keys := make([]string, 0, len(presets))
	for _, p := range presets {
		keys = append(keys, PreferenceKey(p))
	}

	return keys
}

func containsKey(presets []Preset, key string) bool {
	return slices.ContainsFunc(presets, func(p Preset) bool { return PreferenceKey(p) == key })
}
