// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package preset

import (
	"fmt"
	"strings"
)

// Requirement is a condition on the set of selected presets.
// It is one of Ref, All or Any.
type Requirement interface {
	// Satisfied reports whether the requirement holds, given a function telling
	// whether a preset reference is part of the selection.
	Satisfied(present func(ref string) bool) bool
	// Refs returns every preset reference mentioned by the requirement.
	Refs() []string
	String() string
}

// Ref is satisfied when the preset it names, by name or preference key, is selected.
type Ref string

// All is satisfied when every one of its members is. An empty All is satisfied.
type All []Requirement

// Any is satisfied when at least one of its members is. An empty Any is satisfied.
type Any []Requirement

func (r Ref) Satisfied(present func(string) bool) bool {
	return present(string(r))
}

func (r Ref) Refs() []string {
	return []string{string(r)}
}

func (r Ref) String() string {
	return string(r)
}

func (a All) Satisfied(present func(string) bool) bool {
	for _, requirement := range a {
		if !satisfied(requirement, present) {
			return false
		}
	}

	return true
}

func (a All) Refs() []string {
	return collectRefs(a)
}

func (a All) String() string {
	return joinRequirements(a, " AND ")
}

func (a Any) Satisfied(present func(string) bool) bool {
	if len(a) == 0 {
		return true
	}

	for _, requirement := range a {
		if satisfied(requirement, present) {
			return true
		}
	}

	return false
}

func (a Any) Refs() []string {
	return collectRefs(a)
}

func (a Any) String() string {
	return joinRequirements(a, " OR ")
}

// Requires builds the usual OR of ANDs requirement: every clause is either a
// string, a slice of strings whose members are all needed, or a Requirement.
//
//	Requires("dev", "prod")                  // dev OR prod
//	Requires([]string{"prod", "datadog"})    // prod AND datadog
//	Requires("dev", []string{"prod", "dd"})  // dev OR (prod AND dd)
//
// It panics on any other clause type.
func Requires(clauses ...any) Requirement {
	requirement := make(Any, 0, len(clauses))
	for _, clause := range clauses {
		switch c := clause.(type) {
		case string:
			requirement = append(requirement, Ref(c))
		case []string:
			all := make(All, 0, len(c))
			for _, ref := range c {
				all = append(all, Ref(ref))
			}
			requirement = append(requirement, all)
		case Requirement:
			requirement = append(requirement, c)
		default:
			panic(fmt.Sprintf("preset: unsupported requirement clause %T", clause))
		}
	}

	return requirement
}

func satisfied(requirement Requirement, present func(string) bool) bool {
	return requirement == nil || requirement.Satisfied(present)
}

func collectRefs[T ~[]Requirement](requirements T) []string {
	var refs []string
	for _, requirement := range requirements {
		if requirement != nil {
			refs = append(refs, requirement.Refs()...)
		}
	}

	return refs
}

func joinRequirements[T ~[]Requirement](requirements T, sep string) string {
	parts := make([]string, 0, len(requirements))
	for _, requirement := range requirements {
		if requirement == nil {
			continue
		}

		s := requirement.String()
		if _, isRef := requirement.(Ref); !isRef && len(requirements) > 1 {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}

	return strings.Join(parts, sep)
}
