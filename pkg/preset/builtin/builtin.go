// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package builtin holds the presets shipped with loggia.
package builtin

import (
	"github.com/mia-platform/loggia/pkg/preset"
)

const (
	mainSlot          = "main"
	normalizationSlot = "normalization"
)

// All returns the factories of every builtin preset.
func All() []preset.Factory {
	return []preset.Factory{
		func() preset.Preset { return NewDev() },
		func() preset.Preset { return NewProd() },
		func() preset.Preset { return NewDatadogNormalisation() },
		func() preset.Preset { return NewFiber() },
		func() preset.Preset { return NewNullPreset() },
	}
}
