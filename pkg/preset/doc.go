// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package preset resolves which presets are applied to a logging configuration.
//
// A preset is a bundle of configuration changes addressing one concern. Presets
// sharing a slot are mutually exclusive: only one of them is selected, using the
// caller preferences and an alphabetical tie-break. Presets can also require other
// presets; those whose requirements are not met by the selection are dropped,
// and the survivors are ordered so that every preset is applied after the presets
// it depends on.
package preset
