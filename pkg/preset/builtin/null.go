// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package builtin

import (
	"github.com/mia-platform/loggia/pkg/conf"
)

// NullPreset changes nothing. Copy it as a template for your own presets.
type NullPreset struct{}

func NewNullPreset() *NullPreset {
	return &NullPreset{}
}

func (*NullPreset) Apply(_ *conf.Configuration) error {
	return nil
}
