// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package builtin

import (
	"github.com/mia-platform/loggia/pkg/conf"
	"github.com/mia-platform/loggia/pkg/preset"
)

// DatadogNormalisation remaps records to the Datadog standard attributes.
type DatadogNormalisation struct{}

func NewDatadogNormalisation() *DatadogNormalisation {
	return &DatadogNormalisation{}
}

func (*DatadogNormalisation) Slots() []string {
	return []string{normalizationSlot}
}

func (*DatadogNormalisation) Requirements() preset.Requirement {
	return preset.Requires("prod")
}

func (*DatadogNormalisation) Apply(c *conf.Configuration) error {
	return c.SetDefaultFormatter(conf.Class("DatadogFormatter", nil))
}
