// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package builtin

import (
	"github.com/mia-platform/loggia/pkg/conf"
)

// Fiber configures the loggers used by the fiber access middleware.
type Fiber struct{}

func NewFiber() *Fiber {
	return &Fiber{}
}

func (*Fiber) Apply(c *conf.Configuration) error {
	for _, name := range []string{"fiber.access", "fiber.error"} {
		c.SetLoggerPropagation(name, false)
	}

	return c.AddLogFilter("fiber.access", conf.Class("DropFields", map[string]any{
		"fields": []string{"http.headers.authorization", "http.headers.cookie"},
	}))
}
