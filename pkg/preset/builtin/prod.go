// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package builtin

import (
	"github.com/mia-platform/loggia/pkg/conf"
)

// Prod is the preset for a no-frills JSON production logger.
type Prod struct{}

func NewProd() *Prod {
	return &Prod{}
}

func (*Prod) Slots() []string {
	return []string{mainSlot}
}

func (*Prod) Apply(c *conf.Configuration) error {
	if err := c.SetDefaultFormatter(conf.Class("JSONFormatter", nil)); err != nil {
		return err
	}
	if err := c.SetGeneralLevel(string(conf.LevelInfo)); err != nil {
		return err
	}
	c.SetPanicHook(true)
	c.SetCaptureStdlog(true)

	// ingress and api gateways already provide access logs
	return c.SetLoggerLevel("fiber.access", string(conf.LevelWarning))
}
