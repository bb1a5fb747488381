// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package builtin

import (
	"github.com/mia-platform/loggia/pkg/conf"
	"github.com/mia-platform/loggia/pkg/envbind"
)

// noisyLoggers are libraries too chatty at debug level to be useful during development.
var noisyLoggers = []string{"grpc", "fiber", "fsnotify"}

// devEnv binds SET_ADD_CALLER to (*Dev).setAddCaller.
var devEnv = envbind.NewRegistry[*Dev]().
	MustRegister("", envbind.SingleBoolean, (*Dev).setAddCaller)

// Dev is the preset for a pleasant development experience: colored
// human readable output at debug level.
type Dev struct {
	addCaller bool
}

// NewDev returns a Dev preset annotating records with their caller.
func NewDev() *Dev {
	return &Dev{addCaller: true}
}

func (*Dev) Slots() []string {
	return []string{mainSlot}
}

func (d *Dev) ApplyEnv(env map[string]string) error {
	return devEnv.Apply(d, env)
}

func (d *Dev) setAddCaller(args envbind.Args) error {
	enabled, err := args.Bool(0)
	if err != nil {
		return err
	}

	d.addCaller = enabled
	return nil
}

func (d *Dev) Apply(c *conf.Configuration) error {
	if err := c.SetGeneralLevel(string(conf.LevelDebug)); err != nil {
		return err
	}
	if err := c.SetDefaultFormatter(conf.Class("PrettyFormatter", nil)); err != nil {
		return err
	}
	c.SetAddCaller(d.addCaller)

	for _, name := range noisyLoggers {
		if err := c.SetLoggerLevel(name, string(conf.LevelInfo)); err != nil {
			return err
		}
	}

	return nil
}
