// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package loggia builds a logging configuration and turns it into a running zap sink.
//
// A configuration is built in layers, each one overriding the previous:
//
//	defaults -> presets -> settings -> process environment
//
// Initialize then opens the configured outputs, builds one zap core per handler
// and bridges hclog, logrus and the standard library log package into it:
//
//	rt, err := loggia.Setup(loggia.WithPresets("dev"))
//	if err != nil {
//		return err
//	}
//	defer rt.Close()
//	defer rt.LogPanic()
//
//	rt.Logger("app.db").Info("connected", zap.String("host", host))
package loggia
