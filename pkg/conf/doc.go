// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package conf holds the loggia Configuration: a mutable, dict-config shaped description
// of loggers, handlers, formatters and filters, together with the feature toggles used
// when the configuration is turned into a running sink.
//
// A Configuration is mutated in layers (defaults, presets, constructor settings and
// environment variables) and the last writer always wins.
package conf
