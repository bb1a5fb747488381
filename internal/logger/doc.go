// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package logger wraps go-hclog for the command line diagnostics of the loggia tool.
// Loggers travel through commands with the context helpers.
package logger
