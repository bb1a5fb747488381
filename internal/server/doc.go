// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package server contains the status server started by the loggia serve command.
// It sets up the HTTP server using the Fiber framework, logs every request through
// the access middleware, and exposes health, readiness and logging configuration routes.
package server
