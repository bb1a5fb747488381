// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package middleware provides a fiber middleware emitting one access record per
// request, using the Datadog standard attribute names.
package middleware
