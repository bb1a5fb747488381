// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package envbind binds environment variable names to setter calls on a target.
// Every binding pairs a parser, turning the raw variable value into a list of
// argument tuples, with a setter that is invoked once per tuple. Variable names
// are claimed process wide: the same name cannot be bound twice.
package envbind
