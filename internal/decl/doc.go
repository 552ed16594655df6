// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package decl defines the format-agnostic declaration stream that a
// specification front end produces, along with the Visitor that consumes it
// and the Parser interface front ends implement.
//
// The stream is push-style: a Parser calls the Visitor once per declaration,
// in source order, and finishes with End. Concrete front ends, such as the
// HCL one, live in separate packages.
package decl
