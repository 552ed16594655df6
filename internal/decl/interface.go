// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package decl

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Visitor consumes declarations. Returning an error aborts the parse.
type Visitor interface {
	Option(ctx context.Context, o Option) error
	OpenConditions(ctx context.Context, c ConditionOpen) error
	CloseConditions(ctx context.Context, c ConditionClose) error
	Rule(ctx context.Context, r Rule) error
	// End is called once after the last declaration.
	End(ctx context.Context) error
}

// Parser is the interface for a format-specific specification front end.
type Parser interface {
	// Parse reads src and drives v with the declarations found in it.
	Parse(ctx context.Context, filename string, src []byte, v Visitor) error

	// Files returns the sources parsed so far, keyed by filename, for
	// diagnostic snippets.
	Files() map[string]*hcl.File
}
