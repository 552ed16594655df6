// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package decl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Option is a mode setting such as enabling start conditions.
type Option struct {
	Name  string
	Value cty.Value
	Range hcl.Range
}

// ConditionOpen opens a scope tagging the rules inside it with Names.
type ConditionOpen struct {
	Names []string
	Range hcl.Range
}

// ConditionClose ends the innermost open condition scope.
type ConditionClose struct {
	Range hcl.Range
}

// Rule is one pattern with its action.
type Rule struct {
	Pattern string
	Action  string
	// Name is an optional token constant name for the rule.
	Name string

	// ActionLine is the line the action text starts on, 0 if unknown.
	ActionLine   int
	Range        hcl.Range
	PatternRange hcl.Range
}
