// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gencontext

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/perplex/internal/condition"
)

// Fragment is what a pattern backend produces for one pattern: the token
// identifier it assigned and an opaque expression that matches the pattern
// in the generated scanner.
type Fragment struct {
	Token int
	Code  string
}

// RuleSpec is the input to RecordRule.
type RuleSpec struct {
	Fragment Fragment
	Pattern  string
	Action   string
	Name     string

	// Conditions are the names the rule is scoped to. Wildcard marks a rule
	// that applies everywhere.
	Conditions []string

	// ActionLine is the specification line where the action text starts, or
	// 0 if unknown.
	ActionLine int
	Range      hcl.Range
}

// Rule is one pattern-to-action mapping.
type Rule struct {
	Token    int
	Pattern  string
	Fragment string
	Name     string
	Action   string

	Conditions []condition.Condition
	Wildcard   bool

	// EndsInReturn reports whether the action's final statement is a return.
	EndsInReturn bool

	ActionLine int
	Range      hcl.Range
}

// FallsThrough reports whether control leaves the action without returning
// a token. These are the rules safe mode changes.
func (r *Rule) FallsThrough() bool {
	return !r.EndsInReturn
}

// OwnedBy reports whether the rule is active in condition id.
func (r *Rule) OwnedBy(id int) bool {
	return r.owns(id)
}

func (r *Rule) owns(id int) bool {
	for _, c := range r.Conditions {
		if c.ID == id {
			return true
		}
	}
	return false
}
