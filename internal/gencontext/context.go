// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package gencontext holds the state accumulated while a specification is
// consumed: options, output destinations, the condition table and the rules.
//
// A Context is owned by exactly one generation run. It is mutated only while
// declarations are being consumed and becomes read-only once Finalize has
// produced a Snapshot; the template engine only ever sees the Snapshot.
package gencontext

import (
	"fmt"

	"github.com/specialistvlad/perplex/internal/condition"
	"github.com/specialistvlad/perplex/internal/generr"
)

// Wildcard is the condition name meaning "every declared condition".
const Wildcard = "*"

// DefaultPackage is the package clause used when the specification sets none.
const DefaultPackage = "scanner"

// Options are the mode flags of a run.
type Options struct {
	// HeaderRequested moves public declarations into a companion file.
	HeaderRequested bool
	// SafeMode makes rules whose action does not return skip their text.
	SafeMode bool
	// UsingConditions enables start-condition parsing and validation.
	UsingConditions bool
	// LineDirectives emits //line comments around rule actions.
	LineDirectives bool

	Package  string
	Preamble string
}

// Paths are the files taking part in a run. Empty Output means standard
// output; empty Template means the bundled template.
type Paths struct {
	Input    string
	Output   string
	Header   string
	Template string
}

// Context accumulates specification state for one run.
type Context struct {
	opts       Options
	paths      Paths
	conditions *condition.Table
	rules      []*Rule
	finalized  bool
}

// Begin creates a context initialised with the given options.
func Begin(opts Options, paths Paths) *Context {
	if opts.Package == "" {
		opts.Package = DefaultPackage
	}
	return &Context{
		opts:       opts,
		paths:      paths,
		conditions: condition.NewTable(),
	}
}

// Options returns the current options.
func (c *Context) Options() Options {
	return c.opts
}

// Paths returns the run's file paths.
func (c *Context) Paths() Paths {
	return c.paths
}

// Conditions exposes the condition table for condition-block declarations.
func (c *Context) Conditions() *condition.Table {
	return c.conditions
}

// RuleCount reports how many rules have been recorded.
func (c *Context) RuleCount() int {
	return len(c.rules)
}

// UpdateOptions applies fn to the options.
func (c *Context) UpdateOptions(fn func(*Options)) {
	c.mustBeOpen("UpdateOptions")
	fn(&c.opts)
}

// RecordRule validates spec against the current options and conditions and
// appends the resulting rule.
func (c *Context) RecordRule(spec RuleSpec) (*Rule, error) {
	c.mustBeOpen("RecordRule")

	rule := &Rule{
		Token:        spec.Fragment.Token,
		Pattern:      spec.Pattern,
		Fragment:     spec.Fragment.Code,
		Name:         spec.Name,
		Action:       spec.Action,
		ActionLine:   spec.ActionLine,
		EndsInReturn: EndsInReturn(spec.Action),
		Range:        spec.Range,
	}

	if !c.opts.UsingConditions {
		if len(spec.Conditions) > 0 {
			return nil, generr.New(generr.ErrConditionsDisabled, &spec.Range,
				"rule %q is scoped to %v; enable start conditions with --conditions or `conditions = true`",
				spec.Pattern, spec.Conditions)
		}
		c.rules = append(c.rules, rule)
		return rule, nil
	}

	if len(spec.Conditions) == 0 {
		rule.Wildcard = true
	}
	for _, name := range spec.Conditions {
		if name == Wildcard {
			rule.Wildcard = true
			continue
		}
		id, err := c.conditions.Lookup(name)
		if err != nil {
			e := generr.New(generr.ErrUnknownCondition, &spec.Range, "rule %q", spec.Pattern)
			e.Err = err
			return nil, e
		}
		if !rule.owns(id) {
			rule.Conditions = append(rule.Conditions, condition.Condition{Name: name, ID: id})
		}
	}
	c.rules = append(c.rules, rule)
	return rule, nil
}

// Finalize freezes the context and returns the immutable view used for
// output. Wildcard rules are bound to every declared condition here, so
// conditions declared after such a rule still receive it.
func (c *Context) Finalize() (*Snapshot, error) {
	c.mustBeOpen("Finalize")
	c.finalized = true
	c.conditions.Freeze()

	all := c.conditions.All()
	rules := make([]Rule, 0, len(c.rules))
	for _, r := range c.rules {
		rule := *r
		rule.Conditions = append([]condition.Condition(nil), r.Conditions...)
		if rule.Wildcard {
			if len(all) == 0 {
				return nil, generr.New(generr.ErrUnknownCondition, &rule.Range,
					"rule %q applies to every start condition, but none are declared", rule.Pattern)
			}
			rule.Conditions = append([]condition.Condition(nil), all...)
		}
		rules = append(rules, rule)
	}

	snap := &Snapshot{
		Options: c.opts,
		Paths:   c.paths,
		Rules:   rules,
	}
	if c.opts.UsingConditions {
		snap.Conditions = all
	}
	return snap, nil
}

func (c *Context) mustBeOpen(op string) {
	if c.finalized {
		panic(fmt.Sprintf("gencontext: %s called after Finalize", op))
	}
}
