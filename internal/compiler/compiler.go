// Package compiler folds the declaration stream of a specification into a
// generation context. It implements decl.Visitor and delegates pattern
// compilation to an injected Backend.
package compiler

import (
	"context"
	"go/token"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/perplex/internal/ctxlog"
	"github.com/specialistvlad/perplex/internal/decl"
	"github.com/specialistvlad/perplex/internal/gencontext"
	"github.com/specialistvlad/perplex/internal/generr"
)

// Backend compiles one pattern into matching code and assigns it the next
// token identifier.
type Backend interface {
	Compile(pattern string) (gencontext.Fragment, error)
}

type scope struct {
	names []string
	rng   hcl.Range
}

// Compiler consumes declarations for a single generation context.
type Compiler struct {
	gc      *gencontext.Context
	backend Backend
	scopes  []scope
	names   map[string]hcl.Range
	ended   bool
}

var _ decl.Visitor = (*Compiler)(nil)

// New creates a compiler feeding gc.
func New(gc *gencontext.Context, backend Backend) *Compiler {
	return &Compiler{gc: gc, backend: backend, names: map[string]hcl.Range{}}
}

// OpenConditions declares the named conditions and opens a scope for them.
// Start conditions must already be enabled, so the conditions option has to
// precede the first condition block.
func (c *Compiler) OpenConditions(ctx context.Context, d decl.ConditionOpen) error {
	logger := ctxlog.FromContext(ctx)
	if !c.gc.Options().UsingConditions {
		return generr.New(generr.ErrConditionsDisabled, &d.Range,
			"condition block %v; enable start conditions with --conditions or `conditions = true` before the first condition block", d.Names)
	}
	if len(d.Names) == 0 {
		return generr.New(generr.ErrSyntax, &d.Range, "condition block names no conditions")
	}
	for _, name := range d.Names {
		if name == gencontext.Wildcard {
			continue
		}
		if !token.IsIdentifier(name) {
			return generr.New(generr.ErrSyntax, &d.Range, "condition name %q is not a valid identifier", name)
		}
		id := c.gc.Conditions().Declare(name)
		logger.Debug("Condition declared.", "condition", name, "id", id)
	}
	c.scopes = append(c.scopes, scope{names: d.Names, rng: d.Range})
	return nil
}

// CloseConditions closes the innermost condition scope.
func (c *Compiler) CloseConditions(ctx context.Context, d decl.ConditionClose) error {
	if len(c.scopes) == 0 {
		return generr.New(generr.ErrSyntax, &d.Range, "condition block closed without being opened")
	}
	c.scopes = c.scopes[:len(c.scopes)-1]
	return nil
}

// Rule compiles the pattern and records the rule under the current scope.
func (c *Compiler) Rule(ctx context.Context, d decl.Rule) error {
	logger := ctxlog.FromContext(ctx).With("pattern", d.Pattern)

	if d.Name != "" && !token.IsIdentifier(d.Name) {
		return generr.New(generr.ErrSyntax, &d.Range, "token name %q is not a valid identifier", d.Name)
	}
	if prev, dup := c.names[d.Name]; dup {
		return generr.New(generr.ErrSyntax, &d.Range, "token name %q already used by the rule at %s", d.Name, prev)
	}

	frag, err := c.backend.Compile(d.Pattern)
	if err != nil {
		subject := d.PatternRange
		if subject.Filename == "" {
			subject = d.Range
		}
		e := generr.New(generr.ErrPattern, &subject, "%q", d.Pattern)
		e.Err = err
		return e
	}

	var conds []string
	if len(c.scopes) > 0 {
		conds = c.scopes[len(c.scopes)-1].names
	}

	rule, err := c.gc.RecordRule(gencontext.RuleSpec{
		Fragment:   frag,
		Pattern:    d.Pattern,
		Action:     d.Action,
		Name:       d.Name,
		Conditions: conds,
		ActionLine: d.ActionLine,
		Range:      d.Range,
	})
	if err != nil {
		return err
	}
	if d.Name != "" {
		c.names[d.Name] = d.Range
	}
	logger.Debug("Rule recorded.", "token", rule.Token, "falls_through", rule.FallsThrough(), "wildcard", rule.Wildcard)
	return nil
}

// End verifies that every condition scope was closed.
func (c *Compiler) End(ctx context.Context) error {
	if c.ended {
		panic("compiler: End called twice")
	}
	c.ended = true
	if n := len(c.scopes); n > 0 {
		open := c.scopes[n-1]
		return generr.New(generr.ErrSyntax, &open.rng, "condition block %v is never closed", open.names)
	}
	ctxlog.FromContext(ctx).Debug("Declaration stream consumed.", "rules", c.gc.RuleCount(), "conditions", c.gc.Conditions().Len())
	return nil
}
