// Package hclspec reads scanner specifications written in HCL and drives a
// decl.Visitor with the declarations they contain.
//
// A specification looks like this:
//
//	conditions = true
//	package    = "calc"
//
//	condition "INITIAL" {
//	  rule "[0-9]+" {
//	    name   = "NUMBER"
//	    action = "return NUMBER"
//	  }
//	}
//
// Top-level attributes are options. Blocks are visited in the order they
// appear in the file, so an option written after a rule is reported as late.
package hclspec

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/perplex/internal/ctxlog"
	"github.com/specialistvlad/perplex/internal/decl"
	"github.com/specialistvlad/perplex/internal/generr"
)

const (
	blockCondition = "condition"
	blockRule      = "rule"
)

var blockTypes = []string{blockCondition, blockRule}

var ruleBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "action"},
		{Name: "name"},
	},
}

// Parser is the HCL front end. It caches every parsed file so diagnostics
// can show source snippets.
type Parser struct {
	hcl *hclparse.Parser
}

var _ decl.Parser = (*Parser)(nil)

// NewParser creates a parser with an empty file cache.
func NewParser() *Parser {
	return &Parser{hcl: hclparse.NewParser()}
}

// Files returns the parsed sources keyed by filename.
func (p *Parser) Files() map[string]*hcl.File {
	return p.hcl.Files()
}

// Parse reads src as HCL and visits its declarations in source order.
func (p *Parser) Parse(ctx context.Context, filename string, src []byte, v decl.Visitor) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing specification.", "file", filename, "bytes", len(src))

	file, diags := p.hcl.ParseHCL(src, filename)
	if diags.HasErrors() {
		return generr.Syntax(diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return fmt.Errorf("hclspec: unexpected body type %T", file.Body)
	}

	w := &walker{v: v, src: file.Bytes}
	if err := w.body(ctx, body, true); err != nil {
		return err
	}
	return v.End(ctx)
}

type walker struct {
	v   decl.Visitor
	src []byte
}

// item is a top-level attribute or a block, whichever is set.
type item struct {
	start int
	attr  *hclsyntax.Attribute
	block *hclsyntax.Block
}

// ordered returns the attributes and blocks of body sorted by position.
// hclsyntax keeps attributes in a map, which loses the order.
func ordered(body *hclsyntax.Body) []item {
	items := make([]item, 0, len(body.Attributes)+len(body.Blocks))
	for _, a := range body.Attributes {
		items = append(items, item{start: a.SrcRange.Start.Byte, attr: a})
	}
	for _, b := range body.Blocks {
		items = append(items, item{start: b.TypeRange.Start.Byte, block: b})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].start < items[j].start })
	return items
}

func (w *walker) body(ctx context.Context, body *hclsyntax.Body, top bool) error {
	for _, it := range ordered(body) {
		var err error
		switch {
		case it.attr != nil && top:
			err = w.option(ctx, it.attr)
		case it.attr != nil:
			err = generr.Syntax(hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Unexpected attribute",
				Detail:   fmt.Sprintf("Options such as %q may only be set at the top level of the specification.", it.attr.Name),
				Subject:  it.attr.NameRange.Ptr(),
			}})
		case it.block.Type == blockCondition:
			err = w.condition(ctx, it.block)
		case it.block.Type == blockRule:
			err = w.rule(ctx, it.block)
		default:
			err = generr.Syntax(hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Unsupported block type",
				Detail:   fmt.Sprintf("Blocks of type %q are not expected here.%s", it.block.Type, generr.DidYouMean(it.block.Type, blockTypes)),
				Subject:  it.block.TypeRange.Ptr(),
			}})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) option(ctx context.Context, attr *hclsyntax.Attribute) error {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return generr.Syntax(diags)
	}
	return w.v.Option(ctx, decl.Option{Name: attr.Name, Value: val, Range: attr.SrcRange})
}

func (w *walker) condition(ctx context.Context, block *hclsyntax.Block) error {
	open := decl.ConditionOpen{Names: block.Labels, Range: block.DefRange()}
	if err := w.v.OpenConditions(ctx, open); err != nil {
		return err
	}
	if err := w.body(ctx, block.Body, false); err != nil {
		return err
	}
	return w.v.CloseConditions(ctx, decl.ConditionClose{Range: block.CloseBraceRange})
}

func (w *walker) rule(ctx context.Context, block *hclsyntax.Block) error {
	if len(block.Labels) != 1 {
		return generr.Syntax(hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid rule block",
			Detail:   fmt.Sprintf("A rule block takes exactly one label, its pattern; got %d.", len(block.Labels)),
			Subject:  block.DefRange().Ptr(),
		}})
	}

	content, diags := block.Body.Content(ruleBodySchema)
	if diags.HasErrors() {
		return generr.Syntax(diags)
	}

	r := decl.Rule{
		Pattern:      block.Labels[0],
		Range:        block.DefRange(),
		PatternRange: block.LabelRanges[0],
	}
	if attr, ok := content.Attributes["action"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, nil, &r.Action); diags.HasErrors() {
			return generr.Syntax(diags)
		}
		r.ActionLine = w.actionLine(attr.Expr.Range())
	}
	if attr, ok := content.Attributes["name"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, nil, &r.Name); diags.HasErrors() {
			return generr.Syntax(diags)
		}
	}
	return w.v.Rule(ctx, r)
}

// actionLine is the line the action text starts on. Heredoc content begins
// on the line after its opening marker.
func (w *walker) actionLine(rng hcl.Range) int {
	start := rng.Start.Byte
	if start >= 0 && start < len(w.src) && bytes.HasPrefix(w.src[start:], []byte("<<")) {
		return rng.Start.Line + 1
	}
	return rng.Start.Line
}
