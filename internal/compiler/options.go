package compiler

import (
	"context"
	"go/token"

	"github.com/specialistvlad/perplex/internal/ctxlog"
	"github.com/specialistvlad/perplex/internal/decl"
	"github.com/specialistvlad/perplex/internal/gencontext"
	"github.com/specialistvlad/perplex/internal/generr"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// optionSetter applies an already converted value to the options.
type optionSetter struct {
	typ   cty.Type
	apply func(o *gencontext.Options, v cty.Value) error
}

var optionSetters = map[string]optionSetter{
	"conditions": {typ: cty.Bool, apply: func(o *gencontext.Options, v cty.Value) error {
		o.UsingConditions = v.True()
		return nil
	}},
	"safe_mode": {typ: cty.Bool, apply: func(o *gencontext.Options, v cty.Value) error {
		o.SafeMode = v.True()
		return nil
	}},
	"package": {typ: cty.String, apply: func(o *gencontext.Options, v cty.Value) error {
		name := v.AsString()
		if !token.IsIdentifier(name) {
			return errNotIdentifier
		}
		o.Package = name
		return nil
	}},
	"preamble": {typ: cty.String, apply: func(o *gencontext.Options, v cty.Value) error {
		o.Preamble = v.AsString()
		return nil
	}},
}

// OptionNames lists the options a specification may set, in documentation order.
var OptionNames = []string{"conditions", "safe_mode", "package", "preamble"}

type optionError string

func (e optionError) Error() string { return string(e) }

const errNotIdentifier = optionError("value must be a Go identifier")

// Option applies a mode setting. Options are only accepted before the first
// rule, because output for earlier rules may depend on them.
func (c *Compiler) Option(ctx context.Context, o decl.Option) error {
	logger := ctxlog.FromContext(ctx)

	if n := c.gc.RuleCount(); n > 0 {
		return generr.New(generr.ErrLateOption, &o.Range,
			"option %q appears after %d rule(s); move it before the first rule", o.Name, n)
	}

	setter, ok := optionSetters[o.Name]
	if !ok {
		return generr.New(generr.ErrOption, &o.Range, "unknown option %q.%s", o.Name, generr.DidYouMean(o.Name, OptionNames))
	}
	if o.Value.IsNull() || !o.Value.IsWhollyKnown() {
		return generr.New(generr.ErrOption, &o.Range, "option %q needs a %s value", o.Name, setter.typ.FriendlyName())
	}
	val, err := convert.Convert(o.Value, setter.typ)
	if err != nil {
		return generr.New(generr.ErrOption, &o.Range, "option %q needs a %s value, got %s", o.Name, setter.typ.FriendlyName(), o.Value.Type().FriendlyName())
	}

	var applyErr error
	c.gc.UpdateOptions(func(opts *gencontext.Options) {
		applyErr = setter.apply(opts, val)
	})
	if applyErr != nil {
		return generr.New(generr.ErrOption, &o.Range, "option %q: %s", o.Name, applyErr)
	}
	logger.Debug("Option applied.", "option", o.Name, "value", val.GoString())
	return nil
}
