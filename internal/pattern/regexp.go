// Package pattern turns rule patterns into matching code for the generated
// scanner. Patterns use Go regexp syntax; each one is anchored at the scan
// position and compiled at scanner start-up by the template's newPattern
// helper.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
	"strconv"

	"github.com/specialistvlad/perplex/internal/gencontext"
)

// ErrEmptyMatch is returned for patterns that can match without consuming input.
var ErrEmptyMatch = errors.New("pattern matches the empty string")

// Regexp is a backend for Go regexp patterns. It assigns token identifiers
// sequentially starting at 1; an instance must not be shared between runs.
type Regexp struct {
	next int
}

// NewRegexp creates a backend whose first token identifier is 1.
func NewRegexp() *Regexp {
	return &Regexp{next: 1}
}

// Compile validates pattern and returns the fragment that matches it.
func (b *Regexp) Compile(pattern string) (gencontext.Fragment, error) {
	if pattern == "" {
		return gencontext.Fragment{}, ErrEmptyMatch
	}
	expr := Anchor(pattern)
	if _, err := syntax.Parse(expr, syntax.Perl); err != nil {
		return gencontext.Fragment{}, describe(err)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return gencontext.Fragment{}, err
	}
	if re.MatchString("") {
		return gencontext.Fragment{}, ErrEmptyMatch
	}

	frag := gencontext.Fragment{
		Token: b.next,
		Code:  "newPattern(" + strconv.Quote(expr) + ")",
	}
	b.next++
	return frag, nil
}

// Anchor wraps pattern so it only matches at the start of its input.
func Anchor(pattern string) string {
	return "^(?:" + pattern + ")"
}

func describe(err error) error {
	var serr *syntax.Error
	if errors.As(err, &serr) {
		return fmt.Errorf("%s: `%s`", serr.Code, serr.Expr)
	}
	return err
}
