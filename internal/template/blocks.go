package template

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/specialistvlad/perplex/internal/gencontext"
)

// stdoutName names the generated file in line directives when it is
// written to standard output.
const stdoutName = "scanner.go"

// block generates the text for one marker. line is the number of the line
// the block starts on in its destination file.
func (r *renderer) block(name string, line int) string {
	switch name {
	case MarkerPackage:
		return "package " + r.snap.Options.Package + "\n"
	case MarkerPreamble:
		return r.snap.Options.Preamble
	case MarkerTokens:
		return r.tokens()
	case MarkerConditions:
		return r.conditions()
	case MarkerDeclarations:
		return r.declarations()
	case MarkerActions:
		return r.actions(line)
	case MarkerFallthrough:
		return r.resume()
	}
	return ""
}

func (r *renderer) tokens() string {
	var b strings.Builder
	for _, rule := range r.snap.NamedRules() {
		fmt.Fprintf(&b, "%s = %d\n", rule.Name, rule.Token)
	}
	return b.String()
}

func (r *renderer) conditions() string {
	if !r.snap.Options.UsingConditions || len(r.snap.Conditions) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("// Start conditions, for use with Begin.\nconst (\n")
	for _, c := range r.snap.Conditions {
		fmt.Fprintf(&b, "\tCond%s = %d\n", c.Name, c.ID)
	}
	b.WriteString(")\n\nvar conditionNames = [...]string{\n")
	for _, c := range r.snap.Conditions {
		fmt.Fprintf(&b, "\tCond%s: %q,\n", c.Name, c.Name)
	}
	b.WriteString("}\n")
	return b.String()
}

func (r *renderer) declarations() string {
	if len(r.snap.Rules) == 0 {
		return ""
	}
	var b strings.Builder
	for _, g := range r.snap.Groups() {
		if g.Condition == nil {
			b.WriteString("{ // default\n")
		} else {
			fmt.Fprintf(&b, "Cond%s: {\n", g.Condition.Name)
		}
		for _, rule := range g.Rules {
			fmt.Fprintf(&b, "\t{id: %d, pattern: %s},\n", rule.Token, rule.Fragment)
		}
		b.WriteString("},\n")
	}
	return b.String()
}

func (r *renderer) actions(line int) string {
	var b strings.Builder
	directives := r.snap.Options.LineDirectives
	for _, rule := range r.snap.Rules {
		fmt.Fprintf(&b, "case %d: // %s\n", rule.Token, strconv.Quote(rule.Pattern))
		line++

		body := strings.TrimRight(rule.Action, "\n")
		if body == "" {
			continue
		}
		mapped := directives && rule.ActionLine > 0
		if mapped {
			fmt.Fprintf(&b, "//line %s:%d\n", r.specFile(rule), rule.ActionLine)
			line++
		}
		for _, l := range strings.Split(body, "\n") {
			if strings.TrimSpace(l) == "" {
				b.WriteString("\n")
			} else {
				b.WriteString("\t" + l + "\n")
			}
			line++
		}
		if mapped {
			line++
			fmt.Fprintf(&b, "//line %s:%d\n", r.destFile(), line)
		}
	}
	return b.String()
}

// resume generates the resume method Lex calls after an action that
// did not return. Under safe mode it discards the matched text of those
// rules; otherwise the text is kept and becomes part of the next match.
func (r *renderer) resume() string {
	var ids []string
	for _, rule := range r.snap.FallingThrough() {
		ids = append(ids, strconv.Itoa(rule.Token))
	}

	var b strings.Builder
	b.WriteString("// resume runs after an action that did not return a token.\n")
	b.WriteString("func (s *Scanner) resume(rule int) {\n")
	if len(ids) > 0 && !r.snap.Options.SafeMode {
		fmt.Fprintf(&b, "\t// Matched text is kept after rules %s.\n", strings.Join(ids, ", "))
	}
	b.WriteString("\tswitch rule {\n")
	if len(ids) > 0 && r.snap.Options.SafeMode {
		fmt.Fprintf(&b, "\tcase %s:\n\t\ts.skip()\n", strings.Join(ids, ", "))
	}
	b.WriteString("\t}\n}\n")
	return b.String()
}

func (r *renderer) specFile(rule gencontext.Rule) string {
	name := rule.Range.Filename
	if name == "" {
		name = r.snap.Paths.Input
	}
	dest := r.dest()
	if dest == "" {
		return name
	}
	if rel, err := filepath.Rel(filepath.Dir(dest), name); err == nil {
		return filepath.ToSlash(rel)
	}
	return name
}

func (r *renderer) destFile() string {
	return restoreName(r.dest())
}

// restoreName is the file name restore directives use for path.
func restoreName(path string) string {
	if path == "" {
		return stdoutName
	}
	return filepath.Base(path)
}

// dest is the path of the file the current stream becomes.
func (r *renderer) dest() string {
	if r.cur == &r.header {
		return r.snap.Paths.Header
	}
	return r.snap.Paths.Output
}
