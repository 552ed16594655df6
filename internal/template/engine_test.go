package template

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/perplex/internal/gencontext"
	"github.com/specialistvlad/perplex/internal/generr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRule struct {
	pattern string
	action  string
	name    string
	conds   []string
	line    int
}

// snapshot records rules directly into a fresh context. Conditions named by
// conds are declared first, in order.
func snapshot(t *testing.T, opts gencontext.Options, paths gencontext.Paths, conds []string, rules ...testRule) *gencontext.Snapshot {
	t.Helper()
	gc := gencontext.Begin(opts, paths)
	for _, c := range conds {
		gc.Conditions().Declare(c)
	}
	for i, r := range rules {
		_, err := gc.RecordRule(gencontext.RuleSpec{
			Fragment:   gencontext.Fragment{Token: i + 1, Code: "re" + string(rune('A'+i))},
			Pattern:    r.pattern,
			Action:     r.action,
			Name:       r.name,
			Conditions: r.conds,
			ActionLine: r.line,
			Range:      hcl.Range{Filename: "calc.hcl", Start: hcl.Pos{Line: r.line}},
		})
		require.NoError(t, err)
	}
	snap, err := gc.Finalize()
	require.NoError(t, err)
	return snap
}

func render(t *testing.T, snap *gencontext.Snapshot, tmpl string) *Result {
	t.Helper()
	res, err := Render(context.Background(), snap, []byte(tmpl))
	require.NoError(t, err)
	return res
}

func TestRender_Declarations(t *testing.T) {
	// --- Arrange ---
	snap := snapshot(t, gencontext.Options{}, gencontext.Paths{}, nil,
		testRule{pattern: "a", action: "return 1"},
		testRule{pattern: "b", action: "return 2"},
	)
	tmpl := "var groups = [][]scanRule{\n\t// [PERPLEX DECLARATIONS]\n}\n// [PERPLEX CONDITIONS]\n"

	// --- Act ---
	res := render(t, snap, tmpl)

	// --- Assert ---
	want := "var groups = [][]scanRule{\n" +
		"\t{ // default\n" +
		"\t\t{id: 1, pattern: reA},\n" +
		"\t\t{id: 2, pattern: reB},\n" +
		"\t},\n" +
		"}\n"
	if diff := cmp.Diff(want, string(res.Output)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{MarkerDeclarations, MarkerConditions}, res.Markers)
	assert.Nil(t, res.Header)
}

func TestRender_EmptyDeclarations(t *testing.T) {
	testCases := []struct {
		name  string
		opts  gencontext.Options
		conds []string
	}{
		{name: "no conditions"},
		{name: "conditions without rules", opts: gencontext.Options{UsingConditions: true}, conds: []string{"INITIAL"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap := snapshot(t, tc.opts, gencontext.Paths{}, tc.conds)

			res := render(t, snap, "var groups = [][]scanRule{\n\t// [PERPLEX DECLARATIONS]\n}\n")

			assert.Equal(t, "var groups = [][]scanRule{\n}\n", string(res.Output))
		})
	}
}

func TestRender_EmptySpecificationKeepsTemplateText(t *testing.T) {
	snap := snapshot(t, gencontext.Options{}, gencontext.Paths{}, nil)
	tmpl := "before\n  // [PERPLEX ACTIONS]\nafter // keep\n"

	res := render(t, snap, tmpl)

	assert.Equal(t, "before\nafter // keep\n", string(res.Output))
}

func TestRender_Conditions(t *testing.T) {
	snap := snapshot(t, gencontext.Options{UsingConditions: true}, gencontext.Paths{}, []string{"INITIAL", "STRING"},
		testRule{pattern: `"`, action: "s.Begin(CondSTRING)", conds: []string{"INITIAL"}},
		testRule{pattern: `[^"]+`, action: "return 2", conds: []string{"STRING"}},
		testRule{pattern: `\n`, action: "return 3"},
	)

	res := render(t, snap, "// [PERPLEX CONDITIONS]\n// [PERPLEX DECLARATIONS]\n")

	want := `// Start conditions, for use with Begin.
const (
	CondINITIAL = 0
	CondSTRING = 1
)

var conditionNames = [...]string{
	CondINITIAL: "INITIAL",
	CondSTRING: "STRING",
}
CondINITIAL: {
	{id: 1, pattern: reA},
	{id: 3, pattern: reC},
},
CondSTRING: {
	{id: 2, pattern: reB},
	{id: 3, pattern: reC},
},
`
	if diff := cmp.Diff(want, string(res.Output)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_Tokens(t *testing.T) {
	snap := snapshot(t, gencontext.Options{}, gencontext.Paths{}, nil,
		testRule{pattern: "[0-9]+", action: "return NUMBER", name: "NUMBER"},
		testRule{pattern: " ", action: ""},
		testRule{pattern: `\+`, action: "return PLUS", name: "PLUS"},
	)

	res := render(t, snap, "const (\n\tTokenEOF = 0\n\t// [PERPLEX TOKENS]\n)\n")

	assert.Equal(t, "const (\n\tTokenEOF = 0\n\tNUMBER = 1\n\tPLUS = 3\n)\n", string(res.Output))
}

func TestRender_Actions(t *testing.T) {
	snap := snapshot(t, gencontext.Options{}, gencontext.Paths{}, nil,
		testRule{pattern: "a", action: "return 1\n"},
		testRule{pattern: "b", action: "n := len(s.Text())\n\nif n > 1 {\n\treturn 2\n}"},
		testRule{pattern: "c"},
	)

	res := render(t, snap, "\tswitch rule {\n\t// [PERPLEX ACTIONS]\n\t}\n")

	want := "\tswitch rule {\n" +
		"\tcase 1: // \"a\"\n" +
		"\t\treturn 1\n" +
		"\tcase 2: // \"b\"\n" +
		"\t\tn := len(s.Text())\n" +
		"\n" +
		"\t\tif n > 1 {\n" +
		"\t\t\treturn 2\n" +
		"\t\t}\n" +
		"\tcase 3: // \"c\"\n" +
		"\t}\n"
	if diff := cmp.Diff(want, string(res.Output)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_LineDirectives(t *testing.T) {
	snap := snapshot(t, gencontext.Options{LineDirectives: true},
		gencontext.Paths{Input: "calc.hcl", Output: "out/scanner.go"}, nil,
		testRule{pattern: "a", action: "x := 1\nreturn x", line: 7},
		testRule{pattern: "b", action: "return 2"},
	)

	res := render(t, snap, "switch rule {\n// [PERPLEX ACTIONS]\n}\n")

	want := "switch rule {\n" +
		"case 1: // \"a\"\n" +
		"//line ../calc.hcl:7\n" +
		"\tx := 1\n" +
		"\treturn x\n" +
		"//line scanner.go:7\n" +
		"case 2: // \"b\"\n" +
		"\treturn 2\n" +
		"}\n"
	if diff := cmp.Diff(want, string(res.Output)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	// The restore directive names the physical line that follows it.
	lines := strings.Split(string(res.Output), "\n")
	assert.Equal(t, "case 2: // \"b\"", lines[6])
}

func TestRender_SafeMode(t *testing.T) {
	rules := []testRule{
		{pattern: "x", action: "s.count++"},
		{pattern: "y", action: "return 2"},
	}
	safe := render(t, snapshot(t, gencontext.Options{SafeMode: true}, gencontext.Paths{}, nil, rules...), "// [PERPLEX FALLTHROUGH]\n")
	unsafe := render(t, snapshot(t, gencontext.Options{}, gencontext.Paths{}, nil, rules...), "// [PERPLEX FALLTHROUGH]\n")

	assert.Equal(t, "// resume runs after an action that did not return a token.\n"+
		"func (s *Scanner) resume(rule int) {\n"+
		"\tswitch rule {\n"+
		"\tcase 1:\n"+
		"\t\ts.skip()\n"+
		"\t}\n"+
		"}\n", string(safe.Output))
	assert.Equal(t, "// resume runs after an action that did not return a token.\n"+
		"func (s *Scanner) resume(rule int) {\n"+
		"\t// Matched text is kept after rules 1.\n"+
		"\tswitch rule {\n"+
		"\t}\n"+
		"}\n", string(unsafe.Output))

	t.Run("identical when every rule returns", func(t *testing.T) {
		returning := []testRule{{pattern: "x", action: "return 1"}}
		a := render(t, snapshot(t, gencontext.Options{SafeMode: true}, gencontext.Paths{}, nil, returning...), string(Bundled()))
		b := render(t, snapshot(t, gencontext.Options{}, gencontext.Paths{}, nil, returning...), string(Bundled()))
		assert.Equal(t, string(a.Output), string(b.Output))
	})
}

func TestRender_Header(t *testing.T) {
	tmpl := "// [PERPLEX PACKAGE]\n\n// [PERPLEX HEADER_BEGIN]\nconst (\n\t// [PERPLEX TOKENS]\n)\n// [PERPLEX HEADER_END]\n\nfunc body() {}\n"
	rules := []testRule{{pattern: "a", action: "return A", name: "A"}}

	t.Run("requested", func(t *testing.T) {
		snap := snapshot(t, gencontext.Options{HeaderRequested: true, Package: "calc"}, gencontext.Paths{}, nil, rules...)

		res := render(t, snap, tmpl)

		assert.Equal(t, "package calc\n\nfunc body() {}\n", string(res.Output), "formatting drops the emptied lines")
		assert.Equal(t, "// Code generated by perplex. DO NOT EDIT.\n\npackage calc\n\nconst (\n\tA = 1\n)\n", string(res.Header))
		assert.Equal(t, []string{MarkerPackage, MarkerHeaderBegin, MarkerTokens, MarkerHeaderEnd}, res.Markers)
	})

	t.Run("not requested", func(t *testing.T) {
		snap := snapshot(t, gencontext.Options{Package: "calc"}, gencontext.Paths{}, nil, rules...)

		res := render(t, snap, tmpl)

		assert.Equal(t, "package calc\n\nconst (\n\tA = 1\n)\n\nfunc body() {}\n", string(res.Output))
		assert.Nil(t, res.Header)
	})
}

func TestRender_UnknownMarkersAreCopied(t *testing.T) {
	snap := snapshot(t, gencontext.Options{}, gencontext.Paths{}, nil)
	tmpl := "// [PERPLEX CUSTOM]\n// [PERPLEX lower]\n// [PERPLEX ]\n// [PERPLEX PACKAGE"

	res := render(t, snap, tmpl)

	assert.Equal(t, tmpl, string(res.Output))
	assert.Empty(t, res.Markers)
}

func TestRender_InlineMarker(t *testing.T) {
	snap := snapshot(t, gencontext.Options{Package: "calc"}, gencontext.Paths{}, nil)

	res := render(t, snap, "x // [PERPLEX PACKAGE] y\n")

	assert.Equal(t, "x package calc y\n", string(res.Output))
}

func TestRender_TemplateErrors(t *testing.T) {
	testCases := []struct {
		name   string
		tmpl   string
		errMsg string
	}{
		{
			name:   "duplicate marker",
			tmpl:   "// [PERPLEX ACTIONS]\n\n// [PERPLEX ACTIONS]\n",
			errMsg: "<bundled template>:3,1-13: invalid template: marker ACTIONS appears more than once; first seen on line 1",
		},
		{
			name:   "end before begin",
			tmpl:   "// [PERPLEX HEADER_END]\n",
			errMsg: "HEADER_END marker without a preceding HEADER_BEGIN",
		},
		{
			name:   "begin without end",
			tmpl:   "x\n// [PERPLEX HEADER_BEGIN]\n",
			errMsg: "<bundled template>:2,1-13: invalid template: HEADER_BEGIN marker has no matching HEADER_END",
		},
	}

	for _, name := range []string{MarkerActions, MarkerDeclarations, MarkerFallthrough} {
		testCases = append(testCases, struct {
			name   string
			tmpl   string
			errMsg string
		}{
			name:   name + " inside header",
			tmpl:   "// [PERPLEX HEADER_BEGIN]\n// [PERPLEX TOKENS]\n// [PERPLEX " + name + "]\n// [PERPLEX HEADER_END]\n",
			errMsg: "<bundled template>:3,1-13: invalid template: marker " + name + " cannot appear between HEADER_BEGIN and HEADER_END",
		})
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap := snapshot(t, gencontext.Options{HeaderRequested: true}, gencontext.Paths{}, nil,
				testRule{pattern: "a", action: "secretBody()\nreturn 1"})
			_, err := Render(context.Background(), snap, []byte(tc.tmpl))
			require.Error(t, err)
			assert.True(t, errors.Is(err, generr.ErrTemplate))
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	build := func() *Result {
		snap := snapshot(t, gencontext.Options{UsingConditions: true, LineDirectives: true}, gencontext.Paths{Input: "calc.hcl"}, []string{"A", "B", "C"},
			testRule{pattern: "a", action: "return 1", name: "TA", conds: []string{"C", "A"}, line: 3},
			testRule{pattern: "b", action: "", conds: []string{"B"}, line: 5},
			testRule{pattern: "c", action: "return 3", line: 9},
		)
		return render(t, snap, string(Bundled()))
	}

	first, second := build(), build()

	assert.True(t, bytes.Equal(first.Output, second.Output))
	assert.Equal(t, first.Markers, second.Markers)
}

func TestRender_FormatsGoOutput(t *testing.T) {
	// --- Arrange ---
	snap := snapshot(t, gencontext.Options{LineDirectives: true}, gencontext.Paths{Input: "calc.hcl", Output: "gen/scanner.go"}, nil,
		testRule{pattern: "[0-9]+", action: "n := 0\nreturn NUM + n", name: "NUM", line: 4},
		testRule{pattern: "[a-z]+", action: "return IDENTIFIER", name: "IDENTIFIER", line: 9},
	)

	// --- Act ---
	res := render(t, snap, string(Bundled()))

	// --- Assert ---
	out := string(res.Output)
	assert.Contains(t, out, "\tTokenEOF   = 0\n\tNUM        = 1\n\tIDENTIFIER = 2\n")

	formatted, err := format.Source(res.Output)
	require.NoError(t, err)
	assert.Equal(t, string(formatted), out, "output is already gofmt-clean")

	lines := strings.Split(out, "\n")
	restores := 0
	for i, l := range lines {
		if !strings.HasPrefix(l, "//line scanner.go:") {
			continue
		}
		restores++
		assert.Equal(t, fmt.Sprintf("//line scanner.go:%d", i+2), l, "restore directive names the line after it")
	}
	assert.Equal(t, 2, restores)
	assert.Contains(t, out, "//line ../calc.hcl:4\n\t\t\tn := 0\n")
}

func TestRender_BundledTemplateIsGo(t *testing.T) {
	testCases := []struct {
		name  string
		opts  gencontext.Options
		conds []string
		rules []testRule
	}{
		{
			name: "empty",
		},
		{
			name:  "plain",
			opts:  gencontext.Options{LineDirectives: true, Preamble: "var keywords = map[string]int{}"},
			rules: []testRule{{pattern: "[0-9]+", action: "return NUM", name: "NUM", line: 4}, {pattern: " ", line: 8}},
		},
		{
			name:  "conditions and header",
			opts:  gencontext.Options{UsingConditions: true, SafeMode: true, HeaderRequested: true, Package: "calc"},
			conds: []string{"INITIAL", "STR"},
			rules: []testRule{
				{pattern: `"`, action: "s.Begin(CondSTR)", conds: []string{"INITIAL"}},
				{pattern: `[^"]*"`, action: "s.Begin(CondINITIAL)\nreturn STRING", name: "STRING", conds: []string{"STR"}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap := snapshot(t, tc.opts, gencontext.Paths{Input: "calc.hcl"}, tc.conds, tc.rules...)

			res := render(t, snap, string(Bundled()))

			assert.NotContains(t, string(res.Output), markerPrefix)
			assert.Equal(t, []string{
				MarkerPackage, MarkerPreamble, MarkerHeaderBegin, MarkerTokens, MarkerConditions,
				MarkerHeaderEnd, MarkerDeclarations, MarkerActions, MarkerFallthrough,
			}, res.Markers)

			fset := token.NewFileSet()
			_, err := parser.ParseFile(fset, "scanner.go", res.Output, parser.ParseComments)
			require.NoError(t, err, "generated scanner:\n%s", res.Output)
			if tc.opts.HeaderRequested {
				_, err = parser.ParseFile(fset, "scanner_header.go", res.Header, parser.ParseComments)
				require.NoError(t, err, "generated header:\n%s", res.Header)
				assert.Contains(t, string(res.Header), "type Scanner struct")
				assert.NotContains(t, string(res.Output), "type Scanner struct")
			}
		})
	}
}
