// Package template weaves generated scanner code into a boilerplate
// template.
//
// A template is ordinary text containing markers of the form
//
//	// [PERPLEX NAME]
//
// Each recognized marker is replaced by a generated block; everything else is
// copied byte for byte. A marker alone on its line replaces the whole line
// and its block is indented like the marker. Markers with unrecognized names
// are left untouched. Output that parses as Go is passed through gofmt.
package template

import (
	"bytes"
	"context"
	_ "embed"
	"go/format"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/perplex/internal/ctxlog"
	"github.com/specialistvlad/perplex/internal/gencontext"
	"github.com/specialistvlad/perplex/internal/generr"
)

// Marker names.
const (
	MarkerPackage      = "PACKAGE"
	MarkerPreamble     = "PREAMBLE"
	MarkerTokens       = "TOKENS"
	MarkerConditions   = "CONDITIONS"
	MarkerDeclarations = "DECLARATIONS"
	MarkerActions      = "ACTIONS"
	MarkerFallthrough  = "FALLTHROUGH"
	MarkerHeaderBegin  = "HEADER_BEGIN"
	MarkerHeaderEnd    = "HEADER_END"
)

// BundledName is the name used for the bundled template in diagnostics.
const BundledName = "<bundled template>"

//go:embed scanner.go.tmpl
var bundled []byte

// Bundled returns a copy of the default template.
func Bundled() []byte {
	return append([]byte(nil), bundled...)
}

const markerPrefix = "// [PERPLEX "

// Result is the rendered output of one run.
type Result struct {
	Output []byte
	// Header is nil unless a header was requested.
	Header []byte
	// Markers lists the markers that were substituted, in template order.
	Markers []string
}

type renderer struct {
	snap *gencontext.Snapshot
	name string
	tmpl []byte

	out    bytes.Buffer
	header bytes.Buffer
	cur    *bytes.Buffer

	seen     map[string]hcl.Pos
	markers  []string
	inHeader bool
}

// Render substitutes every marker in tmpl using snap. Nothing is written
// anywhere; the caller decides where the result goes.
func Render(ctx context.Context, snap *gencontext.Snapshot, tmpl []byte) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	r := &renderer{
		snap: snap,
		name: snap.Paths.Template,
		tmpl: tmpl,
		seen: map[string]hcl.Pos{},
	}
	if r.name == "" {
		r.name = BundledName
	}
	r.cur = &r.out

	if err := r.run(); err != nil {
		return nil, err
	}

	res := &Result{Output: r.tidy(r.out.Bytes(), snap.Paths.Output), Markers: r.markers}
	if snap.Options.HeaderRequested {
		res.Header = r.tidy(r.headerFile(), snap.Paths.Header)
	}
	logger.Debug("Template rendered.", "template", r.name, "markers", len(r.markers), "bytes", len(res.Output))
	return res, nil
}

func (r *renderer) run() error {
	pos := 0
	for {
		i := bytes.Index(r.tmpl[pos:], []byte(markerPrefix))
		if i < 0 {
			r.cur.Write(r.tmpl[pos:])
			break
		}
		at := pos + i
		name, end := markerAt(r.tmpl, at)
		if end < 0 || !known(name) {
			next := at + len(markerPrefix)
			r.cur.Write(r.tmpl[pos:next])
			pos = next
			continue
		}

		lineStart := bytes.LastIndexByte(r.tmpl[:at], '\n') + 1
		indent := r.tmpl[lineStart:at]
		lineEnd := len(r.tmpl)
		if j := bytes.IndexByte(r.tmpl[end:], '\n'); j >= 0 {
			lineEnd = end + j + 1
		}
		ownLine := blank(indent) && blank(r.tmpl[end:lineEnd])

		if ownLine {
			r.cur.Write(r.tmpl[pos:lineStart])
		} else {
			r.cur.Write(r.tmpl[pos:at])
		}
		if err := r.marker(name, r.position(at)); err != nil {
			return err
		}
		block := r.block(name, r.nextLine())
		if ownLine {
			writeIndented(r.cur, block, string(indent))
			pos = lineEnd
		} else {
			r.cur.WriteString(strings.TrimSuffix(block, "\n"))
			pos = end
		}
		r.markers = append(r.markers, name)
	}

	if r.inHeader {
		p := r.seen[MarkerHeaderBegin]
		return r.errorAt(p, "%s marker has no matching %s", MarkerHeaderBegin, MarkerHeaderEnd)
	}
	return nil
}

// marker validates placement and switches streams for the header markers.
func (r *renderer) marker(name string, p hcl.Pos) error {
	if prev, dup := r.seen[name]; dup {
		return r.errorAt(p, "marker %s appears more than once; first seen on line %d", name, prev.Line)
	}
	r.seen[name] = p

	if r.inHeader && !headerSafe(name) {
		return r.errorAt(p, "marker %s cannot appear between %s and %s; rule code never goes into the header", name, MarkerHeaderBegin, MarkerHeaderEnd)
	}
	switch name {
	case MarkerHeaderBegin:
		r.inHeader = true
		if r.snap.Options.HeaderRequested {
			r.cur = &r.header
		}
	case MarkerHeaderEnd:
		if !r.inHeader {
			return r.errorAt(p, "%s marker without a preceding %s", MarkerHeaderEnd, MarkerHeaderBegin)
		}
		r.inHeader = false
		r.cur = &r.out
	}
	return nil
}

func (r *renderer) headerPrefix() string {
	return "// Code generated by perplex. DO NOT EDIT.\n\npackage " + r.snap.Options.Package + "\n\n"
}

func (r *renderer) headerFile() []byte {
	var b bytes.Buffer
	b.WriteString(r.headerPrefix())
	b.Write(r.header.Bytes())
	return b.Bytes()
}

// nextLine is the line number, in its final file, of the next byte written
// to the current stream.
func (r *renderer) nextLine() int {
	n := bytes.Count(r.cur.Bytes(), []byte{'\n'}) + 1
	if r.cur == &r.header {
		n += strings.Count(r.headerPrefix(), "\n")
	}
	return n
}

func (r *renderer) position(offset int) hcl.Pos {
	line := bytes.Count(r.tmpl[:offset], []byte{'\n'}) + 1
	col := offset - (bytes.LastIndexByte(r.tmpl[:offset], '\n') + 1) + 1
	return hcl.Pos{Line: line, Column: col, Byte: offset}
}

func (r *renderer) errorAt(p hcl.Pos, format string, args ...any) error {
	end := p
	end.Column += len(markerPrefix)
	end.Byte += len(markerPrefix)
	return generr.New(generr.ErrTemplate, &hcl.Range{Filename: r.name, Start: p, End: end}, format, args...)
}

// markerAt parses the marker starting at offset and returns its name and
// the offset just past the closing bracket, or -1 if it is malformed.
func markerAt(tmpl []byte, offset int) (string, int) {
	start := offset + len(markerPrefix)
	for i := start; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c >= 'A' && c <= 'Z' || c == '_':
		case c == ']' && i > start:
			return string(tmpl[start:i]), i + 1
		default:
			return "", -1
		}
	}
	return "", -1
}

// tidy runs gofmt over src when it is valid Go and returns src unchanged
// otherwise. Formatting can drop blank lines, so restore directives naming
// dest are renumbered to the line that follows them.
func (r *renderer) tidy(src []byte, dest string) []byte {
	out, err := format.Source(src)
	if err != nil {
		return src
	}
	if !r.snap.Options.LineDirectives {
		return out
	}
	prefix := "//line " + restoreName(dest) + ":"
	lines := strings.SplitAfter(string(out), "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, prefix) {
			lines[i] = prefix + strconv.Itoa(i+2) + "\n"
		}
	}
	return []byte(strings.Join(lines, ""))
}

// headerSafe reports whether a marker may sit inside the header region.
func headerSafe(name string) bool {
	switch name {
	case MarkerActions, MarkerDeclarations, MarkerFallthrough:
		return false
	}
	return true
}

func known(name string) bool {
	switch name {
	case MarkerPackage, MarkerPreamble, MarkerTokens, MarkerConditions, MarkerDeclarations,
		MarkerActions, MarkerFallthrough, MarkerHeaderBegin, MarkerHeaderEnd:
		return true
	}
	return false
}

func blank(b []byte) bool {
	return len(bytes.Trim(b, " \t\r\n")) == 0
}

// writeIndented writes block line by line with indent prepended. Empty lines
// and //line directives stay at column one.
func writeIndented(w *bytes.Buffer, block, indent string) {
	if block == "" {
		return
	}
	for _, line := range strings.SplitAfter(strings.TrimSuffix(block, "\n"), "\n") {
		if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, "//line ") {
			w.WriteString(indent)
		}
		w.WriteString(line)
	}
	w.WriteByte('\n')
}
