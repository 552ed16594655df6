// Package generr defines the error kinds shared by every stage of a
// generation run. All of them are fatal for the run that produced them.
//
// Callers match kinds with errors.Is against the exported sentinels; the
// concrete *Error additionally carries the source location and converts to
// hcl.Diagnostics so the driver can print file, line and snippet.
package generr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

var (
	ErrUnknownCondition   = errors.New("unknown start condition")
	ErrConditionsDisabled = errors.New("start conditions are disabled")
	ErrLateOption         = errors.New("option declared after the first rule")
	ErrPattern            = errors.New("invalid pattern")
	ErrIO                 = errors.New("i/o failure")
	ErrSyntax             = errors.New("invalid specification")
	ErrOption             = errors.New("invalid option")
	ErrTemplate           = errors.New("invalid template")
)

// Error is a kinded generation failure.
type Error struct {
	Kind    error
	Detail  string
	Path    string
	Subject *hcl.Range
	Err     error

	// Diags holds the original diagnostics when the failure came from the
	// HCL front end.
	Diags hcl.Diagnostics
}

// New creates an Error of the given kind located at subject, which may be nil.
func New(kind error, subject *hcl.Range, format string, args ...any) *Error {
	e := &Error{
		Kind:    kind,
		Detail:  fmt.Sprintf(format, args...),
		Subject: subject,
	}
	if subject != nil {
		e.Path = subject.Filename
	}
	return e
}

// IO wraps a filesystem failure on path.
func IO(path, op string, err error) *Error {
	return &Error{Kind: ErrIO, Detail: op, Path: path, Err: err}
}

// Syntax wraps diagnostics reported by the specification front end.
func Syntax(diags hcl.Diagnostics) *Error {
	e := &Error{Kind: ErrSyntax, Diags: diags}
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		e.Detail = d.Summary
		if d.Detail != "" {
			e.Detail += "; " + d.Detail
		}
		e.Subject = d.Subject
		if d.Subject != nil {
			e.Path = d.Subject.Filename
		}
		break
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	switch {
	case e.Subject != nil:
		sb.WriteString(e.Subject.String())
		sb.WriteString(": ")
	case e.Path != "":
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.Error())
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Diagnostics converts the error into HCL diagnostics for reporting.
func (e *Error) Diagnostics() hcl.Diagnostics {
	if len(e.Diags) > 0 {
		return e.Diags
	}
	detail := e.Detail
	if e.Err != nil {
		if detail != "" {
			detail += ": "
		}
		detail += e.Err.Error()
	}
	if e.Subject == nil && e.Path != "" {
		detail = fmt.Sprintf("%s (%s)", detail, e.Path)
	}
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  summary(e.Kind),
		Detail:   detail,
		Subject:  e.Subject,
	}}
}

var summaries = map[error]string{
	ErrUnknownCondition:   "Unknown start condition",
	ErrConditionsDisabled: "Start conditions are disabled",
	ErrLateOption:         "Option declared after the first rule",
	ErrPattern:            "Invalid pattern",
	ErrIO:                 "I/O failure",
	ErrSyntax:             "Invalid specification",
	ErrOption:             "Invalid option",
	ErrTemplate:           "Invalid template",
}

func summary(kind error) string {
	if s, ok := summaries[kind]; ok {
		return s
	}
	return kind.Error()
}
