// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gencontext

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// EndsInReturn reports whether the final statement of a rule action is a
// return. The action is parsed as a Go function body; when it does not
// parse, the last line carrying code is inspected textually.
func EndsInReturn(action string) bool {
	if strings.TrimSpace(action) == "" {
		return false
	}

	src := "package p\nfunc _() {\n" + action + "\n}\n"
	file, err := parser.ParseFile(token.NewFileSet(), "", src, parser.SkipObjectResolution)
	if err != nil {
		return lastLineReturns(action)
	}
	fn, ok := file.Decls[0].(*ast.FuncDecl)
	if !ok || fn.Body == nil {
		return lastLineReturns(action)
	}
	return lastStmtReturns(fn.Body.List)
}

func lastStmtReturns(list []ast.Stmt) bool {
	if len(list) == 0 {
		return false
	}
	switch s := list[len(list)-1].(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.BlockStmt:
		return lastStmtReturns(s.List)
	case *ast.LabeledStmt:
		return lastStmtReturns([]ast.Stmt{s.Stmt})
	case *ast.EmptyStmt:
		return lastStmtReturns(list[:len(list)-1])
	}
	return false
}

func lastLineReturns(action string) bool {
	lines := strings.Split(action, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		line = strings.TrimRight(line, "}; \t")
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if idx := strings.LastIndex(line, "{"); idx >= 0 {
			line = strings.TrimSpace(line[idx+1:])
		}
		return line == "return" || strings.HasPrefix(line, "return ") || strings.HasPrefix(line, "return\t")
	}
	return false
}
