// Package lint runs advisory static checks on pre-lowered documents,
// catching issues the validator's structural rules cannot see. All
// diagnostics are warnings; a document that lints dirty still runs.
package lint

import (
	"fmt"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

// Diagnostic is one lint finding.
type Diagnostic struct {
	// Rule names the check, e.g. "unused-variable".
	Rule     string
	Message  string
	Severity string
	// Path locates the offending node, e.g. "$[2].body[0]".
	Path string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s (%s)", d.Severity, d.Rule, d.Message, d.Path)
}

// Lint checks a document body. It expects pre-lowered input, with For
// and ForEach still intact.
//
// Rules:
//   - unused-variable: Let declaration never read afterwards
//   - unreachable-code: statements after Return, Break, Continue, or Throw
//   - empty-body: control flow with an explicitly empty block
//   - variable-shadowing: Let on a name already defined in scope
//   - constant-condition: If or While testing a literal value
func Lint(doc *ast.Document) []Diagnostic {
	l := &linter{}
	if doc != nil {
		l.checkBlock(doc.Body, "$", map[string]bool{})
	}
	return l.diags
}

type linter struct {
	diags []Diagnostic
}

func (l *linter) add(rule, message, path string) {
	l.diags = append(l.diags, Diagnostic{
		Rule:     rule,
		Message:  message,
		Severity: "warning",
		Path:     path,
	})
}

func (l *linter) checkBlock(stmts []ast.Stmt, path string, defined map[string]bool) {
	// Report at most one unreachable-code finding per block.
	for i, stmt := range stmts {
		if isTerminator(stmt) && i < len(stmts)-1 {
			l.add("unreachable-code",
				fmt.Sprintf("statements after %s are unreachable", stmt.TypeName()),
				fmt.Sprintf("%s[%d]", path, i+1))
			break
		}
	}

	type letDecl struct {
		index int
		name  string
	}
	var lets []letDecl

	for i, stmt := range stmts {
		stmtPath := fmt.Sprintf("%s[%d]", path, i)

		switch s := stmt.(type) {
		case *ast.Let:
			if defined[s.Name] {
				l.add("variable-shadowing",
					fmt.Sprintf("variable '%s' shadows an existing definition (use Assign instead)", s.Name),
					stmtPath)
			}
			lets = append(lets, letDecl{index: i, name: s.Name})
			defined = extend(defined, s.Name)

		case *ast.Assign:
			defined = extend(defined, s.Name)

		case *ast.If:
			l.constantTest(s.Test, "If", stmtPath)
			l.emptyBody(s.Then, "If", "then", stmtPath)
			l.emptyBody(s.Else, "If", "else", stmtPath)
			l.checkBlock(s.Then, stmtPath+".then", defined)
			if s.Else != nil {
				l.checkBlock(s.Else, stmtPath+".else", defined)
			}

		case *ast.While:
			l.constantTest(s.Test, "While", stmtPath)
			l.emptyBody(s.Body, "While", "body", stmtPath)
			l.checkBlock(s.Body, stmtPath+".body", defined)

		case *ast.For:
			l.emptyBody(s.Body, "For", "body", stmtPath)
			l.checkBlock(s.Body, stmtPath+".body", extend(defined, s.Var))

		case *ast.ForEach:
			l.emptyBody(s.Body, "ForEach", "body", stmtPath)
			l.checkBlock(s.Body, stmtPath+".body", extend(defined, s.Var))

		case *ast.FuncDef:
			defined = extend(defined, s.Name)
			inner := map[string]bool{s.Name: true}
			for _, p := range s.Params {
				inner[p] = true
			}
			l.checkBlock(s.Body, stmtPath+".body", inner)

		case *ast.Switch:
			for ci, c := range s.Cases {
				l.checkBlock(c.Body, fmt.Sprintf("%s.cases[%d].body", stmtPath, ci), defined)
			}
			if s.Default != nil {
				l.checkBlock(s.Default, stmtPath+".default", defined)
			}

		case *ast.TryCatch:
			l.emptyBody(s.Body, "TryCatch", "body", stmtPath)
			l.emptyBody(s.CatchBody, "TryCatch", "catch_body", stmtPath)
			l.emptyBody(s.Finally, "TryCatch", "finally_body", stmtPath)
			l.checkBlock(s.Body, stmtPath+".body", defined)
			l.checkBlock(s.CatchBody, stmtPath+".catch_body", extend(defined, s.CatchVar))
			if s.Finally != nil {
				l.checkBlock(s.Finally, stmtPath+".finally_body", defined)
			}
		}
	}

	// A Let is unused when nothing after it in this block, including
	// nested blocks, reads the variable.
	for _, decl := range lets {
		refs := map[string]bool{}
		collectVarRefs(stmts[decl.index+1:], refs)
		if !refs[decl.name] {
			l.add("unused-variable",
				fmt.Sprintf("variable '%s' is declared but never used", decl.name),
				fmt.Sprintf("%s[%d]", path, decl.index))
		}
	}
}

// constantTest flags literal conditions. A While over literal true is
// the usual infinite-loop idiom and stays silent.
func (l *linter) constantTest(test ast.Expr, container, path string) {
	lit, ok := test.(*ast.Literal)
	if !ok {
		return
	}
	if container == "While" {
		if b, isBool := lit.Value.(bool); isBool && b {
			return
		}
	}
	l.add("constant-condition",
		fmt.Sprintf("%s condition is a constant", container),
		path+".test")
}

// emptyBody flags a block that is present but empty. Absent optional
// blocks decode as nil and stay silent.
func (l *linter) emptyBody(body []ast.Stmt, container, field, path string) {
	if body != nil && len(body) == 0 {
		l.add("empty-body",
			fmt.Sprintf("%s has empty %s", container, field),
			path+"."+field)
	}
}

func isTerminator(stmt ast.Stmt) bool {
	switch stmt.(type) {
	case *ast.Return, *ast.Break, *ast.Continue, *ast.Throw:
		return true
	}
	return false
}

func extend(defined map[string]bool, name string) map[string]bool {
	if name == "" || defined[name] {
		return defined
	}
	out := make(map[string]bool, len(defined)+1)
	for k := range defined {
		out[k] = true
	}
	out[name] = true
	return out
}

func collectVarRefs(stmts []ast.Stmt, refs map[string]bool) {
	ast.RewriteBody(stmts, func(e ast.Expr) ast.Expr {
		if v, ok := e.(*ast.Var); ok {
			refs[v.Name] = true
		}
		return e
	}, nil)
}
