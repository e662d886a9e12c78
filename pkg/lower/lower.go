// Package lower normalizes a document ahead of optimization and
// codegen. For and ForEach stay first-class nodes so Break and Continue
// keep their meaning in every backend's native loop; only the
// expressions nested inside them are rewritten. Desugaring ranged
// loops into While was abandoned: a Continue in the desugared form
// skips the counter increment and loops forever.
package lower

import (
	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

// Lower returns a normalized copy of doc. The input is never mutated.
func Lower(doc *ast.Document) *ast.Document {
	out := &ast.Document{
		Version:     doc.Version,
		Body:        ast.RewriteBody(doc.Body, lowerExpr, nil),
		Ambiguities: append([]ast.Ambiguity{}, doc.Ambiguities...),
	}
	if doc.SourceMap != nil {
		out.SourceMap = make(map[string][]int, len(doc.SourceMap))
		for k, v := range doc.SourceMap {
			out.SourceMap[k] = append([]int{}, v...)
		}
	}
	return out
}

// lowerExpr is where sugared expressions would desugar. Every current
// expression form is already primitive, so the rewrite is identity and
// its value is the fresh copy the traversal produces.
func lowerExpr(e ast.Expr) ast.Expr {
	return e
}
