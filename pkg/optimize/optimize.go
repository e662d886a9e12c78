// Package optimize rewrites a document into a cheaper equivalent.
// Every transform is output-preserving: same printed text, same errors
// on the same statements, same exit code. Folding goes through the
// runtime operator implementations, so a folded result is by
// construction the value the interpreter would have produced.
package optimize

import (
	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/runtime"
)

// Optimize returns an optimized copy of doc. The input is never mutated.
func Optimize(doc *ast.Document) *ast.Document {
	out := &ast.Document{
		Version:     doc.Version,
		Body:        ast.RewriteBody(doc.Body, foldExpr, pruneBlock),
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

// pruneBlock applies the statement-level passes to an already-rewritten
// block: branch elimination on constant tests, then dead-code
// elimination after a terminator.
func pruneBlock(body []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(body))
	for _, stmt := range body {
		stmt = pruneStmt(stmt)
		out = append(out, stmt)
		switch stmt.(type) {
		case *ast.Return, *ast.Break, *ast.Continue, *ast.Throw:
			return out
		}
	}
	return out
}

func pruneStmt(stmt ast.Stmt) ast.Stmt {
	n, ok := stmt.(*ast.If)
	if !ok {
		return stmt
	}
	lit, ok := n.Test.(*ast.Literal)
	if !ok {
		return stmt
	}
	// The test keeps its place so the statement count is stable; only
	// the branch that can never run is dropped.
	if truthyLiteral(lit) {
		return &ast.If{Test: n.Test, Then: n.Then}
	}
	return &ast.If{Test: n.Test, Then: n.Else}
}

func foldExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.Binary:
		return foldBinary(n)
	case *ast.Not:
		if lit, ok := n.Arg.(*ast.Literal); ok {
			return &ast.Literal{Value: !truthyLiteral(lit)}
		}
	case *ast.Ternary:
		if lit, ok := n.Test.(*ast.Literal); ok {
			if truthyLiteral(lit) {
				return n.Consequent
			}
			return n.Alternate
		}
	case *ast.StringFormat:
		out := ""
		for _, part := range n.Parts {
			lit, ok := part.(*ast.Literal)
			if !ok {
				return e
			}
			value, err := literalValue(lit)
			if err != nil {
				return e
			}
			out += runtime.Format(value)
		}
		return &ast.Literal{Value: out}
	}
	return e
}

func foldBinary(n *ast.Binary) ast.Expr {
	leftLit, leftOK := n.Left.(*ast.Literal)
	rightLit, rightOK := n.Right.(*ast.Literal)

	if n.Op == "and" || n.Op == "or" {
		return foldLogical(n, leftLit, leftOK, rightLit, rightOK)
	}

	if leftOK && rightOK {
		if folded, ok := foldArithmetic(n.Op, leftLit, rightLit); ok {
			return folded
		}
	}
	// With one side non-literal there is nothing safe to do: x + 0 looks
	// like an identity, but if x is a string the operation must still
	// fail at run time, so the node stays.
	return n
}

// foldLogical folds short-circuit operators. When the left operand
// alone decides the result, the right side was never going to be
// evaluated, so dropping it cannot lose an effect or an error.
func foldLogical(n *ast.Binary, leftLit *ast.Literal, leftOK bool, rightLit *ast.Literal, rightOK bool) ast.Expr {
	if !leftOK {
		return n
	}
	leftTruthy := truthyLiteral(leftLit)
	if n.Op == "and" && !leftTruthy {
		return &ast.Literal{Value: false}
	}
	if n.Op == "or" && leftTruthy {
		return &ast.Literal{Value: true}
	}
	if rightOK {
		return &ast.Literal{Value: truthyLiteral(rightLit)}
	}
	return n
}

// foldArithmetic evaluates a fully-literal operation with the runtime
// operators. Anything that would be a runtime error, division or
// modulo by zero included, is left in place to fail on its original
// statement.
func foldArithmetic(op string, left, right *ast.Literal) (ast.Expr, bool) {
	lv, err := literalValue(left)
	if err != nil {
		return nil, false
	}
	rv, err := literalValue(right)
	if err != nil {
		return nil, false
	}

	var result runtime.Value
	switch op {
	case "+":
		result, err = runtime.Add(lv, rv)
	case "-":
		result, err = runtime.Subtract(lv, rv)
	case "*":
		result, err = runtime.Multiply(lv, rv)
	case "/":
		result, err = runtime.Divide(lv, rv)
	case "//":
		result, err = runtime.FloorDivide(lv, rv)
	case "%":
		result, err = runtime.Modulo(lv, rv)
	case "==":
		result = runtime.BoolValue{Val: runtime.Equal(lv, rv)}
	case "!=":
		result = runtime.BoolValue{Val: !runtime.Equal(lv, rv)}
	case "<":
		var less bool
		less, err = runtime.Less(lv, rv)
		result = runtime.BoolValue{Val: less}
	case "<=":
		var greater bool
		greater, err = runtime.Less(rv, lv)
		result = runtime.BoolValue{Val: !greater}
	case ">":
		var less bool
		less, err = runtime.Less(rv, lv)
		result = runtime.BoolValue{Val: less}
	case ">=":
		var less bool
		less, err = runtime.Less(lv, rv)
		result = runtime.BoolValue{Val: !less}
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	return literalOf(result)
}

func literalValue(lit *ast.Literal) (runtime.Value, error) {
	switch v := lit.Value.(type) {
	case nil:
		return runtime.NullValue{}, nil
	case bool:
		return runtime.BoolValue{Val: v}, nil
	case int64:
		return runtime.IntValue{Val: v}, nil
	case float64:
		return runtime.FloatValue{Val: v}, nil
	case string:
		return runtime.StringValue{Val: v}, nil
	default:
		return nil, runtime.Errorf("not a scalar literal")
	}
}

func literalOf(v runtime.Value) (ast.Expr, bool) {
	switch val := v.(type) {
	case runtime.NullValue:
		return &ast.Literal{Value: nil}, true
	case runtime.BoolValue:
		return &ast.Literal{Value: val.Val}, true
	case runtime.IntValue:
		return &ast.Literal{Value: val.Val}, true
	case runtime.FloatValue:
		return &ast.Literal{Value: val.Val}, true
	case runtime.StringValue:
		return &ast.Literal{Value: val.Val}, true
	default:
		return nil, false
	}
}

func truthyLiteral(lit *ast.Literal) bool {
	value, err := literalValue(lit)
	if err != nil {
		return true
	}
	return runtime.Truthy(value)
}

