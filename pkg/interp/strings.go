package interp

import (
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/runtime"
)

// evalStringOp handles the string-family expression nodes. It is the tail of
// the main eval switch so the default case there stays a single call.
func (i *interpreter) evalStringOp(expr ast.Expr, frame *runtime.Environment, depth int) (runtime.Value, error) {
	switch n := expr.(type) {
	case *ast.StringLength:
		s, err := i.evalString(n.Base, frame, depth, "StringLength base")
		if err != nil {
			return nil, err
		}
		return runtime.IntValue{Val: int64(len([]rune(s)))}, nil
	case *ast.Substring:
		s, err := i.evalString(n.Base, frame, depth, "Substring base")
		if err != nil {
			return nil, err
		}
		start, err := i.evalInt(n.Start, frame, depth, "Substring start")
		if err != nil {
			return nil, err
		}
		end, err := i.evalInt(n.End, frame, depth, "Substring end")
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		if start < 0 || end < 0 {
			return nil, runtime.Errorf("Substring bounds must be non-negative")
		}
		if start > int64(len(runes)) || end > int64(len(runes)) {
			return nil, runtime.Errorf("Substring range [%d:%d) out of bounds for string of length %d", start, end, len(runes))
		}
		if start > end {
			return runtime.StringValue{}, nil
		}
		return runtime.StringValue{Val: string(runes[start:end])}, nil
	case *ast.CharAt:
		s, err := i.evalString(n.Base, frame, depth, "CharAt base")
		if err != nil {
			return nil, err
		}
		index, err := i.evalInt(n.Index, frame, depth, "CharAt index")
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		if index < 0 || index >= int64(len(runes)) {
			return nil, runtime.Errorf("CharAt index %d out of bounds for string of length %d", index, len(runes))
		}
		return runtime.StringValue{Val: string(runes[index])}, nil
	case *ast.Join:
		sep, err := i.evalString(n.Sep, frame, depth, "Join separator")
		if err != nil {
			return nil, err
		}
		items, err := i.eval(n.Items, frame, depth)
		if err != nil {
			return nil, err
		}
		arr, ok := items.(*runtime.ArrayValue)
		if !ok {
			return nil, runtime.Errorf("Join items must be an array, got %s", items.Kind())
		}
		parts := make([]string, len(arr.Items))
		for idx, item := range arr.Items {
			parts[idx] = runtime.Format(item)
		}
		return runtime.StringValue{Val: strings.Join(parts, sep)}, nil
	case *ast.StringSplit:
		s, err := i.evalString(n.Base, frame, depth, "StringSplit base")
		if err != nil {
			return nil, err
		}
		delim, err := i.evalString(n.Delimiter, frame, depth, "StringSplit delimiter")
		if err != nil {
			return nil, err
		}
		parts := strings.Split(s, delim)
		items := make([]runtime.Value, len(parts))
		for idx, part := range parts {
			items[idx] = runtime.StringValue{Val: part}
		}
		return &runtime.ArrayValue{Items: items}, nil
	case *ast.StringTrim:
		s, err := i.evalString(n.Base, frame, depth, "StringTrim base")
		if err != nil {
			return nil, err
		}
		return runtime.StringValue{Val: strings.TrimSpace(s)}, nil
	case *ast.StringUpper:
		s, err := i.evalString(n.Base, frame, depth, "StringUpper base")
		if err != nil {
			return nil, err
		}
		return runtime.StringValue{Val: strings.ToUpper(s)}, nil
	case *ast.StringLower:
		s, err := i.evalString(n.Base, frame, depth, "StringLower base")
		if err != nil {
			return nil, err
		}
		return runtime.StringValue{Val: strings.ToLower(s)}, nil
	case *ast.StringStartsWith:
		s, err := i.evalString(n.Base, frame, depth, "StringStartsWith base")
		if err != nil {
			return nil, err
		}
		prefix, err := i.evalString(n.Prefix, frame, depth, "StringStartsWith prefix")
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: strings.HasPrefix(s, prefix)}, nil
	case *ast.StringEndsWith:
		s, err := i.evalString(n.Base, frame, depth, "StringEndsWith base")
		if err != nil {
			return nil, err
		}
		suffix, err := i.evalString(n.Suffix, frame, depth, "StringEndsWith suffix")
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: strings.HasSuffix(s, suffix)}, nil
	case *ast.StringContains:
		s, err := i.evalString(n.Base, frame, depth, "StringContains base")
		if err != nil {
			return nil, err
		}
		sub, err := i.evalString(n.Substring, frame, depth, "StringContains substring")
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: strings.Contains(s, sub)}, nil
	case *ast.StringReplace:
		s, err := i.evalString(n.Base, frame, depth, "StringReplace base")
		if err != nil {
			return nil, err
		}
		old, err := i.evalString(n.Old, frame, depth, "StringReplace old")
		if err != nil {
			return nil, err
		}
		repl, err := i.evalString(n.New, frame, depth, "StringReplace new")
		if err != nil {
			return nil, err
		}
		return runtime.StringValue{Val: strings.ReplaceAll(s, old, repl)}, nil
	default:
		return nil, runtime.Errorf("unexpected expression type '%s'", expr.TypeName())
	}
}
