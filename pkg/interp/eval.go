package interp

import (
	"math"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/runtime"
)

func (i *interpreter) eval(expr ast.Expr, frame *runtime.Environment, depth int) (runtime.Value, error) {
	switch n := expr.(type) {
	case *ast.Literal:
		return literalValue(n.Value)
	case *ast.Var:
		return i.env(frame).Get(n.Name)
	case *ast.Binary:
		return i.evalBinary(n, frame, depth)
	case *ast.Not:
		arg, err := i.eval(n.Arg, frame, depth)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: !runtime.Truthy(arg)}, nil
	case *ast.Ternary:
		test, err := i.eval(n.Test, frame, depth)
		if err != nil {
			return nil, err
		}
		if runtime.Truthy(test) {
			return i.eval(n.Consequent, frame, depth)
		}
		return i.eval(n.Alternate, frame, depth)
	case *ast.StringFormat:
		out := ""
		for _, part := range n.Parts {
			value, err := i.eval(part, frame, depth)
			if err != nil {
				return nil, err
			}
			out += runtime.Format(value)
		}
		return runtime.StringValue{Val: out}, nil
	case *ast.ToInt:
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return nil, err
		}
		return runtime.ToInt(value)
	case *ast.ToFloat:
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return nil, err
		}
		return runtime.ToFloat(value)
	case *ast.ToString:
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return nil, err
		}
		return runtime.ToString(value), nil
	case *ast.Array:
		items, err := i.evalAll(n.Items, frame, depth)
		if err != nil {
			return nil, err
		}
		return &runtime.ArrayValue{Items: items}, nil
	case *ast.Tuple:
		items, err := i.evalAll(n.Items, frame, depth)
		if err != nil {
			return nil, err
		}
		return runtime.TupleValue{Items: items}, nil
	case *ast.SetLiteral:
		items, err := i.evalAll(n.Items, frame, depth)
		if err != nil {
			return nil, err
		}
		set := runtime.NewSet()
		for _, item := range items {
			set.Add(item)
		}
		return set, nil
	case *ast.Index:
		return i.evalIndex(n, frame, depth)
	case *ast.Slice:
		return i.evalSlice(n, frame, depth)
	case *ast.Length:
		base, err := i.eval(n.Base, frame, depth)
		if err != nil {
			return nil, err
		}
		switch v := base.(type) {
		case *runtime.ArrayValue:
			return runtime.IntValue{Val: int64(len(v.Items))}, nil
		case runtime.TupleValue:
			return runtime.IntValue{Val: int64(len(v.Items))}, nil
		case runtime.StringValue:
			return runtime.IntValue{Val: int64(len([]rune(v.Val)))}, nil
		case *runtime.MapValue:
			return runtime.IntValue{Val: int64(v.Len())}, nil
		case *runtime.RangeValue:
			return runtime.IntValue{Val: int64(v.Len())}, nil
		default:
			return nil, runtime.Errorf("Length base must be an array or tuple, got %s", base.Kind())
		}
	case *ast.Range:
		from, err := i.evalInt(n.From, frame, depth, "Range from")
		if err != nil {
			return nil, err
		}
		to, err := i.evalInt(n.To, frame, depth, "Range to")
		if err != nil {
			return nil, err
		}
		return &runtime.RangeValue{From: from, To: to, Inclusive: n.Inclusive}, nil
	case *ast.Map:
		m := runtime.NewMap()
		for _, item := range n.Items {
			key, err := i.eval(item.Key, frame, depth)
			if err != nil {
				return nil, err
			}
			value, err := i.eval(item.Value, frame, depth)
			if err != nil {
				return nil, err
			}
			if err := m.Set(key, value); err != nil {
				return nil, err
			}
		}
		return m, nil
	case *ast.Get:
		base, key, err := i.evalMapAndKey(n.Base, n.Key, frame, depth, "Get")
		if err != nil {
			return nil, err
		}
		value, ok, err := base.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return runtime.NullValue{}, nil
		}
		return value, nil
	case *ast.GetDefault:
		base, key, err := i.evalMapAndKey(n.Base, n.Key, frame, depth, "GetDefault")
		if err != nil {
			return nil, err
		}
		def, err := i.eval(n.Default, frame, depth)
		if err != nil {
			return nil, err
		}
		value, ok, err := base.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return def, nil
		}
		return value, nil
	case *ast.Keys:
		base, err := i.eval(n.Base, frame, depth)
		if err != nil {
			return nil, err
		}
		m, ok := base.(*runtime.MapValue)
		if !ok {
			return nil, runtime.Errorf("Keys base must be a map, got %s", base.Kind())
		}
		return &runtime.ArrayValue{Items: m.Keys()}, nil
	case *ast.Record:
		record := runtime.NewRecord()
		for _, field := range n.Fields {
			value, err := i.eval(field.Value, frame, depth)
			if err != nil {
				return nil, err
			}
			record.SetField(field.Name, value)
		}
		return record, nil
	case *ast.GetField:
		base, err := i.eval(n.Base, frame, depth)
		if err != nil {
			return nil, err
		}
		record, ok := base.(*runtime.RecordValue)
		if !ok {
			return nil, runtime.Errorf("GetField base must be a record, got %s", base.Kind())
		}
		value, ok := record.GetField(n.Name)
		if !ok {
			return nil, runtime.Errorf("field '%s' not found in record", n.Name)
		}
		return value, nil
	case *ast.SetHas:
		set, err := i.evalSet(n.Base, frame, depth)
		if err != nil {
			return nil, err
		}
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: set.Has(value)}, nil
	case *ast.SetSize:
		set, err := i.evalSet(n.Base, frame, depth)
		if err != nil {
			return nil, err
		}
		return runtime.IntValue{Val: int64(set.Len())}, nil
	case *ast.DequeNew:
		return runtime.NewDeque(), nil
	case *ast.DequeSize:
		base, err := i.eval(n.Base, frame, depth)
		if err != nil {
			return nil, err
		}
		deque, ok := base.(*runtime.DequeValue)
		if !ok {
			return nil, runtime.Errorf("DequeSize base must be a deque, got %s", base.Kind())
		}
		return runtime.IntValue{Val: int64(deque.Len())}, nil
	case *ast.HeapNew:
		return runtime.NewHeap(), nil
	case *ast.HeapPeek:
		h, err := i.evalHeap(n.Base, frame, depth)
		if err != nil {
			return nil, err
		}
		return h.Peek()
	case *ast.HeapSize:
		h, err := i.evalHeap(n.Base, frame, depth)
		if err != nil {
			return nil, err
		}
		return runtime.IntValue{Val: int64(h.Len())}, nil
	case *ast.Call:
		return i.call(n, frame, depth)
	case *ast.Math:
		return i.evalMath(n, frame, depth)
	case *ast.MathPow:
		base, err := i.evalNumber(n.Base, frame, depth, "MathPow base")
		if err != nil {
			return nil, err
		}
		exponent, err := i.evalNumber(n.Exponent, frame, depth, "MathPow exponent")
		if err != nil {
			return nil, err
		}
		return runtime.FloatValue{Val: math.Pow(base, exponent)}, nil
	case *ast.MathConst:
		switch n.Name {
		case "pi":
			return runtime.FloatValue{Val: math.Pi}, nil
		case "e":
			return runtime.FloatValue{Val: math.E}, nil
		default:
			return nil, runtime.Errorf("unknown math constant '%s'", n.Name)
		}
	case *ast.JsonParse:
		source, err := i.evalString(n.Source, frame, depth, "JsonParse source")
		if err != nil {
			return nil, err
		}
		return parseJSON(source)
	case *ast.JsonStringify:
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return nil, err
		}
		return stringifyJSON(value, n.Pretty)
	case *ast.RegexMatch, *ast.RegexFindAll, *ast.RegexReplace, *ast.RegexSplit:
		return i.evalRegex(expr, frame, depth)
	case *ast.ExternalCall:
		return i.evalExternal(n, frame, depth)
	case *ast.MethodCall:
		return nil, runtime.Errorf("unsupported method call '%s'", n.Method)
	case *ast.PropertyGet:
		return nil, runtime.Errorf("unsupported property access '%s'", n.Property)
	default:
		return i.evalStringOp(expr, frame, depth)
	}
}

func literalValue(raw any) (runtime.Value, error) {
	switch v := raw.(type) {
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
		return nil, runtime.Errorf("Literal value must be a scalar")
	}
}

func (i *interpreter) evalAll(exprs []ast.Expr, frame *runtime.Environment, depth int) ([]runtime.Value, error) {
	values := make([]runtime.Value, len(exprs))
	for idx, expr := range exprs {
		value, err := i.eval(expr, frame, depth)
		if err != nil {
			return nil, err
		}
		values[idx] = value
	}
	return values, nil
}

func (i *interpreter) evalBinary(n *ast.Binary, frame *runtime.Environment, depth int) (runtime.Value, error) {
	// and/or must not evaluate the right side when the left decides.
	if n.Op == "and" || n.Op == "or" {
		left, err := i.eval(n.Left, frame, depth)
		if err != nil {
			return nil, err
		}
		if n.Op == "and" && !runtime.Truthy(left) {
			return runtime.BoolValue{Val: false}, nil
		}
		if n.Op == "or" && runtime.Truthy(left) {
			return runtime.BoolValue{Val: true}, nil
		}
		right, err := i.eval(n.Right, frame, depth)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: runtime.Truthy(right)}, nil
	}

	left, err := i.eval(n.Left, frame, depth)
	if err != nil {
		return nil, err
	}
	right, err := i.eval(n.Right, frame, depth)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "+":
		return runtime.Add(left, right)
	case "-":
		return runtime.Subtract(left, right)
	case "*":
		return runtime.Multiply(left, right)
	case "/":
		return runtime.Divide(left, right)
	case "//":
		return runtime.FloorDivide(left, right)
	case "%":
		return runtime.Modulo(left, right)
	case "==":
		return runtime.BoolValue{Val: runtime.Equal(left, right)}, nil
	case "!=":
		return runtime.BoolValue{Val: !runtime.Equal(left, right)}, nil
	case "<":
		less, err := runtime.Less(left, right)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: less}, nil
	case "<=":
		greater, err := runtime.Less(right, left)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: !greater}, nil
	case ">":
		less, err := runtime.Less(right, left)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: less}, nil
	case ">=":
		less, err := runtime.Less(left, right)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: !less}, nil
	default:
		return nil, runtime.Errorf("unsupported binary op '%s'", n.Op)
	}
}

func (i *interpreter) evalIndex(n *ast.Index, frame *runtime.Environment, depth int) (runtime.Value, error) {
	base, err := i.eval(n.Base, frame, depth)
	if err != nil {
		return nil, err
	}
	indexValue, err := i.eval(n.Index, frame, depth)
	if err != nil {
		return nil, err
	}
	index, ok := indexValue.(runtime.IntValue)
	if !ok {
		return nil, runtime.Errorf("Index must be an integer, got %s", indexValue.Kind())
	}
	var items []runtime.Value
	switch v := base.(type) {
	case *runtime.ArrayValue:
		items = v.Items
	case runtime.TupleValue:
		items = v.Items
	case runtime.StringValue:
		runes := []rune(v.Val)
		resolved, inRange := runtime.ResolveIndex(index.Val, len(runes))
		if !inRange {
			return nil, runtime.Errorf("index %d out of range for string of length %d", index.Val, len(runes))
		}
		return runtime.StringValue{Val: string(runes[resolved])}, nil
	case *runtime.RangeValue:
		resolved, inRange := runtime.ResolveIndex(index.Val, v.Len())
		if !inRange {
			return nil, runtime.Errorf("index %d out of range", index.Val)
		}
		return v.At(resolved), nil
	default:
		return nil, runtime.Errorf("Index base must be an array or tuple, got %s", base.Kind())
	}
	resolved, inRange := runtime.ResolveIndex(index.Val, len(items))
	if !inRange {
		return nil, runtime.Errorf("index %d out of range for array of length %d", index.Val, len(items))
	}
	return items[resolved], nil
}

func (i *interpreter) evalSlice(n *ast.Slice, frame *runtime.Environment, depth int) (runtime.Value, error) {
	base, err := i.eval(n.Base, frame, depth)
	if err != nil {
		return nil, err
	}
	start, err := i.evalInt(n.Start, frame, depth, "Slice start")
	if err != nil {
		return nil, err
	}
	end, err := i.evalInt(n.End, frame, depth, "Slice end")
	if err != nil {
		return nil, err
	}
	switch v := base.(type) {
	case *runtime.ArrayValue:
		s, e := runtime.ResolveSliceBounds(start, end, len(v.Items))
		return &runtime.ArrayValue{Items: append([]runtime.Value{}, v.Items[s:e]...)}, nil
	case runtime.StringValue:
		runes := []rune(v.Val)
		s, e := runtime.ResolveSliceBounds(start, end, len(runes))
		return runtime.StringValue{Val: string(runes[s:e])}, nil
	default:
		return nil, runtime.Errorf("Slice base must be an array or string, got %s", base.Kind())
	}
}

func (i *interpreter) evalMath(n *ast.Math, frame *runtime.Environment, depth int) (runtime.Value, error) {
	arg, err := i.evalNumber(n.Arg, frame, depth, "Math arg")
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "sin":
		return runtime.FloatValue{Val: math.Sin(arg)}, nil
	case "cos":
		return runtime.FloatValue{Val: math.Cos(arg)}, nil
	case "tan":
		return runtime.FloatValue{Val: math.Tan(arg)}, nil
	case "sqrt":
		if arg < 0 {
			return nil, runtime.Errorf("sqrt of negative number")
		}
		return runtime.FloatValue{Val: math.Sqrt(arg)}, nil
	case "floor":
		return runtime.IntValue{Val: int64(math.Floor(arg))}, nil
	case "ceil":
		return runtime.IntValue{Val: int64(math.Ceil(arg))}, nil
	case "abs":
		return runtime.FloatValue{Val: math.Abs(arg)}, nil
	case "log":
		if arg <= 0 {
			return nil, runtime.Errorf("log of non-positive number")
		}
		return runtime.FloatValue{Val: math.Log(arg)}, nil
	case "exp":
		return runtime.FloatValue{Val: math.Exp(arg)}, nil
	default:
		return nil, runtime.Errorf("unknown math op '%s'", n.Op)
	}
}

// evalInt evaluates an expression that must produce an integer.
func (i *interpreter) evalInt(expr ast.Expr, frame *runtime.Environment, depth int, what string) (int64, error) {
	value, err := i.eval(expr, frame, depth)
	if err != nil {
		return 0, err
	}
	n, ok := value.(runtime.IntValue)
	if !ok {
		return 0, runtime.Errorf("%s must be an integer, got %s", what, value.Kind())
	}
	return n.Val, nil
}

func (i *interpreter) evalNumber(expr ast.Expr, frame *runtime.Environment, depth int, what string) (float64, error) {
	value, err := i.eval(expr, frame, depth)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case runtime.IntValue:
		return float64(v.Val), nil
	case runtime.FloatValue:
		return v.Val, nil
	default:
		return 0, runtime.Errorf("%s must be a number, got %s", what, value.Kind())
	}
}

func (i *interpreter) evalString(expr ast.Expr, frame *runtime.Environment, depth int, what string) (string, error) {
	value, err := i.eval(expr, frame, depth)
	if err != nil {
		return "", err
	}
	s, ok := value.(runtime.StringValue)
	if !ok {
		return "", runtime.Errorf("%s must be a string, got %s", what, value.Kind())
	}
	return s.Val, nil
}

func (i *interpreter) evalSet(expr ast.Expr, frame *runtime.Environment, depth int) (*runtime.SetValue, error) {
	base, err := i.eval(expr, frame, depth)
	if err != nil {
		return nil, err
	}
	set, ok := base.(*runtime.SetValue)
	if !ok {
		return nil, runtime.Errorf("set operation on %s", base.Kind())
	}
	return set, nil
}

func (i *interpreter) evalMapAndKey(baseExpr, keyExpr ast.Expr, frame *runtime.Environment, depth int, what string) (*runtime.MapValue, runtime.Value, error) {
	base, err := i.eval(baseExpr, frame, depth)
	if err != nil {
		return nil, nil, err
	}
	m, ok := base.(*runtime.MapValue)
	if !ok {
		return nil, nil, runtime.Errorf("%s base must be a map, got %s", what, base.Kind())
	}
	key, err := i.eval(keyExpr, frame, depth)
	if err != nil {
		return nil, nil, err
	}
	return m, key, nil
}
