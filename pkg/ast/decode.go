package ast

import (
	"encoding/json"
	"fmt"
)

type stmtCategoryDecoder func(map[string]any, string) (Stmt, bool, error)
type exprCategoryDecoder func(map[string]any, string) (Expr, bool, error)

var stmtDecoders []stmtCategoryDecoder
var exprDecoders []exprCategoryDecoder

func init() {
	stmtDecoders = []stmtCategoryDecoder{
		decodeCoreStmts,
		decodeControlFlowStmts,
		decodeMutationStmts,
		decodeContainerStmts,
	}
	exprDecoders = []exprCategoryDecoder{
		decodeCoreExprs,
		decodeCollectionExprs,
		decodeStringExprs,
		decodeMathExprs,
		decodeTier2Exprs,
	}
}

func decodeStmt(raw any) (Stmt, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("statement must be an object")
	}
	typ, _ := obj["type"].(string)
	for _, decoder := range stmtDecoders {
		decoded, handled, err := decoder(obj, typ)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		if handled {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("unexpected statement type '%s'", typ)
}

func decodeExpr(raw any) (Expr, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expression must be an object")
	}
	typ, _ := obj["type"].(string)
	for _, decoder := range exprDecoders {
		decoded, handled, err := decoder(obj, typ)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		if handled {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("unexpected expression type '%s'", typ)
}

// ---------------------------------------------------------------------------
// Statement categories
// ---------------------------------------------------------------------------

func decodeCoreStmts(obj map[string]any, typ string) (Stmt, bool, error) {
	switch typ {
	case "Let":
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		return &Let{Name: strField(obj, "name"), Value: value}, true, nil
	case "Assign":
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		return &Assign{Name: strField(obj, "name"), Value: value}, true, nil
	case "Print":
		args, err := exprListField(obj, "args")
		if err != nil {
			return nil, true, err
		}
		return &Print{Args: args}, true, nil
	case "Call":
		args, err := exprListField(obj, "args")
		if err != nil {
			return nil, true, err
		}
		return &Call{Name: strField(obj, "name"), Args: args}, true, nil
	case "FuncDef":
		params := []string{}
		if raw, ok := obj["params"].([]any); ok {
			for _, p := range raw {
				s, _ := p.(string)
				params = append(params, s)
			}
		}
		body, err := stmtListField(obj, "body")
		if err != nil {
			return nil, true, err
		}
		return &FuncDef{Name: strField(obj, "name"), Params: params, Body: body}, true, nil
	case "Import":
		return &Import{Path: strField(obj, "path"), Alias: strField(obj, "alias")}, true, nil
	}
	return nil, false, nil
}

func decodeControlFlowStmts(obj map[string]any, typ string) (Stmt, bool, error) {
	switch typ {
	case "If":
		test, err := exprField(obj, "test")
		if err != nil {
			return nil, true, err
		}
		then, err := stmtListField(obj, "then")
		if err != nil {
			return nil, true, err
		}
		var elseBody []Stmt
		if _, present := obj["else"]; present {
			elseBody, err = stmtListField(obj, "else")
			if err != nil {
				return nil, true, err
			}
		}
		return &If{Test: test, Then: then, Else: elseBody}, true, nil
	case "While":
		test, err := exprField(obj, "test")
		if err != nil {
			return nil, true, err
		}
		body, err := stmtListField(obj, "body")
		if err != nil {
			return nil, true, err
		}
		return &While{Test: test, Body: body}, true, nil
	case "For", "ForEach":
		iter, err := exprField(obj, "iter")
		if err != nil {
			return nil, true, err
		}
		body, err := stmtListField(obj, "body")
		if err != nil {
			return nil, true, err
		}
		if typ == "For" {
			return &For{Var: strField(obj, "var"), Iter: iter, Body: body}, true, nil
		}
		return &ForEach{Var: strField(obj, "var"), Iter: iter, Body: body}, true, nil
	case "Switch":
		test, err := exprField(obj, "test")
		if err != nil {
			return nil, true, err
		}
		node := &Switch{Test: test}
		if rawCases, ok := obj["cases"].([]any); ok {
			for i, rawCase := range rawCases {
				caseObj, ok := rawCase.(map[string]any)
				if !ok {
					return nil, true, fmt.Errorf("cases[%d] must be an object", i)
				}
				value, err := exprField(caseObj, "value")
				if err != nil {
					return nil, true, err
				}
				body, err := stmtListField(caseObj, "body")
				if err != nil {
					return nil, true, err
				}
				node.Cases = append(node.Cases, SwitchCase{Value: value, Body: body})
			}
		}
		if _, present := obj["default"]; present {
			def, err := stmtListField(obj, "default")
			if err != nil {
				return nil, true, err
			}
			node.Default = def
		}
		return node, true, nil
	case "Break":
		return &Break{}, true, nil
	case "Continue":
		return &Continue{}, true, nil
	case "Return":
		if _, present := obj["value"]; present {
			value, err := exprField(obj, "value")
			if err != nil {
				return nil, true, err
			}
			return &Return{Value: value}, true, nil
		}
		return &Return{}, true, nil
	case "Throw":
		message, err := exprField(obj, "message")
		if err != nil {
			return nil, true, err
		}
		return &Throw{Message: message}, true, nil
	case "TryCatch":
		body, err := stmtListField(obj, "body")
		if err != nil {
			return nil, true, err
		}
		catchBody, err := stmtListField(obj, "catch_body")
		if err != nil {
			return nil, true, err
		}
		node := &TryCatch{Body: body, CatchVar: strField(obj, "catch_var"), CatchBody: catchBody}
		if _, present := obj["finally_body"]; present {
			finally, err := stmtListField(obj, "finally_body")
			if err != nil {
				return nil, true, err
			}
			node.Finally = finally
		}
		return node, true, nil
	}
	return nil, false, nil
}

func decodeMutationStmts(obj map[string]any, typ string) (Stmt, bool, error) {
	switch typ {
	case "Set":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		key, err := exprField(obj, "key")
		if err != nil {
			return nil, true, err
		}
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		return &MapPut{Base: base, Key: key, Value: value}, true, nil
	case "SetIndex":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		index, err := exprField(obj, "index")
		if err != nil {
			return nil, true, err
		}
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		return &SetIndex{Base: base, Index: index, Value: value}, true, nil
	case "SetField":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		return &SetField{Base: base, Name: strField(obj, "name"), Value: value}, true, nil
	case "Push":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		return &Push{Base: base, Value: value}, true, nil
	}
	return nil, false, nil
}

func decodeContainerStmts(obj map[string]any, typ string) (Stmt, bool, error) {
	switch typ {
	case "SetAdd", "SetRemove", "PushBack", "PushFront":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		switch typ {
		case "SetAdd":
			return &SetAdd{Base: base, Value: value}, true, nil
		case "SetRemove":
			return &SetRemove{Base: base, Value: value}, true, nil
		case "PushBack":
			return &PushBack{Base: base, Value: value}, true, nil
		default:
			return &PushFront{Base: base, Value: value}, true, nil
		}
	case "PopFront", "PopBack", "HeapPop":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		target := strField(obj, "target")
		switch typ {
		case "PopFront":
			return &PopFront{Base: base, Target: target}, true, nil
		case "PopBack":
			return &PopBack{Base: base, Target: target}, true, nil
		default:
			return &HeapPop{Base: base, Target: target}, true, nil
		}
	case "HeapPush":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		priority, err := exprField(obj, "priority")
		if err != nil {
			return nil, true, err
		}
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		return &HeapPush{Base: base, Priority: priority, Value: value}, true, nil
	}
	return nil, false, nil
}

// ---------------------------------------------------------------------------
// Expression categories
// ---------------------------------------------------------------------------

func decodeCoreExprs(obj map[string]any, typ string) (Expr, bool, error) {
	switch typ {
	case "Literal":
		value, err := decodeScalar(obj["value"])
		if err != nil {
			return nil, true, err
		}
		return &Literal{Value: value}, true, nil
	case "Var":
		return &Var{Name: strField(obj, "name")}, true, nil
	case "Binary":
		left, err := exprField(obj, "left")
		if err != nil {
			return nil, true, err
		}
		right, err := exprField(obj, "right")
		if err != nil {
			return nil, true, err
		}
		return &Binary{Op: strField(obj, "op"), Left: left, Right: right}, true, nil
	case "Not":
		arg, err := exprField(obj, "arg")
		if err != nil {
			return nil, true, err
		}
		return &Not{Arg: arg}, true, nil
	case "Ternary":
		test, err := exprField(obj, "test")
		if err != nil {
			return nil, true, err
		}
		consequent, err := exprField(obj, "consequent")
		if err != nil {
			return nil, true, err
		}
		alternate, err := exprField(obj, "alternate")
		if err != nil {
			return nil, true, err
		}
		return &Ternary{Test: test, Consequent: consequent, Alternate: alternate}, true, nil
	case "StringFormat":
		parts, err := exprListField(obj, "parts")
		if err != nil {
			return nil, true, err
		}
		return &StringFormat{Parts: parts}, true, nil
	case "ToInt", "ToFloat", "ToString":
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		switch typ {
		case "ToInt":
			return &ToInt{Value: value}, true, nil
		case "ToFloat":
			return &ToFloat{Value: value}, true, nil
		default:
			return &ToString{Value: value}, true, nil
		}
	case "Call":
		args, err := exprListField(obj, "args")
		if err != nil {
			return nil, true, err
		}
		return &Call{Name: strField(obj, "name"), Args: args}, true, nil
	}
	return nil, false, nil
}

func decodeCollectionExprs(obj map[string]any, typ string) (Expr, bool, error) {
	switch typ {
	case "Array":
		items, err := exprListField(obj, "items")
		if err != nil {
			return nil, true, err
		}
		return &Array{Items: items}, true, nil
	case "Tuple":
		items, err := exprListField(obj, "items")
		if err != nil {
			return nil, true, err
		}
		return &Tuple{Items: items}, true, nil
	case "Set":
		items, err := exprListField(obj, "items")
		if err != nil {
			return nil, true, err
		}
		return &SetLiteral{Items: items}, true, nil
	case "Index":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		index, err := exprField(obj, "index")
		if err != nil {
			return nil, true, err
		}
		return &Index{Base: base, Index: index}, true, nil
	case "Slice":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		start, err := exprField(obj, "start")
		if err != nil {
			return nil, true, err
		}
		end, err := exprField(obj, "end")
		if err != nil {
			return nil, true, err
		}
		return &Slice{Base: base, Start: start, End: end}, true, nil
	case "Length":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		return &Length{Base: base}, true, nil
	case "Range":
		from, err := exprField(obj, "from")
		if err != nil {
			return nil, true, err
		}
		to, err := exprField(obj, "to")
		if err != nil {
			return nil, true, err
		}
		inclusive, _ := obj["inclusive"].(bool)
		return &Range{From: from, To: to, Inclusive: inclusive}, true, nil
	case "Map":
		node := &Map{}
		rawItems, ok := obj["items"].([]any)
		if !ok {
			return nil, true, fmt.Errorf("items must be a list")
		}
		for i, rawItem := range rawItems {
			itemObj, ok := rawItem.(map[string]any)
			if !ok {
				return nil, true, fmt.Errorf("items[%d] must be an object", i)
			}
			key, err := exprField(itemObj, "key")
			if err != nil {
				return nil, true, err
			}
			value, err := exprField(itemObj, "value")
			if err != nil {
				return nil, true, err
			}
			node.Items = append(node.Items, MapItem{Key: key, Value: value})
		}
		return node, true, nil
	case "Get":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		key, err := exprField(obj, "key")
		if err != nil {
			return nil, true, err
		}
		return &Get{Base: base, Key: key}, true, nil
	case "GetDefault":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		key, err := exprField(obj, "key")
		if err != nil {
			return nil, true, err
		}
		def, err := exprField(obj, "default")
		if err != nil {
			return nil, true, err
		}
		return &GetDefault{Base: base, Key: key, Default: def}, true, nil
	case "Keys":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		return &Keys{Base: base}, true, nil
	case "Record":
		node := &Record{}
		rawFields, ok := obj["fields"].([]any)
		if !ok {
			return nil, true, fmt.Errorf("fields must be a list")
		}
		for i, rawField := range rawFields {
			fieldObj, ok := rawField.(map[string]any)
			if !ok {
				return nil, true, fmt.Errorf("fields[%d] must be an object", i)
			}
			value, err := exprField(fieldObj, "value")
			if err != nil {
				return nil, true, err
			}
			node.Fields = append(node.Fields, RecordField{Name: strField(fieldObj, "name"), Value: value})
		}
		return node, true, nil
	case "GetField":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		return &GetField{Base: base, Name: strField(obj, "name")}, true, nil
	case "SetHas":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		return &SetHas{Base: base, Value: value}, true, nil
	case "SetSize", "DequeSize", "HeapPeek", "HeapSize":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		switch typ {
		case "SetSize":
			return &SetSize{Base: base}, true, nil
		case "DequeSize":
			return &DequeSize{Base: base}, true, nil
		case "HeapPeek":
			return &HeapPeek{Base: base}, true, nil
		default:
			return &HeapSize{Base: base}, true, nil
		}
	case "DequeNew":
		return &DequeNew{}, true, nil
	case "HeapNew":
		return &HeapNew{}, true, nil
	}
	return nil, false, nil
}

func decodeStringExprs(obj map[string]any, typ string) (Expr, bool, error) {
	switch typ {
	case "StringLength", "StringTrim", "StringUpper", "StringLower":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		switch typ {
		case "StringLength":
			return &StringLength{Base: base}, true, nil
		case "StringTrim":
			return &StringTrim{Base: base}, true, nil
		case "StringUpper":
			return &StringUpper{Base: base}, true, nil
		default:
			return &StringLower{Base: base}, true, nil
		}
	case "Substring":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		start, err := exprField(obj, "start")
		if err != nil {
			return nil, true, err
		}
		end, err := exprField(obj, "end")
		if err != nil {
			return nil, true, err
		}
		return &Substring{Base: base, Start: start, End: end}, true, nil
	case "CharAt":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		index, err := exprField(obj, "index")
		if err != nil {
			return nil, true, err
		}
		return &CharAt{Base: base, Index: index}, true, nil
	case "Join":
		sep, err := exprField(obj, "sep")
		if err != nil {
			return nil, true, err
		}
		items, err := exprField(obj, "items")
		if err != nil {
			return nil, true, err
		}
		return &Join{Sep: sep, Items: items}, true, nil
	case "StringSplit":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		delimiter, err := exprField(obj, "delimiter")
		if err != nil {
			return nil, true, err
		}
		return &StringSplit{Base: base, Delimiter: delimiter}, true, nil
	case "StringStartsWith":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		prefix, err := exprField(obj, "prefix")
		if err != nil {
			return nil, true, err
		}
		return &StringStartsWith{Base: base, Prefix: prefix}, true, nil
	case "StringEndsWith":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		suffix, err := exprField(obj, "suffix")
		if err != nil {
			return nil, true, err
		}
		return &StringEndsWith{Base: base, Suffix: suffix}, true, nil
	case "StringContains":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		substring, err := exprField(obj, "substring")
		if err != nil {
			return nil, true, err
		}
		return &StringContains{Base: base, Substring: substring}, true, nil
	case "StringReplace":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		old, err := exprField(obj, "old")
		if err != nil {
			return nil, true, err
		}
		new_, err := exprField(obj, "new")
		if err != nil {
			return nil, true, err
		}
		return &StringReplace{Base: base, Old: old, New: new_}, true, nil
	}
	return nil, false, nil
}

func decodeMathExprs(obj map[string]any, typ string) (Expr, bool, error) {
	switch typ {
	case "Math":
		arg, err := exprField(obj, "arg")
		if err != nil {
			return nil, true, err
		}
		return &Math{Op: strField(obj, "op"), Arg: arg}, true, nil
	case "MathPow":
		base, err := exprField(obj, "base")
		if err != nil {
			return nil, true, err
		}
		exponent, err := exprField(obj, "exponent")
		if err != nil {
			return nil, true, err
		}
		return &MathPow{Base: base, Exponent: exponent}, true, nil
	case "MathConst":
		return &MathConst{Name: strField(obj, "name")}, true, nil
	case "JsonParse":
		source, err := exprField(obj, "source")
		if err != nil {
			return nil, true, err
		}
		return &JsonParse{Source: source}, true, nil
	case "JsonStringify":
		value, err := exprField(obj, "value")
		if err != nil {
			return nil, true, err
		}
		pretty, _ := obj["pretty"].(bool)
		return &JsonStringify{Value: value, Pretty: pretty}, true, nil
	case "RegexMatch", "RegexFindAll":
		str, err := exprField(obj, "string")
		if err != nil {
			return nil, true, err
		}
		pattern, err := exprField(obj, "pattern")
		if err != nil {
			return nil, true, err
		}
		flags := strField(obj, "flags")
		if typ == "RegexMatch" {
			return &RegexMatch{String: str, Pattern: pattern, Flags: flags}, true, nil
		}
		return &RegexFindAll{String: str, Pattern: pattern, Flags: flags}, true, nil
	case "RegexReplace":
		str, err := exprField(obj, "string")
		if err != nil {
			return nil, true, err
		}
		pattern, err := exprField(obj, "pattern")
		if err != nil {
			return nil, true, err
		}
		replacement, err := exprField(obj, "replacement")
		if err != nil {
			return nil, true, err
		}
		return &RegexReplace{String: str, Pattern: pattern, Replacement: replacement, Flags: strField(obj, "flags")}, true, nil
	case "RegexSplit":
		str, err := exprField(obj, "string")
		if err != nil {
			return nil, true, err
		}
		pattern, err := exprField(obj, "pattern")
		if err != nil {
			return nil, true, err
		}
		maxSplit := 0
		if _, present := obj["maxsplit"]; present {
			n, err := toInt(obj["maxsplit"])
			if err != nil {
				return nil, true, fmt.Errorf("maxsplit: %w", err)
			}
			maxSplit = n
		}
		return &RegexSplit{String: str, Pattern: pattern, Flags: strField(obj, "flags"), MaxSplit: maxSplit}, true, nil
	}
	return nil, false, nil
}

func decodeTier2Exprs(obj map[string]any, typ string) (Expr, bool, error) {
	switch typ {
	case "ExternalCall":
		args, err := exprListField(obj, "args")
		if err != nil {
			return nil, true, err
		}
		return &ExternalCall{Module: strField(obj, "module"), Function: strField(obj, "function"), Args: args}, true, nil
	case "MethodCall":
		object, err := exprField(obj, "object")
		if err != nil {
			return nil, true, err
		}
		args, err := exprListField(obj, "args")
		if err != nil {
			return nil, true, err
		}
		return &MethodCall{Object: object, Method: strField(obj, "method"), Args: args}, true, nil
	case "PropertyGet":
		object, err := exprField(obj, "object")
		if err != nil {
			return nil, true, err
		}
		return &PropertyGet{Object: object, Property: strField(obj, "property")}, true, nil
	}
	return nil, false, nil
}

// ---------------------------------------------------------------------------
// Field helpers
// ---------------------------------------------------------------------------

func strField(obj map[string]any, name string) string {
	s, _ := obj[name].(string)
	return s
}

func exprField(obj map[string]any, name string) (Expr, error) {
	raw, present := obj[name]
	if !present {
		return nil, fmt.Errorf("missing %s", name)
	}
	expr, err := decodeExpr(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return expr, nil
}

func exprListField(obj map[string]any, name string) ([]Expr, error) {
	raw, ok := obj[name].([]any)
	if !ok {
		return nil, fmt.Errorf("missing or invalid %s", name)
	}
	exprs := make([]Expr, 0, len(raw))
	for i, item := range raw {
		expr, err := decodeExpr(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

func stmtListField(obj map[string]any, name string) ([]Stmt, error) {
	raw, ok := obj[name].([]any)
	if !ok {
		return nil, fmt.Errorf("missing or invalid %s", name)
	}
	stmts := make([]Stmt, 0, len(raw))
	for i, item := range raw {
		stmt, err := decodeStmt(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// decodeScalar normalizes a JSON scalar: integers become int64, other
// numbers float64. Non-scalar literal payloads are rejected.
func decodeScalar(raw any) (any, error) {
	switch v := raw.(type) {
	case nil, bool, string, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", v.String())
		}
		return f, nil
	case float32:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("literal value must be a scalar")
	}
}

func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", v.String())
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("expected integer")
	}
}
