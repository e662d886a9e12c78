package ast

import "fmt"

func encodeExprs(items []Expr) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = encodeNode(item)
	}
	return out
}

func encodeStmts(items []Stmt) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = encodeNode(item)
	}
	return out
}

// encodeNode renders a node back to the generic wire shape. It is the
// exact inverse of the decoder; Clone and Encode both ride on it.
func encodeNode(node Node) map[string]any {
	out := map[string]any{"type": node.TypeName()}
	switch n := node.(type) {
	case *Literal:
		out["value"] = n.Value
	case *Var:
		out["name"] = n.Name
	case *Binary:
		out["op"] = n.Op
		out["left"] = encodeNode(n.Left)
		out["right"] = encodeNode(n.Right)
	case *Not:
		out["arg"] = encodeNode(n.Arg)
	case *Ternary:
		out["test"] = encodeNode(n.Test)
		out["consequent"] = encodeNode(n.Consequent)
		out["alternate"] = encodeNode(n.Alternate)
	case *StringFormat:
		out["parts"] = encodeExprs(n.Parts)
	case *ToInt:
		out["value"] = encodeNode(n.Value)
	case *ToFloat:
		out["value"] = encodeNode(n.Value)
	case *ToString:
		out["value"] = encodeNode(n.Value)
	case *Array:
		out["items"] = encodeExprs(n.Items)
	case *Tuple:
		out["items"] = encodeExprs(n.Items)
	case *SetLiteral:
		out["items"] = encodeExprs(n.Items)
	case *Index:
		out["base"] = encodeNode(n.Base)
		out["index"] = encodeNode(n.Index)
	case *Slice:
		out["base"] = encodeNode(n.Base)
		out["start"] = encodeNode(n.Start)
		out["end"] = encodeNode(n.End)
	case *Length:
		out["base"] = encodeNode(n.Base)
	case *Range:
		out["from"] = encodeNode(n.From)
		out["to"] = encodeNode(n.To)
		if n.Inclusive {
			out["inclusive"] = true
		}
	case *Map:
		items := make([]any, len(n.Items))
		for i, item := range n.Items {
			items[i] = map[string]any{
				"key":   encodeNode(item.Key),
				"value": encodeNode(item.Value),
			}
		}
		out["items"] = items
	case *Get:
		out["base"] = encodeNode(n.Base)
		out["key"] = encodeNode(n.Key)
	case *GetDefault:
		out["base"] = encodeNode(n.Base)
		out["key"] = encodeNode(n.Key)
		out["default"] = encodeNode(n.Default)
	case *Keys:
		out["base"] = encodeNode(n.Base)
	case *Record:
		fields := make([]any, len(n.Fields))
		for i, field := range n.Fields {
			fields[i] = map[string]any{
				"name":  field.Name,
				"value": encodeNode(field.Value),
			}
		}
		out["fields"] = fields
	case *GetField:
		out["base"] = encodeNode(n.Base)
		out["name"] = n.Name
	case *SetHas:
		out["base"] = encodeNode(n.Base)
		out["value"] = encodeNode(n.Value)
	case *SetSize:
		out["base"] = encodeNode(n.Base)
	case *DequeNew, *HeapNew, *Break, *Continue:
	case *DequeSize:
		out["base"] = encodeNode(n.Base)
	case *HeapPeek:
		out["base"] = encodeNode(n.Base)
	case *HeapSize:
		out["base"] = encodeNode(n.Base)
	case *StringLength:
		out["base"] = encodeNode(n.Base)
	case *StringTrim:
		out["base"] = encodeNode(n.Base)
	case *StringUpper:
		out["base"] = encodeNode(n.Base)
	case *StringLower:
		out["base"] = encodeNode(n.Base)
	case *Substring:
		out["base"] = encodeNode(n.Base)
		out["start"] = encodeNode(n.Start)
		out["end"] = encodeNode(n.End)
	case *CharAt:
		out["base"] = encodeNode(n.Base)
		out["index"] = encodeNode(n.Index)
	case *Join:
		out["sep"] = encodeNode(n.Sep)
		out["items"] = encodeNode(n.Items)
	case *StringSplit:
		out["base"] = encodeNode(n.Base)
		out["delimiter"] = encodeNode(n.Delimiter)
	case *StringStartsWith:
		out["base"] = encodeNode(n.Base)
		out["prefix"] = encodeNode(n.Prefix)
	case *StringEndsWith:
		out["base"] = encodeNode(n.Base)
		out["suffix"] = encodeNode(n.Suffix)
	case *StringContains:
		out["base"] = encodeNode(n.Base)
		out["substring"] = encodeNode(n.Substring)
	case *StringReplace:
		out["base"] = encodeNode(n.Base)
		out["old"] = encodeNode(n.Old)
		out["new"] = encodeNode(n.New)
	case *Math:
		out["op"] = n.Op
		out["arg"] = encodeNode(n.Arg)
	case *MathPow:
		out["base"] = encodeNode(n.Base)
		out["exponent"] = encodeNode(n.Exponent)
	case *MathConst:
		out["name"] = n.Name
	case *JsonParse:
		out["source"] = encodeNode(n.Source)
	case *JsonStringify:
		out["value"] = encodeNode(n.Value)
		if n.Pretty {
			out["pretty"] = true
		}
	case *RegexMatch:
		out["string"] = encodeNode(n.String)
		out["pattern"] = encodeNode(n.Pattern)
		if n.Flags != "" {
			out["flags"] = n.Flags
		}
	case *RegexFindAll:
		out["string"] = encodeNode(n.String)
		out["pattern"] = encodeNode(n.Pattern)
		if n.Flags != "" {
			out["flags"] = n.Flags
		}
	case *RegexReplace:
		out["string"] = encodeNode(n.String)
		out["pattern"] = encodeNode(n.Pattern)
		out["replacement"] = encodeNode(n.Replacement)
		if n.Flags != "" {
			out["flags"] = n.Flags
		}
	case *RegexSplit:
		out["string"] = encodeNode(n.String)
		out["pattern"] = encodeNode(n.Pattern)
		if n.Flags != "" {
			out["flags"] = n.Flags
		}
		if n.MaxSplit != 0 {
			out["maxsplit"] = n.MaxSplit
		}
	case *ExternalCall:
		out["module"] = n.Module
		out["function"] = n.Function
		out["args"] = encodeExprs(n.Args)
	case *MethodCall:
		out["object"] = encodeNode(n.Object)
		out["method"] = n.Method
		out["args"] = encodeExprs(n.Args)
	case *PropertyGet:
		out["object"] = encodeNode(n.Object)
		out["property"] = n.Property
	case *Call:
		out["name"] = n.Name
		out["args"] = encodeExprs(n.Args)

	case *Let:
		out["name"] = n.Name
		out["value"] = encodeNode(n.Value)
	case *Assign:
		out["name"] = n.Name
		out["value"] = encodeNode(n.Value)
	case *If:
		out["test"] = encodeNode(n.Test)
		out["then"] = encodeStmts(n.Then)
		if n.Else != nil {
			out["else"] = encodeStmts(n.Else)
		}
	case *While:
		out["test"] = encodeNode(n.Test)
		out["body"] = encodeStmts(n.Body)
	case *For:
		out["var"] = n.Var
		out["iter"] = encodeNode(n.Iter)
		out["body"] = encodeStmts(n.Body)
	case *ForEach:
		out["var"] = n.Var
		out["iter"] = encodeNode(n.Iter)
		out["body"] = encodeStmts(n.Body)
	case *Switch:
		out["test"] = encodeNode(n.Test)
		cases := make([]any, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = map[string]any{
				"value": encodeNode(c.Value),
				"body":  encodeStmts(c.Body),
			}
		}
		out["cases"] = cases
		if n.Default != nil {
			out["default"] = encodeStmts(n.Default)
		}
	case *Return:
		if n.Value != nil {
			out["value"] = encodeNode(n.Value)
		}
	case *Throw:
		out["message"] = encodeNode(n.Message)
	case *TryCatch:
		out["body"] = encodeStmts(n.Body)
		out["catch_var"] = n.CatchVar
		out["catch_body"] = encodeStmts(n.CatchBody)
		if n.Finally != nil {
			out["finally_body"] = encodeStmts(n.Finally)
		}
	case *Print:
		out["args"] = encodeExprs(n.Args)
	case *MapPut:
		out["base"] = encodeNode(n.Base)
		out["key"] = encodeNode(n.Key)
		out["value"] = encodeNode(n.Value)
	case *SetIndex:
		out["base"] = encodeNode(n.Base)
		out["index"] = encodeNode(n.Index)
		out["value"] = encodeNode(n.Value)
	case *SetField:
		out["base"] = encodeNode(n.Base)
		out["name"] = n.Name
		out["value"] = encodeNode(n.Value)
	case *Push:
		out["base"] = encodeNode(n.Base)
		out["value"] = encodeNode(n.Value)
	case *SetAdd:
		out["base"] = encodeNode(n.Base)
		out["value"] = encodeNode(n.Value)
	case *SetRemove:
		out["base"] = encodeNode(n.Base)
		out["value"] = encodeNode(n.Value)
	case *PushBack:
		out["base"] = encodeNode(n.Base)
		out["value"] = encodeNode(n.Value)
	case *PushFront:
		out["base"] = encodeNode(n.Base)
		out["value"] = encodeNode(n.Value)
	case *PopFront:
		out["base"] = encodeNode(n.Base)
		out["target"] = n.Target
	case *PopBack:
		out["base"] = encodeNode(n.Base)
		out["target"] = n.Target
	case *HeapPush:
		out["base"] = encodeNode(n.Base)
		out["priority"] = encodeNode(n.Priority)
		out["value"] = encodeNode(n.Value)
	case *HeapPop:
		out["base"] = encodeNode(n.Base)
		out["target"] = n.Target
	case *FuncDef:
		out["name"] = n.Name
		params := make([]any, len(n.Params))
		for i, p := range n.Params {
			params[i] = p
		}
		out["params"] = params
		out["body"] = encodeStmts(n.Body)
	case *Import:
		out["path"] = n.Path
		if n.Alias != "" {
			out["alias"] = n.Alias
		}
	default:
		panic(fmt.Sprintf("ast: encodeNode: unhandled node %T", node))
	}
	return out
}
