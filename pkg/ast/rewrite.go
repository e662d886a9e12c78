package ast

// RewriteExpr rebuilds an expression bottom-up, applying f to every node
// after its children have been rewritten. The input is never mutated;
// every node on the path to a change is a fresh copy.
func RewriteExpr(e Expr, f func(Expr) Expr) Expr {
	return f(rewriteChildren(e, f))
}

func rewriteExprs(exprs []Expr, f func(Expr) Expr) []Expr {
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = RewriteExpr(e, f)
	}
	return out
}

func rewriteChildren(e Expr, f func(Expr) Expr) Expr {
	switch n := e.(type) {
	case *Literal, *Var, *MathConst, *DequeNew, *HeapNew:
		return e
	case *Binary:
		return &Binary{Op: n.Op, Left: RewriteExpr(n.Left, f), Right: RewriteExpr(n.Right, f)}
	case *Not:
		return &Not{Arg: RewriteExpr(n.Arg, f)}
	case *Ternary:
		return &Ternary{Test: RewriteExpr(n.Test, f), Consequent: RewriteExpr(n.Consequent, f), Alternate: RewriteExpr(n.Alternate, f)}
	case *StringFormat:
		return &StringFormat{Parts: rewriteExprs(n.Parts, f)}
	case *ToInt:
		return &ToInt{Value: RewriteExpr(n.Value, f)}
	case *ToFloat:
		return &ToFloat{Value: RewriteExpr(n.Value, f)}
	case *ToString:
		return &ToString{Value: RewriteExpr(n.Value, f)}
	case *Array:
		return &Array{Items: rewriteExprs(n.Items, f)}
	case *Tuple:
		return &Tuple{Items: rewriteExprs(n.Items, f)}
	case *SetLiteral:
		return &SetLiteral{Items: rewriteExprs(n.Items, f)}
	case *Index:
		return &Index{Base: RewriteExpr(n.Base, f), Index: RewriteExpr(n.Index, f)}
	case *Slice:
		return &Slice{Base: RewriteExpr(n.Base, f), Start: RewriteExpr(n.Start, f), End: RewriteExpr(n.End, f)}
	case *Length:
		return &Length{Base: RewriteExpr(n.Base, f)}
	case *Range:
		return &Range{From: RewriteExpr(n.From, f), To: RewriteExpr(n.To, f), Inclusive: n.Inclusive}
	case *Map:
		items := make([]MapItem, len(n.Items))
		for i, item := range n.Items {
			items[i] = MapItem{Key: RewriteExpr(item.Key, f), Value: RewriteExpr(item.Value, f)}
		}
		return &Map{Items: items}
	case *Get:
		return &Get{Base: RewriteExpr(n.Base, f), Key: RewriteExpr(n.Key, f)}
	case *GetDefault:
		return &GetDefault{Base: RewriteExpr(n.Base, f), Key: RewriteExpr(n.Key, f), Default: RewriteExpr(n.Default, f)}
	case *Keys:
		return &Keys{Base: RewriteExpr(n.Base, f)}
	case *Record:
		fields := make([]RecordField, len(n.Fields))
		for i, field := range n.Fields {
			fields[i] = RecordField{Name: field.Name, Value: RewriteExpr(field.Value, f)}
		}
		return &Record{Fields: fields}
	case *GetField:
		return &GetField{Base: RewriteExpr(n.Base, f), Name: n.Name}
	case *SetHas:
		return &SetHas{Base: RewriteExpr(n.Base, f), Value: RewriteExpr(n.Value, f)}
	case *SetSize:
		return &SetSize{Base: RewriteExpr(n.Base, f)}
	case *DequeSize:
		return &DequeSize{Base: RewriteExpr(n.Base, f)}
	case *HeapPeek:
		return &HeapPeek{Base: RewriteExpr(n.Base, f)}
	case *HeapSize:
		return &HeapSize{Base: RewriteExpr(n.Base, f)}
	case *StringLength:
		return &StringLength{Base: RewriteExpr(n.Base, f)}
	case *StringTrim:
		return &StringTrim{Base: RewriteExpr(n.Base, f)}
	case *StringUpper:
		return &StringUpper{Base: RewriteExpr(n.Base, f)}
	case *StringLower:
		return &StringLower{Base: RewriteExpr(n.Base, f)}
	case *Substring:
		return &Substring{Base: RewriteExpr(n.Base, f), Start: RewriteExpr(n.Start, f), End: RewriteExpr(n.End, f)}
	case *CharAt:
		return &CharAt{Base: RewriteExpr(n.Base, f), Index: RewriteExpr(n.Index, f)}
	case *Join:
		return &Join{Sep: RewriteExpr(n.Sep, f), Items: RewriteExpr(n.Items, f)}
	case *StringSplit:
		return &StringSplit{Base: RewriteExpr(n.Base, f), Delimiter: RewriteExpr(n.Delimiter, f)}
	case *StringStartsWith:
		return &StringStartsWith{Base: RewriteExpr(n.Base, f), Prefix: RewriteExpr(n.Prefix, f)}
	case *StringEndsWith:
		return &StringEndsWith{Base: RewriteExpr(n.Base, f), Suffix: RewriteExpr(n.Suffix, f)}
	case *StringContains:
		return &StringContains{Base: RewriteExpr(n.Base, f), Substring: RewriteExpr(n.Substring, f)}
	case *StringReplace:
		return &StringReplace{Base: RewriteExpr(n.Base, f), Old: RewriteExpr(n.Old, f), New: RewriteExpr(n.New, f)}
	case *Math:
		return &Math{Op: n.Op, Arg: RewriteExpr(n.Arg, f)}
	case *MathPow:
		return &MathPow{Base: RewriteExpr(n.Base, f), Exponent: RewriteExpr(n.Exponent, f)}
	case *JsonParse:
		return &JsonParse{Source: RewriteExpr(n.Source, f)}
	case *JsonStringify:
		return &JsonStringify{Value: RewriteExpr(n.Value, f), Pretty: n.Pretty}
	case *RegexMatch:
		return &RegexMatch{String: RewriteExpr(n.String, f), Pattern: RewriteExpr(n.Pattern, f), Flags: n.Flags}
	case *RegexFindAll:
		return &RegexFindAll{String: RewriteExpr(n.String, f), Pattern: RewriteExpr(n.Pattern, f), Flags: n.Flags}
	case *RegexReplace:
		return &RegexReplace{String: RewriteExpr(n.String, f), Pattern: RewriteExpr(n.Pattern, f), Replacement: RewriteExpr(n.Replacement, f), Flags: n.Flags}
	case *RegexSplit:
		return &RegexSplit{String: RewriteExpr(n.String, f), Pattern: RewriteExpr(n.Pattern, f), Flags: n.Flags, MaxSplit: n.MaxSplit}
	case *ExternalCall:
		return &ExternalCall{Module: n.Module, Function: n.Function, Args: rewriteExprs(n.Args, f)}
	case *MethodCall:
		return &MethodCall{Object: RewriteExpr(n.Object, f), Method: n.Method, Args: rewriteExprs(n.Args, f)}
	case *PropertyGet:
		return &PropertyGet{Object: RewriteExpr(n.Object, f), Property: n.Property}
	case *Call:
		return &Call{Name: n.Name, Args: rewriteExprs(n.Args, f)}
	default:
		return e
	}
}

// RewriteBody rebuilds a statement list. exprF is applied bottom-up to
// every nested expression; blockF, if non-nil, post-processes each
// rewritten statement list (the hook dead-code elimination uses).
func RewriteBody(body []Stmt, exprF func(Expr) Expr, blockF func([]Stmt) []Stmt) []Stmt {
	out := make([]Stmt, len(body))
	for i, stmt := range body {
		out[i] = rewriteStmt(stmt, exprF, blockF)
	}
	if blockF != nil {
		out = blockF(out)
	}
	return out
}

func rewriteStmt(stmt Stmt, exprF func(Expr) Expr, blockF func([]Stmt) []Stmt) Stmt {
	expr := func(e Expr) Expr { return RewriteExpr(e, exprF) }
	block := func(b []Stmt) []Stmt {
		if b == nil {
			return nil
		}
		return RewriteBody(b, exprF, blockF)
	}
	switch n := stmt.(type) {
	case *Let:
		return &Let{Name: n.Name, Value: expr(n.Value)}
	case *Assign:
		return &Assign{Name: n.Name, Value: expr(n.Value)}
	case *If:
		return &If{Test: expr(n.Test), Then: block(n.Then), Else: block(n.Else)}
	case *While:
		return &While{Test: expr(n.Test), Body: block(n.Body)}
	case *For:
		return &For{Var: n.Var, Iter: expr(n.Iter), Body: block(n.Body)}
	case *ForEach:
		return &ForEach{Var: n.Var, Iter: expr(n.Iter), Body: block(n.Body)}
	case *Switch:
		cases := make([]SwitchCase, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = SwitchCase{Value: expr(c.Value), Body: block(c.Body)}
		}
		return &Switch{Test: expr(n.Test), Cases: cases, Default: block(n.Default)}
	case *Break:
		return &Break{}
	case *Continue:
		return &Continue{}
	case *Return:
		if n.Value == nil {
			return &Return{}
		}
		return &Return{Value: expr(n.Value)}
	case *Throw:
		return &Throw{Message: expr(n.Message)}
	case *TryCatch:
		return &TryCatch{Body: block(n.Body), CatchVar: n.CatchVar, CatchBody: block(n.CatchBody), Finally: block(n.Finally)}
	case *Print:
		return &Print{Args: rewriteExprs(n.Args, exprF)}
	case *Call:
		return &Call{Name: n.Name, Args: rewriteExprs(n.Args, exprF)}
	case *MapPut:
		return &MapPut{Base: expr(n.Base), Key: expr(n.Key), Value: expr(n.Value)}
	case *SetIndex:
		return &SetIndex{Base: expr(n.Base), Index: expr(n.Index), Value: expr(n.Value)}
	case *SetField:
		return &SetField{Base: expr(n.Base), Name: n.Name, Value: expr(n.Value)}
	case *Push:
		return &Push{Base: expr(n.Base), Value: expr(n.Value)}
	case *SetAdd:
		return &SetAdd{Base: expr(n.Base), Value: expr(n.Value)}
	case *SetRemove:
		return &SetRemove{Base: expr(n.Base), Value: expr(n.Value)}
	case *PushBack:
		return &PushBack{Base: expr(n.Base), Value: expr(n.Value)}
	case *PushFront:
		return &PushFront{Base: expr(n.Base), Value: expr(n.Value)}
	case *PopFront:
		return &PopFront{Base: expr(n.Base), Target: n.Target}
	case *PopBack:
		return &PopBack{Base: expr(n.Base), Target: n.Target}
	case *HeapPush:
		return &HeapPush{Base: expr(n.Base), Priority: expr(n.Priority), Value: expr(n.Value)}
	case *HeapPop:
		return &HeapPop{Base: expr(n.Base), Target: n.Target}
	case *FuncDef:
		params := append([]string{}, n.Params...)
		return &FuncDef{Name: n.Name, Params: params, Body: block(n.Body)}
	case *Import:
		return &Import{Path: n.Path, Alias: n.Alias}
	default:
		return stmt
	}
}
