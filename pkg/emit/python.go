package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

// pythonEmitter targets CPython 3.10+. Dict ordering and slice
// clamping come for free, but CPython's own operators coerce across
// kinds, so comparisons and arithmetic go through prelude helpers
// that keep the evaluator's kind rules and error texts. The prelude
// also supplies strict truthiness, canonical float text,
// insertion-ordered sets and stable heaps.
type pythonEmitter struct {
	w         *writer
	exprs     map[string]exprHandler
	stmts     map[string]stmtHandler
	switchSeq int
	funcDepth int
}

func newPythonBackend() (*Backend, error) {
	p := &pythonEmitter{}
	p.exprs = map[string]exprHandler{
		"Literal":          p.literal,
		"Var":              p.variable,
		"Binary":           p.binary,
		"Not":              p.not,
		"Ternary":          p.ternary,
		"StringFormat":     p.stringFormat,
		"ToInt":            p.toInt,
		"ToFloat":          p.toFloat,
		"ToString":         p.toString,
		"Array":            p.array,
		"Tuple":            p.tuple,
		"Set":              p.setLiteral,
		"Index":            p.index,
		"Slice":            p.slice,
		"Length":           p.length,
		"Range":            p.rangeExpr,
		"Map":              p.mapLiteral,
		"Get":              p.get,
		"GetDefault":       p.getDefault,
		"Keys":             p.keys,
		"Record":           p.record,
		"GetField":         p.getField,
		"SetHas":           p.setHas,
		"SetSize":          p.setSize,
		"DequeNew":         p.dequeNew,
		"DequeSize":        p.dequeSize,
		"HeapNew":          p.heapNew,
		"HeapPeek":         p.heapPeek,
		"HeapSize":         p.heapSize,
		"StringLength":     p.stringLength,
		"StringTrim":       p.stringTrim,
		"StringUpper":      p.stringUpper,
		"StringLower":      p.stringLower,
		"Substring":        p.substring,
		"CharAt":           p.charAt,
		"Join":             p.join,
		"StringSplit":      p.stringSplit,
		"StringStartsWith": p.stringStartsWith,
		"StringEndsWith":   p.stringEndsWith,
		"StringContains":   p.stringContains,
		"StringReplace":    p.stringReplace,
		"Math":             p.math,
		"MathPow":          p.mathPow,
		"MathConst":        p.mathConst,
		"JsonParse":        p.jsonParse,
		"JsonStringify":    p.jsonStringify,
		"RegexMatch":       p.regexMatch,
		"RegexFindAll":     p.regexFindAll,
		"RegexReplace":     p.regexReplace,
		"RegexSplit":       p.regexSplit,
		"ExternalCall":     p.externalCall,
		"MethodCall":       p.methodCall,
		"PropertyGet":      p.propertyGet,
		"Call":             p.callExpr,
	}
	p.stmts = map[string]stmtHandler{
		"Let":       p.assign,
		"Assign":    p.assign,
		"If":        p.ifStmt,
		"While":     p.whileStmt,
		"For":       p.forStmt,
		"ForEach":   p.forStmt,
		"Switch":    p.switchStmt,
		"Break":     p.breakStmt,
		"Continue":  p.continueStmt,
		"Return":    p.returnStmt,
		"Throw":     p.throwStmt,
		"TryCatch":  p.tryCatch,
		"Print":     p.printStmt,
		"Call":      p.callStmt,
		"Set":       p.mapPut,
		"SetIndex":  p.setIndex,
		"SetField":  p.setField,
		"Push":      p.push,
		"SetAdd":    p.setAdd,
		"SetRemove": p.setRemove,
		"PushBack":  p.pushBack,
		"PushFront": p.pushFront,
		"PopFront":  p.popFront,
		"PopBack":   p.popBack,
		"HeapPush":  p.heapPush,
		"HeapPop":   p.heapPop,
		"FuncDef":   p.funcDef,
		"Import":    p.importStmt,
	}
	return &Backend{
		name:  "python",
		ext:   ".py",
		emit:  p.emitDoc,
		exprs: func() map[string]exprHandler { return p.exprs },
		stmts: func() map[string]stmtHandler { return p.stmts },
	}, nil
}

func (p *pythonEmitter) emitDoc(doc *ast.Document) (*Output, error) {
	p.w = newWriter("    ")
	p.switchSeq = 0
	for _, line := range strings.Split(strings.TrimRight(pythonPrelude, "\n"), "\n") {
		p.w.lines = append(p.w.lines, line)
	}
	p.w.blank()
	for index, stmt := range doc.Body {
		p.w.beginStmt(index)
		if err := p.stmt(stmt); err != nil {
			return nil, err
		}
	}
	p.w.endBody()
	return &Output{
		Filename: "main.py",
		Source:   p.w.source(),
		LineMap:  p.w.lineMap,
	}, nil
}

func (p *pythonEmitter) expr(e ast.Expr) (string, error) {
	h, ok := p.exprs[e.TypeName()]
	if !ok {
		return "", fmt.Errorf("python: unknown expression type '%s'", e.TypeName())
	}
	return h(e)
}

func (p *pythonEmitter) stmt(s ast.Stmt) error {
	h, ok := p.stmts[s.TypeName()]
	if !ok {
		return fmt.Errorf("python: unknown statement type '%s'", s.TypeName())
	}
	return h(s)
}

func (p *pythonEmitter) block(body []ast.Stmt) error {
	p.w.in()
	defer p.w.out()
	if len(body) == 0 {
		p.w.line("pass")
		return nil
	}
	for _, stmt := range body {
		if err := p.stmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func pythonString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func pythonFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (p *pythonEmitter) literal(e ast.Expr) (string, error) {
	switch v := e.(*ast.Literal).Value.(type) {
	case nil:
		return "None", nil
	case bool:
		if v {
			return "True", nil
		}
		return "False", nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return pythonFloat(v), nil
	case string:
		return pythonString(v), nil
	default:
		return "", fmt.Errorf("python: literal value %T", v)
	}
}

func (p *pythonEmitter) variable(e ast.Expr) (string, error) {
	return e.(*ast.Var).Name, nil
}

func (p *pythonEmitter) binary(e ast.Expr) (string, error) {
	n := e.(*ast.Binary)
	left, err := p.expr(n.Left)
	if err != nil {
		return "", err
	}
	right, err := p.expr(n.Right)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "and":
		return fmt.Sprintf("(_truthy(%s) and _truthy(%s))", left, right), nil
	case "or":
		return fmt.Sprintf("(_truthy(%s) or _truthy(%s))", left, right), nil
	case "==":
		return fmt.Sprintf("_eq(%s, %s)", left, right), nil
	case "!=":
		return fmt.Sprintf("(not _eq(%s, %s))", left, right), nil
	case "<":
		return fmt.Sprintf("_lt(%s, %s)", left, right), nil
	case "<=":
		return fmt.Sprintf("_le(%s, %s)", left, right), nil
	case ">":
		return fmt.Sprintf("_gt(%s, %s)", left, right), nil
	case ">=":
		return fmt.Sprintf("_ge(%s, %s)", left, right), nil
	case "+":
		return fmt.Sprintf("_add(%s, %s)", left, right), nil
	case "-":
		return fmt.Sprintf("_sub(%s, %s)", left, right), nil
	case "*":
		return fmt.Sprintf("_mul(%s, %s)", left, right), nil
	case "/":
		return fmt.Sprintf("_div(%s, %s)", left, right), nil
	case "//":
		return fmt.Sprintf("_fdiv(%s, %s)", left, right), nil
	case "%":
		return fmt.Sprintf("_mod(%s, %s)", left, right), nil
	default:
		return "", fmt.Errorf("python: binary op '%s'", n.Op)
	}
}

func (p *pythonEmitter) not(e ast.Expr) (string, error) {
	arg, err := p.expr(e.(*ast.Not).Arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(not _truthy(%s))", arg), nil
}

func (p *pythonEmitter) ternary(e ast.Expr) (string, error) {
	n := e.(*ast.Ternary)
	test, err := p.expr(n.Test)
	if err != nil {
		return "", err
	}
	cons, err := p.expr(n.Consequent)
	if err != nil {
		return "", err
	}
	alt, err := p.expr(n.Alternate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s if _truthy(%s) else %s)", cons, test, alt), nil
}

func (p *pythonEmitter) stringFormat(e ast.Expr) (string, error) {
	n := e.(*ast.StringFormat)
	if len(n.Parts) == 0 {
		return `""`, nil
	}
	parts := make([]string, len(n.Parts))
	for i, part := range n.Parts {
		s, err := p.expr(part)
		if err != nil {
			return "", err
		}
		parts[i] = "_s(" + s + ")"
	}
	return "(" + strings.Join(parts, " + ") + ")", nil
}

func (p *pythonEmitter) unary(inner ast.Expr, format string) (string, error) {
	s, err := p.expr(inner)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(format, s), nil
}

func (p *pythonEmitter) toInt(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.ToInt).Value, "_toint(%s)")
}

func (p *pythonEmitter) toFloat(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.ToFloat).Value, "_tofloat(%s)")
}

func (p *pythonEmitter) toString(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.ToString).Value, "_s(%s)")
}

func (p *pythonEmitter) exprList(items []ast.Expr) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := p.expr(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func (p *pythonEmitter) array(e ast.Expr) (string, error) {
	items, err := p.exprList(e.(*ast.Array).Items)
	if err != nil {
		return "", err
	}
	return "[" + items + "]", nil
}

func (p *pythonEmitter) tuple(e ast.Expr) (string, error) {
	n := e.(*ast.Tuple)
	items, err := p.exprList(n.Items)
	if err != nil {
		return "", err
	}
	if len(n.Items) == 1 {
		return "(" + items + ",)", nil
	}
	return "(" + items + ")", nil
}

func (p *pythonEmitter) setLiteral(e ast.Expr) (string, error) {
	items, err := p.exprList(e.(*ast.SetLiteral).Items)
	if err != nil {
		return "", err
	}
	return "_Set([" + items + "])", nil
}

func (p *pythonEmitter) index(e ast.Expr) (string, error) {
	n := e.(*ast.Index)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	index, err := p.expr(n.Index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_at(%s, %s)", base, index), nil
}

func (p *pythonEmitter) slice(e ast.Expr) (string, error) {
	n := e.(*ast.Slice)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	start, err := p.expr(n.Start)
	if err != nil {
		return "", err
	}
	end, err := p.expr(n.End)
	if err != nil {
		return "", err
	}
	// Python slices already resolve negatives and clamp.
	return fmt.Sprintf("(%s)[%s:%s]", base, start, end), nil
}

func (p *pythonEmitter) length(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.Length).Base, "len(%s)")
}

func (p *pythonEmitter) rangeExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Range)
	from, err := p.expr(n.From)
	if err != nil {
		return "", err
	}
	to, err := p.expr(n.To)
	if err != nil {
		return "", err
	}
	if n.Inclusive {
		return fmt.Sprintf("range(%s, (%s) + 1)", from, to), nil
	}
	return fmt.Sprintf("range(%s, %s)", from, to), nil
}

func (p *pythonEmitter) mapLiteral(e ast.Expr) (string, error) {
	n := e.(*ast.Map)
	parts := make([]string, len(n.Items))
	for i, item := range n.Items {
		key, err := p.expr(item.Key)
		if err != nil {
			return "", err
		}
		value, err := p.expr(item.Value)
		if err != nil {
			return "", err
		}
		parts[i] = key + ": " + value
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

func (p *pythonEmitter) get(e ast.Expr) (string, error) {
	n := e.(*ast.Get)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	key, err := p.expr(n.Key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).get(%s)", base, key), nil
}

func (p *pythonEmitter) getDefault(e ast.Expr) (string, error) {
	n := e.(*ast.GetDefault)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	key, err := p.expr(n.Key)
	if err != nil {
		return "", err
	}
	def, err := p.expr(n.Default)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).get(%s, %s)", base, key, def), nil
}

func (p *pythonEmitter) keys(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.Keys).Base, "list((%s).keys())")
}

func (p *pythonEmitter) record(e ast.Expr) (string, error) {
	n := e.(*ast.Record)
	parts := make([]string, len(n.Fields))
	for i, field := range n.Fields {
		value, err := p.expr(field.Value)
		if err != nil {
			return "", err
		}
		parts[i] = pythonString(field.Name) + ": " + value
	}
	return "_Record({" + strings.Join(parts, ", ") + "})", nil
}

func (p *pythonEmitter) getField(e ast.Expr) (string, error) {
	n := e.(*ast.GetField)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).get_field(%s)", base, pythonString(n.Name)), nil
}

func (p *pythonEmitter) setHas(e ast.Expr) (string, error) {
	n := e.(*ast.SetHas)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).has(%s)", base, value), nil
}

func (p *pythonEmitter) setSize(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.SetSize).Base, "len(%s)")
}

func (p *pythonEmitter) dequeNew(ast.Expr) (string, error) { return "_Deque()", nil }

func (p *pythonEmitter) dequeSize(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.DequeSize).Base, "len(%s)")
}

func (p *pythonEmitter) heapNew(ast.Expr) (string, error) { return "_Heap()", nil }

func (p *pythonEmitter) heapPeek(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.HeapPeek).Base, "(%s).peek()")
}

func (p *pythonEmitter) heapSize(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.HeapSize).Base, "len(%s)")
}

func (p *pythonEmitter) stringLength(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.StringLength).Base, "len(%s)")
}

func (p *pythonEmitter) stringTrim(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.StringTrim).Base, "(%s).strip()")
}

func (p *pythonEmitter) stringUpper(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.StringUpper).Base, "(%s).upper()")
}

func (p *pythonEmitter) stringLower(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.StringLower).Base, "(%s).lower()")
}

func (p *pythonEmitter) substring(e ast.Expr) (string, error) {
	n := e.(*ast.Substring)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	start, err := p.expr(n.Start)
	if err != nil {
		return "", err
	}
	end, err := p.expr(n.End)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_substr(%s, %s, %s)", base, start, end), nil
}

func (p *pythonEmitter) charAt(e ast.Expr) (string, error) {
	n := e.(*ast.CharAt)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	index, err := p.expr(n.Index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_charat(%s, %s)", base, index), nil
}

func (p *pythonEmitter) join(e ast.Expr) (string, error) {
	n := e.(*ast.Join)
	sep, err := p.expr(n.Sep)
	if err != nil {
		return "", err
	}
	items, err := p.expr(n.Items)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).join(_s(x) for x in %s)", sep, items), nil
}

func (p *pythonEmitter) stringSplit(e ast.Expr) (string, error) {
	n := e.(*ast.StringSplit)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	delim, err := p.expr(n.Delimiter)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).split(%s)", base, delim), nil
}

func (p *pythonEmitter) stringStartsWith(e ast.Expr) (string, error) {
	n := e.(*ast.StringStartsWith)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	prefix, err := p.expr(n.Prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).startswith(%s)", base, prefix), nil
}

func (p *pythonEmitter) stringEndsWith(e ast.Expr) (string, error) {
	n := e.(*ast.StringEndsWith)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	suffix, err := p.expr(n.Suffix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).endswith(%s)", base, suffix), nil
}

func (p *pythonEmitter) stringContains(e ast.Expr) (string, error) {
	n := e.(*ast.StringContains)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	sub, err := p.expr(n.Substring)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("((%s) in (%s))", sub, base), nil
}

func (p *pythonEmitter) stringReplace(e ast.Expr) (string, error) {
	n := e.(*ast.StringReplace)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	old, err := p.expr(n.Old)
	if err != nil {
		return "", err
	}
	repl, err := p.expr(n.New)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).replace(%s, %s)", base, old, repl), nil
}

func (p *pythonEmitter) math(e ast.Expr) (string, error) {
	n := e.(*ast.Math)
	arg, err := p.expr(n.Arg)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "sin", "cos", "tan", "floor", "ceil", "exp":
		return fmt.Sprintf("math.%s(%s)", n.Op, arg), nil
	case "sqrt":
		return fmt.Sprintf("_sqrt(%s)", arg), nil
	case "log":
		return fmt.Sprintf("_log(%s)", arg), nil
	case "abs":
		return fmt.Sprintf("float(abs(%s))", arg), nil
	default:
		return "", fmt.Errorf("python: math op '%s'", n.Op)
	}
}

func (p *pythonEmitter) mathPow(e ast.Expr) (string, error) {
	n := e.(*ast.MathPow)
	base, err := p.expr(n.Base)
	if err != nil {
		return "", err
	}
	exp, err := p.expr(n.Exponent)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("math.pow(%s, %s)", base, exp), nil
}

func (p *pythonEmitter) mathConst(e ast.Expr) (string, error) {
	switch e.(*ast.MathConst).Name {
	case "pi":
		return "math.pi", nil
	case "e":
		return "math.e", nil
	default:
		return "", fmt.Errorf("python: math constant '%s'", e.(*ast.MathConst).Name)
	}
}

func (p *pythonEmitter) jsonParse(e ast.Expr) (string, error) {
	return p.unary(e.(*ast.JsonParse).Source, "json.loads(%s)")
}

func (p *pythonEmitter) jsonStringify(e ast.Expr) (string, error) {
	n := e.(*ast.JsonStringify)
	value, err := p.expr(n.Value)
	if err != nil {
		return "", err
	}
	if n.Pretty {
		return fmt.Sprintf("_json(%s, True)", value), nil
	}
	return fmt.Sprintf("_json(%s, False)", value), nil
}

func (p *pythonEmitter) regexMatch(e ast.Expr) (string, error) {
	n := e.(*ast.RegexMatch)
	s, err := p.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := p.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(_re(%s, %s).search(%s) is not None)", pattern, pythonString(n.Flags), s), nil
}

func (p *pythonEmitter) regexFindAll(e ast.Expr) (string, error) {
	n := e.(*ast.RegexFindAll)
	s, err := p.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := p.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_findall(%s, %s, %s)", pattern, pythonString(n.Flags), s), nil
}

func (p *pythonEmitter) regexReplace(e ast.Expr) (string, error) {
	n := e.(*ast.RegexReplace)
	s, err := p.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := p.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	repl, err := p.expr(n.Replacement)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_re(%s, %s).sub(%s, %s)", pattern, pythonString(n.Flags), repl, s), nil
}

func (p *pythonEmitter) regexSplit(e ast.Expr) (string, error) {
	n := e.(*ast.RegexSplit)
	s, err := p.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := p.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_re(%s, %s).split(%s, %d)", pattern, pythonString(n.Flags), s, n.MaxSplit), nil
}

func (p *pythonEmitter) externalCall(e ast.Expr) (string, error) {
	n := e.(*ast.ExternalCall)
	args, err := p.exprList(n.Args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_extcall(%s, [%s])", pythonString(n.Module+"."+n.Function), args), nil
}

func (p *pythonEmitter) methodCall(e ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "python", NodeType: "MethodCall", Category: CategoryMethod}
}

func (p *pythonEmitter) propertyGet(e ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "python", NodeType: "PropertyGet", Category: CategoryProperty}
}

func (p *pythonEmitter) callString(name string, args []ast.Expr) (string, error) {
	list, err := p.exprList(args)
	if err != nil {
		return "", err
	}
	switch name {
	case "print":
		return "_print(" + list + ")", nil
	case "input":
		return "_input(" + list + ")", nil
	case "get_or_default":
		return "_get_or_default(" + list + ")", nil
	case "entries":
		return "_entries(" + list + ")", nil
	case "append":
		return "_append(" + list + ")", nil
	default:
		return name + "(" + list + ")", nil
	}
}

func (p *pythonEmitter) callExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Call)
	return p.callString(n.Name, n.Args)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *pythonEmitter) assign(s ast.Stmt) error {
	var name string
	var valueExpr ast.Expr
	switch n := s.(type) {
	case *ast.Let:
		name, valueExpr = n.Name, n.Value
	case *ast.Assign:
		name, valueExpr = n.Name, n.Value
	}
	value, err := p.expr(valueExpr)
	if err != nil {
		return err
	}
	p.w.line(name + " = " + value)
	return nil
}

func (p *pythonEmitter) ifStmt(s ast.Stmt) error {
	n := s.(*ast.If)
	test, err := p.expr(n.Test)
	if err != nil {
		return err
	}
	p.w.line("if _truthy(" + test + "):")
	if err := p.block(n.Then); err != nil {
		return err
	}
	if len(n.Else) > 0 {
		p.w.line("else:")
		if err := p.block(n.Else); err != nil {
			return err
		}
	}
	return nil
}

func (p *pythonEmitter) whileStmt(s ast.Stmt) error {
	n := s.(*ast.While)
	test, err := p.expr(n.Test)
	if err != nil {
		return err
	}
	p.w.line("while _truthy(" + test + "):")
	return p.block(n.Body)
}

func (p *pythonEmitter) forStmt(s ast.Stmt) error {
	var varName string
	var iter ast.Expr
	var body []ast.Stmt
	switch n := s.(type) {
	case *ast.For:
		varName, iter, body = n.Var, n.Iter, n.Body
	case *ast.ForEach:
		varName, iter, body = n.Var, n.Iter, n.Body
	}
	source, err := p.expr(iter)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("for %s in _iter(%s):", varName, source))
	return p.block(body)
}

func (p *pythonEmitter) switchStmt(s ast.Stmt) error {
	n := s.(*ast.Switch)
	test, err := p.expr(n.Test)
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("_sw%d", p.switchSeq)
	p.switchSeq++
	p.w.line(tmp + " = " + test)
	keyword := "if"
	for _, c := range n.Cases {
		value, err := p.expr(c.Value)
		if err != nil {
			return err
		}
		p.w.line(fmt.Sprintf("%s _eq(%s, %s):", keyword, tmp, value))
		if err := p.block(c.Body); err != nil {
			return err
		}
		keyword = "elif"
	}
	if len(n.Cases) == 0 {
		for _, stmt := range n.Default {
			if err := p.stmt(stmt); err != nil {
				return err
			}
		}
		return nil
	}
	if n.Default != nil {
		p.w.line("else:")
		if err := p.block(n.Default); err != nil {
			return err
		}
	}
	return nil
}

func (p *pythonEmitter) breakStmt(ast.Stmt) error {
	p.w.line("break")
	return nil
}

func (p *pythonEmitter) continueStmt(ast.Stmt) error {
	p.w.line("continue")
	return nil
}

func (p *pythonEmitter) returnStmt(s ast.Stmt) error {
	n := s.(*ast.Return)
	// A return at module scope ends the program; Python only allows the
	// keyword inside a function.
	if p.funcDepth == 0 {
		if n.Value != nil {
			value, err := p.expr(n.Value)
			if err != nil {
				return err
			}
			p.w.line(value)
		}
		p.w.line("sys.exit(0)")
		return nil
	}
	if n.Value == nil {
		p.w.line("return None")
		return nil
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return err
	}
	p.w.line("return " + value)
	return nil
}

func (p *pythonEmitter) throwStmt(s ast.Stmt) error {
	message, err := p.expr(s.(*ast.Throw).Message)
	if err != nil {
		return err
	}
	p.w.line("raise _Thrown(_s(" + message + "))")
	return nil
}

func (p *pythonEmitter) tryCatch(s ast.Stmt) error {
	n := s.(*ast.TryCatch)
	p.w.line("try:")
	if err := p.block(n.Body); err != nil {
		return err
	}
	p.w.line("except Exception as _exc:")
	p.w.in()
	p.w.line(n.CatchVar + " = str(_exc)")
	p.w.out()
	if err := p.block(n.CatchBody); err != nil {
		return err
	}
	if len(n.Finally) > 0 {
		p.w.line("finally:")
		if err := p.block(n.Finally); err != nil {
			return err
		}
	}
	return nil
}

func (p *pythonEmitter) printStmt(s ast.Stmt) error {
	args, err := p.exprList(s.(*ast.Print).Args)
	if err != nil {
		return err
	}
	p.w.line("_print(" + args + ")")
	return nil
}

func (p *pythonEmitter) callStmt(s ast.Stmt) error {
	n := s.(*ast.Call)
	call, err := p.callString(n.Name, n.Args)
	if err != nil {
		return err
	}
	p.w.line(call)
	return nil
}

func (p *pythonEmitter) mapPut(s ast.Stmt) error {
	n := s.(*ast.MapPut)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	key, err := p.expr(n.Key)
	if err != nil {
		return err
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("(%s)[%s] = %s", base, key, value))
	return nil
}

func (p *pythonEmitter) setIndex(s ast.Stmt) error {
	n := s.(*ast.SetIndex)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	index, err := p.expr(n.Index)
	if err != nil {
		return err
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("_setat(%s, %s, %s)", base, index, value))
	return nil
}

func (p *pythonEmitter) setField(s ast.Stmt) error {
	n := s.(*ast.SetField)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("(%s).set_field(%s, %s)", base, pythonString(n.Name), value))
	return nil
}

func (p *pythonEmitter) push(s ast.Stmt) error {
	n := s.(*ast.Push)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("(%s).append(%s)", base, value))
	return nil
}

func (p *pythonEmitter) setAdd(s ast.Stmt) error {
	n := s.(*ast.SetAdd)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("(%s).add(%s)", base, value))
	return nil
}

func (p *pythonEmitter) setRemove(s ast.Stmt) error {
	n := s.(*ast.SetRemove)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("(%s).discard(%s)", base, value))
	return nil
}

func (p *pythonEmitter) pushBack(s ast.Stmt) error {
	n := s.(*ast.PushBack)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("(%s).append(%s)", base, value))
	return nil
}

func (p *pythonEmitter) pushFront(s ast.Stmt) error {
	n := s.(*ast.PushFront)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("(%s).appendleft(%s)", base, value))
	return nil
}

func (p *pythonEmitter) popFront(s ast.Stmt) error {
	n := s.(*ast.PopFront)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("%s = (%s).popleft()", n.Target, base))
	return nil
}

func (p *pythonEmitter) popBack(s ast.Stmt) error {
	n := s.(*ast.PopBack)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("%s = (%s).pop()", n.Target, base))
	return nil
}

func (p *pythonEmitter) heapPush(s ast.Stmt) error {
	n := s.(*ast.HeapPush)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	priority, err := p.expr(n.Priority)
	if err != nil {
		return err
	}
	value, err := p.expr(n.Value)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("(%s).push(%s, %s)", base, priority, value))
	return nil
}

func (p *pythonEmitter) funcDef(s ast.Stmt) error {
	n := s.(*ast.FuncDef)
	p.w.line(fmt.Sprintf("def %s(%s):", n.Name, strings.Join(n.Params, ", ")))
	p.funcDepth++
	err := p.block(n.Body)
	p.funcDepth--
	return err
}

func (p *pythonEmitter) importStmt(ast.Stmt) error {
	return fmt.Errorf("python: imports must be resolved before emission")
}

func (p *pythonEmitter) heapPop(s ast.Stmt) error {
	n := s.(*ast.HeapPop)
	base, err := p.expr(n.Base)
	if err != nil {
		return err
	}
	p.w.line(fmt.Sprintf("%s = (%s).pop()", n.Target, base))
	return nil
}
