package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

// goEmitter produces a single main.go alongside the shared dynamic-value
// runtime. All user identifiers are mangled (v_ for variables, f_ for
// functions) so document names can never collide with Go keywords or
// runtime symbols.
//
// Control flow that has to cross a try block is the delicate part: try
// bodies compile to closures, so break, continue and return inside them
// escape as signal panics that the code after rtTry re-raises in the
// frame that can actually honor them.
type goEmitter struct {
	w     *writer
	exprs map[string]exprHandler
	stmts map[string]stmtHandler

	// frames tracks, innermost last, how many loops enclose the current
	// statement within the current closure and whether that closure is a
	// try body rather than a function.
	frames []goFrame

	iterSeq   int
	switchSeq int
	trySeq    int
}

type goFrame struct {
	inTry     bool
	inFunc    bool
	loopDepth int
}

func newGoBackend() (*Backend, error) {
	g := &goEmitter{}
	g.exprs = map[string]exprHandler{
		"Literal":          g.literal,
		"Var":              g.variable,
		"Binary":           g.binary,
		"Not":              g.unaryFn("Not", "rtNot(%s)"),
		"Ternary":          g.ternary,
		"StringFormat":     g.stringFormat,
		"ToInt":            g.unaryFn("ToInt", "rtToInt(%s)"),
		"ToFloat":          g.unaryFn("ToFloat", "rtToFloat(%s)"),
		"ToString":         g.unaryFn("ToString", "rtToStr(%s)"),
		"Array":            g.array,
		"Tuple":            g.tuple,
		"Set":              g.setLiteral,
		"Index":            g.index,
		"Slice":            g.slice,
		"Length":           g.unaryFn("Length", "rtLen(%s)"),
		"Range":            g.rangeExpr,
		"Map":              g.mapLiteral,
		"Get":              g.get,
		"GetDefault":       g.getDefault,
		"Keys":             g.unaryFn("Keys", "rtKeys(%s)"),
		"Record":           g.record,
		"GetField":         g.getField,
		"SetHas":           g.setHas,
		"SetSize":          g.unaryFn("SetSize", "rtLen(%s)"),
		"DequeNew":         g.nullaryFn("VDequeNew()"),
		"DequeSize":        g.unaryFn("DequeSize", "rtLen(%s)"),
		"HeapNew":          g.nullaryFn("VHeapNew()"),
		"HeapPeek":         g.unaryFn("HeapPeek", "rtHeapPeek(%s)"),
		"HeapSize":         g.unaryFn("HeapSize", "rtLen(%s)"),
		"StringLength":     g.unaryFn("StringLength", "rtLen(%s)"),
		"StringTrim":       g.unaryFn("StringTrim", "rtTrim(%s)"),
		"StringUpper":      g.unaryFn("StringUpper", "rtUpper(%s)"),
		"StringLower":      g.unaryFn("StringLower", "rtLower(%s)"),
		"Substring":        g.substring,
		"CharAt":           g.charAt,
		"Join":             g.join,
		"StringSplit":      g.stringSplit,
		"StringStartsWith": g.stringStartsWith,
		"StringEndsWith":   g.stringEndsWith,
		"StringContains":   g.stringContains,
		"StringReplace":    g.stringReplace,
		"Math":             g.math,
		"MathPow":          g.mathPow,
		"MathConst":        g.mathConst,
		"JsonParse":        g.unaryFn("JsonParse", "rtJsonParse(%s)"),
		"JsonStringify":    g.jsonStringify,
		"RegexMatch":       g.regexMatch,
		"RegexFindAll":     g.regexFindAll,
		"RegexReplace":     g.regexReplace,
		"RegexSplit":       g.regexSplit,
		"ExternalCall":     g.externalCall,
		"MethodCall":       g.methodCall,
		"PropertyGet":      g.propertyGet,
		"Call":             g.callExpr,
	}
	g.stmts = map[string]stmtHandler{
		"Let":       g.assign,
		"Assign":    g.assign,
		"If":        g.ifStmt,
		"While":     g.whileStmt,
		"For":       g.forStmt,
		"ForEach":   g.forStmt,
		"Switch":    g.switchStmt,
		"Break":     g.breakStmt,
		"Continue":  g.continueStmt,
		"Return":    g.returnStmt,
		"Throw":     g.throwStmt,
		"TryCatch":  g.tryCatch,
		"Print":     g.printStmt,
		"Call":      g.callStmt,
		"Set":       g.mapPut,
		"SetIndex":  g.setIndex,
		"SetField":  g.setField,
		"Push":      g.push,
		"SetAdd":    g.setAdd,
		"SetRemove": g.setRemove,
		"PushBack":  g.pushBack,
		"PushFront": g.pushFront,
		"PopFront":  g.popTarget("rtPopFront"),
		"PopBack":   g.popTarget("rtPopBack"),
		"HeapPush":  g.heapPush,
		"HeapPop":   g.popTarget("rtHeapPop"),
		"FuncDef":   g.funcDef,
		"Import":    g.importStmt,
	}
	return &Backend{
		name:  "go",
		ext:   ".go",
		emit:  g.emitDoc,
		exprs: func() map[string]exprHandler { return g.exprs },
		stmts: func() map[string]stmtHandler { return g.stmts },
	}, nil
}

func goVar(name string) string  { return "v_" + name }
func goFunc(name string) string { return "f_" + name }

func (g *goEmitter) frame() *goFrame { return &g.frames[len(g.frames)-1] }

func (g *goEmitter) emitDoc(doc *ast.Document) (*Output, error) {
	g.w = newWriter("\t")
	g.frames = []goFrame{{}}
	g.iterSeq, g.switchSeq, g.trySeq = 0, 0, 0

	g.w.line("// Code generated by coreil emit; do not edit.")
	g.w.blank()
	g.w.line("package main")
	g.w.blank()

	globals := collectAssigned(doc.Body)
	if len(globals) > 0 {
		g.w.line("var (")
		g.w.in()
		for _, name := range globals {
			g.w.line(goVar(name) + " V")
		}
		g.w.out()
		g.w.line(")")
		g.w.blank()
	}

	for index, stmt := range doc.Body {
		fn, ok := stmt.(*ast.FuncDef)
		if !ok {
			continue
		}
		g.w.beginStmt(index)
		if err := g.emitFunc(fn); err != nil {
			return nil, err
		}
		g.w.endBody()
		g.w.blank()
	}

	g.w.line("func main() {")
	g.w.in()
	g.w.line("rtMain(run)")
	g.w.out()
	g.w.line("}")
	g.w.blank()

	g.w.line("func run() {")
	g.w.in()
	for index, stmt := range doc.Body {
		if _, ok := stmt.(*ast.FuncDef); ok {
			continue
		}
		g.w.beginStmt(index)
		if err := g.stmt(stmt); err != nil {
			return nil, err
		}
	}
	g.w.endBody()
	g.w.out()
	g.w.line("}")

	return &Output{
		Filename: "main.go",
		Source:   g.w.source(),
		Support:  map[string][]byte{"coreil_runtime.go": supportGoRuntime},
		LineMap:  g.w.lineMap,
	}, nil
}

func (g *goEmitter) emitFunc(fn *ast.FuncDef) error {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = goVar(p) + " V"
	}
	g.w.line(fmt.Sprintf("func %s(%s) V {", goFunc(fn.Name), strings.Join(params, ", ")))
	g.w.in()
	seen := map[string]bool{}
	for _, p := range fn.Params {
		seen[p] = true
	}
	for _, name := range collectAssigned(fn.Body) {
		if seen[name] {
			continue
		}
		g.w.line("var " + goVar(name) + " V")
		g.w.line("_ = " + goVar(name))
	}

	g.frames = append(g.frames, goFrame{inFunc: true})
	err := g.stmtList(fn.Body)
	g.frames = g.frames[:len(g.frames)-1]
	if err != nil {
		return err
	}
	g.w.line("return VNone")
	g.w.out()
	g.w.line("}")
	return nil
}

// collectAssigned gathers every name the body assigns, in first-use
// order, without descending into nested function definitions.
func collectAssigned(body []ast.Stmt) []string {
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	var walk func([]ast.Stmt)
	walk = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.Let:
				add(n.Name)
			case *ast.Assign:
				add(n.Name)
			case *ast.If:
				walk(n.Then)
				walk(n.Else)
			case *ast.While:
				walk(n.Body)
			case *ast.For:
				add(n.Var)
				walk(n.Body)
			case *ast.ForEach:
				add(n.Var)
				walk(n.Body)
			case *ast.Switch:
				for _, c := range n.Cases {
					walk(c.Body)
				}
				walk(n.Default)
			case *ast.TryCatch:
				walk(n.Body)
				add(n.CatchVar)
				walk(n.CatchBody)
				walk(n.Finally)
			case *ast.PopFront:
				add(n.Target)
			case *ast.PopBack:
				add(n.Target)
			case *ast.HeapPop:
				add(n.Target)
			}
		}
	}
	walk(body)
	return names
}

func (g *goEmitter) expr(e ast.Expr) (string, error) {
	h, ok := g.exprs[e.TypeName()]
	if !ok {
		return "", fmt.Errorf("go: unknown expression type '%s'", e.TypeName())
	}
	return h(e)
}

func (g *goEmitter) stmt(s ast.Stmt) error {
	h, ok := g.stmts[s.TypeName()]
	if !ok {
		return fmt.Errorf("go: unknown statement type '%s'", s.TypeName())
	}
	return h(s)
}

func (g *goEmitter) stmtList(body []ast.Stmt) error {
	for _, s := range body {
		if err := g.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *goEmitter) block(body []ast.Stmt) error {
	g.w.in()
	err := g.stmtList(body)
	g.w.out()
	return err
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (g *goEmitter) unaryFn(typeName, format string) exprHandler {
	return func(e ast.Expr) (string, error) {
		inner, err := singleChild(e, typeName)
		if err != nil {
			return "", err
		}
		s, err := g.expr(inner)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(format, s), nil
	}
}

func (g *goEmitter) nullaryFn(code string) exprHandler {
	return func(ast.Expr) (string, error) { return code, nil }
}

func singleChild(e ast.Expr, typeName string) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.Not:
		return n.Arg, nil
	case *ast.ToInt:
		return n.Value, nil
	case *ast.ToFloat:
		return n.Value, nil
	case *ast.ToString:
		return n.Value, nil
	case *ast.Length:
		return n.Base, nil
	case *ast.Keys:
		return n.Base, nil
	case *ast.SetSize:
		return n.Base, nil
	case *ast.DequeSize:
		return n.Base, nil
	case *ast.HeapPeek:
		return n.Base, nil
	case *ast.HeapSize:
		return n.Base, nil
	case *ast.StringLength:
		return n.Base, nil
	case *ast.StringTrim:
		return n.Base, nil
	case *ast.StringUpper:
		return n.Base, nil
	case *ast.StringLower:
		return n.Base, nil
	case *ast.JsonParse:
		return n.Source, nil
	}
	return nil, fmt.Errorf("go: unexpected node for %s", typeName)
}

func goString(s string) string { return strconv.Quote(s) }

func (g *goEmitter) literal(e ast.Expr) (string, error) {
	switch v := e.(*ast.Literal).Value.(type) {
	case nil:
		return "VNone", nil
	case bool:
		return fmt.Sprintf("VBool(%t)", v), nil
	case int64:
		return fmt.Sprintf("VInt(%d)", v), nil
	case float64:
		return "VFloat(" + strconv.FormatFloat(v, 'g', -1, 64) + ")", nil
	case string:
		return "VStr(" + goString(v) + ")", nil
	default:
		return "", fmt.Errorf("go: literal value %T", v)
	}
}

func (g *goEmitter) variable(e ast.Expr) (string, error) {
	return goVar(e.(*ast.Var).Name), nil
}

var goBinaryOps = map[string]string{
	"+":  "rtAdd",
	"-":  "rtSub",
	"*":  "rtMul",
	"/":  "rtDiv",
	"//": "rtFloorDiv",
	"%":  "rtMod",
	"==": "rtEq",
	"!=": "rtNe",
	"<":  "rtLt",
	"<=": "rtLe",
	">":  "rtGt",
	">=": "rtGe",
}

func (g *goEmitter) binary(e ast.Expr) (string, error) {
	n := e.(*ast.Binary)
	left, err := g.expr(n.Left)
	if err != nil {
		return "", err
	}
	right, err := g.expr(n.Right)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "and":
		return fmt.Sprintf("VBool(rtTruthy(%s) && rtTruthy(%s))", left, right), nil
	case "or":
		return fmt.Sprintf("VBool(rtTruthy(%s) || rtTruthy(%s))", left, right), nil
	}
	fn, ok := goBinaryOps[n.Op]
	if !ok {
		return "", fmt.Errorf("go: binary operator '%s'", n.Op)
	}
	return fmt.Sprintf("%s(%s, %s)", fn, left, right), nil
}

func (g *goEmitter) ternary(e ast.Expr) (string, error) {
	n := e.(*ast.Ternary)
	test, err := g.expr(n.Test)
	if err != nil {
		return "", err
	}
	cons, err := g.expr(n.Consequent)
	if err != nil {
		return "", err
	}
	alt, err := g.expr(n.Alternate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("func() V { if rtTruthy(%s) { return %s }; return %s }()", test, cons, alt), nil
}

func (g *goEmitter) stringFormat(e ast.Expr) (string, error) {
	n := e.(*ast.StringFormat)
	if len(n.Parts) == 0 {
		return `VStr("")`, nil
	}
	parts := make([]string, len(n.Parts))
	for i, part := range n.Parts {
		s, err := g.expr(part)
		if err != nil {
			return "", err
		}
		parts[i] = "rtS(" + s + ")"
	}
	return "VStr(" + strings.Join(parts, " + ") + ")", nil
}

func (g *goEmitter) exprList(items []ast.Expr) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := g.expr(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func (g *goEmitter) array(e ast.Expr) (string, error) {
	items, err := g.exprList(e.(*ast.Array).Items)
	if err != nil {
		return "", err
	}
	return "VArr(" + items + ")", nil
}

func (g *goEmitter) tuple(e ast.Expr) (string, error) {
	items, err := g.exprList(e.(*ast.Tuple).Items)
	if err != nil {
		return "", err
	}
	return "VTuple(" + items + ")", nil
}

func (g *goEmitter) setLiteral(e ast.Expr) (string, error) {
	items, err := g.exprList(e.(*ast.SetLiteral).Items)
	if err != nil {
		return "", err
	}
	return "VSetOf(" + items + ")", nil
}

func (g *goEmitter) index(e ast.Expr) (string, error) {
	n := e.(*ast.Index)
	return g.call2("rtIndex", n.Base, n.Index)
}

func (g *goEmitter) call2(fn string, a, b ast.Expr) (string, error) {
	left, err := g.expr(a)
	if err != nil {
		return "", err
	}
	right, err := g.expr(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s)", fn, left, right), nil
}

func (g *goEmitter) call3(fn string, a, b, c ast.Expr) (string, error) {
	first, err := g.expr(a)
	if err != nil {
		return "", err
	}
	second, err := g.expr(b)
	if err != nil {
		return "", err
	}
	third, err := g.expr(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s, %s)", fn, first, second, third), nil
}

func (g *goEmitter) slice(e ast.Expr) (string, error) {
	n := e.(*ast.Slice)
	return g.call3("rtSlice", n.Base, n.Start, n.End)
}

func (g *goEmitter) rangeExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Range)
	from, err := g.expr(n.From)
	if err != nil {
		return "", err
	}
	to, err := g.expr(n.To)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("VRange(%s, %s, %t)", from, to, n.Inclusive), nil
}

func (g *goEmitter) mapLiteral(e ast.Expr) (string, error) {
	n := e.(*ast.Map)
	parts := make([]string, 0, len(n.Items)*2)
	for _, item := range n.Items {
		key, err := g.expr(item.Key)
		if err != nil {
			return "", err
		}
		value, err := g.expr(item.Value)
		if err != nil {
			return "", err
		}
		parts = append(parts, key, value)
	}
	return "VMapOf(" + strings.Join(parts, ", ") + ")", nil
}

func (g *goEmitter) get(e ast.Expr) (string, error) {
	n := e.(*ast.Get)
	return g.call2("rtGet", n.Base, n.Key)
}

func (g *goEmitter) getDefault(e ast.Expr) (string, error) {
	n := e.(*ast.GetDefault)
	return g.call3("rtGetDef", n.Base, n.Key, n.Default)
}

func (g *goEmitter) record(e ast.Expr) (string, error) {
	n := e.(*ast.Record)
	parts := make([]string, 0, len(n.Fields)*2)
	for _, field := range n.Fields {
		value, err := g.expr(field.Value)
		if err != nil {
			return "", err
		}
		parts = append(parts, goString(field.Name), value)
	}
	return "VRecordOf(" + strings.Join(parts, ", ") + ")", nil
}

func (g *goEmitter) getField(e ast.Expr) (string, error) {
	n := e.(*ast.GetField)
	base, err := g.expr(n.Base)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rtGetField(%s, %s)", base, goString(n.Name)), nil
}

func (g *goEmitter) setHas(e ast.Expr) (string, error) {
	n := e.(*ast.SetHas)
	return g.call2("rtSetHas", n.Base, n.Value)
}

func (g *goEmitter) substring(e ast.Expr) (string, error) {
	n := e.(*ast.Substring)
	return g.call3("rtSubstr", n.Base, n.Start, n.End)
}

func (g *goEmitter) charAt(e ast.Expr) (string, error) {
	n := e.(*ast.CharAt)
	return g.call2("rtCharAt", n.Base, n.Index)
}

func (g *goEmitter) join(e ast.Expr) (string, error) {
	n := e.(*ast.Join)
	return g.call2("rtJoin", n.Sep, n.Items)
}

func (g *goEmitter) stringSplit(e ast.Expr) (string, error) {
	n := e.(*ast.StringSplit)
	return g.call2("rtSplit", n.Base, n.Delimiter)
}

func (g *goEmitter) stringStartsWith(e ast.Expr) (string, error) {
	n := e.(*ast.StringStartsWith)
	return g.call2("rtStartsWith", n.Base, n.Prefix)
}

func (g *goEmitter) stringEndsWith(e ast.Expr) (string, error) {
	n := e.(*ast.StringEndsWith)
	return g.call2("rtEndsWith", n.Base, n.Suffix)
}

func (g *goEmitter) stringContains(e ast.Expr) (string, error) {
	n := e.(*ast.StringContains)
	return g.call2("rtContains", n.Base, n.Substring)
}

func (g *goEmitter) stringReplace(e ast.Expr) (string, error) {
	n := e.(*ast.StringReplace)
	return g.call3("rtReplace", n.Base, n.Old, n.New)
}

var goMathOps = map[string]string{
	"sin":   "rtSin",
	"cos":   "rtCos",
	"tan":   "rtTan",
	"sqrt":  "rtSqrt",
	"floor": "rtFloor",
	"ceil":  "rtCeil",
	"abs":   "rtAbs",
	"log":   "rtLog",
	"exp":   "rtExp",
}

func (g *goEmitter) math(e ast.Expr) (string, error) {
	n := e.(*ast.Math)
	fn, ok := goMathOps[n.Op]
	if !ok {
		return "", fmt.Errorf("go: math op '%s'", n.Op)
	}
	arg, err := g.expr(n.Arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", fn, arg), nil
}

func (g *goEmitter) mathPow(e ast.Expr) (string, error) {
	n := e.(*ast.MathPow)
	return g.call2("rtPow", n.Base, n.Exponent)
}

func (g *goEmitter) mathConst(e ast.Expr) (string, error) {
	switch e.(*ast.MathConst).Name {
	case "pi":
		return "rtPi", nil
	case "e":
		return "rtE", nil
	}
	return "", fmt.Errorf("go: math constant '%s'", e.(*ast.MathConst).Name)
}

func (g *goEmitter) jsonStringify(e ast.Expr) (string, error) {
	n := e.(*ast.JsonStringify)
	value, err := g.expr(n.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rtJsonStr(%s, %t)", value, n.Pretty), nil
}

func (g *goEmitter) regexMatch(e ast.Expr) (string, error) {
	n := e.(*ast.RegexMatch)
	s, err := g.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := g.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rtRegexMatch(%s, %s, %s)", s, pattern, goString(n.Flags)), nil
}

func (g *goEmitter) regexFindAll(e ast.Expr) (string, error) {
	n := e.(*ast.RegexFindAll)
	s, err := g.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := g.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rtRegexFindAll(%s, %s, %s)", s, pattern, goString(n.Flags)), nil
}

func (g *goEmitter) regexReplace(e ast.Expr) (string, error) {
	n := e.(*ast.RegexReplace)
	s, err := g.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := g.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	repl, err := g.expr(n.Replacement)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rtRegexReplace(%s, %s, %s, %s)", s, pattern, repl, goString(n.Flags)), nil
}

func (g *goEmitter) regexSplit(e ast.Expr) (string, error) {
	n := e.(*ast.RegexSplit)
	s, err := g.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := g.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rtRegexSplit(%s, %s, %s, %d)", s, pattern, goString(n.Flags), n.MaxSplit), nil
}

func (g *goEmitter) externalCall(e ast.Expr) (string, error) {
	n := e.(*ast.ExternalCall)
	args, err := g.exprList(n.Args)
	if err != nil {
		return "", err
	}
	call := "rtExt(" + goString(n.Module+"."+n.Function)
	if args != "" {
		call += ", " + args
	}
	return call + ")", nil
}

func (g *goEmitter) methodCall(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "go", NodeType: "MethodCall", Category: CategoryMethod}
}

func (g *goEmitter) propertyGet(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "go", NodeType: "PropertyGet", Category: CategoryProperty}
}

func (g *goEmitter) callString(name string, args []ast.Expr, exprPos bool) (string, error) {
	list, err := g.exprList(args)
	if err != nil {
		return "", err
	}
	switch name {
	case "print":
		if exprPos {
			return "rtPrintV(" + list + ")", nil
		}
		return "rtPrint(" + list + ")", nil
	case "input":
		return "rtInput(" + list + ")", nil
	case "get_or_default":
		return "rtGetOrDefault(" + list + ")", nil
	case "entries":
		return "rtEntriesOf(" + list + ")", nil
	case "append":
		return "rtAppend(" + list + ")", nil
	}
	return goFunc(name) + "(" + list + ")", nil
}

func (g *goEmitter) callExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Call)
	return g.callString(n.Name, n.Args, true)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *goEmitter) assign(s ast.Stmt) error {
	var name string
	var valueExpr ast.Expr
	switch n := s.(type) {
	case *ast.Let:
		name, valueExpr = n.Name, n.Value
	case *ast.Assign:
		name, valueExpr = n.Name, n.Value
	}
	value, err := g.expr(valueExpr)
	if err != nil {
		return err
	}
	g.w.line(goVar(name) + " = " + value)
	return nil
}

func (g *goEmitter) ifStmt(s ast.Stmt) error {
	n := s.(*ast.If)
	test, err := g.expr(n.Test)
	if err != nil {
		return err
	}
	g.w.line("if rtTruthy(" + test + ") {")
	if err := g.block(n.Then); err != nil {
		return err
	}
	if len(n.Else) > 0 {
		g.w.line("} else {")
		if err := g.block(n.Else); err != nil {
			return err
		}
	}
	g.w.line("}")
	return nil
}

func (g *goEmitter) whileStmt(s ast.Stmt) error {
	n := s.(*ast.While)
	test, err := g.expr(n.Test)
	if err != nil {
		return err
	}
	g.w.line("for rtTruthy(" + test + ") {")
	g.frame().loopDepth++
	err = g.block(n.Body)
	g.frame().loopDepth--
	if err != nil {
		return err
	}
	g.w.line("}")
	return nil
}

func (g *goEmitter) forStmt(s ast.Stmt) error {
	var varName string
	var iter ast.Expr
	var body []ast.Stmt
	switch n := s.(type) {
	case *ast.For:
		varName, iter, body = n.Var, n.Iter, n.Body
	case *ast.ForEach:
		varName, iter, body = n.Var, n.Iter, n.Body
	}
	source, err := g.expr(iter)
	if err != nil {
		return err
	}
	it := fmt.Sprintf("_it%d", g.iterSeq)
	g.iterSeq++
	g.w.line(fmt.Sprintf("for %s := rtIter(%s); %s.Next(); {", it, source, it))
	g.w.in()
	g.w.line(goVar(varName) + " = " + it + ".Value()")
	g.w.out()
	g.frame().loopDepth++
	err = g.block(body)
	g.frame().loopDepth--
	if err != nil {
		return err
	}
	g.w.line("}")
	return nil
}

func (g *goEmitter) switchStmt(s ast.Stmt) error {
	n := s.(*ast.Switch)
	test, err := g.expr(n.Test)
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("_sw%d", g.switchSeq)
	g.switchSeq++
	g.w.line(tmp + " := " + test)
	if len(n.Cases) == 0 {
		g.w.line("_ = " + tmp)
		return g.stmtList(n.Default)
	}
	for i, c := range n.Cases {
		value, err := g.expr(c.Value)
		if err != nil {
			return err
		}
		keyword := "if"
		if i > 0 {
			keyword = "} else if"
		}
		g.w.line(fmt.Sprintf("%s rtEqual(%s, %s) {", keyword, tmp, value))
		if err := g.block(c.Body); err != nil {
			return err
		}
	}
	if n.Default != nil {
		g.w.line("} else {")
		if err := g.block(n.Default); err != nil {
			return err
		}
	}
	g.w.line("}")
	return nil
}

func (g *goEmitter) breakStmt(ast.Stmt) error {
	f := g.frame()
	if f.loopDepth > 0 {
		g.w.line("break")
	} else {
		g.w.line("rtBreakOut()")
	}
	return nil
}

func (g *goEmitter) continueStmt(ast.Stmt) error {
	f := g.frame()
	if f.loopDepth > 0 {
		g.w.line("continue")
	} else {
		g.w.line("rtContinueOut()")
	}
	return nil
}

func (g *goEmitter) returnStmt(s ast.Stmt) error {
	n := s.(*ast.Return)
	value := "VNone"
	if n.Value != nil {
		v, err := g.expr(n.Value)
		if err != nil {
			return err
		}
		value = v
	}
	f := g.frame()
	switch {
	case f.inFunc:
		g.w.line("return " + value)
	case f.inTry:
		g.w.line("rtReturnOut(" + value + ")")
	default:
		// Top level: evaluate for effect, then leave run().
		g.w.line("_ = " + value)
		g.w.line("return")
	}
	return nil
}

func (g *goEmitter) throwStmt(s ast.Stmt) error {
	message, err := g.expr(s.(*ast.Throw).Message)
	if err != nil {
		return err
	}
	g.w.line("rtThrow(" + message + ")")
	return nil
}

// tryCatch compiles the body and the catch arm to closures whose escaped
// signals come back from rtTry. The finally block always runs before any
// pending signal is re-raised.
func (g *goEmitter) tryCatch(s ast.Stmt) error {
	n := s.(*ast.TryCatch)
	seq := g.trySeq
	g.trySeq++
	kind := fmt.Sprintf("_k%d", seq)
	msg := fmt.Sprintf("_m%d", seq)
	val := fmt.Sprintf("_v%d", seq)

	emitClosure := func(body []ast.Stmt) error {
		g.frames = append(g.frames, goFrame{inTry: true})
		err := g.block(body)
		g.frames = g.frames[:len(g.frames)-1]
		return err
	}

	g.w.line(fmt.Sprintf("%s, %s, %s := rtTry(func() {", kind, msg, val))
	if err := emitClosure(n.Body); err != nil {
		return err
	}
	g.w.line("})")
	g.w.line(fmt.Sprintf("if %s == sigThrow {", kind))
	g.w.in()
	if n.CatchVar != "" {
		g.w.line(goVar(n.CatchVar) + " = VStr(" + msg + ")")
	}
	g.w.line(fmt.Sprintf("%s, %s, %s = rtTry(func() {", kind, msg, val))
	if err := emitClosure(n.CatchBody); err != nil {
		return err
	}
	g.w.line("})")
	g.w.out()
	g.w.line("}")
	if err := g.stmtList(n.Finally); err != nil {
		return err
	}

	g.w.line(fmt.Sprintf("if %s == sigThrow {", kind))
	g.w.in()
	g.w.line(fmt.Sprintf("panic(rtSignal{kind: sigThrow, msg: %s})", msg))
	g.w.out()
	g.w.line("}")

	f := g.frame()
	if f.loopDepth > 0 {
		g.w.line(fmt.Sprintf("if %s == sigBreak {", kind))
		g.w.in()
		g.w.line("break")
		g.w.out()
		g.w.line("}")
		g.w.line(fmt.Sprintf("if %s == sigContinue {", kind))
		g.w.in()
		g.w.line("continue")
		g.w.out()
		g.w.line("}")
	} else if f.inTry {
		g.w.line(fmt.Sprintf("if %s == sigBreak {", kind))
		g.w.in()
		g.w.line("rtBreakOut()")
		g.w.out()
		g.w.line("}")
		g.w.line(fmt.Sprintf("if %s == sigContinue {", kind))
		g.w.in()
		g.w.line("rtContinueOut()")
		g.w.out()
		g.w.line("}")
	}
	if f.inFunc {
		g.w.line(fmt.Sprintf("if %s == sigReturn {", kind))
		g.w.in()
		g.w.line("return " + val)
		g.w.out()
		g.w.line("}")
	} else if f.inTry {
		g.w.line(fmt.Sprintf("if %s == sigReturn {", kind))
		g.w.in()
		g.w.line("rtReturnOut(" + val + ")")
		g.w.out()
		g.w.line("}")
	} else {
		g.w.line("_ = " + val)
	}
	return nil
}

func (g *goEmitter) printStmt(s ast.Stmt) error {
	args, err := g.exprList(s.(*ast.Print).Args)
	if err != nil {
		return err
	}
	g.w.line("rtPrint(" + args + ")")
	return nil
}

func (g *goEmitter) callStmt(s ast.Stmt) error {
	n := s.(*ast.Call)
	call, err := g.callString(n.Name, n.Args, false)
	if err != nil {
		return err
	}
	g.w.line(call)
	return nil
}

func (g *goEmitter) stmt2(fn string, a, b ast.Expr) error {
	code, err := g.call2(fn, a, b)
	if err != nil {
		return err
	}
	g.w.line(code)
	return nil
}

func (g *goEmitter) stmt3(fn string, a, b, c ast.Expr) error {
	code, err := g.call3(fn, a, b, c)
	if err != nil {
		return err
	}
	g.w.line(code)
	return nil
}

func (g *goEmitter) mapPut(s ast.Stmt) error {
	n := s.(*ast.MapPut)
	return g.stmt3("rtMapSet", n.Base, n.Key, n.Value)
}

func (g *goEmitter) setIndex(s ast.Stmt) error {
	n := s.(*ast.SetIndex)
	return g.stmt3("rtSetAt", n.Base, n.Index, n.Value)
}

func (g *goEmitter) setField(s ast.Stmt) error {
	n := s.(*ast.SetField)
	base, err := g.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := g.expr(n.Value)
	if err != nil {
		return err
	}
	g.w.line(fmt.Sprintf("rtSetField(%s, %s, %s)", base, goString(n.Name), value))
	return nil
}

func (g *goEmitter) push(s ast.Stmt) error {
	n := s.(*ast.Push)
	return g.stmt2("rtPush", n.Base, n.Value)
}

func (g *goEmitter) setAdd(s ast.Stmt) error {
	n := s.(*ast.SetAdd)
	return g.stmt2("rtSetAdd", n.Base, n.Value)
}

func (g *goEmitter) setRemove(s ast.Stmt) error {
	n := s.(*ast.SetRemove)
	return g.stmt2("rtSetRemove", n.Base, n.Value)
}

func (g *goEmitter) pushBack(s ast.Stmt) error {
	n := s.(*ast.PushBack)
	return g.stmt2("rtPushBack", n.Base, n.Value)
}

func (g *goEmitter) pushFront(s ast.Stmt) error {
	n := s.(*ast.PushFront)
	return g.stmt2("rtPushFront", n.Base, n.Value)
}

func (g *goEmitter) popTarget(fn string) stmtHandler {
	return func(s ast.Stmt) error {
		var base ast.Expr
		var target string
		switch n := s.(type) {
		case *ast.PopFront:
			base, target = n.Base, n.Target
		case *ast.PopBack:
			base, target = n.Base, n.Target
		case *ast.HeapPop:
			base, target = n.Base, n.Target
		}
		b, err := g.expr(base)
		if err != nil {
			return err
		}
		g.w.line(fmt.Sprintf("%s = %s(%s)", goVar(target), fn, b))
		return nil
	}
}

func (g *goEmitter) heapPush(s ast.Stmt) error {
	n := s.(*ast.HeapPush)
	return g.stmt3("rtHeapPush", n.Base, n.Priority, n.Value)
}

func (g *goEmitter) funcDef(ast.Stmt) error {
	// Top-level definitions were emitted as package functions already.
	if len(g.frames) > 1 || g.frame().loopDepth > 0 {
		return fmt.Errorf("go: function definitions must be at top level")
	}
	return nil
}

func (g *goEmitter) importStmt(ast.Stmt) error {
	return fmt.Errorf("go: imports must be resolved before emission")
}
