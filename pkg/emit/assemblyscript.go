package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

// asEmitter produces a main.ts for the AssemblyScript compiler next to
// the shared runtime module. AssemblyScript reads like TypeScript but
// lacks closures, so collection literals go through runtime helpers
// instead of IIFEs, and every value wears the runtime's Value class so
// operators can dispatch on kind at run time.
type asEmitter struct {
	w     *writer
	exprs map[string]exprHandler
	stmts map[string]stmtHandler

	frames []asFrame

	iterSeq   int
	switchSeq int
	trySeq    int
}

type asFrame struct {
	inFunc    bool
	loopDepth int
}

func newAssemblyScriptBackend() (*Backend, error) {
	a := &asEmitter{}
	a.exprs = map[string]exprHandler{
		"Literal":          a.literal,
		"Var":              a.variable,
		"Binary":           a.binary,
		"Not":              a.unaryFn("Not", "(%s).not()"),
		"Ternary":          a.ternary,
		"StringFormat":     a.stringFormat,
		"ToInt":            a.unaryFn("ToInt", "(%s).toInt()"),
		"ToFloat":          a.unaryFn("ToFloat", "(%s).toFloat()"),
		"ToString":         a.unaryFn("ToString", "(%s).toStringConvert()"),
		"Array":            a.array,
		"Tuple":            a.tuple,
		"Set":              a.setLiteral,
		"Index":            a.index,
		"Slice":            a.slice,
		"Length":           a.unaryFn("Length", "(%s).length()"),
		"Range":            a.rangeExpr,
		"Map":              a.mapLiteral,
		"Get":              a.get,
		"GetDefault":       a.getDefault,
		"Keys":             a.unaryFn("Keys", "Value.fromArray((%s).asMap().keys())"),
		"Record":           a.record,
		"GetField":         a.getField,
		"SetHas":           a.setHas,
		"SetSize":          a.unaryFn("SetSize", "(%s).length()"),
		"DequeNew":         a.nullaryFn("Value.fromDeque(new Deque())"),
		"DequeSize":        a.unaryFn("DequeSize", "(%s).length()"),
		"HeapNew":          a.nullaryFn("Value.fromHeap(new Heap())"),
		"HeapPeek":         a.unaryFn("HeapPeek", "(%s).asHeap().peek()"),
		"HeapSize":         a.unaryFn("HeapSize", "(%s).length()"),
		"StringLength":     a.unaryFn("StringLength", "stringLength(%s)"),
		"StringTrim":       a.unaryFn("StringTrim", "stringTrim(%s)"),
		"StringUpper":      a.unaryFn("StringUpper", "stringUpper(%s)"),
		"StringLower":      a.unaryFn("StringLower", "stringLower(%s)"),
		"Substring":        a.substringExpr,
		"CharAt":           a.charAtExpr,
		"Join":             a.joinExpr,
		"StringSplit":      a.stringSplit,
		"StringStartsWith": a.stringStartsWith,
		"StringEndsWith":   a.stringEndsWith,
		"StringContains":   a.stringContains,
		"StringReplace":    a.stringReplace,
		"Math":             a.math,
		"MathPow":          a.mathPow,
		"MathConst":        a.mathConst,
		"JsonParse":        a.unaryFn("JsonParse", "jsonParse(%s)"),
		"JsonStringify":    a.jsonStringify,
		"RegexMatch":       a.regexMatch,
		"RegexFindAll":     a.regexFindAll,
		"RegexReplace":     a.regexReplace,
		"RegexSplit":       a.regexSplit,
		"ExternalCall":     a.externalCall,
		"MethodCall":       a.methodCall,
		"PropertyGet":      a.propertyGet,
		"Call":             a.callExpr,
	}
	a.stmts = map[string]stmtHandler{
		"Let":       a.assign,
		"Assign":    a.assign,
		"If":        a.ifStmt,
		"While":     a.whileStmt,
		"For":       a.forStmt,
		"ForEach":   a.forStmt,
		"Switch":    a.switchStmt,
		"Break":     a.breakStmt,
		"Continue":  a.continueStmt,
		"Return":    a.returnStmt,
		"Throw":     a.throwStmt,
		"TryCatch":  a.tryCatch,
		"Print":     a.printStmt,
		"Call":      a.callStmt,
		"Set":       a.mapPut,
		"SetIndex":  a.setIndex,
		"SetField":  a.setField,
		"Push":      a.push,
		"SetAdd":    a.setAdd,
		"SetRemove": a.setRemove,
		"PushBack":  a.pushBack,
		"PushFront": a.pushFront,
		"PopFront":  a.popTarget("(%s).asDeque().popFront()"),
		"PopBack":   a.popTarget("(%s).asDeque().popBack()"),
		"HeapPush":  a.heapPush,
		"HeapPop":   a.popTarget("(%s).asHeap().pop()"),
		"FuncDef":   a.funcDef,
		"Import":    a.importStmt,
	}
	return &Backend{
		name:  "assemblyscript",
		ext:   ".ts",
		emit:  a.emitDoc,
		exprs: func() map[string]exprHandler { return a.exprs },
		stmts: func() map[string]stmtHandler { return a.stmts },
	}, nil
}

func asVar(name string) string  { return "v_" + name }
func asFunc(name string) string { return "f_" + name }

func (a *asEmitter) frame() *asFrame { return &a.frames[len(a.frames)-1] }

// Every emitted program imports the full runtime surface; the
// AssemblyScript compiler tree-shakes what a given program never calls.
var asImports = []string{
	"Value", "Deque", "Heap",
	"fatal", "formatValue", "print", "printExpr", "inputLine", "iterItems",
	"mapOf", "setOf", "recordOf", "recordGet", "recordSet", "mapEntries", "appendValue",
	"stringLength", "substring", "charAt", "join", "stringSplit",
	"stringTrim", "stringUpper", "stringLower",
	"stringStartsWith", "stringEndsWith", "stringContains", "stringReplace",
	"mathSin", "mathCos", "mathTan", "mathSqrt", "mathFloor", "mathCeil",
	"mathAbs", "mathLog", "mathExp", "mathPow", "mathPi", "mathE",
	"jsonParse", "jsonStringify",
	"regexMatch", "regexFindAll", "regexReplace", "regexSplit",
}

func (a *asEmitter) emitDoc(doc *ast.Document) (*Output, error) {
	a.w = newWriter("  ")
	a.frames = []asFrame{{}}
	a.iterSeq, a.switchSeq, a.trySeq = 0, 0, 0

	a.w.line("// Code generated by coreil emit; do not edit.")
	a.w.blank()
	a.w.line("import {")
	a.w.in()
	for i := 0; i < len(asImports); i += 6 {
		end := i + 6
		if end > len(asImports) {
			end = len(asImports)
		}
		a.w.line(strings.Join(asImports[i:end], ", ") + ",")
	}
	a.w.out()
	a.w.line(`} from "./coreil_runtime";`)
	a.w.blank()

	globals := collectAssigned(doc.Body)
	for _, name := range globals {
		a.w.line("let " + asVar(name) + ": Value = Value.null_();")
	}
	if len(globals) > 0 {
		a.w.blank()
	}

	for index, stmt := range doc.Body {
		fn, ok := stmt.(*ast.FuncDef)
		if !ok {
			continue
		}
		a.w.beginStmt(index)
		if err := a.emitFunc(fn); err != nil {
			return nil, err
		}
		a.w.endBody()
		a.w.blank()
	}

	a.w.line("function run(): void {")
	a.w.in()
	for index, stmt := range doc.Body {
		if _, ok := stmt.(*ast.FuncDef); ok {
			continue
		}
		a.w.beginStmt(index)
		if err := a.stmt(stmt); err != nil {
			return nil, err
		}
	}
	a.w.endBody()
	a.w.out()
	a.w.line("}")
	a.w.blank()

	a.w.line("export function main(): void {")
	a.w.in()
	a.w.line("try {")
	a.w.in()
	a.w.line("run();")
	a.w.out()
	a.w.line("} catch (_err) {")
	a.w.in()
	a.w.line(`fatal((_err instanceof Error) ? (_err as Error).message : "unknown error");`)
	a.w.out()
	a.w.line("}")
	a.w.out()
	a.w.line("}")

	return &Output{
		Filename: "main.ts",
		Source:   a.w.source(),
		Support:  map[string][]byte{"coreil_runtime.ts": supportAssemblyScriptRuntime},
		LineMap:  a.w.lineMap,
	}, nil
}

func (a *asEmitter) emitFunc(fn *ast.FuncDef) error {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = asVar(p) + ": Value"
	}
	a.w.line(fmt.Sprintf("function %s(%s): Value {", asFunc(fn.Name), strings.Join(params, ", ")))
	a.w.in()
	for _, name := range localNames(fn.Body, fn.Params, nil) {
		a.w.line("let " + asVar(name) + ": Value = Value.null_();")
	}

	a.frames = append(a.frames, asFrame{inFunc: true})
	err := a.stmtList(fn.Body)
	a.frames = a.frames[:len(a.frames)-1]
	if err != nil {
		return err
	}
	a.w.line("return Value.null_();")
	a.w.out()
	a.w.line("}")
	return nil
}

func (a *asEmitter) expr(e ast.Expr) (string, error) {
	h, ok := a.exprs[e.TypeName()]
	if !ok {
		return "", fmt.Errorf("assemblyscript: unknown expression type '%s'", e.TypeName())
	}
	return h(e)
}

func (a *asEmitter) stmt(s ast.Stmt) error {
	h, ok := a.stmts[s.TypeName()]
	if !ok {
		return fmt.Errorf("assemblyscript: unknown statement type '%s'", s.TypeName())
	}
	return h(s)
}

func (a *asEmitter) stmtList(body []ast.Stmt) error {
	for _, s := range body {
		if err := a.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (a *asEmitter) block(body []ast.Stmt) error {
	a.w.in()
	err := a.stmtList(body)
	a.w.out()
	return err
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (a *asEmitter) unaryFn(typeName, format string) exprHandler {
	return func(e ast.Expr) (string, error) {
		inner, err := singleChild(e, typeName)
		if err != nil {
			return "", err
		}
		s, err := a.expr(inner)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(format, s), nil
	}
}

func (a *asEmitter) nullaryFn(code string) exprHandler {
	return func(ast.Expr) (string, error) { return code, nil }
}

func asString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				b.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func asFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (a *asEmitter) literal(e ast.Expr) (string, error) {
	switch v := e.(*ast.Literal).Value.(type) {
	case nil:
		return "Value.null_()", nil
	case bool:
		return fmt.Sprintf("Value.fromBool(%t)", v), nil
	case int64:
		return fmt.Sprintf("Value.fromInt(%d)", v), nil
	case float64:
		return "Value.fromFloat(" + asFloat(v) + ")", nil
	case string:
		return "Value.fromString(" + asString(v) + ")", nil
	default:
		return "", fmt.Errorf("assemblyscript: literal value %T", v)
	}
}

func (a *asEmitter) variable(e ast.Expr) (string, error) {
	return asVar(e.(*ast.Var).Name), nil
}

var asBinaryOps = map[string]string{
	"+":  "add",
	"-":  "sub",
	"*":  "mul",
	"/":  "div",
	"//": "floorDiv",
	"%":  "mod",
	"==": "eq",
	"!=": "ne",
	"<":  "lt",
	"<=": "le",
	">":  "gt",
	">=": "ge",
}

func (a *asEmitter) binary(e ast.Expr) (string, error) {
	n := e.(*ast.Binary)
	left, err := a.expr(n.Left)
	if err != nil {
		return "", err
	}
	right, err := a.expr(n.Right)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "and":
		return fmt.Sprintf("Value.fromBool((%s).isTruthy() && (%s).isTruthy())", left, right), nil
	case "or":
		return fmt.Sprintf("Value.fromBool((%s).isTruthy() || (%s).isTruthy())", left, right), nil
	}
	method, ok := asBinaryOps[n.Op]
	if !ok {
		return "", fmt.Errorf("assemblyscript: binary operator '%s'", n.Op)
	}
	return fmt.Sprintf("(%s).%s(%s)", left, method, right), nil
}

func (a *asEmitter) ternary(e ast.Expr) (string, error) {
	n := e.(*ast.Ternary)
	test, err := a.expr(n.Test)
	if err != nil {
		return "", err
	}
	cons, err := a.expr(n.Consequent)
	if err != nil {
		return "", err
	}
	alt, err := a.expr(n.Alternate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("((%s).isTruthy() ? (%s) : (%s))", test, cons, alt), nil
}

func (a *asEmitter) stringFormat(e ast.Expr) (string, error) {
	n := e.(*ast.StringFormat)
	if len(n.Parts) == 0 {
		return `Value.fromString("")`, nil
	}
	parts := make([]string, len(n.Parts))
	for i, part := range n.Parts {
		s, err := a.expr(part)
		if err != nil {
			return "", err
		}
		parts[i] = "formatValue(" + s + ")"
	}
	return "Value.fromString(" + strings.Join(parts, " + ") + ")", nil
}

func (a *asEmitter) exprList(items []ast.Expr) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := a.expr(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func (a *asEmitter) array(e ast.Expr) (string, error) {
	items, err := a.exprList(e.(*ast.Array).Items)
	if err != nil {
		return "", err
	}
	return "Value.fromArray([" + items + "])", nil
}

func (a *asEmitter) tuple(e ast.Expr) (string, error) {
	items, err := a.exprList(e.(*ast.Tuple).Items)
	if err != nil {
		return "", err
	}
	return "Value.fromTuple([" + items + "])", nil
}

func (a *asEmitter) setLiteral(e ast.Expr) (string, error) {
	items, err := a.exprList(e.(*ast.SetLiteral).Items)
	if err != nil {
		return "", err
	}
	return "setOf([" + items + "])", nil
}

func (a *asEmitter) index(e ast.Expr) (string, error) {
	n := e.(*ast.Index)
	base, err := a.expr(n.Base)
	if err != nil {
		return "", err
	}
	idx, err := a.expr(n.Index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).index(%s)", base, idx), nil
}

func (a *asEmitter) slice(e ast.Expr) (string, error) {
	n := e.(*ast.Slice)
	base, err := a.expr(n.Base)
	if err != nil {
		return "", err
	}
	start, err := a.expr(n.Start)
	if err != nil {
		return "", err
	}
	end, err := a.expr(n.End)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).slice(%s, %s)", base, start, end), nil
}

func (a *asEmitter) rangeExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Range)
	from, err := a.expr(n.From)
	if err != nil {
		return "", err
	}
	to, err := a.expr(n.To)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Value.fromRange(%s, %s, %t)", from, to, n.Inclusive), nil
}

func (a *asEmitter) mapLiteral(e ast.Expr) (string, error) {
	n := e.(*ast.Map)
	parts := make([]string, 0, len(n.Items)*2)
	for _, item := range n.Items {
		key, err := a.expr(item.Key)
		if err != nil {
			return "", err
		}
		value, err := a.expr(item.Value)
		if err != nil {
			return "", err
		}
		parts = append(parts, key, value)
	}
	return "mapOf([" + strings.Join(parts, ", ") + "])", nil
}

func (a *asEmitter) get(e ast.Expr) (string, error) {
	n := e.(*ast.Get)
	base, err := a.expr(n.Base)
	if err != nil {
		return "", err
	}
	key, err := a.expr(n.Key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).asMap().get(%s)", base, key), nil
}

func (a *asEmitter) getDefault(e ast.Expr) (string, error) {
	n := e.(*ast.GetDefault)
	base, err := a.expr(n.Base)
	if err != nil {
		return "", err
	}
	key, err := a.expr(n.Key)
	if err != nil {
		return "", err
	}
	def, err := a.expr(n.Default)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).asMap().getDefault(%s, %s)", base, key, def), nil
}

func (a *asEmitter) record(e ast.Expr) (string, error) {
	n := e.(*ast.Record)
	names := make([]string, len(n.Fields))
	values := make([]string, len(n.Fields))
	for i, field := range n.Fields {
		value, err := a.expr(field.Value)
		if err != nil {
			return "", err
		}
		names[i] = asString(field.Name)
		values[i] = value
	}
	return fmt.Sprintf("recordOf([%s], [%s])", strings.Join(names, ", "), strings.Join(values, ", ")), nil
}

func (a *asEmitter) getField(e ast.Expr) (string, error) {
	n := e.(*ast.GetField)
	base, err := a.expr(n.Base)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("recordGet(%s, %s)", base, asString(n.Name)), nil
}

func (a *asEmitter) setHas(e ast.Expr) (string, error) {
	n := e.(*ast.SetHas)
	base, err := a.expr(n.Base)
	if err != nil {
		return "", err
	}
	value, err := a.expr(n.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Value.fromBool((%s).asSet().has(%s))", base, value), nil
}

func (a *asEmitter) call2(fn string, x, y ast.Expr) (string, error) {
	first, err := a.expr(x)
	if err != nil {
		return "", err
	}
	second, err := a.expr(y)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s)", fn, first, second), nil
}

func (a *asEmitter) call3(fn string, x, y, z ast.Expr) (string, error) {
	first, err := a.expr(x)
	if err != nil {
		return "", err
	}
	second, err := a.expr(y)
	if err != nil {
		return "", err
	}
	third, err := a.expr(z)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s, %s)", fn, first, second, third), nil
}

func (a *asEmitter) substringExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Substring)
	return a.call3("substring", n.Base, n.Start, n.End)
}

func (a *asEmitter) charAtExpr(e ast.Expr) (string, error) {
	n := e.(*ast.CharAt)
	return a.call2("charAt", n.Base, n.Index)
}

func (a *asEmitter) joinExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Join)
	return a.call2("join", n.Sep, n.Items)
}

func (a *asEmitter) stringSplit(e ast.Expr) (string, error) {
	n := e.(*ast.StringSplit)
	return a.call2("stringSplit", n.Base, n.Delimiter)
}

func (a *asEmitter) stringStartsWith(e ast.Expr) (string, error) {
	n := e.(*ast.StringStartsWith)
	return a.call2("stringStartsWith", n.Base, n.Prefix)
}

func (a *asEmitter) stringEndsWith(e ast.Expr) (string, error) {
	n := e.(*ast.StringEndsWith)
	return a.call2("stringEndsWith", n.Base, n.Suffix)
}

func (a *asEmitter) stringContains(e ast.Expr) (string, error) {
	n := e.(*ast.StringContains)
	return a.call2("stringContains", n.Base, n.Substring)
}

func (a *asEmitter) stringReplace(e ast.Expr) (string, error) {
	n := e.(*ast.StringReplace)
	return a.call3("stringReplace", n.Base, n.Old, n.New)
}

var asMathOps = map[string]string{
	"sin":   "mathSin",
	"cos":   "mathCos",
	"tan":   "mathTan",
	"sqrt":  "mathSqrt",
	"floor": "mathFloor",
	"ceil":  "mathCeil",
	"abs":   "mathAbs",
	"log":   "mathLog",
	"exp":   "mathExp",
}

func (a *asEmitter) math(e ast.Expr) (string, error) {
	n := e.(*ast.Math)
	fn, ok := asMathOps[n.Op]
	if !ok {
		return "", fmt.Errorf("assemblyscript: math op '%s'", n.Op)
	}
	arg, err := a.expr(n.Arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", fn, arg), nil
}

func (a *asEmitter) mathPow(e ast.Expr) (string, error) {
	n := e.(*ast.MathPow)
	return a.call2("mathPow", n.Base, n.Exponent)
}

func (a *asEmitter) mathConst(e ast.Expr) (string, error) {
	switch e.(*ast.MathConst).Name {
	case "pi":
		return "mathPi()", nil
	case "e":
		return "mathE()", nil
	}
	return "", fmt.Errorf("assemblyscript: math constant '%s'", e.(*ast.MathConst).Name)
}

func (a *asEmitter) jsonStringify(e ast.Expr) (string, error) {
	n := e.(*ast.JsonStringify)
	value, err := a.expr(n.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("jsonStringify(%s, %t)", value, n.Pretty), nil
}

func (a *asEmitter) regexMatch(e ast.Expr) (string, error) {
	n := e.(*ast.RegexMatch)
	s, err := a.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := a.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("regexMatch(%s, %s, %s)", s, pattern, asString(n.Flags)), nil
}

func (a *asEmitter) regexFindAll(e ast.Expr) (string, error) {
	n := e.(*ast.RegexFindAll)
	s, err := a.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := a.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("regexFindAll(%s, %s, %s)", s, pattern, asString(n.Flags)), nil
}

func (a *asEmitter) regexReplace(e ast.Expr) (string, error) {
	n := e.(*ast.RegexReplace)
	s, err := a.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := a.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	repl, err := a.expr(n.Replacement)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("regexReplace(%s, %s, %s, %s)", s, pattern, repl, asString(n.Flags)), nil
}

func (a *asEmitter) regexSplit(e ast.Expr) (string, error) {
	n := e.(*ast.RegexSplit)
	s, err := a.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := a.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("regexSplit(%s, %s, %s, %d)", s, pattern, asString(n.Flags), n.MaxSplit), nil
}

func (a *asEmitter) externalCall(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "assemblyscript", NodeType: "ExternalCall", Category: CategoryExternal}
}

func (a *asEmitter) methodCall(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "assemblyscript", NodeType: "MethodCall", Category: CategoryMethod}
}

func (a *asEmitter) propertyGet(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "assemblyscript", NodeType: "PropertyGet", Category: CategoryProperty}
}

func (a *asEmitter) callString(name string, args []ast.Expr, exprPos bool) (string, error) {
	list, err := a.exprList(args)
	if err != nil {
		return "", err
	}
	switch name {
	case "print":
		if exprPos {
			return "printExpr([" + list + "])", nil
		}
		return "print([" + list + "])", nil
	case "input":
		return "inputLine([" + list + "])", nil
	case "get_or_default":
		if len(args) == 3 {
			return a.call3forMap(args)
		}
	case "entries":
		return "mapEntries(" + list + ")", nil
	case "append":
		return "appendValue(" + list + ")", nil
	}
	return asFunc(name) + "(" + list + ")", nil
}

func (a *asEmitter) call3forMap(args []ast.Expr) (string, error) {
	base, err := a.expr(args[0])
	if err != nil {
		return "", err
	}
	key, err := a.expr(args[1])
	if err != nil {
		return "", err
	}
	def, err := a.expr(args[2])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s).asMap().getDefault(%s, %s)", base, key, def), nil
}

func (a *asEmitter) callExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Call)
	return a.callString(n.Name, n.Args, true)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (a *asEmitter) assign(s ast.Stmt) error {
	var name string
	var valueExpr ast.Expr
	switch n := s.(type) {
	case *ast.Let:
		name, valueExpr = n.Name, n.Value
	case *ast.Assign:
		name, valueExpr = n.Name, n.Value
	}
	value, err := a.expr(valueExpr)
	if err != nil {
		return err
	}
	a.w.line(asVar(name) + " = " + value + ";")
	return nil
}

func (a *asEmitter) ifStmt(s ast.Stmt) error {
	n := s.(*ast.If)
	test, err := a.expr(n.Test)
	if err != nil {
		return err
	}
	a.w.line("if ((" + test + ").isTruthy()) {")
	if err := a.block(n.Then); err != nil {
		return err
	}
	if len(n.Else) > 0 {
		a.w.line("} else {")
		if err := a.block(n.Else); err != nil {
			return err
		}
	}
	a.w.line("}")
	return nil
}

func (a *asEmitter) whileStmt(s ast.Stmt) error {
	n := s.(*ast.While)
	test, err := a.expr(n.Test)
	if err != nil {
		return err
	}
	a.w.line("while ((" + test + ").isTruthy()) {")
	a.frame().loopDepth++
	err = a.block(n.Body)
	a.frame().loopDepth--
	if err != nil {
		return err
	}
	a.w.line("}")
	return nil
}

func (a *asEmitter) forStmt(s ast.Stmt) error {
	var varName string
	var iter ast.Expr
	var body []ast.Stmt
	switch n := s.(type) {
	case *ast.For:
		varName, iter, body = n.Var, n.Iter, n.Body
	case *ast.ForEach:
		varName, iter, body = n.Var, n.Iter, n.Body
	}
	source, err := a.expr(iter)
	if err != nil {
		return err
	}
	seq := fmt.Sprintf("_seq%d", a.iterSeq)
	idx := fmt.Sprintf("_i%d", a.iterSeq)
	a.iterSeq++
	a.w.line("{")
	a.w.in()
	a.w.line(fmt.Sprintf("const %s: Array<Value> = iterItems(%s);", seq, source))
	a.w.line(fmt.Sprintf("for (let %s = 0; %s < %s.length; %s++) {", idx, idx, seq, idx))
	a.w.in()
	a.w.line(fmt.Sprintf("%s = %s[%s];", asVar(varName), seq, idx))
	a.w.out()
	a.frame().loopDepth++
	err = a.block(body)
	a.frame().loopDepth--
	if err != nil {
		return err
	}
	a.w.line("}")
	a.w.out()
	a.w.line("}")
	return nil
}

func (a *asEmitter) switchStmt(s ast.Stmt) error {
	n := s.(*ast.Switch)
	test, err := a.expr(n.Test)
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("_sw%d", a.switchSeq)
	a.switchSeq++
	a.w.line("{")
	a.w.in()
	a.w.line("const " + tmp + ": Value = " + test + ";")
	if len(n.Cases) == 0 {
		if err := a.stmtList(n.Default); err != nil {
			return err
		}
		a.w.out()
		a.w.line("}")
		return nil
	}
	for i, cs := range n.Cases {
		value, err := a.expr(cs.Value)
		if err != nil {
			return err
		}
		keyword := "if"
		if i > 0 {
			keyword = "} else if"
		}
		a.w.line(fmt.Sprintf("%s ((%s).eq(%s).isTruthy()) {", keyword, tmp, value))
		if err := a.block(cs.Body); err != nil {
			return err
		}
	}
	if n.Default != nil {
		a.w.line("} else {")
		if err := a.block(n.Default); err != nil {
			return err
		}
	}
	a.w.line("}")
	a.w.out()
	a.w.line("}")
	return nil
}

func (a *asEmitter) breakStmt(ast.Stmt) error {
	if a.frame().loopDepth > 0 {
		a.w.line("break;")
	} else {
		a.w.line(`throw new Error("break outside loop");`)
	}
	return nil
}

func (a *asEmitter) continueStmt(ast.Stmt) error {
	if a.frame().loopDepth > 0 {
		a.w.line("continue;")
	} else {
		a.w.line(`throw new Error("continue outside loop");`)
	}
	return nil
}

func (a *asEmitter) returnStmt(s ast.Stmt) error {
	n := s.(*ast.Return)
	if a.frame().inFunc {
		value := "Value.null_()"
		if n.Value != nil {
			v, err := a.expr(n.Value)
			if err != nil {
				return err
			}
			value = v
		}
		a.w.line("return " + value + ";")
		return nil
	}
	// Top level: evaluate for effect, then leave run().
	if n.Value != nil {
		v, err := a.expr(n.Value)
		if err != nil {
			return err
		}
		a.w.line(v + ";")
	}
	a.w.line("return;")
	return nil
}

func (a *asEmitter) throwStmt(s ast.Stmt) error {
	message, err := a.expr(s.(*ast.Throw).Message)
	if err != nil {
		return err
	}
	a.w.line("throw new Error(formatValue(" + message + "));")
	return nil
}

// tryCatch maps directly onto native exception handling; break,
// continue and return all cross a finally block natively.
func (a *asEmitter) tryCatch(s ast.Stmt) error {
	n := s.(*ast.TryCatch)
	exc := fmt.Sprintf("_e%d", a.trySeq)
	a.trySeq++

	a.w.line("try {")
	if err := a.block(n.Body); err != nil {
		return err
	}
	a.w.line(fmt.Sprintf("} catch (%s) {", exc))
	if n.CatchVar != "" {
		a.w.in()
		a.w.line(fmt.Sprintf(`%s = Value.fromString((%s instanceof Error) ? (%s as Error).message : "unknown error");`, asVar(n.CatchVar), exc, exc))
		a.w.out()
	}
	if err := a.block(n.CatchBody); err != nil {
		return err
	}
	if len(n.Finally) > 0 {
		a.w.line("} finally {")
		if err := a.block(n.Finally); err != nil {
			return err
		}
	}
	a.w.line("}")
	return nil
}

func (a *asEmitter) printStmt(s ast.Stmt) error {
	args, err := a.exprList(s.(*ast.Print).Args)
	if err != nil {
		return err
	}
	a.w.line("print([" + args + "]);")
	return nil
}

func (a *asEmitter) callStmt(s ast.Stmt) error {
	n := s.(*ast.Call)
	call, err := a.callString(n.Name, n.Args, false)
	if err != nil {
		return err
	}
	a.w.line(call + ";")
	return nil
}

func (a *asEmitter) mapPut(s ast.Stmt) error {
	n := s.(*ast.MapPut)
	base, err := a.expr(n.Base)
	if err != nil {
		return err
	}
	key, err := a.expr(n.Key)
	if err != nil {
		return err
	}
	value, err := a.expr(n.Value)
	if err != nil {
		return err
	}
	a.w.line(fmt.Sprintf("(%s).asMap().set(%s, %s);", base, key, value))
	return nil
}

func (a *asEmitter) setIndex(s ast.Stmt) error {
	n := s.(*ast.SetIndex)
	base, err := a.expr(n.Base)
	if err != nil {
		return err
	}
	idx, err := a.expr(n.Index)
	if err != nil {
		return err
	}
	value, err := a.expr(n.Value)
	if err != nil {
		return err
	}
	a.w.line(fmt.Sprintf("(%s).setIndex(%s, %s);", base, idx, value))
	return nil
}

func (a *asEmitter) setField(s ast.Stmt) error {
	n := s.(*ast.SetField)
	base, err := a.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := a.expr(n.Value)
	if err != nil {
		return err
	}
	a.w.line(fmt.Sprintf("recordSet(%s, %s, %s);", base, asString(n.Name), value))
	return nil
}

func (a *asEmitter) push(s ast.Stmt) error {
	n := s.(*ast.Push)
	base, err := a.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := a.expr(n.Value)
	if err != nil {
		return err
	}
	a.w.line(fmt.Sprintf("(%s).push(%s);", base, value))
	return nil
}

func (a *asEmitter) setAdd(s ast.Stmt) error {
	n := s.(*ast.SetAdd)
	base, err := a.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := a.expr(n.Value)
	if err != nil {
		return err
	}
	a.w.line(fmt.Sprintf("(%s).asSet().add(%s);", base, value))
	return nil
}

func (a *asEmitter) setRemove(s ast.Stmt) error {
	n := s.(*ast.SetRemove)
	base, err := a.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := a.expr(n.Value)
	if err != nil {
		return err
	}
	a.w.line(fmt.Sprintf("(%s).asSet().delete(%s);", base, value))
	return nil
}

func (a *asEmitter) pushBack(s ast.Stmt) error {
	n := s.(*ast.PushBack)
	base, err := a.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := a.expr(n.Value)
	if err != nil {
		return err
	}
	a.w.line(fmt.Sprintf("(%s).asDeque().pushBack(%s);", base, value))
	return nil
}

func (a *asEmitter) pushFront(s ast.Stmt) error {
	n := s.(*ast.PushFront)
	base, err := a.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := a.expr(n.Value)
	if err != nil {
		return err
	}
	a.w.line(fmt.Sprintf("(%s).asDeque().pushFront(%s);", base, value))
	return nil
}

func (a *asEmitter) popTarget(format string) stmtHandler {
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
		b, err := a.expr(base)
		if err != nil {
			return err
		}
		a.w.line(asVar(target) + " = " + fmt.Sprintf(format, b) + ";")
		return nil
	}
}

func (a *asEmitter) heapPush(s ast.Stmt) error {
	n := s.(*ast.HeapPush)
	base, err := a.expr(n.Base)
	if err != nil {
		return err
	}
	priority, err := a.expr(n.Priority)
	if err != nil {
		return err
	}
	value, err := a.expr(n.Value)
	if err != nil {
		return err
	}
	a.w.line(fmt.Sprintf("(%s).asHeap().push(%s, %s);", base, priority, value))
	return nil
}

func (a *asEmitter) funcDef(ast.Stmt) error {
	if len(a.frames) > 1 || a.frame().loopDepth > 0 {
		return fmt.Errorf("assemblyscript: function definitions must be at top level")
	}
	return nil
}

func (a *asEmitter) importStmt(ast.Stmt) error {
	return fmt.Errorf("assemblyscript: imports must be resolved before emission")
}
