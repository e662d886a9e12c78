package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

// rustEmitter produces a main.rs next to the single-file runtime module,
// compilable with a bare rustc. Top-level variables become thread-local
// cells since Rust has no safe mutable statics; function locals are
// hoisted `let mut` bindings. Try bodies compile to closures handed to
// rt_try, so control flow escaping them rides Signal panics exactly the
// way the Go backend does it.
type rustEmitter struct {
	w       *writer
	exprs   map[string]exprHandler
	stmts   map[string]stmtHandler
	globals map[string]bool

	frames []rustFrame

	iterSeq   int
	switchSeq int
	trySeq    int
}

type rustFrame struct {
	inTry     bool
	inFunc    bool
	loopDepth int
	locals    map[string]bool
}

func newRustBackend() (*Backend, error) {
	r := &rustEmitter{}
	r.exprs = map[string]exprHandler{
		"Literal":          r.literal,
		"Var":              r.variable,
		"Binary":           r.binary,
		"Not":              r.unaryFn("Not", "logical_not(%s)"),
		"Ternary":          r.ternary,
		"StringFormat":     r.stringFormat,
		"ToInt":            r.unaryFn("ToInt", "to_int_value(%s)"),
		"ToFloat":          r.unaryFn("ToFloat", "to_float_value(%s)"),
		"ToString":         r.unaryFn("ToString", "to_string_value(%s)"),
		"Array":            r.array,
		"Tuple":            r.tuple,
		"Set":              r.setLiteral,
		"Index":            r.index,
		"Slice":            r.slice,
		"Length":           r.unaryFn("Length", "value_length(%s)"),
		"Range":            r.rangeExpr,
		"Map":              r.mapLiteral,
		"Get":              r.get,
		"GetDefault":       r.getDefault,
		"Keys":             r.unaryFn("Keys", "map_keys(%s)"),
		"Record":           r.record,
		"GetField":         r.getField,
		"SetHas":           r.setHas,
		"SetSize":          r.unaryFn("SetSize", "value_length(%s)"),
		"DequeNew":         r.nullaryFn("deque_new()"),
		"DequeSize":        r.unaryFn("DequeSize", "value_length(%s)"),
		"HeapNew":          r.nullaryFn("heap_new()"),
		"HeapPeek":         r.unaryFn("HeapPeek", "heap_peek(%s)"),
		"HeapSize":         r.unaryFn("HeapSize", "value_length(%s)"),
		"StringLength":     r.unaryFn("StringLength", "value_length(%s)"),
		"StringTrim":       r.unaryFn("StringTrim", "string_trim(%s)"),
		"StringUpper":      r.unaryFn("StringUpper", "string_upper(%s)"),
		"StringLower":      r.unaryFn("StringLower", "string_lower(%s)"),
		"Substring":        r.substring,
		"CharAt":           r.charAt,
		"Join":             r.join,
		"StringSplit":      r.stringSplit,
		"StringStartsWith": r.stringStartsWith,
		"StringEndsWith":   r.stringEndsWith,
		"StringContains":   r.stringContains,
		"StringReplace":    r.stringReplace,
		"Math":             r.math,
		"MathPow":          r.mathPow,
		"MathConst":        r.mathConst,
		"JsonParse":        r.unaryFn("JsonParse", "json_parse_val(%s)"),
		"JsonStringify":    r.jsonStringify,
		"RegexMatch":       r.regexMatch,
		"RegexFindAll":     r.regexFindAll,
		"RegexReplace":     r.regexReplace,
		"RegexSplit":       r.regexSplit,
		"ExternalCall":     r.externalCall,
		"MethodCall":       r.methodCall,
		"PropertyGet":      r.propertyGet,
		"Call":             r.callExpr,
	}
	r.stmts = map[string]stmtHandler{
		"Let":       r.assignStmt,
		"Assign":    r.assignStmt,
		"If":        r.ifStmt,
		"While":     r.whileStmt,
		"For":       r.forStmt,
		"ForEach":   r.forStmt,
		"Switch":    r.switchStmt,
		"Break":     r.breakStmt,
		"Continue":  r.continueStmt,
		"Return":    r.returnStmt,
		"Throw":     r.throwStmt,
		"TryCatch":  r.tryCatch,
		"Print":     r.printStmt,
		"Call":      r.callStmt,
		"Set":       r.mapPut,
		"SetIndex":  r.setIndex,
		"SetField":  r.setField,
		"Push":      r.push,
		"SetAdd":    r.setAdd,
		"SetRemove": r.setRemove,
		"PushBack":  r.pushBack,
		"PushFront": r.pushFront,
		"PopFront":  r.popTarget("deque_pop_front"),
		"PopBack":   r.popTarget("deque_pop_back"),
		"HeapPush":  r.heapPush,
		"HeapPop":   r.popTarget("heap_pop"),
		"FuncDef":   r.funcDef,
		"Import":    r.importStmt,
	}
	return &Backend{
		name:  "rust",
		ext:   ".rs",
		emit:  r.emitDoc,
		exprs: func() map[string]exprHandler { return r.exprs },
		stmts: func() map[string]stmtHandler { return r.stmts },
	}, nil
}

func rustLocal(name string) string  { return "v_" + name }
func rustGlobal(name string) string { return "G_" + name }
func rustFunc(name string) string   { return "f_" + name }

func (r *rustEmitter) frame() *rustFrame { return &r.frames[len(r.frames)-1] }

// isLocal reports whether a name binds to a `let mut` in the current
// function rather than a thread-local global cell.
func (r *rustEmitter) isLocal(name string) bool {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].locals != nil {
			return r.frames[i].locals[name]
		}
	}
	return false
}

func (r *rustEmitter) varRead(name string) string {
	if r.isLocal(name) {
		return rustLocal(name) + ".clone()"
	}
	return rustGlobal(name) + ".with(|c| c.borrow().clone())"
}

// writeAssign emits `name = code`. Globals evaluate the value into a
// temporary first so the expression may itself read the same cell.
func (r *rustEmitter) writeAssign(name, code string) {
	if r.isLocal(name) {
		r.w.line(rustLocal(name) + " = " + code + ";")
		return
	}
	r.w.line(fmt.Sprintf("{ let _t = %s; %s.with(|c| *c.borrow_mut() = _t); }", code, rustGlobal(name)))
}

func (r *rustEmitter) emitDoc(doc *ast.Document) (*Output, error) {
	r.w = newWriter("    ")
	r.frames = []rustFrame{{}}
	r.iterSeq, r.switchSeq, r.trySeq = 0, 0, 0

	r.globals = map[string]bool{}
	globals := collectAssigned(doc.Body)
	for _, name := range globals {
		r.globals[name] = true
	}

	r.w.line("// Code generated by coreil emit; do not edit.")
	r.w.blank()
	r.w.line("#![allow(non_upper_case_globals, unused_mut, unused_variables, unused_parens, unreachable_code, dead_code)]")
	r.w.blank()
	r.w.line("mod coreil_runtime;")
	r.w.blank()
	r.w.line("use std::cell::RefCell;")
	r.w.line("use coreil_runtime::*;")
	r.w.blank()

	if len(globals) > 0 {
		r.w.line("thread_local! {")
		r.w.in()
		for _, name := range globals {
			r.w.line(fmt.Sprintf("static %s: RefCell<Value> = RefCell::new(Value::None);", rustGlobal(name)))
		}
		r.w.out()
		r.w.line("}")
		r.w.blank()
	}

	for index, stmt := range doc.Body {
		fn, ok := stmt.(*ast.FuncDef)
		if !ok {
			continue
		}
		r.w.beginStmt(index)
		if err := r.emitFunc(fn); err != nil {
			return nil, err
		}
		r.w.endBody()
		r.w.blank()
	}

	r.w.line("fn run() {")
	r.w.in()
	for index, stmt := range doc.Body {
		if _, ok := stmt.(*ast.FuncDef); ok {
			continue
		}
		r.w.beginStmt(index)
		if err := r.stmt(stmt); err != nil {
			return nil, err
		}
	}
	r.w.endBody()
	r.w.out()
	r.w.line("}")
	r.w.blank()

	r.w.line("fn main() {")
	r.w.in()
	r.w.line("rt_main(run);")
	r.w.out()
	r.w.line("}")

	return &Output{
		Filename: "main.rs",
		Source:   r.w.source(),
		Support:  map[string][]byte{"coreil_runtime.rs": supportRustRuntime},
		LineMap:  r.w.lineMap,
	}, nil
}

func (r *rustEmitter) emitFunc(fn *ast.FuncDef) error {
	params := make([]string, len(fn.Params))
	locals := map[string]bool{}
	for i, p := range fn.Params {
		params[i] = "mut " + rustLocal(p) + ": Value"
		locals[p] = true
	}
	r.w.line(fmt.Sprintf("fn %s(%s) -> Value {", rustFunc(fn.Name), strings.Join(params, ", ")))
	r.w.in()
	for _, name := range collectAssigned(fn.Body) {
		if locals[name] {
			continue
		}
		locals[name] = true
		r.w.line("let mut " + rustLocal(name) + ": Value = Value::None;")
	}

	r.frames = append(r.frames, rustFrame{inFunc: true, locals: locals})
	err := r.stmtList(fn.Body)
	r.frames = r.frames[:len(r.frames)-1]
	if err != nil {
		return err
	}
	r.w.line("Value::None")
	r.w.out()
	r.w.line("}")
	return nil
}

func (r *rustEmitter) expr(e ast.Expr) (string, error) {
	h, ok := r.exprs[e.TypeName()]
	if !ok {
		return "", fmt.Errorf("rust: unknown expression type '%s'", e.TypeName())
	}
	return h(e)
}

func (r *rustEmitter) stmt(s ast.Stmt) error {
	h, ok := r.stmts[s.TypeName()]
	if !ok {
		return fmt.Errorf("rust: unknown statement type '%s'", s.TypeName())
	}
	return h(s)
}

func (r *rustEmitter) stmtList(body []ast.Stmt) error {
	for _, s := range body {
		if err := r.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *rustEmitter) block(body []ast.Stmt) error {
	r.w.in()
	err := r.stmtList(body)
	r.w.out()
	return err
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (r *rustEmitter) unaryFn(typeName, format string) exprHandler {
	return func(e ast.Expr) (string, error) {
		inner, err := singleChild(e, typeName)
		if err != nil {
			return "", err
		}
		s, err := r.expr(inner)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(format, s), nil
	}
}

func (r *rustEmitter) nullaryFn(code string) exprHandler {
	return func(ast.Expr) (string, error) { return code, nil }
}

func rustString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, ch := range s {
		switch ch {
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
			if ch < 0x20 || ch == 0x7f {
				b.WriteString(fmt.Sprintf(`\u{%x}`, ch))
			} else {
				b.WriteRune(ch)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (r *rustEmitter) literal(e ast.Expr) (string, error) {
	switch v := e.(*ast.Literal).Value.(type) {
	case nil:
		return "Value::None", nil
	case bool:
		return fmt.Sprintf("val_bool(%t)", v), nil
	case int64:
		return fmt.Sprintf("val_int(%d)", v), nil
	case float64:
		return "val_float(" + strconv.FormatFloat(v, 'g', -1, 64) + "_f64)", nil
	case string:
		return "val_str(" + rustString(v) + ")", nil
	default:
		return "", fmt.Errorf("rust: literal value %T", v)
	}
}

func (r *rustEmitter) variable(e ast.Expr) (string, error) {
	return r.varRead(e.(*ast.Var).Name), nil
}

var rustBinaryOps = map[string]string{
	"+":  "op_add",
	"-":  "op_subtract",
	"*":  "op_multiply",
	"/":  "op_divide",
	"//": "op_floor_divide",
	"%":  "op_modulo",
	"==": "op_equal",
	"!=": "op_not_equal",
	"<":  "op_less_than",
	"<=": "op_less_than_or_equal",
	">":  "op_greater_than",
	">=": "op_greater_than_or_equal",
}

func (r *rustEmitter) binary(e ast.Expr) (string, error) {
	n := e.(*ast.Binary)
	left, err := r.expr(n.Left)
	if err != nil {
		return "", err
	}
	right, err := r.expr(n.Right)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "and":
		return fmt.Sprintf("val_bool(is_truthy(%s) && is_truthy(%s))", left, right), nil
	case "or":
		return fmt.Sprintf("val_bool(is_truthy(%s) || is_truthy(%s))", left, right), nil
	}
	fn, ok := rustBinaryOps[n.Op]
	if !ok {
		return "", fmt.Errorf("rust: binary operator '%s'", n.Op)
	}
	return fmt.Sprintf("%s(%s, %s)", fn, left, right), nil
}

func (r *rustEmitter) ternary(e ast.Expr) (string, error) {
	n := e.(*ast.Ternary)
	test, err := r.expr(n.Test)
	if err != nil {
		return "", err
	}
	cons, err := r.expr(n.Consequent)
	if err != nil {
		return "", err
	}
	alt, err := r.expr(n.Alternate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(if is_truthy(%s) { %s } else { %s })", test, cons, alt), nil
}

func (r *rustEmitter) stringFormat(e ast.Expr) (string, error) {
	n := e.(*ast.StringFormat)
	if len(n.Parts) == 0 {
		return `val_str("")`, nil
	}
	parts := make([]string, len(n.Parts))
	for i, part := range n.Parts {
		s, err := r.expr(part)
		if err != nil {
			return "", err
		}
		code := "format_value(" + s + ")"
		if i > 0 {
			code = "&" + code
		}
		parts[i] = code
	}
	return "val_string(" + strings.Join(parts, " + ") + ")", nil
}

func (r *rustEmitter) exprList(items []ast.Expr) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := r.expr(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func (r *rustEmitter) array(e ast.Expr) (string, error) {
	items, err := r.exprList(e.(*ast.Array).Items)
	if err != nil {
		return "", err
	}
	return "make_array(vec![" + items + "])", nil
}

func (r *rustEmitter) tuple(e ast.Expr) (string, error) {
	items, err := r.exprList(e.(*ast.Tuple).Items)
	if err != nil {
		return "", err
	}
	return "make_tuple(vec![" + items + "])", nil
}

func (r *rustEmitter) setLiteral(e ast.Expr) (string, error) {
	items, err := r.exprList(e.(*ast.SetLiteral).Items)
	if err != nil {
		return "", err
	}
	return "make_set(vec![" + items + "])", nil
}

func (r *rustEmitter) call2(fn string, a, b ast.Expr) (string, error) {
	left, err := r.expr(a)
	if err != nil {
		return "", err
	}
	right, err := r.expr(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s)", fn, left, right), nil
}

func (r *rustEmitter) call3(fn string, a, b, c ast.Expr) (string, error) {
	first, err := r.expr(a)
	if err != nil {
		return "", err
	}
	second, err := r.expr(b)
	if err != nil {
		return "", err
	}
	third, err := r.expr(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s, %s)", fn, first, second, third), nil
}

func (r *rustEmitter) index(e ast.Expr) (string, error) {
	n := e.(*ast.Index)
	return r.call2("array_index", n.Base, n.Index)
}

func (r *rustEmitter) slice(e ast.Expr) (string, error) {
	n := e.(*ast.Slice)
	return r.call3("array_slice", n.Base, n.Start, n.End)
}

func (r *rustEmitter) rangeExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Range)
	from, err := r.expr(n.From)
	if err != nil {
		return "", err
	}
	to, err := r.expr(n.To)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("make_range(%s, %s, %t)", from, to, n.Inclusive), nil
}

func (r *rustEmitter) mapLiteral(e ast.Expr) (string, error) {
	n := e.(*ast.Map)
	parts := make([]string, len(n.Items))
	for i, item := range n.Items {
		key, err := r.expr(item.Key)
		if err != nil {
			return "", err
		}
		value, err := r.expr(item.Value)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + key + ", " + value + ")"
	}
	return "make_map(vec![" + strings.Join(parts, ", ") + "])", nil
}

func (r *rustEmitter) get(e ast.Expr) (string, error) {
	n := e.(*ast.Get)
	return r.call2("map_get", n.Base, n.Key)
}

func (r *rustEmitter) getDefault(e ast.Expr) (string, error) {
	n := e.(*ast.GetDefault)
	return r.call3("map_get_default", n.Base, n.Key, n.Default)
}

func (r *rustEmitter) record(e ast.Expr) (string, error) {
	n := e.(*ast.Record)
	parts := make([]string, len(n.Fields))
	for i, field := range n.Fields {
		value, err := r.expr(field.Value)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + rustString(field.Name) + ", " + value + ")"
	}
	return "make_record(vec![" + strings.Join(parts, ", ") + "])", nil
}

func (r *rustEmitter) getField(e ast.Expr) (string, error) {
	n := e.(*ast.GetField)
	base, err := r.expr(n.Base)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("get_field(%s, %s)", base, rustString(n.Name)), nil
}

func (r *rustEmitter) setHas(e ast.Expr) (string, error) {
	n := e.(*ast.SetHas)
	return r.call2("set_has", n.Base, n.Value)
}

func (r *rustEmitter) substring(e ast.Expr) (string, error) {
	n := e.(*ast.Substring)
	return r.call3("string_substring", n.Base, n.Start, n.End)
}

func (r *rustEmitter) charAt(e ast.Expr) (string, error) {
	n := e.(*ast.CharAt)
	return r.call2("string_char_at", n.Base, n.Index)
}

func (r *rustEmitter) join(e ast.Expr) (string, error) {
	n := e.(*ast.Join)
	return r.call2("string_join", n.Sep, n.Items)
}

func (r *rustEmitter) stringSplit(e ast.Expr) (string, error) {
	n := e.(*ast.StringSplit)
	return r.call2("string_split", n.Base, n.Delimiter)
}

func (r *rustEmitter) stringStartsWith(e ast.Expr) (string, error) {
	n := e.(*ast.StringStartsWith)
	return r.call2("string_starts_with", n.Base, n.Prefix)
}

func (r *rustEmitter) stringEndsWith(e ast.Expr) (string, error) {
	n := e.(*ast.StringEndsWith)
	return r.call2("string_ends_with", n.Base, n.Suffix)
}

func (r *rustEmitter) stringContains(e ast.Expr) (string, error) {
	n := e.(*ast.StringContains)
	return r.call2("string_contains", n.Base, n.Substring)
}

func (r *rustEmitter) stringReplace(e ast.Expr) (string, error) {
	n := e.(*ast.StringReplace)
	return r.call3("string_replace", n.Base, n.Old, n.New)
}

var rustMathOps = map[string]string{
	"sin":   "math_sin",
	"cos":   "math_cos",
	"tan":   "math_tan",
	"sqrt":  "math_sqrt",
	"floor": "math_floor",
	"ceil":  "math_ceil",
	"abs":   "math_abs",
	"log":   "math_log",
	"exp":   "math_exp",
}

func (r *rustEmitter) math(e ast.Expr) (string, error) {
	n := e.(*ast.Math)
	fn, ok := rustMathOps[n.Op]
	if !ok {
		return "", fmt.Errorf("rust: math op '%s'", n.Op)
	}
	arg, err := r.expr(n.Arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", fn, arg), nil
}

func (r *rustEmitter) mathPow(e ast.Expr) (string, error) {
	n := e.(*ast.MathPow)
	return r.call2("math_pow", n.Base, n.Exponent)
}

func (r *rustEmitter) mathConst(e ast.Expr) (string, error) {
	switch e.(*ast.MathConst).Name {
	case "pi":
		return "math_pi()", nil
	case "e":
		return "math_e()", nil
	}
	return "", fmt.Errorf("rust: math constant '%s'", e.(*ast.MathConst).Name)
}

func (r *rustEmitter) jsonStringify(e ast.Expr) (string, error) {
	n := e.(*ast.JsonStringify)
	value, err := r.expr(n.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("json_stringify_val(%s, %t)", value, n.Pretty), nil
}

func (r *rustEmitter) regexMatch(e ast.Expr) (string, error) {
	n := e.(*ast.RegexMatch)
	s, err := r.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := r.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("regex_match_val(%s, %s, %s)", s, pattern, rustString(n.Flags)), nil
}

func (r *rustEmitter) regexFindAll(e ast.Expr) (string, error) {
	n := e.(*ast.RegexFindAll)
	s, err := r.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := r.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("regex_find_all_val(%s, %s, %s)", s, pattern, rustString(n.Flags)), nil
}

func (r *rustEmitter) regexReplace(e ast.Expr) (string, error) {
	n := e.(*ast.RegexReplace)
	s, err := r.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := r.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	repl, err := r.expr(n.Replacement)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("regex_replace_val(%s, %s, %s, %s)", s, pattern, repl, rustString(n.Flags)), nil
}

func (r *rustEmitter) regexSplit(e ast.Expr) (string, error) {
	n := e.(*ast.RegexSplit)
	s, err := r.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := r.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("regex_split_val(%s, %s, %s, %d)", s, pattern, rustString(n.Flags), n.MaxSplit), nil
}

func (r *rustEmitter) externalCall(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "rust", NodeType: "ExternalCall", Category: CategoryExternal}
}

func (r *rustEmitter) methodCall(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "rust", NodeType: "MethodCall", Category: CategoryMethod}
}

func (r *rustEmitter) propertyGet(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "rust", NodeType: "PropertyGet", Category: CategoryProperty}
}

func (r *rustEmitter) callString(name string, args []ast.Expr, exprPos bool) (string, error) {
	list, err := r.exprList(args)
	if err != nil {
		return "", err
	}
	switch name {
	case "print":
		if exprPos {
			return "coreil_print_expr(&[" + list + "])", nil
		}
		return "coreil_print(&[" + list + "])", nil
	case "input":
		return "coreil_input(&[" + list + "])", nil
	case "get_or_default":
		return "get_or_default(" + list + ")", nil
	case "entries":
		return "map_entries(" + list + ")", nil
	case "append":
		return "coreil_append(" + list + ")", nil
	}
	return rustFunc(name) + "(" + list + ")", nil
}

func (r *rustEmitter) callExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Call)
	return r.callString(n.Name, n.Args, true)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (r *rustEmitter) assignStmt(s ast.Stmt) error {
	var name string
	var valueExpr ast.Expr
	switch n := s.(type) {
	case *ast.Let:
		name, valueExpr = n.Name, n.Value
	case *ast.Assign:
		name, valueExpr = n.Name, n.Value
	}
	value, err := r.expr(valueExpr)
	if err != nil {
		return err
	}
	r.writeAssign(name, value)
	return nil
}

func (r *rustEmitter) ifStmt(s ast.Stmt) error {
	n := s.(*ast.If)
	test, err := r.expr(n.Test)
	if err != nil {
		return err
	}
	r.w.line("if is_truthy(" + test + ") {")
	if err := r.block(n.Then); err != nil {
		return err
	}
	if len(n.Else) > 0 {
		r.w.line("} else {")
		if err := r.block(n.Else); err != nil {
			return err
		}
	}
	r.w.line("}")
	return nil
}

func (r *rustEmitter) whileStmt(s ast.Stmt) error {
	n := s.(*ast.While)
	test, err := r.expr(n.Test)
	if err != nil {
		return err
	}
	r.w.line("while is_truthy(" + test + ") {")
	r.frame().loopDepth++
	err = r.block(n.Body)
	r.frame().loopDepth--
	if err != nil {
		return err
	}
	r.w.line("}")
	return nil
}

// forStmt advances the index before the body, so a `continue` lands on
// the bounds check rather than skipping the increment.
func (r *rustEmitter) forStmt(s ast.Stmt) error {
	var varName string
	var iter ast.Expr
	var body []ast.Stmt
	switch n := s.(type) {
	case *ast.For:
		varName, iter, body = n.Var, n.Iter, n.Body
	case *ast.ForEach:
		varName, iter, body = n.Var, n.Iter, n.Body
	}
	source, err := r.expr(iter)
	if err != nil {
		return err
	}
	seq := fmt.Sprintf("_seq%d", r.iterSeq)
	idx := fmt.Sprintf("_i%d", r.iterSeq)
	r.iterSeq++
	r.w.line("{")
	r.w.in()
	r.w.line(fmt.Sprintf("let %s = rt_iter(%s);", seq, source))
	r.w.line(fmt.Sprintf("let mut %s: usize = 0;", idx))
	r.w.line("loop {")
	r.w.in()
	r.w.line(fmt.Sprintf("if %s >= %s.size() { break; }", idx, seq))
	r.writeAssign(varName, fmt.Sprintf("%s.at(%s)", seq, idx))
	r.w.line(idx + " += 1;")
	r.w.out()
	r.frame().loopDepth++
	err = r.block(body)
	r.frame().loopDepth--
	if err != nil {
		return err
	}
	r.w.line("}")
	r.w.out()
	r.w.line("}")
	return nil
}

func (r *rustEmitter) switchStmt(s ast.Stmt) error {
	n := s.(*ast.Switch)
	test, err := r.expr(n.Test)
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("_sw%d", r.switchSeq)
	r.switchSeq++
	r.w.line("{")
	r.w.in()
	r.w.line("let " + tmp + " = " + test + ";")
	if len(n.Cases) == 0 {
		r.w.line("let _ = " + tmp + ";")
		if err := r.stmtList(n.Default); err != nil {
			return err
		}
		r.w.out()
		r.w.line("}")
		return nil
	}
	for i, c := range n.Cases {
		value, err := r.expr(c.Value)
		if err != nil {
			return err
		}
		keyword := "if"
		if i > 0 {
			keyword = "} else if"
		}
		r.w.line(fmt.Sprintf("%s values_equal(&%s, &%s) {", keyword, tmp, value))
		if err := r.block(c.Body); err != nil {
			return err
		}
	}
	if n.Default != nil {
		r.w.line("} else {")
		if err := r.block(n.Default); err != nil {
			return err
		}
	}
	r.w.line("}")
	r.w.out()
	r.w.line("}")
	return nil
}

func (r *rustEmitter) breakStmt(ast.Stmt) error {
	f := r.frame()
	if f.loopDepth > 0 {
		r.w.line("break;")
	} else {
		r.w.line("rt_break();")
	}
	return nil
}

func (r *rustEmitter) continueStmt(ast.Stmt) error {
	f := r.frame()
	if f.loopDepth > 0 {
		r.w.line("continue;")
	} else {
		r.w.line("rt_continue();")
	}
	return nil
}

func (r *rustEmitter) returnStmt(s ast.Stmt) error {
	n := s.(*ast.Return)
	f := r.frame()
	if f.inFunc || f.inTry {
		value := "Value::None"
		if n.Value != nil {
			v, err := r.expr(n.Value)
			if err != nil {
				return err
			}
			value = v
		}
		if f.inFunc {
			r.w.line("return " + value + ";")
		} else {
			r.w.line("rt_return(" + value + ");")
		}
		return nil
	}
	// Top level: evaluate for effect, then leave run().
	if n.Value != nil {
		v, err := r.expr(n.Value)
		if err != nil {
			return err
		}
		r.w.line("let _ = " + v + ";")
	}
	r.w.line("return;")
	return nil
}

func (r *rustEmitter) throwStmt(s ast.Stmt) error {
	message, err := r.expr(s.(*ast.Throw).Message)
	if err != nil {
		return err
	}
	r.w.line("rt_throw(format_value(" + message + "));")
	return nil
}

// tryCatch hands the body and catch arm to rt_try as closures, then
// re-raises whatever signal is still pending after the finally block,
// translated for the frame that can honor it.
func (r *rustEmitter) tryCatch(s ast.Stmt) error {
	n := s.(*ast.TryCatch)
	seq := r.trySeq
	r.trySeq++
	sig := fmt.Sprintf("_s%d", seq)

	emitClosure := func(body []ast.Stmt) error {
		r.frames = append(r.frames, rustFrame{inTry: true})
		err := r.block(body)
		r.frames = r.frames[:len(r.frames)-1]
		return err
	}

	r.w.line(fmt.Sprintf("let mut %s = rt_try(|| {", sig))
	if err := emitClosure(n.Body); err != nil {
		return err
	}
	r.w.line("});")
	r.w.line(fmt.Sprintf("if let Some(Signal::Throw(_m)) = &%s {", sig))
	r.w.in()
	if n.CatchVar != "" {
		r.writeAssign(n.CatchVar, "val_str(_m)")
	} else {
		r.w.line("let _ = _m;")
	}
	r.w.line(fmt.Sprintf("%s = rt_try(|| {", sig))
	r.w.out()
	if err := emitClosure(n.CatchBody); err != nil {
		return err
	}
	r.w.in()
	r.w.line("});")
	r.w.out()
	r.w.line("}")
	if err := r.stmtList(n.Finally); err != nil {
		return err
	}

	f := r.frame()
	r.w.line("match " + sig + " {")
	r.w.in()
	r.w.line("Some(Signal::Throw(m)) => rt_throw(m),")
	if f.loopDepth > 0 {
		r.w.line("Some(Signal::Break) => break,")
		r.w.line("Some(Signal::Continue) => continue,")
	} else if f.inTry {
		r.w.line("Some(Signal::Break) => rt_break(),")
		r.w.line("Some(Signal::Continue) => rt_continue(),")
	}
	if f.inFunc {
		r.w.line("Some(Signal::Return(v)) => return v,")
	} else if f.inTry {
		r.w.line("Some(Signal::Return(v)) => rt_return(v),")
	}
	r.w.line("_ => {}")
	r.w.out()
	r.w.line("}")
	return nil
}

func (r *rustEmitter) printStmt(s ast.Stmt) error {
	args, err := r.exprList(s.(*ast.Print).Args)
	if err != nil {
		return err
	}
	r.w.line("coreil_print(&[" + args + "]);")
	return nil
}

func (r *rustEmitter) callStmt(s ast.Stmt) error {
	n := s.(*ast.Call)
	call, err := r.callString(n.Name, n.Args, false)
	if err != nil {
		return err
	}
	if n.Name == "print" {
		r.w.line(call + ";")
		return nil
	}
	r.w.line("let _ = " + call + ";")
	return nil
}

func (r *rustEmitter) stmt2(fn string, a, b ast.Expr) error {
	code, err := r.call2(fn, a, b)
	if err != nil {
		return err
	}
	r.w.line(code + ";")
	return nil
}

func (r *rustEmitter) stmt3(fn string, a, b, c ast.Expr) error {
	code, err := r.call3(fn, a, b, c)
	if err != nil {
		return err
	}
	r.w.line(code + ";")
	return nil
}

func (r *rustEmitter) mapPut(s ast.Stmt) error {
	n := s.(*ast.MapPut)
	return r.stmt3("map_set", n.Base, n.Key, n.Value)
}

func (r *rustEmitter) setIndex(s ast.Stmt) error {
	n := s.(*ast.SetIndex)
	return r.stmt3("array_set_index", n.Base, n.Index, n.Value)
}

func (r *rustEmitter) setField(s ast.Stmt) error {
	n := s.(*ast.SetField)
	base, err := r.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := r.expr(n.Value)
	if err != nil {
		return err
	}
	r.w.line(fmt.Sprintf("set_field(%s, %s, %s);", base, rustString(n.Name), value))
	return nil
}

func (r *rustEmitter) push(s ast.Stmt) error {
	n := s.(*ast.Push)
	return r.stmt2("array_push", n.Base, n.Value)
}

func (r *rustEmitter) setAdd(s ast.Stmt) error {
	n := s.(*ast.SetAdd)
	return r.stmt2("set_add", n.Base, n.Value)
}

func (r *rustEmitter) setRemove(s ast.Stmt) error {
	n := s.(*ast.SetRemove)
	return r.stmt2("set_remove", n.Base, n.Value)
}

func (r *rustEmitter) pushBack(s ast.Stmt) error {
	n := s.(*ast.PushBack)
	return r.stmt2("deque_push_back", n.Base, n.Value)
}

func (r *rustEmitter) pushFront(s ast.Stmt) error {
	n := s.(*ast.PushFront)
	return r.stmt2("deque_push_front", n.Base, n.Value)
}

func (r *rustEmitter) popTarget(fn string) stmtHandler {
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
		b, err := r.expr(base)
		if err != nil {
			return err
		}
		r.writeAssign(target, fmt.Sprintf("%s(%s)", fn, b))
		return nil
	}
}

func (r *rustEmitter) heapPush(s ast.Stmt) error {
	n := s.(*ast.HeapPush)
	return r.stmt3("heap_push", n.Base, n.Priority, n.Value)
}

func (r *rustEmitter) funcDef(ast.Stmt) error {
	if len(r.frames) > 1 || r.frame().loopDepth > 0 {
		return fmt.Errorf("rust: function definitions must be at top level")
	}
	return nil
}

func (r *rustEmitter) importStmt(ast.Stmt) error {
	return fmt.Errorf("rust: imports must be resolved before emission")
}
