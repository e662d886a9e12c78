package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

// cppEmitter produces a single main.cpp next to the header-only runtime.
// C++ needs none of the signal machinery the Go backend carries: break,
// continue and return pass through try blocks natively, and a finally
// block rides an RAII guard whose destructor runs on every exit path.
type cppEmitter struct {
	w     *writer
	exprs map[string]exprHandler
	stmts map[string]stmtHandler

	frames []cppFrame

	iterSeq   int
	switchSeq int
	trySeq    int
}

type cppFrame struct {
	inFunc    bool
	loopDepth int
}

func newCppBackend() (*Backend, error) {
	c := &cppEmitter{}
	c.exprs = map[string]exprHandler{
		"Literal":          c.literal,
		"Var":              c.variable,
		"Binary":           c.binary,
		"Not":              c.unaryFn("Not", "coreil::logical_not(%s)"),
		"Ternary":          c.ternary,
		"StringFormat":     c.stringFormat,
		"ToInt":            c.unaryFn("ToInt", "coreil::to_int(%s)"),
		"ToFloat":          c.unaryFn("ToFloat", "coreil::to_float(%s)"),
		"ToString":         c.unaryFn("ToString", "coreil::to_string(%s)"),
		"Array":            c.array,
		"Tuple":            c.tuple,
		"Set":              c.setLiteral,
		"Index":            c.index,
		"Slice":            c.slice,
		"Length":           c.unaryFn("Length", "coreil::length(%s)"),
		"Range":            c.rangeExpr,
		"Map":              c.mapLiteral,
		"Get":              c.get,
		"GetDefault":       c.getDefault,
		"Keys":             c.unaryFn("Keys", "coreil::map_keys(%s)"),
		"Record":           c.record,
		"GetField":         c.getField,
		"SetHas":           c.setHas,
		"SetSize":          c.unaryFn("SetSize", "coreil::length(%s)"),
		"DequeNew":         c.nullaryFn("coreil::make_deque()"),
		"DequeSize":        c.unaryFn("DequeSize", "coreil::length(%s)"),
		"HeapNew":          c.nullaryFn("coreil::make_heap()"),
		"HeapPeek":         c.unaryFn("HeapPeek", "coreil::heap_peek(%s)"),
		"HeapSize":         c.unaryFn("HeapSize", "coreil::length(%s)"),
		"StringLength":     c.unaryFn("StringLength", "coreil::length(%s)"),
		"StringTrim":       c.unaryFn("StringTrim", "coreil::string_trim(%s)"),
		"StringUpper":      c.unaryFn("StringUpper", "coreil::string_upper(%s)"),
		"StringLower":      c.unaryFn("StringLower", "coreil::string_lower(%s)"),
		"Substring":        c.substring,
		"CharAt":           c.charAt,
		"Join":             c.join,
		"StringSplit":      c.stringSplit,
		"StringStartsWith": c.stringStartsWith,
		"StringEndsWith":   c.stringEndsWith,
		"StringContains":   c.stringContains,
		"StringReplace":    c.stringReplace,
		"Math":             c.math,
		"MathPow":          c.mathPow,
		"MathConst":        c.mathConst,
		"JsonParse":        c.unaryFn("JsonParse", "coreil::json_parse(%s)"),
		"JsonStringify":    c.jsonStringify,
		"RegexMatch":       c.regexMatch,
		"RegexFindAll":     c.regexFindAll,
		"RegexReplace":     c.regexReplace,
		"RegexSplit":       c.regexSplit,
		"ExternalCall":     c.externalCall,
		"MethodCall":       c.methodCall,
		"PropertyGet":      c.propertyGet,
		"Call":             c.callExpr,
	}
	c.stmts = map[string]stmtHandler{
		"Let":       c.assign,
		"Assign":    c.assign,
		"If":        c.ifStmt,
		"While":     c.whileStmt,
		"For":       c.forStmt,
		"ForEach":   c.forStmt,
		"Switch":    c.switchStmt,
		"Break":     c.breakStmt,
		"Continue":  c.continueStmt,
		"Return":    c.returnStmt,
		"Throw":     c.throwStmt,
		"TryCatch":  c.tryCatch,
		"Print":     c.printStmt,
		"Call":      c.callStmt,
		"Set":       c.mapPut,
		"SetIndex":  c.setIndex,
		"SetField":  c.setField,
		"Push":      c.push,
		"SetAdd":    c.setAdd,
		"SetRemove": c.setRemove,
		"PushBack":  c.pushBack,
		"PushFront": c.pushFront,
		"PopFront":  c.popTarget("coreil::deque_pop_front"),
		"PopBack":   c.popTarget("coreil::deque_pop_back"),
		"HeapPush":  c.heapPush,
		"HeapPop":   c.popTarget("coreil::heap_pop"),
		"FuncDef":   c.funcDef,
		"Import":    c.importStmt,
	}
	return &Backend{
		name:  "cpp",
		ext:   ".cpp",
		emit:  c.emitDoc,
		exprs: func() map[string]exprHandler { return c.exprs },
		stmts: func() map[string]stmtHandler { return c.stmts },
	}, nil
}

func cppVar(name string) string  { return "v_" + name }
func cppFunc(name string) string { return "f_" + name }

func (c *cppEmitter) frame() *cppFrame { return &c.frames[len(c.frames)-1] }

func (c *cppEmitter) emitDoc(doc *ast.Document) (*Output, error) {
	c.w = newWriter("    ")
	c.frames = []cppFrame{{}}
	c.iterSeq, c.switchSeq, c.trySeq = 0, 0, 0

	c.w.line("// Code generated by coreil emit; do not edit.")
	c.w.blank()
	c.w.line(`#include "coreil_runtime.hpp"`)
	c.w.blank()

	globals := collectAssigned(doc.Body)
	for _, name := range globals {
		c.w.line("coreil::Value " + cppVar(name) + ";")
	}
	if len(globals) > 0 {
		c.w.blank()
	}

	// Prototypes first so definition order never matters.
	protos := false
	for _, stmt := range doc.Body {
		fn, ok := stmt.(*ast.FuncDef)
		if !ok {
			continue
		}
		params := make([]string, len(fn.Params))
		for i := range fn.Params {
			params[i] = "coreil::Value"
		}
		c.w.line(fmt.Sprintf("coreil::Value %s(%s);", cppFunc(fn.Name), strings.Join(params, ", ")))
		protos = true
	}
	if protos {
		c.w.blank()
	}

	for index, stmt := range doc.Body {
		fn, ok := stmt.(*ast.FuncDef)
		if !ok {
			continue
		}
		c.w.beginStmt(index)
		if err := c.emitFunc(fn); err != nil {
			return nil, err
		}
		c.w.endBody()
		c.w.blank()
	}

	c.w.line("static void run() {")
	c.w.in()
	for index, stmt := range doc.Body {
		if _, ok := stmt.(*ast.FuncDef); ok {
			continue
		}
		c.w.beginStmt(index)
		if err := c.stmt(stmt); err != nil {
			return nil, err
		}
	}
	c.w.endBody()
	c.w.out()
	c.w.line("}")
	c.w.blank()

	c.w.line("int main() {")
	c.w.in()
	c.w.line("return coreil::run_main(run);")
	c.w.out()
	c.w.line("}")

	return &Output{
		Filename: "main.cpp",
		Source:   c.w.source(),
		Support:  map[string][]byte{"coreil_runtime.hpp": supportCppRuntime},
		LineMap:  c.w.lineMap,
	}, nil
}

// localNames filters assigned names down to those not already covered by
// parameters or an outer declaration set.
func localNames(body []ast.Stmt, params []string, covered []string) []string {
	seen := map[string]bool{}
	for _, p := range params {
		seen[p] = true
	}
	for _, name := range covered {
		seen[name] = true
	}
	var out []string
	for _, name := range collectAssigned(body) {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}

func (c *cppEmitter) emitFunc(fn *ast.FuncDef) error {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = "coreil::Value " + cppVar(p)
	}
	c.w.line(fmt.Sprintf("coreil::Value %s(%s) {", cppFunc(fn.Name), strings.Join(params, ", ")))
	c.w.in()
	for _, name := range localNames(fn.Body, fn.Params, nil) {
		c.w.line("coreil::Value " + cppVar(name) + ";")
	}

	c.frames = append(c.frames, cppFrame{inFunc: true})
	err := c.stmtList(fn.Body)
	c.frames = c.frames[:len(c.frames)-1]
	if err != nil {
		return err
	}
	c.w.line("return coreil::Value(nullptr);")
	c.w.out()
	c.w.line("}")
	return nil
}

func (c *cppEmitter) expr(e ast.Expr) (string, error) {
	h, ok := c.exprs[e.TypeName()]
	if !ok {
		return "", fmt.Errorf("cpp: unknown expression type '%s'", e.TypeName())
	}
	return h(e)
}

func (c *cppEmitter) stmt(s ast.Stmt) error {
	h, ok := c.stmts[s.TypeName()]
	if !ok {
		return fmt.Errorf("cpp: unknown statement type '%s'", s.TypeName())
	}
	return h(s)
}

func (c *cppEmitter) stmtList(body []ast.Stmt) error {
	for _, s := range body {
		if err := c.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *cppEmitter) block(body []ast.Stmt) error {
	c.w.in()
	err := c.stmtList(body)
	c.w.out()
	return err
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *cppEmitter) unaryFn(typeName, format string) exprHandler {
	return func(e ast.Expr) (string, error) {
		inner, err := singleChild(e, typeName)
		if err != nil {
			return "", err
		}
		s, err := c.expr(inner)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(format, s), nil
	}
}

func (c *cppEmitter) nullaryFn(code string) exprHandler {
	return func(ast.Expr) (string, error) { return code, nil }
}

// cppString escapes into a C++ string literal. Control bytes use
// three-digit octal escapes so a following digit can never extend them,
// which hex escapes in C++ would allow.
func cppString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		ch := s[i]
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
				b.WriteString(fmt.Sprintf(`\%03o`, ch))
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (c *cppEmitter) literal(e ast.Expr) (string, error) {
	switch v := e.(*ast.Literal).Value.(type) {
	case nil:
		return "coreil::Value(nullptr)", nil
	case bool:
		return fmt.Sprintf("coreil::Value(%t)", v), nil
	case int64:
		return fmt.Sprintf("coreil::Value(int64_t(%d))", v), nil
	case float64:
		return "coreil::Value(double(" + strconv.FormatFloat(v, 'g', -1, 64) + "))", nil
	case string:
		return "coreil::Value(std::string(" + cppString(v) + "))", nil
	default:
		return "", fmt.Errorf("cpp: literal value %T", v)
	}
}

func (c *cppEmitter) variable(e ast.Expr) (string, error) {
	return cppVar(e.(*ast.Var).Name), nil
}

var cppBinaryOps = map[string]string{
	"+":  "coreil::add",
	"-":  "coreil::subtract",
	"*":  "coreil::multiply",
	"/":  "coreil::divide",
	"//": "coreil::floor_divide",
	"%":  "coreil::modulo",
}

var cppCompareOps = map[string]string{
	"==": "coreil::equal",
	"<":  "coreil::less_than",
	"<=": "coreil::less_than_or_equal",
	">":  "coreil::greater_than",
	">=": "coreil::greater_than_or_equal",
}

func (c *cppEmitter) binary(e ast.Expr) (string, error) {
	n := e.(*ast.Binary)
	left, err := c.expr(n.Left)
	if err != nil {
		return "", err
	}
	right, err := c.expr(n.Right)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "and":
		return fmt.Sprintf("(coreil::is_truthy(%s) ? coreil::Value(coreil::is_truthy(%s)) : coreil::Value(false))", left, right), nil
	case "or":
		return fmt.Sprintf("(coreil::is_truthy(%s) ? coreil::Value(true) : coreil::Value(coreil::is_truthy(%s)))", left, right), nil
	case "!=":
		return fmt.Sprintf("coreil::Value(!coreil::equal(%s, %s))", left, right), nil
	}
	if fn, ok := cppCompareOps[n.Op]; ok {
		return fmt.Sprintf("coreil::Value(%s(%s, %s))", fn, left, right), nil
	}
	fn, ok := cppBinaryOps[n.Op]
	if !ok {
		return "", fmt.Errorf("cpp: binary operator '%s'", n.Op)
	}
	return fmt.Sprintf("%s(%s, %s)", fn, left, right), nil
}

func (c *cppEmitter) ternary(e ast.Expr) (string, error) {
	n := e.(*ast.Ternary)
	test, err := c.expr(n.Test)
	if err != nil {
		return "", err
	}
	cons, err := c.expr(n.Consequent)
	if err != nil {
		return "", err
	}
	alt, err := c.expr(n.Alternate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(coreil::is_truthy(%s) ? (%s) : (%s))", test, cons, alt), nil
}

func (c *cppEmitter) stringFormat(e ast.Expr) (string, error) {
	n := e.(*ast.StringFormat)
	if len(n.Parts) == 0 {
		return `coreil::Value(std::string(""))`, nil
	}
	parts := make([]string, len(n.Parts))
	for i, part := range n.Parts {
		s, err := c.expr(part)
		if err != nil {
			return "", err
		}
		parts[i] = "coreil::format(" + s + ")"
	}
	return "coreil::Value(" + strings.Join(parts, " + ") + ")", nil
}

func (c *cppEmitter) exprList(items []ast.Expr) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := c.expr(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func (c *cppEmitter) array(e ast.Expr) (string, error) {
	items, err := c.exprList(e.(*ast.Array).Items)
	if err != nil {
		return "", err
	}
	return "coreil::make_array({" + items + "})", nil
}

func (c *cppEmitter) tuple(e ast.Expr) (string, error) {
	items, err := c.exprList(e.(*ast.Tuple).Items)
	if err != nil {
		return "", err
	}
	return "coreil::make_tuple({" + items + "})", nil
}

func (c *cppEmitter) setLiteral(e ast.Expr) (string, error) {
	items, err := c.exprList(e.(*ast.SetLiteral).Items)
	if err != nil {
		return "", err
	}
	return "coreil::make_set({" + items + "})", nil
}

func (c *cppEmitter) call2(fn string, a, b ast.Expr) (string, error) {
	left, err := c.expr(a)
	if err != nil {
		return "", err
	}
	right, err := c.expr(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s)", fn, left, right), nil
}

func (c *cppEmitter) call3(fn string, a, b, d ast.Expr) (string, error) {
	first, err := c.expr(a)
	if err != nil {
		return "", err
	}
	second, err := c.expr(b)
	if err != nil {
		return "", err
	}
	third, err := c.expr(d)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s, %s)", fn, first, second, third), nil
}

func (c *cppEmitter) index(e ast.Expr) (string, error) {
	n := e.(*ast.Index)
	return c.call2("coreil::array_index", n.Base, n.Index)
}

func (c *cppEmitter) slice(e ast.Expr) (string, error) {
	n := e.(*ast.Slice)
	return c.call3("coreil::array_slice", n.Base, n.Start, n.End)
}

func (c *cppEmitter) rangeExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Range)
	from, err := c.expr(n.From)
	if err != nil {
		return "", err
	}
	to, err := c.expr(n.To)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("coreil::make_range(%s, %s, %t)", from, to, n.Inclusive), nil
}

func (c *cppEmitter) mapLiteral(e ast.Expr) (string, error) {
	n := e.(*ast.Map)
	parts := make([]string, len(n.Items))
	for i, item := range n.Items {
		key, err := c.expr(item.Key)
		if err != nil {
			return "", err
		}
		value, err := c.expr(item.Value)
		if err != nil {
			return "", err
		}
		parts[i] = "{" + key + ", " + value + "}"
	}
	return "coreil::make_map({" + strings.Join(parts, ", ") + "})", nil
}

func (c *cppEmitter) get(e ast.Expr) (string, error) {
	n := e.(*ast.Get)
	return c.call2("coreil::map_get", n.Base, n.Key)
}

func (c *cppEmitter) getDefault(e ast.Expr) (string, error) {
	n := e.(*ast.GetDefault)
	return c.call3("coreil::map_get_default", n.Base, n.Key, n.Default)
}

func (c *cppEmitter) record(e ast.Expr) (string, error) {
	n := e.(*ast.Record)
	parts := make([]string, len(n.Fields))
	for i, field := range n.Fields {
		value, err := c.expr(field.Value)
		if err != nil {
			return "", err
		}
		parts[i] = "{" + cppString(field.Name) + ", " + value + "}"
	}
	return "coreil::make_record({" + strings.Join(parts, ", ") + "})", nil
}

func (c *cppEmitter) getField(e ast.Expr) (string, error) {
	n := e.(*ast.GetField)
	base, err := c.expr(n.Base)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("coreil::record_get_field(%s, %s)", base, cppString(n.Name)), nil
}

func (c *cppEmitter) setHas(e ast.Expr) (string, error) {
	n := e.(*ast.SetHas)
	return c.call2("coreil::set_has", n.Base, n.Value)
}

func (c *cppEmitter) substring(e ast.Expr) (string, error) {
	n := e.(*ast.Substring)
	return c.call3("coreil::string_substring", n.Base, n.Start, n.End)
}

func (c *cppEmitter) charAt(e ast.Expr) (string, error) {
	n := e.(*ast.CharAt)
	return c.call2("coreil::string_char_at", n.Base, n.Index)
}

func (c *cppEmitter) join(e ast.Expr) (string, error) {
	n := e.(*ast.Join)
	return c.call2("coreil::string_join", n.Sep, n.Items)
}

func (c *cppEmitter) stringSplit(e ast.Expr) (string, error) {
	n := e.(*ast.StringSplit)
	return c.call2("coreil::string_split", n.Base, n.Delimiter)
}

func (c *cppEmitter) stringStartsWith(e ast.Expr) (string, error) {
	n := e.(*ast.StringStartsWith)
	return c.call2("coreil::string_starts_with", n.Base, n.Prefix)
}

func (c *cppEmitter) stringEndsWith(e ast.Expr) (string, error) {
	n := e.(*ast.StringEndsWith)
	return c.call2("coreil::string_ends_with", n.Base, n.Suffix)
}

func (c *cppEmitter) stringContains(e ast.Expr) (string, error) {
	n := e.(*ast.StringContains)
	return c.call2("coreil::string_contains", n.Base, n.Substring)
}

func (c *cppEmitter) stringReplace(e ast.Expr) (string, error) {
	n := e.(*ast.StringReplace)
	return c.call3("coreil::string_replace", n.Base, n.Old, n.New)
}

var cppMathOps = map[string]string{
	"sin":   "coreil::math_sin",
	"cos":   "coreil::math_cos",
	"tan":   "coreil::math_tan",
	"sqrt":  "coreil::math_sqrt",
	"floor": "coreil::math_floor",
	"ceil":  "coreil::math_ceil",
	"abs":   "coreil::math_abs",
	"log":   "coreil::math_log",
	"exp":   "coreil::math_exp",
}

func (c *cppEmitter) math(e ast.Expr) (string, error) {
	n := e.(*ast.Math)
	fn, ok := cppMathOps[n.Op]
	if !ok {
		return "", fmt.Errorf("cpp: math op '%s'", n.Op)
	}
	arg, err := c.expr(n.Arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", fn, arg), nil
}

func (c *cppEmitter) mathPow(e ast.Expr) (string, error) {
	n := e.(*ast.MathPow)
	return c.call2("coreil::math_pow", n.Base, n.Exponent)
}

func (c *cppEmitter) mathConst(e ast.Expr) (string, error) {
	switch e.(*ast.MathConst).Name {
	case "pi":
		return "coreil::math_pi()", nil
	case "e":
		return "coreil::math_e()", nil
	}
	return "", fmt.Errorf("cpp: math constant '%s'", e.(*ast.MathConst).Name)
}

func (c *cppEmitter) jsonStringify(e ast.Expr) (string, error) {
	n := e.(*ast.JsonStringify)
	value, err := c.expr(n.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("coreil::json_stringify(%s, %t)", value, n.Pretty), nil
}

func (c *cppEmitter) regexMatch(e ast.Expr) (string, error) {
	n := e.(*ast.RegexMatch)
	s, err := c.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := c.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("coreil::regex_match(%s, %s, %s)", s, pattern, cppString(n.Flags)), nil
}

func (c *cppEmitter) regexFindAll(e ast.Expr) (string, error) {
	n := e.(*ast.RegexFindAll)
	s, err := c.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := c.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("coreil::regex_find_all(%s, %s, %s)", s, pattern, cppString(n.Flags)), nil
}

func (c *cppEmitter) regexReplace(e ast.Expr) (string, error) {
	n := e.(*ast.RegexReplace)
	s, err := c.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := c.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	repl, err := c.expr(n.Replacement)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("coreil::regex_replace(%s, %s, %s, %s)", s, pattern, repl, cppString(n.Flags)), nil
}

func (c *cppEmitter) regexSplit(e ast.Expr) (string, error) {
	n := e.(*ast.RegexSplit)
	s, err := c.expr(n.String)
	if err != nil {
		return "", err
	}
	pattern, err := c.expr(n.Pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("coreil::regex_split(%s, %s, %s, %d)", s, pattern, cppString(n.Flags), n.MaxSplit), nil
}

func (c *cppEmitter) externalCall(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "cpp", NodeType: "ExternalCall", Category: CategoryExternal}
}

func (c *cppEmitter) methodCall(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "cpp", NodeType: "MethodCall", Category: CategoryMethod}
}

func (c *cppEmitter) propertyGet(ast.Expr) (string, error) {
	return "", &UnsupportedError{Target: "cpp", NodeType: "PropertyGet", Category: CategoryProperty}
}

func (c *cppEmitter) callString(name string, args []ast.Expr, exprPos bool) (string, error) {
	list, err := c.exprList(args)
	if err != nil {
		return "", err
	}
	switch name {
	case "print":
		if exprPos {
			return "(coreil::print({" + list + "}), coreil::Value(nullptr))", nil
		}
		return "coreil::print({" + list + "})", nil
	case "input":
		return "coreil::input(" + list + ")", nil
	case "get_or_default":
		return "coreil::get_or_default(" + list + ")", nil
	case "entries":
		return "coreil::map_entries(" + list + ")", nil
	case "append":
		return "coreil::append(" + list + ")", nil
	}
	return cppFunc(name) + "(" + list + ")", nil
}

func (c *cppEmitter) callExpr(e ast.Expr) (string, error) {
	n := e.(*ast.Call)
	return c.callString(n.Name, n.Args, true)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *cppEmitter) assign(s ast.Stmt) error {
	var name string
	var valueExpr ast.Expr
	switch n := s.(type) {
	case *ast.Let:
		name, valueExpr = n.Name, n.Value
	case *ast.Assign:
		name, valueExpr = n.Name, n.Value
	}
	value, err := c.expr(valueExpr)
	if err != nil {
		return err
	}
	c.w.line(cppVar(name) + " = " + value + ";")
	return nil
}

func (c *cppEmitter) ifStmt(s ast.Stmt) error {
	n := s.(*ast.If)
	test, err := c.expr(n.Test)
	if err != nil {
		return err
	}
	c.w.line("if (coreil::is_truthy(" + test + ")) {")
	if err := c.block(n.Then); err != nil {
		return err
	}
	if len(n.Else) > 0 {
		c.w.line("} else {")
		if err := c.block(n.Else); err != nil {
			return err
		}
	}
	c.w.line("}")
	return nil
}

func (c *cppEmitter) whileStmt(s ast.Stmt) error {
	n := s.(*ast.While)
	test, err := c.expr(n.Test)
	if err != nil {
		return err
	}
	c.w.line("while (coreil::is_truthy(" + test + ")) {")
	c.frame().loopDepth++
	err = c.block(n.Body)
	c.frame().loopDepth--
	if err != nil {
		return err
	}
	c.w.line("}")
	return nil
}

func (c *cppEmitter) forStmt(s ast.Stmt) error {
	var varName string
	var iter ast.Expr
	var body []ast.Stmt
	switch n := s.(type) {
	case *ast.For:
		varName, iter, body = n.Var, n.Iter, n.Body
	case *ast.ForEach:
		varName, iter, body = n.Var, n.Iter, n.Body
	}
	source, err := c.expr(iter)
	if err != nil {
		return err
	}
	seq := fmt.Sprintf("_seq%d", c.iterSeq)
	idx := fmt.Sprintf("_i%d", c.iterSeq)
	c.iterSeq++
	c.w.line("{")
	c.w.in()
	c.w.line(fmt.Sprintf("auto %s = coreil::iter(%s);", seq, source))
	c.w.line(fmt.Sprintf("for (size_t %s = 0; %s < %s.size(); ++%s) {", idx, idx, seq, idx))
	c.w.in()
	c.w.line(fmt.Sprintf("%s = %s.at(%s);", cppVar(varName), seq, idx))
	c.w.out()
	c.frame().loopDepth++
	err = c.block(body)
	c.frame().loopDepth--
	if err != nil {
		return err
	}
	c.w.line("}")
	c.w.out()
	c.w.line("}")
	return nil
}

func (c *cppEmitter) switchStmt(s ast.Stmt) error {
	n := s.(*ast.Switch)
	test, err := c.expr(n.Test)
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("_sw%d", c.switchSeq)
	c.switchSeq++
	c.w.line("{")
	c.w.in()
	c.w.line("coreil::Value " + tmp + " = " + test + ";")
	if len(n.Cases) == 0 {
		c.w.line("(void)" + tmp + ";")
		if err := c.stmtList(n.Default); err != nil {
			return err
		}
		c.w.out()
		c.w.line("}")
		return nil
	}
	for i, cs := range n.Cases {
		value, err := c.expr(cs.Value)
		if err != nil {
			return err
		}
		keyword := "if"
		if i > 0 {
			keyword = "} else if"
		}
		c.w.line(fmt.Sprintf("%s (coreil::equal(%s, %s)) {", keyword, tmp, value))
		if err := c.block(cs.Body); err != nil {
			return err
		}
	}
	if n.Default != nil {
		c.w.line("} else {")
		if err := c.block(n.Default); err != nil {
			return err
		}
	}
	c.w.line("}")
	c.w.out()
	c.w.line("}")
	return nil
}

func (c *cppEmitter) breakStmt(ast.Stmt) error {
	if c.frame().loopDepth > 0 {
		c.w.line("break;")
	} else {
		c.w.line(`coreil::fail_msg("break outside loop");`)
	}
	return nil
}

func (c *cppEmitter) continueStmt(ast.Stmt) error {
	if c.frame().loopDepth > 0 {
		c.w.line("continue;")
	} else {
		c.w.line(`coreil::fail_msg("continue outside loop");`)
	}
	return nil
}

func (c *cppEmitter) returnStmt(s ast.Stmt) error {
	n := s.(*ast.Return)
	if c.frame().inFunc {
		value := "coreil::Value(nullptr)"
		if n.Value != nil {
			v, err := c.expr(n.Value)
			if err != nil {
				return err
			}
			value = v
		}
		c.w.line("return " + value + ";")
		return nil
	}
	// Top level: evaluate for effect, then leave run().
	if n.Value != nil {
		v, err := c.expr(n.Value)
		if err != nil {
			return err
		}
		c.w.line("(void)(" + v + ");")
	}
	c.w.line("return;")
	return nil
}

func (c *cppEmitter) throwStmt(s ast.Stmt) error {
	message, err := c.expr(s.(*ast.Throw).Message)
	if err != nil {
		return err
	}
	c.w.line("throw coreil::Error(coreil::format(" + message + "));")
	return nil
}

// tryCatch uses native exception handling. A finally block becomes a
// coreil::Finally guard declared before the try, so its destructor sees
// every exit: fall-through, throw, break, continue and return alike.
func (c *cppEmitter) tryCatch(s ast.Stmt) error {
	n := s.(*ast.TryCatch)
	seq := c.trySeq
	c.trySeq++
	exc := fmt.Sprintf("_e%d", seq)

	c.w.line("{")
	c.w.in()
	if len(n.Finally) > 0 {
		fin := fmt.Sprintf("_fin%d", seq)
		c.w.line(fmt.Sprintf("coreil::Finally %s([&]() {", fin))
		c.frames = append(c.frames, cppFrame{})
		err := c.block(n.Finally)
		c.frames = c.frames[:len(c.frames)-1]
		if err != nil {
			return err
		}
		c.w.line("});")
	}
	c.w.line("try {")
	if err := c.block(n.Body); err != nil {
		return err
	}
	c.w.line(fmt.Sprintf("} catch (const coreil::Error& %s) {", exc))
	c.w.in()
	if n.CatchVar != "" {
		c.w.line(fmt.Sprintf("%s = coreil::Value(std::string(%s.what()));", cppVar(n.CatchVar), exc))
	} else {
		c.w.line("(void)" + exc + ";")
	}
	c.w.out()
	if err := c.block(n.CatchBody); err != nil {
		return err
	}
	c.w.line("}")
	c.w.out()
	c.w.line("}")
	return nil
}

func (c *cppEmitter) printStmt(s ast.Stmt) error {
	args, err := c.exprList(s.(*ast.Print).Args)
	if err != nil {
		return err
	}
	c.w.line("coreil::print({" + args + "});")
	return nil
}

func (c *cppEmitter) callStmt(s ast.Stmt) error {
	n := s.(*ast.Call)
	call, err := c.callString(n.Name, n.Args, false)
	if err != nil {
		return err
	}
	c.w.line(call + ";")
	return nil
}

func (c *cppEmitter) stmt2(fn string, a, b ast.Expr) error {
	code, err := c.call2(fn, a, b)
	if err != nil {
		return err
	}
	c.w.line(code + ";")
	return nil
}

func (c *cppEmitter) stmt3(fn string, a, b, d ast.Expr) error {
	code, err := c.call3(fn, a, b, d)
	if err != nil {
		return err
	}
	c.w.line(code + ";")
	return nil
}

func (c *cppEmitter) mapPut(s ast.Stmt) error {
	n := s.(*ast.MapPut)
	return c.stmt3("coreil::map_set", n.Base, n.Key, n.Value)
}

func (c *cppEmitter) setIndex(s ast.Stmt) error {
	n := s.(*ast.SetIndex)
	return c.stmt3("coreil::array_set_index", n.Base, n.Index, n.Value)
}

func (c *cppEmitter) setField(s ast.Stmt) error {
	n := s.(*ast.SetField)
	base, err := c.expr(n.Base)
	if err != nil {
		return err
	}
	value, err := c.expr(n.Value)
	if err != nil {
		return err
	}
	c.w.line(fmt.Sprintf("coreil::record_set_field(%s, %s, %s);", base, cppString(n.Name), value))
	return nil
}

func (c *cppEmitter) push(s ast.Stmt) error {
	n := s.(*ast.Push)
	return c.stmt2("coreil::array_push", n.Base, n.Value)
}

func (c *cppEmitter) setAdd(s ast.Stmt) error {
	n := s.(*ast.SetAdd)
	return c.stmt2("coreil::set_add", n.Base, n.Value)
}

func (c *cppEmitter) setRemove(s ast.Stmt) error {
	n := s.(*ast.SetRemove)
	return c.stmt2("coreil::set_remove", n.Base, n.Value)
}

func (c *cppEmitter) pushBack(s ast.Stmt) error {
	n := s.(*ast.PushBack)
	return c.stmt2("coreil::deque_push_back", n.Base, n.Value)
}

func (c *cppEmitter) pushFront(s ast.Stmt) error {
	n := s.(*ast.PushFront)
	return c.stmt2("coreil::deque_push_front", n.Base, n.Value)
}

func (c *cppEmitter) popTarget(fn string) stmtHandler {
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
		b, err := c.expr(base)
		if err != nil {
			return err
		}
		c.w.line(fmt.Sprintf("%s = %s(%s);", cppVar(target), fn, b))
		return nil
	}
}

func (c *cppEmitter) heapPush(s ast.Stmt) error {
	n := s.(*ast.HeapPush)
	return c.stmt3("coreil::heap_push", n.Base, n.Priority, n.Value)
}

func (c *cppEmitter) funcDef(ast.Stmt) error {
	if len(c.frames) > 1 || c.frame().loopDepth > 0 {
		return fmt.Errorf("cpp: function definitions must be at top level")
	}
	return nil
}

func (c *cppEmitter) importStmt(ast.Stmt) error {
	return fmt.Errorf("cpp: imports must be resolved before emission")
}
