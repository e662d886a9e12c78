// Package ast defines the Core IL node types and the versioned document
// envelope. Nodes form a closed union: every consumer (validator,
// interpreter, emitters) dispatches exhaustively over the concrete types
// so that adding a node is a compile-time event, not a runtime surprise.
package ast

// Node is any Core IL node. TypeName returns the wire discriminant used
// in the JSON encoding, e.g. "Binary" or "ForEach".
type Node interface {
	TypeName() string
}

// Expr nodes evaluate to a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt nodes execute for effect.
type Stmt interface {
	Node
	stmtNode()
}

// MapItem is one key/value pair of a Map literal.
type MapItem struct {
	Key   Expr
	Value Expr
}

// RecordField is one named field of a Record literal.
type RecordField struct {
	Name  string
	Value Expr
}

// SwitchCase is one arm of a Switch statement.
type SwitchCase struct {
	Value Expr
	Body  []Stmt
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Literal holds a JSON scalar: nil, bool, int64, float64 or string.
type Literal struct{ Value any }

type Var struct{ Name string }

// Binary covers arithmetic, comparison and the short-circuiting
// "and"/"or" operators. Op is one of the strings in BinaryOps.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

type Not struct{ Arg Expr }

type Ternary struct {
	Test       Expr
	Consequent Expr
	Alternate  Expr
}

// StringFormat concatenates the stringified parts.
type StringFormat struct{ Parts []Expr }

type ToInt struct{ Value Expr }
type ToFloat struct{ Value Expr }
type ToString struct{ Value Expr }

type Array struct{ Items []Expr }

type Index struct {
	Base  Expr
	Index Expr
}

// Slice takes a half-open [start:end) range with Python-style negative
// offsets; out-of-range bounds clamp instead of erroring.
type Slice struct {
	Base  Expr
	Start Expr
	End   Expr
}

type Length struct{ Base Expr }

// Range is an integer sequence. Inclusive is optional in the wire format
// and defaults to false (half-open).
type Range struct {
	From      Expr
	To        Expr
	Inclusive bool
}

type Map struct{ Items []MapItem }

type Get struct {
	Base Expr
	Key  Expr
}

type GetDefault struct {
	Base    Expr
	Key     Expr
	Default Expr
}

type Keys struct{ Base Expr }

type Tuple struct{ Items []Expr }

type Record struct{ Fields []RecordField }

type GetField struct {
	Base Expr
	Name string
}

// SetLiteral is the expression spelled "Set" on the wire; the statement
// of the same name is MapPut. The decoder disambiguates by position.
type SetLiteral struct{ Items []Expr }

type SetHas struct {
	Base  Expr
	Value Expr
}

type SetSize struct{ Base Expr }

type DequeNew struct{}

type DequeSize struct{ Base Expr }

type HeapNew struct{}

type HeapPeek struct{ Base Expr }

type HeapSize struct{ Base Expr }

type StringLength struct{ Base Expr }
type StringTrim struct{ Base Expr }
type StringUpper struct{ Base Expr }
type StringLower struct{ Base Expr }

type Substring struct {
	Base  Expr
	Start Expr
	End   Expr
}

type CharAt struct {
	Base  Expr
	Index Expr
}

type Join struct {
	Sep   Expr
	Items Expr
}

type StringSplit struct {
	Base      Expr
	Delimiter Expr
}

type StringStartsWith struct {
	Base   Expr
	Prefix Expr
}

type StringEndsWith struct {
	Base   Expr
	Suffix Expr
}

type StringContains struct {
	Base      Expr
	Substring Expr
}

type StringReplace struct {
	Base Expr
	Old  Expr
	New  Expr
}

// Math applies a unary math function; Op is one of MathOps.
type Math struct {
	Op  string
	Arg Expr
}

type MathPow struct {
	Base     Expr
	Exponent Expr
}

// MathConst names a constant: "pi" or "e".
type MathConst struct{ Name string }

type JsonParse struct{ Source Expr }

type JsonStringify struct {
	Value  Expr
	Pretty bool
}

// Regex nodes accept an optional flags string built from "i", "m", "s".
type RegexMatch struct {
	String  Expr
	Pattern Expr
	Flags   string
}

type RegexFindAll struct {
	String  Expr
	Pattern Expr
	Flags   string
}

type RegexReplace struct {
	String      Expr
	Pattern     Expr
	Replacement Expr
	Flags       string
}

type RegexSplit struct {
	String   Expr
	Pattern  Expr
	Flags    string
	MaxSplit int
}

// ExternalCall, MethodCall and PropertyGet are the Tier-2 escape hatch:
// platform-dependent operations that only some backends accept.
type ExternalCall struct {
	Module   string
	Function string
	Args     []Expr
}

type MethodCall struct {
	Object Expr
	Method string
	Args   []Expr
}

type PropertyGet struct {
	Object   Expr
	Property string
}

// Call invokes a user-defined function or a builtin. It is legal in both
// expression and statement position.
type Call struct {
	Name string
	Args []Expr
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

type Let struct {
	Name  string
	Value Expr
}

type Assign struct {
	Name  string
	Value Expr
}

type If struct {
	Test Expr
	Then []Stmt
	Else []Stmt
}

type While struct {
	Test Expr
	Body []Stmt
}

type For struct {
	Var  string
	Iter Expr
	Body []Stmt
}

type ForEach struct {
	Var  string
	Iter Expr
	Body []Stmt
}

type Switch struct {
	Test    Expr
	Cases   []SwitchCase
	Default []Stmt
}

type Break struct{}

type Continue struct{}

// Return with a nil Value returns null.
type Return struct{ Value Expr }

type Throw struct{ Message Expr }

type TryCatch struct {
	Body      []Stmt
	CatchVar  string
	CatchBody []Stmt
	Finally   []Stmt
}

type Print struct{ Args []Expr }

// MapPut is the statement spelled "Set" on the wire: base[key] = value.
type MapPut struct {
	Base  Expr
	Key   Expr
	Value Expr
}

type SetIndex struct {
	Base  Expr
	Index Expr
	Value Expr
}

type SetField struct {
	Base  Expr
	Name  string
	Value Expr
}

type Push struct {
	Base  Expr
	Value Expr
}

type SetAdd struct {
	Base  Expr
	Value Expr
}

type SetRemove struct {
	Base  Expr
	Value Expr
}

type PushBack struct {
	Base  Expr
	Value Expr
}

type PushFront struct {
	Base  Expr
	Value Expr
}

// PopFront/PopBack store the removed element into the named variable.
type PopFront struct {
	Base   Expr
	Target string
}

type PopBack struct {
	Base   Expr
	Target string
}

type HeapPush struct {
	Base     Expr
	Priority Expr
	Value    Expr
}

type HeapPop struct {
	Base   Expr
	Target string
}

type FuncDef struct {
	Name   string
	Params []string
	Body   []Stmt
}

// Import brings another document's function definitions into scope.
type Import struct {
	Path  string
	Alias string
}

// ---------------------------------------------------------------------------
// Discriminants and family markers
// ---------------------------------------------------------------------------

func (*Literal) TypeName() string          { return "Literal" }
func (*Var) TypeName() string              { return "Var" }
func (*Binary) TypeName() string           { return "Binary" }
func (*Not) TypeName() string              { return "Not" }
func (*Ternary) TypeName() string          { return "Ternary" }
func (*StringFormat) TypeName() string     { return "StringFormat" }
func (*ToInt) TypeName() string            { return "ToInt" }
func (*ToFloat) TypeName() string          { return "ToFloat" }
func (*ToString) TypeName() string         { return "ToString" }
func (*Array) TypeName() string            { return "Array" }
func (*Index) TypeName() string            { return "Index" }
func (*Slice) TypeName() string            { return "Slice" }
func (*Length) TypeName() string           { return "Length" }
func (*Range) TypeName() string            { return "Range" }
func (*Map) TypeName() string              { return "Map" }
func (*Get) TypeName() string              { return "Get" }
func (*GetDefault) TypeName() string       { return "GetDefault" }
func (*Keys) TypeName() string             { return "Keys" }
func (*Tuple) TypeName() string            { return "Tuple" }
func (*Record) TypeName() string           { return "Record" }
func (*GetField) TypeName() string         { return "GetField" }
func (*SetLiteral) TypeName() string       { return "Set" }
func (*SetHas) TypeName() string           { return "SetHas" }
func (*SetSize) TypeName() string          { return "SetSize" }
func (*DequeNew) TypeName() string         { return "DequeNew" }
func (*DequeSize) TypeName() string        { return "DequeSize" }
func (*HeapNew) TypeName() string          { return "HeapNew" }
func (*HeapPeek) TypeName() string         { return "HeapPeek" }
func (*HeapSize) TypeName() string         { return "HeapSize" }
func (*StringLength) TypeName() string     { return "StringLength" }
func (*StringTrim) TypeName() string       { return "StringTrim" }
func (*StringUpper) TypeName() string      { return "StringUpper" }
func (*StringLower) TypeName() string      { return "StringLower" }
func (*Substring) TypeName() string        { return "Substring" }
func (*CharAt) TypeName() string           { return "CharAt" }
func (*Join) TypeName() string             { return "Join" }
func (*StringSplit) TypeName() string      { return "StringSplit" }
func (*StringStartsWith) TypeName() string { return "StringStartsWith" }
func (*StringEndsWith) TypeName() string   { return "StringEndsWith" }
func (*StringContains) TypeName() string   { return "StringContains" }
func (*StringReplace) TypeName() string    { return "StringReplace" }
func (*Math) TypeName() string             { return "Math" }
func (*MathPow) TypeName() string          { return "MathPow" }
func (*MathConst) TypeName() string        { return "MathConst" }
func (*JsonParse) TypeName() string        { return "JsonParse" }
func (*JsonStringify) TypeName() string    { return "JsonStringify" }
func (*RegexMatch) TypeName() string       { return "RegexMatch" }
func (*RegexFindAll) TypeName() string     { return "RegexFindAll" }
func (*RegexReplace) TypeName() string     { return "RegexReplace" }
func (*RegexSplit) TypeName() string       { return "RegexSplit" }
func (*ExternalCall) TypeName() string     { return "ExternalCall" }
func (*MethodCall) TypeName() string       { return "MethodCall" }
func (*PropertyGet) TypeName() string      { return "PropertyGet" }
func (*Call) TypeName() string             { return "Call" }

func (*Let) TypeName() string      { return "Let" }
func (*Assign) TypeName() string   { return "Assign" }
func (*If) TypeName() string       { return "If" }
func (*While) TypeName() string    { return "While" }
func (*For) TypeName() string      { return "For" }
func (*ForEach) TypeName() string  { return "ForEach" }
func (*Switch) TypeName() string   { return "Switch" }
func (*Break) TypeName() string    { return "Break" }
func (*Continue) TypeName() string { return "Continue" }
func (*Return) TypeName() string   { return "Return" }
func (*Throw) TypeName() string    { return "Throw" }
func (*TryCatch) TypeName() string { return "TryCatch" }
func (*Print) TypeName() string    { return "Print" }
func (*MapPut) TypeName() string   { return "Set" }
func (*SetIndex) TypeName() string { return "SetIndex" }
func (*SetField) TypeName() string { return "SetField" }
func (*Push) TypeName() string     { return "Push" }
func (*SetAdd) TypeName() string   { return "SetAdd" }
func (*SetRemove) TypeName() string { return "SetRemove" }
func (*PushBack) TypeName() string  { return "PushBack" }
func (*PushFront) TypeName() string { return "PushFront" }
func (*PopFront) TypeName() string  { return "PopFront" }
func (*PopBack) TypeName() string   { return "PopBack" }
func (*HeapPush) TypeName() string  { return "HeapPush" }
func (*HeapPop) TypeName() string   { return "HeapPop" }
func (*FuncDef) TypeName() string   { return "FuncDef" }
func (*Import) TypeName() string    { return "Import" }

func (*Literal) exprNode()          {}
func (*Var) exprNode()              {}
func (*Binary) exprNode()           {}
func (*Not) exprNode()              {}
func (*Ternary) exprNode()          {}
func (*StringFormat) exprNode()     {}
func (*ToInt) exprNode()            {}
func (*ToFloat) exprNode()          {}
func (*ToString) exprNode()         {}
func (*Array) exprNode()            {}
func (*Index) exprNode()            {}
func (*Slice) exprNode()            {}
func (*Length) exprNode()           {}
func (*Range) exprNode()            {}
func (*Map) exprNode()              {}
func (*Get) exprNode()              {}
func (*GetDefault) exprNode()       {}
func (*Keys) exprNode()             {}
func (*Tuple) exprNode()            {}
func (*Record) exprNode()           {}
func (*GetField) exprNode()         {}
func (*SetLiteral) exprNode()       {}
func (*SetHas) exprNode()           {}
func (*SetSize) exprNode()          {}
func (*DequeNew) exprNode()         {}
func (*DequeSize) exprNode()        {}
func (*HeapNew) exprNode()          {}
func (*HeapPeek) exprNode()         {}
func (*HeapSize) exprNode()         {}
func (*StringLength) exprNode()     {}
func (*StringTrim) exprNode()       {}
func (*StringUpper) exprNode()      {}
func (*StringLower) exprNode()      {}
func (*Substring) exprNode()        {}
func (*CharAt) exprNode()           {}
func (*Join) exprNode()             {}
func (*StringSplit) exprNode()      {}
func (*StringStartsWith) exprNode() {}
func (*StringEndsWith) exprNode()   {}
func (*StringContains) exprNode()   {}
func (*StringReplace) exprNode()    {}
func (*Math) exprNode()             {}
func (*MathPow) exprNode()          {}
func (*MathConst) exprNode()        {}
func (*JsonParse) exprNode()        {}
func (*JsonStringify) exprNode()    {}
func (*RegexMatch) exprNode()       {}
func (*RegexFindAll) exprNode()     {}
func (*RegexReplace) exprNode()     {}
func (*RegexSplit) exprNode()       {}
func (*ExternalCall) exprNode()     {}
func (*MethodCall) exprNode()       {}
func (*PropertyGet) exprNode()      {}
func (*Call) exprNode()             {}

func (*Let) stmtNode()       {}
func (*Assign) stmtNode()    {}
func (*If) stmtNode()        {}
func (*While) stmtNode()     {}
func (*For) stmtNode()       {}
func (*ForEach) stmtNode()   {}
func (*Switch) stmtNode()    {}
func (*Break) stmtNode()     {}
func (*Continue) stmtNode()  {}
func (*Return) stmtNode()    {}
func (*Throw) stmtNode()     {}
func (*TryCatch) stmtNode()  {}
func (*Print) stmtNode()     {}
func (*MapPut) stmtNode()    {}
func (*SetIndex) stmtNode()  {}
func (*SetField) stmtNode()  {}
func (*Push) stmtNode()      {}
func (*SetAdd) stmtNode()    {}
func (*SetRemove) stmtNode() {}
func (*PushBack) stmtNode()  {}
func (*PushFront) stmtNode() {}
func (*PopFront) stmtNode()  {}
func (*PopBack) stmtNode()   {}
func (*HeapPush) stmtNode()  {}
func (*HeapPop) stmtNode()   {}
func (*FuncDef) stmtNode()   {}
func (*Import) stmtNode()    {}
func (*Call) stmtNode()      {}

// BinaryOps is the closed operator set for Binary nodes.
var BinaryOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "//": true, "%": true,
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"and": true, "or": true,
}

// MathOps is the closed operation set for Math nodes.
var MathOps = map[string]bool{
	"sin": true, "cos": true, "tan": true, "sqrt": true, "floor": true,
	"ceil": true, "abs": true, "log": true, "exp": true,
}

// MathConstants names the constants MathConst accepts.
var MathConstants = map[string]bool{"pi": true, "e": true}

// ExprTypes and StmtTypes enumerate the wire discriminants of each node
// family. Emitters use them to prove handler coverage before emitting.
var ExprTypes = []string{
	"Literal", "Var", "Binary", "Not", "Ternary", "StringFormat",
	"ToInt", "ToFloat", "ToString", "Array", "Index", "Slice", "Length",
	"Range", "Map", "Get", "GetDefault", "Keys", "Tuple", "Record",
	"GetField", "Set", "SetHas", "SetSize", "DequeNew", "DequeSize",
	"HeapNew", "HeapPeek", "HeapSize", "StringLength", "StringTrim",
	"StringUpper", "StringLower", "Substring", "CharAt", "Join",
	"StringSplit", "StringStartsWith", "StringEndsWith", "StringContains",
	"StringReplace", "Math", "MathPow", "MathConst", "JsonParse",
	"JsonStringify", "RegexMatch", "RegexFindAll", "RegexReplace",
	"RegexSplit", "ExternalCall", "MethodCall", "PropertyGet", "Call",
}

var StmtTypes = []string{
	"Let", "Assign", "If", "While", "For", "ForEach", "Switch", "Break",
	"Continue", "Return", "Throw", "TryCatch", "Print", "Set", "SetIndex",
	"SetField", "Push", "SetAdd", "SetRemove", "PushBack", "PushFront",
	"PopFront", "PopBack", "HeapPush", "HeapPop", "FuncDef", "Import",
	"Call",
}
