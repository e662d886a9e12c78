// Package validator performs the static checks that gate a Core IL
// document into the pipeline: version membership, per-node shape checks,
// read-before-define analysis, and lexical legality of control-flow
// statements. Errors are collected, never raised, so callers always see
// the complete defect list.
package validator

import (
	"fmt"
	"sort"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

// Issue is one validation defect. Path is JSON-pointer-like, rooted at
// "$" ("$.body[0].value").
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string { return fmt.Sprintf("%s: %s", i.Path, i.Message) }

// ValidateBytes parses and validates a raw JSON document.
func ValidateBytes(data []byte) ([]Issue, error) {
	raw, err := ast.DecodeRaw(data)
	if err != nil {
		return nil, err
	}
	return Validate(raw), nil
}

// Validate checks a generic JSON document. An empty result means the
// document is accepted. The document is never executed and never
// mutated.
func Validate(raw any) []Issue {
	c := &checker{version: "coreil-0.1"}
	doc, ok := raw.(map[string]any)
	if !ok {
		c.add("$", "document must be an object")
		return c.issues
	}

	version, _ := doc["version"].(string)
	if !ast.SupportedVersions[version] {
		c.add("$.version", ast.VersionErrorMessage())
	} else {
		c.version = version
	}

	c.checkAmbiguities(doc["ambiguities"])
	c.checkSourceMap(doc)

	body, ok := doc["body"].([]any)
	if !ok {
		c.add("$.body", "body must be a list")
		return c.issues
	}
	defined := map[string]bool{}
	for i, stmt := range body {
		c.stmt(stmt, fmt.Sprintf("$.body[%d]", i), defined, false, false)
	}
	return c.issues
}

type checker struct {
	version string
	issues  []Issue
}

func (c *checker) add(path, message string) {
	c.issues = append(c.issues, Issue{Path: path, Message: message})
}

// expectType reads the discriminant and applies version gating. Returns
// "" when the node is too broken to inspect further.
func (c *checker) expectType(node any, path string) (map[string]any, string) {
	obj, ok := node.(map[string]any)
	if !ok {
		c.add(path, "node must be an object")
		return nil, ""
	}
	typ, ok := obj["type"].(string)
	if !ok || typ == "" {
		c.add(path+".type", "missing type")
		return nil, ""
	}
	if !knownTypes[typ] {
		c.add(path+".type", fmt.Sprintf("unknown type '%s'", typ))
		return nil, ""
	}
	if !ast.NodeAllowedIn(typ, c.version) {
		c.add(path+".type", fmt.Sprintf("type '%s' is not available in version '%s'", typ, c.version))
	}
	return obj, typ
}

// exprShapes lists, per expression type, the fields that must hold
// sub-expressions. Types needing more than field recursion are handled
// explicitly in expr.
var exprShapes = map[string][]string{
	"Not":              {"arg"},
	"Ternary":          {"test", "consequent", "alternate"},
	"ToInt":            {"value"},
	"ToFloat":          {"value"},
	"ToString":         {"value"},
	"Index":            {"base", "index"},
	"Slice":            {"base", "start", "end"},
	"Length":           {"base"},
	"Get":              {"base", "key"},
	"GetDefault":       {"base", "key", "default"},
	"Keys":             {"base"},
	"GetField":         {"base"},
	"SetHas":           {"base", "value"},
	"SetSize":          {"base"},
	"DequeSize":        {"base"},
	"HeapPeek":         {"base"},
	"HeapSize":         {"base"},
	"StringLength":     {"base"},
	"StringTrim":       {"base"},
	"StringUpper":      {"base"},
	"StringLower":      {"base"},
	"Substring":        {"base", "start", "end"},
	"CharAt":           {"base", "index"},
	"Join":             {"sep", "items"},
	"StringSplit":      {"base", "delimiter"},
	"StringStartsWith": {"base", "prefix"},
	"StringEndsWith":   {"base", "suffix"},
	"StringContains":   {"base", "substring"},
	"StringReplace":    {"base", "old", "new"},
	"MathPow":          {"base", "exponent"},
	"JsonParse":        {"source"},
	"JsonStringify":    {"value"},
	"RegexMatch":       {"string", "pattern"},
	"RegexFindAll":     {"string", "pattern"},
	"RegexReplace":     {"string", "pattern", "replacement"},
	"RegexSplit":       {"string", "pattern"},
	"DequeNew":         {},
	"HeapNew":          {},
}

func (c *checker) exprField(obj map[string]any, path, name string, defined map[string]bool) {
	sub, present := obj[name]
	if !present {
		c.add(fmt.Sprintf("%s.%s", path, name), fmt.Sprintf("missing %s", name))
		return
	}
	c.expr(sub, fmt.Sprintf("%s.%s", path, name), defined)
}

func (c *checker) exprList(obj map[string]any, path, name string, defined map[string]bool) []any {
	items, ok := obj[name].([]any)
	if !ok {
		c.add(fmt.Sprintf("%s.%s", path, name), fmt.Sprintf("missing or invalid %s", name))
		return nil
	}
	for i, item := range items {
		c.expr(item, fmt.Sprintf("%s.%s[%d]", path, name, i), defined)
	}
	return items
}

func (c *checker) nameField(obj map[string]any, path, name string) string {
	value, _ := obj[name].(string)
	if value == "" {
		c.add(fmt.Sprintf("%s.%s", path, name), fmt.Sprintf("missing or invalid %s", name))
	}
	return value
}

func (c *checker) expr(node any, path string, defined map[string]bool) {
	obj, typ := c.expectType(node, path)
	if typ == "" {
		return
	}

	if fields, ok := exprShapes[typ]; ok {
		for _, field := range fields {
			c.exprField(obj, path, field, defined)
		}
		switch typ {
		case "Index":
			c.checkLiteralIndex(obj, path)
		case "GetField":
			c.nameField(obj, path, "name")
		case "JsonStringify":
			if pretty, present := obj["pretty"]; present {
				if _, ok := pretty.(bool); !ok {
					c.add(path+".pretty", "pretty must be a boolean")
				}
			}
		case "RegexMatch", "RegexFindAll", "RegexReplace", "RegexSplit":
			c.checkRegexFlags(obj, path)
		}
		return
	}

	switch typ {
	case "Literal":
		if _, present := obj["value"]; !present {
			c.add(path+".value", "missing value")
		}
	case "Var":
		name := c.nameField(obj, path, "name")
		if name != "" && !defined[name] {
			c.add(path, fmt.Sprintf("variable '%s' used before definition", name))
		}
	case "Binary":
		op, _ := obj["op"].(string)
		if !ast.BinaryOps[op] {
			c.add(path+".op", "missing or invalid op")
		}
		c.exprField(obj, path, "left", defined)
		c.exprField(obj, path, "right", defined)
	case "StringFormat":
		c.exprList(obj, path, "parts", defined)
	case "Array", "Tuple", "Set":
		c.exprList(obj, path, "items", defined)
	case "Range":
		c.exprField(obj, path, "from", defined)
		c.exprField(obj, path, "to", defined)
		if inclusive, present := obj["inclusive"]; present {
			if _, ok := inclusive.(bool); !ok {
				c.add(path+".inclusive", "inclusive must be a boolean")
			}
		}
	case "Map":
		items, ok := obj["items"].([]any)
		if !ok {
			c.add(path+".items", "missing or invalid items")
			return
		}
		for i, raw := range items {
			itemPath := fmt.Sprintf("%s.items[%d]", path, i)
			item, ok := raw.(map[string]any)
			if !ok {
				c.add(itemPath, "item must be an object")
				continue
			}
			c.exprField(item, itemPath, "key", defined)
			c.exprField(item, itemPath, "value", defined)
		}
	case "Record":
		fields, ok := obj["fields"].([]any)
		if !ok {
			c.add(path+".fields", "missing or invalid fields")
			return
		}
		for i, raw := range fields {
			fieldPath := fmt.Sprintf("%s.fields[%d]", path, i)
			field, ok := raw.(map[string]any)
			if !ok {
				c.add(fieldPath, "field must be an object")
				continue
			}
			c.nameField(field, fieldPath, "name")
			c.exprField(field, fieldPath, "value", defined)
		}
	case "Math":
		op, _ := obj["op"].(string)
		if !ast.MathOps[op] {
			c.add(path+".op", "missing or invalid op")
		}
		c.exprField(obj, path, "arg", defined)
	case "MathConst":
		name, _ := obj["name"].(string)
		if !ast.MathConstants[name] {
			c.add(path+".name", "name must be 'pi' or 'e'")
		}
	case "ExternalCall":
		c.nameField(obj, path, "module")
		c.nameField(obj, path, "function")
		c.exprList(obj, path, "args", defined)
	case "MethodCall":
		c.exprField(obj, path, "object", defined)
		c.nameField(obj, path, "method")
		c.exprList(obj, path, "args", defined)
	case "PropertyGet":
		c.exprField(obj, path, "object", defined)
		c.nameField(obj, path, "property")
	case "Call":
		name := c.nameField(obj, path, "name")
		if name != "" && ast.IsSealed(c.version) && ast.SealedHelperCalls[name] {
			c.add(path+".name", fmt.Sprintf(
				"helper function '%s' is not allowed in sealed versions; use explicit primitives (GetDefault, Keys, Push, Tuple)", name))
		}
		c.exprList(obj, path, "args", defined)
	case "Print":
		// Print in expression position happens in legacy 0.x documents.
		c.exprList(obj, path, "args", defined)
	default:
		c.add(path, fmt.Sprintf("unexpected expression type '%s'", typ))
	}
}

// checkLiteralIndex flags a statically known negative index. Dynamic
// negative indices are legal from 1.5 on and resolve Python-style at
// run time.
func (c *checker) checkLiteralIndex(obj map[string]any, path string) {
	index, ok := obj["index"].(map[string]any)
	if !ok || index["type"] != "Literal" {
		return
	}
	value := index["value"]
	n, err := literalInt(value)
	allowNegative := ast.CompareVersions(c.version, "coreil-1.5") >= 0
	if err != nil || (!allowNegative && n < 0) {
		c.add(path+".index", "index must be a non-negative integer")
	}
}

func (c *checker) checkRegexFlags(obj map[string]any, path string) {
	flags, present := obj["flags"]
	if !present {
		return
	}
	s, ok := flags.(string)
	if !ok {
		c.add(path+".flags", "flags must be a string")
		return
	}
	for _, r := range s {
		if r != 'i' && r != 'm' && r != 's' {
			c.add(path+".flags", fmt.Sprintf("unknown regex flag '%c'", r))
			return
		}
	}
}

func (c *checker) stmtList(obj map[string]any, path, name string, defined map[string]bool, inFunc, inLoop bool) {
	body, ok := obj[name].([]any)
	if !ok {
		c.add(fmt.Sprintf("%s.%s", path, name), fmt.Sprintf("missing or invalid %s", name))
		return
	}
	for i, stmt := range body {
		c.stmt(stmt, fmt.Sprintf("%s.%s[%d]", path, name, i), defined, inFunc, inLoop)
	}
}

func (c *checker) stmt(node any, path string, defined map[string]bool, inFunc, inLoop bool) {
	obj, typ := c.expectType(node, path)
	if typ == "" {
		return
	}

	switch typ {
	case "Let", "Assign":
		name := c.nameField(obj, path, "name")
		c.exprField(obj, path, "value", defined)
		if name != "" {
			defined[name] = true
		}
	case "If":
		c.exprField(obj, path, "test", defined)
		c.stmtList(obj, path, "then", defined, inFunc, inLoop)
		if rawElse, present := obj["else"]; present {
			if _, ok := rawElse.([]any); !ok {
				c.add(path+".else", "invalid else")
			} else {
				c.stmtList(obj, path, "else", defined, inFunc, inLoop)
			}
		}
	case "While":
		c.exprField(obj, path, "test", defined)
		c.stmtList(obj, path, "body", defined, inFunc, true)
	case "For", "ForEach":
		varName := c.nameField(obj, path, "var")
		if _, present := obj["iter"]; !present {
			c.add(path+".iter", "missing iter")
		} else {
			c.exprField(obj, path, "iter", defined)
		}
		if varName != "" {
			defined[varName] = true
		}
		c.stmtList(obj, path, "body", defined, inFunc, true)
	case "Switch":
		c.exprField(obj, path, "test", defined)
		cases, ok := obj["cases"].([]any)
		if !ok {
			c.add(path+".cases", "missing or invalid cases")
		} else {
			for i, raw := range cases {
				casePath := fmt.Sprintf("%s.cases[%d]", path, i)
				caseObj, ok := raw.(map[string]any)
				if !ok {
					c.add(casePath, "case must be an object")
					continue
				}
				c.exprField(caseObj, casePath, "value", defined)
				c.stmtList(caseObj, casePath, "body", defined, inFunc, inLoop)
			}
		}
		if _, present := obj["default"]; present {
			c.stmtList(obj, path, "default", defined, inFunc, inLoop)
		}
	case "Break":
		if !inLoop {
			c.add(path, "Break is only allowed inside a loop")
		}
	case "Continue":
		if !inLoop {
			c.add(path, "Continue is only allowed inside a loop")
		}
	case "Return":
		if !inFunc {
			c.add(path, "Return is only allowed inside FuncDef")
		}
		if _, present := obj["value"]; present {
			c.exprField(obj, path, "value", defined)
		}
	case "Throw":
		c.exprField(obj, path, "message", defined)
	case "TryCatch":
		c.stmtList(obj, path, "body", defined, inFunc, inLoop)
		catchVar := c.nameField(obj, path, "catch_var")
		catchDefined := copyDefined(defined)
		if catchVar != "" {
			catchDefined[catchVar] = true
		}
		c.stmtList(obj, path, "catch_body", catchDefined, inFunc, inLoop)
		if _, present := obj["finally_body"]; present {
			c.stmtList(obj, path, "finally_body", defined, inFunc, inLoop)
		}
	case "Print", "Call":
		c.expr(node, path, defined)
	case "Set":
		c.exprField(obj, path, "base", defined)
		c.exprField(obj, path, "key", defined)
		c.exprField(obj, path, "value", defined)
	case "SetIndex":
		c.exprField(obj, path, "base", defined)
		if _, present := obj["index"]; !present {
			c.add(path+".index", "missing index")
		} else {
			c.exprField(obj, path, "index", defined)
			c.checkLiteralIndex(obj, path)
		}
		c.exprField(obj, path, "value", defined)
	case "SetField":
		c.exprField(obj, path, "base", defined)
		c.nameField(obj, path, "name")
		c.exprField(obj, path, "value", defined)
	case "Push", "SetAdd", "SetRemove", "PushBack", "PushFront":
		c.exprField(obj, path, "base", defined)
		c.exprField(obj, path, "value", defined)
	case "PopFront", "PopBack", "HeapPop":
		c.exprField(obj, path, "base", defined)
		target := c.nameField(obj, path, "target")
		if target != "" {
			defined[target] = true
		}
	case "HeapPush":
		c.exprField(obj, path, "base", defined)
		c.exprField(obj, path, "priority", defined)
		c.exprField(obj, path, "value", defined)
	case "FuncDef":
		c.nameField(obj, path, "name")
		params, ok := obj["params"].([]any)
		funcDefined := copyDefined(defined)
		if !ok {
			c.add(path+".params", "missing or invalid params")
		} else {
			for i, raw := range params {
				param, _ := raw.(string)
				if param == "" {
					c.add(fmt.Sprintf("%s.params[%d]", path, i), "param must be a non-empty string")
					continue
				}
				funcDefined[param] = true
			}
		}
		// Break/Continue never cross a function boundary.
		c.stmtList(obj, path, "body", funcDefined, true, false)
	case "Import":
		c.nameField(obj, path, "path")
		if alias, present := obj["alias"]; present {
			if s, ok := alias.(string); !ok || s == "" {
				c.add(path+".alias", "alias must be a non-empty string")
			}
		}
		if inFunc || inLoop {
			c.add(path, "Import is only allowed at the top level")
		}
	default:
		c.add(path, fmt.Sprintf("unexpected statement type '%s'", typ))
	}
}

func (c *checker) checkAmbiguities(raw any) {
	if raw == nil {
		return
	}
	items, ok := raw.([]any)
	if !ok {
		c.add("$.ambiguities", "ambiguities must be a list")
		return
	}
	for i, rawItem := range items {
		itemPath := fmt.Sprintf("$.ambiguities[%d]", i)
		item, ok := rawItem.(map[string]any)
		if !ok {
			c.add(itemPath, "ambiguity item must be an object")
			continue
		}
		question, _ := item["question"].(string)
		if question == "" {
			c.add(itemPath+".question", "missing or invalid question")
		}
		options, optsOK := item["options"].([]any)
		if !optsOK || len(options) == 0 {
			c.add(itemPath+".options", "missing or invalid options")
		} else {
			for j, rawOpt := range options {
				if opt, _ := rawOpt.(string); opt == "" {
					c.add(fmt.Sprintf("%s.options[%d]", itemPath, j), "option must be a non-empty string")
				}
			}
		}
		def, err := literalInt(item["default"])
		if err != nil {
			c.add(itemPath+".default", "missing or invalid default")
		} else if optsOK && len(options) > 0 && (def < 0 || def >= int64(len(options))) {
			c.add(itemPath+".default", "default must be a valid option index")
		}
	}
}

// checkSourceMap verifies the optional english->coreil map: keys must be
// statement indexes within the body, values lists of line numbers.
func (c *checker) checkSourceMap(doc map[string]any) {
	raw, present := doc["source_map"]
	if !present {
		return
	}
	sm, ok := raw.(map[string]any)
	if !ok {
		c.add("$.source_map", "source_map must be an object")
		return
	}
	bodyLen := -1
	if body, ok := doc["body"].([]any); ok {
		bodyLen = len(body)
	}
	keys := make([]string, 0, len(sm))
	for key := range sm {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		rawLines := sm[key]
		keyPath := fmt.Sprintf("$.source_map[%q]", key)
		index, err := literalInt(key)
		if err != nil {
			c.add(keyPath, "source_map key must be a statement index")
			continue
		}
		if bodyLen >= 0 && (index < 0 || index >= int64(bodyLen)) {
			c.add(keyPath, "source_map key out of body range")
		}
		lines, ok := rawLines.([]any)
		if !ok {
			c.add(keyPath, "source_map entry must be a list of line numbers")
			continue
		}
		for j, rawLine := range lines {
			if n, err := literalInt(rawLine); err != nil || n < 0 {
				c.add(fmt.Sprintf("%s[%d]", keyPath, j), "line number must be a non-negative integer")
			}
		}
	}
}

func copyDefined(defined map[string]bool) map[string]bool {
	out := make(map[string]bool, len(defined))
	for name := range defined {
		out[name] = true
	}
	return out
}
