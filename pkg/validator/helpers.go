package validator

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

var knownTypes = map[string]bool{}

func init() {
	for _, typ := range ast.ExprTypes {
		knownTypes[typ] = true
	}
	for _, typ := range ast.StmtTypes {
		knownTypes[typ] = true
	}
}

// literalInt extracts an integer from the generic JSON representation.
// String forms are accepted for source_map keys.
func literalInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("not an integer")
	}
}
