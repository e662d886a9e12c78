package interp

import (
	"regexp"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/runtime"
)

// compileRegex maps the portable flag letters onto Go's inline flag
// syntax. The validator has already rejected anything outside "ims".
func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	prefix := ""
	for _, flag := range flags {
		switch flag {
		case 'i':
			prefix += "(?i)"
		case 'm':
			prefix += "(?m)"
		case 's':
			prefix += "(?s)"
		}
	}
	re, err := regexp.Compile(prefix + pattern)
	if err != nil {
		return nil, runtime.Errorf("invalid regex pattern '%s'", pattern)
	}
	return re, nil
}

func (i *interpreter) evalRegex(expr ast.Expr, frame *runtime.Environment, depth int) (runtime.Value, error) {
	switch n := expr.(type) {
	case *ast.RegexMatch:
		s, err := i.evalString(n.String, frame, depth, "RegexMatch string")
		if err != nil {
			return nil, err
		}
		pattern, err := i.evalString(n.Pattern, frame, depth, "RegexMatch pattern")
		if err != nil {
			return nil, err
		}
		re, err := compileRegex(pattern, n.Flags)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: re.MatchString(s)}, nil
	case *ast.RegexFindAll:
		s, err := i.evalString(n.String, frame, depth, "RegexFindAll string")
		if err != nil {
			return nil, err
		}
		pattern, err := i.evalString(n.Pattern, frame, depth, "RegexFindAll pattern")
		if err != nil {
			return nil, err
		}
		re, err := compileRegex(pattern, n.Flags)
		if err != nil {
			return nil, err
		}
		matches := re.FindAllString(s, -1)
		items := make([]runtime.Value, len(matches))
		for idx, match := range matches {
			items[idx] = runtime.StringValue{Val: match}
		}
		return &runtime.ArrayValue{Items: items}, nil
	case *ast.RegexReplace:
		s, err := i.evalString(n.String, frame, depth, "RegexReplace string")
		if err != nil {
			return nil, err
		}
		pattern, err := i.evalString(n.Pattern, frame, depth, "RegexReplace pattern")
		if err != nil {
			return nil, err
		}
		replacement, err := i.evalString(n.Replacement, frame, depth, "RegexReplace replacement")
		if err != nil {
			return nil, err
		}
		re, err := compileRegex(pattern, n.Flags)
		if err != nil {
			return nil, err
		}
		return runtime.StringValue{Val: re.ReplaceAllString(s, replacement)}, nil
	case *ast.RegexSplit:
		s, err := i.evalString(n.String, frame, depth, "RegexSplit string")
		if err != nil {
			return nil, err
		}
		pattern, err := i.evalString(n.Pattern, frame, depth, "RegexSplit pattern")
		if err != nil {
			return nil, err
		}
		re, err := compileRegex(pattern, n.Flags)
		if err != nil {
			return nil, err
		}
		limit := -1
		if n.MaxSplit > 0 {
			limit = n.MaxSplit + 1
		}
		parts := re.Split(s, limit)
		items := make([]runtime.Value, len(parts))
		for idx, part := range parts {
			items[idx] = runtime.StringValue{Val: part}
		}
		return &runtime.ArrayValue{Items: items}, nil
	default:
		return nil, runtime.Errorf("unexpected expression type '%s'", expr.TypeName())
	}
}
