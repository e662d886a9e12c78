package interp

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/runtime"
)

// parseJSON decodes a JSON document into runtime values, keeping object
// keys in source order. encoding/json's map decoding would lose that, so
// objects are rebuilt from the token stream.
func parseJSON(source string) (runtime.Value, error) {
	dec := json.NewDecoder(strings.NewReader(source))
	dec.UseNumber()
	value, err := parseJSONValue(dec)
	if err != nil {
		return nil, runtime.Errorf("invalid JSON: %s", err.Error())
	}
	if dec.More() {
		return nil, runtime.Errorf("invalid JSON: trailing content")
	}
	return value, nil
}

func parseJSONValue(dec *json.Decoder) (runtime.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return parseJSONToken(dec, tok)
}

func parseJSONToken(dec *json.Decoder, tok json.Token) (runtime.Value, error) {
	switch t := tok.(type) {
	case nil:
		return runtime.NullValue{}, nil
	case bool:
		return runtime.BoolValue{Val: t}, nil
	case string:
		return runtime.StringValue{Val: t}, nil
	case json.Number:
		text := t.String()
		if !strings.ContainsAny(text, ".eE") {
			n, err := t.Int64()
			if err != nil {
				return nil, err
			}
			return runtime.IntValue{Val: n}, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return runtime.FloatValue{Val: f}, nil
	case json.Delim:
		switch t {
		case '[':
			items := []runtime.Value{}
			for dec.More() {
				item, err := parseJSONValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return &runtime.ArrayValue{Items: items}, nil
		case '{':
			m := runtime.NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				value, err := parseJSONValue(dec)
				if err != nil {
					return nil, err
				}
				if err := m.Set(runtime.StringValue{Val: key}, value); err != nil {
					return nil, err
				}
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return nil, runtime.Errorf("unexpected JSON token")
}

// stringifyJSON renders a value as JSON. Pretty mode indents by two
// spaces; compact mode still puts a space after commas and colons.
func stringifyJSON(value runtime.Value, pretty bool) (runtime.Value, error) {
	var b strings.Builder
	indent := -1
	if pretty {
		indent = 0
	}
	writeJSON(&b, value, indent)
	return runtime.StringValue{Val: b.String()}, nil
}

func writeJSON(b *strings.Builder, value runtime.Value, depth int) {
	switch v := value.(type) {
	case runtime.NullValue:
		b.WriteString("null")
	case runtime.BoolValue:
		if v.Val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case runtime.IntValue:
		b.WriteString(strconv.FormatInt(v.Val, 10))
	case runtime.FloatValue:
		b.WriteString(runtime.FormatFloat(v.Val))
	case runtime.StringValue:
		writeJSONString(b, v.Val)
	case *runtime.ArrayValue:
		if len(v.Items) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[")
		for idx, item := range v.Items {
			if idx > 0 {
				writeJSONSep(b, depth)
			} else {
				writeJSONOpen(b, depth)
			}
			writeJSON(b, item, childDepth(depth))
		}
		writeJSONClose(b, depth, "]")
	case *runtime.MapValue:
		keys := v.Keys()
		if len(keys) == 0 {
			b.WriteString("{}")
			return
		}
		values := v.Values()
		b.WriteString("{")
		for idx, key := range keys {
			if idx > 0 {
				writeJSONSep(b, depth)
			} else {
				writeJSONOpen(b, depth)
			}
			writeJSON(b, key, childDepth(depth))
			b.WriteString(": ")
			writeJSON(b, values[idx], childDepth(depth))
		}
		writeJSONClose(b, depth, "}")
	default:
		writeJSONString(b, runtime.Format(value))
	}
}

func childDepth(depth int) int {
	if depth < 0 {
		return depth
	}
	return depth + 1
}

func writeJSONOpen(b *strings.Builder, depth int) {
	if depth >= 0 {
		b.WriteString("\n")
		b.WriteString(strings.Repeat(" ", 2*(depth+1)))
	}
}

func writeJSONSep(b *strings.Builder, depth int) {
	if depth >= 0 {
		b.WriteString(",\n")
		b.WriteString(strings.Repeat(" ", 2*(depth+1)))
	} else {
		b.WriteString(", ")
	}
}

func writeJSONClose(b *strings.Builder, depth int, bracket string) {
	if depth >= 0 {
		b.WriteString("\n")
		b.WriteString(strings.Repeat(" ", 2*depth))
	}
	b.WriteString(bracket)
}

func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString("\\u")
				hex := strconv.FormatInt(int64(r), 16)
				b.WriteString(strings.Repeat("0", 4-len(hex)))
				b.WriteString(hex)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}
