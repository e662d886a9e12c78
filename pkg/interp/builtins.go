package interp

import (
	"fmt"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/runtime"
)

type builtinFunc func(i *interpreter, args []runtime.Value) (runtime.Value, error)

// Builtins shadow user functions of the same name. The helper trio at
// the bottom survives only for pre-0.5 documents; the validator rejects
// calls to them in sealed versions.
var builtins = map[string]builtinFunc{
	"print":          builtinPrint,
	"input":          builtinInput,
	"get_or_default": builtinGetOrDefault,
	"entries":        builtinEntries,
	"append":         builtinAppend,
}

func builtinPrint(i *interpreter, args []runtime.Value) (runtime.Value, error) {
	if _, err := fmt.Fprintln(i.out, runtime.FormatArgs(args)); err != nil {
		return nil, runtime.Errorf("%s", err.Error())
	}
	return runtime.NullValue{}, nil
}

func builtinInput(i *interpreter, args []runtime.Value) (runtime.Value, error) {
	if len(args) > 0 {
		fmt.Fprint(i.out, runtime.Format(args[0]))
	}
	line, err := i.in.ReadString('\n')
	if err != nil && line == "" {
		return runtime.StringValue{}, nil
	}
	line = strings.TrimRight(line, "\r\n")
	return runtime.StringValue{Val: line}, nil
}

func builtinGetOrDefault(i *interpreter, args []runtime.Value) (runtime.Value, error) {
	if len(args) != 3 {
		return nil, runtime.Errorf("get_or_default expects 3 arguments")
	}
	m, ok := args[0].(*runtime.MapValue)
	if !ok {
		return nil, runtime.Errorf("get_or_default base must be a map")
	}
	value, found, err := m.Get(args[1])
	if err != nil {
		return nil, err
	}
	if !found {
		return args[2], nil
	}
	return value, nil
}

func builtinEntries(i *interpreter, args []runtime.Value) (runtime.Value, error) {
	if len(args) != 1 {
		return nil, runtime.Errorf("entries expects 1 argument")
	}
	m, ok := args[0].(*runtime.MapValue)
	if !ok {
		return nil, runtime.Errorf("entries base must be a map")
	}
	keys := m.Keys()
	values := m.Values()
	items := make([]runtime.Value, len(keys))
	for idx := range keys {
		items[idx] = runtime.TupleValue{Items: []runtime.Value{keys[idx], values[idx]}}
	}
	return &runtime.ArrayValue{Items: items}, nil
}

func builtinAppend(i *interpreter, args []runtime.Value) (runtime.Value, error) {
	if len(args) != 2 {
		return nil, runtime.Errorf("append expects 2 arguments")
	}
	arr, ok := args[0].(*runtime.ArrayValue)
	if !ok {
		return nil, runtime.Errorf("append base must be an array")
	}
	arr.Items = append(arr.Items, args[1])
	return runtime.NullValue{}, nil
}
