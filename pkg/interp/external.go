package interp

import (
	"os"
	"time"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/runtime"
)

// externals is the small platform surface the reference evaluator
// grants to ExternalCall. Anything outside it fails with a catchable
// runtime error, same as a backend refusing to emit the node.
var externals = map[string]func(args []runtime.Value) (runtime.Value, error){
	"fs.read_file":  externalReadFile,
	"fs.write_file": externalWriteFile,
	"fs.exists":     externalExists,
	"os.getenv":     externalGetenv,
	"time.now":      externalNow,
}

func (i *interpreter) evalExternal(n *ast.ExternalCall, frame *runtime.Environment, depth int) (runtime.Value, error) {
	fn, ok := externals[n.Module+"."+n.Function]
	if !ok {
		return nil, runtime.Errorf("unsupported external call '%s.%s'", n.Module, n.Function)
	}
	args, err := i.evalAll(n.Args, frame, depth)
	if err != nil {
		return nil, err
	}
	return fn(args)
}

func externalReadFile(args []runtime.Value) (runtime.Value, error) {
	if len(args) != 1 {
		return nil, runtime.Errorf("fs.read_file expects 1 argument")
	}
	path, ok := args[0].(runtime.StringValue)
	if !ok {
		return nil, runtime.Errorf("fs.read_file path must be a string")
	}
	data, err := os.ReadFile(path.Val)
	if err != nil {
		return nil, runtime.Errorf("fs.read_file: %s", err.Error())
	}
	return runtime.StringValue{Val: string(data)}, nil
}

func externalWriteFile(args []runtime.Value) (runtime.Value, error) {
	if len(args) != 2 {
		return nil, runtime.Errorf("fs.write_file expects 2 arguments")
	}
	path, ok := args[0].(runtime.StringValue)
	if !ok {
		return nil, runtime.Errorf("fs.write_file path must be a string")
	}
	content, ok := args[1].(runtime.StringValue)
	if !ok {
		return nil, runtime.Errorf("fs.write_file content must be a string")
	}
	if err := os.WriteFile(path.Val, []byte(content.Val), 0o644); err != nil {
		return nil, runtime.Errorf("fs.write_file: %s", err.Error())
	}
	return runtime.NullValue{}, nil
}

func externalExists(args []runtime.Value) (runtime.Value, error) {
	if len(args) != 1 {
		return nil, runtime.Errorf("fs.exists expects 1 argument")
	}
	path, ok := args[0].(runtime.StringValue)
	if !ok {
		return nil, runtime.Errorf("fs.exists path must be a string")
	}
	_, err := os.Stat(path.Val)
	return runtime.BoolValue{Val: err == nil}, nil
}

func externalGetenv(args []runtime.Value) (runtime.Value, error) {
	if len(args) != 1 {
		return nil, runtime.Errorf("os.getenv expects 1 argument")
	}
	name, ok := args[0].(runtime.StringValue)
	if !ok {
		return nil, runtime.Errorf("os.getenv name must be a string")
	}
	return runtime.StringValue{Val: os.Getenv(name.Val)}, nil
}

func externalNow(args []runtime.Value) (runtime.Value, error) {
	if len(args) != 0 {
		return nil, runtime.Errorf("time.now expects no arguments")
	}
	return runtime.FloatValue{Val: float64(time.Now().UnixNano()) / 1e9}, nil
}
