// Package interp is the reference tree-walking evaluator for Core IL.
// It defines the ground-truth observable semantics every emitted backend
// has to reproduce: printed output, error messages and exit codes.
package interp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/runtime"
)

// MaxCallDepth bounds recursion; exceeding it is a runtime error, not a
// validation error, because depth is only known dynamically.
const MaxCallDepth = 1000

// StepFunc observes one statement about to execute. Locals is nil at
// the top level; functions lists the names defined so far.
type StepFunc func(stmt ast.Stmt, index int, locals, globals map[string]runtime.Value, functions []string, callDepth int)

// Options configures a run. Zero values select stdout, stdin and the
// default print-and-exit-1 error behavior.
type Options struct {
	Stdout  io.Writer
	Stdin   io.Reader
	OnStep  StepFunc
	OnError func(message string)
}

// Run executes a document and returns the process exit code: 0 on
// success, 1 on any uncaught runtime error.
func Run(doc *ast.Document, opts Options) int {
	if err := RunDocument(doc, opts); err != nil {
		message := "runtime error: " + err.Error()
		if opts.OnError != nil {
			opts.OnError(message)
		} else {
			out := opts.Stdout
			if out == nil {
				out = os.Stdout
			}
			fmt.Fprintln(out, message)
		}
		return 1
	}
	return 0
}

// RunDocument executes a document and surfaces the failure, if any,
// without the "runtime error: " framing.
func RunDocument(doc *ast.Document, opts Options) error {
	if !ast.SupportedVersions[doc.Version] {
		return runtime.Errorf("%s", ast.VersionErrorMessage())
	}
	in := opts.Stdin
	if in == nil {
		in = os.Stdin
	}
	interp := &interpreter{
		out:       opts.Stdout,
		in:        bufio.NewReader(in),
		onStep:    opts.OnStep,
		globals:   runtime.NewEnvironment(nil),
		functions: map[string]*ast.FuncDef{},
	}
	if interp.out == nil {
		interp.out = os.Stdout
	}
	err := interp.execBlock(doc.Body, nil, 0)
	if err != nil {
		if msg, ok := thrownMessage(err); ok {
			return runtime.Errorf("%s", msg)
		}
		// A stray break/continue/return slipped past validation.
		return runtime.Errorf("%s", err.Error())
	}
	return nil
}

type interpreter struct {
	out       io.Writer
	in        *bufio.Reader
	onStep    StepFunc
	globals   *runtime.Environment
	functions map[string]*ast.FuncDef
}

// env returns the scope bindings resolve against: the innermost frame
// during a call, the globals otherwise.
func (i *interpreter) env(frame *runtime.Environment) *runtime.Environment {
	if frame != nil {
		return frame
	}
	return i.globals
}

func (i *interpreter) execBlock(body []ast.Stmt, frame *runtime.Environment, depth int) error {
	for index, stmt := range body {
		if i.onStep != nil {
			i.step(stmt, index, frame, depth)
		}
		if err := i.execStmt(stmt, frame, depth); err != nil {
			return err
		}
	}
	return nil
}

func (i *interpreter) step(stmt ast.Stmt, index int, frame *runtime.Environment, depth int) {
	var locals map[string]runtime.Value
	if frame != nil {
		locals = frame.Snapshot()
	}
	names := make([]string, 0, len(i.functions))
	for name := range i.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	i.onStep(stmt, index, locals, i.globals.Snapshot(), names, depth)
}

func (i *interpreter) execStmt(stmt ast.Stmt, frame *runtime.Environment, depth int) error {
	switch n := stmt.(type) {
	case *ast.Let:
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return err
		}
		i.env(frame).Define(n.Name, value)
		return nil
	case *ast.Assign:
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return err
		}
		i.env(frame).Define(n.Name, value)
		return nil
	case *ast.If:
		test, err := i.eval(n.Test, frame, depth)
		if err != nil {
			return err
		}
		if runtime.Truthy(test) {
			return i.execBlock(n.Then, frame, depth)
		}
		return i.execBlock(n.Else, frame, depth)
	case *ast.While:
		for {
			test, err := i.eval(n.Test, frame, depth)
			if err != nil {
				return err
			}
			if !runtime.Truthy(test) {
				return nil
			}
			if err := i.execBlock(n.Body, frame, depth); err != nil {
				switch err.(type) {
				case breakSignal:
					return nil
				case continueSignal:
					continue
				default:
					return err
				}
			}
		}
	case *ast.For:
		return i.execLoop(n.Var, n.Iter, n.Body, frame, depth)
	case *ast.ForEach:
		return i.execLoop(n.Var, n.Iter, n.Body, frame, depth)
	case *ast.Switch:
		test, err := i.eval(n.Test, frame, depth)
		if err != nil {
			return err
		}
		for _, c := range n.Cases {
			value, err := i.eval(c.Value, frame, depth)
			if err != nil {
				return err
			}
			if runtime.Equal(test, value) {
				return i.execBlock(c.Body, frame, depth)
			}
		}
		return i.execBlock(n.Default, frame, depth)
	case *ast.Break:
		return breakSignal{}
	case *ast.Continue:
		return continueSignal{}
	case *ast.Return:
		var value runtime.Value = runtime.NullValue{}
		if n.Value != nil {
			v, err := i.eval(n.Value, frame, depth)
			if err != nil {
				return err
			}
			value = v
		}
		return returnSignal{value: value}
	case *ast.Throw:
		message, err := i.eval(n.Message, frame, depth)
		if err != nil {
			return err
		}
		return thrownSignal{message: runtime.Format(message)}
	case *ast.TryCatch:
		return i.execTryCatch(n, frame, depth)
	case *ast.Print:
		args := make([]runtime.Value, len(n.Args))
		for idx, arg := range n.Args {
			value, err := i.eval(arg, frame, depth)
			if err != nil {
				return err
			}
			args[idx] = value
		}
		fmt.Fprintln(i.out, runtime.FormatArgs(args))
		return nil
	case *ast.Call:
		_, err := i.call(n, frame, depth)
		return err
	case *ast.MapPut:
		return i.execMapPut(n, frame, depth)
	case *ast.SetIndex:
		return i.execSetIndex(n, frame, depth)
	case *ast.SetField:
		base, err := i.eval(n.Base, frame, depth)
		if err != nil {
			return err
		}
		record, ok := base.(*runtime.RecordValue)
		if !ok {
			return runtime.Errorf("SetField base must be a record, got %s", base.Kind())
		}
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return err
		}
		record.SetField(n.Name, value)
		return nil
	case *ast.Push:
		base, err := i.eval(n.Base, frame, depth)
		if err != nil {
			return err
		}
		arr, ok := base.(*runtime.ArrayValue)
		if !ok {
			return runtime.Errorf("Push base must be an array, got %s", base.Kind())
		}
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return err
		}
		arr.Items = append(arr.Items, value)
		return nil
	case *ast.SetAdd, *ast.SetRemove:
		return i.execSetMutation(stmt, frame, depth)
	case *ast.PushBack, *ast.PushFront, *ast.PopFront, *ast.PopBack:
		return i.execDequeMutation(stmt, frame, depth)
	case *ast.HeapPush:
		base, err := i.evalHeap(n.Base, frame, depth)
		if err != nil {
			return err
		}
		priority, err := i.eval(n.Priority, frame, depth)
		if err != nil {
			return err
		}
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return err
		}
		return base.Push(priority, value)
	case *ast.HeapPop:
		base, err := i.evalHeap(n.Base, frame, depth)
		if err != nil {
			return err
		}
		value, err := base.Pop()
		if err != nil {
			return err
		}
		i.env(frame).Define(n.Target, value)
		return nil
	case *ast.FuncDef:
		i.functions[n.Name] = n
		return nil
	case *ast.Import:
		// Imports are flattened by the driver before execution; one
		// reaching the interpreter means the document skipped linking.
		return runtime.Errorf("unresolved import '%s'", n.Path)
	default:
		return runtime.Errorf("unexpected statement type '%s'", stmt.TypeName())
	}
}

func (i *interpreter) execTryCatch(n *ast.TryCatch, frame *runtime.Environment, depth int) error {
	bodyErr := i.execBlock(n.Body, frame, depth)
	if bodyErr != nil {
		if message, catchable := thrownMessage(bodyErr); catchable {
			i.env(frame).Define(n.CatchVar, runtime.StringValue{Val: message})
			bodyErr = i.execBlock(n.CatchBody, frame, depth)
		}
	}
	// The finally block runs no matter how the body or catch finished,
	// including when a break/continue/return signal is passing through.
	if len(n.Finally) > 0 {
		if err := i.execBlock(n.Finally, frame, depth); err != nil {
			return err
		}
	}
	return bodyErr
}

func (i *interpreter) execLoop(varName string, iter ast.Expr, body []ast.Stmt, frame *runtime.Environment, depth int) error {
	iterable, err := i.eval(iter, frame, depth)
	if err != nil {
		return err
	}
	run := func(element runtime.Value) (stop bool, err error) {
		i.env(frame).Define(varName, element)
		if err := i.execBlock(body, frame, depth); err != nil {
			switch err.(type) {
			case breakSignal:
				return true, nil
			case continueSignal:
				return false, nil
			default:
				return true, err
			}
		}
		return false, nil
	}

	switch v := iterable.(type) {
	case *runtime.RangeValue:
		for n := v.From; v.Contains(n); n += v.Step() {
			if stop, err := run(runtime.IntValue{Val: n}); stop || err != nil {
				return err
			}
		}
		return nil
	case *runtime.ArrayValue:
		// Index-based so that in-body mutation stays visible, matching
		// the reference behavior of iterating the live list.
		for idx := 0; idx < len(v.Items); idx++ {
			if stop, err := run(v.Items[idx]); stop || err != nil {
				return err
			}
		}
		return nil
	case runtime.TupleValue:
		for _, item := range v.Items {
			if stop, err := run(item); stop || err != nil {
				return err
			}
		}
		return nil
	case runtime.StringValue:
		for _, r := range v.Val {
			if stop, err := run(runtime.StringValue{Val: string(r)}); stop || err != nil {
				return err
			}
		}
		return nil
	case *runtime.MapValue:
		for _, key := range v.Keys() {
			if stop, err := run(key); stop || err != nil {
				return err
			}
		}
		return nil
	case *runtime.SetValue:
		for _, item := range v.Items() {
			if stop, err := run(item); stop || err != nil {
				return err
			}
		}
		return nil
	default:
		return runtime.Errorf("cannot iterate over %s", iterable.Kind())
	}
}

func (i *interpreter) execMapPut(n *ast.MapPut, frame *runtime.Environment, depth int) error {
	base, err := i.eval(n.Base, frame, depth)
	if err != nil {
		return err
	}
	m, ok := base.(*runtime.MapValue)
	if !ok {
		return runtime.Errorf("Set base must be a map, got %s", base.Kind())
	}
	key, err := i.eval(n.Key, frame, depth)
	if err != nil {
		return err
	}
	value, err := i.eval(n.Value, frame, depth)
	if err != nil {
		return err
	}
	return m.Set(key, value)
}

func (i *interpreter) execSetIndex(n *ast.SetIndex, frame *runtime.Environment, depth int) error {
	base, err := i.eval(n.Base, frame, depth)
	if err != nil {
		return err
	}
	arr, ok := base.(*runtime.ArrayValue)
	if !ok {
		return runtime.Errorf("SetIndex base must be an array, got %s", base.Kind())
	}
	indexValue, err := i.eval(n.Index, frame, depth)
	if err != nil {
		return err
	}
	index, ok := indexValue.(runtime.IntValue)
	if !ok {
		return runtime.Errorf("SetIndex index must be an integer, got %s", indexValue.Kind())
	}
	resolved, inRange := runtime.ResolveIndex(index.Val, len(arr.Items))
	if !inRange {
		return runtime.Errorf("index %d out of range for array of length %d", index.Val, len(arr.Items))
	}
	value, err := i.eval(n.Value, frame, depth)
	if err != nil {
		return err
	}
	arr.Items[resolved] = value
	return nil
}

func (i *interpreter) execSetMutation(stmt ast.Stmt, frame *runtime.Environment, depth int) error {
	var baseExpr, valueExpr ast.Expr
	add := false
	switch n := stmt.(type) {
	case *ast.SetAdd:
		baseExpr, valueExpr, add = n.Base, n.Value, true
	case *ast.SetRemove:
		baseExpr, valueExpr = n.Base, n.Value
	}
	base, err := i.eval(baseExpr, frame, depth)
	if err != nil {
		return err
	}
	set, ok := base.(*runtime.SetValue)
	if !ok {
		return runtime.Errorf("%s base must be a set, got %s", stmt.TypeName(), base.Kind())
	}
	value, err := i.eval(valueExpr, frame, depth)
	if err != nil {
		return err
	}
	if add {
		set.Add(value)
	} else {
		set.Remove(value)
	}
	return nil
}

func (i *interpreter) execDequeMutation(stmt ast.Stmt, frame *runtime.Environment, depth int) error {
	evalDeque := func(expr ast.Expr) (*runtime.DequeValue, error) {
		base, err := i.eval(expr, frame, depth)
		if err != nil {
			return nil, err
		}
		deque, ok := base.(*runtime.DequeValue)
		if !ok {
			return nil, runtime.Errorf("%s base must be a deque, got %s", stmt.TypeName(), base.Kind())
		}
		return deque, nil
	}
	switch n := stmt.(type) {
	case *ast.PushBack:
		deque, err := evalDeque(n.Base)
		if err != nil {
			return err
		}
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return err
		}
		deque.PushBack(value)
		return nil
	case *ast.PushFront:
		deque, err := evalDeque(n.Base)
		if err != nil {
			return err
		}
		value, err := i.eval(n.Value, frame, depth)
		if err != nil {
			return err
		}
		deque.PushFront(value)
		return nil
	case *ast.PopFront:
		deque, err := evalDeque(n.Base)
		if err != nil {
			return err
		}
		value, err := deque.PopFront()
		if err != nil {
			return err
		}
		i.env(frame).Define(n.Target, value)
		return nil
	case *ast.PopBack:
		deque, err := evalDeque(n.Base)
		if err != nil {
			return err
		}
		value, err := deque.PopBack()
		if err != nil {
			return err
		}
		i.env(frame).Define(n.Target, value)
		return nil
	}
	return runtime.Errorf("unexpected deque statement '%s'", stmt.TypeName())
}

func (i *interpreter) evalHeap(expr ast.Expr, frame *runtime.Environment, depth int) (*runtime.HeapValue, error) {
	base, err := i.eval(expr, frame, depth)
	if err != nil {
		return nil, err
	}
	h, ok := base.(*runtime.HeapValue)
	if !ok {
		return nil, runtime.Errorf("heap operation on %s", base.Kind())
	}
	return h, nil
}

func (i *interpreter) call(n *ast.Call, frame *runtime.Environment, depth int) (runtime.Value, error) {
	args := make([]runtime.Value, len(n.Args))
	for idx, arg := range n.Args {
		value, err := i.eval(arg, frame, depth)
		if err != nil {
			return nil, err
		}
		args[idx] = value
	}
	if builtin, ok := builtins[n.Name]; ok {
		return builtin(i, args)
	}
	fn, ok := i.functions[n.Name]
	if !ok {
		return nil, runtime.Errorf("unknown function '%s'", n.Name)
	}
	if depth >= MaxCallDepth {
		return nil, runtime.Errorf("maximum call depth exceeded")
	}
	if len(args) != len(fn.Params) {
		return nil, runtime.Errorf("function '%s' expects %d arguments, got %d", n.Name, len(fn.Params), len(args))
	}
	callFrame := runtime.NewEnvironment(i.globals)
	for idx, param := range fn.Params {
		callFrame.Define(param, args[idx])
	}
	err := i.execBlock(fn.Body, callFrame, depth+1)
	if err != nil {
		if ret, ok := err.(returnSignal); ok {
			return ret.value, nil
		}
		return nil, err
	}
	return runtime.NullValue{}, nil
}
