package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/interp"
	"github.com/colmjr/English-compiler-sub000/pkg/runtime"
)

// debugQuit unwinds the interpreter when the user quits mid-program.
type debugQuit struct{}

func runDebug(args []string) int {
	doc, _, err := loadProgram(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("Core IL debugger - %d top-level statement(s)\n", len(doc.Body))
	fmt.Println("Type 'h' for help, 's' to step, 'c' to continue, 'q' to quit.")

	d := newDebugger(doc.Body)
	rc, quit := d.execute(doc)
	if quit {
		fmt.Println("\nDebugger exited.")
		return 0
	}
	fmt.Println("\nProgram finished.")
	return rc
}

type debugger struct {
	body        []ast.Stmt
	breakpoints map[int]bool
	mode        string // "step", "next", "continue"
	nextDepth   int
	lastCommand string
	in          *bufio.Reader
}

func newDebugger(body []ast.Stmt) *debugger {
	return &debugger{
		body:        body,
		breakpoints: map[int]bool{},
		mode:        "step",
		lastCommand: "s",
		in:          bufio.NewReader(os.Stdin),
	}
}

func (d *debugger) execute(doc *ast.Document) (rc int, quit bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(debugQuit); ok {
				quit = true
				return
			}
			panic(r)
		}
	}()
	return interp.Run(doc, interp.Options{OnStep: d.callback}), false
}

// callback pauses before a statement depending on the stepping mode.
func (d *debugger) callback(stmt ast.Stmt, index int, locals, globals map[string]runtime.Value, functions []string, callDepth int) {
	stop := false
	switch d.mode {
	case "step":
		stop = true
	case "next":
		stop = callDepth <= d.nextDepth
	case "continue":
		stop = callDepth == 0 && d.breakpoints[index]
	}
	if !stop {
		return
	}

	prefix := strings.Repeat("  ", callDepth)
	fmt.Printf("\n%s[depth=%d] body[%d]: %s\n", prefix, callDepth, index, formatStmt(stmt))
	d.commandLoop(index, locals, globals, callDepth)
}

func (d *debugger) commandLoop(index int, locals, globals map[string]runtime.Value, callDepth int) {
	for {
		fmt.Print("(debug) ")
		raw, err := d.in.ReadString('\n')
		if err != nil {
			fmt.Println()
			panic(debugQuit{})
		}

		cmd := strings.TrimSpace(raw)
		if cmd == "" {
			cmd = d.lastCommand
		}
		parts := strings.SplitN(cmd, " ", 2)
		verb := strings.ToLower(parts[0])
		arg := ""
		if len(parts) > 1 {
			arg = strings.TrimSpace(parts[1])
		}

		switch verb {
		case "s", "step":
			d.lastCommand = "s"
			d.mode = "step"
			return
		case "n", "next":
			d.lastCommand = "n"
			d.mode = "next"
			d.nextDepth = callDepth
			return
		case "c", "continue":
			d.lastCommand = "c"
			d.mode = "continue"
			return
		case "v", "vars":
			d.lastCommand = "v"
			showVars(locals, globals)
		case "p", "print":
			d.lastCommand = cmd
			showVar(arg, locals, globals)
		case "b", "break":
			d.lastCommand = cmd
			d.addBreakpoint(arg)
		case "rb":
			d.lastCommand = cmd
			d.removeBreakpoint(arg)
		case "bl", "breakpoints":
			d.lastCommand = "bl"
			d.listBreakpoints()
		case "l", "list":
			d.lastCommand = "l"
			d.listBody(index, callDepth)
		case "q", "quit":
			panic(debugQuit{})
		case "h", "help":
			d.lastCommand = "h"
			showHelp()
		default:
			fmt.Printf("Unknown command: %q. Type 'h' for help.\n", verb)
		}
	}
}

func showVars(locals, globals map[string]runtime.Value) {
	if len(globals) > 0 {
		fmt.Println("Global variables:")
		for _, name := range sortedNames(globals) {
			fmt.Printf("  %s = %s\n", name, formatValue(globals[name]))
		}
	} else {
		fmt.Println("Global variables: (none)")
	}
	if locals != nil {
		if len(locals) > 0 {
			fmt.Println("Local variables:")
			for _, name := range sortedNames(locals) {
				fmt.Printf("  %s = %s\n", name, formatValue(locals[name]))
			}
		} else {
			fmt.Println("Local variables: (none)")
		}
	}
}

func showVar(name string, locals, globals map[string]runtime.Value) {
	if name == "" {
		fmt.Println("Usage: p <variable_name>")
		return
	}
	if locals != nil {
		if value, ok := locals[name]; ok {
			fmt.Printf("  %s = %s\n", name, formatValue(value))
			return
		}
	}
	if value, ok := globals[name]; ok {
		fmt.Printf("  %s = %s\n", name, formatValue(value))
		return
	}
	fmt.Printf("  Variable '%s' not found\n", name)
}

func (d *debugger) addBreakpoint(arg string) {
	if arg == "" {
		fmt.Println("Usage: b <body_index>")
		return
	}
	idx, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Printf("Invalid index: %s\n", arg)
		return
	}
	if idx < 0 || idx >= len(d.body) {
		fmt.Printf("Index out of range (0..%d)\n", len(d.body)-1)
		return
	}
	d.breakpoints[idx] = true
	fmt.Printf("Breakpoint set at body[%d]: %s\n", idx, formatStmt(d.body[idx]))
}

func (d *debugger) removeBreakpoint(arg string) {
	if arg == "" {
		fmt.Println("Usage: rb <body_index>")
		return
	}
	idx, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Printf("Invalid index: %s\n", arg)
		return
	}
	if d.breakpoints[idx] {
		delete(d.breakpoints, idx)
		fmt.Printf("Breakpoint removed at body[%d]\n", idx)
	} else {
		fmt.Printf("No breakpoint at body[%d]\n", idx)
	}
}

func (d *debugger) listBreakpoints() {
	if len(d.breakpoints) == 0 {
		fmt.Println("No breakpoints set.")
		return
	}
	indexes := make([]int, 0, len(d.breakpoints))
	for idx := range d.breakpoints {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	fmt.Println("Breakpoints:")
	for _, idx := range indexes {
		fmt.Printf("  body[%d]: %s\n", idx, formatStmt(d.body[idx]))
	}
}

// listBody shows the top-level statements; the current marker only
// applies when stopped at depth 0, since inner indexes are relative to
// their own block.
func (d *debugger) listBody(current, callDepth int) {
	if len(d.body) == 0 {
		fmt.Println("(empty body)")
		return
	}
	for i, stmt := range d.body {
		marker := "   "
		if callDepth == 0 && i == current {
			marker = paint(colorCyan, ">>>")
		}
		bp := ""
		if d.breakpoints[i] {
			bp = " *"
		}
		fmt.Printf("  %s [%d] %s%s\n", marker, i, formatStmt(stmt), bp)
	}
}

func showHelp() {
	fmt.Println("Debugger commands:")
	fmt.Println("  s, step       Step one statement (enters functions)")
	fmt.Println("  n, next       Step one statement (steps over functions)")
	fmt.Println("  c, continue   Run until next breakpoint")
	fmt.Println("  v, vars       Show all variables")
	fmt.Println("  p <name>      Print a specific variable")
	fmt.Println("  b <index>     Set breakpoint at body index")
	fmt.Println("  rb <index>    Remove breakpoint")
	fmt.Println("  bl            List all breakpoints")
	fmt.Println("  l, list       List body statements")
	fmt.Println("  q, quit       Exit debugger")
	fmt.Println("  h, help       Show this help")
	fmt.Println("  (empty)       Repeat last command")
}

func sortedNames(values map[string]runtime.Value) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const maxValueWidth = 80

func formatValue(v runtime.Value) string {
	raw := runtime.Repr(v)
	if len(raw) > maxValueWidth {
		return raw[:maxValueWidth-3] + "..."
	}
	return raw
}

// formatStmt is a one-line summary; arguments and bodies are elided.
func formatStmt(stmt ast.Stmt) string {
	switch n := stmt.(type) {
	case *ast.Let:
		return fmt.Sprintf("Let %s = ...", n.Name)
	case *ast.Assign:
		return fmt.Sprintf("Assign %s = ...", n.Name)
	case *ast.Print:
		plural := "s"
		if len(n.Args) == 1 {
			plural = ""
		}
		return fmt.Sprintf("Print (%d arg%s)", len(n.Args), plural)
	case *ast.For:
		return fmt.Sprintf("For %s in ...", n.Var)
	case *ast.ForEach:
		return fmt.Sprintf("ForEach %s in ...", n.Var)
	case *ast.FuncDef:
		return fmt.Sprintf("FuncDef %s(%s)", n.Name, strings.Join(n.Params, ", "))
	case *ast.Call:
		return fmt.Sprintf("Call %s(...)", n.Name)
	case *ast.SetField:
		return fmt.Sprintf("SetField .%s = ...", n.Name)
	case *ast.TryCatch:
		return fmt.Sprintf("TryCatch (catch_var=%s)", n.CatchVar)
	case *ast.Break:
		return "Break"
	case *ast.Continue:
		return "Continue"
	case *ast.If:
		return "If ..."
	case *ast.While:
		return "While ..."
	case *ast.Return:
		return "Return ..."
	case *ast.Throw:
		return "Throw ..."
	case *ast.MapPut:
		return "Set [key] = ..."
	case *ast.SetIndex:
		return "SetIndex [i] = ..."
	case *ast.Push:
		return "Push ..."
	default:
		return stmt.TypeName()
	}
}
