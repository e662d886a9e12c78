package main

import (
	"fmt"
	"os"
)

const cliVersion = "coreil 0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliVersion)
		return 0
	case "run":
		return runRun(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "lint":
		return runLint(args[1:])
	case "emit":
		return runEmit(args[1:])
	case "exec":
		return runExec(args[1:])
	case "debug":
		return runDebug(args[1:])
	case "fmt":
		return runFmt(args[1:])
	default:
		// Bare file argument runs it, matching "coreil run <file>".
		return runRun(args)
	}
}
