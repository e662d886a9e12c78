package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/lint"
)

func runLint(args []string) int {
	strict := false
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "--strict" {
			strict = true
			continue
		}
		rest = append(rest, arg)
	}

	path, _, err := resolveEntry(rest)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	doc, err := loadDocument(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	diags := lint.Lint(doc)
	if len(diags) == 0 {
		fmt.Println("No lint issues found.")
		return 0
	}

	warningCount, errorCount := 0, 0
	for _, d := range diags {
		code := colorYellow
		if d.Severity == "error" {
			code = colorRed
			errorCount++
		} else {
			warningCount++
		}
		severity := paint(code, strings.ToUpper(d.Severity))
		fmt.Printf("[%s] %s: %s - %s\n", severity, d.Path, d.Rule, d.Message)
	}
	fmt.Printf("\n%d issue(s): %d warning(s), %d error(s)\n", len(diags), warningCount, errorCount)

	if strict || errorCount > 0 {
		return 1
	}
	return 0
}
