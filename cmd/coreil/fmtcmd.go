package main

import (
	"fmt"
	"os"
)

// runFmt re-encodes a document with canonical field ordering and
// two-space indentation. With -w the file is rewritten in place,
// otherwise the result goes to stdout.
func runFmt(args []string) int {
	write := false
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "-w" {
			write = true
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

	out, err := doc.EncodeIndent()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}

	if write {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	os.Stdout.Write(out)
	return 0
}
