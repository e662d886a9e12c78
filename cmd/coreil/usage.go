package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/emit"
)

func printUsage() {
	targets := strings.Join(emit.Targets(), "|")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  coreil run [file.coreil.json]")
	fmt.Fprintln(os.Stderr, "  coreil <file.coreil.json>")
	fmt.Fprintln(os.Stderr, "  coreil validate [file.coreil.json]")
	fmt.Fprintln(os.Stderr, "  coreil lint [--strict] [file.coreil.json]")
	fmt.Fprintf(os.Stderr, "  coreil emit --target=%s [-o dir] [file.coreil.json]\n", targets)
	fmt.Fprintf(os.Stderr, "  coreil exec --target=%s [--check] [file.coreil.json]\n", targets)
	fmt.Fprintln(os.Stderr, "  coreil debug [file.coreil.json]")
	fmt.Fprintln(os.Stderr, "  coreil fmt [-w] [file.coreil.json]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Without a file argument, the entry document named by coreil.yaml")
	fmt.Fprintln(os.Stderr, "in the current directory is used.")
}
