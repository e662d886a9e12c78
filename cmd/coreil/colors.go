package main

import (
	"os"

	"github.com/mattn/go-isatty"
)

var stdoutIsTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

const (
	colorYellow = "33"
	colorRed    = "31"
	colorCyan   = "36"
)

// paint wraps text in an ANSI color when stdout is a terminal.
func paint(code, text string) string {
	if !stdoutIsTTY {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}
