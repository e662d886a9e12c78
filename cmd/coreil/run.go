package main

import (
	"fmt"
	"os"

	"github.com/colmjr/English-compiler-sub000/pkg/interp"
)

func runRun(args []string) int {
	doc, _, err := loadProgram(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return interp.Run(doc, interp.Options{})
}
