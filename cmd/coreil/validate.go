package main

import (
	"fmt"
	"os"

	"github.com/colmjr/English-compiler-sub000/pkg/validator"
)

func runValidate(args []string) int {
	path, _, err := resolveEntry(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	issues, err := validator.ValidateBytes(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 1
	}
	if len(issues) > 0 {
		for _, issue := range issues {
			fmt.Println(issue)
		}
		return 1
	}
	fmt.Println("No validation errors found.")
	return 0
}
