// Package sourcemap composes the two mapping stages a generated program
// carries: source text line → document statement index (produced by the
// frontend, carried on the document), and statement index → emitted
// target line (produced by an emitter). Composing them answers "which
// generated lines came from this line of the original text".
package sourcemap

import "sort"

// SourceToStatements maps 1-indexed source line numbers (string keys,
// matching the document's source_map encoding) to 0-indexed statement
// indices in the document body.
type SourceToStatements map[string][]int

// StatementToLines maps 0-indexed statement indices to 0-indexed line
// numbers in an emitted file.
type StatementToLines map[int][]int

// Compose chains the two maps into source line → emitted lines. Lines
// whose statements produced no output are omitted; emitted lines are
// sorted and deduplicated.
func Compose(source SourceToStatements, target StatementToLines) SourceToStatements {
	out := SourceToStatements{}
	for line, indices := range source {
		seen := map[int]bool{}
		var lines []int
		for _, index := range indices {
			for _, targetLine := range target[index] {
				if !seen[targetLine] {
					seen[targetLine] = true
					lines = append(lines, targetLine)
				}
			}
		}
		if len(lines) > 0 {
			sort.Ints(lines)
			out[line] = lines
		}
	}
	return out
}
