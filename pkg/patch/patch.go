// Package patch replaces 1-indexed inclusive line ranges of a source text.
package patch

import (
	"fmt"
	"strings"

	"github.com/duynguyendang/pyscope/pkg/common/errors"
)

// Apply splices replacement over lines [start, end] of text and returns the
// new full text. Line terminators of untouched lines are preserved byte for
// byte; the replacement gets a trailing terminator appended when missing so
// the following line is not merged into it.
//
// The range is validated against the current text: start must be at least 1,
// end must not exceed the line count, and start must not exceed end. On any
// validation failure the input text is returned unchanged alongside
// errors.ErrInvalidRange.
func Apply(text string, start, end int, replacement string) (string, error) {
	lines := SplitLines(text)

	if start < 1 {
		return text, fmt.Errorf("%w: start_line %d must be >= 1", errors.ErrInvalidRange, start)
	}
	if end > len(lines) {
		return text, fmt.Errorf("%w: end_line %d exceeds line count %d", errors.ErrInvalidRange, end, len(lines))
	}
	if start > end {
		return text, fmt.Errorf("%w: start_line %d > end_line %d", errors.ErrInvalidRange, start, end)
	}

	if !strings.HasSuffix(replacement, "\n") {
		replacement += "\n"
	}

	var sb strings.Builder
	for _, line := range lines[:start-1] {
		sb.WriteString(line)
	}
	sb.WriteString(replacement)
	for _, line := range lines[end:] {
		sb.WriteString(line)
	}
	return sb.String(), nil
}

// SplitLines splits text into lines keeping each line's own terminator. A
// trailing terminator does not produce a phantom empty last line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// LineCount reports how many lines text has under SplitLines semantics.
func LineCount(text string) int {
	return len(SplitLines(text))
}
