// Package strings formats text for single-line table cells.
package strings

import (
	"strings"
	"unicode/utf8"
)

// DefaultCellWidth is where values are cut in terminal tables.
const DefaultCellWidth = 80

// minCellWidth leaves room for one character and the ellipsis.
const minCellWidth = 4

// Cell collapses all whitespace in s to single spaces and cuts the result to
// width runes, ending it with "..." when it was cut. Widths below 4 are
// raised to 4.
func Cell(s string, width int) string {
	if width < minCellWidth {
		width = minCellWidth
	}
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-3]) + "..."
}
