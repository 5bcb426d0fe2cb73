// Package ascii renders boxed terminal summaries.
package ascii

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Box builds a box containing the provided lines and returns it as a string.
// Lines are left-aligned with single-space padding on each side. Multi-width
// runes (emoji, CJK, etc.) are accounted for so the borders stay aligned.
func Box(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	trimmed := make([]string, len(lines))
	maxWidth := 0
	for i, line := range lines {
		trimmed[i] = strings.TrimRight(line, " ")
		if w := StringWidth(trimmed[i]); w > maxWidth {
			maxWidth = w
		}
	}

	innerWidth := maxWidth + 2
	border := strings.Repeat("─", innerWidth)

	var sb strings.Builder
	sb.WriteString("┌" + border + "┐\n")
	for _, line := range trimmed {
		fill := maxWidth - StringWidth(line)
		sb.WriteString("│ " + line + strings.Repeat(" ", fill) + " │\n")
	}
	sb.WriteString("└" + border + "┘\n")
	return sb.String()
}

// Pair is one row of a key/value listing.
type Pair struct {
	Key   string
	Value string
}

// KeyValues formats pairs as "key  value" lines with the values aligned.
// Values wider than maxValueWidth are truncated; zero disables truncation.
func KeyValues(pairs []Pair, maxValueWidth int) []string {
	keyWidth := 0
	for _, p := range pairs {
		if w := StringWidth(p.Key); w > keyWidth {
			keyWidth = w
		}
	}

	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		value := p.Value
		if maxValueWidth > 0 {
			value = TruncateForBox(value, maxValueWidth)
		}
		lines = append(lines, runewidth.FillRight(p.Key, keyWidth)+"  "+value)
	}
	return lines
}

// DrawBox writes a box containing the provided lines to w.
func DrawBox(w io.Writer, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := fmt.Fprint(w, Box(lines))
	return err
}

// TruncateForBox truncates a string so that its display width fits within the
// provided width. An ellipsis ("...") is appended when truncation occurs and
// there is space for it.
func TruncateForBox(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

// StringWidth returns the display width of a string.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}
