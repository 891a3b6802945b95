package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// defaultWidth is used when stdout is not a terminal.
const defaultWidth = 80

// ShouldUseColor returns true when ANSI colors should be used on stdout.
// It respects NO_COLOR, CLICOLOR_FORCE, CLICOLOR, and TTY detection.
func ShouldUseColor() bool {
	// Any non-empty NO_COLOR disables color (https://no-color.org).
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	// CLICOLOR_FORCE=1 forces color even without a TTY.
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	// CLICOLOR=0 explicitly disables color.
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the column count of stdout, or 80 when it is not a
// terminal.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// Wrap breaks s into lines of at most width runes on word boundaries,
// prefixing every line after the first with indent. Words longer than width
// are kept whole.
func Wrap(s string, width int, indent string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	lineLen := 0
	for i, f := range fields {
		n := len([]rune(f))
		switch {
		case i == 0:
		case lineLen+1+n > width:
			b.WriteString("\n")
			b.WriteString(indent)
			lineLen = len([]rune(indent))
		default:
			b.WriteString(" ")
			lineLen++
		}
		b.WriteString(f)
		lineLen += n
	}
	return b.String()
}
