package main

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lexigraph/internal/ui"
)

var (
	reFlagLine = regexp.MustCompile(`^(\s+(?:-\w, )?--[\w-]+)( (?:string|int|duration|bool))?`)
	reDefault  = regexp.MustCompile(`\(default [^)]*\)`)
)

// colorizedHelpFunc renders cobra's usage text and styles it when stdout
// is a color terminal.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		_, _ = io.WriteString(out, styleHelp(buf.String()))
	}
}

// styleHelp colors section headers, command names in command sections and
// flag names, types and defaults in flag sections.
func styleHelp(help string) string {
	lines := strings.Split(help, "\n")
	inFlags := false
	for i, line := range lines {
		switch {
		case line == "":
		case !strings.HasPrefix(line, " ") && strings.HasSuffix(line, ":"):
			inFlags = strings.HasSuffix(line, "Flags:")
			lines[i] = ui.RenderAccent(line)
		case inFlags:
			lines[i] = styleFlagLine(line)
		case strings.HasPrefix(line, "  ") && !strings.HasPrefix(line, "   "):
			lines[i] = styleCommandLine(line)
		}
	}
	return strings.Join(lines, "\n")
}

func styleCommandLine(line string) string {
	name, rest, ok := strings.Cut(strings.TrimPrefix(line, "  "), "  ")
	if !ok || strings.ContainsRune(name, ' ') {
		return line
	}
	return "  " + ui.RenderCommand(name) + "  " + rest
}

func styleFlagLine(line string) string {
	m := reFlagLine.FindStringSubmatchIndex(line)
	if m == nil {
		return line
	}
	var b strings.Builder
	b.WriteString(line[:m[2]])
	b.WriteString(ui.RenderCommand(line[m[2]:m[3]]))
	rest := line[m[3]:]
	if m[4] >= 0 {
		b.WriteString(ui.RenderMuted(line[m[4]:m[5]]))
		rest = line[m[5]:]
	}
	b.WriteString(reDefault.ReplaceAllStringFunc(rest, ui.RenderMuted))
	return b.String()
}
