package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// PrintBanner outputs the callflow banner to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"            _ _  __ _              ", "#818cf8"},
		{"   ___ __ _| | |/ _| | _____      __", "#a78bfa"},
		{"  / __/ _` | | | |_| |/ _ \\ \\ /\\ / /", "#c084fc"},
		{" | (_| (_| | | |  _| | (_) \\ V  V / ", "#e879f9"},
		{"  \\___\\__,_|_|_|_| |_|\\___/ \\_/\\_/  ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  "+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
