package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the chat banner with the version underneath.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	lines := []struct {
		text, color string
	}{
		{"        _            _  __       ", "#818cf8"},
		{"   ___ | | __ _ _ __(_)/ _|_   _ ", "#a78bfa"},
		{"  / __|| |/ _` | '__| | |_| | | |", "#c084fc"},
		{" | (__ | | (_| | |  | |  _| |_| |", "#e879f9"},
		{"  \\___||_|\\__,_|_|  |_|_|  \\__, |", "#f472b6"},
		{"                           |___/ ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	}
	fmt.Fprintln(w)
}
