package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Voyage banner, colored for the terminal profile of out.
func PrintBanner(out io.Writer) {
	p := termenv.NewOutput(out).ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{` __   __                              `, "#38bdf8"},
		{` \ \ / /___  _   _  __ _  __ _  ___   `, "#22d3ee"},
		{`  \ V // _ \| | | |/ _' |/ _' |/ _ \  `, "#2dd4bf"},
		{`   | || (_) | |_| | (_| | (_| |  __/  `, "#34d399"},
		{`   |_| \___/ \__, |\__,_|\__, |\___|  `, "#4ade80"},
		{`             |___/       |___/        `, "#a3e635"},
	}

	fmt.Fprintln(out)
	for _, l := range lines {
		fmt.Fprintln(out, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(out)
}
