package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aretw0/voyage/pkg/domain"
	"github.com/fatih/color"
)

// Tracer prints tool calls and their results as they are appended.
type Tracer struct {
	out     io.Writer
	call    *color.Color
	result  *color.Color
	failure *color.Color
}

// NewTracer returns a tracer writing to out. Colors are only emitted when
// colored is true.
func NewTracer(out io.Writer, colored bool) *Tracer {
	t := &Tracer{
		out:     out,
		call:    color.New(color.FgCyan),
		result:  color.New(color.FgGreen),
		failure: color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{t.call, t.result, t.failure} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return t
}

// Message traces one conversation message. Only tool traffic is printed.
func (t *Tracer) Message(m domain.Message) {
	switch m.Role {
	case domain.RoleAI:
		for _, call := range m.ToolCalls {
			t.call.Fprintf(t.out, "-> %s(%s)\n", call.Name, formatArgs(call.Args))
		}
	case domain.RoleTool:
		if m.IsError {
			t.failure.Fprintf(t.out, "<- %s failed: %s\n", m.Name, m.Content)
			return
		}
		t.result.Fprintf(t.out, "<- %s: %s\n", m.Name, m.Content)
	}
}

func formatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, ", ")
}
