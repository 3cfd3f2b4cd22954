package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Label is one highlighted span attached to a rendered error, the Go analog
// of the (CodeArea, &str) pairs errors::create_error takes in builtins.rs.
type Label struct {
	Area CodeArea
	Text string
}

// Renderer writes a diagnostic to an io.Writer, colorizing span markers when
// the destination is a terminal. The teacher's internal/evaluator/builtins_term.go
// makes this same isatty check before deciding whether to emit ANSI escapes;
// we apply it once here instead of at every print site.
type Renderer struct {
	Out   io.Writer
	Color bool
}

// NewRenderer builds a Renderer for w, auto-detecting color support when w is
// an *os.File attached to a terminal.
func NewRenderer(w io.Writer) *Renderer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Renderer{Out: w, Color: color}
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBold   = "\x1b[1m"
	ansiReset  = "\x1b[0m"
)

func (r *Renderer) wrap(code, s string) string {
	if !r.Color {
		return s
	}
	return code + s + ansiReset
}

// Render prints a "Runtime Error" block with a headline and each label in
// source order, matching errors::create_error's layout.
func (r *Renderer) Render(title, message string, labels []Label) {
	fmt.Fprintf(r.Out, "%s: %s\n", r.wrap(ansiBold+ansiRed, title), message)
	for _, l := range labels {
		fmt.Fprintf(r.Out, "  %s %s\n", r.wrap(ansiYellow, "-->"), l.Area.String())
		if l.Text != "" {
			fmt.Fprintf(r.Out, "      %s\n", l.Text)
		}
	}
}
