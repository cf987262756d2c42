package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mastercactapus/lasersend/stream"
	"golang.org/x/term"
)

var (
	lineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	indexStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// echo prints each line as it is sent, styled when writing to a terminal.
type echo struct {
	w     io.Writer
	color bool
}

func newEcho(w io.Writer) echo { return echo{w: w, color: isTerminal(w)} }

func (e echo) render(s lipgloss.Style, str string) string {
	if !e.color {
		return str
	}
	return s.Render(str)
}

func (e echo) LineSent(ev stream.LineEvent) {
	fmt.Fprintf(e.w, "%s %s\n", e.render(indexStyle, fmt.Sprintf("%5d", ev.Index+1)), e.render(lineStyle, ev.Line))
}

func (e echo) Finished(_ string, r stream.Result) {
	if r.Err != nil {
		fmt.Fprintln(e.w, e.render(errorStyle, "stopped: "+string(r.Kind())))
	}
}
