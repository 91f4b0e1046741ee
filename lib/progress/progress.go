// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

// Package progress renders the per-item event stream and the final
// summary on the terminal. Output is colorized when the destination is
// a TTY and plain otherwise, so piping the tool into a log stays
// readable.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/pavinjosdev/zypperoni/scheduler"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	cancelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	ordinalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Printer is a scheduler.Reporter writing human-readable progress
// lines.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
	total int
}

// NewPrinter creates a Printer for out. Color is enabled only when out
// is os.Stderr or os.Stdout attached to a terminal. total sizes the
// "[3/17]" ordinal prefix.
func NewPrinter(out io.Writer, total int) *Printer {
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{out: out, color: color, total: total}
}

// Report renders one event line. Safe for concurrent use.
func (p *Printer) Report(e scheduler.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix := fmt.Sprintf("[%d/%d]", e.Item.Ordinal+1, p.total)
	var line string
	switch e.Kind {
	case scheduler.EventStart:
		line = fmt.Sprintf("%s %s", p.style(ordinalStyle, prefix), e.Op.Describe(e.Item.ID))
	case scheduler.EventSuccess:
		line = fmt.Sprintf("%s %s %s", p.style(ordinalStyle, prefix),
			p.style(successStyle, "done"), e.Item.ID)
	case scheduler.EventFailure:
		detail := e.Detail
		if detail == "" {
			detail = fmt.Sprintf("exit status %d", e.Code)
		}
		line = fmt.Sprintf("%s %s %s: %s", p.style(ordinalStyle, prefix),
			p.style(failureStyle, "failed"), e.Item.ID, detail)
	case scheduler.EventCancelled:
		line = fmt.Sprintf("%s %s %s", p.style(ordinalStyle, prefix),
			p.style(cancelStyle, "cancelled"), e.Item.ID)
	}
	fmt.Fprintln(p.out, line)
}

// Summary renders the aggregate outcome after the batch completes.
func (p *Printer) Summary(s scheduler.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf("%d of %d succeeded", s.Succeeded, s.Total)
	if s.Failed > 0 {
		line += ", " + p.style(failureStyle, fmt.Sprintf("%d failed", s.Failed))
	}
	if s.Cancelled > 0 || s.Skipped > 0 {
		line += ", " + p.style(cancelStyle,
			fmt.Sprintf("%d cancelled, %d never started", s.Cancelled, s.Skipped))
	}
	fmt.Fprintln(p.out, line)
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}
