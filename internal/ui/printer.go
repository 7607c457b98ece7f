// Package ui renders hostctl's operator-facing console output: run and step
// headers, echoed remote commands, captured output and the run summary.
// Colors are used only when writing to a terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Step statuses understood by the printer.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusIgnored = "ignored"
	StatusSkipped = "skipped"
	StatusDryRun  = "dry-run"
)

// Printer writes formatted output.
type Printer struct {
	out    io.Writer
	styled bool
}

// New returns a printer writing to w, styled when w is a terminal.
func New(w io.Writer) *Printer {
	return &Printer{out: w, styled: isTerminal(w)}
}

// NewPlain returns a printer that never emits escape sequences.
func NewPlain(w io.Writer) *Printer {
	return &Printer{out: w}
}

// Discard returns a printer that drops everything.
func Discard() *Printer {
	return NewPlain(io.Discard)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Writer exposes the raw destination for streamed command output.
func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

// Printf writes unformatted text.
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Title prints a bold title with an underline.
func (p *Printer) Title(title string) {
	fmt.Fprintf(p.out, "\n%s\n%s\n", p.render(titleStyle, "  "+title), p.render(dimStyle, "  "+strings.Repeat("═", len([]rune(title)))))
}

// RunHeader announces a runbook run.
func (p *Printer) RunHeader(runbook, host string, steps int) {
	p.Title(fmt.Sprintf("hostctl run: %s on %s", runbook, host))
	fmt.Fprintf(p.out, "%s\n", p.render(dimStyle, fmt.Sprintf("  %d steps", steps)))
}

// StepHeader prints "[n/N] name".
func (p *Printer) StepHeader(index, total int, name string) {
	fmt.Fprintf(p.out, "\n%s\n", p.render(sectionStyle, fmt.Sprintf("[%d/%d] %s", index, total, name)))
}

// Command echoes a command about to run.
func (p *Printer) Command(cmd string) {
	for i, line := range strings.Split(cmd, "\n") {
		prefix := "$ "
		if i > 0 {
			prefix = "> "
		}
		fmt.Fprintf(p.out, "%s\n", p.render(commandStyle, prefix+line))
	}
}

// Output prints captured stdout and stderr blocks. Empty blocks are omitted.
func (p *Printer) Output(stdout, stderr string) {
	if s := strings.TrimRight(stdout, "\n"); s != "" {
		fmt.Fprintln(p.out, s)
	}
	if s := strings.TrimRight(stderr, "\n"); s != "" {
		fmt.Fprintln(p.out, p.render(warningStyle, "STDERR:"))
		fmt.Fprintln(p.out, p.render(warningStyle, s))
	}
}

// Info prints a dim informational line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(dimStyle, fmt.Sprintf(format, args...)))
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(warningStyle, warnMark+" "+fmt.Sprintf(format, args...)))
}

// StepStatus prints the outcome of a step.
func (p *Printer) StepStatus(status string, d time.Duration, err error) {
	fmt.Fprintln(p.out, p.statusLine(status, d, err))
}

func (p *Printer) statusLine(status string, d time.Duration, err error) string {
	elapsed := formatDuration(d)
	switch status {
	case StatusOK:
		return p.render(okStyle, fmt.Sprintf("%s done in %s", checkMark, elapsed))
	case StatusIgnored:
		return p.render(warningStyle, fmt.Sprintf("%s failed after %s, continuing: %v", warnMark, elapsed, err))
	case StatusSkipped:
		return p.render(dimStyle, skipMark+" skipped")
	case StatusDryRun:
		return p.render(dimStyle, dryMark+" dry run, not executed")
	default:
		return p.render(failedStyle, fmt.Sprintf("%s failed after %s: %v", crossMark, elapsed, err))
	}
}

// SummaryRow is one line of the run summary table.
type SummaryRow struct {
	Index    int
	Name     string
	Action   string
	Status   string
	Duration time.Duration
}

// Summary prints a table of step outcomes.
func (p *Printer) Summary(rows []SummaryRow, total time.Duration) {
	const width = 64

	fmt.Fprintf(p.out, "\n%s\n", p.render(sectionStyle, "  Summary"))
	fmt.Fprintf(p.out, "%s\n", p.render(dimStyle, "  "+strings.Repeat("─", width)))
	fmt.Fprintf(p.out, "%s\n", p.render(dimStyle, fmt.Sprintf("  %3s  %-28s %-15s %-8s %8s", "#", "Step", "Action", "Status", "Time")))

	for _, r := range rows {
		status := fmt.Sprintf("%-8s", r.Status)
		switch r.Status {
		case StatusOK:
			status = p.render(okStyle, status)
		case StatusFailed:
			status = p.render(failedStyle, status)
		case StatusIgnored:
			status = p.render(warningStyle, status)
		default:
			status = p.render(dimStyle, status)
		}
		fmt.Fprintf(p.out, "  %3d  %-28s %-15s %s %8s\n", r.Index, clip(r.Name, 28), r.Action, status, formatDuration(r.Duration))
	}

	fmt.Fprintf(p.out, "%s\n", p.render(dimStyle, "  "+strings.Repeat("─", width)))
	fmt.Fprintf(p.out, "  %-53s %8s\n", "Total", formatDuration(total))
}

// Result prints the final run verdict.
func (p *Printer) Result(err error) {
	if err == nil {
		fmt.Fprintf(p.out, "\n%s\n", p.render(okStyle, checkMark+" Run completed"))
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", p.render(failedStyle, crossMark+" Run failed: "+err.Error()))
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
