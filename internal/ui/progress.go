// Package ui provides terminal UI components for the one-shot commands.
// This file implements the progress line shown while a request is in flight.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Status represents the state of the request being tracked.
type Status int

const (
	StatusPending Status = iota // Not started
	StatusRunning               // Waiting on the backend
	StatusDone                  // Finished successfully
	StatusFailed                // Finished with an error
)

// Progress manages a single progress line for one request. On a terminal
// the line is redrawn in place; otherwise one line is printed per status
// change.
type Progress struct {
	mu          sync.Mutex
	w           io.Writer
	label       string
	status      Status
	isTTY       bool
	started     time.Time
	elapsed     time.Duration
	lastPrinted Status
	now         func() time.Time
}

// NewProgress creates a Progress that writes to w.
func NewProgress(w io.Writer, label string) *Progress {
	isTTY := false
	if f, ok := w.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return &Progress{
		w:     w,
		label: label,
		isTTY: isTTY,
		now:   time.Now,
	}
}

// Start marks the request as running and draws the line.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusRunning
	p.started = p.now()
	p.render()
}

// Finish records the outcome and finalizes the line.
func (p *Progress) Finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != StatusRunning {
		return
	}
	p.elapsed = p.now().Sub(p.started)
	p.status = StatusDone
	if err != nil {
		p.status = StatusFailed
	}
	p.render()
	if p.isTTY {
		fmt.Fprint(p.w, "\n")
	}
}

// render draws or redraws the progress line.
func (p *Progress) render() {
	if !p.isTTY {
		p.renderPlain()
		return
	}
	// Return to column 0 and clear the line.
	fmt.Fprintf(p.w, "\r\033[2K  %s %s  %s", statusIcon(p.status), p.label, p.detail())
}

// renderPlain writes non-TTY output (for piping).
// Only prints on status transitions to avoid duplicate lines.
func (p *Progress) renderPlain() {
	if p.status == p.lastPrinted {
		return
	}
	var status string
	switch p.status {
	case StatusRunning:
		status = "RUNNING"
	case StatusDone:
		status = fmt.Sprintf("DONE %s", formatDuration(p.elapsed))
	case StatusFailed:
		status = fmt.Sprintf("FAILED %s", formatDuration(p.elapsed))
	default:
		return
	}
	fmt.Fprintf(p.w, "[%s] %s\n", status, p.label)
	p.lastPrinted = p.status
}

func (p *Progress) detail() string {
	switch p.status {
	case StatusDone:
		return fmt.Sprintf("\033[90m[%s]\033[0m", formatDuration(p.elapsed))
	case StatusFailed:
		return "\033[31m[failed]\033[0m"
	default:
		return "\033[33m[waiting]\033[0m"
	}
}

// statusIcon returns the status icon for the request.
func statusIcon(status Status) string {
	switch status {
	case StatusDone:
		return "\033[32m✅\033[0m" // green checkmark
	case StatusRunning:
		return "\033[33m⏳\033[0m" // yellow hourglass
	case StatusFailed:
		return "\033[31m❌\033[0m" // red X
	default:
		return "\033[90m○\033[0m" // dim circle
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(100 * time.Millisecond)
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}
