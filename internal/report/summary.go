package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/medsplain/medsplain/internal/log"
)

// Summary aggregates the event log into usage statistics.
type Summary struct {
	Requests        int
	Succeeded       int
	Failed          int
	NotFound        int
	Rejected        int
	Stale           int
	TelemetrySent   int
	TelemetryFailed int
	ByIntent        map[string]int
	AvgLatency      time.Duration
	First           time.Time
	Last            time.Time
}

// Summarize walks events in order and tallies them.
func Summarize(events []log.LogEvent) Summary {
	s := Summary{ByIntent: make(map[string]int)}
	var totalMs int64
	var timed int

	for _, e := range events {
		if !e.Time.IsZero() {
			if s.First.IsZero() || e.Time.Before(s.First) {
				s.First = e.Time
			}
			if e.Time.After(s.Last) {
				s.Last = e.Time
			}
		}

		switch e.Event {
		case log.EventIntentStarted:
			s.Requests++
			s.ByIntent[e.Intent]++
		case log.EventIntentSucceeded:
			s.Succeeded++
			totalMs += e.DurationMs
			timed++
		case log.EventIntentFailed:
			s.Failed++
			if e.Kind == "not_found" {
				s.NotFound++
			}
			totalMs += e.DurationMs
			timed++
		case log.EventValidationFailed:
			s.Rejected++
		case log.EventStaleResponseDropped:
			s.Stale++
		case log.EventTelemetrySent:
			s.TelemetrySent++
		case log.EventTelemetryFailed:
			s.TelemetryFailed++
		}
	}

	if timed > 0 {
		s.AvgLatency = time.Duration(totalMs/int64(timed)) * time.Millisecond
	}
	return s
}

// FormatSummary produces a terminal-friendly summary string.
func FormatSummary(s Summary) string {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString("  Medsplain Usage\n")
	b.WriteString("========================================\n")
	b.WriteString("\n")

	if s.Requests == 0 && s.Rejected == 0 {
		b.WriteString("No requests logged yet.\n")
		b.WriteString("========================================\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Requests:    %d total\n", s.Requests)
	for _, intent := range []string{"search", "interactions", "assistant"} {
		if n := s.ByIntent[intent]; n > 0 {
			fmt.Fprintf(&b, "  %-13s%d\n", intent+":", n)
		}
	}
	fmt.Fprintf(&b, "Succeeded:   %d\n", s.Succeeded)
	fmt.Fprintf(&b, "Failed:      %d", s.Failed)
	if s.NotFound > 0 {
		fmt.Fprintf(&b, " (%d not found)", s.NotFound)
	}
	b.WriteString("\n")
	if s.Rejected > 0 {
		fmt.Fprintf(&b, "Rejected:    %d\n", s.Rejected)
	}
	if s.Stale > 0 {
		fmt.Fprintf(&b, "Dropped:     %d stale responses\n", s.Stale)
	}
	b.WriteString("\n")

	if s.AvgLatency > 0 {
		fmt.Fprintf(&b, "Avg latency: %s\n", formatDuration(s.AvgLatency))
	}
	if s.TelemetrySent > 0 || s.TelemetryFailed > 0 {
		fmt.Fprintf(&b, "Telemetry:   %d sent, %d failed\n", s.TelemetrySent, s.TelemetryFailed)
	}
	if !s.First.IsZero() {
		fmt.Fprintf(&b, "Period:      %s to %s\n", s.First.Format("2006-01-02 15:04"), s.Last.Format("2006-01-02 15:04"))
	}

	b.WriteString("========================================\n")

	return b.String()
}

// formatDuration produces a human-readable duration string such as "1.2s"
// or "350ms".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
