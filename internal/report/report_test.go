package report

import (
	"strings"
	"testing"
	"time"

	"github.com/medsplain/medsplain/internal/log"
	"github.com/medsplain/medsplain/internal/medication"
	"github.com/medsplain/medsplain/internal/session"
)

func TestFormatMedication(t *testing.T) {
	dosage := "200-400 mg every 4-6 hours"
	rec := medication.Record{
		GenericName:  "ibuprofen",
		BrandNames:   []string{"Advil", "Motrin"},
		DrugClass:    "NSAID",
		Uses:         []string{"Pain", "Fever"},
		CommonDosage: &dosage,
		SideEffects:  []string{},
		Warnings:     []string{"GI bleeding"},
		Interactions: []medication.InteractionNote{{With: "warfarin", Severity: medication.SeverityMajor, Note: "Bleeding risk"}},
		Sources:      []medication.Source{{Name: "FDA label", URL: "https://example.org/label"}},
	}

	out := FormatMedication(rec)

	for _, want := range []string{
		"  ibuprofen\n",
		"Brand names: Advil, Motrin",
		"Drug class:  NSAID",
		"Dosage:      200-400 mg every 4-6 hours",
		"Uses:\n  - Pain\n  - Fever\n",
		"Warnings:\n  - GI bleeding\n",
		"  - warfarin (major): Bleeding risk",
		"  - FDA label <https://example.org/label>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Side effects:") {
		t.Error("empty lists should be omitted")
	}
}

func TestFormatInteractions(t *testing.T) {
	rep := medication.InteractionReport{
		Medications:       []string{"aspirin", "warfarin"},
		PairsEvaluated:    1,
		TotalInteractions: 1,
		Interactions: []medication.Interaction{{
			Drug1: "aspirin", Drug2: "warfarin", Severity: medication.SeverityMajor,
			Description: "Bleeding risk.", Recommendation: "Avoid.",
		}},
	}

	out := FormatInteractions(rep)
	for _, want := range []string{
		"Found 1 interaction(s) among aspirin, warfarin.",
		"Pairs evaluated: 1",
		"! aspirin + warfarin (major)",
		"  Bleeding risk.",
		"  Recommendation: Avoid.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	none := FormatInteractions(medication.InteractionReport{Medications: []string{"a", "b"}, PairsEvaluated: 1})
	if !strings.HasPrefix(none, "No known interactions found among a, b.") {
		t.Errorf("unexpected empty-report output: %q", none)
	}
}

func TestFormatMessageFallsBackToContent(t *testing.T) {
	plain := session.PlainMessage("hello", "")
	if got := FormatMessage(plain); got != "hello\n" {
		t.Errorf("got %q", got)
	}

	broken := session.ChatMessage{Content: "Medication information for x", Variant: session.VariantMedicationInfo}
	if got := FormatMessage(broken); got != "Medication information for x\n" {
		t.Errorf("variant without payload: got %q", got)
	}
}

func TestFormatError(t *testing.T) {
	got := FormatError(session.OperationError{Title: "Medication not found", Message: "not found", ActionHint: "Check spelling."})
	want := "Medication not found: not found\n  Check spelling.\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSummarize(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	events := []log.LogEvent{
		{Time: t0, Event: log.EventIntentStarted, Intent: "search"},
		{Time: t0.Add(time.Second), Event: log.EventIntentFailed, Intent: "search", Kind: "not_found", DurationMs: 200},
		{Time: t0.Add(2 * time.Second), Event: log.EventIntentStarted, Intent: "assistant"},
		{Time: t0.Add(3 * time.Second), Event: log.EventIntentSucceeded, Intent: "assistant", DurationMs: 600},
		{Time: t0.Add(4 * time.Second), Event: log.EventValidationFailed, Intent: "interactions"},
		{Time: t0.Add(5 * time.Second), Event: log.EventTelemetryFailed},
	}

	s := Summarize(events)
	if s.Requests != 2 || s.Succeeded != 1 || s.Failed != 1 || s.NotFound != 1 || s.Rejected != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.ByIntent["search"] != 1 || s.ByIntent["assistant"] != 1 {
		t.Errorf("ByIntent: %v", s.ByIntent)
	}
	if s.AvgLatency != 400*time.Millisecond {
		t.Errorf("AvgLatency: got %v, want 400ms", s.AvgLatency)
	}
	if !s.First.Equal(t0) || !s.Last.Equal(t0.Add(5*time.Second)) {
		t.Errorf("period: %v to %v", s.First, s.Last)
	}

	out := FormatSummary(s)
	for _, want := range []string{"Requests:    2 total", "Failed:      1 (1 not found)", "Avg latency: 400ms", "Telemetry:   0 sent, 1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFormatSummaryEmpty(t *testing.T) {
	out := FormatSummary(Summarize(nil))
	if !strings.Contains(out, "No requests logged yet.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
