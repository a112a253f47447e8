// Package report renders conversation messages and event-log summaries as
// terminal-friendly text.
package report

import (
	"fmt"
	"strings"

	"github.com/medsplain/medsplain/internal/medication"
	"github.com/medsplain/medsplain/internal/session"
)

// FormatMessage renders one history entry. Structured variants expand to
// their full record; everything else prints its content.
func FormatMessage(m session.ChatMessage) string {
	switch {
	case m.Variant == session.VariantMedicationInfo && m.Medication != nil:
		return FormatMedication(*m.Medication)
	case m.Variant == session.VariantInteractionResult && m.Interactions != nil:
		return FormatInteractions(*m.Interactions)
	default:
		return m.Content + "\n"
	}
}

// FormatMedication produces a readable summary of rec.
func FormatMedication(rec medication.Record) string {
	var b strings.Builder

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "  %s\n", rec.GenericName)
	b.WriteString("========================================\n")

	if len(rec.BrandNames) > 0 {
		fmt.Fprintf(&b, "Brand names: %s\n", strings.Join(rec.BrandNames, ", "))
	}
	fmt.Fprintf(&b, "Drug class:  %s\n", rec.DrugClass)
	if rec.CommonDosage != nil {
		fmt.Fprintf(&b, "Dosage:      %s\n", *rec.CommonDosage)
	}
	b.WriteString("\n")

	writeList(&b, "Uses", rec.Uses)
	writeList(&b, "Side effects", rec.SideEffects)
	writeList(&b, "Warnings", rec.Warnings)

	if len(rec.Interactions) > 0 {
		b.WriteString("Interactions:\n")
		for _, n := range rec.Interactions {
			fmt.Fprintf(&b, "  - %s (%s): %s\n", n.With, n.Severity, n.Note)
		}
		b.WriteString("\n")
	}

	if len(rec.Sources) > 0 {
		b.WriteString("Sources:\n")
		for _, s := range rec.Sources {
			if s.URL != "" {
				fmt.Fprintf(&b, "  - %s <%s>\n", s.Name, s.URL)
			} else {
				fmt.Fprintf(&b, "  - %s\n", s.Name)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatInteractions produces a readable summary of rep.
func FormatInteractions(rep medication.InteractionReport) string {
	var b strings.Builder
	meds := strings.Join(rep.Medications, ", ")

	if rep.TotalInteractions == 0 {
		fmt.Fprintf(&b, "No known interactions found among %s.\n", meds)
	} else {
		fmt.Fprintf(&b, "Found %d interaction(s) among %s.\n", rep.TotalInteractions, meds)
	}
	fmt.Fprintf(&b, "Pairs evaluated: %d\n", rep.PairsEvaluated)

	for _, ix := range rep.Interactions {
		b.WriteString("\n")
		fmt.Fprintf(&b, "! %s + %s (%s)\n", ix.Drug1, ix.Drug2, ix.Severity)
		if ix.Description != "" {
			fmt.Fprintf(&b, "  %s\n", ix.Description)
		}
		if ix.Recommendation != "" {
			fmt.Fprintf(&b, "  Recommendation: %s\n", ix.Recommendation)
		}
	}

	return b.String()
}

// FormatError renders a user-facing operation error.
func FormatError(op session.OperationError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", op.Title, op.Message)
	if op.ActionHint != "" {
		fmt.Fprintf(&b, "  %s\n", op.ActionHint)
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
	b.WriteString("\n")
}
