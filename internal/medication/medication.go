// Package medication defines the normalized medication records shown to the
// user: single-medication information and pairwise interaction reports.
package medication

import "strings"

// Severity grades a drug-drug interaction.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
)

// SeverityNone is only used when reporting the maximum severity of a report
// that found no interactions.
const SeverityNone Severity = "none"

// ParseSeverity maps a backend severity string onto the three-level scale.
// "critical" folds into major; anything unrecognised is treated as moderate.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minor":
		return SeverityMinor
	case "moderate":
		return SeverityModerate
	case "major", "critical", "severe":
		return SeverityMajor
	default:
		return SeverityModerate
	}
}

// Rank orders severities; none ranks lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityMinor:
		return 1
	case SeverityModerate:
		return 2
	case SeverityMajor:
		return 3
	default:
		return 0
	}
}

// Source is a reference backing a medication record.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// InteractionNote is the short interaction hint attached to a single
// medication record.
type InteractionNote struct {
	With     string   `json:"with"`
	Severity Severity `json:"severity"`
	Note     string   `json:"note"`
}

// Record is the normalized information for one medication. Slices are never
// nil; CommonDosage is nil when the backend did not supply one.
type Record struct {
	GenericName  string            `json:"generic_name"`
	BrandNames   []string          `json:"brand_names"`
	DrugClass    string            `json:"drug_class"`
	Uses         []string          `json:"uses"`
	CommonDosage *string           `json:"common_dosage"`
	SideEffects  []string          `json:"side_effects"`
	Warnings     []string          `json:"warnings"`
	Interactions []InteractionNote `json:"interactions"`
	Sources      []Source          `json:"sources"`
}

// Interaction is one evaluated pair with a known interaction.
type Interaction struct {
	Drug1          string   `json:"drug1"`
	Drug2          string   `json:"drug2"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// InteractionReport is the result of checking a set of medications against
// each other.
type InteractionReport struct {
	Medications       []string      `json:"medications"`
	PairsEvaluated    int           `json:"pairs_evaluated"`
	TotalInteractions int           `json:"total_interactions"`
	Interactions      []Interaction `json:"interactions"`
	Message           string        `json:"message,omitempty"`
}

// MaxSeverity returns the highest severity in the report, or SeverityNone
// when it lists no interactions.
func (r InteractionReport) MaxSeverity() Severity {
	max := SeverityNone
	for _, ix := range r.Interactions {
		if ix.Severity.Rank() > max.Rank() {
			max = ix.Severity
		}
	}
	return max
}
