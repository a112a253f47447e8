package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medsplain/medsplain/internal/api"
	"github.com/medsplain/medsplain/internal/medication"
)

// unknownDrugClass fills a record whose class the backend left blank.
const unknownDrugClass = "Unknown"

// DecodeRecord decodes a medication record. fallbackName is used when the
// payload has no generic name.
func DecodeRecord(data json.RawMessage, fallbackName string) (medication.Record, error) {
	var raw api.MedicationRecordRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return medication.Record{}, fmt.Errorf("decoding medication record: %w", err)
	}
	if raw.GenericName == "" {
		var alt struct {
			GenericName string `json:"genericName"`
		}
		if json.Unmarshal(data, &alt) == nil {
			raw.GenericName = alt.GenericName
		}
	}
	return Record(raw, fallbackName), nil
}

// Record normalizes raw. Absent lists become empty slices.
func Record(raw api.MedicationRecordRaw, fallbackName string) medication.Record {
	rec := medication.Record{
		GenericName:  strings.TrimSpace(raw.GenericName),
		BrandNames:   strs(raw.BrandNames),
		DrugClass:    strings.TrimSpace(raw.DrugClass),
		Uses:         strs(raw.Uses),
		SideEffects:  strs(raw.SideEffects),
		Warnings:     strs(raw.Warnings),
		Interactions: []medication.InteractionNote{},
		Sources:      []medication.Source{},
	}
	if rec.GenericName == "" {
		rec.GenericName = strings.TrimSpace(fallbackName)
	}
	if rec.DrugClass == "" {
		rec.DrugClass = unknownDrugClass
	}
	if raw.CommonDosage != nil && strings.TrimSpace(*raw.CommonDosage) != "" {
		d := *raw.CommonDosage
		rec.CommonDosage = &d
	}
	for _, n := range raw.Interactions {
		rec.Interactions = append(rec.Interactions, medication.InteractionNote{
			With:     n.With,
			Severity: medication.ParseSeverity(n.Severity),
			Note:     n.Note,
		})
	}
	for _, s := range raw.Sources {
		if s.Name == "" && s.URL == "" {
			continue
		}
		rec.Sources = append(rec.Sources, medication.Source{Name: s.Name, URL: s.URL})
	}
	return rec
}

// DecodeReport decodes an interaction report. queried stands in for the
// medication list when the payload omits it.
func DecodeReport(data json.RawMessage, queried []string) (medication.InteractionReport, error) {
	var raw api.InteractionReportRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return medication.InteractionReport{}, fmt.Errorf("decoding interaction report: %w", err)
	}
	return Report(raw, queried), nil
}

// Report normalizes raw. Missing counts are derived from the lists; with
// neither a medication list nor queried names the medications are taken
// from the interacting pairs.
func Report(raw api.InteractionReportRaw, queried []string) medication.InteractionReport {
	rep := medication.InteractionReport{
		Medications:  strs(raw.Medications),
		Interactions: []medication.Interaction{},
		Message:      strings.TrimSpace(raw.Message),
	}
	if len(rep.Medications) == 0 {
		rep.Medications = strs(queried)
	}
	for _, ix := range raw.Interactions {
		rep.Interactions = append(rep.Interactions, medication.Interaction{
			Drug1:          ix.Drug1,
			Drug2:          ix.Drug2,
			Severity:       medication.ParseSeverity(ix.Severity),
			Description:    ix.Description,
			Recommendation: ix.Recommendation,
		})
	}
	if len(rep.Medications) == 0 {
		rep.Medications = pairMembers(rep.Interactions)
	}
	if raw.TotalInteractions != nil {
		rep.TotalInteractions = *raw.TotalInteractions
	} else {
		rep.TotalInteractions = len(rep.Interactions)
	}
	if raw.PairsEvaluated != nil {
		rep.PairsEvaluated = *raw.PairsEvaluated
	} else {
		n := len(rep.Medications)
		rep.PairsEvaluated = n * (n - 1) / 2
	}
	return rep
}

func strs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// pairMembers lists the drugs named in interactions, first mention first.
func pairMembers(interactions []medication.Interaction) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, ix := range interactions {
		for _, d := range []string{ix.Drug1, ix.Drug2} {
			d = strings.TrimSpace(d)
			if d != "" && !seen[strings.ToLower(d)] {
				seen[strings.ToLower(d)] = true
				out = append(out, d)
			}
		}
	}
	return out
}
