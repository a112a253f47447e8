// Package testutil provides test helper utilities for medsplain tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempHome creates a temporary home directory with the given files and
// returns its path. Files is a map of relative path -> content. Directories
// are created as needed.
func TempHome(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// IbuprofenRecord returns a complete medication record as the backend sends
// it.
func IbuprofenRecord() map[string]interface{} {
	return map[string]interface{}{
		"generic_name":  "ibuprofen",
		"brand_names":   []string{"Advil", "Motrin"},
		"drug_class":    "NSAID",
		"uses":          []string{"Pain", "Fever", "Inflammation"},
		"common_dosage": "200-400 mg every 4-6 hours",
		"side_effects":  []string{"Upset stomach", "Heartburn"},
		"warnings":      []string{"May increase risk of GI bleeding"},
		"interactions": []map[string]string{
			{"with": "warfarin", "severity": "major", "note": "Bleeding risk"},
		},
	}
}

// SparseRecord returns a medication record with every optional field absent
// or null.
func SparseRecord() map[string]interface{} {
	return map[string]interface{}{
		"generic_name":  "mysterycillin",
		"brand_names":   nil,
		"common_dosage": nil,
	}
}

// AspirinWarfarinReport returns an interaction report with one major
// interaction.
func AspirinWarfarinReport() map[string]interface{} {
	return map[string]interface{}{
		"medications":        []string{"aspirin", "warfarin"},
		"pairs_evaluated":    1,
		"total_interactions": 1,
		"interactions": []map[string]string{
			{
				"drug1":          "aspirin",
				"drug2":          "warfarin",
				"severity":       "major",
				"description":    "Increased risk of bleeding.",
				"recommendation": "Avoid combination unless directed by a clinician.",
			},
		},
	}
}

// Envelope wraps data the way successful backend responses do.
func Envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{"status": "success", "data": data}
}

// ErrorBody returns a backend error payload.
func ErrorBody(message string) map[string]interface{} {
	return map[string]interface{}{"status": "error", "message": message}
}

// ChatText returns a plain-text /chat response.
func ChatText(text string) map[string]interface{} {
	return map[string]interface{}{"status": "success", "via": "gemini:text", "text": text}
}

// ChatFunctionCall returns a function-call /chat response carrying data.
func ChatFunctionCall(function string, data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"status":   "success",
		"via":      "gemini:function_call",
		"function": function,
		"result":   map[string]interface{}{"status": "success", "data": data},
	}
}
