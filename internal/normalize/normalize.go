// Package normalize converts raw backend payloads into chat messages.
//
// Dedicated lookups and interaction checks decode a single known shape.
// Assistant replies may carry the result of a function the backend ran on the
// model's behalf; that data is matched against the known shapes in
// StructuredOrder and rendered exactly as the dedicated intent would render
// it. Anything that matches no shape degrades to a plain text message.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medsplain/medsplain/internal/api"
	"github.com/medsplain/medsplain/internal/medication"
	"github.com/medsplain/medsplain/internal/session"
)

// NoResponseText is shown when an assistant reply carries nothing usable.
const NoResponseText = "The assistant did not return a response. Please try rephrasing your question."

// Shape identifies a structured payload recognised in assistant results.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeInteractionReport
	ShapeMedicationRecord
)

func (s Shape) String() string {
	switch s {
	case ShapeInteractionReport:
		return "interaction_report"
	case ShapeMedicationRecord:
		return "medication_record"
	default:
		return "unknown"
	}
}

// StructuredOrder is the order function-call data is matched in. The first
// shape that matches wins.
var StructuredOrder = []Shape{ShapeInteractionReport, ShapeMedicationRecord}

// Normalize converts payload into messages for intent. For search the
// payload is the data object of /medication-info and subject[0] is the
// query; for interactions it is the data object of /check-interactions and
// subject is the medication list sent; for assistant it is the whole /chat
// body. Only search and interactions can fail, when the payload is not an
// object of the expected shape.
func Normalize(intent session.Mode, payload json.RawMessage, subject ...string) ([]session.ChatMessage, error) {
	switch intent {
	case session.ModeSearch:
		fallback := ""
		if len(subject) > 0 {
			fallback = subject[0]
		}
		rec, err := DecodeRecord(payload, fallback)
		if err != nil {
			return nil, err
		}
		return []session.ChatMessage{MedicationMessage(rec)}, nil
	case session.ModeInteractions:
		checked, err := Interactions(payload, subject)
		if err != nil {
			return nil, err
		}
		return checked.Messages, nil
	case session.ModeAssistant:
		return Assistant(payload), nil
	default:
		return nil, fmt.Errorf("unknown intent %q", intent)
	}
}

// MedicationContent is the summary line of a medication info message.
func MedicationContent(name string) string {
	return fmt.Sprintf("Medication information for %s", name)
}

// InteractionContent is the summary line of an interaction result message.
func InteractionContent(meds []string) string {
	return fmt.Sprintf("Interaction check results for: %s", strings.Join(meds, ", "))
}

// MedicationMessage renders rec as a MedicationInfo message.
func MedicationMessage(rec medication.Record) session.ChatMessage {
	return session.MedicationInfoMessage(MedicationContent(rec.GenericName), rec)
}

// InteractionMessage renders rep as an InteractionResult message.
func InteractionMessage(rep medication.InteractionReport) session.ChatMessage {
	return session.InteractionResultMessage(InteractionContent(rep.Medications), rep)
}

// Checked is a decoded interaction report together with the messages that
// present it.
type Checked struct {
	Report   medication.InteractionReport
	Messages []session.ChatMessage
}

// Interactions decodes the result of a dedicated interaction check. When the
// backend attached a note to the report it follows as a plain message.
func Interactions(payload json.RawMessage, queried []string) (Checked, error) {
	rep, err := DecodeReport(payload, queried)
	if err != nil {
		return Checked{}, err
	}
	msgs := []session.ChatMessage{InteractionMessage(rep)}
	if rep.Message != "" {
		msgs = append(msgs, session.PlainMessage(rep.Message, ""))
	}
	return Checked{Report: rep, Messages: msgs}, nil
}

// Assistant converts a /chat body into messages. A recognised function
// result comes first, followed by the reply text when present. It never
// fails: malformed or empty bodies become a single plain message.
func Assistant(payload json.RawMessage) []session.ChatMessage {
	var resp api.ChatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return []session.ChatMessage{session.PlainMessage(NoResponseText, "")}
	}

	var out []session.ChatMessage
	if resp.Result != nil {
		if msg, ok := Structured(resp.Result.Data); ok {
			msg.Via = resp.Via
			out = append(out, msg)
		}
	}

	text := ""
	if resp.Text != nil {
		text = *resp.Text
	}
	if strings.TrimSpace(text) != "" {
		out = append(out, session.PlainMessage(text, resp.Via))
	}

	if len(out) == 0 {
		fallback := NoResponseText
		if resp.Result != nil && strings.TrimSpace(resp.Result.Message) != "" {
			fallback = resp.Result.Message
		}
		out = append(out, session.PlainMessage(fallback, resp.Via))
	}
	return out
}

// Structured matches data against StructuredOrder and renders the first
// shape that decodes.
func Structured(data json.RawMessage) (session.ChatMessage, bool) {
	switch DetectShape(data) {
	case ShapeInteractionReport:
		rep, err := DecodeReport(data, nil)
		if err != nil {
			return session.ChatMessage{}, false
		}
		return InteractionMessage(rep), true
	case ShapeMedicationRecord:
		rec, err := DecodeRecord(data, "")
		if err != nil {
			return session.ChatMessage{}, false
		}
		return MedicationMessage(rec), true
	default:
		return session.ChatMessage{}, false
	}
}

// DetectShape returns the first shape in StructuredOrder that data matches.
func DetectShape(data json.RawMessage) Shape {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return ShapeUnknown
	}
	for _, shape := range StructuredOrder {
		if matches(shape, fields) {
			return shape
		}
	}
	return ShapeUnknown
}

// matches checks the fields that distinguish each shape. An "interactions"
// array marks a report. A medication record may carry its own short
// interactions list, so when a generic name is present the array only counts
// together with one of the report's summary fields.
func matches(shape Shape, fields map[string]json.RawMessage) bool {
	switch shape {
	case ShapeInteractionReport:
		if !isArray(fields["interactions"]) {
			return false
		}
		if !hasGenericName(fields) {
			return true
		}
		_, meds := fields["medications"]
		_, total := fields["total_interactions"]
		_, pairs := fields["pairs_evaluated"]
		return meds || total || pairs
	case ShapeMedicationRecord:
		return hasGenericName(fields)
	default:
		return false
	}
}

func hasGenericName(fields map[string]json.RawMessage) bool {
	return isNonEmptyString(fields["generic_name"]) || isNonEmptyString(fields["genericName"])
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isNonEmptyString(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return strings.TrimSpace(s) != ""
}
