// Package session holds the in-memory conversation state of one chat: the
// ordered message history, the loading flag, the last operation error and the
// medication working set used by interaction checks.
package session

import (
	"time"

	"github.com/medsplain/medsplain/internal/medication"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Mode is the intent a user message was sent under.
type Mode string

const (
	ModeAssistant    Mode = "assistant"
	ModeSearch       Mode = "search"
	ModeInteractions Mode = "interactions"
)

// Modes lists every mode in the order front-ends cycle through them.
var Modes = []Mode{ModeAssistant, ModeSearch, ModeInteractions}

// Status marks placeholder and failure messages.
type Status string

const (
	StatusNormal  Status = "normal"
	StatusPending Status = "pending"
	StatusError   Status = "error"
)

// Variant tags which payload a message carries.
type Variant string

const (
	VariantPlain             Variant = "plain"
	VariantMedicationInfo    Variant = "medication_info"
	VariantInteractionResult Variant = "interaction_result"
)

// PendingText is the content of the placeholder shown while a request is in
// flight.
const PendingText = "Thinking..."

// ChatMessage is one entry of the conversation history. Content is always
// populated, also for structured variants, so any front-end can fall back to
// plain text. Exactly one of Medication or Interactions is set, matching
// Variant; plain messages carry neither.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Mode      Mode      `json:"mode,omitempty"`
	Status    Status    `json:"status"`
	Variant   Variant   `json:"variant"`
	Via       string    `json:"via,omitempty"`

	Medication   *medication.Record            `json:"medication,omitempty"`
	Interactions *medication.InteractionReport `json:"interactions,omitempty"`
}

// IsPending reports whether m is a request placeholder.
func (m ChatMessage) IsPending() bool { return m.Status == StatusPending }

// OperationError is the user-facing description of the last failed request.
type OperationError struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	ActionHint string `json:"action_hint,omitempty"`
}

func (e OperationError) Error() string { return e.Message }

// UserMessage builds a user-authored message sent under mode.
func UserMessage(content string, mode Mode) ChatMessage {
	return ChatMessage{
		Role:    RoleUser,
		Content: content,
		Mode:    mode,
		Status:  StatusNormal,
		Variant: VariantPlain,
	}
}

// PlainMessage builds an assistant text reply.
func PlainMessage(content, via string) ChatMessage {
	return ChatMessage{
		Role:    RoleAssistant,
		Content: content,
		Status:  StatusNormal,
		Variant: VariantPlain,
		Via:     via,
	}
}

// ErrorMessage builds the assistant message that stands in for a failed
// request.
func ErrorMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleAssistant,
		Content: content,
		Status:  StatusError,
		Variant: VariantPlain,
	}
}

// MedicationInfoMessage wraps a normalized medication record.
func MedicationInfoMessage(content string, rec medication.Record) ChatMessage {
	return ChatMessage{
		Role:       RoleAssistant,
		Content:    content,
		Status:     StatusNormal,
		Variant:    VariantMedicationInfo,
		Medication: &rec,
	}
}

// InteractionResultMessage wraps a normalized interaction report.
func InteractionResultMessage(content string, report medication.InteractionReport) ChatMessage {
	return ChatMessage{
		Role:         RoleAssistant,
		Content:      content,
		Status:       StatusNormal,
		Variant:      VariantInteractionResult,
		Interactions: &report,
	}
}

func pendingMessage() ChatMessage {
	return ChatMessage{
		Role:    RoleAssistant,
		Content: PendingText,
		Status:  StatusPending,
		Variant: VariantPlain,
	}
}
