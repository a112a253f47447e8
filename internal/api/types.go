package api

import "encoding/json"

// Via values reported by /chat.
const (
	ViaFunctionCall = "gemini:function_call"
	ViaText         = "gemini:text"
)

// MedicationInfoRequest is the body of POST /medication-info.
type MedicationInfoRequest struct {
	MedicationName      string `json:"medication_name"`
	IncludeInteractions bool   `json:"include_interactions"`
	IncludeSideEffects  bool   `json:"include_side_effects"`
}

// CheckInteractionsRequest is the body of POST /check-interactions.
type CheckInteractionsRequest struct {
	Medications []string `json:"medications"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// LogQueryRequest is the body of POST /log-query.
type LogQueryRequest struct {
	UserID            string   `json:"user_id"`
	Medications       []string `json:"medications"`
	InteractionsFound int      `json:"interactions_found"`
	SeverityLevel     string   `json:"severity_level"`
}

// Feedback kinds accepted by POST /feedback.
const (
	FeedbackHelpful = "helpful"
	FeedbackUnclear = "unclear"
)

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	MedicationName string `json:"medicationName"`
	Type           string `json:"type"`
}

// envelope is the common success wrapper {status, data, message}.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// MedicationRecordRaw is the wire shape of a medication record. Every field
// may be absent or null.
type MedicationRecordRaw struct {
	GenericName  string               `json:"generic_name"`
	BrandNames   []string             `json:"brand_names"`
	DrugClass    string               `json:"drug_class"`
	Uses         []string             `json:"uses"`
	CommonDosage *string              `json:"common_dosage"`
	SideEffects  []string             `json:"side_effects"`
	Warnings     []string             `json:"warnings"`
	Interactions []InteractionNoteRaw `json:"interactions"`
	Sources      []SourceRaw          `json:"sources"`
}

// InteractionNoteRaw is a short interaction hint on a medication record.
type InteractionNoteRaw struct {
	With     string `json:"with"`
	Severity string `json:"severity"`
	Note     string `json:"note"`
}

// SourceRaw is a reference attached to a medication record.
type SourceRaw struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// InteractionReportRaw is the wire shape of an interaction check result.
type InteractionReportRaw struct {
	Medications       []string         `json:"medications"`
	PairsEvaluated    *int             `json:"pairs_evaluated"`
	TotalInteractions *int             `json:"total_interactions"`
	Interactions      []InteractionRaw `json:"interactions"`
	Message           string           `json:"message"`
}

// InteractionRaw is one interacting pair.
type InteractionRaw struct {
	Drug1          string `json:"drug1"`
	Drug2          string `json:"drug2"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// ChatResponse is the body returned by POST /chat. Text is set for plain
// replies; Result carries the outcome of a function call.
type ChatResponse struct {
	Status   string      `json:"status"`
	Via      string      `json:"via"`
	Text     *string     `json:"text"`
	Function string      `json:"function"`
	Result   *ChatResult `json:"result"`
}

// ChatResult is the function-call outcome embedded in a chat response.
type ChatResult struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}
