package orchestrator

import (
	"errors"
	"fmt"

	"github.com/medsplain/medsplain/internal/api"
	"github.com/medsplain/medsplain/internal/session"
)

// ErrSuperseded is returned when a response arrives for a placeholder that
// is no longer live. The response is dropped.
var ErrSuperseded = errors.New("response superseded by a newer request")

// ValidationError is a local precondition failure; no request was sent.
type ValidationError struct {
	Intent session.Mode
	Op     session.OperationError
}

func (e *ValidationError) Error() string { return e.Op.Message }

// NotFoundError means the backend does not know the looked-up medication.
type NotFoundError struct {
	Query string
	Op    session.OperationError
	Err   error
}

func (e *NotFoundError) Error() string { return e.Op.Message }
func (e *NotFoundError) Unwrap() error { return e.Err }

// RequestError covers every other failed request. Op carries a generic
// message; the cause is only available through Unwrap.
type RequestError struct {
	Intent session.Mode
	Op     session.OperationError
	Err    error
}

func (e *RequestError) Error() string { return e.Op.Message }
func (e *RequestError) Unwrap() error { return e.Err }

// Operation returns the user-facing error carried by err.
func Operation(err error) (session.OperationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Op, true
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Op, true
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re.Op, true
	}
	return session.OperationError{}, false
}

var (
	errNoMedicationName = session.OperationError{
		Title:      "Missing medication name",
		Message:    "Please provide a medication name.",
		ActionHint: "Type a medication name and try again.",
	}
	errNoMedications = session.OperationError{
		Title:      "No medications provided",
		Message:    "Please provide one or more medication names to check for interactions.",
		ActionHint: "Add medications or separate names with commas.",
	}
	errNoPrompt = session.OperationError{
		Title:      "Empty question",
		Message:    "Please enter a question for the assistant.",
		ActionHint: "Type a question and try again.",
	}
)

// genericError is the one message shown for any failed request of mode.
func genericError(mode session.Mode) session.OperationError {
	switch mode {
	case session.ModeSearch:
		return session.OperationError{
			Title:      "Medication lookup failed",
			Message:    "The medication could not be retrieved.",
			ActionHint: "Please check the name or try again later.",
		}
	case session.ModeInteractions:
		return session.OperationError{
			Title:      "Interaction check failed",
			Message:    "Failed to check interactions. Please try again.",
			ActionHint: "Please try again later.",
		}
	default:
		return session.OperationError{
			Title:      "Unexpected error",
			Message:    "There was an unexpected error. Please try again later.",
			ActionHint: "Please try again later.",
		}
	}
}

// notFoundError keeps the backend's own wording when it supplied any.
func notFoundError(query string, body api.ErrorBody) session.OperationError {
	op := session.OperationError{
		Title:      "Medication not found",
		Message:    fmt.Sprintf("We couldn't find information for %q. Please check the spelling or try a different medication name.", query),
		ActionHint: "Try a different medication name or check spelling.",
	}
	if body.Title != "" {
		op.Title = body.Title
	}
	if body.Message != "" {
		op.Message = body.Message
	}
	if body.Action != "" {
		op.ActionHint = body.Action
	}
	return op
}

func classifyLookup(query string, err error) error {
	if api.IsNotFound(err) {
		body, _ := api.StatusBody(err)
		return &NotFoundError{Query: query, Op: notFoundError(query, body), Err: err}
	}
	return &RequestError{Intent: session.ModeSearch, Op: genericError(session.ModeSearch), Err: err}
}

func classifyRequest(mode session.Mode) func(error) error {
	return func(err error) error {
		return &RequestError{Intent: mode, Op: genericError(mode), Err: err}
	}
}

func statusCode(err error) int {
	var se *api.StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
