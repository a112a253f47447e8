package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medsplain/medsplain/internal/api"
	"github.com/medsplain/medsplain/internal/log"
)

// DefaultFeedbackAck is returned when the backend gives no acknowledgement.
const DefaultFeedbackAck = "Thank you for your feedback!"

// LogQuery sends an analytics entry. It is best-effort: failures are written
// to the event log and never reach the session.
func (o *Orchestrator) LogQuery(ctx context.Context, req api.LogQueryRequest) {
	if !o.opts.Telemetry {
		return
	}
	if req.UserID == "" {
		req.UserID = o.opts.UserID
	}
	if req.SeverityLevel == "" {
		req.SeverityLevel = "none"
	}
	ev := log.LogEvent{
		Medications: req.Medications,
		Total:       req.InteractionsFound,
		Severity:    req.SeverityLevel,
	}
	if o.limiter != nil && !o.limiter.Allow() {
		ev.Event = log.EventTelemetryThrottled
		o.event(ev)
		return
	}
	if err := o.backend.LogQuery(ctx, req); err != nil {
		ev.Event = log.EventTelemetryFailed
		ev.Kind = "logging_failure"
		ev.Status = statusCode(err)
		ev.Error = err.Error()
		o.event(ev)
		return
	}
	ev.Event = log.EventTelemetrySent
	o.event(ev)
}

// SubmitFeedback rates the explanation given for medicationName as helpful
// or unclear. Only invalid arguments return an error; a failed submission
// is logged and still acknowledged.
func (o *Orchestrator) SubmitFeedback(ctx context.Context, medicationName, kind string) (string, error) {
	name := strings.TrimSpace(medicationName)
	if name == "" {
		return "", errors.New("medication name is required")
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != api.FeedbackHelpful && kind != api.FeedbackUnclear {
		return "", fmt.Errorf("unknown feedback type %q (want %s or %s)", kind, api.FeedbackHelpful, api.FeedbackUnclear)
	}

	ack, err := o.backend.Feedback(ctx, api.FeedbackRequest{MedicationName: name, Type: kind})
	if err != nil {
		o.event(log.LogEvent{
			Event:   log.EventFeedbackFailed,
			Kind:    "logging_failure",
			Subject: name,
			Status:  statusCode(err),
			Error:   err.Error(),
		})
		return DefaultFeedbackAck, nil
	}
	if strings.TrimSpace(ack) == "" {
		ack = DefaultFeedbackAck
	}
	return ack, nil
}
