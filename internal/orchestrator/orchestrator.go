// Package orchestrator drives one conversation: it validates each intent,
// records the user message and a pending placeholder, sends exactly one
// request and settles the placeholder with the normalized result or a
// user-facing error.
//
// Front-ends are expected to keep one request in flight at a time by
// disabling input while the session is loading. The orchestrator does not
// reject a second call; instead each request is tied to its placeholder, and
// a response whose placeholder has been superseded or reset is dropped
// rather than applied.
package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/medsplain/medsplain/internal/api"
	"github.com/medsplain/medsplain/internal/log"
	"github.com/medsplain/medsplain/internal/normalize"
	"github.com/medsplain/medsplain/internal/session"
)

// Backend is the subset of the API client the orchestrator uses.
type Backend interface {
	MedicationInfo(ctx context.Context, req api.MedicationInfoRequest) (json.RawMessage, error)
	CheckInteractions(ctx context.Context, meds []string) (json.RawMessage, error)
	Chat(ctx context.Context, prompt string) (json.RawMessage, error)
	LogQuery(ctx context.Context, req api.LogQueryRequest) error
	Feedback(ctx context.Context, req api.FeedbackRequest) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	IncludeInteractions bool
	IncludeSideEffects  bool
	// Level is used when Ask is called without one.
	Level Level
	// Telemetry enables /log-query after interaction checks.
	Telemetry bool
	UserID    string
	// TelemetryPerMinute caps /log-query calls; zero means unlimited.
	TelemetryPerMinute int
	Logger             *log.Logger
}

// DefaultOptions mirrors the default configuration.
func DefaultOptions() Options {
	return Options{
		IncludeInteractions: true,
		IncludeSideEffects:  true,
		Level:               LevelIntermediate,
		Telemetry:           true,
		UserID:              "anon_user123",
		TelemetryPerMinute:  30,
	}
}

// Intent is a user action routed by Dispatch.
type Intent struct {
	Mode  session.Mode
	Text  string
	Level Level
}

// Orchestrator runs intents against a Backend and records the outcome in a
// Session.
type Orchestrator struct {
	backend Backend
	session *session.Session
	opts    Options
	limiter *rate.Limiter
	log     *log.Logger
	now     func() time.Time
}

// New wires an orchestrator to backend and sess.
func New(backend Backend, sess *session.Session, opts Options) *Orchestrator {
	if opts.Level == "" {
		opts.Level = LevelIntermediate
	}
	o := &Orchestrator{
		backend: backend,
		session: sess,
		opts:    opts,
		log:     opts.Logger,
		now:     time.Now,
	}
	if opts.TelemetryPerMinute > 0 {
		o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.TelemetryPerMinute)), opts.TelemetryPerMinute)
	}
	return o
}

// Session returns the state the orchestrator writes to.
func (o *Orchestrator) Session() *session.Session { return o.session }

// Level returns the default comprehension level.
func (o *Orchestrator) Level() Level { return o.opts.Level }

// Dispatch routes in to the operation for its mode.
func (o *Orchestrator) Dispatch(ctx context.Context, in Intent) error {
	switch in.Mode {
	case session.ModeSearch:
		return o.Lookup(ctx, in.Text)
	case session.ModeInteractions:
		return o.CheckInteractions(ctx, in.Text)
	default:
		return o.Ask(ctx, in.Text, in.Level)
	}
}

// Lookup fetches information about one medication.
func (o *Orchestrator) Lookup(ctx context.Context, query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return o.reject(session.ModeSearch, errNoMedicationName)
	}

	return o.run(ctx, session.ModeSearch, q, func(ctx context.Context) (session.Settlement, error) {
		data, err := o.backend.MedicationInfo(ctx, api.MedicationInfoRequest{
			MedicationName:      q,
			IncludeInteractions: o.opts.IncludeInteractions,
			IncludeSideEffects:  o.opts.IncludeSideEffects,
		})
		if err != nil {
			return session.Settlement{}, err
		}
		msgs, err := normalize.Normalize(session.ModeSearch, data, q)
		if err != nil {
			return session.Settlement{}, err
		}
		return session.Settlement{Messages: msgs}, nil
	}, func(err error) error { return classifyLookup(q, err) })
}

// CheckInteractions checks the working set against itself. When the working
// set is empty it is filled from input (or the session draft), split on
// commas, semicolons and newlines. On success the working set and draft are
// cleared.
func (o *Orchestrator) CheckInteractions(ctx context.Context, input string) error {
	meds := o.session.SelectedMedications()
	if len(meds) == 0 {
		text := input
		if strings.TrimSpace(text) == "" {
			text = o.session.Draft()
		}
		for _, name := range SplitMedications(text) {
			o.session.AddSelectedMedication(name)
		}
		meds = o.session.SelectedMedications()
	}
	if len(meds) == 0 {
		return o.reject(session.ModeInteractions, errNoMedications)
	}

	var report *normalize.Checked
	err := o.run(ctx, session.ModeInteractions, strings.Join(meds, ", "), func(ctx context.Context) (session.Settlement, error) {
		data, err := o.backend.CheckInteractions(ctx, meds)
		if err != nil {
			return session.Settlement{}, err
		}
		checked, err := normalize.Interactions(data, meds)
		if err != nil {
			return session.Settlement{}, err
		}
		report = &checked
		return session.Settlement{Messages: checked.Messages, ClearWorkingSet: true}, nil
	}, classifyRequest(session.ModeInteractions))

	if err == nil && report != nil && report.Report.TotalInteractions > 0 {
		o.LogQuery(ctx, api.LogQueryRequest{
			Medications:       report.Report.Medications,
			InteractionsFound: report.Report.TotalInteractions,
			SeverityLevel:     string(report.Report.MaxSeverity()),
		})
	}
	return err
}

// Ask sends prompt to the assistant tagged with level, or the default level
// when level is empty. The history shows the prompt without the tag.
func (o *Orchestrator) Ask(ctx context.Context, prompt string, level Level) error {
	p := strings.TrimSpace(prompt)
	if p == "" {
		return o.reject(session.ModeAssistant, errNoPrompt)
	}
	if level == "" {
		level = o.opts.Level
	}

	return o.run(ctx, session.ModeAssistant, p, func(ctx context.Context) (session.Settlement, error) {
		raw, err := o.backend.Chat(ctx, AugmentPrompt(level, p))
		if err != nil {
			return session.Settlement{}, err
		}
		return session.Settlement{Messages: normalize.Assistant(raw)}, nil
	}, classifyRequest(session.ModeAssistant))
}

// Reset clears the conversation.
func (o *Orchestrator) Reset() {
	o.session.Reset()
	o.event(log.LogEvent{Event: log.EventSessionReset})
}

// SplitMedications splits free text on commas, semicolons and newlines and
// drops empty entries.
func SplitMedications(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

type requestFunc func(ctx context.Context) (session.Settlement, error)

// run applies the placeholder protocol shared by every intent.
func (o *Orchestrator) run(ctx context.Context, mode session.Mode, display string, do requestFunc, classify func(error) error) error {
	o.session.Append(session.UserMessage(display, mode))
	id := o.session.BeginPending()
	start := o.now()
	o.event(log.LogEvent{Event: log.EventIntentStarted, Intent: string(mode), RequestID: id, Subject: display})

	done := false
	defer func() {
		// Reached only when do or classify panicked.
		if !done {
			op := genericError(mode)
			o.session.Settle(id, session.Settlement{Messages: []session.ChatMessage{session.ErrorMessage(op.Message)}, Err: &op})
			o.session.ReleaseIfIdle()
		}
	}()

	st, err := do(ctx)
	if err != nil {
		failure := classify(err)
		op, _ := Operation(failure)
		done = true
		if !o.session.Settle(id, session.Settlement{Messages: []session.ChatMessage{session.ErrorMessage(op.Message)}, Err: &op}) {
			o.dropStale(mode, id, err)
			return ErrSuperseded
		}
		o.event(log.LogEvent{
			Event:      log.EventIntentFailed,
			Intent:     string(mode),
			RequestID:  id,
			Subject:    display,
			Kind:       errorKind(failure),
			Status:     statusCode(err),
			Error:      err.Error(),
			DurationMs: o.since(start),
		})
		return failure
	}

	done = true
	if !o.session.Settle(id, st) {
		o.dropStale(mode, id, nil)
		return ErrSuperseded
	}
	o.event(log.LogEvent{
		Event:      log.EventIntentSucceeded,
		Intent:     string(mode),
		RequestID:  id,
		Subject:    display,
		Messages:   len(st.Messages),
		DurationMs: o.since(start),
	})
	return nil
}

// reject records a validation failure. The error message goes in behind any
// live placeholder, so a request already in flight keeps its slot and the
// loading flag.
func (o *Orchestrator) reject(mode session.Mode, op session.OperationError) error {
	o.session.AppendSettled(session.ErrorMessage(op.Message))
	o.session.SetError(&op)
	o.event(log.LogEvent{Event: log.EventValidationFailed, Intent: string(mode), Error: op.Message})
	return &ValidationError{Intent: mode, Op: op}
}

func (o *Orchestrator) dropStale(mode session.Mode, id string, cause error) {
	o.session.ReleaseIfIdle()
	ev := log.LogEvent{Event: log.EventStaleResponseDropped, Intent: string(mode), RequestID: id}
	if cause != nil {
		ev.Error = cause.Error()
	}
	o.event(ev)
}

func (o *Orchestrator) since(start time.Time) int64 {
	return o.now().Sub(start).Milliseconds()
}

// event writes to the event log. Logging failures are never surfaced.
func (o *Orchestrator) event(ev log.LogEvent) {
	_ = o.log.Append(ev)
}

func errorKind(err error) string {
	switch err.(type) {
	case *ValidationError:
		return "validation"
	case *NotFoundError:
		return "not_found"
	default:
		return "request"
	}
}
