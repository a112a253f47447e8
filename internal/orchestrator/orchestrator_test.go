package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsplain/medsplain/internal/api"
	"github.com/medsplain/medsplain/internal/log"
	"github.com/medsplain/medsplain/internal/session"
	"github.com/medsplain/medsplain/internal/testutil"
)

type harness struct {
	fake   *testutil.FakeAPI
	sess   *session.Session
	orch   *Orchestrator
	logger *log.Logger
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	logger, err := log.NewLogger(t.TempDir())
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Logger = logger
	for _, m := range mutate {
		m(&opts)
	}
	sess := session.New()
	return &harness{
		fake:   fake,
		sess:   sess,
		orch:   New(api.NewClient(fake.URL()), sess, opts),
		logger: logger,
	}
}

func (h *harness) events(t *testing.T, name string) []log.LogEvent {
	t.Helper()
	all, err := h.logger.ReadAll()
	require.NoError(t, err)
	return log.Filter(all, name)
}

// assertSettled checks the terminal-state guarantees shared by every path.
func assertSettled(t *testing.T, s *session.Session) {
	t.Helper()
	assert.False(t, s.IsLoading(), "loading flag left raised")
	assert.Empty(t, s.PendingID(), "placeholder left behind")
	for _, m := range s.History() {
		assert.NotEqual(t, session.StatusPending, m.Status)
	}
}

func TestLookupSuccess(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/medication-info", http.StatusOK, testutil.Envelope(testutil.IbuprofenRecord()))
	h.sess.SetError(&session.OperationError{Title: "stale", Message: "stale"})

	require.NoError(t, h.orch.Lookup(context.Background(), "  ibuprofen "))

	hist := h.sess.History()
	require.Len(t, hist, 2)
	assert.Equal(t, session.RoleUser, hist[0].Role)
	assert.Equal(t, "ibuprofen", hist[0].Content)
	assert.Equal(t, session.ModeSearch, hist[0].Mode)
	assert.Equal(t, session.VariantMedicationInfo, hist[1].Variant)
	assert.Equal(t, "Medication information for ibuprofen", hist[1].Content)
	assert.Nil(t, h.sess.LastError())
	assertSettled(t, h.sess)

	body := h.fake.Requests("/medication-info")[0].JSON(t)
	assert.Equal(t, "ibuprofen", body["medication_name"])
	assert.Equal(t, true, body["include_interactions"])
	assert.Equal(t, true, body["include_side_effects"])

	assert.Len(t, h.events(t, log.EventIntentSucceeded), 1)
}

func TestLookupKeepsEmptyUses(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/medication-info", http.StatusOK, `{"status":"success","data":{"generic_name":"Ibuprofen","uses":[]}}`)

	require.NoError(t, h.orch.Lookup(context.Background(), "ibuprofen"))

	rec := h.sess.History()[1].Medication
	require.NotNil(t, rec)
	assert.NotNil(t, rec.Uses)
	assert.Empty(t, rec.Uses)
}

func TestLookupRequiresQuery(t *testing.T) {
	h := newHarness(t)

	err := h.orch.Lookup(context.Background(), "   ")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))

	assert.Zero(t, h.fake.Calls())
	hist := h.sess.History()
	require.Len(t, hist, 1)
	assert.Equal(t, session.StatusError, hist[0].Status)
	assert.Equal(t, "Please provide a medication name.", hist[0].Content)
	require.NotNil(t, h.sess.LastError())
	assertSettled(t, h.sess)
}

func TestLookupNotFound(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/medication-info", http.StatusNotFound, `{"message":"not found"}`)

	err := h.orch.Lookup(context.Background(), "zzzznotadrug")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.True(t, api.IsNotFound(err))

	last := h.sess.LastError()
	require.NotNil(t, last)
	assert.Equal(t, "Medication not found", last.Title)
	assert.Equal(t, "Try a different medication name or check spelling.", last.ActionHint)

	hist := h.sess.History()
	require.Len(t, hist, 2)
	assert.Equal(t, session.StatusError, hist[1].Status)
	assert.Equal(t, "not found", hist[1].Content)
	assertSettled(t, h.sess)

	failed := h.events(t, log.EventIntentFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "not_found", failed[0].Kind)
	assert.Equal(t, http.StatusNotFound, failed[0].Status)
}

func TestLookupNotFoundByCodeUsesDefaults(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/medication-info", http.StatusBadRequest, `{"status":"error","code":"not_found"}`)

	err := h.orch.Lookup(context.Background(), "zzz")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, `We couldn't find information for "zzz". Please check the spelling or try a different medication name.`, h.sess.LastError().Message)
}

func TestLookupServerErrorIsGeneric(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/medication-info", http.StatusInternalServerError, `{"message":"Traceback (most recent call last): KeyError"}`)

	err := h.orch.Lookup(context.Background(), "ibuprofen")
	var re *RequestError
	require.True(t, errors.As(err, &re))

	last := h.sess.LastError()
	assert.Equal(t, "Medication lookup failed", last.Title)
	assert.Equal(t, "The medication could not be retrieved.", last.Message)
	assert.Equal(t, "Please check the name or try again later.", last.ActionHint)
	for _, m := range h.sess.History() {
		assert.NotContains(t, m.Content, "Traceback")
	}
	assertSettled(t, h.sess)
}

func TestLookupNetworkFailure(t *testing.T) {
	h := newHarness(t)
	h.fake.Close()

	err := h.orch.Lookup(context.Background(), "ibuprofen")
	var re *RequestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "The medication could not be retrieved.", h.sess.LastError().Message)
	assertSettled(t, h.sess)
}

func TestCheckInteractionsParsesFreeText(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/check-interactions", http.StatusOK, testutil.Envelope(testutil.AspirinWarfarinReport()))
	h.fake.Respond("/log-query", http.StatusOK, `{"status":"success"}`)

	atRequest := make(chan []string, 1)
	h.fake.Before("/check-interactions", func() {
		atRequest <- h.sess.SelectedMedications()
	})

	require.NoError(t, h.orch.CheckInteractions(context.Background(), "Aspirin, warfarin"))

	assert.Equal(t, []string{"aspirin", "warfarin"}, <-atRequest)
	body := h.fake.Requests("/check-interactions")[0].JSON(t)
	assert.Equal(t, []interface{}{"aspirin", "warfarin"}, body["medications"])

	hist := h.sess.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "aspirin, warfarin", hist[0].Content)
	assert.Equal(t, session.ModeInteractions, hist[0].Mode)
	assert.Equal(t, session.VariantInteractionResult, hist[1].Variant)
	assert.Equal(t, "Interaction check results for: aspirin, warfarin", hist[1].Content)

	assert.Empty(t, h.sess.SelectedMedications())
	assert.Empty(t, h.sess.Draft())
	assertSettled(t, h.sess)
}

func TestCheckInteractionsRequiresMedications(t *testing.T) {
	h := newHarness(t)

	err := h.orch.CheckInteractions(context.Background(), " ,; \n")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))

	assert.Zero(t, h.fake.Calls())
	assert.False(t, h.sess.IsLoading())
	hist := h.sess.History()
	require.Len(t, hist, 1)
	assert.Equal(t, session.StatusError, hist[0].Status)
	assert.Equal(t, "Please provide one or more medication names to check for interactions.", hist[0].Content)
	assertSettled(t, h.sess)
}

func TestCheckInteractionsPrefersWorkingSet(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/check-interactions", http.StatusOK, `{"status":"success","data":{"medications":["aspirin","ibuprofen"],"pairs_evaluated":1,"total_interactions":0,"interactions":[]}}`)
	h.sess.AddSelectedMedication("Aspirin")
	h.sess.AddSelectedMedication("Ibuprofen")

	require.NoError(t, h.orch.CheckInteractions(context.Background(), "warfarin"))

	body := h.fake.Requests("/check-interactions")[0].JSON(t)
	assert.Equal(t, []interface{}{"aspirin", "ibuprofen"}, body["medications"])
	assert.Empty(t, h.fake.Requests("/log-query"), "no telemetry without interactions")
}

func TestCheckInteractionsUsesDraft(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/check-interactions", http.StatusOK, testutil.Envelope(testutil.AspirinWarfarinReport()))
	h.fake.Respond("/log-query", http.StatusOK, `{}`)
	h.sess.SetDraft("aspirin\nwarfarin")

	require.NoError(t, h.orch.CheckInteractions(context.Background(), ""))
	assert.Empty(t, h.sess.Draft())
}

func TestCheckInteractionsFailureKeepsWorkingSet(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/check-interactions", http.StatusBadGateway, `oops`)

	err := h.orch.CheckInteractions(context.Background(), "aspirin; warfarin")
	var re *RequestError
	require.True(t, errors.As(err, &re))

	assert.Equal(t, []string{"aspirin", "warfarin"}, h.sess.SelectedMedications())
	assert.Equal(t, "Failed to check interactions. Please try again.", h.sess.LastError().Message)
	hist := h.sess.History()
	assert.Equal(t, "Failed to check interactions. Please try again.", hist[len(hist)-1].Content)
	assertSettled(t, h.sess)
}

func TestCheckInteractionsLogsQuery(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/check-interactions", http.StatusOK, testutil.Envelope(testutil.AspirinWarfarinReport()))
	h.fake.Respond("/log-query", http.StatusOK, `{"status":"success"}`)

	require.NoError(t, h.orch.CheckInteractions(context.Background(), "aspirin, warfarin"))

	reqs := h.fake.Requests("/log-query")
	require.Len(t, reqs, 1)
	body := reqs[0].JSON(t)
	assert.Equal(t, "anon_user123", body["user_id"])
	assert.Equal(t, []interface{}{"aspirin", "warfarin"}, body["medications"])
	assert.Equal(t, float64(1), body["interactions_found"])
	assert.Equal(t, "major", body["severity_level"])
	assert.Len(t, h.events(t, log.EventTelemetrySent), 1)
}

func TestTelemetryDisabled(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Telemetry = false })
	h.fake.Respond("/check-interactions", http.StatusOK, testutil.Envelope(testutil.AspirinWarfarinReport()))

	require.NoError(t, h.orch.CheckInteractions(context.Background(), "aspirin, warfarin"))
	assert.Empty(t, h.fake.Requests("/log-query"))
}

func TestFailedLogQueryNeverTouchesSession(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/log-query", http.StatusInternalServerError, `{"message":"db down"}`)
	h.sess.Append(session.UserMessage("earlier", session.ModeAssistant))
	prior := &session.OperationError{Title: "Earlier", Message: "earlier failure"}
	h.sess.SetError(prior)
	before := h.sess.Snapshot()

	req := api.LogQueryRequest{Medications: []string{"a", "b"}, InteractionsFound: 1, SeverityLevel: "minor"}
	h.orch.LogQuery(context.Background(), req)
	h.orch.LogQuery(context.Background(), req)

	assert.Equal(t, before, h.sess.Snapshot())
	assert.Len(t, h.fake.Requests("/log-query"), 2)
	failed := h.events(t, log.EventTelemetryFailed)
	require.Len(t, failed, 2)
	assert.Equal(t, "logging_failure", failed[0].Kind)
}

func TestLogQueryThrottled(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.TelemetryPerMinute = 1 })
	h.fake.Respond("/log-query", http.StatusOK, `{}`)

	req := api.LogQueryRequest{Medications: []string{"a", "b"}, InteractionsFound: 1}
	h.orch.LogQuery(context.Background(), req)
	h.orch.LogQuery(context.Background(), req)

	assert.Len(t, h.fake.Requests("/log-query"), 1)
	assert.Len(t, h.events(t, log.EventTelemetryThrottled), 1)
}

func TestAskAugmentsPromptButShowsRawText(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/chat", http.StatusOK, testutil.ChatText("Ibuprofen is an NSAID."))

	require.NoError(t, h.orch.Ask(context.Background(), "  What is ibuprofen? ", LevelBasic))
	require.NoError(t, h.orch.Ask(context.Background(), "And aspirin?", ""))

	reqs := h.fake.Requests("/chat")
	require.Len(t, reqs, 2)
	assert.Equal(t, "[level:Basic] What is ibuprofen?", reqs[0].JSON(t)["prompt"])
	assert.Equal(t, "[level:Intermediate] And aspirin?", reqs[1].JSON(t)["prompt"])

	hist := h.sess.History()
	require.Len(t, hist, 4)
	assert.Equal(t, "What is ibuprofen?", hist[0].Content)
	assert.Equal(t, session.ModeAssistant, hist[0].Mode)
	assert.Equal(t, "Ibuprofen is an NSAID.", hist[1].Content)
	assert.Equal(t, session.VariantPlain, hist[1].Variant)
	assertSettled(t, h.sess)
}

func TestAskFunctionCallInteractions(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/chat", http.StatusOK, `{"via":"gemini:function_call","result":{"data":{"interactions":[{"drug1":"a","drug2":"b","severity":"minor","description":"d","recommendation":"r"}],"total_interactions":1,"medications":["a","b"]}}}`)

	require.NoError(t, h.orch.Ask(context.Background(), "do a and b interact?", ""))

	hist := h.sess.History()
	require.Len(t, hist, 2, "exactly one assistant message")
	assert.Equal(t, session.VariantInteractionResult, hist[1].Variant)
	require.NotNil(t, hist[1].Interactions)
	assert.Equal(t, []string{"a", "b"}, hist[1].Interactions.Medications)
}

func TestAskFunctionCallMedication(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/chat", http.StatusOK, testutil.ChatFunctionCall("get_medication_info", testutil.IbuprofenRecord()))

	require.NoError(t, h.orch.Ask(context.Background(), "tell me about ibuprofen", LevelExpert))

	hist := h.sess.History()
	require.Len(t, hist, 2)
	assert.Equal(t, session.VariantMedicationInfo, hist[1].Variant)
	assert.Equal(t, "Medication information for ibuprofen", hist[1].Content)
}

func TestAskFailureIsGeneric(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/chat", http.StatusInternalServerError, `{"status":"error","message":"GEMINI_API_KEY missing"}`)

	err := h.orch.Ask(context.Background(), "hello", "")
	var re *RequestError
	require.True(t, errors.As(err, &re))

	last := h.sess.LastError()
	assert.Equal(t, "Unexpected error", last.Title)
	assert.Equal(t, "There was an unexpected error. Please try again later.", last.Message)
	assert.Equal(t, "Please try again later.", last.ActionHint)
	hist := h.sess.History()
	assert.Equal(t, last.Message, hist[len(hist)-1].Content)
	assertSettled(t, h.sess)
}

func TestAskRequiresPrompt(t *testing.T) {
	h := newHarness(t)

	err := h.orch.Ask(context.Background(), "\n\t ", LevelBasic)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Zero(t, h.fake.Calls())
	assertSettled(t, h.sess)
}

func TestResetDropsInFlightResponse(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/chat", http.StatusOK, testutil.ChatText("late answer"))
	entered := make(chan struct{})
	release := make(chan struct{})
	h.fake.Before("/chat", func() {
		close(entered)
		<-release
	})

	result := make(chan error, 1)
	go func() { result <- h.orch.Ask(context.Background(), "slow question", "") }()

	<-entered
	assert.True(t, h.sess.IsLoading())
	h.orch.Reset()
	close(release)

	assert.ErrorIs(t, <-result, ErrSuperseded)
	assert.Empty(t, h.sess.History())
	assertSettled(t, h.sess)
	assert.Len(t, h.events(t, log.EventStaleResponseDropped), 1)
	assert.Len(t, h.events(t, log.EventSessionReset), 1)
}

func TestValidationFailureKeepsInFlightRequest(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/chat", http.StatusOK, testutil.ChatText("real answer"))
	entered := make(chan struct{})
	release := make(chan struct{})
	h.fake.Before("/chat", func() {
		close(entered)
		<-release
	})

	result := make(chan error, 1)
	go func() { result <- h.orch.Ask(context.Background(), "slow q", "") }()
	<-entered
	pending := h.sess.PendingID()
	require.NotEmpty(t, pending)

	err := h.orch.Lookup(context.Background(), "   ")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.True(t, h.sess.IsLoading())
	assert.Equal(t, pending, h.sess.PendingID())
	require.NotNil(t, h.sess.LastError())
	assert.Equal(t, "Missing medication name", h.sess.LastError().Title)

	close(release)
	require.NoError(t, <-result)

	hist := h.sess.History()
	require.Len(t, hist, 3)
	assert.Equal(t, "slow q", hist[0].Content)
	assert.Equal(t, "Please provide a medication name.", hist[1].Content)
	assert.Equal(t, session.StatusError, hist[1].Status)
	assert.Equal(t, "real answer", hist[2].Content)
	assertSettled(t, h.sess)
	assert.Empty(t, h.events(t, log.EventStaleResponseDropped))
}

func TestNewerRequestSupersedesPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/chat", http.StatusOK, testutil.ChatText("late answer"))
	h.fake.Respond("/medication-info", http.StatusOK, testutil.Envelope(testutil.IbuprofenRecord()))
	entered := make(chan struct{})
	release := make(chan struct{})
	h.fake.Before("/chat", func() {
		close(entered)
		<-release
	})

	first := make(chan error, 1)
	go func() { first <- h.orch.Ask(context.Background(), "slow question", "") }()
	<-entered

	require.NoError(t, h.orch.Lookup(context.Background(), "ibuprofen"))
	close(release)
	assert.ErrorIs(t, <-first, ErrSuperseded)

	hist := h.sess.History()
	require.Len(t, hist, 3)
	assert.Equal(t, "slow question", hist[0].Content)
	assert.Equal(t, "ibuprofen", hist[1].Content)
	assert.Equal(t, session.VariantMedicationInfo, hist[2].Variant)
	for _, m := range hist {
		assert.NotEqual(t, "late answer", m.Content)
	}
	assertSettled(t, h.sess)
}

// panickingBackend fails every chat call with a panic.
type panickingBackend struct{ *api.Client }

func (panickingBackend) Chat(ctx context.Context, prompt string) (json.RawMessage, error) {
	panic("backend exploded")
}

func TestPanicDuringRequestSettlesPlaceholder(t *testing.T) {
	sess := session.New()
	orch := New(panickingBackend{Client: api.NewClient("http://127.0.0.1:0/api")}, sess, DefaultOptions())

	assert.PanicsWithValue(t, "backend exploded", func() {
		_ = orch.Ask(context.Background(), "what is aspirin?", "")
	})

	assertSettled(t, sess)
	hist := sess.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "what is aspirin?", hist[0].Content)
	assert.Equal(t, session.StatusError, hist[1].Status)
	assert.Equal(t, "There was an unexpected error. Please try again later.", hist[1].Content)
	require.NotNil(t, sess.LastError())
	assert.Equal(t, "Unexpected error", sess.LastError().Title)
}

func TestDispatchRoutesByMode(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/medication-info", http.StatusOK, testutil.Envelope(testutil.IbuprofenRecord()))
	h.fake.Respond("/check-interactions", http.StatusOK, `{"data":{"medications":["a","b"],"interactions":[],"total_interactions":0}}`)
	h.fake.Respond("/chat", http.StatusOK, testutil.ChatText("hi"))
	ctx := context.Background()

	require.NoError(t, h.orch.Dispatch(ctx, Intent{Mode: session.ModeSearch, Text: "ibuprofen"}))
	require.NoError(t, h.orch.Dispatch(ctx, Intent{Mode: session.ModeInteractions, Text: "a, b"}))
	require.NoError(t, h.orch.Dispatch(ctx, Intent{Mode: session.ModeAssistant, Text: "hello", Level: LevelExpert}))

	assert.Len(t, h.fake.Requests("/medication-info"), 1)
	assert.Len(t, h.fake.Requests("/check-interactions"), 1)
	require.Len(t, h.fake.Requests("/chat"), 1)
	assert.Equal(t, "[level:Expert] hello", h.fake.Requests("/chat")[0].JSON(t)["prompt"])
}

func TestSubmitFeedback(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/feedback", http.StatusOK, `{"message":"Feedback recorded"}`)

	ack, err := h.orch.SubmitFeedback(context.Background(), "ibuprofen", "Helpful")
	require.NoError(t, err)
	assert.Equal(t, "Feedback recorded", ack)
	body := h.fake.Requests("/feedback")[0].JSON(t)
	assert.Equal(t, "ibuprofen", body["medicationName"])
	assert.Equal(t, "helpful", body["type"])

	_, err = h.orch.SubmitFeedback(context.Background(), "ibuprofen", "meh")
	assert.Error(t, err)
	_, err = h.orch.SubmitFeedback(context.Background(), " ", "unclear")
	assert.Error(t, err)
}

func TestSubmitFeedbackFailureIsAcknowledged(t *testing.T) {
	h := newHarness(t)
	h.fake.Respond("/feedback", http.StatusInternalServerError, `{}`)
	before := h.sess.Snapshot()

	ack, err := h.orch.SubmitFeedback(context.Background(), "ibuprofen", "unclear")
	require.NoError(t, err)
	assert.Equal(t, DefaultFeedbackAck, ack)
	assert.Equal(t, before, h.sess.Snapshot())
	assert.Len(t, h.events(t, log.EventFeedbackFailed), 1)
}

func TestSplitMedications(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"aspirin, warfarin", []string{"aspirin", "warfarin"}},
		{"a;b\nc", []string{"a", "b", "c"}},
		{" , ;\n", []string{}},
		{"", []string{}},
		{"  ibuprofen  ", []string{"ibuprofen"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitMedications(tt.in), "input %q", tt.in)
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("expert")
	require.NoError(t, err)
	assert.Equal(t, LevelExpert, l)

	_, err = ParseLevel("genius")
	assert.Error(t, err)

	assert.Equal(t, LevelIntermediate, LevelBasic.Next())
	assert.Equal(t, LevelBasic, LevelExpert.Next())
	assert.Equal(t, "[level:Basic] hi", AugmentPrompt(LevelBasic, "hi"))
}
