package tui

// dispatchDoneMsg reports that an intent finished; the session already holds
// the outcome.
type dispatchDoneMsg struct {
	err error
}

// feedbackDoneMsg carries the acknowledgement for a feedback submission.
type feedbackDoneMsg struct {
	ack string
	err error
}
