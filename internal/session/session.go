package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the conversation state of one chat. All methods are safe for
// concurrent use: requests resolve on their own goroutine while front-ends
// read the state from theirs.
//
// At most one pending placeholder exists at a time and it is always the last
// entry of the history. Appending any message while a placeholder is live
// supersedes it.
type Session struct {
	mu        sync.RWMutex
	history   []ChatMessage
	pendingID string
	loading   bool
	lastError *OperationError
	selected  []string
	draft     string

	now   func() time.Time
	newID func() string
}

// Option customises a Session.
type Option func(*Session)

// WithClock overrides the clock used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator overrides how message IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// New returns an empty session.
func New(opts ...Option) *Session {
	s := &Session{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settlement is the outcome applied to the history when a request resolves.
type Settlement struct {
	Messages []ChatMessage
	// Err, when set, becomes the session's last error.
	Err *OperationError
	// ClearWorkingSet empties the selected medications and the draft.
	ClearWorkingSet bool
}

// Append adds msg to the end of the history, stamping its ID and timestamp
// when unset, and returns the stored message. Appending a pending message
// makes it the live placeholder.
func (s *Session) Append(msg ChatMessage) ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(msg)
}

// AppendSettled adds msg without disturbing a request in flight: with a live
// placeholder msg is inserted just before it, so the placeholder stays the
// tail. Otherwise it behaves like Append. msg must not be pending.
func (s *Session) AppendSettled(msg ChatMessage) ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	if s.pendingID == "" || n == 0 || s.history[n-1].ID != s.pendingID || msg.Status == StatusPending {
		return s.appendLocked(msg)
	}
	placeholder := s.history[n-1]
	s.history = s.history[:n-1]
	s.pendingID = ""
	stored := s.appendLocked(msg)
	s.history = append(s.history, placeholder)
	s.pendingID = placeholder.ID
	return stored
}

// ReplacePending removes the live placeholder, if any, and appends msgs in
// order. With no placeholder it only appends.
func (s *Session) ReplacePending(msgs ...ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removePendingLocked()
	for _, m := range msgs {
		s.appendLocked(m)
	}
}

// BeginPending appends a fresh placeholder, raises the loading flag and clears
// the last error. The returned ID identifies this request in Settle.
func (s *Session) BeginPending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.appendLocked(pendingMessage())
	s.loading = true
	s.lastError = nil
	return stored.ID
}

// Settle resolves the request whose placeholder is pendingID: the placeholder
// is replaced by st.Messages and the loading flag drops, all in one step.
// It returns false and changes nothing when that placeholder is no longer
// live, either because a newer request superseded it or the session was
// reset.
func (s *Session) Settle(pendingID string, st Settlement) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pendingID == "" || s.pendingID != pendingID {
		return false
	}
	s.removePendingLocked()
	for _, m := range st.Messages {
		s.appendLocked(m)
	}
	if st.Err != nil {
		e := *st.Err
		s.lastError = &e
	}
	if st.ClearWorkingSet {
		s.selected = nil
		s.draft = ""
	}
	s.loading = false
	return true
}

// ReleaseIfIdle drops the loading flag when no placeholder is live. A request
// whose placeholder was superseded calls it so the flag cannot stay raised
// with nothing in flight.
func (s *Session) ReleaseIfIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingID == "" {
		s.loading = false
	}
}

// SetLoading sets the loading flag.
func (s *Session) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

// SetError records err as the last error; nil clears it.
func (s *Session) SetError(err *OperationError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastError = nil
		return
	}
	e := *err
	s.lastError = &e
}

// AddSelectedMedication adds name, trimmed and lower-cased, to the working
// set. Empty names and duplicates are ignored; the return value reports
// whether the set changed.
func (s *Session) AddSelectedMedication(name string) bool {
	key := normalizeName(name)
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.selected {
		if m == key {
			return false
		}
	}
	s.selected = append(s.selected, key)
	return true
}

// RemoveSelectedMedication removes name from the working set if present.
func (s *Session) RemoveSelectedMedication(name string) bool {
	key := normalizeName(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.selected {
		if m == key {
			s.selected = append(s.selected[:i:i], s.selected[i+1:]...)
			return true
		}
	}
	return false
}

// ClearSelectedMedications empties the working set.
func (s *Session) ClearSelectedMedications() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

// SetDraft stores the free-text interaction input.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

// Draft returns the free-text interaction input.
func (s *Session) Draft() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// Reset returns the session to its initial empty state. A request still in
// flight will find its placeholder gone and its result is dropped.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.pendingID = ""
	s.loading = false
	s.lastError = nil
	s.selected = nil
	s.draft = ""
}

// History returns a copy of the message history.
func (s *Session) History() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ChatMessage(nil), s.history...)
}

// IsLoading reports whether a request is in flight.
func (s *Session) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns a copy of the last error, or nil.
func (s *Session) LastError() *OperationError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastError == nil {
		return nil
	}
	e := *s.lastError
	return &e
}

// SelectedMedications returns the working set in insertion order.
func (s *Session) SelectedMedications() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.selected...)
}

// PendingID returns the ID of the live placeholder, or "" when none exists.
func (s *Session) PendingID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingID
}

// Snapshot is a read-only projection of the session for presentation.
type Snapshot struct {
	History             []ChatMessage   `json:"history"`
	IsLoading           bool            `json:"is_loading"`
	LastError           *OperationError `json:"last_error,omitempty"`
	SelectedMedications []string        `json:"selected_medications"`
	Draft               string          `json:"draft,omitempty"`
}

// Snapshot copies the current state under a single read lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		History:             append([]ChatMessage(nil), s.history...),
		IsLoading:           s.loading,
		SelectedMedications: append([]string{}, s.selected...),
		Draft:               s.draft,
	}
	if s.lastError != nil {
		e := *s.lastError
		snap.LastError = &e
	}
	return snap
}

func (s *Session) appendLocked(msg ChatMessage) ChatMessage {
	s.removePendingLocked()
	if msg.ID == "" {
		msg.ID = s.newID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	if msg.Status == "" {
		msg.Status = StatusNormal
	}
	if msg.Variant == "" {
		msg.Variant = VariantPlain
	}
	s.history = append(s.history, msg)
	if msg.Status == StatusPending {
		s.pendingID = msg.ID
	}
	return msg
}

// removePendingLocked drops the live placeholder. It is always the tail, so
// this is constant time.
func (s *Session) removePendingLocked() {
	if s.pendingID == "" {
		return
	}
	if n := len(s.history); n > 0 && s.history[n-1].ID == s.pendingID {
		s.history = s.history[:n-1]
	}
	s.pendingID = ""
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
