package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyPayload is returned when a 2xx response carries no data.
var ErrEmptyPayload = errors.New("response has no data")

// ErrorBody is the backend's error payload. Code is numeric on some routes
// and a string on others.
type ErrorBody struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
	Title   string          `json:"title"`
	Action  string          `json:"action"`
}

// CodeString returns Code as text whether it was sent as a number or string.
func (b ErrorBody) CodeString() string {
	if len(b.Code) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Code, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(b.Code))
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       ErrorBody
}

func (e *StatusError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body.Message)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// NotFound reports whether the response marks the resource as missing,
// either by status or by the body's code.
func (e *StatusError) NotFound() bool {
	if e.StatusCode == http.StatusNotFound {
		return true
	}
	switch strings.ToLower(e.Body.CodeString()) {
	case "404", "not_found":
		return true
	}
	return false
}

// IsNotFound reports whether err wraps a not-found StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.NotFound()
}

// StatusBody returns the error body carried by err, if any.
func StatusBody(err error) (ErrorBody, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Body, true
	}
	return ErrorBody{}, false
}

func statusError(code int, body []byte) error {
	se := &StatusError{StatusCode: code}
	if err := json.Unmarshal(body, &se.Body); err != nil {
		se.Body = ErrorBody{}
	}
	return se
}
