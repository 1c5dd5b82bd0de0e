package apiclient

import (
	"encoding/json"
	"fmt"
)

// HTTPError is returned for any non-2xx backend response.
// Message is the backend's `message`, or a status-derived fallback.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func newHTTPError(status int, body []byte) *HTTPError {
	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := messageText(payload.Message); msg != "" {
			return &HTTPError{Status: status, Message: msg}
		}
	}
	return &HTTPError{Status: status, Message: fmt.Sprintf("HTTP error! Status: %d", status)}
}

// messageText accepts `"text"` or `["text", ...]` (validation pipes answer with a list).
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg
	}
	var msgs []string
	if err := json.Unmarshal(raw, &msgs); err == nil && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}
