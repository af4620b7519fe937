package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const genericServerError = "server error"

// RemoteRequestError is returned when the API answers with a non-2xx status.
// Message carries the server-supplied text when the body had one.
type RemoteRequestError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *RemoteRequestError) Error() string {
	return e.Message
}

// TransportError is returned when the request never produced an HTTP response:
// connection refused, DNS failure, TLS or proxy rejection, timeout.
// Error() returns an operator-facing diagnosis; the raw failure is kept for Unwrap.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot reach the library API at %s: check that the server is running, "+
		"that the URL is correct and that no proxy or CORS policy rejects this client", e.URL)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a RemoteRequestError with the given status.
func IsStatus(err error, status int) bool {
	var remote *RemoteRequestError
	if errors.As(err, &remote) {
		return remote.Status == status
	}
	return false
}

// Message returns the human-readable text for err, suitable for display.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var remote *RemoteRequestError
	if errors.As(err, &remote) {
		return remote.Message
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.Error()
	}
	return err.Error()
}

// errorMessage extracts {error} or {detail} from a failed response body.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Error  json.RawMessage `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return genericServerError
	}
	if msg := rawText(payload.Error); msg != "" {
		return msg
	}
	if msg := rawText(payload.Detail); msg != "" {
		return msg
	}
	return fmt.Sprintf("Error %d", status)
}

// rawText accepts a JSON string, or a list of strings as some validation
// responses send, and returns the joined text.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, " "))
	}
	return ""
}
