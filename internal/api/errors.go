package api

// ============================================================================
// API Error Definitions
// Purpose: Map remote status codes onto errors callers can match with errors.Is
// ============================================================================

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Predefined errors
var (
	// ErrBadRequest indicates the service rejected the payload (400)
	ErrBadRequest = errors.New("api: bad request")

	// ErrUnauthorized indicates a missing, invalid or expired token (401)
	ErrUnauthorized = errors.New("api: unauthorized")

	// ErrForbidden indicates the token's role may not perform the call (403)
	ErrForbidden = errors.New("api: permission denied")

	// ErrNotFound indicates the resource does not exist (404)
	ErrNotFound = errors.New("api: not found")
)

// maxDetailLen bounds how much of a non-JSON error body ends up in an error string.
const maxDetailLen = 200

// APIError is returned for every non-2xx response.
type APIError struct {
	Status int    // HTTP status code
	Detail string // "detail" field or flattened field errors from the body
	Kind   error  // one of the sentinel errors above, or nil
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Detail: parseDetail(body)}
	switch status {
	case http.StatusBadRequest:
		apiErr.Kind = ErrBadRequest
	case http.StatusUnauthorized:
		apiErr.Kind = ErrUnauthorized
	case http.StatusForbidden:
		apiErr.Kind = ErrForbidden
	case http.StatusNotFound:
		apiErr.Kind = ErrNotFound
	}
	return apiErr
}

// parseDetail extracts a readable message from a DRF style error body:
// {"detail": "..."}, {"field": ["msg", ...]} or {"non_field_errors": [...]}.
func parseDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		if len(trimmed) > maxDetailLen {
			trimmed = trimmed[:maxDetailLen] + "..."
		}
		return trimmed
	}

	if raw, ok := parsed["detail"]; ok {
		var detail string
		if err := json.Unmarshal(raw, &detail); err == nil {
			return detail
		}
	}

	fields := make([]string, 0, len(parsed))
	for field := range parsed {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		var messages []string
		if err := json.Unmarshal(parsed[field], &messages); err != nil {
			var single string
			if err := json.Unmarshal(parsed[field], &single); err != nil {
				continue
			}
			messages = []string{single}
		}
		if field == "non_field_errors" {
			parts = append(parts, strings.Join(messages, "; "))
			continue
		}
		parts = append(parts, field+": "+strings.Join(messages, "; "))
	}
	return strings.Join(parts, ", ")
}
