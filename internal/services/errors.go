package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/onair/internal/shared"
)

// ErrNotPasswordProtected is returned by FetchProgramPassword for programs without a password.
var ErrNotPasswordProtected = fmt.Errorf("program is not password protected")

// APIError is a non-2xx response from the broadcast API.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	ErrorCode  string
	Body       []byte
}

func newAPIError(method, endpoint string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Endpoint: endpoint, StatusCode: status, Body: body}
	var env struct {
		Meta responseMeta `json:"meta"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		e.ErrorCode = env.Meta.ErrorCode
	}
	return e
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("broadcast API error: %s %s: status %d (%s)", e.Method, e.Endpoint, e.StatusCode, e.ErrorCode)
	}
	return fmt.Sprintf("broadcast API error: %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
}

// Unwrap matches [shared.ErrAPIRequest], plus [shared.ErrServiceUnavailable] for gateway and 503 responses.
func (e *APIError) Unwrap() []error {
	switch e.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return []error{shared.ErrAPIRequest, shared.ErrServiceUnavailable}
	}
	return []error{shared.ErrAPIRequest}
}

// StatusCode extracts the HTTP status from an [*APIError] in err's chain.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}
