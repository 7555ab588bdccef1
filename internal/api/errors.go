// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoRefreshToken indicates a refresh was requested with no
	// refresh token stored. The session cannot be recovered locally.
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrAuthExpired indicates the session is gone for good: either a
	// refresh failed, or the server rejected the request again after a
	// successful refresh. Callers must treat the session as logged out.
	ErrAuthExpired = errors.New("session expired")

	// ErrValidation marks local input errors that never reach the
	// network.
	ErrValidation = errors.New("validation failed")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// errorBody is the union of error shapes the backend is known to
// produce. Whichever field is present wins, checked in order.
type errorBody struct {
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// parseAPIError builds an APIError from a non-2xx response body,
// falling back to the HTTP status text when no message field is
// present.
func parseAPIError(status int, body []byte) *APIError {
	var eb errorBody
	if len(body) > 0 {
		// A body that is not JSON still yields the status fallback.
		_ = json.Unmarshal(body, &eb)
	}

	msg := eb.Detail
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = eb.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", status)
		}
	}
	return &APIError{Status: status, Message: msg}
}

// isUnauthorized reports whether err is a 401 from the backend.
func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// ctxDone reports whether err stems from the caller's context being
// cancelled or timed out rather than from the backend.
func ctxDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
