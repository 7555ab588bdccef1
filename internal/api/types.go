// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"

	"github.com/avelinek/parley/internal/model"
)

// Endpoint paths on the backend.
const (
	endpointSignup        = "/signup"
	endpointLogin         = "/login"
	endpointRefresh       = "/refresh"
	endpointChat          = "/chat"
	endpointClearHistory  = "/clear_history"
	endpointClearUserData = "/clear_user_data"
)

// credentialsRequest carries email/password to signup and login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest carries the refresh token to the refresh endpoint.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is the token pair plus profile returned by login and
// refresh.
type AuthResult struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         model.User `json:"user"`
}

// validate fails fast when a required field is missing, instead of
// letting an empty token leak into the credential store.
func (r *AuthResult) validate() error {
	if r.AccessToken == "" {
		return errors.New("auth response missing access_token")
	}
	if r.RefreshToken == "" {
		return errors.New("auth response missing refresh_token")
	}
	if r.User.ID == "" {
		return errors.New("auth response missing user id")
	}
	return nil
}

// signupResponse is the optional acknowledgement from signup.
type signupResponse struct {
	Message string `json:"message"`
}

// ChatRequest is one turn sent to the chat endpoint.
type ChatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

// ChatResponse is the backend's answer to a chat turn.
//
// ConversationLength is a pointer because the server may omit it, in
// which case the client advances its local count by 2. RateLimited
// with ExpiresAt reports a server-declared cooldown; the assistant
// message must then be discarded.
type ChatResponse struct {
	Message            string `json:"message"`
	ConversationLength *int   `json:"conversation_length,omitempty"`
	RateLimited        bool   `json:"rate_limited,omitempty"`
	ExpiresAt          string `json:"expires_at,omitempty"` // RFC 3339
}

// clearHistoryRequest identifies the session whose server-side history
// should be deleted.
type clearHistoryRequest struct {
	SessionID string `json:"session_id"`
}

// clearUserDataRequest identifies the user whose stored data should be
// deleted.
type clearUserDataRequest struct {
	UserID string `json:"user_id"`
}

// StatusResponse is the acknowledgement from the clear endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}
