// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"
)

// ModelType selects which backend model handles a chat request. The
// backend resolves the short name to a concrete model; the client only
// ever sends one of these two values.
type ModelType string

const (
	// ModelGPT routes to the backend's GPT model.
	ModelGPT ModelType = "gpt"
	// ModelClaude routes to the backend's Claude model.
	ModelClaude ModelType = "claude"
)

// ParseModelType validates a model name from config or user input.
func ParseModelType(s string) (ModelType, error) {
	switch ModelType(s) {
	case ModelGPT, ModelClaude:
		return ModelType(s), nil
	}
	return "", fmt.Errorf("unknown model %q (want %q or %q)", s, ModelGPT, ModelClaude)
}

// Conversation holds the chat history and the rate-limit state for one
// chat session.
//
// Length is authoritative from the server when present in a chat
// response; otherwise it advances locally by 2 per exchange (one user
// plus one assistant message). LimitReached must always carry a
// non-expired LimitExpiresAt; an expired expiry means the limit is
// over, and readers go through the controller's cooldown check rather
// than trusting the flag directly.
type Conversation struct {
	Messages  []Message `json:"messages"`
	SessionID string    `json:"session_id"`
	Model     ModelType `json:"model"`

	Length         int       `json:"conversation_length"`
	LimitReached   bool      `json:"limit_reached"`
	LimitExpiresAt time.Time `json:"limit_expires_at"`
}

// NewConversation creates an empty conversation for the given model.
func NewConversation(model ModelType) *Conversation {
	return &Conversation{
		Messages: make([]Message, 0, 16),
		Model:    model,
	}
}

// Append adds a message to the history.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
}

// Snapshot returns a copy of the message list, taken before an
// optimistic append so a failed send can roll back.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}

// Restore replaces the message list with a previously taken snapshot.
func (c *Conversation) Restore(snapshot []Message) {
	c.Messages = snapshot
}

// ClearMessages drops the history and resets the length counter. The
// session id and rate-limit state are untouched; those are cleared
// only by a full session reset.
func (c *Conversation) ClearMessages() {
	c.Messages = c.Messages[:0]
	c.Length = 0
}

// SetLimit records a rate limit with the given expiry.
func (c *Conversation) SetLimit(expiresAt time.Time) {
	c.LimitReached = true
	c.LimitExpiresAt = expiresAt
}

// ClearLimit drops the rate-limit state.
func (c *Conversation) ClearLimit() {
	c.LimitReached = false
	c.LimitExpiresAt = time.Time{}
}
