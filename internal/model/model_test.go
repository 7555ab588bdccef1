// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelType(t *testing.T) {
	m, err := ParseModelType("gpt")
	require.NoError(t, err)
	assert.Equal(t, ModelGPT, m)

	m, err = ParseModelType("claude")
	require.NoError(t, err)
	assert.Equal(t, ModelClaude, m)

	_, err = ParseModelType("gemini")
	assert.Error(t, err)
}

func TestConversationSnapshotRestore(t *testing.T) {
	conv := NewConversation(ModelGPT)
	conv.Append(NewUserMessage("one"))
	conv.Append(NewAssistantMessage("two"))

	snap := conv.Snapshot()
	conv.Append(NewUserMessage("optimistic"))
	require.Len(t, conv.Messages, 3)

	conv.Restore(snap)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "one", conv.Messages[0].Content)
	assert.Equal(t, "two", conv.Messages[1].Content)
}

func TestConversationSnapshotIsIndependent(t *testing.T) {
	conv := NewConversation(ModelClaude)
	conv.Append(NewUserMessage("hello"))

	snap := conv.Snapshot()
	conv.Messages[0].Content = "mutated"

	assert.Equal(t, "hello", snap[0].Content)
}

func TestConversationClearMessages(t *testing.T) {
	conv := NewConversation(ModelGPT)
	conv.SessionID = "sess-1"
	conv.Length = 6
	conv.SetLimit(time.Now().Add(time.Hour))
	conv.Append(NewUserMessage("hello"))

	conv.ClearMessages()

	assert.Empty(t, conv.Messages)
	assert.Zero(t, conv.Length)
	// Clearing history keeps the session and the limit.
	assert.Equal(t, "sess-1", conv.SessionID)
	assert.True(t, conv.LimitReached)
}

func TestConversationLimit(t *testing.T) {
	conv := NewConversation(ModelGPT)
	exp := time.Now().Add(4 * time.Hour)

	conv.SetLimit(exp)
	assert.True(t, conv.LimitReached)
	assert.Equal(t, exp, conv.LimitExpiresAt)

	conv.ClearLimit()
	assert.False(t, conv.LimitReached)
	assert.True(t, conv.LimitExpiresAt.IsZero())
}
