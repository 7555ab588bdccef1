// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinek/parley/internal/api"
	"github.com/avelinek/parley/internal/model"
	"github.com/avelinek/parley/internal/store"
)

func intPtr(n int) *int { return &n }

// fakeChatter is an in-memory Chatter.
type fakeChatter struct {
	res     *api.ChatResponse
	err     error
	calls   int
	lastReq api.ChatRequest

	clearedSessions []string
	clearedUsers    []string
}

func (f *fakeChatter) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeChatter) ClearHistory(ctx context.Context, sessionID string) (*api.StatusResponse, error) {
	f.clearedSessions = append(f.clearedSessions, sessionID)
	return &api.StatusResponse{Status: "ok"}, nil
}

func (f *fakeChatter) ClearUserData(ctx context.Context, userID string) (*api.StatusResponse, error) {
	f.clearedUsers = append(f.clearedUsers, userID)
	return &api.StatusResponse{Status: "ok"}, nil
}

// memArchive records exchanges like the sqlite archive, minus the
// sqlite.
type memArchive struct {
	recorded        []model.Message
	clearedSessions []string
	clearedUsers    []string
}

func (a *memArchive) Record(sessionID, userID string, msgs ...model.Message) error {
	a.recorded = append(a.recorded, msgs...)
	return nil
}

func (a *memArchive) ClearSession(sessionID string) error {
	a.clearedSessions = append(a.clearedSessions, sessionID)
	return nil
}

func (a *memArchive) ClearUser(userID string) error {
	a.clearedUsers = append(a.clearedUsers, userID)
	return nil
}

func newTestController(t *testing.T) (*Controller, *fakeChatter, store.KV) {
	t.Helper()
	kv := store.NewMemKV()
	creds := store.NewCredentials(kv)
	require.NoError(t, creds.SetTokens("access", "refresh"))
	require.NoError(t, creds.SetUser(model.User{ID: "user-1234-5678", Email: "user@x.com"}))

	chatter := &fakeChatter{res: &api.ChatResponse{Message: "reply"}}
	ctrl := NewController(chatter, kv, creds)
	return ctrl, chatter, kv
}

func TestInitializeSessionDerivesAndPersistsID(t *testing.T) {
	ctrl, _, kv := newTestController(t)

	sid, err := ctrl.InitializeSession()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sid, "user-123-"), "session id %q should start with the user id prefix", sid)

	persisted, ok := kv.Get(store.KeySessionID)
	assert.True(t, ok)
	assert.Equal(t, sid, persisted)

	// Re-initializing reuses the persisted id.
	again, err := ctrl.InitializeSession()
	require.NoError(t, err)
	assert.Equal(t, sid, again)
}

func TestClearSessionYieldsFreshSessionID(t *testing.T) {
	ctrl, _, _ := newTestController(t)

	first, err := ctrl.InitializeSession()
	require.NoError(t, err)

	ctrl.ClearSession()

	second, err := ctrl.InitializeSession()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestInitializeSessionWithoutUser(t *testing.T) {
	kv := store.NewMemKV()
	ctrl := NewController(&fakeChatter{}, kv, store.NewCredentials(kv))

	_, err := ctrl.InitializeSession()
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestSendMessageAppendsExchange(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)
	chatter.res = &api.ChatResponse{Message: "hello back", ConversationLength: intPtr(4)}

	res, err := ctrl.SendMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, res.Outcome)
	require.NotNil(t, res.Reply)
	assert.Equal(t, "hello back", res.Reply.Content)

	conv := ctrl.Conversation()
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "hello", conv.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, 4, conv.Length)

	assert.Equal(t, "user-123", ctrl.Conversation().SessionID[:8])
	assert.Equal(t, "user-1234-5678", chatter.lastReq.UserID)
	assert.Equal(t, "gpt", chatter.lastReq.Model)
}

func TestSendMessageLengthFallback(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)
	chatter.res = &api.ChatResponse{Message: "ok"} // no conversation_length

	_, err = ctrl.SendMessage(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, 2, ctrl.Conversation().Length)

	_, err = ctrl.SendMessage(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, 4, ctrl.Conversation().Length)
}

func TestSendMessageRejectedDuringCooldown(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	ctrl.mu.Lock()
	ctrl.setLimitLocked(time.Now().Add(time.Hour))
	ctrl.mu.Unlock()

	_, err = ctrl.SendMessage(context.Background(), "hello")
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "try again in")

	// No network call, no history mutation.
	assert.Zero(t, chatter.calls)
	assert.Empty(t, ctrl.Conversation().Messages)
}

func TestSendMessageRollsBackOnFailure(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	chatter.res = &api.ChatResponse{Message: "first"}
	_, err = ctrl.SendMessage(context.Background(), "keep me")
	require.NoError(t, err)
	before := ctrl.Conversation().Messages

	chatter.err = errors.New("connection reset")
	_, err = ctrl.SendMessage(context.Background(), "lost")
	require.Error(t, err)

	after := ctrl.Conversation().Messages
	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].Content, after[i].Content)
	}
}

func TestServerRateLimitRollsBackAndSetsExpiry(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	chatter.res = &api.ChatResponse{
		Message:            "hi",
		RateLimited:        true,
		ExpiresAt:          "2030-01-01T00:00:00Z",
		ConversationLength: intPtr(10),
	}

	res, err := ctrl.SendMessage(context.Background(), "one too many")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRateLimited, res.Outcome)

	conv := ctrl.Conversation()
	// The optimistic user message is gone and no assistant message
	// was appended.
	assert.Empty(t, conv.Messages)
	assert.True(t, conv.LimitReached)
	want := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want.UnixMilli(), conv.LimitExpiresAt.UnixMilli())
	assert.Equal(t, 10, conv.Length)
}

func TestLocalCooldownTripsBeforeServerResponse(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	ctrl.WithMaxMessages(11)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctrl.now = func() time.Time { return now }

	ctrl.mu.Lock()
	ctrl.conv.Length = 8
	ctrl.mu.Unlock()

	chatter.res = &api.ChatResponse{Message: "last one"}
	res, err := ctrl.SendMessage(context.Background(), "hello")
	require.NoError(t, err)

	// The guard trips (8+2 >= 11) but this send still goes out.
	assert.Equal(t, OutcomeSent, res.Outcome)
	assert.Equal(t, 1, chatter.calls)

	conv := ctrl.Conversation()
	assert.True(t, conv.LimitReached)
	assert.Equal(t, now.Add(4*time.Hour), conv.LimitExpiresAt)

	// The next send is rejected locally.
	_, err = ctrl.SendMessage(context.Background(), "again")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, chatter.calls)
}

func TestLocalCooldownBelowBoundaryDoesNotTrip(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	ctrl.WithMaxMessages(11)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	ctrl.mu.Lock()
	ctrl.conv.Length = 6
	ctrl.mu.Unlock()

	chatter.res = &api.ChatResponse{Message: "plenty of room"}
	_, err = ctrl.SendMessage(context.Background(), "hello")
	require.NoError(t, err)

	conv := ctrl.Conversation()
	assert.False(t, conv.LimitReached)
	assert.True(t, conv.LimitExpiresAt.IsZero())

	// The next send still reaches the network.
	_, err = ctrl.SendMessage(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, 2, chatter.calls)
}

func TestSendMessageValidation(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	_, err = ctrl.SendMessage(context.Background(), "   \n ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	ctrl.ClearSession()
	_, err = ctrl.SendMessage(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Zero(t, chatter.calls)
}

func TestClearChatKeepsSessionAndLimit(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	sid, err := ctrl.InitializeSession()
	require.NoError(t, err)

	chatter.res = &api.ChatResponse{Message: "ok"}
	_, err = ctrl.SendMessage(context.Background(), "hello")
	require.NoError(t, err)

	ctrl.mu.Lock()
	ctrl.setLimitLocked(time.Now().Add(time.Hour))
	ctrl.mu.Unlock()

	ctrl.ClearChat()

	conv := ctrl.Conversation()
	assert.Empty(t, conv.Messages)
	assert.Zero(t, conv.Length)
	assert.Equal(t, sid, conv.SessionID)
	assert.True(t, conv.LimitReached)
}

func TestClearServerHistory(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	arch := &memArchive{}
	ctrl.WithArchive(arch)
	sid, err := ctrl.InitializeSession()
	require.NoError(t, err)

	chatter.res = &api.ChatResponse{Message: "ok"}
	_, err = ctrl.SendMessage(context.Background(), "hello")
	require.NoError(t, err)

	require.NoError(t, ctrl.ClearServerHistory(context.Background()))

	assert.Equal(t, []string{sid}, chatter.clearedSessions)
	assert.Equal(t, []string{sid}, arch.clearedSessions)
	assert.Empty(t, ctrl.Conversation().Messages)
}

func TestClearUserData(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	arch := &memArchive{}
	ctrl.WithArchive(arch)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	chatter.res = &api.ChatResponse{Message: "ok"}
	_, err = ctrl.SendMessage(context.Background(), "hello")
	require.NoError(t, err)

	require.NoError(t, ctrl.ClearUserData(context.Background()))

	assert.Equal(t, []string{"user-1234-5678"}, chatter.clearedUsers)
	assert.Equal(t, []string{"user-1234-5678"}, arch.clearedUsers)
	assert.Empty(t, ctrl.Conversation().Messages)
}

func TestArchiveRecordsExchanges(t *testing.T) {
	ctrl, chatter, _ := newTestController(t)
	arch := &memArchive{}
	ctrl.WithArchive(arch)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	chatter.res = &api.ChatResponse{Message: "the answer"}
	_, err = ctrl.SendMessage(context.Background(), "the question")
	require.NoError(t, err)

	require.Len(t, arch.recorded, 2)
	assert.Equal(t, "the question", arch.recorded[0].Content)
	assert.Equal(t, "the answer", arch.recorded[1].Content)
}

func TestSetModelPersists(t *testing.T) {
	ctrl, chatter, kv := newTestController(t)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	require.NoError(t, ctrl.SetModel(model.ModelClaude))

	v, ok := kv.Get(store.KeyModel)
	assert.True(t, ok)
	assert.Equal(t, "claude", v)

	chatter.res = &api.ChatResponse{Message: "ok"}
	_, err = ctrl.SendMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "claude", chatter.lastReq.Model)
}
