// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avelinek/parley/internal/api"
	"github.com/avelinek/parley/internal/model"
	"github.com/avelinek/parley/internal/store"
	"github.com/avelinek/parley/internal/util"
)

const (
	// DefaultMaxMessages is the conversation length at which the local
	// cooldown trips.
	DefaultMaxMessages = 10

	// DefaultCooldown is the fixed window applied when the local
	// pre-check trips. The server's expiry overrides it when present.
	DefaultCooldown = 4 * time.Hour

	// sessionIDPrefixLen is how much of the user id goes into the
	// session id, enough to attribute a session at a glance.
	sessionIDPrefixLen = 8
)

var (
	// ErrRateLimited means the cooldown is active; the send was
	// rejected locally without touching the network or the history.
	ErrRateLimited = errors.New("rate limit active")

	// ErrNoSession means InitializeSession has not run.
	ErrNoSession = errors.New("no active chat session")

	// ErrNoUser means no cached user identity is resolvable.
	ErrNoUser = errors.New("no authenticated user")

	// ErrEmptyMessage rejects blank input before any state changes.
	ErrEmptyMessage = errors.New("message is empty")
)

// Chatter is the slice of the API client the controller needs.
type Chatter interface {
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	ClearHistory(ctx context.Context, sessionID string) (*api.StatusResponse, error)
	ClearUserData(ctx context.Context, userID string) (*api.StatusResponse, error)
}

// Archive records completed exchanges locally. Optional.
type Archive interface {
	Record(sessionID, userID string, msgs ...model.Message) error
	ClearSession(sessionID string) error
	ClearUser(userID string) error
}

// Outcome says how a send ended.
type Outcome int

const (
	// OutcomeSent means the exchange completed and two messages were
	// appended.
	OutcomeSent Outcome = iota
	// OutcomeRateLimited means the server declared a cooldown; the
	// optimistic user message was rolled back.
	OutcomeRateLimited
)

// SendResult is the settled result of a SendMessage call. Expected
// outcomes (including a server rate limit) are values, not errors.
type SendResult struct {
	Outcome   Outcome
	Reply     *model.Message // set when Outcome == OutcomeSent
	ExpiresAt time.Time      // set when Outcome == OutcomeRateLimited
}

// Controller owns one conversation and its rate-limit state.
type Controller struct {
	mu      sync.Mutex
	client  Chatter
	kv      store.KV
	creds   *store.Credentials
	archive Archive
	log     zerolog.Logger

	conv        *model.Conversation
	maxMessages int
	cooldown    time.Duration

	now func() time.Time
}

// NewController creates a conversation controller. The kv holds the
// chat.* keys (session id, limit expiry, model selection); creds is
// read-only here, for the user identity.
func NewController(client Chatter, kv store.KV, creds *store.Credentials) *Controller {
	return &Controller{
		client:      client,
		kv:          kv,
		creds:       creds,
		log:         zerolog.Nop(),
		conv:        model.NewConversation(model.ModelGPT),
		maxMessages: DefaultMaxMessages,
		cooldown:    DefaultCooldown,
		now:         time.Now,
	}
}

// WithLogger sets the controller's logger.
func (c *Controller) WithLogger(log zerolog.Logger) *Controller {
	c.log = log.With().Str("component", "chat").Logger()
	return c
}

// WithArchive attaches a local exchange archive.
func (c *Controller) WithArchive(a Archive) *Controller {
	c.archive = a
	return c
}

// WithMaxMessages overrides the local cooldown threshold.
func (c *Controller) WithMaxMessages(n int) *Controller {
	c.maxMessages = n
	return c
}

// WithCooldown overrides the local cooldown duration.
func (c *Controller) WithCooldown(d time.Duration) *Controller {
	c.cooldown = d
	return c
}

// InitializeSession restores or derives the chat session id.
//
// The id combines a short prefix of the user id with a fresh random
// token and is persisted, so the same conversation id survives
// restarts until ClearSession. Persisted model selection and a still-
// running cooldown are restored at the same time.
func (c *Controller) InitializeSession() (string, error) {
	user := c.creds.User()
	if user == nil {
		return "", ErrNoUser
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if raw, ok := c.kv.Get(store.KeyModel); ok && raw != "" {
		if m, err := model.ParseModelType(raw); err == nil {
			c.conv.Model = m
		}
	}
	c.loadLimitLocked()

	if sid, ok := c.kv.Get(store.KeySessionID); ok && sid != "" {
		c.conv.SessionID = sid
		return sid, nil
	}

	sid := util.ShortID(user.ID, sessionIDPrefixLen) + "-" + uuid.NewString()
	if err := c.kv.Set(store.KeySessionID, sid); err != nil {
		return "", fmt.Errorf("failed to persist session id: %w", err)
	}
	c.conv.SessionID = sid
	c.log.Debug().Str("session_id", sid).Msg("chat session created")
	return sid, nil
}

// SendMessage runs one optimistic exchange.
//
// The user message is appended before the network call so the UI can
// show it immediately. Any failure, and a server rate-limit signal,
// restores the history to exactly its pre-call value.
func (c *Controller) SendMessage(ctx context.Context, text string) (*SendResult, error) {
	text = util.NormalizeInput(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.cooldownActiveLocked() {
		remaining := c.conv.LimitExpiresAt.Sub(c.now())
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: try again in %s", ErrRateLimited, formatRemaining(remaining))
	}

	user := c.creds.User()
	if user == nil {
		c.mu.Unlock()
		return nil, ErrNoUser
	}
	if c.conv.SessionID == "" {
		c.mu.Unlock()
		return nil, ErrNoSession
	}

	// Local guard: once this exchange would come within one message of
	// the cap, start the cooldown now rather than waiting for the
	// server to say so. This send still goes out; the next one is
	// rejected above.
	if c.conv.Length+2 >= c.maxMessages-1 {
		c.setLimitLocked(c.now().Add(c.cooldown))
		c.log.Info().Int("length", c.conv.Length).Msg("local cooldown tripped")
	}

	snapshot := c.conv.Snapshot()
	c.conv.Append(model.NewUserMessage(text))
	req := api.ChatRequest{
		Message:   text,
		UserID:    user.ID,
		SessionID: c.conv.SessionID,
		Model:     string(c.conv.Model),
	}
	c.mu.Unlock()

	res, err := c.client.Chat(ctx, req)

	c.mu.Lock()
	if err != nil {
		c.conv.Restore(snapshot)
		c.mu.Unlock()
		return nil, err
	}

	if res.RateLimited {
		c.conv.Restore(snapshot)
		expiresAt := c.parseExpiry(res.ExpiresAt)
		c.setLimitLocked(expiresAt)
		if res.ConversationLength != nil {
			c.conv.Length = *res.ConversationLength
		}
		c.mu.Unlock()
		return &SendResult{Outcome: OutcomeRateLimited, ExpiresAt: expiresAt}, nil
	}

	reply := model.NewAssistantMessage(res.Message)
	c.conv.Append(reply)
	if res.ConversationLength != nil {
		c.conv.Length = *res.ConversationLength
	} else {
		c.conv.Length += 2
	}
	userMsg := c.conv.Messages[len(c.conv.Messages)-2]
	sid := c.conv.SessionID
	c.mu.Unlock()

	if c.archive != nil {
		if err := c.archive.Record(sid, user.ID, userMsg, reply); err != nil {
			c.log.Warn().Err(err).Msg("failed to archive exchange")
		}
	}
	return &SendResult{Outcome: OutcomeSent, Reply: &reply}, nil
}

// Conversation returns a copy of the current conversation for
// rendering.
func (c *Controller) Conversation() model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv := *c.conv
	conv.Messages = c.conv.Snapshot()
	return conv
}

// SetModel switches the backend model and persists the choice.
func (c *Controller) SetModel(m model.ModelType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conv.Model = m
	return c.kv.Set(store.KeyModel, string(m))
}

// ClearChat drops the local message history and resets the length
// counter. The session id and the rate-limit state stay.
func (c *Controller) ClearChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conv.ClearMessages()
}

// ClearServerHistory deletes the server-side history for the current
// session, then clears the local history. The local archive for the
// session is dropped as well.
func (c *Controller) ClearServerHistory(ctx context.Context) error {
	c.mu.Lock()
	sid := c.conv.SessionID
	c.mu.Unlock()
	if sid == "" {
		return ErrNoSession
	}

	if _, err := c.client.ClearHistory(ctx, sid); err != nil {
		return err
	}
	if c.archive != nil {
		if err := c.archive.ClearSession(sid); err != nil {
			c.log.Warn().Err(err).Msg("failed to clear archive")
		}
	}
	c.ClearChat()
	return nil
}

// ClearUserData deletes all server-side stored data for the user, then
// resets the local history and archive.
func (c *Controller) ClearUserData(ctx context.Context) error {
	user := c.creds.User()
	if user == nil {
		return ErrNoUser
	}

	if _, err := c.client.ClearUserData(ctx, user.ID); err != nil {
		return err
	}
	if c.archive != nil {
		if err := c.archive.ClearUser(user.ID); err != nil {
			c.log.Warn().Err(err).Msg("failed to clear archive")
		}
	}
	c.ClearChat()
	return nil
}

// ClearSession is the full reset used on logout: history, session id,
// rate-limit state, and model selection all go.
func (c *Controller) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conv = model.NewConversation(model.ModelGPT)
	for _, key := range []string{store.KeySessionID, store.KeyLimitExpires, store.KeyModel} {
		if err := c.kv.Delete(key); err != nil {
			c.log.Error().Err(err).Str("key", key).Msg("failed to clear chat state")
		}
	}
}
