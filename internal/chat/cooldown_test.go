// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinek/parley/internal/store"
)

func TestCooldownActiveClearsLapsedLimit(t *testing.T) {
	ctrl, _, kv := newTestController(t)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctrl.now = func() time.Time { return now }

	ctrl.mu.Lock()
	ctrl.setLimitLocked(now.Add(time.Hour))
	ctrl.mu.Unlock()
	assert.True(t, ctrl.CooldownActive())

	// Move past the expiry: the check itself reconciles.
	now = now.Add(2 * time.Hour)
	assert.False(t, ctrl.CooldownActive())
	assert.False(t, ctrl.Conversation().LimitReached)
	_, ok := kv.Get(store.KeyLimitExpires)
	assert.False(t, ok, "lapsed expiry should be removed from the store")
}

func TestCooldownRestoredAcrossControllers(t *testing.T) {
	ctrl, chatter, kv := newTestController(t)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	expiry := time.Now().Add(time.Hour)
	ctrl.mu.Lock()
	ctrl.setLimitLocked(expiry)
	ctrl.mu.Unlock()

	// A fresh controller over the same store picks the cooldown up.
	ctrl2 := NewController(chatter, kv, ctrl.creds)
	_, err = ctrl2.InitializeSession()
	require.NoError(t, err)

	assert.True(t, ctrl2.CooldownActive())
	assert.Equal(t, expiry.UnixMilli(), ctrl2.Conversation().LimitExpiresAt.UnixMilli())
}

func TestLapsedPersistedCooldownDiscardedOnInit(t *testing.T) {
	ctrl, _, kv := newTestController(t)

	past := time.Now().Add(-time.Minute).UnixMilli()
	require.NoError(t, kv.Set(store.KeyLimitExpires, strconv.FormatInt(past, 10)))

	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	assert.False(t, ctrl.Conversation().LimitReached)
	_, ok := kv.Get(store.KeyLimitExpires)
	assert.False(t, ok)
}

func TestUnreadablePersistedCooldownDiscarded(t *testing.T) {
	ctrl, _, kv := newTestController(t)
	require.NoError(t, kv.Set(store.KeyLimitExpires, "not-a-timestamp"))

	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	assert.False(t, ctrl.Conversation().LimitReached)
	_, ok := kv.Get(store.KeyLimitExpires)
	assert.False(t, ok)
}

func TestRemainingCooldown(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	_, err := ctrl.InitializeSession()
	require.NoError(t, err)

	assert.Zero(t, ctrl.RemainingCooldown())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctrl.now = func() time.Time { return now }
	ctrl.mu.Lock()
	ctrl.setLimitLocked(now.Add(90 * time.Minute))
	ctrl.mu.Unlock()

	assert.Equal(t, 90*time.Minute, ctrl.RemainingCooldown())
}

func TestParseExpiry(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctrl.now = func() time.Time { return now }

	got := ctrl.parseExpiry("2030-01-01T00:00:00Z")
	assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), got)

	// Absent or garbage both fall back to the local window.
	assert.Equal(t, now.Add(DefaultCooldown), ctrl.parseExpiry(""))
	assert.Equal(t, now.Add(DefaultCooldown), ctrl.parseExpiry("soon"))
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{59 * time.Minute, "59m"},
		{time.Hour, "1h00m"},
		{3*time.Hour + 59*time.Minute, "3h59m"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatRemaining(tc.d), "duration %s", tc.d)
	}
}
