// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"time"

	"github.com/avelinek/parley/internal/store"
)

// CooldownActive reports whether a cooldown is currently in force.
//
// This is the single reconciliation point for expiry: a lapsed limit
// is cleared here, in memory and in the persistent store, as a side
// effect of the check. The UI tick, the send path, and status displays
// all go through this; nothing else clears the limit.
func (c *Controller) CooldownActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cooldownActiveLocked()
}

// RemainingCooldown returns how long until sends are allowed again,
// or zero when no cooldown is active.
func (c *Controller) RemainingCooldown() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cooldownActiveLocked() {
		return 0
	}
	return c.conv.LimitExpiresAt.Sub(c.now())
}

func (c *Controller) cooldownActiveLocked() bool {
	if !c.conv.LimitReached {
		return false
	}
	if c.now().Before(c.conv.LimitExpiresAt) {
		return true
	}
	// Lapsed: clear everywhere so the state machine cannot get stuck
	// with limitReached and an expiry in the past.
	c.conv.ClearLimit()
	if err := c.kv.Delete(store.KeyLimitExpires); err != nil {
		c.log.Error().Err(err).Msg("failed to clear persisted limit")
	}
	return false
}

// setLimitLocked records a cooldown and persists its expiry as epoch
// milliseconds.
func (c *Controller) setLimitLocked(expiresAt time.Time) {
	c.conv.SetLimit(expiresAt)
	if err := c.kv.Set(store.KeyLimitExpires, strconv.FormatInt(expiresAt.UnixMilli(), 10)); err != nil {
		c.log.Error().Err(err).Msg("failed to persist limit expiry")
	}
}

// loadLimitLocked restores a persisted cooldown, discarding one that
// has already lapsed.
func (c *Controller) loadLimitLocked() {
	raw, ok := c.kv.Get(store.KeyLimitExpires)
	if !ok || raw == "" {
		return
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.log.Warn().Str("value", raw).Msg("discarding unreadable limit expiry")
		_ = c.kv.Delete(store.KeyLimitExpires)
		return
	}
	expiresAt := time.UnixMilli(ms)
	if c.now().Before(expiresAt) {
		c.conv.SetLimit(expiresAt)
		return
	}
	_ = c.kv.Delete(store.KeyLimitExpires)
}

// parseExpiry reads the server's RFC 3339 expiry, falling back to the
// local cooldown window when it is absent or unreadable.
func (c *Controller) parseExpiry(raw string) time.Time {
	if raw == "" {
		return c.now().Add(c.cooldown)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.log.Warn().Str("expires_at", raw).Msg("unparseable expiry from server")
		return c.now().Add(c.cooldown)
	}
	return t
}

// formatRemaining renders a cooldown duration for error messages.
func formatRemaining(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
