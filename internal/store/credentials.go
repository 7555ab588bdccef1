// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"

	"github.com/avelinek/parley/internal/model"
)

// Credentials is a typed view over the auth.* keys of a KV. Only the
// session controller and the API client go through it.
//
// Invariant: an access token is never stored without a refresh token.
// The reverse is the normal "needs refresh" state after the access
// token has been dropped or expired.
type Credentials struct {
	kv KV
}

// NewCredentials wraps a KV with the credential view.
func NewCredentials(kv KV) *Credentials {
	return &Credentials{kv: kv}
}

// AccessToken returns the stored access token, or "" when absent.
func (c *Credentials) AccessToken() string {
	v, _ := c.kv.Get(KeyAccessToken)
	return v
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (c *Credentials) RefreshToken() string {
	v, _ := c.kv.Get(KeyRefreshToken)
	return v
}

// User returns the cached user profile, or nil when absent or
// unreadable.
func (c *Credentials) User() *model.User {
	raw, ok := c.kv.Get(KeyUser)
	if !ok || raw == "" {
		return nil
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}

// SetTokens stores a new token pair. Both tokens must be present;
// storing an access token without a refresh token would break the
// credential invariant.
func (c *Credentials) SetTokens(access, refresh string) error {
	if access == "" || refresh == "" {
		return fmt.Errorf("token pair incomplete: access=%t refresh=%t", access != "", refresh != "")
	}
	if err := c.kv.Set(KeyAccessToken, access); err != nil {
		return err
	}
	return c.kv.Set(KeyRefreshToken, refresh)
}

// DropAccessToken removes only the access token, leaving the refresh
// token as the path back to an authenticated session.
func (c *Credentials) DropAccessToken() error {
	return c.kv.Delete(KeyAccessToken)
}

// SetUser caches the user profile.
func (c *Credentials) SetUser(u model.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return c.kv.Set(KeyUser, string(raw))
}

// Clear removes all credential keys. Conversation keys are untouched;
// logout clears those through the conversation controller. Idempotent.
func (c *Credentials) Clear() error {
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		if err := c.kv.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
