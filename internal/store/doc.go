// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the persistent client-side key/value state.
//
// Everything the client must remember across restarts lives here:
// the access and refresh tokens, the cached user profile, the chat
// session id, and the rate-limit expiry. The KV interface keeps the
// controllers testable without touching the filesystem; FileKV is the
// real implementation, with optional encryption at rest.
//
// Ownership is partitioned by key prefix: only the session controller
// and the API client write auth.* keys; only the conversation
// controller writes chat.* keys.
package store
