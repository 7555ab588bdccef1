// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the conversation state: message history, the
// per-user chat session id, and the rate-limit/cooldown machine.
//
// Sends are optimistic: the user message is appended before the
// network call and rolled back if the call fails or the server
// declares a rate limit. The cooldown has two triggers, a local
// pre-check on the message count and the server's rate_limited signal;
// the server is authoritative, the local check just refuses sends that
// are obviously over the limit. Expiry is reconciled in one place,
// CooldownActive, which every read path goes through.
package chat
