// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the authentication state of the client.
//
// The controller reconciles in-memory state with the persistent
// credential store on startup, drives login/signup/logout through the
// API client, and exposes a snapshot the UI renders from. It never
// partially authenticates: every operation lands in either
// Authenticated or Unauthenticated.
package session
