// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// User is the cached profile of the authenticated user, as returned by
// the backend on login and refresh.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
