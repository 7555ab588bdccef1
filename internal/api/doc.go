// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the parley backend.
//
// The client owns the bearer-token lifecycle: it attaches the access
// token to every authenticated request, and on a 401 performs one
// coordinated token refresh and retries the original request exactly
// once. Refreshes are single-flight; concurrent 401s share one refresh
// call, because the backend rotates refresh tokens and a duplicate
// refresh would invalidate the pair the first one just received.
package api
