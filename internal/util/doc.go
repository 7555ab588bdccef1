// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across parley.
//
// It contains UTF-8 safe string handling, input normalization, and
// crash-safe file writing. Nothing in here knows about the API or the
// conversation state; keep it that way.
package util
