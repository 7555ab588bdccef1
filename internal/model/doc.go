// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and
// messages.
//
// The types here are plain values with no I/O. The conversation
// controller owns their mutation; the UI only reads snapshots.
package model
