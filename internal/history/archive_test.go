// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinek/parley/internal/model"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestRecordAndRecent(t *testing.T) {
	a := openTestArchive(t)

	err := a.Record("sess-1", "user-1",
		model.NewUserMessage("how do tides work"),
		model.NewAssistantMessage("the moon, mostly"),
	)
	require.NoError(t, err)

	entries, err := a.Recent("sess-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.RoleUser, entries[0].Role)
	assert.Equal(t, "how do tides work", entries[0].Content)
	assert.Equal(t, model.RoleAssistant, entries[1].Role)
	assert.Equal(t, "sess-1", entries[0].SessionID)
	assert.Equal(t, "user-1", entries[0].UserID)
}

func TestRecentOrderAndLimit(t *testing.T) {
	a := openTestArchive(t)

	for _, text := range []string{"one", "two", "three", "four"} {
		require.NoError(t, a.Record("sess-1", "user-1", model.NewUserMessage(text)))
	}

	entries, err := a.Recent("sess-1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// The newest two, oldest first.
	assert.Equal(t, "three", entries[0].Content)
	assert.Equal(t, "four", entries[1].Content)
}

func TestSearch(t *testing.T) {
	a := openTestArchive(t)

	require.NoError(t, a.Record("sess-1", "user-1",
		model.NewUserMessage("tell me about goroutines"),
		model.NewAssistantMessage("Goroutines are lightweight threads."),
	))
	require.NoError(t, a.Record("sess-2", "user-1",
		model.NewUserMessage("best pizza dough recipe"),
	))

	entries, err := a.Search("goroutine", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = a.Search("pizza", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sess-2", entries[0].SessionID)

	// Wildcards in the query are literal.
	entries, err = a.Search("100%", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = a.Search("   ", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClearSession(t *testing.T) {
	a := openTestArchive(t)

	require.NoError(t, a.Record("sess-1", "user-1", model.NewUserMessage("keep")))
	require.NoError(t, a.Record("sess-2", "user-1", model.NewUserMessage("drop")))

	require.NoError(t, a.ClearSession("sess-2"))

	n, err := a.CountSession("sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = a.CountSession("sess-2")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClearUser(t *testing.T) {
	a := openTestArchive(t)

	require.NoError(t, a.Record("sess-1", "user-1", model.NewUserMessage("a")))
	require.NoError(t, a.Record("sess-2", "user-1", model.NewUserMessage("b")))
	require.NoError(t, a.Record("sess-3", "user-2", model.NewUserMessage("c")))

	require.NoError(t, a.ClearUser("user-1"))

	for sid, want := range map[string]int{"sess-1": 0, "sess-2": 0, "sess-3": 1} {
		n, err := a.CountSession(sid)
		require.NoError(t, err)
		assert.Equal(t, want, n, "session %s", sid)
	}
}

func TestClosedArchive(t *testing.T) {
	a := openTestArchive(t)
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.Record("sess-1", "user-1", model.NewUserMessage("x")), ErrClosed)
	_, err := a.Recent("sess-1", 10)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.ClearUser("user-1"), ErrClosed)

	// Close is idempotent.
	assert.NoError(t, a.Close())
}

func TestCloseDuringRecords(t *testing.T) {
	a := openTestArchive(t)

	// A shutdown racing a late send: every record either lands or
	// errors cleanly. Run under -race this also pins the closed-flag
	// guard. A record can slip past the flag into the closed sql.DB,
	// which reports its own error, so no particular error is asserted.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Record("sess-1", "user-1", model.NewUserMessage("late"))
		}()
	}
	require.NoError(t, a.Close())
	wg.Wait()

	assert.ErrorIs(t, a.Record("sess-1", "user-1", model.NewUserMessage("x")), ErrClosed)
}
