// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagecast/rundownd/internal/rundown"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "rundown.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rundown.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)

	var version int
	err = s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	require.NoError(t, s.Close())

	// Migrations are idempotent across reopen of the same file.
	s2, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestLoadEmptyDocument(t *testing.T) {
	s := openTestStore(t)

	entries, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReplaceAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := []rundown.Entry{
		{
			ID:        "a",
			Kind:      rundown.KindEvent,
			Cue:       "1",
			Title:     "Opening",
			TimeStart: 28800000,
			TimeEnd:   30600000,
			Duration:  1800000,
			EndAction: rundown.EndActionLoadNext,
		},
		{ID: "d1", Kind: rundown.KindDelay, Duration: 60000},
		{ID: "blk", Kind: rundown.KindBlock, Title: "Part Two"},
	}

	stored, err := s.Replace(ctx, doc)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(stored, loaded); diff != "" {
		t.Errorf("document mismatch (-stored +loaded):\n%s", diff)
	}
}

func TestReplaceAssignsMissingIDs(t *testing.T) {
	s := openTestStore(t)

	stored, err := s.Replace(context.Background(), []rundown.Entry{
		{Kind: rundown.KindEvent, TimeStart: 0, TimeEnd: 1000},
		{Kind: rundown.KindDelay, Duration: 5000},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].ID)
	assert.NotEmpty(t, stored[1].ID)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
}

func TestReplaceRejectsDuplicateIDs(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Replace(context.Background(), []rundown.Entry{
		{ID: "x", Kind: rundown.KindEvent, TimeStart: 0, TimeEnd: 1000},
		{ID: "x", Kind: rundown.KindEvent, TimeStart: 1000, TimeEnd: 2000},
	})
	assert.ErrorIs(t, err, rundown.ErrDuplicateID)

	// The failed replace must not have touched the document.
	entries, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReplaceOverwritesPreviousDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Replace(ctx, []rundown.Entry{
		{ID: "a", Kind: rundown.KindEvent, TimeStart: 0, TimeEnd: 1000},
		{ID: "b", Kind: rundown.KindEvent, TimeStart: 1000, TimeEnd: 2000},
	})
	require.NoError(t, err)

	_, err = s.Replace(ctx, []rundown.Entry{
		{ID: "c", Kind: rundown.KindEvent, TimeStart: 2000, TimeEnd: 3000},
	})
	require.NoError(t, err)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "c", loaded[0].ID)
}

func TestChangesNotification(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Replace(context.Background(), []rundown.Entry{
		{ID: "a", Kind: rundown.KindEvent, TimeStart: 0, TimeEnd: 1000},
	})
	require.NoError(t, err)

	select {
	case <-s.Changes():
	case <-time.After(time.Second):
		t.Fatal("expected change notification after replace")
	}

	// Notifications coalesce: two rapid replaces yield at least one signal,
	// and an undrained channel never blocks the writer.
	for i := 0; i < 3; i++ {
		_, err := s.Replace(context.Background(), []rundown.Entry{
			{ID: "a", Kind: rundown.KindEvent, TimeStart: 0, TimeEnd: 1000},
		})
		require.NoError(t, err)
	}
	select {
	case <-s.Changes():
	case <-time.After(time.Second):
		t.Fatal("expected coalesced change notification")
	}
}

func TestPing(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
