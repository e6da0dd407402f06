package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/noteflow/internal/model"
	appErr "github.com/xxxsen/noteflow/internal/pkg/errors"
	"github.com/xxxsen/noteflow/internal/pkg/timeutil"
	"github.com/xxxsen/noteflow/internal/repo"
	"github.com/xxxsen/noteflow/internal/testutil"
)

func newTestNote(userID, noteID string) *model.Note {
	now := timeutil.NowMilli()
	return &model.Note{
		ID:      noteID,
		UserID:  userID,
		Title:   "title",
		Content: "content",
		Tags:    []string{"work"},
		Ctime:   now,
		Mtime:   now,
	}
}

func TestNoteRepoCRUDAndIsolation(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	notes := repo.NewNoteRepo(conn)
	ctx := context.Background()
	require.NoError(t, notes.Create(ctx, newTestNote("user-1", "note-1")))

	fetched, err := notes.GetOwned(ctx, "user-1", "note-1")
	require.NoError(t, err)
	require.Equal(t, "title", fetched.Title)
	require.Equal(t, []string{"work"}, fetched.Tags)

	_, err = notes.GetOwned(ctx, "user-2", "note-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	fetched.Title = "updated"
	fetched.Mtime = timeutil.NowMilli()
	require.NoError(t, notes.Update(ctx, fetched))

	require.NoError(t, notes.Delete(ctx, "user-1", "note-1"))
	_, err = notes.GetOwned(ctx, "user-1", "note-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestNoteRepoListOrdersPinnedFirst(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	notes := repo.NewNoteRepo(conn)
	ctx := context.Background()

	older := newTestNote("user-1", "note-old")
	older.Mtime = timeutil.NowMilli() - 1000
	require.NoError(t, notes.Create(ctx, older))

	newer := newTestNote("user-1", "note-new")
	require.NoError(t, notes.Create(ctx, newer))

	require.NoError(t, notes.UpdatePinned(ctx, "user-1", "note-old", true, timeutil.NowMilli()-500))

	listed, err := notes.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "note-old", listed[0].ID)
	require.True(t, listed[0].Pinned)
}

func TestTryBeginSummarize_Transitions(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	notes := repo.NewNoteRepo(conn)
	ctx := context.Background()
	require.NoError(t, notes.Create(ctx, newTestNote("user-1", "note-1")))

	now := timeutil.NowMilli()
	staleBefore := now - (2 * time.Minute).Milliseconds()

	// Idle note: the transition succeeds.
	ok, err := notes.TryBeginSummarize(ctx, "user-1", "note-1", now, staleBefore)
	require.NoError(t, err)
	require.True(t, ok)

	// Busy with a fresh mtime: rejected.
	ok, err = notes.TryBeginSummarize(ctx, "user-1", "note-1", now, staleBefore)
	require.NoError(t, err)
	require.False(t, ok)

	// Busy but stale: takeover allowed.
	future := now + (3 * time.Minute).Milliseconds()
	ok, err = notes.TryBeginSummarize(ctx, "user-1", "note-1", future, future-(2*time.Minute).Milliseconds())
	require.NoError(t, err)
	require.True(t, ok)

	// Someone else's note never transitions.
	ok, err = notes.TryBeginSummarize(ctx, "user-2", "note-1", future, future)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveSummaryAndReset(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	notes := repo.NewNoteRepo(conn)
	ctx := context.Background()
	require.NoError(t, notes.Create(ctx, newTestNote("user-1", "note-1")))

	now := timeutil.NowMilli()
	ok, err := notes.TryBeginSummarize(ctx, "user-1", "note-1", now, now)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, notes.SaveSummary(ctx, "user-1", "note-1", "- summary", timeutil.NowMilli()))
	fetched, err := notes.GetOwned(ctx, "user-1", "note-1")
	require.NoError(t, err)
	require.Equal(t, "- summary", fetched.Summary)
	require.False(t, fetched.IsSummarizing)

	// Reset by id is idempotent and ignores missing notes.
	require.NoError(t, notes.ResetSummarizingByID(ctx, "note-1"))
	require.NoError(t, notes.ResetSummarizingByID(ctx, "no-such-note"))
}

func TestResetStuckClearsOnlyStaleFlags(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	notes := repo.NewNoteRepo(conn)
	ctx := context.Background()
	require.NoError(t, notes.Create(ctx, newTestNote("user-1", "note-stale")))
	require.NoError(t, notes.Create(ctx, newTestNote("user-1", "note-fresh")))

	now := timeutil.NowMilli()
	staleStart := now - (5 * time.Minute).Milliseconds()
	ok, err := notes.TryBeginSummarize(ctx, "user-1", "note-stale", staleStart, staleStart)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = notes.TryBeginSummarize(ctx, "user-1", "note-fresh", now, now-1)
	require.NoError(t, err)
	require.True(t, ok)

	released, err := notes.ResetStuck(ctx, now-(2*time.Minute).Milliseconds())
	require.NoError(t, err)
	require.EqualValues(t, 1, released)

	stale, err := notes.GetOwned(ctx, "user-1", "note-stale")
	require.NoError(t, err)
	require.False(t, stale.IsSummarizing)
	fresh, err := notes.GetOwned(ctx, "user-1", "note-fresh")
	require.NoError(t, err)
	require.True(t, fresh.IsSummarizing)
}
