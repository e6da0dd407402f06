package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/noteflow/internal/model"
	appErr "github.com/xxxsen/noteflow/internal/pkg/errors"
	"github.com/xxxsen/noteflow/internal/pkg/timeutil"
	"github.com/xxxsen/noteflow/internal/repo"
	"github.com/xxxsen/noteflow/internal/testutil"
)

func TestAttachmentRepoRoundTrip(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	attachments := repo.NewAttachmentRepo(conn)
	ctx := context.Background()
	base := timeutil.NowMilli()

	first := &model.Attachment{
		ID:       "att-1",
		NoteID:   "note-1",
		Name:     "report.pdf",
		FileType: "application/pdf",
		Size:     3,
		Data:     []byte{1, 2, 3},
		Ctime:    base,
	}
	second := &model.Attachment{
		ID:        "att-2",
		NoteID:    "note-1",
		Name:      "legacy.pdf",
		FileType:  "application/pdf",
		Size:      0,
		LegacyKey: "uploads/legacy.pdf",
		Ctime:     base + 1,
	}
	require.NoError(t, attachments.Create(ctx, first))
	require.NoError(t, attachments.Create(ctx, second))

	fetched, err := attachments.GetByID(ctx, "att-1")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, fetched.Data)

	fetched, err = attachments.GetByID(ctx, "att-2")
	require.NoError(t, err)
	require.Empty(t, fetched.Data)
	require.Equal(t, "uploads/legacy.pdf", fetched.LegacyKey)

	_, err = attachments.GetByID(ctx, "no-such")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	metas, err := attachments.ListMetaByNote(ctx, "note-1")
	require.NoError(t, err)
	require.Len(t, metas, 2)
	require.Equal(t, "att-1", metas[0].ID)
	require.Equal(t, "att-2", metas[1].ID)

	byNote, err := attachments.ListMetaByNoteIDs(ctx, []string{"note-1", "note-2"})
	require.NoError(t, err)
	require.Len(t, byNote["note-1"], 2)
	require.Empty(t, byNote["note-2"])

	count, err := attachments.CountByNote(ctx, "note-1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, attachments.DeleteByID(ctx, "note-1", "att-1"))
	count, err = attachments.CountByNote(ctx, "note-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
