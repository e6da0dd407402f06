package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/noteflow/internal/ai"
	"github.com/xxxsen/noteflow/internal/model"
	appErr "github.com/xxxsen/noteflow/internal/pkg/errors"
)

type fakeNoteStore struct {
	note         *model.Note
	beginOK      bool
	beginCalls   int
	savedSummary string
	saveCalls    int
	resetCalls   int
	stuckCount   int64
}

func (s *fakeNoteStore) GetOwned(ctx context.Context, userID, noteID string) (*model.Note, error) {
	if s.note == nil || s.note.UserID != userID || s.note.ID != noteID {
		return nil, appErr.ErrNotFound
	}
	copied := *s.note
	return &copied, nil
}

func (s *fakeNoteStore) TryBeginSummarize(ctx context.Context, userID, noteID string, now, staleBefore int64) (bool, error) {
	s.beginCalls++
	return s.beginOK, nil
}

func (s *fakeNoteStore) SaveSummary(ctx context.Context, userID, noteID, summary string, now int64) error {
	s.saveCalls++
	s.savedSummary = summary
	return nil
}

func (s *fakeNoteStore) ResetSummarizingByID(ctx context.Context, noteID string) error {
	s.resetCalls++
	return nil
}

func (s *fakeNoteStore) ResetStuck(ctx context.Context, staleBefore int64) (int64, error) {
	return s.stuckCount, nil
}

type fakeAttachmentStore struct {
	metas []model.AttachmentMeta
	byID  map[string]*model.Attachment
}

func (s *fakeAttachmentStore) ListMetaByNote(ctx context.Context, noteID string) ([]model.AttachmentMeta, error) {
	return s.metas, nil
}

func (s *fakeAttachmentStore) GetByID(ctx context.Context, attachmentID string) (*model.Attachment, error) {
	att, ok := s.byID[attachmentID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return att, nil
}

type fakeGenerator struct {
	text    string
	err     error
	calls   int
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

func newSummaryFixture(content string, metas []model.AttachmentMeta) (*SummaryService, *fakeNoteStore, *fakeGenerator) {
	notes := &fakeNoteStore{
		note: &model.Note{
			ID:      "note-1",
			UserID:  "user-1",
			Title:   "title",
			Content: content,
		},
		beginOK: true,
	}
	gen := &fakeGenerator{text: "- point one\n- point two"}
	svc := &SummaryService{
		notes:       notes,
		attachments: &fakeAttachmentStore{metas: metas},
		generator:   gen,
		pdfCache:    expirable.NewLRU[string, string](8, nil, time.Minute),
		now:         time.Now,
	}
	return svc, notes, gen
}

func TestSummarize_SuccessPersistsSummary(t *testing.T) {
	svc, notes, gen := newSummaryFixture(strings.Repeat("meeting notes ", 20), nil)
	summary, err := svc.Summarize(context.Background(), "user-1", "note-1")
	require.NoError(t, err)
	require.Equal(t, "- point one\n- point two", summary)
	require.Equal(t, 1, notes.beginCalls)
	require.Equal(t, 1, notes.saveCalls)
	require.Equal(t, "- point one\n- point two", notes.savedSummary)
	require.Equal(t, 0, notes.resetCalls)
	require.Equal(t, 1, gen.calls)
}

func TestSummarize_NotFound(t *testing.T) {
	svc, notes, gen := newSummaryFixture("irrelevant", nil)
	_, err := svc.Summarize(context.Background(), "someone-else", "note-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.Equal(t, 0, notes.beginCalls)
	require.Equal(t, 0, gen.calls)
}

func TestSummarize_ConflictWhenBusy(t *testing.T) {
	svc, notes, gen := newSummaryFixture(strings.Repeat("x", 200), nil)
	notes.beginOK = false
	_, err := svc.Summarize(context.Background(), "user-1", "note-1")
	require.ErrorIs(t, err, appErr.ErrConflict)
	require.Equal(t, 0, gen.calls)
	require.Equal(t, 0, notes.resetCalls)
}

func TestSummarize_TooShortResetsFlag(t *testing.T) {
	svc, notes, gen := newSummaryFixture("Buy milk", nil)
	_, err := svc.Summarize(context.Background(), "user-1", "note-1")
	require.ErrorIs(t, err, appErr.ErrContentTooShort)
	require.Equal(t, 0, gen.calls)
	require.Equal(t, 1, notes.resetCalls)
	require.Equal(t, 0, notes.saveCalls)
}

func TestSummarize_MinLengthBoundary(t *testing.T) {
	svc, _, gen := newSummaryFixture(strings.Repeat("a", minSummaryInputChars), nil)
	_, err := svc.Summarize(context.Background(), "user-1", "note-1")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
}

func TestSummarize_TooLongResetsFlag(t *testing.T) {
	svc, notes, gen := newSummaryFixture(strings.Repeat("a", maxSummaryInputChars+1), nil)
	_, err := svc.Summarize(context.Background(), "user-1", "note-1")
	require.ErrorIs(t, err, appErr.ErrContentTooLong)
	require.Equal(t, 0, gen.calls)
	require.Equal(t, 1, notes.resetCalls)
}

func TestSummarize_MaxLengthBoundary(t *testing.T) {
	svc, _, gen := newSummaryFixture(strings.Repeat("a", maxSummaryInputChars), nil)
	_, err := svc.Summarize(context.Background(), "user-1", "note-1")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
}

func TestSummarize_AttachmentsWaiveMinLength(t *testing.T) {
	metas := []model.AttachmentMeta{{ID: "att-1", Name: "doc.txt", FileType: "text/plain", Size: 10}}
	svc, notes, gen := newSummaryFixture("Buy milk", metas)
	_, err := svc.Summarize(context.Background(), "user-1", "note-1")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
	require.Equal(t, 1, notes.saveCalls)
}

func TestSummarize_PdfTextFlowsIntoPrompt(t *testing.T) {
	metas := []model.AttachmentMeta{{ID: "att-1", Name: "report.pdf", FileType: "application/pdf", Size: 100}}
	svc, _, gen := newSummaryFixture(strings.Repeat("meeting notes ", 20), metas)
	svc.pdfCache.Add("att-1", "extracted pdf body")

	_, err := svc.Summarize(context.Background(), "user-1", "note-1")
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], "[Content from Attachment: report.pdf]")
	require.Contains(t, gen.prompts[0], "extracted pdf body")
}

func TestSummarize_GeneratorFailureResetsFlag(t *testing.T) {
	svc, notes, gen := newSummaryFixture(strings.Repeat("x", 200), nil)
	gen.err = errors.New("model exploded")
	_, err := svc.Summarize(context.Background(), "user-1", "note-1")
	require.Error(t, err)
	require.Equal(t, 1, notes.resetCalls)
	require.Equal(t, 0, notes.saveCalls)
}

func TestSummarize_RateLimitDetailSurvives(t *testing.T) {
	svc, notes, gen := newSummaryFixture(strings.Repeat("x", 200), nil)
	gen.err = &ai.RateLimitError{RetryAfter: "30s", Cause: errors.New("quota exceeded")}
	_, err := svc.Summarize(context.Background(), "user-1", "note-1")
	var rateErr *ai.RateLimitError
	require.True(t, errors.As(err, &rateErr))
	require.Equal(t, "30s", rateErr.RetryAfter)
	require.Equal(t, 1, notes.resetCalls)
}

func TestReleaseStuck(t *testing.T) {
	svc, notes, _ := newSummaryFixture("irrelevant", nil)
	notes.stuckCount = 3
	released, err := svc.ReleaseStuck(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, released)
}
