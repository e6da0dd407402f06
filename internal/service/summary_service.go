package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/noteflow/internal/filestore"
	"github.com/xxxsen/noteflow/internal/model"
	appErr "github.com/xxxsen/noteflow/internal/pkg/errors"
	"github.com/xxxsen/noteflow/internal/pkg/textextract"
)

// stuckTimeout bounds how long a busy flag is trusted. A note whose flag is
// older than this is treated as abandoned and may be taken over.
const stuckTimeout = 2 * time.Minute

const pdfMimeType = "application/pdf"

const (
	pdfCacheSize = 256
	pdfCacheTTL  = 2 * time.Hour
)

type summaryNoteStore interface {
	GetOwned(ctx context.Context, userID, noteID string) (*model.Note, error)
	TryBeginSummarize(ctx context.Context, userID, noteID string, now, staleBefore int64) (bool, error)
	SaveSummary(ctx context.Context, userID, noteID, summary string, now int64) error
	ResetSummarizingByID(ctx context.Context, noteID string) error
	ResetStuck(ctx context.Context, staleBefore int64) (int64, error)
}

type summaryAttachmentStore interface {
	ListMetaByNote(ctx context.Context, noteID string) ([]model.AttachmentMeta, error)
	GetByID(ctx context.Context, attachmentID string) (*model.Attachment, error)
}

type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SummaryService runs the summarization flow for a note: acquire the busy
// flag, assemble the prompt from the note body and its PDF attachments, call
// the model chain, persist the result.
type SummaryService struct {
	notes       summaryNoteStore
	attachments summaryAttachmentStore
	files       filestore.Store
	generator   generator
	pdfCache    *expirable.LRU[string, string]
	now         func() time.Time
}

func NewSummaryService(notes summaryNoteStore, attachments summaryAttachmentStore, files filestore.Store, gen generator) *SummaryService {
	return &SummaryService{
		notes:       notes,
		attachments: attachments,
		files:       files,
		generator:   gen,
		pdfCache:    expirable.NewLRU[string, string](pdfCacheSize, nil, pdfCacheTTL),
		now:         time.Now,
	}
}

// Summarize generates and persists a summary for the given note. The busy
// flag is released on every failure path after acquisition, so a failed
// attempt never leaves the note permanently busy.
func (s *SummaryService) Summarize(ctx context.Context, userID string, noteID string) (summary string, err error) {
	logger := logutil.GetLogger(ctx).With(zap.String("note_id", noteID))
	note, err := s.notes.GetOwned(ctx, userID, noteID)
	if err != nil {
		return "", err
	}
	now := s.now().UnixMilli()
	ok, err := s.notes.TryBeginSummarize(ctx, userID, noteID, now, now-stuckTimeout.Milliseconds())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", appErr.ErrConflict
	}
	defer func() {
		if err == nil {
			return
		}
		// The caller's context may already be dead at this point; the
		// flag still has to be cleared or the note stays busy until the
		// stale takeover window passes.
		resetCtx := context.WithoutCancel(ctx)
		if resetErr := s.notes.ResetSummarizingByID(resetCtx, noteID); resetErr != nil {
			logger.Error("reset summarizing flag failed", zap.Error(resetErr))
		}
	}()

	plain := textextract.FromMarkup(note.Content)
	metas, err := s.attachments.ListMetaByNote(ctx, noteID)
	if err != nil {
		return "", err
	}
	length := utf8.RuneCountInString(plain)
	if length < minSummaryInputChars && len(metas) == 0 {
		return "", appErr.ErrContentTooShort
	}
	if length > maxSummaryInputChars {
		return "", appErr.ErrContentTooLong
	}
	attachmentsText, err := s.extractAttachmentsText(ctx, metas)
	if err != nil {
		return "", err
	}
	prompt := buildSummaryPrompt(note.Title, plain, attachmentsText)
	summary, err = s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err = s.notes.SaveSummary(ctx, userID, noteID, summary, s.now().UnixMilli()); err != nil {
		return "", err
	}
	logger.Info("summary generated",
		zap.Int("input_chars", length),
		zap.Int("attachments", len(metas)),
		zap.Int("summary_chars", utf8.RuneCountInString(summary)),
	)
	return summary, nil
}

// ReleaseStuck clears busy flags abandoned longer than stuckTimeout ago.
// Called periodically so crashed attempts do not block notes forever.
func (s *SummaryService) ReleaseStuck(ctx context.Context) (int64, error) {
	staleBefore := s.now().Add(-stuckTimeout).UnixMilli()
	return s.notes.ResetStuck(ctx, staleBefore)
}

// extractAttachmentsText concatenates the extracted text of every PDF
// attachment, each block prefixed with a header naming its source file.
// Non-PDF attachments are skipped.
func (s *SummaryService) extractAttachmentsText(ctx context.Context, metas []model.AttachmentMeta) (string, error) {
	var b strings.Builder
	for _, meta := range metas {
		if meta.FileType != pdfMimeType {
			continue
		}
		text, err := s.pdfTextFor(ctx, meta)
		if err != nil {
			return "", fmt.Errorf("extract attachment %s: %w", meta.Name, err)
		}
		if text == "" {
			continue
		}
		b.WriteString("\n[Content from Attachment: ")
		b.WriteString(meta.Name)
		b.WriteString("]\n")
		b.WriteString(text)
	}
	return b.String(), nil
}

func (s *SummaryService) pdfTextFor(ctx context.Context, meta model.AttachmentMeta) (string, error) {
	if cached, ok := s.pdfCache.Get(meta.ID); ok {
		return cached, nil
	}
	data, err := s.attachmentData(ctx, meta)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}
	text, err := textextract.PDFText(data)
	if err != nil {
		return "", err
	}
	// Attachments are immutable once uploaded, so the extracted text can
	// be cached by id.
	s.pdfCache.Add(meta.ID, text)
	return text, nil
}

// attachmentData returns the payload bytes, preferring the stored blob and
// falling back to the legacy file key for rows migrated from disk storage.
// A legacy file that no longer exists is treated as an empty attachment, not
// a failure.
func (s *SummaryService) attachmentData(ctx context.Context, meta model.AttachmentMeta) ([]byte, error) {
	att, err := s.attachments.GetByID(ctx, meta.ID)
	if err != nil {
		return nil, err
	}
	if len(att.Data) > 0 {
		return att.Data, nil
	}
	if att.LegacyKey == "" || s.files == nil {
		return nil, nil
	}
	rc, err := s.files.Open(ctx, att.LegacyKey)
	if err != nil {
		logutil.GetLogger(ctx).Warn("legacy attachment file missing",
			zap.String("attachment_id", meta.ID),
			zap.String("key", att.LegacyKey),
			zap.Error(err),
		)
		return nil, nil
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
