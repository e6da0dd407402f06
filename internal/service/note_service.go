package service

import (
	"context"
	"io"
	"strings"

	"github.com/xxxsen/noteflow/internal/filestore"
	"github.com/xxxsen/noteflow/internal/model"
	appErr "github.com/xxxsen/noteflow/internal/pkg/errors"
	"github.com/xxxsen/noteflow/internal/pkg/timeutil"
	"github.com/xxxsen/noteflow/internal/repo"
)

const (
	maxAttachmentsPerNote = 5
	maxAttachmentSize     = 5 << 20
)

// AttachmentUpload is one incoming file from a multipart request.
type AttachmentUpload struct {
	Name     string
	FileType string
	Size     int64
	Data     []byte
}

type NoteCreateInput struct {
	Title   string
	Content string
	Tags    []string
	Files   []AttachmentUpload
}

// NoteUpdateInput carries only the fields the client sent; nil pointers mean
// "leave as is".
type NoteUpdateInput struct {
	Title               *string
	Content             *string
	Tags                *[]string
	DeleteAttachmentIDs []string
	Files               []AttachmentUpload
}

type NoteService struct {
	notes       *repo.NoteRepo
	attachments *repo.AttachmentRepo
	files       filestore.Store
}

func NewNoteService(notes *repo.NoteRepo, attachments *repo.AttachmentRepo, files filestore.Store) *NoteService {
	return &NoteService{notes: notes, attachments: attachments, files: files}
}

func (s *NoteService) Create(ctx context.Context, userID string, input NoteCreateInput) (*model.Note, error) {
	if err := validateUploads(input.Files, 0); err != nil {
		return nil, err
	}
	now := timeutil.NowMilli()
	note := &model.Note{
		ID:      newID(),
		UserID:  userID,
		Title:   strings.TrimSpace(input.Title),
		Content: input.Content,
		Tags:    normalizeTags(input.Tags),
		Ctime:   now,
		Mtime:   now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	if err := s.saveUploads(ctx, note.ID, input.Files); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, note.ID)
}

func (s *NoteService) Get(ctx context.Context, userID, noteID string) (*model.Note, error) {
	note, err := s.notes.GetOwned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	metas, err := s.attachments.ListMetaByNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	note.Attachments = metas
	return note, nil
}

func (s *NoteService) List(ctx context.Context, userID string) ([]model.Note, error) {
	notes, err := s.notes.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.populateMeta(ctx, notes)
}

func (s *NoteService) Search(ctx context.Context, userID, term string) ([]model.Note, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.List(ctx, userID)
	}
	notes, err := s.notes.Search(ctx, userID, term)
	if err != nil {
		return nil, err
	}
	return s.populateMeta(ctx, notes)
}

func (s *NoteService) Update(ctx context.Context, userID, noteID string, input NoteUpdateInput) (*model.Note, error) {
	note, err := s.notes.GetOwned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		note.Title = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil {
		note.Content = *input.Content
	}
	if input.Tags != nil {
		note.Tags = normalizeTags(*input.Tags)
	}
	if note.Title == "" {
		return nil, appErr.ErrInvalid
	}
	count, err := s.attachments.CountByNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	remaining := count - len(input.DeleteAttachmentIDs)
	if remaining < 0 {
		remaining = 0
	}
	if err := validateUploads(input.Files, remaining); err != nil {
		return nil, err
	}
	for _, attachmentID := range input.DeleteAttachmentIDs {
		if err := s.attachments.DeleteByID(ctx, noteID, attachmentID); err != nil {
			return nil, err
		}
	}
	if err := s.saveUploads(ctx, noteID, input.Files); err != nil {
		return nil, err
	}
	note.Mtime = timeutil.NowMilli()
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, noteID)
}

func (s *NoteService) SetPinned(ctx context.Context, userID, noteID string, pinned bool) (*model.Note, error) {
	if err := s.notes.UpdatePinned(ctx, userID, noteID, pinned, timeutil.NowMilli()); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, noteID)
}

func (s *NoteService) Delete(ctx context.Context, userID, noteID string) error {
	return s.notes.Delete(ctx, userID, noteID)
}

// GetAttachment returns an attachment with its payload loaded, verifying the
// parent note belongs to the caller first. Rows migrated from disk storage
// carry no blob; those are read through the legacy file key.
func (s *NoteService) GetAttachment(ctx context.Context, userID, noteID, attachmentID string) (*model.Attachment, error) {
	if _, err := s.notes.GetOwned(ctx, userID, noteID); err != nil {
		return nil, err
	}
	att, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if att.NoteID != noteID {
		return nil, appErr.ErrNotFound
	}
	if len(att.Data) == 0 && att.LegacyKey != "" && s.files != nil {
		rc, err := s.files.Open(ctx, att.LegacyKey)
		if err != nil {
			return nil, appErr.ErrNotFound
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		att.Data = data
	}
	return att, nil
}

func (s *NoteService) populateMeta(ctx context.Context, notes []model.Note) ([]model.Note, error) {
	ids := make([]string, 0, len(notes))
	for _, note := range notes {
		ids = append(ids, note.ID)
	}
	metaByNote, err := s.attachments.ListMetaByNoteIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		metas := metaByNote[notes[i].ID]
		if metas == nil {
			metas = []model.AttachmentMeta{}
		}
		notes[i].Attachments = metas
	}
	if notes == nil {
		notes = []model.Note{}
	}
	return notes, nil
}

func (s *NoteService) saveUploads(ctx context.Context, noteID string, files []AttachmentUpload) error {
	// ctime doubles as the upload order; keep it strictly increasing
	// within one request.
	base := timeutil.NowMilli()
	for i, file := range files {
		att := &model.Attachment{
			ID:       newID(),
			NoteID:   noteID,
			Name:     file.Name,
			FileType: file.FileType,
			Size:     file.Size,
			Data:     file.Data,
			Ctime:    base + int64(i),
		}
		if err := s.attachments.Create(ctx, att); err != nil {
			return err
		}
	}
	return nil
}

func validateUploads(files []AttachmentUpload, existing int) error {
	if existing+len(files) > maxAttachmentsPerNote {
		return appErr.ErrInvalid
	}
	for _, file := range files {
		if file.Size > maxAttachmentSize || int64(len(file.Data)) > maxAttachmentSize {
			return appErr.ErrInvalid
		}
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
