package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/noteflow/internal/model"
	"github.com/xxxsen/noteflow/internal/pkg/dbutil"
	appErr "github.com/xxxsen/noteflow/internal/pkg/errors"
)

var noteColumns = []string{
	"id", "user_id", "title", "content", "tags", "pinned",
	"summary", "is_summarizing", "ctime", "mtime",
}

type NoteRepo struct {
	db *sql.DB
}

func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

func (r *NoteRepo) Create(ctx context.Context, note *model.Note) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":             note.ID,
		"user_id":        note.UserID,
		"title":          note.Title,
		"content":        note.Content,
		"tags":           tags,
		"pinned":         note.Pinned,
		"summary":        note.Summary,
		"is_summarizing": note.IsSummarizing,
		"ctime":          note.Ctime,
		"mtime":          note.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("notes", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *NoteRepo) Update(ctx context.Context, note *model.Note) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}
	where := map[string]interface{}{
		"id":      note.ID,
		"user_id": note.UserID,
	}
	update := map[string]interface{}{
		"title":   note.Title,
		"content": note.Content,
		"tags":    tags,
		"pinned":  note.Pinned,
		"mtime":   note.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("notes", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *NoteRepo) UpdatePinned(ctx context.Context, userID, noteID string, pinned bool, now int64) error {
	const query = `UPDATE notes SET pinned = $1, mtime = $2 WHERE id = $3 AND user_id = $4`
	result, err := r.db.ExecContext(ctx, query, pinned, now, noteID, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// GetOwned scopes the lookup to the requesting owner; a note owned by
// someone else is indistinguishable from a missing one.
func (r *NoteRepo) GetOwned(ctx context.Context, userID, noteID string) (*model.Note, error) {
	where := map[string]interface{}{
		"id":      noteID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildSelect("notes", where, noteColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanNote(rows)
}

func (r *NoteRepo) List(ctx context.Context, userID string) ([]model.Note, error) {
	const query = `
		SELECT id, user_id, title, content, tags, pinned, summary, is_summarizing, ctime, mtime
		FROM notes
		WHERE user_id = $1
		ORDER BY pinned DESC, mtime DESC
	`
	return r.queryNotes(ctx, query, userID)
}

func (r *NoteRepo) Search(ctx context.Context, userID, term string) ([]model.Note, error) {
	const query = `
		SELECT id, user_id, title, content, tags, pinned, summary, is_summarizing, ctime, mtime
		FROM notes
		WHERE user_id = $1 AND (title ILIKE $2 OR content ILIKE $2 OR tags ILIKE $2)
		ORDER BY pinned DESC, mtime DESC
	`
	return r.queryNotes(ctx, query, userID, "%"+term+"%")
}

func (r *NoteRepo) Delete(ctx context.Context, userID, noteID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	result, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, noteID, userID)
	if err != nil {
		return err
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE note_id = $1`, noteID); err != nil {
		return err
	}
	return tx.Commit()
}

// TryBeginSummarize is the IDLE -> SUMMARIZING transition. A single
// conditional update makes the takeover atomic: it succeeds when the note is
// idle, or when a previous attempt went stale (flag still set but mtime older
// than staleBefore). The mtime refresh restarts the staleness clock for the
// attempt being started.
func (r *NoteRepo) TryBeginSummarize(ctx context.Context, userID, noteID string, now, staleBefore int64) (bool, error) {
	const query = `
		UPDATE notes SET is_summarizing = TRUE, mtime = $1
		WHERE id = $2 AND user_id = $3 AND (is_summarizing = FALSE OR mtime < $4)
	`
	result, err := r.db.ExecContext(ctx, query, now, noteID, userID, staleBefore)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SaveSummary persists the generated text and ends the attempt in one write.
func (r *NoteRepo) SaveSummary(ctx context.Context, userID, noteID, summary string, now int64) error {
	const query = `
		UPDATE notes SET summary = $1, is_summarizing = FALSE, mtime = $2
		WHERE id = $3 AND user_id = $4
	`
	result, err := r.db.ExecContext(ctx, query, summary, now, noteID, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ResetSummarizingByID clears the busy flag without touching anything else.
// Keyed by id alone so the failure path works even when the in-memory note
// is stale; a missing note is not an error.
func (r *NoteRepo) ResetSummarizingByID(ctx context.Context, noteID string) error {
	const query = `UPDATE notes SET is_summarizing = FALSE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, noteID)
	return err
}

// ResetStuck clears busy flags older than the given mtime across all users.
func (r *NoteRepo) ResetStuck(ctx context.Context, staleBefore int64) (int64, error) {
	const query = `UPDATE notes SET is_summarizing = FALSE WHERE is_summarizing = TRUE AND mtime < $1`
	result, err := r.db.ExecContext(ctx, query, staleBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *NoteRepo) queryNotes(ctx context.Context, query string, args ...interface{}) ([]model.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var notes []model.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *note)
	}
	return notes, rows.Err()
}

func scanNote(rows *sql.Rows) (*model.Note, error) {
	var note model.Note
	var tags string
	if err := rows.Scan(
		&note.ID, &note.UserID, &note.Title, &note.Content, &tags, &note.Pinned,
		&note.Summary, &note.IsSummarizing, &note.Ctime, &note.Mtime,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &note.Tags); err != nil {
		return nil, err
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	return &note, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
