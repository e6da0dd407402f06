package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/noteflow/internal/model"
	"github.com/xxxsen/noteflow/internal/pkg/dbutil"
	appErr "github.com/xxxsen/noteflow/internal/pkg/errors"
)

// AttachmentRepo stores payload bytes in their own table so note reads stay
// cheap; the note only ever sees AttachmentMeta.
type AttachmentRepo struct {
	db *sql.DB
}

func NewAttachmentRepo(db *sql.DB) *AttachmentRepo {
	return &AttachmentRepo{db: db}
}

func (r *AttachmentRepo) Create(ctx context.Context, att *model.Attachment) error {
	data := map[string]interface{}{
		"id":         att.ID,
		"note_id":    att.NoteID,
		"name":       att.Name,
		"file_type":  att.FileType,
		"size":       att.Size,
		"data":       att.Data,
		"legacy_key": att.LegacyKey,
		"ctime":      att.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("attachments", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *AttachmentRepo) GetByID(ctx context.Context, attachmentID string) (*model.Attachment, error) {
	const query = `
		SELECT id, note_id, name, file_type, size, data, legacy_key, ctime
		FROM attachments
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, attachmentID)
	var att model.Attachment
	var data []byte
	if err := row.Scan(&att.ID, &att.NoteID, &att.Name, &att.FileType, &att.Size, &data, &att.LegacyKey, &att.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	att.Data = data
	return &att, nil
}

// ListMetaByNote returns metadata in upload order.
func (r *AttachmentRepo) ListMetaByNote(ctx context.Context, noteID string) ([]model.AttachmentMeta, error) {
	const query = `
		SELECT id, name, file_type, size
		FROM attachments
		WHERE note_id = $1
		ORDER BY ctime
	`
	rows, err := r.db.QueryContext(ctx, query, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	metas := make([]model.AttachmentMeta, 0)
	for rows.Next() {
		var meta model.AttachmentMeta
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.FileType, &meta.Size); err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

func (r *AttachmentRepo) ListMetaByNoteIDs(ctx context.Context, noteIDs []string) (map[string][]model.AttachmentMeta, error) {
	result := make(map[string][]model.AttachmentMeta)
	if len(noteIDs) == 0 {
		return result, nil
	}
	query := `SELECT note_id, id, name, file_type, size FROM attachments WHERE note_id IN (?) ORDER BY ctime`
	query, args, err := sqlx.In(query, noteIDs)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var noteID string
		var meta model.AttachmentMeta
		if err := rows.Scan(&noteID, &meta.ID, &meta.Name, &meta.FileType, &meta.Size); err != nil {
			return nil, err
		}
		result[noteID] = append(result[noteID], meta)
	}
	return result, rows.Err()
}

func (r *AttachmentRepo) DeleteByID(ctx context.Context, noteID, attachmentID string) error {
	const query = `DELETE FROM attachments WHERE id = $1 AND note_id = $2`
	_, err := r.db.ExecContext(ctx, query, attachmentID, noteID)
	return err
}

func (r *AttachmentRepo) CountByNote(ctx context.Context, noteID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attachments WHERE note_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, noteID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
