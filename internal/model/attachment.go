package model

// Attachment holds the actual payload. Data may be empty for rows imported
// from the old disk-based upload flow; those keep their bytes in the
// filestore under LegacyKey.
type Attachment struct {
	ID        string `json:"id"`
	NoteID    string `json:"note_id"`
	Name      string `json:"name"`
	FileType  string `json:"file_type"`
	Size      int64  `json:"size"`
	Data      []byte `json:"-"`
	LegacyKey string `json:"-"`
	Ctime     int64  `json:"ctime"`
}
