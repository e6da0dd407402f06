package model

// Note is the unit of everything in the system. Mtime doubles as the
// staleness clock for the summarization busy flag.
type Note struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Title         string           `json:"title"`
	Content       string           `json:"content"`
	Tags          []string         `json:"tags"`
	Pinned        bool             `json:"pinned"`
	Summary       string           `json:"summary"`
	IsSummarizing bool             `json:"is_summarizing"`
	Attachments   []AttachmentMeta `json:"attachments"`
	Ctime         int64            `json:"ctime"`
	Mtime         int64            `json:"mtime"`
}

// AttachmentMeta is the lightweight record embedded in note responses.
// Payload bytes live in the attachments table, never on the note.
type AttachmentMeta struct {
	ID       string `json:"attachment_id"`
	Name     string `json:"name"`
	FileType string `json:"file_type"`
	Size     int64  `json:"size"`
}
