package service

import (
	"bytes"
	"context"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/xxxsen/noteflow/internal/repo"
)

// ExportService renders a note as a standalone HTML document. The note body
// is treated as Markdown; the stored summary, when present, is appended as
// its own section.
type ExportService struct {
	notes *repo.NoteRepo
	md    goldmark.Markdown
}

func NewExportService(notes *repo.NoteRepo) *ExportService {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
	)
	return &ExportService{notes: notes, md: md}
}

func (s *ExportService) RenderHTML(ctx context.Context, userID, noteID string) (string, string, error) {
	note, err := s.notes.GetOwned(ctx, userID, noteID)
	if err != nil {
		return "", "", err
	}
	var body bytes.Buffer
	if err := s.md.Convert([]byte(note.Content), &body); err != nil {
		return "", "", err
	}
	var summary bytes.Buffer
	if note.Summary != "" {
		if err := s.md.Convert([]byte(note.Summary), &summary); err != nil {
			return "", "", err
		}
	}
	var page bytes.Buffer
	title := html.EscapeString(note.Title)
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", title)
	fmt.Fprintf(&page, "<h1>%s</h1>\n", title)
	page.Write(body.Bytes())
	if summary.Len() > 0 {
		page.WriteString("<hr>\n<h2>Summary</h2>\n")
		page.Write(summary.Bytes())
	}
	page.WriteString("</body>\n</html>\n")
	return note.Title, page.String(), nil
}
