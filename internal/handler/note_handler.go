package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/noteflow/internal/pkg/response"
	"github.com/xxxsen/noteflow/internal/service"
)

const maxUploadBytes = 5 << 20

type NoteHandler struct {
	notes  *service.NoteService
	export *service.ExportService
}

func NewNoteHandler(notes *service.NoteService, export *service.ExportService) *NoteHandler {
	return &NoteHandler{notes: notes, export: export}
}

// Create accepts a multipart form: title, content, tags (JSON array) and up
// to five files under the "files" field.
func (h *NoteHandler) Create(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		response.Error(c, http.StatusBadRequest, "Title is required")
		return
	}
	tags, err := parseTagsField(c.PostForm("tags"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid tags")
		return
	}
	files, err := collectUploads(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	note, err := h.notes.Create(c.Request.Context(), getUserID(c), service.NoteCreateInput{
		Title:   title,
		Content: c.PostForm("content"),
		Tags:    tags,
		Files:   files,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"note": note, "message": "Note added successfully"})
}

func (h *NoteHandler) List(c *gin.Context) {
	notes, err := h.notes.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"notes": notes})
}

func (h *NoteHandler) Search(c *gin.Context) {
	notes, err := h.notes.Search(c.Request.Context(), getUserID(c), c.Query("q"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"notes": notes})
}

func (h *NoteHandler) Get(c *gin.Context) {
	note, err := h.notes.Get(c.Request.Context(), getUserID(c), c.Param("noteId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"note": note})
}

func (h *NoteHandler) Update(c *gin.Context) {
	var input service.NoteUpdateInput
	if title, ok := c.GetPostForm("title"); ok {
		trimmed := strings.TrimSpace(title)
		if trimmed == "" {
			response.Error(c, http.StatusBadRequest, "Title is required")
			return
		}
		input.Title = &trimmed
	}
	if content, ok := c.GetPostForm("content"); ok {
		input.Content = &content
	}
	if raw, ok := c.GetPostForm("tags"); ok {
		tags, err := parseTagsField(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid tags")
			return
		}
		input.Tags = &tags
	}
	if raw, ok := c.GetPostForm("deleteAttachments"); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.DeleteAttachmentIDs); err != nil {
			response.Error(c, http.StatusBadRequest, "invalid deleteAttachments")
			return
		}
	}
	files, err := collectUploads(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	input.Files = files
	note, err := h.notes.Update(c.Request.Context(), getUserID(c), c.Param("noteId"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"note": note, "message": "Note updated successfully"})
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

func (h *NoteHandler) Pin(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	note, err := h.notes.SetPinned(c.Request.Context(), getUserID(c), c.Param("noteId"), req.Pinned)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"note": note})
}

func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), getUserID(c), c.Param("noteId")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "Note deleted successfully"})
}

func (h *NoteHandler) DownloadAttachment(c *gin.Context) {
	att, err := h.notes.GetAttachment(c.Request.Context(), getUserID(c), c.Param("noteId"), c.Param("attachmentId"))
	if err != nil {
		handleError(c, err)
		return
	}
	contentType := att.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Name))
	c.Data(http.StatusOK, contentType, att.Data)
}

func (h *NoteHandler) Export(c *gin.Context) {
	title, page, err := h.export.RenderHTML(c.Request.Context(), getUserID(c), c.Param("noteId"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+".html"))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func parseTagsField(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func collectUploads(c *gin.Context) ([]service.AttachmentUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// Not a multipart request; nothing to collect.
		return nil, nil
	}
	headers := form.File["files"]
	uploads := make([]service.AttachmentUpload, 0, len(headers))
	for _, header := range headers {
		upload, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

func readUpload(header *multipart.FileHeader) (service.AttachmentUpload, error) {
	if header.Size > maxUploadBytes {
		return service.AttachmentUpload{}, fmt.Errorf("file %s exceeds the 5MB limit", header.Filename)
	}
	file, err := header.Open()
	if err != nil {
		return service.AttachmentUpload{}, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return service.AttachmentUpload{}, err
	}
	if len(data) > maxUploadBytes {
		return service.AttachmentUpload{}, fmt.Errorf("file %s exceeds the 5MB limit", header.Filename)
	}
	return service.AttachmentUpload{
		Name:     header.Filename,
		FileType: header.Header.Get("Content-Type"),
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}
