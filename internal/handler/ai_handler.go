package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/noteflow/internal/ai"
	appErr "github.com/xxxsen/noteflow/internal/pkg/errors"
	"github.com/xxxsen/noteflow/internal/pkg/response"
)

// Summarizer is the piece of the summary service this handler needs.
type Summarizer interface {
	Summarize(ctx context.Context, userID string, noteID string) (string, error)
}

type AIHandler struct {
	summaries Summarizer
}

func NewAIHandler(summaries Summarizer) *AIHandler {
	return &AIHandler{summaries: summaries}
}

func (h *AIHandler) Summarize(c *gin.Context) {
	summary, err := h.summaries.Summarize(c.Request.Context(), getUserID(c), c.Param("noteId"))
	if err != nil {
		respondSummarizeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"summary": summary,
		"message": "Summary generated successfully",
	})
}

// respondSummarizeError translates orchestrator failures into the response
// contract the frontend relies on. Message strings are part of that contract.
func respondSummarizeError(c *gin.Context, err error) {
	logutil.GetLogger(c.Request.Context()).Warn("summarize failed",
		zap.String("note_id", c.Param("noteId")),
		zap.Error(err),
	)
	var rateErr *ai.RateLimitError
	switch {
	case appErr.IsNotFound(err):
		response.Error(c, http.StatusNotFound, "Note not found or unauthorized")
	case appErr.IsConflict(err):
		response.Error(c, http.StatusConflict, "Summarization is already in progress")
	case errors.Is(err, appErr.ErrContentTooShort):
		response.Error(c, http.StatusBadRequest, "Note content is too short to summarize (minimum 50 characters required).")
	case errors.Is(err, appErr.ErrContentTooLong):
		response.Error(c, http.StatusBadRequest, "Note is too long to summarize (limit: 30000 characters). Please shorten it and try again.")
	case errors.Is(err, ai.ErrTimeout):
		response.Error(c, http.StatusGatewayTimeout, "AI response timed out. Please try again.")
	case errors.As(err, &rateErr):
		message := "AI limit reached. Please wait a minute before trying again."
		if rateErr.RetryAfter != "" {
			message = "AI limit reached. Please wait " + rateErr.RetryAfter + " before retrying."
		}
		response.RateLimited(c, message, rateErr.RetryAfter)
	default:
		response.Error(c, http.StatusInternalServerError, "An error occurred while generating the summary. Please try again later.")
	}
}
