package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/noteflow/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Notes     *NoteHandler
	AI        *AIHandler
	JWTSecret []byte
	// RateLimitWindow throttles the summarize endpoint; zero disables it.
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/auth/me", deps.Auth.Me)

	authGroup.POST("/notes", deps.Notes.Create)
	authGroup.GET("/notes", deps.Notes.List)
	authGroup.GET("/notes/search", deps.Notes.Search)
	authGroup.GET("/notes/:noteId", deps.Notes.Get)
	authGroup.PUT("/notes/:noteId", deps.Notes.Update)
	authGroup.PUT("/notes/:noteId/pin", deps.Notes.Pin)
	authGroup.DELETE("/notes/:noteId", deps.Notes.Delete)
	authGroup.GET("/notes/:noteId/export", deps.Notes.Export)
	authGroup.GET("/notes/:noteId/attachments/:attachmentId", deps.Notes.DownloadAttachment)

	authGroup.POST("/summarize/:noteId",
		middleware.RateLimit(deps.RateLimitWindow),
		deps.AI.Summarize,
	)
}
