package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leadertalk/leadertalk/internal/api/middleware"
	"github.com/leadertalk/leadertalk/internal/domain"
	"github.com/leadertalk/leadertalk/internal/repository"
	"github.com/leadertalk/leadertalk/internal/service"
)

// Handler handles the conversational API: chat, history, clear and
// suggestions, all scoped to the authenticated caller.
type Handler struct {
	leaderRepo        *repository.LeaderRepository
	chatService       *service.ChatService
	suggestionService *service.SuggestionService
}

// NewHandler creates a new chat handler
func NewHandler(
	leaderRepo *repository.LeaderRepository,
	chatService *service.ChatService,
	suggestionService *service.SuggestionService,
) *Handler {
	return &Handler{
		leaderRepo:        leaderRepo,
		chatService:       chatService,
		suggestionService: suggestionService,
	}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.ListLeaders)
	r.POST("/:leader_id/chat", h.Chat)
	r.GET("/:leader_id/history", h.History)
	r.DELETE("/:leader_id/chat", h.ClearChat)
	r.POST("/:leader_id/suggestions", h.Suggestions)
}

// ListLeaders returns all leaders
func (h *Handler) ListLeaders(c *gin.Context) {
	leaders, err := h.leaderRepo.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list leaders"})
		return
	}
	if leaders == nil {
		leaders = []*domain.Leader{}
	}
	c.JSON(http.StatusOK, leaders)
}

// Chat handles a chat message, batch or streaming depending on the request
func (h *Handler) Chat(c *gin.Context) {
	leaderID := c.Param("leader_id")

	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Streaming {
		h.chatStream(c, leaderID, &req)
		return
	}

	resp, err := h.chatService.Chat(c.Request.Context(), middleware.UserID(c), leaderID, &req)
	if err != nil {
		status, msg := mapError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// chatStream relays the streaming answer as SSE data frames, one per
// partial result, terminated by the done=true frame.
func (h *Handler) chatStream(c *gin.Context, leaderID string, req *domain.ChatRequest) {
	stream, err := h.chatService.ChatStream(c.Request.Context(), middleware.UserID(c), leaderID, req)
	if err != nil {
		status, msg := mapError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		frame, ok := <-stream
		if !ok {
			return false // End stream
		}
		data, _ := json.Marshal(frame)
		fmt.Fprintf(w, "data: %s\n\n", data)
		return !frame.Done
	})
}

// History returns the turns for (leader, session, caller) in order
func (h *Handler) History(c *gin.Context) {
	leaderID := c.Param("leader_id")
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	turns, err := h.chatService.History(leaderID, sessionID, middleware.UserID(c))
	if err != nil {
		status, msg := mapError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	if turns == nil {
		turns = []*domain.ChatTurn{}
	}
	c.JSON(http.StatusOK, turns)
}

// ClearChat deletes the caller's turns for the session
func (h *Handler) ClearChat(c *gin.Context) {
	leaderID := c.Param("leader_id")
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	count, err := h.chatService.ClearSession(leaderID, sessionID, middleware.UserID(c))
	if err != nil {
		status, msg := mapError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, domain.ClearChatResponse{DeletedCount: count})
}

// Suggestions returns follow-up question candidates
func (h *Handler) Suggestions(c *gin.Context) {
	leaderID := c.Param("leader_id")

	var req domain.SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	suggestions, err := h.suggestionService.Suggest(c.Request.Context(), leaderID, req.Message)
	if err != nil {
		status, msg := mapError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, domain.SuggestionResponse{Suggestions: suggestions})
}

// mapError converts classified pipeline errors to status codes without
// leaking internal detail.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "leader not found"
	case errors.Is(err, domain.ErrKnowledgeBaseUnavailable):
		return http.StatusNotFound, "knowledge base unavailable for this leader"
	case errors.Is(err, domain.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "model service unavailable, please retry"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
