package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leadertalk/leadertalk/internal/domain"
	"github.com/leadertalk/leadertalk/internal/repository"
	"github.com/leadertalk/leadertalk/internal/service"
	"go.uber.org/zap"
)

// Handler plays the entity-catalog role: it registers leader records,
// stores their source documents and invokes the ingestion pipeline
// explicitly once the document reference is durable.
type Handler struct {
	leaderRepo    *repository.LeaderRepository
	ingestService *service.IngestService
	documentsDir  string
	logger        *zap.Logger
}

// NewHandler creates a new admin handler
func NewHandler(
	leaderRepo *repository.LeaderRepository,
	ingestService *service.IngestService,
	documentsDir string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		leaderRepo:    leaderRepo,
		ingestService: ingestService,
		documentsDir:  documentsDir,
		logger:        logger,
	}
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/leaders", h.CreateLeader)
	r.GET("/leaders", h.ListLeaders)
	r.GET("/leaders/:leader_id", h.GetLeader)
	r.POST("/leaders/:leader_id/ingest", h.Ingest)
}

var supportedTypes = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// CreateLeader registers a leader with its source document and kicks off
// ingestion in the background.
func (h *Handler) CreateLeader(c *gin.Context) {
	var req domain.CreateLeaderRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document file is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !supportedTypes[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type: %s", ext)})
		return
	}

	leaderID := uuid.New().String()
	storagePath, err := h.saveDocument(file, leaderID, ext)
	if err != nil {
		h.logger.Error("failed to store source document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store document"})
		return
	}

	leader := &domain.Leader{
		ID:                leaderID,
		Name:              req.Name,
		SourceDocumentRef: storagePath,
	}
	if err := h.leaderRepo.Create(leader); err != nil {
		os.Remove(storagePath)
		h.logger.Error("failed to create leader", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create leader"})
		return
	}

	// The document reference is durable now; invoke the pipeline. Failures
	// leave the leader unindexed and retryable via the ingest endpoint.
	go func() {
		if err := h.ingestService.Ingest(context.Background(), leader.ID); err != nil {
			h.logger.Error("background ingestion failed",
				zap.String("leader_id", leader.ID), zap.Error(err))
		}
	}()

	c.JSON(http.StatusCreated, leader)
}

// ListLeaders returns all leader records
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

// GetLeader returns one leader record
func (h *Handler) GetLeader(c *gin.Context) {
	leader, err := h.leaderRepo.Get(c.Param("leader_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leader"})
		return
	}
	if leader == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "leader not found"})
		return
	}
	c.JSON(http.StatusOK, leader)
}

// Ingest re-invokes the ingestion pipeline for a leader. A no-op when the
// leader is already indexed.
func (h *Handler) Ingest(c *gin.Context) {
	err := h.ingestService.Ingest(c.Request.Context(), c.Param("leader_id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "leader not found"})
	case errors.Is(err, domain.ErrIngestion):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
	}
}

func (h *Handler) saveDocument(file *multipart.FileHeader, leaderID, ext string) (string, error) {
	if err := os.MkdirAll(h.documentsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	storagePath := filepath.Join(h.documentsDir, leaderID+ext)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(storagePath)
	if err != nil {
		return "", fmt.Errorf("failed to create storage file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return storagePath, nil
}
