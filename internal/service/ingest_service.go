package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/leadertalk/leadertalk/internal/domain"
	"github.com/leadertalk/leadertalk/internal/index"
	"github.com/leadertalk/leadertalk/internal/repository"
	"go.uber.org/zap"
)

// IngestService turns a leader's source document into a persisted vector
// index. Invoked explicitly by the entity catalog after it stores a new
// source document reference; at most once per leader.
type IngestService struct {
	leaderRepo *repository.LeaderRepository
	chunker    *index.Chunker
	store      *index.Store
	logger     *zap.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	leaderRepo *repository.LeaderRepository,
	chunker *index.Chunker,
	store *index.Store,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		leaderRepo: leaderRepo,
		chunker:    chunker,
		store:      store,
		logger:     logger,
	}
}

// Ingest chunks, embeds, indexes and persists the leader's source document,
// then updates the leader record and finally deletes the source file.
//
// Ordering matters: the source document is removed only after the blob is
// durable and the record update confirmed, so a crash anywhere earlier
// leaves the document intact and ingestion retryable. A crash after the
// record update leaves at worst an orphaned file.
//
// Re-entrant calls on an already-indexed leader are no-ops, and the
// record update itself is the authoritative at-most-once check for racing
// runners. Every failure leaves the leader unindexed and is reported as
// domain.ErrIngestion, never a crash.
func (s *IngestService) Ingest(ctx context.Context, leaderID string) error {
	leader, err := s.leaderRepo.Get(leaderID)
	if err != nil {
		return err
	}
	if leader == nil {
		return domain.ErrNotFound
	}
	if leader.Indexed() {
		s.logger.Info("leader already indexed, skipping ingestion",
			zap.String("leader_id", leaderID))
		return nil
	}
	if leader.SourceDocumentRef == "" {
		return fmt.Errorf("%w: leader %s has no source document", domain.ErrIngestion, leaderID)
	}

	chunks, err := s.chunker.ChunkFile(leader.SourceDocumentRef)
	if err != nil {
		s.logger.Error("chunking failed, leader stays unindexed",
			zap.String("leader_id", leaderID), zap.Error(err))
		return err
	}

	idx, err := s.store.Build(ctx, chunks)
	if err != nil {
		return s.fail(leaderID, "index build failed", err)
	}

	blobRef, err := s.store.Persist(idx, leaderID)
	if err != nil {
		return s.fail(leaderID, "index persist failed", err)
	}

	won, err := s.leaderRepo.MarkIndexed(leaderID, blobRef)
	if err != nil {
		return s.fail(leaderID, "leader record update failed", err)
	}
	if !won {
		// A concurrent ingestion got there first; its blob stands
		s.logger.Info("leader indexed concurrently, skipping",
			zap.String("leader_id", leaderID))
		return nil
	}

	// Source document is not retained once the index is durable
	if err := os.Remove(leader.SourceDocumentRef); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to delete source document, leaving orphan",
			zap.String("leader_id", leaderID),
			zap.String("path", leader.SourceDocumentRef),
			zap.Error(err))
	}

	s.logger.Info("leader ingested",
		zap.String("leader_id", leaderID),
		zap.String("blob_ref", blobRef),
		zap.Int("chunks", len(chunks)))

	return nil
}

func (s *IngestService) fail(leaderID, msg string, err error) error {
	s.logger.Error(msg+", leader stays unindexed",
		zap.String("leader_id", leaderID), zap.Error(err))
	if errors.Is(err, domain.ErrIngestion) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrIngestion, err)
}
