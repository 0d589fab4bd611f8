package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadertalk/leadertalk/internal/domain"
	"github.com/leadertalk/leadertalk/internal/index"
)

// Retriever returns the top-k chunks of a leader's knowledge base for a
// query. Both the chat orchestrator and the suggestion generator share this
// step; each call loads the index fresh from its blob.
type Retriever interface {
	Retrieve(ctx context.Context, leader *domain.Leader, query string, k int) ([]domain.ScoredChunk, error)
}

// IndexRetriever retrieves from persisted vector index blobs.
type IndexRetriever struct {
	store *index.Store
}

// NewIndexRetriever creates a retriever over the given index store.
func NewIndexRetriever(store *index.Store) *IndexRetriever {
	return &IndexRetriever{store: store}
}

// Retrieve loads the leader's index and searches it. A missing, unloadable
// or empty index surfaces as domain.ErrKnowledgeBaseUnavailable rather than
// a raw index fault.
func (r *IndexRetriever) Retrieve(ctx context.Context, leader *domain.Leader, query string, k int) ([]domain.ScoredChunk, error) {
	if !leader.Indexed() {
		return nil, fmt.Errorf("%w: leader %s has no index", domain.ErrKnowledgeBaseUnavailable, leader.ID)
	}

	idx, err := r.store.Load(leader.IndexBlobRef)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseUnavailable, err)
		}
		return nil, err
	}

	results, err := r.store.Search(ctx, idx, query, k)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyIndex) {
			return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseUnavailable, err)
		}
		return nil, err
	}

	return results, nil
}
