package domain

import "time"

// Leader represents a named entity whose document backs a knowledge base.
// SourceDocumentRef is present only before successful ingestion and
// IndexBlobRef only after: ingestion sets one and clears the other in a
// single transition, and IndexBlobRef is set at most once.
type Leader struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	SourceDocumentRef string    `json:"source_document_ref,omitempty"`
	IndexBlobRef      string    `json:"index_blob_ref,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Indexed reports whether the leader's knowledge base has been built.
func (l *Leader) Indexed() bool {
	return l.IndexBlobRef != ""
}

// CreateLeaderRequest is the request to register a leader
type CreateLeaderRequest struct {
	Name string `form:"name" binding:"required"`
}
