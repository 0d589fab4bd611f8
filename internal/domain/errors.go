package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIngestion indicates a source document that cannot be parsed or
	// yields zero chunks; the leader stays unindexed
	ErrIngestion = errors.New("document ingestion failed")
	// ErrIndexNotFound indicates an index blob reference that does not resolve
	ErrIndexNotFound = errors.New("vector index not found")
	// ErrEmptyIndex indicates a loaded index with zero chunks
	ErrEmptyIndex = errors.New("vector index is empty")
	// ErrKnowledgeBaseUnavailable indicates the leader has no usable index
	ErrKnowledgeBaseUnavailable = errors.New("knowledge base unavailable")
	// ErrModelUnavailable indicates the generative model service is unreachable
	ErrModelUnavailable = errors.New("model service unavailable")
	// ErrGenerationFailed indicates any other failure in the answer pipeline
	ErrGenerationFailed = errors.New("generation failed")
)
