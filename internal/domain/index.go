package domain

// PageUnknown marks a chunk whose originating page could not be determined.
const PageUnknown = 0

// Chunk is a bounded span of source document text used as a retrieval unit.
// Page is 1-based; PageUnknown when the source format carries no pages.
type Chunk struct {
	Text        string `json:"text"`
	SourceLabel string `json:"source_label"`
	Page        int    `json:"page"`
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
