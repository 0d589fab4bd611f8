// Package index implements the per-leader vector knowledge base: chunking,
// embedding, cosine similarity search and blob persistence.
package index

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/leadertalk/leadertalk/internal/domain"
	"github.com/leadertalk/leadertalk/internal/llm"
)

// Index is an immutable similarity index over a leader's chunks. It is
// built once by ingestion and only ever read afterwards, so concurrent
// searches need no locking.
type Index struct {
	Chunks  []domain.Chunk
	Vectors [][]float32
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.Chunks)
}

// Store builds, persists, loads and queries vector indexes. Blobs live as
// gob files under dir, one per leader.
type Store struct {
	embedder llm.Embedder
	dir      string
}

// NewStore creates a store writing blobs under dir.
func NewStore(embedder llm.Embedder, dir string) *Store {
	return &Store{embedder: embedder, dir: dir}
}

// Build embeds all chunks and constructs an index. Pure construction: no
// blob is written until Persist.
func (s *Store) Build(ctx context.Context, chunks []domain.Chunk) (*Index, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	return &Index{Chunks: chunks, Vectors: vectors}, nil
}

// Persist writes the index as a blob named ref and returns the blob
// reference. The write goes through a temp file and rename so a partially
// written blob is never observable under the final reference.
func (s *Store) Persist(index *Index, ref string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create index directory: %w", err)
	}

	blobRef := ref + ".idx"
	path := filepath.Join(s.dir, blobRef)

	tmp, err := os.CreateTemp(s.dir, blobRef+".tmp*")
	if err != nil {
		return "", fmt.Errorf("failed to create index blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(index); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode index blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write index blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to finalize index blob: %w", err)
	}

	return blobRef, nil
}

// Load reads a persisted index by blob reference. Returns
// domain.ErrIndexNotFound when the reference does not resolve.
func (s *Store) Load(blobRef string) (*Index, error) {
	f, err := os.Open(filepath.Join(s.dir, blobRef))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, blobRef)
		}
		return nil, fmt.Errorf("failed to open index blob: %w", err)
	}
	defer f.Close()

	var index Index
	if err := gob.NewDecoder(f).Decode(&index); err != nil {
		return nil, fmt.Errorf("failed to decode index blob %s: %w", blobRef, err)
	}

	return &index, nil
}

// Search embeds the query and returns up to k chunks ordered by descending
// cosine similarity. Returns domain.ErrEmptyIndex for an index with no
// chunks.
func (s *Store) Search(ctx context.Context, index *Index, query string, k int) ([]domain.ScoredChunk, error) {
	if index.Len() == 0 {
		return nil, domain.ErrEmptyIndex
	}

	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results := make([]domain.ScoredChunk, index.Len())
	for i, vec := range index.Vectors {
		results[i] = domain.ScoredChunk{
			Chunk: index.Chunks[i],
			Score: cosineSimilarity(queryVec, vec),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
