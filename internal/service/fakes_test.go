package service

import (
	"context"

	"github.com/leadertalk/leadertalk/internal/domain"
)

// fakeGenerator is a scripted llm.Generator for orchestrator tests.
type fakeGenerator struct {
	response  string
	fragments []string
	err       error
	prompts   []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *fakeGenerator) GenerateStream(ctx context.Context, prompt string, fn func(ctx context.Context, fragment string) error) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}

	frags := g.fragments
	if frags == nil {
		frags = []string{g.response}
	}

	var full string
	for _, frag := range frags {
		full += frag
		if err := fn(ctx, frag); err != nil {
			return full, err
		}
	}
	return full, nil
}

// fakeRetriever is a scripted Retriever.
type fakeRetriever struct {
	chunks []domain.ScoredChunk
	err    error
	calls  int
}

func (r *fakeRetriever) Retrieve(ctx context.Context, leader *domain.Leader, query string, k int) ([]domain.ScoredChunk, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.chunks, nil
}

// fakeEmbedder embeds text as letter frequencies, so identical strings have
// cosine similarity 1 and unrelated strings score lower. Deterministic and
// offline.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = letterFrequency(text)
	}
	return vectors, nil
}

func (fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return letterFrequency(text), nil
}

func letterFrequency(s string) []float32 {
	v := make([]float32, 26)
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}
