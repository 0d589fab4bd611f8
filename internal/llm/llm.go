// Package llm adapts the external generative model and embedding services.
// Both are treated as black boxes behind small interfaces so the engine and
// its tests never depend on a concrete provider.
package llm

import "context"

// Generator produces completions from the generative model service.
type Generator interface {
	// Generate returns a complete answer for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStream invokes fn for every incremental fragment as the model
	// produces it and returns the full accumulated answer. Fragments are
	// delivered one at a time; returning an error from fn stops the stream.
	GenerateStream(ctx context.Context, prompt string, fn func(ctx context.Context, fragment string) error) (string, error)
}

// Embedder converts text into fixed-length vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
