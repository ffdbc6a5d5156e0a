// Package embedder provides clients that turn node labels into raw
// embedding vectors, upstream of the geometric transformer. Supported
// providers are the local EmbedEverything runtime and any
// OpenAI-compatible embedding API.
package embedder

import "context"

// Client generates embedding vectors for texts.
type Client interface {
	// Embed generates embeddings for the given texts, one vector per
	// input, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length this client produces, or 0 if
	// unknown until the first call.
	Dimensions() int
}

// Config holds common embedder settings.
type Config struct {
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}
