// Package rag provides the building blocks of the PDF question-answering
// pipeline: document chunking, the embedding and generation oracle ports,
// and the per-document vector index used for similarity retrieval.
// Concrete index backends (in-memory, Qdrant) satisfy the Index interface
// so the session layer never depends on a specific store.
package rag

import (
	"context"
	"errors"
)

// ErrInvalidArgument reports a caller contract violation (bad chunking
// parameters, non-positive query k). It is never retried.
var ErrInvalidArgument = errors.New("rag: invalid argument")

// Chunk is a contiguous slice of a document's extracted text.
type Chunk struct {
	// Text is the chunk content. Never empty for chunks produced by SplitText.
	Text string

	// Offset is the rune offset of the chunk start within the extracted
	// document text, sufficient to locate it back in the original.
	Offset int

	// Seq is the chunk's order among chunks of the same document, from 0.
	Seq int
}

// Scored pairs a chunk with the similarity score assigned at query time.
type Scored struct {
	// Chunk is the retrieved chunk.
	Chunk Chunk

	// Score is the cosine similarity against the query vector.
	Score float32
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator is the generation oracle: given a fully assembled prompt it
// produces free text. Failures are propagated to the caller unchanged;
// no retries happen at this layer.
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Index is a vector index over the chunks of exactly one document.
// An Index is immutable after construction and is discarded as a whole
// when the owning session replaces or clears its document.
type Index interface {
	// Query returns the min(k, Len) chunks most similar to vec, sorted by
	// descending cosine similarity. Chunks with equal similarity are ordered
	// by ascending Seq. k <= 0 is an ErrInvalidArgument violation.
	Query(ctx context.Context, vec []float32, k int) ([]Scored, error)

	// Len returns the number of chunks in the index.
	Len() int

	// Close releases any resources held by the index.
	Close(ctx context.Context) error
}

// IndexBuilder constructs an Index from a document's chunks. Every chunk is
// embedded via the given Embedder; any embedding failure aborts the build
// and no partial index is ever returned.
type IndexBuilder interface {
	Build(ctx context.Context, chunks []Chunk, embedder Embedder) (Index, error)
}
