package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// MemoryIndex is the default Index backend: a brute-force cosine-similarity
// index held entirely in process memory. A document upload produces at most
// a few hundred chunks, so a linear scan per query is both simpler and
// faster than maintaining any index structure.
//
// The index is immutable after BuildMemoryIndex returns and therefore safe
// for concurrent queries.
type MemoryIndex struct {
	// chunks holds the indexed chunks in sequence order.
	chunks []Chunk
	// vectors is parallel to chunks: vectors[i] embeds chunks[i].
	vectors [][]float32
}

// MemoryBuilder satisfies IndexBuilder by constructing MemoryIndex values.
type MemoryBuilder struct{}

// Build embeds all chunks in a single batched oracle call and returns the
// populated index. Any embedding failure aborts the build; a partial index
// is never returned.
func (MemoryBuilder) Build(ctx context.Context, chunks []Chunk, embedder Embedder) (Index, error) {
	return BuildMemoryIndex(ctx, chunks, embedder)
}

// BuildMemoryIndex embeds every chunk and returns the populated MemoryIndex.
func BuildMemoryIndex(ctx context.Context, chunks []Chunk, embedder Embedder) (*MemoryIndex, error) {
	if len(chunks) == 0 {
		return &MemoryIndex{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding chunks failed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("rag: expected %d embeddings, got %d", len(chunks), len(vectors))
	}

	idx := &MemoryIndex{
		chunks:  make([]Chunk, len(chunks)),
		vectors: vectors,
	}
	copy(idx.chunks, chunks)
	return idx, nil
}

// Query returns the min(k, Len) most similar chunks by descending cosine
// similarity. Equal scores are ordered by ascending chunk sequence.
func (ix *MemoryIndex) Query(_ context.Context, vec []float32, k int) ([]Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}

	results := make([]Scored, len(ix.chunks))
	for i := range ix.chunks {
		results[i] = Scored{
			Chunk: ix.chunks[i],
			Score: cosine(ix.vectors[i], vec),
		}
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Chunk.Seq < results[b].Chunk.Seq
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Len returns the number of indexed chunks.
func (ix *MemoryIndex) Len() int { return len(ix.chunks) }

// Close is a no-op for the in-memory backend.
func (ix *MemoryIndex) Close(context.Context) error { return nil }

// cosine returns the cosine similarity of a and b, or 0 when either vector
// has zero magnitude or the dimensions disagree.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
