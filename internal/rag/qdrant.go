package rag

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant instance used as the
// session index backend.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string
	// Port is the Qdrant gRPC port (default: 6334).
	Port int
	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string
	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantBuilder satisfies IndexBuilder using a shared Qdrant connection.
// Each built index owns a dedicated collection, created on build and dropped
// on Close, mirroring the one-document-per-index lifecycle of the in-memory
// backend.
type QdrantBuilder struct {
	// client is the shared Qdrant gRPC client.
	client *qdrant.Client
}

// NewQdrantBuilder connects to Qdrant and returns a ready-to-use builder.
func NewQdrantBuilder(cfg *QdrantConfig) (*QdrantBuilder, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}
	return &QdrantBuilder{client: client}, nil
}

// Client exposes the underlying connection for readiness probes.
func (b *QdrantBuilder) Client() *qdrant.Client { return b.client }

// Close closes the shared gRPC connection.
func (b *QdrantBuilder) Close() error { return b.client.Close() }

// Build embeds every chunk, creates a fresh collection sized to the
// embedding dimension, and upserts all points. Any failure tears down the
// partially created collection so a partial index is never exposed.
func (b *QdrantBuilder) Build(ctx context.Context, chunks []Chunk, embedder Embedder) (Index, error) {
	if len(chunks) == 0 {
		return &QdrantIndex{client: b.client, size: 0}, nil
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

	collection := "tutor_doc_" + uuid.NewString()
	err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(len(vectors[0])),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create collection %q: %w", collection, err)
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":   c.Text,
				"offset": int64(c.Offset),
				"seq":    int64(c.Seq),
			}),
		})
	}

	if _, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	}); err != nil {
		_ = b.client.DeleteCollection(ctx, collection)
		return nil, fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return &QdrantIndex{client: b.client, collection: collection, size: len(chunks)}, nil
}

// QdrantIndex is an Index backed by a dedicated Qdrant collection holding
// one document's chunks.
type QdrantIndex struct {
	// client is the shared Qdrant gRPC client.
	client *qdrant.Client
	// collection is the per-document collection name. Empty for an index
	// built over zero chunks.
	collection string
	// size is the number of chunks stored in the collection.
	size int
}

// Query performs a cosine similarity search over the document's collection.
func (ix *QdrantIndex) Query(ctx context.Context, vec []float32, k int) ([]Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	if ix.size == 0 {
		return nil, nil
	}

	limit := uint64(k)
	points, err := ix.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ix.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	results := make([]Scored, 0, len(points))
	for _, p := range points {
		s := Scored{Score: p.Score}
		if payload := p.Payload; payload != nil {
			if v, ok := payload["text"]; ok {
				s.Chunk.Text = v.GetStringValue()
			}
			if v, ok := payload["offset"]; ok {
				s.Chunk.Offset = int(v.GetIntegerValue())
			}
			if v, ok := payload["seq"]; ok {
				s.Chunk.Seq = int(v.GetIntegerValue())
			}
		}
		results = append(results, s)
	}

	// Qdrant orders by score but leaves equal-score order unspecified;
	// re-sort so ties resolve to the earlier chunk.
	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Chunk.Seq < results[b].Chunk.Seq
	})

	return results, nil
}

// Len returns the number of chunks stored for this document.
func (ix *QdrantIndex) Len() int { return ix.size }

// Close drops the per-document collection.
func (ix *QdrantIndex) Close(ctx context.Context) error {
	if ix.collection == "" {
		return nil
	}
	if err := ix.client.DeleteCollection(ctx, ix.collection); err != nil {
		return fmt.Errorf("qdrant: failed to drop collection %q: %w", ix.collection, err)
	}
	return nil
}
