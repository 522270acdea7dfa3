package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// OllamaPinger probes a local Ollama instance over its HTTP API without
// consuming model tokens. It satisfies the Pinger interface and is used by
// GET /api/ready when the ollama backend is configured.
type OllamaPinger struct {
	// host is the Ollama base URL (e.g. "http://localhost:11434").
	host string
	// client is the probe HTTP client with a short timeout.
	client *http.Client
}

// NewOllamaPinger constructs an OllamaPinger for the given host.
func NewOllamaPinger(host string) *OllamaPinger {
	return &OllamaPinger{
		host:   host,
		client: &http.Client{Timeout: probeTimeout},
	}
}

// Name returns the backend label used in readiness responses.
func (p *OllamaPinger) Name() string { return "ollama" }

// Ping requests the Ollama tags listing, which answers quickly whether or
// not a model is loaded.
func (p *OllamaPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready when the
// qdrant index backend is configured.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// StorePinger probes the transcript database.
type StorePinger struct {
	// ping is the database ping function.
	ping func(ctx context.Context) error
}

// NewStorePinger wraps a database ping function (e.g. sql.DB.PingContext).
func NewStorePinger(ping func(ctx context.Context) error) *StorePinger {
	return &StorePinger{ping: ping}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return "store" }

// Ping checks the database connection.
func (p *StorePinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
