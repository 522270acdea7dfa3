package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/ECampbell37/ai-tutor-go/internal/budget"
	"github.com/ECampbell37/ai-tutor-go/internal/extract"
	"github.com/ECampbell37/ai-tutor-go/internal/rag"
)

// Config carries the oracles and tuning knobs for a Manager. Extractor,
// Embedder, Generator, and Builder are required; zero tuning values take
// the package defaults.
type Config struct {
	// Extractor turns uploaded bytes into plain text.
	Extractor extract.TextExtractor
	// Embedder produces vectors for chunks and questions.
	Embedder rag.Embedder
	// Generator produces answers from assembled prompts.
	Generator rag.Generator
	// Builder constructs the per-document vector index.
	Builder rag.IndexBuilder

	// ChunkSize and ChunkOverlap are the splitter parameters in runes.
	ChunkSize    int
	ChunkOverlap int

	// TopK is the number of chunks retrieved per question.
	TopK int

	// MaxContextTokens bounds the assembled prompt; dialogue turns are
	// dropped oldest-first to fit.
	MaxContextTokens int
}

// Manager is the entry point for PDF question answering: it resolves users
// to sessions and runs uploads, questions, and clears against them.
type Manager struct {
	extractor        extract.TextExtractor
	embedder         rag.Embedder
	generator        rag.Generator
	builder          rag.IndexBuilder
	chunkSize        int
	chunkOverlap     int
	topK             int
	maxContextTokens int

	registry *Registry
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("session: config is required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("session: extractor is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("session: embedder is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("session: generator is required")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("session: index builder is required")
	}

	m := &Manager{
		extractor:        cfg.Extractor,
		embedder:         cfg.Embedder,
		generator:        cfg.Generator,
		builder:          cfg.Builder,
		chunkSize:        cfg.ChunkSize,
		chunkOverlap:     cfg.ChunkOverlap,
		topK:             cfg.TopK,
		maxContextTokens: cfg.MaxContextTokens,
		registry:         NewRegistry(),
	}
	if m.chunkSize <= 0 {
		m.chunkSize = rag.DefaultChunkSize
	}
	if m.chunkOverlap <= 0 {
		m.chunkOverlap = rag.DefaultChunkOverlap
	}
	if m.chunkOverlap >= m.chunkSize {
		return nil, fmt.Errorf("session: chunk overlap %d must be smaller than chunk size %d", m.chunkOverlap, m.chunkSize)
	}
	if m.topK <= 0 {
		m.topK = DefaultTopK
	}
	if m.maxContextTokens <= 0 {
		m.maxContextTokens = budget.DefaultMaxContextTokens
	}
	return m, nil
}

// Upload indexes a document for user, replacing any previous document and
// resetting the dialogue history. On failure the user's prior state is
// untouched; a session created for a first upload that then fails is
// removed again.
func (m *Manager) Upload(ctx context.Context, user string, data []byte) error {
	if strings.TrimSpace(user) == "" {
		return fmt.Errorf("%w: user is required", rag.ErrInvalidArgument)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: document is empty", rag.ErrInvalidArgument)
	}

	for {
		s := m.registry.ensure(user, m)
		s.mu.Lock()
		if s.dead {
			// A concurrent failed upload rolled this session back while we
			// waited for its lock. Start over with a fresh registry entry.
			s.mu.Unlock()
			continue
		}
		err := s.uploadLocked(ctx, data)
		if err != nil {
			m.registry.evictIfEmpty(user, s)
		}
		s.mu.Unlock()
		return err
	}
}

// Ask answers a question against the user's indexed document. It returns
// ErrNotFound when the user has no session and ErrNoDocument when the
// session holds no document.
func (m *Manager) Ask(ctx context.Context, user, question string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", fmt.Errorf("%w: user is required", rag.ErrInvalidArgument)
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is required", rag.ErrInvalidArgument)
	}

	s, err := m.registry.Get(user)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.askLocked(ctx, question)
}

// Clear discards the user's document and history and removes the session.
// Clearing a user without a session is a no-op.
func (m *Manager) Clear(ctx context.Context, user string) error {
	if strings.TrimSpace(user) == "" {
		return fmt.Errorf("%w: user is required", rag.ErrInvalidArgument)
	}

	s, err := m.registry.Get(user)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	s.clearLocked(ctx)
	s.mu.Unlock()
	m.registry.Evict(user)
	return nil
}

// Session returns the user's live session, or ErrNotFound.
func (m *Manager) Session(user string) (*Session, error) {
	return m.registry.Get(user)
}

// Sessions reports the number of live sessions, for gauges.
func (m *Manager) Sessions() int {
	return m.registry.Len()
}
