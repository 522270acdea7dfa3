// Package session implements per-user PDF retrieval sessions: one uploaded
// document per user, indexed for similarity search, with a running dialogue
// history grounding follow-up questions. Sessions are held in a process-wide
// registry and live only as long as the process — nothing is persisted.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ECampbell37/ai-tutor-go/internal/budget"
	"github.com/ECampbell37/ai-tutor-go/internal/logging"
	"github.com/ECampbell37/ai-tutor-go/internal/rag"
)

var (
	// ErrNoDocument is returned by Ask when the session has no indexed
	// document. Asking never implicitly creates or fills a session.
	ErrNoDocument = errors.New("session: no document uploaded")

	// ErrNotFound is returned by registry lookups for users without a session.
	ErrNotFound = errors.New("session: no session for this user")

	// ErrDocumentProcessing marks extraction, chunking, or embedding failures
	// during upload. The session is left exactly as it was; the caller must
	// re-upload.
	ErrDocumentProcessing = errors.New("session: document processing failed")
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// Turn is one completed question/answer exchange, in call order.
type Turn struct {
	// Question is the user's question verbatim.
	Question string
	// Answer is the generated answer verbatim.
	Answer string
}

// Session holds the retrieval state for a single user: the vector index of
// the currently uploaded document and the dialogue history. All operations
// on one session are serialized by its mutex, held across oracle calls, so
// an upload can never replace the index underneath an in-flight question.
type Session struct {
	// owner is the user identifier this session belongs to.
	owner string

	// mu serializes upload, ask, and clear for this session.
	mu sync.Mutex

	// index is the vector index of the uploaded document. nil means the
	// session is empty (no document, or cleared).
	index rag.Index

	// history is the ordered dialogue, oldest-first. Reset on upload,
	// discarded on clear, appended exactly once per successful ask.
	history []Turn

	// dead marks a session whose registry entry was rolled back after a
	// failed first upload. An uploader that wakes up holding a dead session
	// must retry against a fresh one instead of filling the orphan.
	dead bool

	// mgr supplies the shared oracles and configuration.
	mgr *Manager
}

// Ready reports whether the session has an indexed document.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index != nil
}

// History returns a copy of the dialogue history, oldest-first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// uploadLocked ingests a document: extract → chunk → embed → index. On any
// failure the session keeps its prior index and history untouched. On
// success the fresh index replaces the old one and the history is reset.
// Callers must hold s.mu.
func (s *Session) uploadLocked(ctx context.Context, data []byte) error {
	text, err := s.mgr.extractor.Extract(ctx, data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDocumentProcessing, err)
	}

	chunks, err := rag.SplitText(text, s.mgr.chunkSize, s.mgr.chunkOverlap)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDocumentProcessing, err)
	}

	index, err := s.mgr.builder.Build(ctx, chunks, s.mgr.embedder)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDocumentProcessing, err)
	}

	old := s.index
	s.index = index
	s.history = nil

	if old != nil {
		if err := old.Close(ctx); err != nil {
			logging.FromContext(ctx).Warn("session: failed to release replaced index",
				slog.String("user", s.owner),
				slog.Any("error", err),
			)
		}
	}

	logging.FromContext(ctx).Info("session: document indexed",
		slog.String("user", s.owner),
		slog.Int("chunks", index.Len()),
	)
	return nil
}

// askLocked answers a question against the indexed document: embed the
// question, retrieve the most similar chunks, assemble the grounded prompt
// with the dialogue history, and generate. Exactly one turn is appended on
// success; nothing is appended on failure. Callers must hold s.mu.
func (s *Session) askLocked(ctx context.Context, question string) (string, error) {
	if s.index == nil {
		return "", ErrNoDocument
	}

	vectors, err := s.mgr.embedder.Embed(ctx, []string{question})
	if err != nil {
		return "", fmt.Errorf("session: embedding question failed: %w", err)
	}
	if len(vectors) == 0 {
		return "", fmt.Errorf("session: embedder returned no vector for question")
	}

	results, err := s.index.Query(ctx, vectors[0], s.mgr.topK)
	if err != nil {
		return "", fmt.Errorf("session: retrieval failed: %w", err)
	}

	prompt := s.buildPrompt(ctx, results, question)

	answer, err := s.mgr.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("session: generation failed: %w", err)
	}

	s.history = append(s.history, Turn{Question: question, Answer: answer})
	return answer, nil
}

// clearLocked discards the index and history irrecoverably.
// Callers must hold s.mu.
func (s *Session) clearLocked(ctx context.Context) {
	if s.index != nil {
		if err := s.index.Close(ctx); err != nil {
			logging.FromContext(ctx).Warn("session: failed to release index on clear",
				slog.String("user", s.owner),
				slog.Any("error", err),
			)
		}
	}
	s.index = nil
	s.history = nil
}

// answerInstructions is the fixed preamble of every grounded answer prompt.
const answerInstructions = `You are a helpful tutor answering questions about a document the user has uploaded. ` +
	`Ground your answer in the document excerpts below. ` +
	`If the excerpts do not contain the answer, say that you don't know rather than guessing.`

// buildPrompt assembles the generation prompt: instructions, retrieved
// excerpts in descending similarity order, the dialogue history oldest-first
// (trimmed oldest-first to the context budget), and the question.
func (s *Session) buildPrompt(ctx context.Context, results []rag.Scored, question string) string {
	var fixed strings.Builder
	fixed.WriteString(answerInstructions)
	fixed.WriteString("\n\n## Document Excerpts\n\n")
	for i, r := range results {
		fmt.Fprintf(&fixed, "### Excerpt %d\n%s\n\n", i+1, r.Chunk.Text)
	}

	turns := make([]string, len(s.history))
	for i, t := range s.history {
		turns[i] = fmt.Sprintf("User: %s\nAI: %s", t.Question, t.Answer)
	}

	before := len(turns)
	turns = budget.Trim(fixed.String()+question, turns, s.mgr.maxContextTokens)
	if dropped := before - len(turns); dropped > 0 {
		logging.FromContext(ctx).Warn("session: dropped dialogue turns to fit context window",
			slog.String("user", s.owner),
			slog.Int("dropped", dropped),
			slog.Int("retained", len(turns)),
		)
	}

	var sb strings.Builder
	sb.WriteString(fixed.String())
	if len(turns) > 0 {
		sb.WriteString("## Conversation So Far\n\n")
		for _, t := range turns {
			sb.WriteString(t)
			sb.WriteString("\n\n")
		}
	}
	fmt.Fprintf(&sb, "## Question\n\nUser: %s\nAI:", question)
	return sb.String()
}
