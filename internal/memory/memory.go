// Package memory keeps per-user conversation memory for the tutor modes.
// Instead of replaying full transcripts, a session's history is folded into
// a running summary by the generation model itself, so long conversations
// stay within the model's context window.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ECampbell37/ai-tutor-go/internal/rag"
)

// summaryPrompt folds new exchanges into the previous running summary.
const summaryPrompt = `Progressively summarize the lines of conversation provided, adding onto the previous summary and returning a new summary. Keep facts the student has shared and topics already covered.

Current summary:
%s

New lines of conversation:
%s

New summary:`

// SummaryMemory is the running summary of one user's conversation in one
// tutor mode. Safe for concurrent use.
type SummaryMemory struct {
	mu      sync.Mutex
	summary string
	gen     rag.Generator
}

// NewSummaryMemory returns an empty memory backed by gen.
func NewSummaryMemory(gen rag.Generator) *SummaryMemory {
	return &SummaryMemory{gen: gen}
}

// Summary returns the current running summary, empty for a fresh memory.
func (m *SummaryMemory) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

// Record folds one user/assistant exchange into the summary. On failure the
// previous summary is kept.
func (m *SummaryMemory) Record(ctx context.Context, userMsg, aiMsg string) error {
	lines := fmt.Sprintf("Human: %s\nAI: %s", userMsg, aiMsg)

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.summary
	if prev == "" {
		prev = "(no summary yet)"
	}
	next, err := m.gen.Generate(ctx, fmt.Sprintf(summaryPrompt, prev, lines))
	if err != nil {
		return fmt.Errorf("memory: summarization failed: %w", err)
	}
	m.summary = strings.TrimSpace(next)
	return nil
}

// Reset discards the summary.
func (m *SummaryMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = ""
}

type key struct {
	user string
	mode string
}

// Memories hands out one SummaryMemory per (user, mode) pair, creating them
// lazily. Memories are process-local and never persisted.
type Memories struct {
	mu  sync.Mutex
	all map[key]*SummaryMemory
	gen rag.Generator
}

// NewMemories returns an empty registry backed by gen.
func NewMemories(gen rag.Generator) *Memories {
	return &Memories{all: make(map[key]*SummaryMemory), gen: gen}
}

// For returns the memory for user in mode, creating it if absent.
func (r *Memories) For(user, mode string) *SummaryMemory {
	k := key{user: user, mode: mode}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.all[k]
	if !ok {
		m = NewSummaryMemory(r.gen)
		r.all[k] = m
	}
	return m
}

// Reset drops the memory for user in mode, if any.
func (r *Memories) Reset(user, mode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.all, key{user: user, mode: mode})
}

// Len reports the number of live memories, for gauges.
func (r *Memories) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.all)
}
