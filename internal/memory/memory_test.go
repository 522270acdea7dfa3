package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// summarizer returns its whole prompt as the "summary", so tests can see
// exactly what the memory asked the model to fold in.
type summarizer struct {
	err error
}

func (s summarizer) Generate(_ context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "SUMMARY<" + prompt + ">", nil
}

func TestSummaryMemory_RecordFoldsExchange(t *testing.T) {
	t.Parallel()
	m := NewSummaryMemory(summarizer{})

	if got := m.Summary(); got != "" {
		t.Fatalf("fresh summary = %q, want empty", got)
	}

	if err := m.Record(context.Background(), "what is gravity?", "a force of attraction"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got := m.Summary()
	if !strings.Contains(got, "Human: what is gravity?") {
		t.Errorf("summary prompt is missing the user line: %q", got)
	}
	if !strings.Contains(got, "AI: a force of attraction") {
		t.Errorf("summary prompt is missing the assistant line: %q", got)
	}
	if !strings.Contains(got, "(no summary yet)") {
		t.Errorf("first fold did not use the empty-summary placeholder: %q", got)
	}
}

func TestSummaryMemory_RecordChainsSummaries(t *testing.T) {
	t.Parallel()
	m := NewSummaryMemory(summarizer{})
	ctx := context.Background()

	if err := m.Record(ctx, "first question", "first answer"); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	first := m.Summary()
	if err := m.Record(ctx, "second question", "second answer"); err != nil {
		t.Fatalf("second Record: %v", err)
	}
	second := m.Summary()
	if !strings.Contains(second, first) {
		t.Errorf("second fold did not receive the first summary:\n%q", second)
	}
}

func TestSummaryMemory_FailedRecordKeepsSummary(t *testing.T) {
	t.Parallel()
	m := NewSummaryMemory(summarizer{})
	ctx := context.Background()

	if err := m.Record(ctx, "q", "a"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	before := m.Summary()

	m.gen = summarizer{err: errors.New("model down")}
	if err := m.Record(ctx, "q2", "a2"); err == nil {
		t.Fatal("Record with failing generator: expected error")
	}
	if got := m.Summary(); got != before {
		t.Fatalf("summary changed after failed fold: %q", got)
	}
}

func TestSummaryMemory_Reset(t *testing.T) {
	t.Parallel()
	m := NewSummaryMemory(summarizer{})

	if err := m.Record(context.Background(), "q", "a"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	m.Reset()
	if got := m.Summary(); got != "" {
		t.Fatalf("summary after reset = %q, want empty", got)
	}
}

func TestMemories_KeyedByUserAndMode(t *testing.T) {
	t.Parallel()
	r := NewMemories(summarizer{})

	a := r.For("alice", "casual")
	if got := r.For("alice", "casual"); got != a {
		t.Fatal("same user and mode returned a different memory")
	}
	if got := r.For("alice", "professional"); got == a {
		t.Fatal("different mode shares a memory")
	}
	if got := r.For("bob", "casual"); got == a {
		t.Fatal("different user shares a memory")
	}
	if got := r.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	r.Reset("alice", "casual")
	if got := r.For("alice", "casual"); got == a {
		t.Fatal("Reset did not drop the memory")
	}
}
