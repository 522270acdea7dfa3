package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ECampbell37/ai-tutor-go/internal/rag"
)

// scriptedGenerator numbers its outputs and keeps every prompt, covering
// both direct generation and the summary folds the memory layer runs.
type scriptedGenerator struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.prompts = append(g.prompts, prompt)
	return fmt.Sprintf("out %d", len(g.prompts)), nil
}

func (g *scriptedGenerator) lastPrompt(t *testing.T) string {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		t.Fatal("generator was never called")
	}
	return g.prompts[len(g.prompts)-1]
}

type recordedLine struct {
	user, mode, role, content string
}

type fakeTranscript struct {
	mu    sync.Mutex
	lines []recordedLine
	err   error
}

func (f *fakeTranscript) Append(_ context.Context, user, mode, role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.lines = append(f.lines, recordedLine{user, mode, role, content})
	return nil
}

func newTestService(t *testing.T, gen rag.Generator, tr Transcript) *Service {
	t.Helper()
	s, err := NewService(gen, tr)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	for _, valid := range []string{"casual", "kids", "professional", "free"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "Casual", "expert", "pdf"} {
		if _, err := ParseMode(invalid); !errors.Is(err, ErrUnsupportedMode) {
			t.Errorf("ParseMode(%q): got %v, want ErrUnsupportedMode", invalid, err)
		}
	}
}

func TestService_IntroSeedsConversation(t *testing.T) {
	t.Parallel()
	gen := &scriptedGenerator{}
	s := newTestService(t, gen, nil)
	ctx := context.Background()

	intro, err := s.Intro(ctx, "alice", ModeCasual, "Astronomy")
	if err != nil {
		t.Fatalf("Intro: %v", err)
	}
	if intro != "out 1" {
		t.Errorf("intro = %q, want %q", intro, "out 1")
	}

	// The respond prompt must carry the folded introduction as history.
	if _, err := s.Respond(ctx, "alice", ModeCasual, "Astronomy", "tell me about Mars"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	gen.mu.Lock()
	respondPrompt := gen.prompts[2]
	gen.mu.Unlock()
	if !strings.Contains(respondPrompt, "out 2") {
		t.Errorf("respond prompt is missing the conversation summary:\n%s", respondPrompt)
	}
	if !strings.Contains(respondPrompt, "tell me about Mars") {
		t.Errorf("respond prompt is missing the user message:\n%s", respondPrompt)
	}
	if !strings.Contains(respondPrompt, "Astronomy") {
		t.Errorf("respond prompt is missing the subject:\n%s", respondPrompt)
	}
}

func TestService_DefaultSubject(t *testing.T) {
	t.Parallel()
	gen := &scriptedGenerator{}
	s := newTestService(t, gen, nil)

	if _, err := s.Intro(context.Background(), "alice", ModeKids, "  "); err != nil {
		t.Fatalf("Intro: %v", err)
	}
	if prompt := gen.lastPrompt(t); !strings.Contains(prompt, DefaultSubject) {
		t.Errorf("blank subject did not fall back to %q:\n%s", DefaultSubject, prompt)
	}
}

func TestService_ModeCapabilities(t *testing.T) {
	t.Parallel()
	s := newTestService(t, &scriptedGenerator{}, nil)
	ctx := context.Background()

	if _, err := s.Intro(ctx, "alice", ModeProfessional, "Calculus"); !errors.Is(err, ErrUnsupportedMode) {
		t.Errorf("professional Intro: got %v, want ErrUnsupportedMode", err)
	}
	if _, err := s.StartQuiz(ctx, "alice", ModeFree, ""); !errors.Is(err, ErrUnsupportedMode) {
		t.Errorf("free StartQuiz: got %v, want ErrUnsupportedMode", err)
	}
	if _, err := s.Respond(ctx, "alice", Mode("expert"), "", "hi"); !errors.Is(err, ErrUnsupportedMode) {
		t.Errorf("unknown mode Respond: got %v, want ErrUnsupportedMode", err)
	}
	if _, err := s.Respond(ctx, "alice", ModeFree, "", "hello there"); err != nil {
		t.Errorf("free Respond: %v", err)
	}
	if _, err := s.Respond(ctx, "alice", ModeProfessional, "", "explain big-O"); err != nil {
		t.Errorf("professional Respond: %v", err)
	}
}

func TestService_QuizCycle(t *testing.T) {
	t.Parallel()
	gen := &scriptedGenerator{}
	s := newTestService(t, gen, nil)
	ctx := context.Background()

	if _, err := s.SubmitQuiz(ctx, "alice", ModeCasual, "Astronomy", make([]string, QuizQuestions)); !errors.Is(err, ErrNoQuiz) {
		t.Fatalf("SubmitQuiz before start: got %v, want ErrNoQuiz", err)
	}
	if _, err := s.Continue(ctx, "alice", ModeCasual, "Astronomy"); !errors.Is(err, ErrNoQuiz) {
		t.Fatalf("Continue before grading: got %v, want ErrNoQuiz", err)
	}

	quiz, err := s.StartQuiz(ctx, "alice", ModeCasual, "Astronomy")
	if err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}

	if _, err := s.SubmitQuiz(ctx, "alice", ModeCasual, "Astronomy", []string{"a", "b"}); !errors.Is(err, rag.ErrInvalidArgument) {
		t.Fatalf("SubmitQuiz with 2 answers: got %v, want ErrInvalidArgument", err)
	}
	// Started but ungraded: the continuation still needs a grade.
	if _, err := s.Continue(ctx, "alice", ModeCasual, "Astronomy"); !errors.Is(err, ErrNoQuiz) {
		t.Fatalf("Continue before submit: got %v, want ErrNoQuiz", err)
	}

	answers := []string{"a", "b", "c", "d", "a"}
	result, err := s.SubmitQuiz(ctx, "alice", ModeCasual, "Astronomy", answers)
	if err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}
	if result.Feedback == "" || result.Grade == "" {
		t.Fatalf("incomplete quiz result: %+v", result)
	}

	// Feedback prompt carries the quiz and the numbered answers; the grade
	// prompt carries the feedback.
	gen.mu.Lock()
	feedbackPrompt := gen.prompts[1]
	gradePrompt := gen.prompts[2]
	gen.mu.Unlock()
	if !strings.Contains(feedbackPrompt, quiz) {
		t.Errorf("feedback prompt is missing the quiz:\n%s", feedbackPrompt)
	}
	if !strings.Contains(feedbackPrompt, "Question 3: c") {
		t.Errorf("feedback prompt is missing numbered answers:\n%s", feedbackPrompt)
	}
	if !strings.Contains(gradePrompt, result.Feedback) {
		t.Errorf("grade prompt is missing the feedback:\n%s", gradePrompt)
	}

	continuation, err := s.Continue(ctx, "alice", ModeCasual, "Astronomy")
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if continuation == "" {
		t.Fatal("empty continuation")
	}
	gen.mu.Lock()
	continuePrompt := gen.prompts[3]
	gen.mu.Unlock()
	if !strings.Contains(continuePrompt, result.Grade) {
		t.Errorf("continuation prompt is missing the grade:\n%s", continuePrompt)
	}
	if !strings.Contains(continuePrompt, result.Feedback) {
		t.Errorf("continuation prompt is missing the feedback:\n%s", continuePrompt)
	}
}

func TestService_QuizStateIsPerUserAndMode(t *testing.T) {
	t.Parallel()
	s := newTestService(t, &scriptedGenerator{}, nil)
	ctx := context.Background()
	answers := []string{"a", "b", "c", "d", "a"}

	if _, err := s.StartQuiz(ctx, "alice", ModeCasual, "Astronomy"); err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	if _, err := s.SubmitQuiz(ctx, "bob", ModeCasual, "Astronomy", answers); !errors.Is(err, ErrNoQuiz) {
		t.Errorf("bob submitting alice's quiz: got %v, want ErrNoQuiz", err)
	}
	if _, err := s.SubmitQuiz(ctx, "alice", ModeKids, "Astronomy", answers); !errors.Is(err, ErrNoQuiz) {
		t.Errorf("submitting across modes: got %v, want ErrNoQuiz", err)
	}
	if _, err := s.SubmitQuiz(ctx, "alice", ModeCasual, "Astronomy", answers); err != nil {
		t.Errorf("owner submitting own quiz: %v", err)
	}
}

func TestService_ConcurrentSubmitAndContinue(t *testing.T) {
	t.Parallel()
	s := newTestService(t, &scriptedGenerator{}, nil)
	ctx := context.Background()
	answers := []string{"a", "b", "c", "d", "a"}

	if _, err := s.StartQuiz(ctx, "alice", ModeCasual, "Astronomy"); err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	// Grade once so Continue has a result to read while re-submissions
	// overwrite the same quiz state.
	if _, err := s.SubmitQuiz(ctx, "alice", ModeCasual, "Astronomy", answers); err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.SubmitQuiz(ctx, "alice", ModeCasual, "Astronomy", answers); err != nil {
				t.Errorf("SubmitQuiz: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := s.Continue(ctx, "alice", ModeCasual, "Astronomy"); err != nil {
				t.Errorf("Continue: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestService_ResetDropsMemoryAndQuiz(t *testing.T) {
	t.Parallel()
	s := newTestService(t, &scriptedGenerator{}, nil)
	ctx := context.Background()

	if _, err := s.StartQuiz(ctx, "alice", ModeCasual, "Astronomy"); err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	if err := s.Reset(ctx, "alice", ModeCasual); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := s.SubmitQuiz(ctx, "alice", ModeCasual, "Astronomy", make([]string, QuizQuestions)); !errors.Is(err, ErrNoQuiz) {
		t.Fatalf("SubmitQuiz after reset: got %v, want ErrNoQuiz", err)
	}
	if err := s.Reset(ctx, "alice", Mode("bogus")); !errors.Is(err, ErrUnsupportedMode) {
		t.Fatalf("Reset with bogus mode: got %v, want ErrUnsupportedMode", err)
	}
}

func TestService_TranscriptRecording(t *testing.T) {
	t.Parallel()
	tr := &fakeTranscript{}
	s := newTestService(t, &scriptedGenerator{}, tr)

	if _, err := s.Respond(context.Background(), "alice", ModeFree, "", "hello"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.lines) != 2 {
		t.Fatalf("transcript lines = %d, want 2", len(tr.lines))
	}
	if tr.lines[0].role != "user" || tr.lines[0].content != "hello" {
		t.Errorf("first line = %+v, want the user message", tr.lines[0])
	}
	if tr.lines[1].role != "assistant" {
		t.Errorf("second line = %+v, want the assistant reply", tr.lines[1])
	}
	if tr.lines[0].mode != "free" {
		t.Errorf("mode = %q, want %q", tr.lines[0].mode, "free")
	}
}

func TestService_TranscriptFailureIsNonFatal(t *testing.T) {
	t.Parallel()
	s := newTestService(t, &scriptedGenerator{}, &fakeTranscript{err: errors.New("disk full")})

	if _, err := s.Respond(context.Background(), "alice", ModeFree, "", "hello"); err != nil {
		t.Fatalf("Respond with failing transcript: %v", err)
	}
}

func TestService_GeneratorFailurePropagates(t *testing.T) {
	t.Parallel()
	s := newTestService(t, &scriptedGenerator{err: errors.New("model down")}, nil)
	ctx := context.Background()

	if _, err := s.Intro(ctx, "alice", ModeCasual, "Astronomy"); err == nil {
		t.Error("Intro with failing generator: expected error")
	}
	if _, err := s.Respond(ctx, "alice", ModeFree, "", "hi"); err == nil {
		t.Error("Respond with failing generator: expected error")
	}
	if _, err := s.StartQuiz(ctx, "alice", ModeKids, ""); err == nil {
		t.Error("StartQuiz with failing generator: expected error")
	}
}
