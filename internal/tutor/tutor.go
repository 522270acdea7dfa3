// Package tutor implements the conversational tutoring modes: subject
// lessons for casual and kids audiences with a quiz cycle, a professional
// mode for technical material, and open-ended free chat. Each user holds
// their own conversation memory and quiz state per mode.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"

	"github.com/ECampbell37/ai-tutor-go/internal/logging"
	"github.com/ECampbell37/ai-tutor-go/internal/memory"
	"github.com/ECampbell37/ai-tutor-go/internal/rag"
)

// Mode selects a tutoring persona and prompt family.
type Mode string

const (
	ModeCasual       Mode = "casual"
	ModeKids         Mode = "kids"
	ModeProfessional Mode = "professional"
	ModeFree         Mode = "free"
)

// DefaultSubject is used when a lesson request names no subject.
const DefaultSubject = "Astronomy"

// QuizQuestions is the fixed number of questions per generated quiz.
const QuizQuestions = 5

var (
	// ErrUnsupportedMode is returned for unknown modes and for operations
	// a mode does not offer (quizzes outside casual and kids).
	ErrUnsupportedMode = errors.New("tutor: unsupported mode")

	// ErrNoQuiz is returned when answers are submitted before a quiz was
	// started, or a continuation is requested before answers were graded.
	ErrNoQuiz = errors.New("tutor: no quiz in progress")
)

// ParseMode validates a mode string from the API surface.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCasual, ModeKids, ModeProfessional, ModeFree:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
}

func promptsFor(mode Mode) (promptSet, error) {
	switch mode {
	case ModeCasual:
		return casualPrompts, nil
	case ModeKids:
		return kidsPrompts, nil
	case ModeProfessional:
		return professionalPrompts, nil
	case ModeFree:
		return freePrompts, nil
	}
	return promptSet{}, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
}

// Transcript persists conversation lines. Failures are logged, never
// surfaced; losing a transcript line must not break a lesson.
type Transcript interface {
	Append(ctx context.Context, user, mode, role, content string) error
}

// QuizResult is the outcome of a graded quiz submission.
type QuizResult struct {
	Feedback string `json:"feedback"`
	Grade    string `json:"grade"`
}

// quizState tracks one user's quiz cycle in one mode: the generated quiz,
// then after submission the feedback and grade the continuation builds on.
type quizState struct {
	quiz     string
	feedback string
	grade    string
}

type quizKey struct {
	user string
	mode Mode
}

// Service runs the tutoring modes against a generation model. Conversation
// memory and quiz state are per user and mode; the transcript store is
// optional.
type Service struct {
	gen        rag.Generator
	memories   *memory.Memories
	transcript Transcript

	mu      sync.Mutex
	quizzes map[quizKey]*quizState
}

// NewService returns a Service backed by gen. transcript may be nil.
func NewService(gen rag.Generator, transcript Transcript) (*Service, error) {
	if gen == nil {
		return nil, fmt.Errorf("tutor: generator is required")
	}
	return &Service{
		gen:        gen,
		memories:   memory.NewMemories(gen),
		transcript: transcript,
		quizzes:    make(map[quizKey]*quizState),
	}, nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("tutor: rendering %s prompt: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}

func (s *Service) record(ctx context.Context, user string, mode Mode, role, content string) {
	if s.transcript == nil {
		return
	}
	if err := s.transcript.Append(ctx, user, string(mode), role, content); err != nil {
		logging.FromContext(ctx).Warn("tutor: failed to persist transcript line",
			slog.String("user", user),
			slog.String("mode", string(mode)),
			slog.Any("error", err),
		)
	}
}

func normalizeSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return DefaultSubject
	}
	return subject
}

// Intro opens a lesson: the tutor welcomes the user to the subject and the
// opening is folded into the conversation memory. Only casual and kids
// lessons have scripted introductions.
func (s *Service) Intro(ctx context.Context, user string, mode Mode, subject string) (string, error) {
	prompts, err := promptsFor(mode)
	if err != nil {
		return "", err
	}
	if prompts.intro == nil {
		return "", fmt.Errorf("%w: %q has no lesson introduction", ErrUnsupportedMode, mode)
	}
	subject = normalizeSubject(subject)

	prompt, err := render(prompts.intro, introData{Subject: subject})
	if err != nil {
		return "", err
	}
	intro, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("tutor: intro generation failed: %w", err)
	}

	if err := s.memories.For(user, string(mode)).Record(ctx, "", intro); err != nil {
		logging.FromContext(ctx).Warn("tutor: failed to memorize intro",
			slog.String("user", user), slog.Any("error", err))
	}
	s.record(ctx, user, mode, "assistant", intro)
	return intro, nil
}

// Respond answers one user message in the given mode, carrying the user's
// running conversation summary into the prompt and folding the exchange
// back into it afterwards.
func (s *Service) Respond(ctx context.Context, user string, mode Mode, subject, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is required", rag.ErrInvalidArgument)
	}
	prompts, err := promptsFor(mode)
	if err != nil {
		return "", err
	}
	subject = normalizeSubject(subject)

	mem := s.memories.For(user, string(mode))
	prompt, err := render(prompts.respond, respondData{
		Subject: subject,
		History: mem.Summary(),
		Message: message,
	})
	if err != nil {
		return "", err
	}
	answer, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("tutor: response generation failed: %w", err)
	}

	if err := mem.Record(ctx, message, answer); err != nil {
		logging.FromContext(ctx).Warn("tutor: failed to memorize exchange",
			slog.String("user", user), slog.Any("error", err))
	}
	s.record(ctx, user, mode, "user", message)
	s.record(ctx, user, mode, "assistant", answer)
	return answer, nil
}

// StartQuiz generates a five-question multiple choice quiz from the user's
// conversation so far, replacing any quiz already in progress.
func (s *Service) StartQuiz(ctx context.Context, user string, mode Mode, subject string) (string, error) {
	prompts, err := promptsFor(mode)
	if err != nil {
		return "", err
	}
	if prompts.quizGen == nil {
		return "", fmt.Errorf("%w: %q has no quizzes", ErrUnsupportedMode, mode)
	}
	subject = normalizeSubject(subject)

	prompt, err := render(prompts.quizGen, quizGenData{
		Subject: subject,
		History: s.memories.For(user, string(mode)).Summary(),
	})
	if err != nil {
		return "", err
	}
	quiz, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("tutor: quiz generation failed: %w", err)
	}

	s.mu.Lock()
	s.quizzes[quizKey{user: user, mode: mode}] = &quizState{quiz: quiz}
	s.mu.Unlock()

	s.record(ctx, user, mode, "assistant", quiz)
	return quiz, nil
}

// SubmitQuiz grades the user's answers to the quiz in progress: a feedback
// pass walks each question, then a grading pass scores the feedback. The
// results are kept for the lesson continuation.
func (s *Service) SubmitQuiz(ctx context.Context, user string, mode Mode, subject string, answers []string) (*QuizResult, error) {
	prompts, err := promptsFor(mode)
	if err != nil {
		return nil, err
	}
	if prompts.quizFeedback == nil {
		return nil, fmt.Errorf("%w: %q has no quizzes", ErrUnsupportedMode, mode)
	}
	if len(answers) != QuizQuestions {
		return nil, fmt.Errorf("%w: expected %d answers, got %d", rag.ErrInvalidArgument, QuizQuestions, len(answers))
	}
	subject = normalizeSubject(subject)

	k := quizKey{user: user, mode: mode}
	s.mu.Lock()
	state, ok := s.quizzes[k]
	var quiz string
	if ok {
		quiz = state.quiz
	}
	s.mu.Unlock()
	if !ok || quiz == "" {
		return nil, ErrNoQuiz
	}

	var sb strings.Builder
	for i, a := range answers {
		fmt.Fprintf(&sb, "Question %d: %s\n", i+1, a)
	}
	history := s.memories.For(user, string(mode)).Summary()

	feedbackPrompt, err := render(prompts.quizFeedback, quizFeedbackData{
		Subject: subject,
		History: history,
		Quiz:    quiz,
		Answers: sb.String(),
	})
	if err != nil {
		return nil, err
	}
	feedback, err := s.gen.Generate(ctx, feedbackPrompt)
	if err != nil {
		return nil, fmt.Errorf("tutor: quiz feedback generation failed: %w", err)
	}

	gradePrompt, err := render(prompts.quizGrade, quizGradeData{
		Subject:  subject,
		Feedback: feedback,
	})
	if err != nil {
		return nil, err
	}
	grade, err := s.gen.Generate(ctx, gradePrompt)
	if err != nil {
		return nil, fmt.Errorf("tutor: quiz grading failed: %w", err)
	}

	s.mu.Lock()
	state.feedback = feedback
	state.grade = grade
	s.mu.Unlock()

	s.record(ctx, user, mode, "assistant", feedback)
	s.record(ctx, user, mode, "assistant", grade)
	return &QuizResult{Feedback: feedback, Grade: grade}, nil
}

// Continue resumes the lesson after a graded quiz, adjusting pace to the
// result. The continuation is folded into the conversation memory.
func (s *Service) Continue(ctx context.Context, user string, mode Mode, subject string) (string, error) {
	prompts, err := promptsFor(mode)
	if err != nil {
		return "", err
	}
	if prompts.continueIntro == nil {
		return "", fmt.Errorf("%w: %q has no lesson continuation", ErrUnsupportedMode, mode)
	}
	subject = normalizeSubject(subject)

	s.mu.Lock()
	state, ok := s.quizzes[quizKey{user: user, mode: mode}]
	var feedback, grade string
	if ok {
		feedback, grade = state.feedback, state.grade
	}
	s.mu.Unlock()
	if !ok || grade == "" {
		return "", ErrNoQuiz
	}

	mem := s.memories.For(user, string(mode))
	prompt, err := render(prompts.continueIntro, continueData{
		Subject:  subject,
		Feedback: feedback,
		Grade:    grade,
		History:  mem.Summary(),
	})
	if err != nil {
		return "", err
	}
	continuation, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("tutor: continuation generation failed: %w", err)
	}

	if err := mem.Record(ctx, "", continuation); err != nil {
		logging.FromContext(ctx).Warn("tutor: failed to memorize continuation",
			slog.String("user", user), slog.Any("error", err))
	}
	s.record(ctx, user, mode, "assistant", continuation)
	return continuation, nil
}

// Reset discards the user's conversation memory and quiz state for mode.
func (s *Service) Reset(ctx context.Context, user string, mode Mode) error {
	if _, err := promptsFor(mode); err != nil {
		return err
	}
	s.memories.Reset(user, string(mode))
	s.mu.Lock()
	delete(s.quizzes, quizKey{user: user, mode: mode})
	s.mu.Unlock()
	return nil
}
