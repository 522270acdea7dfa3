package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	osuser "os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ECampbell37/ai-tutor-go/internal/logging"
	"github.com/ECampbell37/ai-tutor-go/internal/provider"
	"github.com/ECampbell37/ai-tutor-go/internal/tutor"
)

// NewChatCmd constructs the `aitutor chat` command, an interactive lesson
// in the terminal. It is the quickest way to try a tutoring mode without
// running the HTTP server.
func NewChatCmd() *cobra.Command {
	var mode string
	var subject string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive lesson in the terminal",
		Long: `Start an interactive lesson in the terminal.

The tutor opens the lesson, then reads your messages line by line.
In the casual and kids modes, type "quiz" to take a five-question quiz
on the current subject, and "exit" to leave.

Examples:
  aitutor chat
  aitutor chat --mode kids --subject Dinosaurs
  aitutor chat --mode professional --subject "Linear Algebra"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithLogger(cmd.Context(), logging.New())

			m, err := tutor.ParseMode(mode)
			if err != nil {
				return err
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("chat: failed to initialise model provider: %w", err)
			}
			gen, err := provider.NewGenerator(chatModel)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			svc, err := tutor.NewService(gen, nil)
			if err != nil {
				return err
			}

			return runLesson(ctx, svc, localUser(), m, subject)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "casual", "Tutoring mode: casual, kids, professional, free")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Lesson subject (default: "+tutor.DefaultSubject+")")

	return cmd
}

// runLesson drives the terminal read-answer loop for one lesson.
func runLesson(ctx context.Context, svc *tutor.Service, user string, mode tutor.Mode, subject string) error {
	in := bufio.NewScanner(os.Stdin)

	intro, err := svc.Intro(ctx, user, mode, subject)
	switch {
	case err == nil:
		fmt.Println(intro)
	case errors.Is(err, tutor.ErrUnsupportedMode):
		// Professional and free modes open with the user's first message.
	default:
		return err
	}

	for {
		fmt.Print("\n> ")
		if !in.Scan() {
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case line == "quiz":
			if err := runQuiz(ctx, svc, in, user, mode, subject); err != nil {
				if errors.Is(err, tutor.ErrUnsupportedMode) {
					fmt.Println("Quizzes are not available in this mode.")
					continue
				}
				return err
			}
		default:
			reply, err := svc.Respond(ctx, user, mode, subject, line)
			if err != nil {
				return err
			}
			fmt.Println(reply)
		}
	}
}

// runQuiz generates a quiz, collects one answer per question, and prints the
// feedback, grade, and lesson continuation.
func runQuiz(ctx context.Context, svc *tutor.Service, in *bufio.Scanner, user string, mode tutor.Mode, subject string) error {
	quiz, err := svc.StartQuiz(ctx, user, mode, subject)
	if err != nil {
		return err
	}
	fmt.Println(quiz)

	answers := make([]string, 0, tutor.QuizQuestions)
	for i := 1; i <= tutor.QuizQuestions; i++ {
		fmt.Printf("\nAnswer %d: ", i)
		if !in.Scan() {
			return in.Err()
		}
		answers = append(answers, strings.TrimSpace(in.Text()))
	}

	result, err := svc.SubmitQuiz(ctx, user, mode, subject, answers)
	if err != nil {
		return err
	}
	fmt.Println("\n" + result.Feedback)
	fmt.Println("\n" + result.Grade)

	followUp, err := svc.Continue(ctx, user, mode, subject)
	if err != nil {
		return err
	}
	fmt.Println("\n" + followUp)
	return nil
}

// localUser derives a stable user id for terminal sessions.
func localUser() string {
	if u, err := osuser.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}
