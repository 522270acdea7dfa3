package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ECampbell37/ai-tutor-go/internal/tutor"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Generation calls can take a while, so the default is generous.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// MaxUploadBytes caps the size of PDF uploads. Defaults to 20 MiB.
	MaxUploadBytes int64
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// AllowedOrigins is the list of origins permitted by CORS. An entry of
	// "*" (the default) allows any origin.
	AllowedOrigins []string
	// MetricsRegistry receives the server's Prometheus metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs the GET /metrics endpoint. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// PDFService is the interface the PDF handlers call. *session.Manager
// satisfies it; tests inject a fake.
type PDFService interface {
	// Upload indexes a document for user, replacing any previous one.
	Upload(ctx context.Context, user string, data []byte) error
	// Ask answers a question against the user's indexed document.
	Ask(ctx context.Context, user, question string) (string, error)
	// Clear discards the user's document and history.
	Clear(ctx context.Context, user string) error
	// Sessions reports the number of live sessions, for the gauge.
	Sessions() int
}

// TutorService is the interface the lesson handlers call. *tutor.Service
// satisfies it; tests inject a fake.
type TutorService interface {
	Intro(ctx context.Context, user string, mode tutor.Mode, subject string) (string, error)
	Respond(ctx context.Context, user string, mode tutor.Mode, subject, message string) (string, error)
	StartQuiz(ctx context.Context, user string, mode tutor.Mode, subject string) (string, error)
	SubmitQuiz(ctx context.Context, user string, mode tutor.Mode, subject string, answers []string) (*tutor.QuizResult, error)
	Continue(ctx context.Context, user string, mode tutor.Mode, subject string) (string, error)
	Reset(ctx context.Context, user string, mode tutor.Mode) error
}

// Server is the HTTP server exposing the tutor and PDF APIs.
type Server struct {
	// pdf answers document uploads and questions.
	pdf PDFService
	// tutor runs the conversational lesson modes.
	tutor TutorService
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
}

// askRequest is the JSON body for POST /api/pdf/ask.
type askRequest struct {
	// Question is the user's question about the uploaded document.
	Question string `json:"question"`
}

// answerResponse is the JSON response for POST /api/pdf/ask.
type answerResponse struct {
	// Answer is the generated, document-grounded answer.
	Answer string `json:"answer"`
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Mode selects the tutoring persona (casual, kids, professional, free).
	Mode string `json:"mode"`
	// Subject is the lesson subject; defaults to Astronomy when empty.
	Subject string `json:"subject,omitempty"`
	// Message is the user's chat message.
	Message string `json:"message"`
}

// quizStartRequest is the JSON body for POST /api/quiz/start.
type quizStartRequest struct {
	Mode    string `json:"mode"`
	Subject string `json:"subject,omitempty"`
}

// quizSubmitRequest is the JSON body for POST /api/quiz/submit.
type quizSubmitRequest struct {
	Mode    string `json:"mode"`
	Subject string `json:"subject,omitempty"`
	// Answers holds exactly one answer per quiz question.
	Answers []string `json:"answers"`
}

// quizResponse is the JSON response for POST /api/quiz/start.
type quizResponse struct {
	Quiz string `json:"quiz"`
}

// messageResponse is the JSON response for the lesson endpoints.
type messageResponse struct {
	Message string `json:"message"`
}

// resetRequest is the JSON body for POST /api/reset.
type resetRequest struct {
	Mode string `json:"mode"`
}

// errorResponse is the JSON body for all error status codes.
type errorResponse struct {
	Error string `json:"error"`
}
