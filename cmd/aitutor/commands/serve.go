package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/ECampbell37/ai-tutor-go/internal/embedder"
	"github.com/ECampbell37/ai-tutor-go/internal/extract"
	"github.com/ECampbell37/ai-tutor-go/internal/logging"
	"github.com/ECampbell37/ai-tutor-go/internal/provider"
	"github.com/ECampbell37/ai-tutor-go/internal/rag"
	"github.com/ECampbell37/ai-tutor-go/internal/server"
	"github.com/ECampbell37/ai-tutor-go/internal/session"
	"github.com/ECampbell37/ai-tutor-go/internal/store"
	"github.com/ECampbell37/ai-tutor-go/internal/tracing"
	"github.com/ECampbell37/ai-tutor-go/internal/tutor"
)

// NewServeCmd constructs the `aitutor serve` command, which starts the HTTP
// server that backs the web frontend.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the AI Tutor HTTP server",
		Long: `Start the AI Tutor HTTP server on localhost.

The server exposes a REST API for conversational lessons, quizzes, and
PDF question answering. Every request is scoped to a user via the
X-User-ID header, so one server instance serves many learners.

Examples:
  aitutor serve
  aitutor serve --port 9090
  MODEL_PROVIDER=openai aitutor serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			gen, err := provider.NewGenerator(chatModel)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			builder, closeBuilder, pingers, err := buildIndexBackend(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeBuilder()

			manager, err := session.NewManager(&session.Config{
				Extractor:        extract.NewAuto(),
				Embedder:         emb,
				Generator:        gen,
				Builder:          builder,
				ChunkSize:        envInt("PDF_CHUNK_SIZE", 0),
				ChunkOverlap:     envInt("PDF_CHUNK_OVERLAP", 0),
				TopK:             envInt("PDF_TOP_K", 0),
				MaxContextTokens: envInt("PDF_MAX_CONTEXT_TOKENS", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to initialise PDF sessions: %w", err)
			}

			// Open the transcript store. TUTOR_HISTORY_DB overrides the
			// default path (~/.aitutor/history.db). Set to "disabled" to
			// run without persistence.
			var transcript tutor.Transcript
			dbPath := os.Getenv("TUTOR_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						transcript = &transcriptAdapter{store: hs}
						pingers = append(pingers, server.NewStorePinger(hs.Ping))
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via TUTOR_HISTORY_DB=disabled")
			}

			tutorSvc, err := tutor.NewService(gen, transcript)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise tutor: %w", err)
			}

			if os.Getenv("MODEL_PROVIDER") == "" || os.Getenv("MODEL_PROVIDER") == "ollama" {
				ollamaHost := os.Getenv("OLLAMA_HOST")
				if ollamaHost == "" {
					ollamaHost = "http://localhost:11434"
				}
				pingers = append(pingers, server.NewOllamaPinger(ollamaHost))
			}

			srv, err := server.New(manager, tutorSvc, &server.Config{
				Host:           hostOrEnv(host),
				Port:           portOrEnv(port),
				Logger:         log,
				Pingers:        pingers,
				APIKey:         os.Getenv("TUTOR_API_KEY"),
				RateLimit:      envFloat("RATE_LIMIT", 0),
				RateBurst:      envInt("RATE_BURST", 0),
				AllowedOrigins: splitOrigins(os.Getenv("CORS_ALLOWED_ORIGINS")),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default: 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default: 8080)")

	return cmd
}

// buildIndexBackend selects the vector index backend from PDF_INDEX_BACKEND.
// The default in-memory backend needs no connections; "qdrant" opens a shared
// gRPC client whose close func and readiness probe are returned alongside.
func buildIndexBackend(log *slog.Logger) (rag.IndexBuilder, func(), []server.Pinger, error) {
	backend := strings.ToLower(os.Getenv("PDF_INDEX_BACKEND"))
	switch backend {
	case "", "memory":
		return rag.MemoryBuilder{}, func() {}, nil, nil
	case "qdrant":
		qb, err := rag.NewQdrantBuilder(&rag.QdrantConfig{
			Host:   os.Getenv("QDRANT_HOST"),
			Port:   envInt("QDRANT_PORT", 0),
			APIKey: os.Getenv("QDRANT_API_KEY"),
			UseTLS: os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("qdrant index backend enabled", slog.String("host", os.Getenv("QDRANT_HOST")))
		closeFn := func() {
			if err := qb.Close(); err != nil {
				log.Warn("qdrant: close failed", slog.Any("error", err))
			}
		}
		return qb, closeFn, []server.Pinger{server.NewQdrantPinger(qb.Client())}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown PDF_INDEX_BACKEND %q (expected memory or qdrant)", backend)
	}
}

// transcriptAdapter bridges the tutor's string-typed transcript port onto
// the SQLite store.
type transcriptAdapter struct {
	store *store.SQLiteStore
}

func (a *transcriptAdapter) Append(ctx context.Context, user, mode, role, content string) error {
	return a.store.Append(ctx, user, mode, store.Role(role), content)
}

// hostOrEnv resolves the bind host: flag, then SERVER_HOST, then the
// server default.
func hostOrEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("SERVER_HOST")
}

// portOrEnv resolves the port: flag, then SERVER_PORT, then the server default.
func portOrEnv(flag int) int {
	if flag != 0 {
		return flag
	}
	return envInt("SERVER_PORT", 0)
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
