package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ECampbell37/ai-tutor-go/internal/rag"
	"github.com/ECampbell37/ai-tutor-go/internal/session"
	"github.com/ECampbell37/ai-tutor-go/internal/tutor"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakePDF is a test double for the PDFService interface.
type fakePDF struct {
	uploads   map[string][]byte
	answer    string
	uploadErr error
	askErr    error
	clearErr  error
	lastAsk   string
}

func newFakePDF() *fakePDF {
	return &fakePDF{uploads: make(map[string][]byte), answer: "grounded answer"}
}

func (f *fakePDF) Upload(_ context.Context, user string, data []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads[user] = data
	return nil
}

func (f *fakePDF) Ask(_ context.Context, user, question string) (string, error) {
	if f.askErr != nil {
		return "", f.askErr
	}
	if _, ok := f.uploads[user]; !ok {
		return "", session.ErrNotFound
	}
	f.lastAsk = question
	return f.answer, nil
}

func (f *fakePDF) Clear(_ context.Context, user string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	delete(f.uploads, user)
	return nil
}

func (f *fakePDF) Sessions() int { return len(f.uploads) }

// fakeTutor is a test double for the TutorService interface.
type fakeTutor struct {
	err     error
	quizErr error
}

func (f *fakeTutor) Intro(_ context.Context, user string, mode tutor.Mode, subject string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("intro %s/%s/%s", user, mode, subject), nil
}

func (f *fakeTutor) Respond(_ context.Context, user string, mode tutor.Mode, _ string, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("reply %s/%s: %s", user, mode, message), nil
}

func (f *fakeTutor) StartQuiz(_ context.Context, _ string, mode tutor.Mode, _ string) (string, error) {
	if f.quizErr != nil {
		return "", f.quizErr
	}
	return "quiz for " + string(mode), nil
}

func (f *fakeTutor) SubmitQuiz(_ context.Context, _ string, _ tutor.Mode, _ string, answers []string) (*tutor.QuizResult, error) {
	if f.quizErr != nil {
		return nil, f.quizErr
	}
	return &tutor.QuizResult{Feedback: fmt.Sprintf("feedback for %d answers", len(answers)), Grade: "Score: 4/5"}, nil
}

func (f *fakeTutor) Continue(_ context.Context, _ string, mode tutor.Mode, _ string) (string, error) {
	if f.quizErr != nil {
		return "", f.quizErr
	}
	return "welcome back to " + string(mode), nil
}

func (f *fakeTutor) Reset(context.Context, string, tutor.Mode) error { return f.err }

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

// newTestServerWith builds a Server with hermetic metrics and the given fakes.
func newTestServerWith(pdf PDFService, tut TutorService) *Server {
	reg := prometheus.NewRegistry()
	s, err := New(pdf, tut, &Config{
		MetricsRegistry: reg,
		MetricsGatherer: reg,
		RateLimit:       1000,
		RateBurst:       1000,
	})
	if err != nil {
		panic(err)
	}
	return s
}

// newTestServer builds a Server with default fakes, used by the readiness
// and metrics tests.
func newTestServer() *Server {
	return newTestServerWith(newFakePDF(), &fakeTutor{})
}

// do runs one request through the full middleware chain.
func do(s *Server, method, target, user string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body == nil {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.RemoteAddr = "127.0.0.1:10000"
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

// ---------------------------------------------------------------------------
// PDF endpoints
// ---------------------------------------------------------------------------

func Test_PDF_UploadRawBody(t *testing.T) {
	t.Parallel()
	pdf := newFakePDF()
	s := newTestServerWith(pdf, &fakeTutor{})

	w := do(s, http.MethodPost, "/api/pdf/upload", "alice", []byte("%PDF-1.4 fake"), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d — body: %s", w.Code, w.Body.String())
	}
	if got := string(pdf.uploads["alice"]); got != "%PDF-1.4 fake" {
		t.Errorf("uploaded bytes = %q", got)
	}
}

func Test_PDF_UploadMultipart(t *testing.T) {
	t.Parallel()
	pdf := newFakePDF()
	s := newTestServerWith(pdf, &fakeTutor{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("pdf bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.Close()

	w := do(s, http.MethodPost, "/api/pdf/upload", "alice", buf.Bytes(),
		map[string]string{"Content-Type": mw.FormDataContentType()})
	if w.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d — body: %s", w.Code, w.Body.String())
	}
	if got := string(pdf.uploads["alice"]); got != "pdf bytes" {
		t.Errorf("uploaded bytes = %q", got)
	}
}

func Test_PDF_UploadRequiresUser(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := do(s, http.MethodPost, "/api/pdf/upload", "", []byte("data"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 without %s, got %d", userHeader, w.Code)
	}
}

func Test_PDF_AskRoundTrip(t *testing.T) {
	t.Parallel()
	pdf := newFakePDF()
	s := newTestServerWith(pdf, &fakeTutor{})

	if w := do(s, http.MethodPost, "/api/pdf/upload", "alice", []byte("doc"), nil); w.Code != http.StatusNoContent {
		t.Fatalf("upload: %d", w.Code)
	}

	w := do(s, http.MethodPost, "/api/pdf/ask", "alice",
		jsonBody(t, askRequest{Question: "what is this?"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d — body: %s", w.Code, w.Body.String())
	}
	var resp answerResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "grounded answer" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if pdf.lastAsk != "what is this?" {
		t.Errorf("service saw question %q", pdf.lastAsk)
	}
}

func Test_PDF_AskWithoutSession(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := do(s, http.MethodPost, "/api/pdf/ask", "ghost",
		jsonBody(t, askRequest{Question: "anyone?"}), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d — body: %s", w.Code, w.Body.String())
	}
}

func Test_PDF_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", fmt.Errorf("wrap: %w", rag.ErrInvalidArgument), http.StatusBadRequest},
		{"no document", session.ErrNoDocument, http.StatusConflict},
		{"processing failure", fmt.Errorf("%w: bad pdf", session.ErrDocumentProcessing), http.StatusUnprocessableEntity},
		{"oracle failure", errors.New("embedding service down"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			pdf := newFakePDF()
			pdf.askErr = tc.err
			s := newTestServerWith(pdf, &fakeTutor{})

			w := do(s, http.MethodPost, "/api/pdf/ask", "alice",
				jsonBody(t, askRequest{Question: "q"}), nil)
			if w.Code != tc.want {
				t.Errorf("want %d, got %d — body: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func Test_PDF_Clear(t *testing.T) {
	t.Parallel()
	pdf := newFakePDF()
	s := newTestServerWith(pdf, &fakeTutor{})

	if w := do(s, http.MethodPost, "/api/pdf/upload", "alice", []byte("doc"), nil); w.Code != http.StatusNoContent {
		t.Fatalf("upload: %d", w.Code)
	}
	if w := do(s, http.MethodPost, "/api/pdf/clear", "alice", nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("clear: %d", w.Code)
	}
	if len(pdf.uploads) != 0 {
		t.Error("clear did not reach the service")
	}
}

// ---------------------------------------------------------------------------
// Lesson endpoints
// ---------------------------------------------------------------------------

func Test_Chat_Intro(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := do(s, http.MethodGet, "/api/intro?mode=casual&subject=Astronomy", "alice", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d — body: %s", w.Code, w.Body.String())
	}
	var resp messageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "intro alice/casual/Astronomy" {
		t.Errorf("message = %q", resp.Message)
	}
}

func Test_Chat_InvalidMode(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := do(s, http.MethodGet, "/api/intro?mode=genius", "alice", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for unknown mode, got %d", w.Code)
	}
}

func Test_Chat_Respond(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := do(s, http.MethodPost, "/api/chat", "alice",
		jsonBody(t, chatRequest{Mode: "free", Message: "hello"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d — body: %s", w.Code, w.Body.String())
	}
	var resp messageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "reply alice/free: hello" {
		t.Errorf("message = %q", resp.Message)
	}
}

func Test_Chat_QuizFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := do(s, http.MethodPost, "/api/quiz/start", "alice",
		jsonBody(t, quizStartRequest{Mode: "kids"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("quiz start: want 200, got %d", w.Code)
	}

	w = do(s, http.MethodPost, "/api/quiz/submit", "alice",
		jsonBody(t, quizSubmitRequest{Mode: "kids", Answers: []string{"a", "b", "c", "d", "a"}}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("quiz submit: want 200, got %d — body: %s", w.Code, w.Body.String())
	}
	var result tutor.QuizResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Grade != "Score: 4/5" {
		t.Errorf("grade = %q", result.Grade)
	}

	w = do(s, http.MethodGet, "/api/continue?mode=kids", "alice", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("continue: want 200, got %d", w.Code)
	}
}

func Test_Chat_NoQuizConflict(t *testing.T) {
	t.Parallel()
	s := newTestServerWith(newFakePDF(), &fakeTutor{quizErr: tutor.ErrNoQuiz})

	w := do(s, http.MethodPost, "/api/quiz/submit", "alice",
		jsonBody(t, quizSubmitRequest{Mode: "casual", Answers: []string{"a", "b", "c", "d", "a"}}), nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d — body: %s", w.Code, w.Body.String())
	}
}

func Test_Chat_Reset(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := do(s, http.MethodPost, "/api/reset", "alice",
		jsonBody(t, resetRequest{Mode: "casual"}), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Middleware behavior through the full chain
// ---------------------------------------------------------------------------

func Test_Server_CORSPreflight(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := do(s, http.MethodOptions, "/api/chat", "", nil,
		map[string]string{"Origin": "http://localhost:3000"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("want 204 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, userHeader) {
		t.Errorf("Access-Control-Allow-Headers = %q, missing %s", got, userHeader)
	}
}

func Test_Server_AuthRequiredOnAPIRoutes(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	s, err := New(newFakePDF(), &fakeTutor{}, &Config{
		APIKey:          "secret",
		MetricsRegistry: reg,
		MetricsGatherer: reg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if w := do(s, http.MethodPost, "/api/pdf/upload", "alice", []byte("doc"), nil); w.Code != http.StatusUnauthorized {
		t.Errorf("without token: want 401, got %d", w.Code)
	}
	w := do(s, http.MethodPost, "/api/pdf/upload", "alice", []byte("doc"),
		map[string]string{"Authorization": "Bearer secret"})
	if w.Code != http.StatusNoContent {
		t.Errorf("with token: want 204, got %d — body: %s", w.Code, w.Body.String())
	}

	// Health stays open for probes.
	if w := do(s, http.MethodGet, "/api/health", "", nil, nil); w.Code != http.StatusOK {
		t.Errorf("health with auth enabled: want 200, got %d", w.Code)
	}
}

func Test_Server_InvalidJSONBody(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := do(s, http.MethodPost, "/api/chat", "alice", []byte("{not json"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for invalid JSON, got %d", w.Code)
	}
}
