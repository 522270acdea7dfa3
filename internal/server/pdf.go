package server

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ECampbell37/ai-tutor-go/internal/logging"
)

// handleUpload handles POST /api/pdf/upload. The document arrives either as
// a multipart form field named "file" or as the raw request body. A
// successful upload replaces the user's previous document and resets their
// question history.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user := s.userID(w, r)
	if user == "" {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	data, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.pdf.Upload(r.Context(), user, data); err != nil {
		s.metrics.pdfRequestsTotal.WithLabelValues("upload", "error").Inc()
		writeError(w, r, err)
		return
	}

	s.metrics.pdfRequestsTotal.WithLabelValues("upload", "ok").Inc()
	logging.FromContext(r.Context()).Info("document uploaded",
		slog.String("user", user),
		slog.Int("bytes", len(data)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// readUpload extracts the document bytes from a multipart "file" field, or
// from the raw body for clients that POST the PDF directly.
func readUpload(r *http.Request) ([]byte, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, errMissingFile
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(r.Body)
}

// errMissingFile is returned when a multipart upload lacks the "file" field.
var errMissingFile = &uploadError{msg: `multipart upload requires a "file" field`}

type uploadError struct{ msg string }

func (e *uploadError) Error() string { return e.msg }

// handleAsk handles POST /api/pdf/ask. It answers the question against the
// user's uploaded document.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	user := s.userID(w, r)
	if user == "" {
		return
	}

	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	answer, err := s.pdf.Ask(r.Context(), user, req.Question)
	if err != nil {
		s.metrics.pdfRequestsTotal.WithLabelValues("ask", "error").Inc()
		writeError(w, r, err)
		return
	}

	s.metrics.pdfRequestsTotal.WithLabelValues("ask", "ok").Inc()
	writeJSON(w, http.StatusOK, answerResponse{Answer: answer})
}

// handleClear handles POST /api/pdf/clear. It discards the user's document
// and history; clearing a user with no session is a no-op.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	user := s.userID(w, r)
	if user == "" {
		return
	}

	if err := s.pdf.Clear(r.Context(), user); err != nil {
		s.metrics.pdfRequestsTotal.WithLabelValues("clear", "error").Inc()
		writeError(w, r, err)
		return
	}

	s.metrics.pdfRequestsTotal.WithLabelValues("clear", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}
