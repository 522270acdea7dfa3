package server

import (
	"net/http"

	"github.com/ECampbell37/ai-tutor-go/internal/tutor"
)

// parseMode validates the mode string from a request. An empty return mode
// means the error response has already been written.
func parseMode(w http.ResponseWriter, raw string) (tutor.Mode, bool) {
	mode, err := tutor.ParseMode(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return "", false
	}
	return mode, true
}

// handleIntro handles GET /api/intro?mode=&subject=. The tutor opens a
// lesson on the subject in the requested mode.
func (s *Server) handleIntro(w http.ResponseWriter, r *http.Request) {
	user := s.userID(w, r)
	if user == "" {
		return
	}
	mode, ok := parseMode(w, r.URL.Query().Get("mode"))
	if !ok {
		return
	}

	msg, err := s.tutor.Intro(r.Context(), user, mode, r.URL.Query().Get("subject"))
	if err != nil {
		s.metrics.chatRequestsTotal.WithLabelValues(string(mode), "error").Inc()
		writeError(w, r, err)
		return
	}

	s.metrics.chatRequestsTotal.WithLabelValues(string(mode), "ok").Inc()
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// handleChat handles POST /api/chat: one conversational turn in the
// requested mode.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	user := s.userID(w, r)
	if user == "" {
		return
	}

	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, ok := parseMode(w, req.Mode)
	if !ok {
		return
	}

	msg, err := s.tutor.Respond(r.Context(), user, mode, req.Subject, req.Message)
	if err != nil {
		s.metrics.chatRequestsTotal.WithLabelValues(string(mode), "error").Inc()
		writeError(w, r, err)
		return
	}

	s.metrics.chatRequestsTotal.WithLabelValues(string(mode), "ok").Inc()
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// handleQuizStart handles POST /api/quiz/start: generates a quiz from the
// user's conversation so far.
func (s *Server) handleQuizStart(w http.ResponseWriter, r *http.Request) {
	user := s.userID(w, r)
	if user == "" {
		return
	}

	var req quizStartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, ok := parseMode(w, req.Mode)
	if !ok {
		return
	}

	quiz, err := s.tutor.StartQuiz(r.Context(), user, mode, req.Subject)
	if err != nil {
		s.metrics.chatRequestsTotal.WithLabelValues(string(mode), "error").Inc()
		writeError(w, r, err)
		return
	}

	s.metrics.chatRequestsTotal.WithLabelValues(string(mode), "ok").Inc()
	writeJSON(w, http.StatusOK, quizResponse{Quiz: quiz})
}

// handleQuizSubmit handles POST /api/quiz/submit: grades the submitted
// answers against the quiz in progress.
func (s *Server) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	user := s.userID(w, r)
	if user == "" {
		return
	}

	var req quizSubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, ok := parseMode(w, req.Mode)
	if !ok {
		return
	}

	result, err := s.tutor.SubmitQuiz(r.Context(), user, mode, req.Subject, req.Answers)
	if err != nil {
		s.metrics.chatRequestsTotal.WithLabelValues(string(mode), "error").Inc()
		writeError(w, r, err)
		return
	}

	s.metrics.chatRequestsTotal.WithLabelValues(string(mode), "ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

// handleContinue handles GET /api/continue?mode=&subject=: resumes the
// lesson after a graded quiz.
func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	user := s.userID(w, r)
	if user == "" {
		return
	}
	mode, ok := parseMode(w, r.URL.Query().Get("mode"))
	if !ok {
		return
	}

	msg, err := s.tutor.Continue(r.Context(), user, mode, r.URL.Query().Get("subject"))
	if err != nil {
		s.metrics.chatRequestsTotal.WithLabelValues(string(mode), "error").Inc()
		writeError(w, r, err)
		return
	}

	s.metrics.chatRequestsTotal.WithLabelValues(string(mode), "ok").Inc()
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// handleReset handles POST /api/reset: discards the user's conversation
// memory and quiz state for the mode.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	user := s.userID(w, r)
	if user == "" {
		return
	}

	var req resetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, ok := parseMode(w, req.Mode)
	if !ok {
		return
	}

	if err := s.tutor.Reset(r.Context(), user, mode); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
