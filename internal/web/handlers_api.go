package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/asheshgoplani/agent-history/internal/history"
	"github.com/asheshgoplani/agent-history/internal/service"
)

type apiError struct {
	Code      string               `json:"code"`
	Message   string               `json:"message"`
	Available []history.ProjectRef `json:"available,omitempty"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

// argsFromQuery takes the first value of every query parameter except the
// auth token.
func argsFromQuery(q url.Values) service.Args {
	args := make(service.Args, len(q))
	for k, v := range q {
		if k == "token" || len(v) == 0 {
			continue
		}
		args[k] = v[0]
	}
	return args
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Search(argsFromQuery(r.URL.Query()))
	s.respond(w, r, resp, err)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	args := argsFromQuery(r.URL.Query())
	// Exports write to the server's disk; not offered over HTTP.
	delete(args, "output")
	resp, err := s.svc.Get(args)
	s.respond(w, r, resp, err)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Context(argsFromQuery(r.URL.Query()))
	s.respond(w, r, resp, err)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Projects()
	s.respond(w, r, resp, err)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Sessions(argsFromQuery(r.URL.Query()))
	s.respond(w, r, resp, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, payload any, err error) {
	if err != nil {
		writeHistoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind history.Kind) int {
	switch kind {
	case history.KindInvalidRef, history.KindInvalidPattern, history.KindInvalidArgument:
		return http.StatusBadRequest
	case history.KindRefNotFound, history.KindSessionNotFound,
		history.KindProjectNotFound, history.KindNoCurrentProject:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeHistoryError(w http.ResponseWriter, r *http.Request, err error) {
	var he *history.Error
	if !errors.As(err, &he) {
		webLog.Error("request_failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}
	status := statusFor(he.Kind)
	if status == http.StatusInternalServerError {
		webLog.Error("request_failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
	writeJSON(w, status, apiErrorResponse{Error: apiError{
		Code:      string(he.Kind),
		Message:   he.Message,
		Available: he.Available,
	}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorResponse{
		Error: apiError{
			Code:    code,
			Message: message,
		},
	})
}
