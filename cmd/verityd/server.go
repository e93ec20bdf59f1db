package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/engagekit/verity/internal/domain"
	"github.com/engagekit/verity/internal/ports"
)

// maxRequestBytes bounds verify request bodies. Reference content plus a
// full response corpus fits comfortably; anything larger is abuse.
const maxRequestBytes = 4 << 20

// verifier is the slice of the engine the HTTP layer needs.
type verifier interface {
	Verify(ctx context.Context, req domain.VerificationRequest) (*domain.VerificationResult, error)
}

type server struct {
	engine verifier
	logger *slog.Logger
}

func newRouter(engine verifier, logger *slog.Logger) http.Handler {
	s := &server{engine: engine, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/verify", s.handleVerify)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerificationRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := s.engine.Verify(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps domain and infrastructure errors onto HTTP statuses:
// bad input is the client's fault, provider trouble is a temporary
// upstream condition, everything else is a plain server error.
func (s *server) writeError(w http.ResponseWriter, err error) {
	var inputErr *domain.InputError
	var provErr *ports.ProviderError

	switch {
	case errors.As(err, &inputErr):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: inputErr.Error()})
	case errors.As(err, &provErr):
		s.logger.Error("provider failure", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "verification temporarily unavailable"})
	default:
		s.logger.Error("verification failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}
