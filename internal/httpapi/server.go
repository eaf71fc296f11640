package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/domain"
	apimw "github.com/hamed0406/endpointresolver/internal/httpapi/middleware"
	"github.com/hamed0406/endpointresolver/internal/metrics"
	"github.com/hamed0406/endpointresolver/internal/repo"
	"github.com/hamed0406/endpointresolver/internal/request"
	"github.com/hamed0406/endpointresolver/internal/resolver"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Resolver is what the control API needs from *resolver.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, force bool) (*domain.ResolvedEndpoint, error)
	Invalidate()
	Status() domain.Status
}

type Server struct {
	Logger     *zap.Logger
	Resolver   Resolver
	Candidates resolver.CandidateSource // optional; lists fresh candidates
	Client     *request.Client
	History    repo.HistoryStore // optional
	Metrics    *metrics.Metrics  // optional

	AllowedOrigins []string // empty allows any origin
}

func NewServer(l *zap.Logger, res Resolver, cands resolver.CandidateSource, c *request.Client, h repo.HistoryStore, m *metrics.Metrics) *Server {
	return &Server{Logger: l, Resolver: res, Candidates: cands, Client: c, History: h, Metrics: m}
}

func (s *Server) Router(keys apimw.Keys, publicRPM, publicBurst, adminRPM, adminBurst int) http.Handler {
	origins := s.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders: []string{resolvedBackendHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))
		r.Use(apimw.RequireAny(keys))
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/candidates", s.handleCandidates)
		r.Get("/api/history", s.handleHistory)
		r.HandleFunc("/proxy/*", s.handleProxy)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(adminRPM, adminBurst))
		r.Use(apimw.RequireAdmin(keys))
		r.Post("/api/resolve", s.handleResolve)
		r.Delete("/api/endpoint", s.handleInvalidate)
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Resolver.Status())
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	var cands []domain.Candidate
	if s.Candidates != nil {
		cands = s.Candidates.Candidates(r.Context())
	} else {
		cands = s.Resolver.Status().Candidates
	}
	if cands == nil {
		cands = []domain.Candidate{}
	}
	writeJSON(w, http.StatusOK, cands)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))
	out := []domain.Resolution{}
	if s.History != nil {
		recs, err := s.History.Recent(r.Context(), limit)
		if err != nil {
			s.Logger.Warn("history_read_failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "history unavailable"})
			return
		}
		if recs != nil {
			out = recs
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type resolveResponse struct {
	Endpoint *domain.ResolvedEndpoint `json:"endpoint,omitempty"`
	Error    string                   `json:"error,omitempty"`
	Degraded *domain.ResolvedEndpoint `json:"degraded,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	s.Logger.Info("resolve_requested",
		zap.Bool("force", force),
		zap.String("role", string(apimw.RoleFrom(r.Context()))),
	)

	ep, err := s.Resolver.Resolve(r.Context(), force)
	if err == nil {
		writeJSON(w, http.StatusOK, resolveResponse{Endpoint: ep})
		return
	}

	var ex *resolver.ExhaustedError
	switch {
	case errors.As(err, &ex):
		writeJSON(w, http.StatusServiceUnavailable, resolveResponse{Error: ex.Error(), Degraded: ex.Degraded})
	case r.Context().Err() != nil:
		// client went away; nothing to write
	default:
		s.Logger.Warn("resolve_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, resolveResponse{Error: err.Error()})
	}
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.Resolver.Invalidate()
	s.Logger.Info("endpoint_invalidate_requested", zap.String("role", string(apimw.RoleFrom(r.Context()))))
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultHistoryLimit
	}
	if n > maxHistoryLimit {
		return maxHistoryLimit
	}
	return n
}
