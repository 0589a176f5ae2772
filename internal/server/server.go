// Package server exposes clique grouping over HTTP for hosting applications.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/CliqueKey/pkg/clique"
	"github.com/ChrisMcGann/CliqueKey/pkg/engine"
	"github.com/ChrisMcGann/CliqueKey/pkg/trace"
)

// MaxBodySize limits request bodies.
const MaxBodySize = 256 * 1024 * 1024

// Config holds server defaults applied to requests that omit a parameter.
type Config struct {
	Params         engine.Params
	Assigner       string
	AllowedOrigins []string
}

// Handler serves the grouping API.
type Handler struct {
	log *zap.Logger
	cfg Config
}

// NewHandler creates a Handler.
func NewHandler(log *zap.Logger, cfg Config) *Handler {
	if cfg.Assigner == "" {
		cfg.Assigner = "loglik"
	}
	return &Handler{log: log, cfg: cfg}
}

// Router returns the HTTP routes with middleware installed.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	origins := h.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the API routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Post("/api/cliques", h.ComputeCliques)
}

// HealthCheck reports that the server is up.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"assigners": clique.Names(),
	})
}

// ComputeCliques groups the features of one posted sample.
func (h *Handler) ComputeCliques(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	req := CliqueRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	params := req.params(h.cfg.Params)
	name := req.Assigner
	if name == "" {
		name = h.cfg.Assigner
	}
	assigner, err := clique.Lookup(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	builder := &trace.Builder{}
	if req.ExactRT {
		builder.Match = trace.MatchExact
	}

	log := h.log.With(zap.String("sample", req.Sample), zap.String("request_id", middleware.GetReqID(r.Context())))
	eng, err := engine.New(req.scanList(), req.featureList(), assigner,
		engine.WithLogger(log),
		engine.WithObserver(engine.LogObserver(log)),
		engine.WithTraceBuilder(builder))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := eng.ComputeCliques(r.Context(), params)
	switch {
	case err == nil:
	case r.Context().Err() != nil:
		log.Warn("request cancelled", zap.Error(err))
		return
	case engine.AssignerError.Has(err):
		log.Error("clique assignment failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	default:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newCliqueResponse(req.Sample, res))
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
