package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/prometheus"
	"github.com/biograph-io/nodenorm/internal/interfaces/http/handlers"
	"github.com/biograph-io/nodenorm/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.
type RouterConfig struct {
	NodesHandler   *handlers.NodesHandler
	MessageHandler *handlers.MessageHandler
	SetIDHandler   *handlers.SetIDHandler
	MetaHandler    *handlers.MetaHandler
	StatusHandler  *handlers.StatusHandler
	HealthHandler  *handlers.HealthHandler

	CORSMiddleware    *middleware.CORSMiddleware
	LoggingMiddleware *middleware.LoggingMiddleware
	MetricsMiddleware *middleware.MetricsMiddleware

	Logger           logging.Logger
	MetricsCollector *prometheus.Collector
}

// NewRouter constructs the complete HTTP route tree from the given
// configuration into a single http.Handler suitable for http.Server.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.CORSMiddleware != nil {
		r.Use(cfg.CORSMiddleware.Handler)
	}
	if cfg.LoggingMiddleware != nil {
		r.Use(cfg.LoggingMiddleware.Handler)
	}
	if cfg.MetricsMiddleware != nil {
		r.Use(cfg.MetricsMiddleware.Handler)
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	if cfg.NodesHandler != nil {
		r.Get("/get_normalized_nodes", cfg.NodesHandler.Get)
		r.Post("/get_normalized_nodes", cfg.NodesHandler.Post)
	}
	if cfg.MessageHandler != nil {
		r.Post("/query", cfg.MessageHandler.Query)
		r.Post("/asyncquery", cfg.MessageHandler.AsyncQuery)
	}
	if cfg.SetIDHandler != nil {
		r.Get("/get_setid", cfg.SetIDHandler.Get)
		r.Post("/get_setid", cfg.SetIDHandler.Post)
	}
	if cfg.MetaHandler != nil {
		r.Get("/get_allowed_conflations", cfg.MetaHandler.AllowedConflations)
		r.Get("/get_semantic_types", cfg.MetaHandler.SemanticTypes)
		r.Get("/get_curie_prefixes", cfg.MetaHandler.CuriePrefixes)
		r.Post("/get_curie_prefixes", cfg.MetaHandler.CuriePrefixesPost)
	}
	if cfg.StatusHandler != nil {
		r.Get("/status", cfg.StatusHandler.Get)
	}

	return r
}
