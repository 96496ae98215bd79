package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/resourceshare-ph/apiserver/config"
	"github.com/resourceshare-ph/apiserver/internal/auth"
	"github.com/resourceshare-ph/apiserver/internal/blob"
	"github.com/resourceshare-ph/apiserver/internal/directory"
	"github.com/resourceshare-ph/apiserver/internal/events"
	"github.com/resourceshare-ph/apiserver/internal/handlers"
	"github.com/resourceshare-ph/apiserver/internal/kv"
	"github.com/resourceshare-ph/apiserver/internal/records"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
)

// Server wraps the HTTP server and the wired component graph.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	publisher  *events.Publisher
	source     blob.Fetcher
}

// New wires the full component graph: kv store, bulk source, user
// directory, auth manager, record store, event publisher, router.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	store, err := kv.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}

	source, err := OpenBulkSource(ctx, cfg.Bulk)
	if err != nil {
		return nil, fmt.Errorf("open bulk source: %w", err)
	}
	loader := tabular.NewLoader(source, log)

	backend, err := openEventsBackend(ctx, cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("open events backend: %w", err)
	}
	publisher := events.NewPublisher(backend, log)

	dir := directory.New(loader, store, log)
	manager := auth.NewManager(dir, store, publisher, log, cfg.TokenTTL)
	manager.Refresh(ctx)

	recordStore := records.NewStore(store, publisher, log)
	recordStore.MergeAllBulk(ctx, loader)

	authHandler := handlers.NewAuthHandler(manager, cfg.JWTSecret, cfg.TokenTTL)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(log),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, manager, cfg.JWTSecret, cfg.TokenTTL)
	})
	router.Route("/api/users", func(r chi.Router) {
		handlers.UsersRouter(r, dir, log)
	})
	router.Group(func(r chi.Router) {
		r.Use(authHandler.RequireAuth)
		handlers.RecordsRouter(r, recordStore)
		r.Route("/export", func(r chi.Router) {
			handlers.ExportRouter(r, recordStore, dir, log)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		publisher:  publisher,
		source:     source,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown, releasing the event publisher
// and any blob backend holding a connection.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if closer, ok := s.source.(io.Closer); ok {
		_ = closer.Close()
	}
	return s.httpServer.Close()
}

// OpenBulkSource opens the configured seed asset backend. Shared with
// the seed and export commands.
func OpenBulkSource(ctx context.Context, cfg config.BulkConfig) (blob.Fetcher, error) {
	switch cfg.Backend {
	case "local":
		return blob.NewLocalDir(cfg.Dir)
	case "minio":
		return blob.NewMinioClient(cfg.Minio)
	case "gcs":
		return blob.NewGCSClient(ctx, cfg.GCS)
	case "none", "":
		return blob.Empty{}, nil
	default:
		return nil, fmt.Errorf("unknown bulk backend %q", cfg.Backend)
	}
}

func openEventsBackend(ctx context.Context, cfg config.EventsConfig) (events.Backend, error) {
	switch cfg.Backend {
	case "rabbitmq":
		return events.NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return events.NewPubSubClient(ctx, cfg.PubSub)
	case "none", "":
		return events.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
