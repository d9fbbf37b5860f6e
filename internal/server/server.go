// Package server wires the post store, cache and HTTP routes into a running
// API server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hungpv1995/blog-api/internal/cache"
	"github.com/hungpv1995/blog-api/internal/config"
	"github.com/hungpv1995/blog-api/internal/handlers"
	"github.com/hungpv1995/blog-api/internal/logger"
	"github.com/hungpv1995/blog-api/internal/models"
	"github.com/hungpv1995/blog-api/internal/repository"
)

type Server struct {
	cfg        *config.Config
	log        logger.Logger
	store      repository.PostStore
	router     *mux.Router
	registry   *prometheus.Registry
	listener   net.Listener
	httpServer *http.Server

	serveErr  chan error
	closeOnce sync.Once
	closeErr  error
}

// RunServer opens the configured store and starts serving in the background.
// It returns once the listener is bound.
func RunServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log := logger.FromContext(ctx)

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
	}

	s := New(cfg, store, log)
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.serveErr = make(chan error, 1)

	go func() {
		err := s.httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			s.serveErr <- err
		}
		close(s.serveErr)
	}()

	log.Info("Server started", "url", s.URL())
	return s, nil
}

// New builds a server around an already opened store without listening.
// The returned server is usable as an http.Handler.
func New(cfg *config.Config, store repository.PostStore, log logger.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	s := &Server{
		cfg:      cfg,
		log:      log,
		store:    store,
		registry: registry,
	}
	s.router = s.buildRouter()
	return s
}

// OpenStore opens the configured store and, when a Redis address is set,
// wraps it in the post cache so writes and drops also invalidate cached posts.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.PostStore, error) {
	store, err := repository.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if cfg.Redis.Addr == "" {
		return store, nil
	}

	rc := cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}))
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	log.Info("Post cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	return cache.NewCachedPostStore(store, rc, cfg.Redis.TTL, log), nil
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	metrics := newHTTPMetrics(s.registry)
	r.Use(requestLogger(s.log), metrics.instrument)

	handlers.NewPostHandler(s.store, s.log).RegisterRoutes(r)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Warn("Health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Message: "store unavailable"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// URL returns the base URL the server listens on
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	addr := s.listener.Addr().(*net.TCPAddr)
	host := addr.IP.String()
	if addr.IP.IsUnspecified() {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, fmt.Sprint(addr.Port))
}

// Store returns the post store the server is using
func (s *Server) Store() repository.PostStore {
	return s.store
}

// Done is closed when the server stops serving; it carries the serve error if any
func (s *Server) Done() <-chan error {
	return s.serveErr
}

// Close shuts the HTTP server down within the configured timeout and then
// closes the store. It is safe to call more than once.
func (s *Server) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
			}
		}
		if err := s.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
		s.closeErr = errors.Join(errs...)
		s.log.Info("Server stopped")
	})
	return s.closeErr
}
