// File: internal/infra/web/server.go
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/infra/events"
	"jobsieve/internal/usecase"
)

// Server is the operator-facing HTTP API: postings browsing, scan trigger,
// blacklist management and the live event stream.
type Server struct {
	postingUC   *usecase.PostingUseCase
	scanUC      *usecase.ScanUseCase
	blacklistUC *usecase.BlacklistUseCase
	queue       adapter.TaskQueue
	hub         *events.Hub
	auth        *AuthManager
	log         *zerolog.Logger

	http *http.Server
}

func NewServer(
	postingUC *usecase.PostingUseCase,
	scanUC *usecase.ScanUseCase,
	blacklistUC *usecase.BlacklistUseCase,
	queue adapter.TaskQueue,
	hub *events.Hub,
	auth *AuthManager,
	port int,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		postingUC:   postingUC,
		scanUC:      scanUC,
		blacklistUC: blacklistUC,
		queue:       queue,
		hub:         hub,
		auth:        auth,
		log:         logger,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.loginHandler())

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)

			r.Get("/postings", s.listPostingsHandler())
			r.Get("/postings/{id}", s.getPostingHandler())
			r.Delete("/postings/{id}", s.deletePostingHandler())

			r.Post("/scan", s.triggerScanHandler())

			r.Get("/blacklist", s.getBlacklistHandler())
			r.Put("/blacklist", s.replaceBlacklistHandler())

			r.Get("/tasks/dead", s.deadTasksHandler())
			r.Get("/tasks/depth", s.queueDepthHandler())

			r.Get("/events", s.eventsHandler())
		})
	})
	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
