package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aleister1102/filecompare/internal/config"
	"github.com/aleister1102/filecompare/internal/dispatcher"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/aleister1102/filecompare/internal/orchestrator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// CompareService is what the HTTP handlers drive.
type CompareService interface {
	CompareFiles(ctx context.Context, a, b orchestrator.FileInput, cfg models.ComparisonConfig) (models.ComparisonResult, error)
	ParseFile(ctx context.Context, in orchestrator.FileInput) (models.ParsedInput, error)
	History(ctx context.Context) ([]models.ComparisonResult, error)
	ClearHistory(ctx context.Context) error
}

// StateReporter exposes the dispatcher lifecycle for health checks.
type StateReporter interface {
	State() dispatcher.State
}

// Server exposes the comparison engine over a JSON API.
type Server struct {
	cfg           config.ServerConfig
	defaultConfig models.ComparisonConfig
	service       CompareService
	state         StateReporter
	router        *chi.Mux
	logger        zerolog.Logger
}

// NewServer wires routes for service. defaultConfig fills fields the
// client omits from a compare request.
func NewServer(cfg config.ServerConfig, defaultConfig models.ComparisonConfig, service CompareService, state StateReporter, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:           cfg,
		defaultConfig: defaultConfig,
		service:       service,
		state:         state,
		logger:        logger.With().Str("component", "HTTPServer").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)
	s.router = r
	return s
}

// RegisterHTTP registers the API endpoints on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/compare", s.handleCompare)
		r.Post("/parse", s.handleParse)
		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleClearHistory)
		r.Get("/health", s.handleHealth)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
