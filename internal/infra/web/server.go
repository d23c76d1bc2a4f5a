// Package web serves the public share pages, health and metrics endpoints,
// and the JWT-guarded admin API.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tg-trade-suite/internal/infra/logging"
	"tg-trade-suite/internal/usecase"
)

type Server struct {
	analysisUC usecase.AnalysisUseCase
	userUC     usecase.UserUseCase
	paymentUC  usecase.PaymentUseCase
	statsUC    usecase.StatsUseCase
	auth       *AuthManager
	log        *zerolog.Logger

	http *http.Server
}

func NewServer(
	port int,
	analysisUC usecase.AnalysisUseCase,
	userUC usecase.UserUseCase,
	paymentUC usecase.PaymentUseCase,
	statsUC usecase.StatsUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		analysisUC: analysisUC,
		userUC:     userUC,
		paymentUC:  paymentUC,
		statsUC:    statsUC,
		auth:       auth,
		log:        logger,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.traceMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/share/{token}", s.handleShare)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Get("/stats", s.handleStats)
			r.Get("/users", s.handleUsersList)
			r.Get("/users/{id}", s.handleUserGet)
			r.Post("/users/{id}/credit", s.handleUserCredit)
			r.Get("/payments", s.handlePaymentsList)
		})
	})
	return r
}

// traceMiddleware tags every request with a trace id and logs the outcome.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := uuid.NewString()
		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-Id", traceID)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.With(ctx, s.log).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
