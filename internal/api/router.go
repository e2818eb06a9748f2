package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trafine/internal/api/handlers/http/admin"
	"trafine/internal/api/handlers/http/public"
	"trafine/internal/api/handlers/http/system"
	"trafine/internal/config"
	"trafine/internal/middleware"
	"trafine/internal/service"
)

type Server struct {
	logger *slog.Logger
	router *chi.Mux
	cfg    config.Config
}

// NewServer builds the HTTP surface. ctx bounds the background goroutines
// owned by the middleware stack.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, svc *service.Service, checks map[string]system.Check) *Server {
	adminHandler := admin.NewHandler(logger, svc.StatsService)
	publicHandler := public.NewHandler(logger, svc.TrafficService, svc.LifecycleService)
	systemHandler := system.NewHandler(logger, checks)

	r := InitRouter(ctx, cfg, adminHandler, publicHandler, systemHandler, logger)

	return &Server{
		logger: logger,
		router: r,
		cfg:    *cfg,
	}
}

func InitRouter(
	ctx context.Context,
	cfg *config.Config,
	adminHandler *admin.Handler,
	publicHandler *public.Handler,
	systemHandler *system.Handler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewMux()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		// ADMIN
		api.Route("/admin", func(ar chi.Router) {
			ar.Use(middleware.APIKey(cfg.APIKey))
			ar.Use(middleware.Limit(ctx, 2, 5, 10*time.Minute, logger))

			ar.Get("/stats", adminHandler.AdminStats)
		})

		// PUBLIC
		api.Route("/traffic", func(tr chi.Router) {
			tr.Use(middleware.Limit(ctx, 10, 20, 5*time.Minute, logger))
			tr.Use(middleware.Identity(cfg.APIKey))

			tr.Get("/info", publicHandler.TrafficInfo)
			tr.Get("/incidents", publicHandler.TrafficIncidents)

			tr.Post("/report", publicHandler.TrafficReport)
			tr.Get("/reports", publicHandler.TrafficReports)
			tr.Get("/reports/{id}", publicHandler.TrafficReportGet)

			tr.Post("/validate/{id}", publicHandler.TrafficValidate)
			tr.Post("/invalidate/{id}", publicHandler.TrafficInvalidate)
			tr.Post("/resolve/{id}", publicHandler.TrafficResolve)
		})

		// SYSTEM
		api.Get("/health", systemHandler.SystemHealth)
	})

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Http.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Http.ReadTimeout,
		WriteTimeout: s.cfg.Http.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting HTTP server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", s.cfg.Http.ReadTimeout),
			slog.Duration("write_timeout", s.cfg.Http.WriteTimeout),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ListenAndServe error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server", slog.String("reason", ctx.Err().Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		return err
	}
}
