// Пакет server — HTTP-сервер Recruit API с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/bigkaa/recruitart/internal/api/errors"
	"github.com/bigkaa/recruitart/internal/api/handlers"
	"github.com/bigkaa/recruitart/internal/api/middleware"
	"github.com/bigkaa/recruitart/internal/config"
)

// Server — HTTP-сервер Recruit API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер поверх готового роутера.
func New(cfg *config.Config, logger *slog.Logger, router http.Handler) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты и middleware.
// openapiDoc — обработчик /api/v1/openapi.json (может быть nil).
// auth — JWT middleware (nil — все запросы анонимные, для тестов).
func NewRouter(logger *slog.Logger, h *handlers.APIHandler, openapiDoc http.Handler, auth func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()
	router.NotFound(apierrors.RouteNotFound)
	router.MethodNotAllowed(apierrors.MethodNotAllowed)

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(chimw.StripSlashes)
	router.Use(chimw.Recoverer)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	health := h.Health()
	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		if openapiDoc != nil {
			r.Method(http.MethodGet, "/openapi.json", openapiDoc)
		}

		// Контракт открыт; остальные маршруты проходят через JWT middleware.
		r.Group(func(r chi.Router) {
			if auth != nil {
				r.Use(auth)
			}
			mountAPI(r, h)
		})
	})

	return router
}

// mountAPI регистрирует маршруты API.
func mountAPI(r chi.Router, h *handlers.APIHandler) {
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", h.ListJobs)
		r.Post("/", h.CreateJob)

		// Параметр вакансии во всём поддереве — job_pk.
		r.Route("/{job_pk}", func(r chi.Router) {
			r.Get("/", h.GetJob)
			r.Patch("/", h.UpdateJob)
			r.Delete("/", h.DeleteJob)
			r.Get("/applications", h.ListJobApplications)

			r.Get("/requirements", h.ListRequirements)
			r.Post("/requirements", h.CreateRequirement)
			r.Get("/requirements/{id}", h.GetRequirement)
			r.Put("/requirements/{id}", h.ReplaceRequirement)
			r.Patch("/requirements/{id}", h.PatchRequirement)
			r.Delete("/requirements/{id}", h.DeleteRequirement)
		})
	})

	r.Route("/requirements/templates", func(r chi.Router) {
		r.Get("/", h.ListTemplates)
		r.Post("/", h.CreateTemplate)
		r.Get("/{id}", h.GetTemplate)
		r.Put("/{id}", h.UpdateTemplate)
		r.Patch("/{id}", h.UpdateTemplate)
		r.Delete("/{id}", h.DeleteTemplate)
		r.Post("/{id}/apply_to_job", h.ApplyTemplate)
		r.Post("/{id}/duplicate", h.DuplicateTemplate)
		r.Post("/{id}/activate", h.ActivateTemplate)
		r.Post("/{id}/deactivate", h.DeactivateTemplate)

		r.Get("/{id}/fields", h.ListTemplateFields)
		r.Post("/{id}/fields", h.CreateTemplateField)
		r.Put("/{id}/fields/{fieldId}", h.ReplaceTemplateField)
		r.Patch("/{id}/fields/{fieldId}", h.PatchTemplateField)
		r.Delete("/{id}/fields/{fieldId}", h.DeleteTemplateField)
	})

	r.Route("/applications", func(r chi.Router) {
		r.Get("/", h.ListApplications)
		r.Post("/", h.SubmitApplication)
		// export объявлен до {id}: статический сегмент имеет приоритет.
		r.Get("/export", h.ExportApplications)
		r.Get("/{id}", h.GetApplication)
		r.Post("/{id}/status", h.UpdateApplicationStatus)
		r.Patch("/{id}/status", h.UpdateApplicationStatus)
	})

	r.Route("/admin/role-overrides", func(r chi.Router) {
		r.Get("/", h.ListRoleOverrides)
		r.Put("/{subject}", h.SetRoleOverride)
		r.Delete("/{subject}", h.DeleteRoleOverride)
	})
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. После этого выполняется graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
