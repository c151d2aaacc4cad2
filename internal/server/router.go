package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/neat/internal/config"
	"github.com/sevigo/neat/internal/server/handler"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(cfg *config.Config, svc handler.FormService, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	queueHandler := handler.NewQueueHandler(svc, logger)
	formsHandler := handler.NewFormsHandler(svc, logger)
	webhookHandler := handler.NewWebhookHandler(cfg.FizzyWebhookSecret, svc, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/queue", func(r chi.Router) {
			r.Get("/", queueHandler.Next)
			r.Get("/pending", queueHandler.Pending)
			r.Post("/{id}/submit", queueHandler.Submit)
			r.Post("/{id}/comment", queueHandler.Comment)
			r.Post("/{id}/skip", queueHandler.Skip)
		})

		r.Route("/forms", func(r chi.Router) {
			r.Get("/", formsHandler.List)
			r.Post("/", formsHandler.Create)
			r.Get("/card/{cardID}", formsHandler.GetByCard)
			r.Get("/{id}", formsHandler.Get)
			r.Put("/{id}", formsHandler.Update)
			r.Delete("/{id}", formsHandler.Delete)
			r.Post("/{id}/unskip", formsHandler.Unskip)
		})

		r.Post("/webhooks/fizzy", webhookHandler.Handle)
	})

	return r
}
