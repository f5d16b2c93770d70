package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/grantdesk/internal/adapters/metrics"
)

type Handlers struct {
	Auth          *AuthHandler
	User          *UserHandler
	Account       *AccountHandler
	Restoration   *RestorationHandler
	Authenticator *Authenticator
}

func NewHandler(h Handlers, allowedOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/oauth", func(r chi.Router) {
		r.Post("/callback", h.Auth.GoogleCallback)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Authenticator.Middleware)

		r.Route("/me", func(r chi.Router) {
			r.Get("/", h.User.GetMe)
			r.Delete("/", h.Account.Delete)
			r.Get("/account-status", h.Account.Status)
		})

		r.Route("/restoration-requests", func(r chi.Router) {
			r.Post("/", h.Restoration.Request)
			r.Get("/me", h.Restoration.GetMine)
			r.Post("/{id}/appeal", h.Restoration.Appeal)
		})

		r.Route("/admin/restoration-requests", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.Restoration.List)
			r.Post("/{id}/approve", h.Restoration.Approve)
			r.Post("/{id}/reject", h.Restoration.Reject)
		})
	})

	return r
}
