package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"donationScope/internal/http/handlers"
	"donationScope/internal/middleware"
)

func NewRouter(app *handlers.App, logger *zap.Logger) stdhttp.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(logger))

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/api/donate", func(r chi.Router) {
		r.Get("/", app.DonateInfo)
		r.Get("/progress", app.Progress)
		r.Post("/progress/refresh", app.Refresh)
		r.Get("/leaderboard", app.Leaderboard)
		r.Get("/view", app.View)
	})

	r.Route("/api/cashfree", func(r chi.Router) {
		r.Post("/orders", app.CreateOrder)
		r.Post("/orders/verify", app.VerifyOrder)
		r.Post("/webhook", app.Webhook)
	})

	return r
}
