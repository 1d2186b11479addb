package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	oraclehandlers "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/handlers"
	rafflehandlers "github.com/Black-And-White-Club/raffle/app/modules/raffle/infrastructure/handlers"
	"github.com/Black-And-White-Club/raffle/pkg/httpmiddleware"
)

// HTTPHandler builds the public API: the raffle and oracle routes plus a
// health probe.
func (app *App) HTTPHandler() http.Handler {
	limiter := httpmiddleware.NewIPRateLimiter(rate.Limit(app.Config.HTTP.RateLimit), app.Config.HTTP.RateBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", app.handleHealth)

	rafflehandlers.RegisterRoutes(r, app.Raffle.HTTP, app.Tokens, limiter)
	oraclehandlers.RegisterRoutes(r, app.Oracle.HTTP, app.Tokens, limiter)

	return r
}

// MetricsHandler exposes the prometheus registry.
func (app *App) MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.Obs.Registry.Prometheus, promhttp.HandlerOpts{}))
	return mux
}

func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]func(context.Context) error{
		"database": app.DB.PingContext,
		"oracle":   app.Oracle.HealthCheck,
		"raffle":   app.Raffle.HealthCheck,
	}
	status := map[string]string{}
	code := http.StatusOK
	for name, check := range checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	httpmiddleware.WriteJSON(w, code, status)
}
