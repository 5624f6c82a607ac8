package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/grantjohn/internal/clients"
	"github.com/dropDatabas3/grantjohn/internal/security/session"
	"github.com/dropDatabas3/grantjohn/internal/service/oauth"
	"github.com/dropDatabas3/grantjohn/internal/service/users"
)

// Deps agrupa las dependencias del router.
type Deps struct {
	OAuth   *oauth.Service
	Users   *users.Service
	Auth    session.Authenticator
	Clients *clients.Registry

	// Ping chequea el storage para /readyz. nil significa siempre listo
	// (driver memory).
	Ping func(ctx context.Context) error

	Metrics prometheus.Registerer
}

// NewRouter arma el router chi con la cadena de middlewares base y todas las
// rutas del servicio.
func NewRouter(d Deps) (http.Handler, error) {
	metricsHandler, err := RegisterMetrics(d.Metrics)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(WithRecover)
	r.Use(WithRequestID)
	r.Use(WithSecurityHeaders)
	r.Use(WithMetrics)
	r.Use(WithLogging)

	r.Handle("/metrics", metricsHandler)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyz(d.Ping))

	newOAuthHandler(d.OAuth).Register(r)
	newUsersHandler(d.Users, d.Auth, d.Clients).Register(r)

	return r, nil
}

func readyz(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "storage unavailable"})
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
