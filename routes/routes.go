package routes

import (
	"net/http"
	"time"

	"bookreview_server/controllers"
	"bookreview_server/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RateLimit configures the per-IP limit on /api routes.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// RegisterRoutes sets up the public routes and returns the /api subrouter,
// which requires a bearer token and is rate limited.
func RegisterRoutes(r *mux.Router, authenticator middleware.Authenticator, limit RateLimit) *mux.Router {
	r.Use(middleware.RequestID, middleware.Instrument)

	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")
	r.HandleFunc("/", controllers.WelcomeHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.RateLimitByIP(limit.Requests, limit.Window), middleware.RequireAuth(authenticator))
	return api
}

// RegisterSocketRoutes mounts the socket.io endpoint.
func RegisterSocketRoutes(r *mux.Router, socketServer http.Handler) {
	r.PathPrefix("/socket.io/").Handler(socketServer)
}
