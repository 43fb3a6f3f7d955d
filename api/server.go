/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the mobile webview build

SECURITY NOTE:
  No authentication middleware here: the service sits behind the app
  gateway, which terminates auth and injects the user identity.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/claim-engine/engine"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, refresher *Refresher) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/users/{id}", func(r chi.Router) {
			if refresher != nil {
				// Any user-scoped request enrolls the user for polling.
				r.Use(func(next http.Handler) http.Handler {
					return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
						refresher.Track(engine.UserID(chi.URLParam(req, "id")))
						next.ServeHTTP(w, req)
					})
				})
			}
			r.Get("/claims", h.ListClaims)
			r.Get("/claims/{type}/eligibility", h.GetEligibility)
			r.Get("/claims/{type}/progress", h.GetProgress)
			r.Post("/claims/{type}", h.SubmitClaim)
			r.Get("/requests", h.ListRequests)
		})

		r.Get("/windows", h.GetWindow)

		if refresher != nil {
			r.Post("/refresh", func(w http.ResponseWriter, req *http.Request) {
				refresher.RunOnce(req.Context())
				w.WriteHeader(http.StatusAccepted)
			})
		}
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "claim eligibility engine",
			"claims":  "/api/users/{id}/claims",
			"windows": "/api/windows?claim=prayer-zuhur",
		})
	})

	return r
}
