package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/dvloznov/check-deposit/internal/api/handlers"
	"github.com/dvloznov/check-deposit/internal/api/middleware"
)

// RouterDeps carries everything the HTTP router needs.
type RouterDeps struct {
	Checks   *handlers.ChecksHandler
	Forwards *handlers.ForwardsHandler
	APIKeys  map[string]string
	Log      zerolog.Logger
}

// NewRouter builds the HTTP routing tree. The health endpoint is open;
// everything under /api/v1 requires an API key.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(deps.Log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.APIKeys, deps.Log))

		r.Post("/checks", deps.Checks.CreateCheck)

		r.Get("/forwards", deps.Forwards.ListForwards)
		r.Get("/forwards/{id}", deps.Forwards.GetForward)
	})

	return r
}
