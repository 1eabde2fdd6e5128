package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/litian80/tcg-manager-sub000/handlers"
	"github.com/litian80/tcg-manager-sub000/middleware"
	"github.com/litian80/tcg-manager-sub000/models"
)

type Handlers struct {
	Tournament *handlers.TournamentHandler
	Roster     *handlers.RosterHandler
	Import     *handlers.ImportHandler
	Export     *handlers.ExportHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, h Handlers, auth *middleware.Authenticator, allowedOrigins []string) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	writers := middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin)

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(60 * time.Second))

		r.Route("/tournaments", func(r chi.Router) {
			r.With(auth.Optional).Get("/", h.Tournament.ListHandler)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)
				r.Use(writers)
				r.Post("/", h.Tournament.CreateHandler)
				r.Post("/import", h.Import.Import)
			})

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(auth.Optional)
					r.Get("/", h.Tournament.GetByIDHandler)
					r.Get("/matches", h.Tournament.ListMatchesHandler)
					r.Get("/standings", h.Tournament.ListStandingsHandler)
					r.Get("/roster", h.Roster.List)
				})

				r.Group(func(r chi.Router) {
					r.Use(auth.Authenticate)
					r.Use(writers)
					r.Patch("/publish", h.Tournament.PublishHandler)
					r.Get("/export", h.Export.Export)
					r.Post("/roster", h.Roster.Add)
					r.Delete("/roster/{playerID}", h.Roster.Remove)
				})
			})
		})
	})

	router.With(auth.Optional).Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)
}
