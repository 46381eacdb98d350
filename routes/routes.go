package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yash560/3not3-server/handlers"
)

func SetupRoutes(
	router *chi.Mux,
	allowedOrigins []string,
	tournamentHandler *handlers.TournamentHandler,
	teamHandler *handlers.TeamHandler,
	roundHandler *handlers.RoundHandler,
	bracketHandler *handlers.BracketHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/teams", func(r chi.Router) {
		r.Get("/", teamHandler.ListHandler)
		r.Post("/", teamHandler.CreateHandler)
		r.Get("/{teamID}", teamHandler.GetByIDHandler)
		r.Delete("/{teamID}", teamHandler.DeleteHandler)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Post("/", tournamentHandler.CreateHandler)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", tournamentHandler.GetByIDHandler)
			r.Patch("/status", tournamentHandler.UpdateStatusHandler)
			r.Delete("/", tournamentHandler.DeleteHandler)

			r.Post("/teams", tournamentHandler.JoinHandler)
			r.Delete("/teams/{teamID}", tournamentHandler.LeaveHandler)

			r.Route("/rounds", func(r chi.Router) {
				r.Post("/", roundHandler.CreateHandler)
				r.Route("/{roundNumber}", func(r chi.Router) {
					r.Delete("/", roundHandler.DeleteHandler)
					r.Get("/groups", roundHandler.GetGroupsHandler)
					r.Post("/groups", roundHandler.GenerateGroupsHandler)
				})
			})

			r.Post("/bracket", bracketHandler.CreateHandler)
		})
	})

	router.Route("/groups/{groupID}", func(r chi.Router) {
		r.Patch("/", roundHandler.UpdateGroupDetailsHandler)
		r.Patch("/slots/{slot}/scores", roundHandler.UpdateSlotScoresHandler)
	})

	router.Route("/brackets/{bracketID}", func(r chi.Router) {
		r.Get("/", bracketHandler.GetByIDHandler)
		r.Patch("/matches/{matchNumber}", bracketHandler.UpdateMatchHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
