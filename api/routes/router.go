package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazelline/communitybot-backend/api/controllers"
	"github.com/hazelline/communitybot-backend/api/middleware"
	"github.com/hazelline/communitybot-backend/internal/relationships"
	"github.com/hazelline/communitybot-backend/internal/starboard"
	"github.com/hazelline/communitybot-backend/pkg/config"
	"github.com/hazelline/communitybot-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	cacheP controllers.Pinger,
	relationshipService relationships.Service,
	starboardService starboard.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cacheP))
	})

	r.Route("/api/v1/relationships", func(r chi.Router) {
		r.Post("/make", controllers.RelationshipMake(relationshipService, logg))
		r.Post("/accept", controllers.RelationshipAccept(relationshipService, logg))
		r.Post("/decline", controllers.RelationshipDecline(relationshipService, logg))
		r.Post("/leave", controllers.RelationshipLeave(relationshipService, logg))
		r.Post("/end", controllers.RelationshipEnd(relationshipService, logg))
		r.Get("/user/{userID}", controllers.RelationshipsForUser(relationshipService, logg))
		r.Get("/inbox/{userID}", controllers.RelationshipInbox(relationshipService, logg))
		r.Get("/groups", controllers.RelationshipGroups(relationshipService, logg))
	})

	r.Route("/api/v1/starboard", func(r chi.Router) {
		r.Get("/config", controllers.StarboardConfig(starboardService, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.JWT, logg))
			r.Post("/config", controllers.StarboardEnable(starboardService, logg))
			r.Delete("/config", controllers.StarboardDisable(starboardService, logg))
		})
	})

	return r
}
