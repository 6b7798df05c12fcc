package controllers

import (
	"net/http"

	"github.com/hazelline/communitybot-backend/api/middleware"
	"github.com/hazelline/communitybot-backend/api/responses"
	"github.com/hazelline/communitybot-backend/api/validators"
	"github.com/hazelline/communitybot-backend/internal/starboard"
	pkgerrors "github.com/hazelline/communitybot-backend/pkg/errors"
	"github.com/hazelline/communitybot-backend/pkg/logger"
)

type starboardEnablePayload struct {
	ChannelID     int64 `json:"channel_id,string" validate:"required"`
	StarThreshold int   `json:"star_threshold" validate:"omitempty,min=1,max=100"`
}

// StarboardEnable upserts the guild's starboard configuration. The guild
// scope comes from the admin token, not the body.
func StarboardEnable(svc starboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "starboard service unavailable"))
			return
		}

		guildID := middleware.GuildIDFromContext(ctx)
		if guildID == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "guild context missing"))
			return
		}

		var payload starboardEnablePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cfg, err := svc.Enable(ctx, guildID, payload.ChannelID, payload.StarThreshold)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, cfg)
	}
}

// StarboardDisable removes the guild's starboard configuration.
func StarboardDisable(svc starboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "starboard service unavailable"))
			return
		}

		guildID := middleware.GuildIDFromContext(ctx)
		if guildID == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "guild context missing"))
			return
		}

		if err := svc.Disable(ctx, guildID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "disabled"})
	}
}

// StarboardConfig returns the guild's starboard configuration.
func StarboardConfig(svc starboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "starboard service unavailable"))
			return
		}

		guildID, err := validators.ParseSnowflakeQuery(r, "guild_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cfg, err := svc.Config(ctx, guildID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, cfg)
	}
}
