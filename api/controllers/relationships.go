package controllers

import (
	"net/http"

	"github.com/hazelline/communitybot-backend/api/responses"
	"github.com/hazelline/communitybot-backend/api/validators"
	"github.com/hazelline/communitybot-backend/internal/relationships"
	pkgerrors "github.com/hazelline/communitybot-backend/pkg/errors"
	"github.com/hazelline/communitybot-backend/pkg/logger"
)

type makeRelationshipPayload struct {
	GuildID        int64   `json:"guild_id,string" validate:"required"`
	CallerID       int64   `json:"caller_id,string" validate:"required"`
	InviteeID      int64   `json:"invitee_id,string" validate:"required"`
	InviteeIsBot   bool    `json:"invitee_is_bot"`
	Type           string  `json:"type" validate:"required"`
	RelationshipID *int64  `json:"relationship_id,string,omitempty"`
	Emoji          *string `json:"emoji,omitempty"`
	Description    *string `json:"description,omitempty"`
}

type inviteResponsePayload struct {
	GuildID        int64 `json:"guild_id,string" validate:"required"`
	UserID         int64 `json:"user_id,string" validate:"required"`
	RelationshipID int64 `json:"relationship_id,string" validate:"required"`
}

type endRelationshipPayload struct {
	GuildID  int64  `json:"guild_id,string" validate:"required"`
	CallerID int64  `json:"caller_id,string" validate:"required"`
	TargetID int64  `json:"target_id,string" validate:"required"`
	Type     string `json:"type" validate:"required"`
}

// RelationshipMake resolves or creates a group and attaches a pending invite.
func RelationshipMake(svc relationships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "relationship service unavailable"))
			return
		}

		var payload makeRelationshipPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Make(ctx, relationships.MakeParams{
			GuildID:        payload.GuildID,
			CallerID:       payload.CallerID,
			InviteeID:      payload.InviteeID,
			InviteeIsBot:   payload.InviteeIsBot,
			RawType:        payload.Type,
			RelationshipID: payload.RelationshipID,
			Emoji:          payload.Emoji,
			Description:    payload.Description,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// RelationshipAccept activates the caller's pending invite.
func RelationshipAccept(svc relationships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "relationship service unavailable"))
			return
		}

		var payload inviteResponsePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		group, err := svc.Accept(ctx, payload.GuildID, payload.RelationshipID, payload.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, group)
	}
}

// RelationshipDecline declines the caller's pending invite.
func RelationshipDecline(svc relationships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "relationship service unavailable"))
			return
		}

		var payload inviteResponsePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Decline(ctx, payload.GuildID, payload.RelationshipID, payload.UserID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "declined"})
	}
}

// RelationshipLeave removes the caller from a group, dissolving it when
// fewer than two members remain.
func RelationshipLeave(svc relationships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "relationship service unavailable"))
			return
		}

		var payload inviteResponsePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Leave(ctx, payload.GuildID, payload.RelationshipID, payload.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// RelationshipEnd ends the single group of the given type shared with the target.
func RelationshipEnd(svc relationships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "relationship service unavailable"))
			return
		}

		var payload endRelationshipPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.End(ctx, payload.GuildID, payload.Type, payload.CallerID, payload.TargetID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// RelationshipsForUser lists the user's active groups.
func RelationshipsForUser(svc relationships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "relationship service unavailable"))
			return
		}

		userID, err := validators.ParseSnowflakeParam(r, "userID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		guildID, err := validators.ParseSnowflakeQuery(r, "guild_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		groups, err := svc.ListForUser(ctx, guildID, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, groups)
	}
}

// RelationshipInbox lists the user's pending invites.
func RelationshipInbox(svc relationships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "relationship service unavailable"))
			return
		}

		userID, err := validators.ParseSnowflakeParam(r, "userID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		guildID, err := validators.ParseSnowflakeQuery(r, "guild_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invites, err := svc.PendingInvites(ctx, guildID, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, invites)
	}
}

// RelationshipGroups lists every active group in a guild.
func RelationshipGroups(svc relationships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "relationship service unavailable"))
			return
		}

		guildID, err := validators.ParseSnowflakeQuery(r, "guild_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		groups, err := svc.Groups(ctx, guildID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, groups)
	}
}
