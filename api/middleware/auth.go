package middleware

import (
	"net/http"
	"strings"

	"github.com/hazelline/communitybot-backend/api/responses"
	pkgAuth "github.com/hazelline/communitybot-backend/pkg/auth"
	"github.com/hazelline/communitybot-backend/pkg/config"
	pkgerrors "github.com/hazelline/communitybot-backend/pkg/errors"
	"github.com/hazelline/communitybot-backend/pkg/logger"
)

// AdminAuth validates the bearer token minted for guild admins and seeds the
// request context with the acting user and guild scope.
func AdminAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAdminToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.UserID == 0 || claims.GuildID == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "incomplete token claims"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			ctx = WithGuildID(ctx, claims.GuildID)

			if logg != nil {
				ctx = logg.WithGuildID(logg.WithUserID(ctx, claims.UserID), claims.GuildID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
