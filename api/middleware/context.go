package middleware

import "context"

type contextKey string

const (
	ctxUserID  contextKey = "user_id"
	ctxGuildID contextKey = "guild_id"
)

func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxUserID).(int64); ok {
		return v
	}
	return 0
}

func GuildIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxGuildID).(int64); ok {
		return v
	}
	return 0
}

// WithUserID injects the acting user id into the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithGuildID injects the guild scope into the context for downstream handlers.
func WithGuildID(ctx context.Context, guildID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxGuildID, guildID)
}
