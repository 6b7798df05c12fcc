package starboard

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/hazelline/communitybot-backend/pkg/db/models"
	"github.com/hazelline/communitybot-backend/pkg/discord"
	pkgerrors "github.com/hazelline/communitybot-backend/pkg/errors"
	"github.com/hazelline/communitybot-backend/pkg/logger"
	"github.com/hazelline/communitybot-backend/pkg/redis"
	"gorm.io/gorm"
)

const (
	// DefaultThreshold applies when an admin enables the starboard without
	// picking a star count.
	DefaultThreshold = 3

	minThreshold = 1
	maxThreshold = 100

	configCacheScope = "starboard-config"
)

// Gateway is the messaging surface the engine drives. *discord.Client
// satisfies it; tests substitute a fake.
type Gateway interface {
	Message(ctx context.Context, channelID, messageID int64) (*discord.Message, error)
	Send(ctx context.Context, channelID int64, payload discord.SendMessage) (*discord.Message, error)
	Edit(ctx context.Context, channelID, messageID int64, payload discord.EditMessage) error
	Delete(ctx context.Context, channelID, messageID int64) error
	BotUserID() int64
}

// ConfigCache is the subset of the redis client used on the hot reaction
// path: guild configs are cached and each posted mirror bumps a per-guild
// counter. A nil cache disables both.
type ConfigCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	CacheKey(scope, id string) string
	CounterKey(name string) string
}

// ServiceParams groups dependencies for the starboard service.
type ServiceParams struct {
	Repo     *Repository
	Gateway  Gateway
	Cache    ConfigCache
	Logger   *logger.Logger
	CacheTTL time.Duration
}

// Service reacts to star reaction events and manages the per-guild config.
type Service interface {
	OnReactionAdd(ctx context.Context, event ReactionEvent) error
	OnReactionRemove(ctx context.Context, event ReactionEvent) error
	Enable(ctx context.Context, guildID, channelID int64, threshold int) (ConfigDTO, error)
	Disable(ctx context.Context, guildID int64) error
	Config(ctx context.Context, guildID int64) (ConfigDTO, error)
}

type service struct {
	repo     *Repository
	gateway  Gateway
	cache    ConfigCache
	logg     *logger.Logger
	cacheTTL time.Duration
}

// NewService builds a starboard service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "starboard repo is required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &service{
		repo:     params.Repo,
		gateway:  params.Gateway,
		cache:    params.Cache,
		logg:     params.Logger,
		cacheTTL: ttl,
	}, nil
}

// OnReactionAdd promotes a message onto the starboard once its live star
// count crosses the guild threshold, and keeps the mirror's count fresh.
func (s *service) OnReactionAdd(ctx context.Context, event ReactionEvent) error {
	if event.Emoji != StarEmoji {
		return nil
	}

	cfg, enabled, err := s.guildConfig(ctx, event.GuildID)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	logCtx := s.logg.WithMessageID(s.logg.WithGuildID(ctx, event.GuildID), event.MessageID)

	msg, err := s.gateway.Message(ctx, event.ChannelID, event.MessageID)
	if err != nil {
		if discord.IsNotFound(err) {
			s.logg.Info(logCtx, "source message gone, skipping")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch source message")
	}

	// never re-star the bot's own mirror in the starboard channel
	if msg.Author.ID.Int64() == s.gateway.BotUserID() && event.ChannelID == cfg.ChannelID {
		return nil
	}
	// mirrors posted before a channel move are still mirrors
	isMirror, err := s.repo.IsMirror(ctx, event.MessageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check mirror")
	}
	if isMirror {
		return nil
	}

	count := msg.ReactionCount(StarEmoji)

	row, err := s.repo.GetStarred(ctx, event.MessageID)
	tracked := true
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load starred message")
		}
		tracked = false
	}

	if count < cfg.StarThreshold {
		return nil
	}

	switch {
	case !tracked:
		claimed, err := s.repo.InsertClaimed(ctx, &models.StarredMessage{
			SourceMessageID: event.MessageID,
			GuildID:         event.GuildID,
			SourceChannelID: event.ChannelID,
			StarCount:       count,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "track starred message")
		}
		if !claimed {
			return nil
		}
		s.postMirror(logCtx, cfg, msg, count)

	case row.MirrorMessageID != nil:
		if err := s.repo.UpdateCount(ctx, event.MessageID, count); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update star count")
		}
		s.editMirror(logCtx, cfg, *row.MirrorMessageID, msg, count)

	case !row.Posting:
		// a previous mirror send failed; retake the claim and retry
		claimed, err := s.repo.Claim(ctx, event.MessageID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim mirror send")
		}
		if !claimed {
			return nil
		}
		s.postMirror(logCtx, cfg, msg, count)

	default:
		// send presumed in flight
	}

	return nil
}

// OnReactionRemove re-reads the live count and demotes the message off the
// starboard once it drops below threshold.
func (s *service) OnReactionRemove(ctx context.Context, event ReactionEvent) error {
	if event.Emoji != StarEmoji {
		return nil
	}

	cfg, enabled, err := s.guildConfig(ctx, event.GuildID)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	row, err := s.repo.GetStarred(ctx, event.MessageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load starred message")
	}

	logCtx := s.logg.WithMessageID(s.logg.WithGuildID(ctx, event.GuildID), event.MessageID)

	msg, err := s.gateway.Message(ctx, event.ChannelID, event.MessageID)
	if err != nil {
		if discord.IsNotFound(err) {
			s.logg.Info(logCtx, "source message gone, skipping")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch source message")
	}

	count := msg.ReactionCount(StarEmoji)

	if count >= cfg.StarThreshold {
		if err := s.repo.UpdateCount(ctx, event.MessageID, count); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update star count")
		}
		if row.MirrorMessageID != nil {
			s.editMirror(logCtx, cfg, *row.MirrorMessageID, msg, count)
		}
		return nil
	}

	if row.MirrorMessageID != nil {
		if err := s.gateway.Delete(ctx, cfg.ChannelID, *row.MirrorMessageID); err != nil && !discord.IsNotFound(err) {
			// keep the row so the next event retries the delete
			s.logg.Error(logCtx, "mirror delete failed", err)
			return nil
		}
	}

	if err := s.repo.DeleteStarred(ctx, event.MessageID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete starred message")
	}
	return nil
}

// postMirror sends the mirror message under a held claim. Gateway failures
// release the claim and are swallowed, the next event retries.
func (s *service) postMirror(ctx context.Context, cfg ConfigDTO, msg *discord.Message, count int) {
	sourceID := msg.ID.Int64()

	mirror, err := s.gateway.Send(ctx, cfg.ChannelID, mirrorPayload(msg, count))
	if err != nil {
		s.logg.Error(ctx, "mirror send failed", err)
		if releaseErr := s.repo.ReleaseClaim(ctx, sourceID); releaseErr != nil {
			s.logg.Error(ctx, "release posting claim failed", releaseErr)
		}
		return
	}

	if err := s.repo.SettleMirror(ctx, sourceID, mirror.ID.Int64(), count); err != nil {
		s.logg.Error(ctx, "settle mirror failed", err)
	}
	s.bumpMirrorCounter(ctx, cfg.GuildID)
}

// bumpMirrorCounter tracks the running total of mirrors posted per guild.
func (s *service) bumpMirrorCounter(ctx context.Context, guildID int64) {
	if s.cache == nil {
		return
	}
	key := s.cache.CounterKey("starboard-mirrors:" + strconv.FormatInt(guildID, 10))
	if _, err := s.cache.Incr(ctx, key); err != nil {
		s.logg.Error(ctx, "mirror counter bump failed", err)
	}
}

func (s *service) editMirror(ctx context.Context, cfg ConfigDTO, mirrorID int64, msg *discord.Message, count int) {
	if err := s.gateway.Edit(ctx, cfg.ChannelID, mirrorID, mirrorEdit(msg, count)); err != nil {
		s.logg.Error(ctx, "mirror edit failed", err)
	}
}

// Enable upserts the guild configuration. A zero threshold falls back to the
// default; out-of-range values are clamped.
func (s *service) Enable(ctx context.Context, guildID, channelID int64, threshold int) (ConfigDTO, error) {
	if guildID == 0 || channelID == 0 {
		return ConfigDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "guild and channel are required")
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < minThreshold {
		threshold = minThreshold
	}
	if threshold > maxThreshold {
		threshold = maxThreshold
	}

	cfg := models.StarboardGuildConfig{
		GuildID:       guildID,
		ChannelID:     channelID,
		StarThreshold: threshold,
	}
	if err := s.repo.UpsertConfig(ctx, &cfg); err != nil {
		return ConfigDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save starboard config")
	}
	s.invalidateConfigCache(ctx, guildID)

	return ConfigDTO{
		GuildID:       guildID,
		ChannelID:     channelID,
		StarThreshold: threshold,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

// Disable removes the guild configuration.
func (s *service) Disable(ctx context.Context, guildID int64) error {
	deleted, err := s.repo.DeleteConfig(ctx, guildID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete starboard config")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "starboard is not enabled")
	}
	s.invalidateConfigCache(ctx, guildID)
	return nil
}

// Config returns the guild configuration.
func (s *service) Config(ctx context.Context, guildID int64) (ConfigDTO, error) {
	cfg, enabled, err := s.guildConfig(ctx, guildID)
	if err != nil {
		return ConfigDTO{}, err
	}
	if !enabled {
		return ConfigDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "starboard is not enabled")
	}
	return cfg, nil
}

// guildConfig reads the config through the cache. A missing config is a
// normal outcome, not an error.
func (s *service) guildConfig(ctx context.Context, guildID int64) (ConfigDTO, bool, error) {
	key := ""
	if s.cache != nil {
		key = s.cache.CacheKey(configCacheScope, strconv.FormatInt(guildID, 10))
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var cached ConfigDTO
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return cached, true, nil
			}
		} else if !redis.IsNil(err) {
			s.logg.Error(ctx, "config cache read failed", err)
		}
	}

	row, err := s.repo.GetConfig(ctx, guildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ConfigDTO{}, false, nil
		}
		return ConfigDTO{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load starboard config")
	}

	cfg := ConfigDTO{
		GuildID:       row.GuildID,
		ChannelID:     row.ChannelID,
		StarThreshold: row.StarThreshold,
		UpdatedAt:     row.UpdatedAt,
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(cfg); err == nil {
			if err := s.cache.Set(ctx, key, encoded, s.cacheTTL); err != nil {
				s.logg.Error(ctx, "config cache write failed", err)
			}
		}
	}
	return cfg, true, nil
}

func (s *service) invalidateConfigCache(ctx context.Context, guildID int64) {
	if s.cache == nil {
		return
	}
	key := s.cache.CacheKey(configCacheScope, strconv.FormatInt(guildID, 10))
	if err := s.cache.Del(ctx, key); err != nil {
		s.logg.Error(ctx, "config cache invalidation failed", err)
	}
}
