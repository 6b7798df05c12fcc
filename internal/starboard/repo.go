package starboard

import (
	"context"
	"time"

	"github.com/hazelline/communitybot-backend/pkg/db"
	"github.com/hazelline/communitybot-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository encapsulates starboard persistence. Each method is a single
// statement; the claim/settle/release trio implements the claim-check around
// mirror sends so concurrent reaction events converge on one create call.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a starboard repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertConfig inserts or replaces the guild's starboard configuration.
func (r *Repository) UpsertConfig(ctx context.Context, cfg *models.StarboardGuildConfig) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Exec(`INSERT INTO starboard_configs (guild_id, channel_id, star_threshold, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (guild_id) DO UPDATE SET channel_id = excluded.channel_id, star_threshold = excluded.star_threshold, updated_at = excluded.updated_at`,
			cfg.GuildID, cfg.ChannelID, cfg.StarThreshold, now, now).
		Error
}

// GetConfig loads the guild's starboard configuration.
func (r *Repository) GetConfig(ctx context.Context, guildID int64) (models.StarboardGuildConfig, error) {
	var cfg models.StarboardGuildConfig
	err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		First(&cfg).
		Error
	return cfg, err
}

// DeleteConfig removes the guild's configuration. Returns false when the
// starboard was not enabled.
func (r *Repository) DeleteConfig(ctx context.Context, guildID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Delete(&models.StarboardGuildConfig{})
	return result.RowsAffected > 0, result.Error
}

// GetStarred loads the tracking row for a source message.
func (r *Repository) GetStarred(ctx context.Context, sourceMessageID int64) (models.StarredMessage, error) {
	var row models.StarredMessage
	err := r.db.WithContext(ctx).
		Where("source_message_id = ?", sourceMessageID).
		First(&row).
		Error
	return row, err
}

// InsertClaimed creates the tracking row with the posting flag already held.
// Returns false when another handler inserted the row first.
func (r *Repository) InsertClaimed(ctx context.Context, row *models.StarredMessage) (bool, error) {
	row.MirrorMessageID = nil
	row.Posting = true
	err := r.db.WithContext(ctx).Create(row).Error
	if err != nil {
		if db.IsUniqueViolation(err, "starred_messages.source_message_id") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Claim takes the posting flag on an existing row whose mirror send
// previously failed. Returns false when the claim is already held or a
// mirror already exists.
func (r *Repository) Claim(ctx context.Context, sourceMessageID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Exec(`UPDATE starred_messages SET posting = 1, updated_at = ? WHERE source_message_id = ? AND posting = 0 AND mirror_message_id IS NULL`,
			time.Now().UTC(), sourceMessageID)
	return result.RowsAffected > 0, result.Error
}

// SettleMirror records the created mirror message and releases the claim.
func (r *Repository) SettleMirror(ctx context.Context, sourceMessageID, mirrorMessageID int64, starCount int) error {
	return r.db.WithContext(ctx).
		Exec(`UPDATE starred_messages SET mirror_message_id = ?, star_count = ?, posting = 0, updated_at = ? WHERE source_message_id = ?`,
			mirrorMessageID, starCount, time.Now().UTC(), sourceMessageID).
		Error
}

// ReleaseClaim clears the posting flag after a failed mirror send, leaving
// the row postable again on the next event.
func (r *Repository) ReleaseClaim(ctx context.Context, sourceMessageID int64) error {
	return r.db.WithContext(ctx).
		Exec(`UPDATE starred_messages SET posting = 0, updated_at = ? WHERE source_message_id = ?`,
			time.Now().UTC(), sourceMessageID).
		Error
}

// UpdateCount stores the latest observed star count.
func (r *Repository) UpdateCount(ctx context.Context, sourceMessageID int64, starCount int) error {
	return r.db.WithContext(ctx).
		Exec(`UPDATE starred_messages SET star_count = ?, updated_at = ? WHERE source_message_id = ?`,
			starCount, time.Now().UTC(), sourceMessageID).
		Error
}

// DeleteStarred drops the tracking row.
func (r *Repository) DeleteStarred(ctx context.Context, sourceMessageID int64) error {
	return r.db.WithContext(ctx).
		Where("source_message_id = ?", sourceMessageID).
		Delete(&models.StarredMessage{}).
		Error
}

// IsMirror reports whether the given message id is a mirror the bot posted.
func (r *Repository) IsMirror(ctx context.Context, messageID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StarredMessage{}).
		Where("mirror_message_id = ?", messageID).
		Count(&count).
		Error
	return count > 0, err
}
