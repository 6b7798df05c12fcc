package models

import "time"

// StarboardGuildConfig stores the per-guild starboard settings. One row per
// guild; replaced wholesale when an admin re-enables the feature.
type StarboardGuildConfig struct {
	GuildID       int64     `gorm:"column:guild_id;primaryKey;autoIncrement:false"`
	ChannelID     int64     `gorm:"column:channel_id;not null"`
	StarThreshold int       `gorm:"column:star_threshold;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName implements gorm's Tabler.
func (StarboardGuildConfig) TableName() string {
	return "starboard_configs"
}
