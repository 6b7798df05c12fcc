package models

import (
	"time"

	"github.com/hazelline/communitybot-backend/pkg/enums"
)

// Relationship is a typed, multi-member relationship group scoped to a guild.
type Relationship struct {
	ID          int64                    `gorm:"column:id;primaryKey;autoIncrement"`
	GuildID     int64                    `gorm:"column:guild_id;not null;index:idx_relationships_guild_type_status"`
	Type        string                   `gorm:"column:relationship_type;not null;index:idx_relationships_guild_type_status"`
	Status      enums.RelationshipStatus `gorm:"column:status;not null;index:idx_relationships_guild_type_status"`
	Emoji       *string                  `gorm:"column:emoji"`
	Description *string                  `gorm:"column:description"`
	CreatedBy   int64                    `gorm:"column:created_by;not null"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	EndedAt     *time.Time               `gorm:"column:ended_at"`
}

// TableName implements gorm's Tabler.
func (Relationship) TableName() string {
	return "relationships"
}
