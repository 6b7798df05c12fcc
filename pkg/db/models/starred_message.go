package models

import "time"

// StarredMessage tracks a source message that crossed the star threshold and
// the mirror posted for it on the starboard channel.
//
// MirrorMessageID is nil while no mirror exists; Posting marks an in-flight
// mirror send so concurrent reaction events converge on a single create call
// (claim-check). A row with a nil mirror id and Posting=false is a failed
// send awaiting recovery on the next event.
type StarredMessage struct {
	SourceMessageID int64     `gorm:"column:source_message_id;primaryKey;autoIncrement:false"`
	GuildID         int64     `gorm:"column:guild_id;not null;index"`
	SourceChannelID int64     `gorm:"column:source_channel_id;not null"`
	MirrorMessageID *int64    `gorm:"column:mirror_message_id"`
	StarCount       int       `gorm:"column:star_count;not null"`
	Posting         bool      `gorm:"column:posting;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName implements gorm's Tabler.
func (StarredMessage) TableName() string {
	return "starred_messages"
}
