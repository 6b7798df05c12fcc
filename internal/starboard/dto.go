package starboard

import "time"

// ReactionEvent is one reaction add/remove notification from the gateway
// shard, decoded from the event envelope's payload.
type ReactionEvent struct {
	GuildID   int64  `json:"guild_id"`
	ChannelID int64  `json:"channel_id"`
	MessageID int64  `json:"message_id"`
	UserID    int64  `json:"user_id"`
	Emoji     string `json:"emoji"`
}

// ConfigDTO is the starboard configuration for one guild.
type ConfigDTO struct {
	GuildID       int64     `json:"guild_id"`
	ChannelID     int64     `json:"channel_id"`
	StarThreshold int       `json:"star_threshold"`
	UpdatedAt     time.Time `json:"updated_at"`
}
