package discord

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Snowflake is a Discord ID. The HTTP API transports snowflakes as decimal
// strings to survive JSON number precision limits.
type Snowflake int64

// Int64 returns the raw ID value.
func (s Snowflake) Int64() int64 {
	return int64(s)
}

// String implements fmt.Stringer.
func (s Snowflake) String() string {
	return strconv.FormatInt(int64(s), 10)
}

// MarshalJSON renders the snowflake as a quoted decimal string.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare decimal forms.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(data, `"`)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*s = 0
		return nil
	}
	parsed, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("parsing snowflake %q: %w", raw, err)
	}
	*s = Snowflake(parsed)
	return nil
}

// User is the subset of the Discord user object the engines need.
type User struct {
	ID            Snowflake `json:"id"`
	Username      string    `json:"username"`
	GlobalName    string    `json:"global_name"`
	Avatar        string    `json:"avatar"`
	Bot           bool      `json:"bot"`
	Discriminator string    `json:"discriminator"`
}

// DisplayName returns the user's display name, falling back to the username.
func (u User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// AvatarURL returns the CDN URL for the user's avatar, or the default avatar
// when none is set.
func (u User) AvatarURL() string {
	if u.Avatar == "" {
		return fmt.Sprintf("https://cdn.discordapp.com/embed/avatars/%d.png", (u.ID.Int64()>>22)%6)
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", u.ID, u.Avatar)
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID       Snowflake `json:"id"`
	Filename string    `json:"filename"`
	URL      string    `json:"url"`
}

// Emoji identifies a reaction emoji; unicode emoji carry only Name.
type Emoji struct {
	ID   *Snowflake `json:"id"`
	Name string     `json:"name"`
}

// Reaction aggregates one emoji's reactions on a message.
type Reaction struct {
	Count int   `json:"count"`
	Emoji Emoji `json:"emoji"`
}

// MessageReference points at the message a reply targets.
type MessageReference struct {
	MessageID Snowflake `json:"message_id"`
	ChannelID Snowflake `json:"channel_id"`
	GuildID   Snowflake `json:"guild_id"`
}

// Message is the subset of the Discord message object the engines consume.
type Message struct {
	ID                Snowflake         `json:"id"`
	ChannelID         Snowflake         `json:"channel_id"`
	GuildID           Snowflake         `json:"guild_id"`
	Author            User              `json:"author"`
	Content           string            `json:"content"`
	Timestamp         time.Time         `json:"timestamp"`
	Attachments       []Attachment      `json:"attachments"`
	Reactions         []Reaction        `json:"reactions"`
	MessageReference  *MessageReference `json:"message_reference"`
	ReferencedMessage *Message          `json:"referenced_message"`
}

// ReactionCount returns the live aggregate count for the given unicode emoji.
// Fetched message state is the source of truth; callers never reconstruct
// counts from the event stream.
func (m *Message) ReactionCount(emoji string) int {
	if m == nil {
		return 0
	}
	for _, reaction := range m.Reactions {
		if reaction.Emoji.ID == nil && reaction.Emoji.Name == emoji {
			return reaction.Count
		}
	}
	return 0
}

// JumpLink returns the canonical URL pointing at the message.
func (m *Message) JumpLink() string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", m.GuildID, m.ChannelID, m.ID)
}

// EmbedAuthor names the embed's author line.
type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedFooter renders below the embed body.
type EmbedFooter struct {
	Text string `json:"text"`
}

// EmbedImage displays an image inside the embed.
type EmbedImage struct {
	URL string `json:"url"`
}

// EmbedField is a titled section inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed is an outbound rich-embed payload.
type Embed struct {
	Author      *EmbedAuthor `json:"author,omitempty"`
	Description string       `json:"description,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Image       *EmbedImage  `json:"image,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// SendMessage is the outbound create-message payload.
type SendMessage struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// EditMessage is the outbound edit-message payload.
type EditMessage struct {
	Content *string `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}
