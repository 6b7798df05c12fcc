package starboard

import (
	"strings"
	"testing"
	"time"

	"github.com/hazelline/communitybot-backend/pkg/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyPreview(t *testing.T) {
	preview := replyPreview(&discord.Message{Content: "hello   there\n\tfriend"})
	assert.Equal(t, "hello there friend", preview)

	preview = replyPreview(&discord.Message{
		Attachments: []discord.Attachment{{Filename: "cat.png"}},
	})
	assert.Equal(t, "[attachment-only message]", preview)

	preview = replyPreview(&discord.Message{})
	assert.Equal(t, "[no text content]", preview)

	long := strings.Repeat("word ", 100)
	preview = replyPreview(&discord.Message{Content: long})
	assert.LessOrEqual(t, len([]rune(preview)), 300)
	assert.True(t, strings.HasSuffix(preview, "…"))
}

func TestBuildEmbedContract(t *testing.T) {
	msg := &discord.Message{
		ID:        discord.Snowflake(4000),
		ChannelID: discord.Snowflake(200),
		GuildID:   discord.Snowflake(100),
		Author:    discord.User{ID: discord.Snowflake(1), Username: "alice", GlobalName: "Alice"},
		Content:   "look at this",
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Attachments: []discord.Attachment{
			{Filename: "first.png", URL: "https://cdn.example/first.png"},
			{Filename: "second.png", URL: "https://cdn.example/second.png"},
		},
		ReferencedMessage: &discord.Message{
			Author:  discord.User{Username: "bob"},
			Content: "original take",
		},
	}

	embed := buildEmbed(msg, 7)

	require.NotNil(t, embed.Author)
	assert.Equal(t, "Alice", embed.Author.Name)
	assert.Equal(t, "look at this", embed.Description)
	assert.Equal(t, "⭐ 7", embed.Footer.Text)
	assert.Equal(t, embedColorGold, embed.Color)
	require.NotNil(t, embed.Image)
	assert.Equal(t, "https://cdn.example/first.png", embed.Image.URL)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "Replying to bob", embed.Fields[0].Name)
	assert.Equal(t, "original take", embed.Fields[0].Value)

	payload := mirrorPayload(msg, 7)
	assert.Equal(t, "https://discord.com/channels/100/200/4000", payload.Content)
	require.Len(t, payload.Embeds, 1)
}
