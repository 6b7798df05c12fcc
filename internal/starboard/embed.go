package starboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/hazelline/communitybot-backend/pkg/discord"
)

const (
	// StarEmoji is the only reaction the starboard tracks.
	StarEmoji = "⭐"

	embedColorGold     = 0xFFAC33
	replyPreviewMaxLen = 300

	placeholderAttachmentOnly = "[attachment-only message]"
	placeholderNoText         = "[no text content]"
)

// mirrorPayload builds the create payload for a new mirror message. The
// jump link rides in the message content so clients render it clickable.
func mirrorPayload(msg *discord.Message, starCount int) discord.SendMessage {
	return discord.SendMessage{
		Content: msg.JumpLink(),
		Embeds:  []discord.Embed{buildEmbed(msg, starCount)},
	}
}

// mirrorEdit builds the edit payload refreshing the displayed star count.
func mirrorEdit(msg *discord.Message, starCount int) discord.EditMessage {
	content := msg.JumpLink()
	return discord.EditMessage{
		Content: &content,
		Embeds:  []discord.Embed{buildEmbed(msg, starCount)},
	}
}

func buildEmbed(msg *discord.Message, starCount int) discord.Embed {
	embed := discord.Embed{
		Author: &discord.EmbedAuthor{
			Name:    msg.Author.DisplayName(),
			IconURL: msg.Author.AvatarURL(),
		},
		Description: msg.Content,
		Footer:      &discord.EmbedFooter{Text: fmt.Sprintf("%s %d", StarEmoji, starCount)},
		Color:       embedColorGold,
		Timestamp:   msg.Timestamp.UTC().Format(time.RFC3339),
	}

	if len(msg.Attachments) > 0 {
		embed.Image = &discord.EmbedImage{URL: msg.Attachments[0].URL}
	}

	if msg.ReferencedMessage != nil {
		ref := msg.ReferencedMessage
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:  fmt.Sprintf("Replying to %s", ref.Author.DisplayName()),
			Value: replyPreview(ref),
		})
	}

	return embed
}

// replyPreview collapses whitespace in the replied-to message and truncates
// it, falling back to a placeholder when there is no text to show.
func replyPreview(ref *discord.Message) string {
	collapsed := strings.Join(strings.Fields(ref.Content), " ")
	if collapsed == "" {
		if len(ref.Attachments) > 0 {
			return placeholderAttachmentOnly
		}
		return placeholderNoText
	}

	runes := []rune(collapsed)
	if len(runes) <= replyPreviewMaxLen {
		return collapsed
	}
	return string(runes[:replyPreviewMaxLen-1]) + "…"
}
