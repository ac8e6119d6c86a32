package service

import (
	"strings"

	"github.com/smallbiznis/tilegrid/internal/tile/domain"
)

const conversationPrefixLen = 8

// Summarize builds the restore summary of a tile. ch is nil when the tile has
// no channel or the channel no longer exists.
func Summarize(t domain.Tile, ch *domain.ChannelSummary) domain.RestoredTile {
	out := domain.RestoredTile{TileResponse: *toResponse(t)}

	var channelLabel, conversationLabel string
	if ch != nil {
		name, emoji := ch.Name, ch.Emoji
		out.ChannelName = &name
		if emoji != "" {
			out.ChannelEmoji = &emoji
		}
		channelLabel = ChannelLabel(name, emoji)
	}
	if t.ConversationID != nil && *t.ConversationID != "" {
		conversationLabel = ConversationLabel(*t.ConversationID)
		out.ConversationLabel = &conversationLabel
	}

	var callLabel string
	if t.CallRoomLabel != nil {
		callLabel = strings.TrimSpace(*t.CallRoomLabel)
	}
	out.RoomLabel = RoomLabel(callLabel, channelLabel, conversationLabel)
	return out
}

func ChannelLabel(name, emoji string) string {
	if emoji == "" {
		return "#" + name
	}
	return emoji + " #" + name
}

func ConversationLabel(conversationID string) string {
	runes := []rune(conversationID)
	if len(runes) > conversationPrefixLen {
		runes = runes[:conversationPrefixLen]
	}
	return "DM " + string(runes)
}

// RoomLabel picks the first non-empty label in order of precedence.
func RoomLabel(callRoomLabel, channelLabel, conversationLabel string) string {
	for _, label := range []string{callRoomLabel, channelLabel, conversationLabel} {
		if label != "" {
			return label
		}
	}
	return domain.FallbackRoomLabel
}
