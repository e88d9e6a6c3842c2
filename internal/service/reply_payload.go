package service

import (
	"strconv"
	"strings"

	"anon-relay/internal/domain"
)

const (
	replyPayloadPrefix = "reply"
	ReplyButtonLabel   = "Reply"
)

// EncodeReplyPayload produce "reply_<message_id>_<channel_id>".
func EncodeReplyPayload(t domain.ReplyTarget) string {
	return replyPayloadPrefix + "_" + strconv.FormatInt(t.MessageID, 10) + "_" + strconv.FormatInt(t.ChannelID, 10)
}

// ParseReplyPayload acepta exactamente el formato de EncodeReplyPayload.
func ParseReplyPayload(payload string) (domain.ReplyTarget, error) {
	parts := strings.Split(strings.TrimSpace(payload), "_")
	if len(parts) != 3 || parts[0] != replyPayloadPrefix {
		return domain.ReplyTarget{}, ErrMalformedPayload
	}
	messageID, err := parsePositiveID(parts[1])
	if err != nil {
		return domain.ReplyTarget{}, ErrMalformedPayload
	}
	channelID, err := parsePositiveID(parts[2])
	if err != nil {
		return domain.ReplyTarget{}, ErrMalformedPayload
	}
	return domain.ReplyTarget{MessageID: messageID, ChannelID: channelID}, nil
}

// ParseAnonymousID interpreta la entrada de un usuario como handle anónimo.
func ParseAnonymousID(input string) (int64, error) {
	id, err := parsePositiveID(strings.TrimSpace(input))
	if err != nil {
		return 0, ErrInvalidID
	}
	return id, nil
}

func parsePositiveID(s string) (int64, error) {
	if s == "" || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidID
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
