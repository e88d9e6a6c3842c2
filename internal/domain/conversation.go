package domain

import "time"

type ConversationState string

const (
	StateIdle                  ConversationState = "idle"
	StateAwaitingRecipient     ConversationState = "awaiting_recipient"
	StateAwaitingMessage       ConversationState = "awaiting_message"
	StateAwaitingReplyBody     ConversationState = "awaiting_reply_body"
	StateAwaitingHistoryTarget ConversationState = "awaiting_history_target"
)

// ReplyTarget identifica el mensaje al que se responde y su canal.
type ReplyTarget struct {
	MessageID int64 `json:"message_id"`
	ChannelID int64 `json:"channel_id"`
}

// ConversationSession es el estado transitorio de un flujo por caller.
// No se persiste en la base de datos.
type ConversationSession struct {
	CallerID           string            `json:"caller_id"`
	State              ConversationState `json:"state"`
	PendingRecipientID int64             `json:"pending_recipient_id,omitempty"`
	ReplyTarget        *ReplyTarget      `json:"reply_target,omitempty"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func (s ConversationSession) Active() bool {
	return s.State != "" && s.State != StateIdle
}
