package domain

import "time"

type EventKind string

const (
	EventCommand EventKind = "command"
	EventText    EventKind = "text"
	EventButton  EventKind = "button"
)

// InboundEvent es un evento normalizado recibido del transporte.
type InboundEvent struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	CallerID    string    `json:"caller_id"`
	CallerLabel string    `json:"caller_label,omitempty"`
	ChatID      string    `json:"chat_id"`
	Command     string    `json:"command,omitempty"`
	Text        string    `json:"text,omitempty"`
	Payload     string    `json:"payload,omitempty"`
	ButtonID    string    `json:"button_id,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

// ReplyChat devuelve el chat donde responder al caller.
func (e InboundEvent) ReplyChat() string {
	if e.ChatID != "" {
		return e.ChatID
	}
	return e.CallerID
}
