package domain

import "time"

// Channel es la conversación única entre dos handles anónimos.
// ParticipantLow < ParticipantHigh siempre.
type Channel struct {
	ID              int64     `json:"channel_id"`
	ParticipantLow  int64     `json:"participant_low"`
	ParticipantHigh int64     `json:"participant_high"`
	CreatedAt       time.Time `json:"created_at"`
}

// CanonicalPair ordena el par no ordenado {a, b}.
func CanonicalPair(a, b int64) (low, high int64) {
	if a <= b {
		return a, b
	}
	return b, a
}

// Counterpart devuelve el otro participante del canal.
func (c Channel) Counterpart(id int64) (int64, bool) {
	switch id {
	case c.ParticipantLow:
		return c.ParticipantHigh, true
	case c.ParticipantHigh:
		return c.ParticipantLow, true
	default:
		return 0, false
	}
}
