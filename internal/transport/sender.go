package transport

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Button es un control interactivo adjunto a un mensaje saliente.
// El transporte devuelve Payload textual cuando se activa.
type Button struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

type OutboundMessage struct {
	ChatID  string   `json:"chat_id"`
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Command describe un comando publicado en el transporte.
type Command struct {
	Name        string `json:"command"`
	Description string `json:"description"`
}

// Sender define la interfaz de entrega hacia una sesión del usuario final.
type Sender interface {
	Send(ctx context.Context, msg OutboundMessage) error
	// AckButton confirma al transporte que se procesó la pulsación de un botón.
	AckButton(ctx context.Context, buttonEventID string) error
}

// ConsoleSender escribe las entregas en un io.Writer. Usado por cmd/cli_relay.
type ConsoleSender struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleSender(out io.Writer) *ConsoleSender {
	return &ConsoleSender{out: out}
}

func (s *ConsoleSender) Send(_ context.Context, msg OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "[to %s] %s\n", msg.ChatID, msg.Text)
	for _, btn := range msg.Buttons {
		fmt.Fprintf(&b, "    [%s] !%s\n", btn.Label, btn.Payload)
	}
	_, err := io.WriteString(s.out, b.String())
	return err
}

func (s *ConsoleSender) AckButton(_ context.Context, _ string) error {
	return nil
}
