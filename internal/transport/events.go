package transport

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"anon-relay/internal/domain"
)

// EventFromUpdate normaliza un update de Telegram. ok=false cuando el update
// no lleva nada que el relay procese (ediciones, mensajes de bots, etc.).
func EventFromUpdate(u Update) (domain.InboundEvent, bool) {
	switch {
	case u.CallbackQuery != nil:
		return eventFromCallback(*u.CallbackQuery)
	case u.Message != nil:
		return eventFromMessage(*u.Message)
	default:
		return domain.InboundEvent{}, false
	}
}

func eventFromCallback(cq CallbackQuery) (domain.InboundEvent, bool) {
	if cq.From.ID == 0 || cq.From.IsBot {
		return domain.InboundEvent{}, false
	}
	chatID := cq.From.ID
	if cq.Message != nil && cq.Message.Chat.ID != 0 {
		chatID = cq.Message.Chat.ID
	}
	return domain.InboundEvent{
		ID:          uuid.NewString(),
		Kind:        domain.EventButton,
		CallerID:    strconv.FormatInt(cq.From.ID, 10),
		CallerLabel: cq.From.Username,
		ChatID:      strconv.FormatInt(chatID, 10),
		Payload:     cq.Data,
		ButtonID:    cq.ID,
		ReceivedAt:  time.Now().UTC(),
	}, true
}

func eventFromMessage(m Message) (domain.InboundEvent, bool) {
	if m.From == nil || m.From.ID == 0 || m.From.IsBot {
		return domain.InboundEvent{}, false
	}
	ev := domain.InboundEvent{
		ID:          uuid.NewString(),
		Kind:        domain.EventText,
		CallerID:    strconv.FormatInt(m.From.ID, 10),
		CallerLabel: m.From.Username,
		ChatID:      strconv.FormatInt(m.Chat.ID, 10),
		Text:        m.Text,
		ReceivedAt:  time.Now().UTC(),
	}
	if ev.CallerLabel == "" {
		ev.CallerLabel = m.From.FirstName
	}
	if cmd, args, ok := parseCommand(m); ok {
		ev.Kind = domain.EventCommand
		ev.Command = cmd
		ev.Text = args
	}
	return ev, true
}

// parseCommand reconoce "/send", "/send@relay_bot" y "/send args".
func parseCommand(m Message) (string, string, bool) {
	isCommand := false
	for _, e := range m.Entities {
		if e.Type == "bot_command" && e.Offset == 0 {
			isCommand = true
			break
		}
	}
	if !isCommand && !strings.HasPrefix(m.Text, "/") {
		return "", "", false
	}

	head, rest, _ := strings.Cut(strings.TrimSpace(m.Text), " ")
	name := strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(rest), true
}
