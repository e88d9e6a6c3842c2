package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"anon-relay/internal/domain"
	"anon-relay/internal/transport"
)

// ConversationEngine conduce los flujos multi-turno por caller: envío
// (recipient -> message), respuesta (reply body) e historial.
type ConversationEngine struct {
	logger    *zap.Logger
	sessions  SessionStore
	identity  *IdentityService
	chatrooms *ChatroomService
	ledger    *LedgerService
	relay     *RelayService
	sender    transport.Sender
	locks     *callerLocks
	now       func() time.Time
}

func NewConversationEngine(
	logger *zap.Logger,
	sessions SessionStore,
	identity *IdentityService,
	chatrooms *ChatroomService,
	ledger *LedgerService,
	relay *RelayService,
	sender transport.Sender,
) *ConversationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationEngine{
		logger:    logger,
		sessions:  sessions,
		identity:  identity,
		chatrooms: chatrooms,
		ledger:    ledger,
		relay:     relay,
		sender:    sender,
		locks:     newCallerLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handle procesa un evento. Los errores de usuario se responden como texto y
// no se devuelven; solo los fallos internos llegan al llamador para logging.
func (e *ConversationEngine) Handle(ctx context.Context, ev domain.InboundEvent) error {
	if e == nil || e.sessions == nil || e.sender == nil {
		return ErrServiceNotConfigured
	}
	ev.CallerID = strings.TrimSpace(ev.CallerID)
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CallerID == "" {
		e.logger.Warn("event without caller identity", zap.String("event_id", ev.ID))
		return nil
	}

	unlock := e.locks.Lock(ev.CallerID)
	defer unlock()

	switch ev.Kind {
	case domain.EventCommand:
		return e.handleCommand(ctx, ev)
	case domain.EventButton:
		return e.handleButton(ctx, ev)
	case domain.EventText:
		return e.handleText(ctx, ev)
	default:
		e.log(ev).Warn("unsupported event kind")
		return nil
	}
}

func (e *ConversationEngine) handleCommand(ctx context.Context, ev domain.InboundEvent) error {
	switch ev.Command {
	case CommandStart:
		return e.reply(ctx, ev, textWelcome(ev.CallerLabel))
	case CommandRegister:
		user, created, err := e.identity.Register(ctx, ev.CallerID, ev.CallerLabel)
		if err != nil {
			return e.fail(ctx, ev, err)
		}
		return e.reply(ctx, ev, textRegistered(user.AnonymousID, created))
	case CommandSend:
		return e.begin(ctx, ev, domain.StateAwaitingRecipient, nil, textPromptRecipient)
	case CommandHistory:
		return e.begin(ctx, ev, domain.StateAwaitingHistoryTarget, nil, textPromptHistoryTarget)
	case CommandCancel:
		return e.cancel(ctx, ev)
	default:
		return e.reply(ctx, ev, textUnknownCommand)
	}
}

func (e *ConversationEngine) handleButton(ctx context.Context, ev domain.InboundEvent) error {
	if err := e.sender.AckButton(ctx, ev.ButtonID); err != nil {
		e.log(ev).Warn("ack button failed", zap.Error(err))
	}
	target, err := ParseReplyPayload(ev.Payload)
	if err != nil {
		e.log(ev).Warn("malformed reply payload", zap.String("payload", ev.Payload))
		return nil
	}
	return e.begin(ctx, ev, domain.StateAwaitingReplyBody, &target, textPromptReply)
}

func (e *ConversationEngine) handleText(ctx context.Context, ev domain.InboundEvent) error {
	session, ok, err := e.sessions.Get(ctx, ev.CallerID)
	if err != nil {
		return e.fail(ctx, ev, err)
	}
	if !ok || !session.Active() {
		return e.reply(ctx, ev, textIdleHint)
	}

	text := strings.TrimSpace(ev.Text)
	switch session.State {
	case domain.StateAwaitingRecipient:
		return e.onRecipient(ctx, ev, session, text)
	case domain.StateAwaitingMessage:
		return e.onMessage(ctx, ev, session, text)
	case domain.StateAwaitingReplyBody:
		return e.onReplyBody(ctx, ev, session, text)
	case domain.StateAwaitingHistoryTarget:
		return e.onHistoryTarget(ctx, ev, session, text)
	default:
		e.log(ev).Warn("unknown session state", zap.String("state", string(session.State)))
		e.end(ctx, ev)
		return e.reply(ctx, ev, textIdleHint)
	}
}

// begin abre un flujo nuevo reemplazando cualquier sesión activa.
func (e *ConversationEngine) begin(ctx context.Context, ev domain.InboundEvent, state domain.ConversationState, target *domain.ReplyTarget, prompt string) error {
	if _, err := e.identity.Lookup(ctx, ev.CallerID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return e.reply(ctx, ev, textNotRegistered)
		}
		return e.fail(ctx, ev, err)
	}

	session := domain.ConversationSession{
		CallerID:    ev.CallerID,
		State:       state,
		ReplyTarget: target,
		UpdatedAt:   e.now(),
	}
	if err := e.sessions.Put(ctx, session); err != nil {
		return e.fail(ctx, ev, err)
	}
	return e.reply(ctx, ev, prompt)
}

func (e *ConversationEngine) cancel(ctx context.Context, ev domain.InboundEvent) error {
	session, ok, err := e.sessions.Get(ctx, ev.CallerID)
	if err != nil {
		return e.fail(ctx, ev, err)
	}
	if !ok || !session.Active() {
		return e.reply(ctx, ev, textNothingToCancel)
	}
	if err := e.sessions.Delete(ctx, ev.CallerID); err != nil {
		return e.fail(ctx, ev, err)
	}
	return e.reply(ctx, ev, textCancelled)
}

func (e *ConversationEngine) onRecipient(ctx context.Context, ev domain.InboundEvent, session domain.ConversationSession, text string) error {
	recipientID, err := ParseAnonymousID(text)
	if err != nil {
		return e.reprompt(ctx, ev, session, textMalformedID)
	}
	caller, err := e.identity.Lookup(ctx, ev.CallerID)
	if err != nil {
		return e.callerUnavailable(ctx, ev, err)
	}
	if recipientID == caller.AnonymousID {
		return e.reprompt(ctx, ev, session, textSelfRecipient)
	}

	session.State = domain.StateAwaitingMessage
	session.PendingRecipientID = recipientID
	return e.reprompt(ctx, ev, session, textPromptMessage)
}

func (e *ConversationEngine) onMessage(ctx context.Context, ev domain.InboundEvent, session domain.ConversationSession, body string) error {
	if body == "" {
		return e.reprompt(ctx, ev, session, textEmptyBody)
	}
	if limit := bodyLimit(prefixAnonymousMessage); utf8.RuneCountInString(body) > limit {
		return e.reprompt(ctx, ev, session, textBodyTooLong(limit))
	}
	e.end(ctx, ev)

	sender, err := e.identity.Lookup(ctx, ev.CallerID)
	if err != nil {
		return e.callerUnavailable(ctx, ev, err)
	}
	recipient, err := e.identity.Resolve(ctx, session.PendingRecipientID)
	if errors.Is(err, ErrUserNotFound) {
		return e.reply(ctx, ev, textInvalidID)
	}
	if err != nil {
		return e.fail(ctx, ev, err)
	}

	channel, err := e.chatrooms.GetOrCreate(ctx, sender.AnonymousID, recipient.AnonymousID)
	if errors.Is(err, ErrSelfChannel) {
		return e.reply(ctx, ev, textInvalidID)
	}
	if err != nil {
		return e.fail(ctx, ev, err)
	}
	msg, err := e.ledger.Append(ctx, channel.ID, sender.AnonymousID, body)
	if err != nil {
		return e.fail(ctx, ev, err)
	}

	err = e.relay.Notify(ctx, recipient.AnonymousID, prefixAnonymousMessage+body, domain.ReplyTarget{
		MessageID: msg.ID,
		ChannelID: channel.ID,
	})
	return e.reportDelivery(ctx, ev, err, textMessageSent, textInvalidID)
}

func (e *ConversationEngine) onReplyBody(ctx context.Context, ev domain.InboundEvent, session domain.ConversationSession, body string) error {
	if body == "" {
		return e.reprompt(ctx, ev, session, textEmptyBody)
	}
	if limit := bodyLimit(prefixReplyMessage); utf8.RuneCountInString(body) > limit {
		return e.reprompt(ctx, ev, session, textBodyTooLong(limit))
	}
	e.end(ctx, ev)

	target := session.ReplyTarget
	if target == nil {
		e.log(ev).Warn("reply session without target")
		return e.reply(ctx, ev, textReplyFailed)
	}

	replier, err := e.identity.Lookup(ctx, ev.CallerID)
	if err != nil {
		return e.callerUnavailable(ctx, ev, err)
	}
	original, err := e.ledger.Get(ctx, target.MessageID)
	if errors.Is(err, ErrMessageNotFound) {
		return e.reply(ctx, ev, textReplyFailed)
	}
	if err != nil {
		return e.fail(ctx, ev, err)
	}
	channel, err := e.chatrooms.Get(ctx, target.ChannelID)
	if errors.Is(err, ErrChannelNotFound) {
		return e.reply(ctx, ev, textReplyFailed)
	}
	if err != nil {
		return e.fail(ctx, ev, err)
	}

	// El payload viene del cliente: el mensaje debe pertenecer al canal y el
	// replier debe ser la contraparte del remitente original.
	counterpart, ok := channel.Counterpart(replier.AnonymousID)
	if original.ChannelID != channel.ID || !ok || counterpart != original.SenderID {
		e.log(ev).Warn("reply target mismatch",
			zap.Int64("message_id", target.MessageID),
			zap.Int64("channel_id", target.ChannelID),
			zap.Int64("anonymous_id", replier.AnonymousID),
		)
		return e.reply(ctx, ev, textReplyFailed)
	}

	msg, err := e.ledger.Append(ctx, channel.ID, replier.AnonymousID, body)
	if err != nil {
		return e.fail(ctx, ev, err)
	}

	// El nuevo botón apunta al mensaje más reciente del hilo.
	err = e.relay.Notify(ctx, counterpart, prefixReplyMessage+body, domain.ReplyTarget{
		MessageID: msg.ID,
		ChannelID: channel.ID,
	})
	return e.reportDelivery(ctx, ev, err, textReplySent, textReplyFailed)
}

func (e *ConversationEngine) onHistoryTarget(ctx context.Context, ev domain.InboundEvent, session domain.ConversationSession, text string) error {
	targetID, err := ParseAnonymousID(text)
	if err != nil {
		return e.reprompt(ctx, ev, session, textMalformedID)
	}
	e.end(ctx, ev)

	caller, err := e.identity.Lookup(ctx, ev.CallerID)
	if err != nil {
		return e.callerUnavailable(ctx, ev, err)
	}
	channel, err := e.chatrooms.Find(ctx, caller.AnonymousID, targetID)
	if errors.Is(err, ErrChannelNotFound) || errors.Is(err, ErrSelfChannel) {
		return e.reply(ctx, ev, textNoHistory)
	}
	if err != nil {
		return e.fail(ctx, ev, err)
	}

	var b strings.Builder
	b.WriteString(textHistoryHeader)
	b.WriteString("\n")
	count := 0
	err = e.ledger.History(ctx, channel.ID, func(m domain.Message) error {
		who := "Them"
		if m.SenderID == caller.AnonymousID {
			who = "You"
		}
		fmt.Fprintf(&b, "%s [%s]: %s\n", who, m.CreatedAt.UTC().Format(historyTimeLayout), m.Body)
		count++
		return nil
	})
	if err != nil {
		return e.fail(ctx, ev, err)
	}
	if count == 0 {
		return e.reply(ctx, ev, textNoHistory)
	}

	for _, chunk := range splitMessage(b.String(), maxMessageLength) {
		if err := e.reply(ctx, ev, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (e *ConversationEngine) reportDelivery(ctx context.Context, ev domain.InboundEvent, err error, sentText, notFoundText string) error {
	switch {
	case err == nil:
		return e.reply(ctx, ev, sentText)
	case errors.Is(err, ErrRecipientNotFound):
		return e.reply(ctx, ev, notFoundText)
	case errors.Is(err, ErrDeliveryFailed):
		return e.reply(ctx, ev, textDeliveryFailed)
	default:
		return e.fail(ctx, ev, err)
	}
}

// reprompt guarda la sesión (renovando su TTL) y vuelve a preguntar.
func (e *ConversationEngine) reprompt(ctx context.Context, ev domain.InboundEvent, session domain.ConversationSession, text string) error {
	session.UpdatedAt = e.now()
	if err := e.sessions.Put(ctx, session); err != nil {
		return e.fail(ctx, ev, err)
	}
	return e.reply(ctx, ev, text)
}

// end vuelve el caller a idle. Un fallo aquí solo deja una sesión que expira sola.
func (e *ConversationEngine) end(ctx context.Context, ev domain.InboundEvent) {
	if err := e.sessions.Delete(ctx, ev.CallerID); err != nil {
		e.log(ev).Warn("session delete failed", zap.Error(err))
	}
}

func (e *ConversationEngine) callerUnavailable(ctx context.Context, ev domain.InboundEvent, err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return e.reply(ctx, ev, textNotRegistered)
	}
	return e.fail(ctx, ev, err)
}

func (e *ConversationEngine) fail(ctx context.Context, ev domain.InboundEvent, err error) error {
	if replyErr := e.reply(ctx, ev, textInternalError); replyErr != nil {
		e.log(ev).Warn("internal error notice failed", zap.Error(replyErr))
	}
	return err
}

func (e *ConversationEngine) reply(ctx context.Context, ev domain.InboundEvent, text string) error {
	return e.sender.Send(ctx, transport.OutboundMessage{ChatID: ev.ReplyChat(), Text: text})
}

func (e *ConversationEngine) log(ev domain.InboundEvent) *zap.Logger {
	return e.logger.With(
		zap.String("event_id", ev.ID),
		zap.String("caller", ev.CallerID),
		zap.String("kind", string(ev.Kind)),
	)
}

// bodyLimit es el máximo de caracteres de un cuerpo que, con prefix, cabe en
// una sola notificación.
func bodyLimit(prefix string) int {
	return maxMessageLength - utf8.RuneCountInString(prefix)
}

// splitMessage corta text en trozos de como mucho limit bytes, preferentemente
// en saltos de línea y sin partir runas.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n') + 1
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
