package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"anon-relay/internal/domain"
)

func TestRelayServiceNotify_AttachesReplyButton(t *testing.T) {
	users := newMockUserRepo()
	identity := NewIdentityService(zap.NewNop(), users)
	bob, _, _ := identity.Register(context.Background(), "tg-bob", "bob")
	sender := &mockSender{}
	relay := NewRelayService(zap.NewNop(), identity, sender)

	err := relay.Notify(context.Background(), bob.AnonymousID, "Anonymous message: hi", domain.ReplyTarget{MessageID: 5, ChannelID: 2})
	if err != nil {
		t.Fatalf("expected delivery, got %v", err)
	}
	msg := sender.last("tg-bob")
	if msg.Text != "Anonymous message: hi" {
		t.Fatalf("unexpected text %q", msg.Text)
	}
	if len(msg.Buttons) != 1 || msg.Buttons[0].Label != "Reply" || msg.Buttons[0].Payload != "reply_5_2" {
		t.Fatalf("unexpected buttons %+v", msg.Buttons)
	}
}

func TestRelayServiceNotify_RecipientNotFound(t *testing.T) {
	identity := NewIdentityService(zap.NewNop(), newMockUserRepo())
	sender := &mockSender{}
	relay := NewRelayService(zap.NewNop(), identity, sender)

	err := relay.Notify(context.Background(), 404, "x", domain.ReplyTarget{MessageID: 1, ChannelID: 1})
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected nothing sent")
	}
}

func TestRelayServiceNotify_DeliveryFailure(t *testing.T) {
	identity := NewIdentityService(zap.NewNop(), newMockUserRepo())
	bob, _, _ := identity.Register(context.Background(), "tg-bob", "")
	transportErr := errors.New("bot was blocked by the user")
	sender := &mockSender{failFor: map[string]error{"tg-bob": transportErr}}
	relay := NewRelayService(zap.NewNop(), identity, sender)

	err := relay.Notify(context.Background(), bob.AnonymousID, "x", domain.ReplyTarget{MessageID: 1, ChannelID: 1})
	if !errors.Is(err, ErrDeliveryFailed) || !errors.Is(err, transportErr) {
		t.Fatalf("expected ErrDeliveryFailed wrapping transport error, got %v", err)
	}
}

func TestRelayService_NotConfigured(t *testing.T) {
	relay := NewRelayService(nil, nil, nil)
	if err := relay.Notify(context.Background(), 1, "x", domain.ReplyTarget{}); !errors.Is(err, ErrServiceNotConfigured) {
		t.Fatalf("expected ErrServiceNotConfigured, got %v", err)
	}
}
