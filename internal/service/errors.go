package service

import "errors"

var (
	ErrServiceNotConfigured = errors.New("service not configured")

	// NotFound: siempre visibles al usuario, nunca fatales.
	ErrUserNotFound      = errors.New("user not found")
	ErrChannelNotFound   = errors.New("channel not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrRecipientNotFound = errors.New("recipient not found")

	// MalformedInput: se resuelven en el borde, con reprompt o no-op.
	ErrInvalidID           = errors.New("invalid anonymous id")
	ErrInvalidInput        = errors.New("invalid input")
	ErrMessageInvalidInput = errors.New("message invalid input")
	ErrMalformedPayload    = errors.New("malformed reply payload")

	ErrSelfChannel    = errors.New("self channel not allowed")
	ErrDeliveryFailed = errors.New("delivery failed")
)
