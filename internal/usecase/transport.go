package usecase

import (
	"context"
	"time"
)

// SendParams carries one outbound message to the transport
type SendParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Transport is the delivery boundary. Concrete providers (SMTP, HTTP APIs)
// live in the interface layer; the engine only sees this.
type Transport interface {
	// Send delivers one message and returns the provider message ID
	Send(ctx context.Context, params SendParams) (string, error)

	// ValidateCredentials checks that the transport is usable
	ValidateCredentials(ctx context.Context) bool
}

// RawReply is an inbound message as fetched from a reply source, before
// correlation to a sent email
type RawReply struct {
	MessageID  string
	FromEmail  string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// ReplySource is the inbound boundary. Polling providers implement
// CheckForReplies; push-capable providers can additionally register a
// webhook via SetupPushDelivery.
type ReplySource interface {
	// CheckForReplies returns candidate inbound messages addressed to us
	// from the given outstanding recipients
	CheckForReplies(ctx context.Context, outstanding []string) ([]RawReply, error)

	// SetupPushDelivery registers a callback URL with the provider. Returns
	// false when the provider only supports polling.
	SetupPushDelivery(ctx context.Context, callbackURL string) bool
}
