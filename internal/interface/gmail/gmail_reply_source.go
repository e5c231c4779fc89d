package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"donorcast-service/internal/usecase"
	"donorcast-service/pkg/htmltext"
	"donorcast-service/pkg/logger"
)

// lookbackWindow bounds the Gmail query when we have no cursor yet
const lookbackWindow = 7 * 24 * time.Hour

// ReplySource fetches inbound replies through the Gmail API. It implements
// usecase.ReplySource.
type ReplySource struct {
	gmailService *gmail.Service
	converter    *htmltext.Converter
	logger       logger.Logger
	lastChecked  time.Time
}

// NewReplySource creates a new Gmail reply source
func NewReplySource(ctx context.Context, tokenSource oauth2.TokenSource, log logger.Logger) (*ReplySource, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &ReplySource{
		gmailService: service,
		converter:    htmltext.NewConverter(),
		logger:       log,
	}, nil
}

// CheckForReplies lists messages received since the last check and returns
// the ones sent by one of the outstanding recipients.
func (s *ReplySource) CheckForReplies(ctx context.Context, outstanding []string) ([]usecase.RawReply, error) {
	if len(outstanding) == 0 {
		return nil, nil
	}

	fetchFrom := s.lastChecked
	if fetchFrom.IsZero() {
		fetchFrom = time.Now().Add(-lookbackWindow)
	}

	wanted := make(map[string]bool, len(outstanding))
	for _, addr := range outstanding {
		wanted[strings.ToLower(addr)] = true
	}

	query := fmt.Sprintf("in:inbox after:%s", fetchFrom.Format("2006/01/02"))
	resp, err := s.gmailService.Users.Messages.List("me").Q(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var replies []usecase.RawReply
	for _, msg := range resp.Messages {
		fullMsg, err := s.gmailService.Users.Messages.Get("me", msg.Id).Context(ctx).Do()
		if err != nil {
			s.logger.Error("Failed to get message", "msgId", msg.Id, "error", err)
			continue
		}

		reply := s.convertMessage(fullMsg)
		if reply.ReceivedAt.Before(fetchFrom) {
			continue
		}
		if !wanted[strings.ToLower(reply.FromEmail)] {
			continue
		}
		replies = append(replies, reply)
	}

	s.lastChecked = time.Now()
	s.logger.Debug("Gmail reply check completed",
		"totalMessages", len(resp.Messages),
		"matched", len(replies))

	return replies, nil
}

// SetupPushDelivery is not wired for Gmail; watch registration needs a
// Pub/Sub topic we do not provision. Callers fall back to polling.
func (s *ReplySource) SetupPushDelivery(ctx context.Context, callbackURL string) bool {
	return false
}

// convertMessage flattens a Gmail message into a RawReply
func (s *ReplySource) convertMessage(msg *gmail.Message) usecase.RawReply {
	reply := usecase.RawReply{
		MessageID:  msg.Id,
		ReceivedAt: time.Unix(0, msg.InternalDate*1000000),
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			reply.FromEmail = header.Value
			if addr, err := mail.ParseAddress(header.Value); err == nil {
				reply.FromEmail = addr.Address
			}
		case "Subject":
			reply.Subject = header.Value
		}
	}

	var htmlBody string
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(msg.Payload.Body.Data); err == nil {
			reply.Body = string(data)
		}
	}
	for _, part := range msg.Payload.Parts {
		if part.Body == nil || part.Body.Data == "" {
			continue
		}
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			continue
		}
		switch part.MimeType {
		case "text/plain":
			reply.Body = string(data)
		case "text/html":
			htmlBody = string(data)
		}
	}

	if reply.Body == "" && htmlBody != "" {
		reply.Body = s.converter.Convert(htmlBody)
	}

	return reply
}
