package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/domain/repository"
	"donorcast-service/pkg/logger"
	"donorcast-service/pkg/metrics"
)

// SenderConfig tunes bulk-send pacing
type SenderConfig struct {
	// SendDelay is the minimum gap between consecutive sends
	SendDelay time.Duration
	// BatchSize is how many sends go out before the longer batch delay
	BatchSize int
	// BatchDelay separates consecutive batches
	BatchDelay time.Duration
}

// DefaultSenderConfig paces sends conservatively for shared providers
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		SendDelay:  2 * time.Second,
		BatchSize:  50,
		BatchDelay: 30 * time.Second,
	}
}

// EmailSender renders and delivers personalized email through a pluggable
// transport. Every attempt yields a SentEmail record, success or not, so
// the follow-up scheduler always has something to track.
type EmailSender struct {
	transport  Transport
	renderer   *TemplateRenderer
	sentEmails repository.SentEmailRepository
	config     SenderConfig
	logger     logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewEmailSender creates a new email sender
func NewEmailSender(
	transport Transport,
	renderer *TemplateRenderer,
	sentEmails repository.SentEmailRepository,
	config SenderConfig,
	logger logger.Logger,
	m *metrics.Metrics,
) *EmailSender {
	return &EmailSender{
		transport:  transport,
		renderer:   renderer,
		sentEmails: sentEmails,
		config:     config,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// SendOne delivers a single personalized email. Transport failures are
// logged and recorded on the SentEmail, not returned as errors.
func (s *EmailSender) SendOne(ctx context.Context, contact *entity.Contact, template *entity.EmailTemplate, campaignID string) (*entity.SentEmail, error) {
	rendered := s.renderer.Render(template, contact)

	sent := &entity.SentEmail{
		ID:           uuid.NewString(),
		CampaignID:   campaignID,
		ContactEmail: contact.Email,
		TemplateID:   template.ID,
		SentAt:       s.now(),
		Status:       entity.EmailStatusSent,
	}

	start := time.Now()
	messageID, err := s.transport.Send(ctx, SendParams{
		To:       contact.Email,
		Subject:  rendered.Subject,
		HTMLBody: rendered.HTMLBody,
		TextBody: rendered.TextBody,
	})
	if s.metrics != nil {
		s.metrics.SendDuration.Observe(time.Since(start).Seconds())
		s.metrics.EmailsSent.Inc()
	}

	if err != nil {
		sent.SendError = err.Error()
		s.logger.Error("Transport send failed",
			"to", contact.Email,
			"campaignId", campaignID,
			"error", err)
		if s.metrics != nil {
			s.metrics.SendFailures.Inc()
		}
	} else {
		sent.MessageID = messageID
	}

	if err := s.sentEmails.Save(ctx, sent); err != nil {
		return nil, err
	}

	s.logger.Info("Email sent",
		"to", contact.Email,
		"campaignId", campaignID,
		"messageId", sent.MessageID,
		"sendError", sent.SendError)

	return sent, nil
}

// Pace waits the configured gap before the next send: SendDelay between
// consecutive sends, BatchDelay at every BatchSize boundary. The first send
// of a run goes out immediately. Every bulk path must call this so the
// pacing cannot diverge between callers.
func (s *EmailSender) Pace(ctx context.Context, sendsSoFar int, campaignID string) error {
	if sendsSoFar == 0 {
		return nil
	}
	delay := s.config.SendDelay
	if s.config.BatchSize > 0 && sendsSoFar%s.config.BatchSize == 0 {
		delay = s.config.BatchDelay
		s.logger.Info("Batch boundary reached, pausing",
			"campaignId", campaignID,
			"sentSoFar", sendsSoFar)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// SendBulk delivers to every contact with a minimum delay between sends and
// a longer pause between batches. Sending is deliberately serialized to
// respect provider rate limits.
func (s *EmailSender) SendBulk(ctx context.Context, contacts []entity.Contact, template *entity.EmailTemplate, campaignID string) ([]*entity.SentEmail, error) {
	var sent []*entity.SentEmail

	for i := range contacts {
		if err := s.Pace(ctx, i, campaignID); err != nil {
			return sent, err
		}

		record, err := s.SendOne(ctx, &contacts[i], template, campaignID)
		if err != nil {
			return sent, err
		}
		sent = append(sent, record)
	}

	s.logger.Info("Bulk send completed", "campaignId", campaignID, "count", len(sent))
	return sent, nil
}
