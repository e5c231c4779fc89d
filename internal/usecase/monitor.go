package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/domain/repository"
	"donorcast-service/pkg/logger"
	"donorcast-service/pkg/metrics"
)

// Window inside which two replies from the same sender for the same sent
// email are treated as one (overlapping polls)
const replyDedupWindow = 60 * time.Second

// FollowUpCanceller cancels pending follow-ups the instant a reply lands.
// Implemented by the follow-up scheduler; split out so the monitor does not
// depend on scheduling internals.
type FollowUpCanceller interface {
	CancelForEmail(ctx context.Context, sentEmailID, reason string) (int, error)
}

// ReplyListener is notified once per newly detected reply, in arrival order
type ReplyListener func(ctx context.Context, reply *entity.EmailReply)

// ReplyMonitor correlates inbound messages to outstanding sent emails,
// deduplicates them, and emits exactly one notification per new reply.
type ReplyMonitor struct {
	source     ReplySource
	sentEmails repository.SentEmailRepository
	replies    repository.ReplyRepository
	canceller  FollowUpCanceller
	logger     logger.Logger
	metrics    *metrics.Metrics

	pollInterval time.Duration

	mu        sync.Mutex
	listeners []ReplyListener
}

// NewReplyMonitor creates a new reply monitor
func NewReplyMonitor(
	source ReplySource,
	sentEmails repository.SentEmailRepository,
	replies repository.ReplyRepository,
	canceller FollowUpCanceller,
	pollInterval time.Duration,
	logger logger.Logger,
	m *metrics.Metrics,
) *ReplyMonitor {
	return &ReplyMonitor{
		source:       source,
		sentEmails:   sentEmails,
		replies:      replies,
		canceller:    canceller,
		pollInterval: pollInterval,
		logger:       logger,
		metrics:      m,
	}
}

// OnReplyReceived registers a listener for new replies
func (m *ReplyMonitor) OnReplyReceived(listener ReplyListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// StartPolling polls the reply source until the context is cancelled
func (m *ReplyMonitor) StartPolling(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Reply polling stopped")
			return
		case <-ticker.C:
			if err := m.Poll(ctx); err != nil {
				m.logger.Error("Error polling for replies", "error", err)
				if m.metrics != nil {
					m.metrics.ErrorsCount.WithLabelValues("reply_poll").Inc()
				}
			}
		}
	}
}

// Poll runs one fetch cycle against the reply source
func (m *ReplyMonitor) Poll(ctx context.Context) error {
	outstanding, err := m.sentEmails.FindOutstanding(ctx)
	if err != nil {
		return err
	}
	if len(outstanding) == 0 {
		return nil
	}

	addresses := make([]string, 0, len(outstanding))
	seen := make(map[string]bool)
	for _, sent := range outstanding {
		key := strings.ToLower(sent.ContactEmail)
		if !seen[key] {
			seen[key] = true
			addresses = append(addresses, sent.ContactEmail)
		}
	}

	raws, err := m.source.CheckForReplies(ctx, addresses)
	if err != nil {
		return err
	}

	// Arrival order
	sort.Slice(raws, func(i, j int) bool {
		return raws[i].ReceivedAt.Before(raws[j].ReceivedAt)
	})

	for _, raw := range raws {
		if _, err := m.Ingest(ctx, raw); err != nil {
			m.logger.Error("Failed to ingest reply", "from", raw.FromEmail, "error", err)
		}
	}
	return nil
}

// Ingest processes one raw inbound message. This is also the entry point
// for push delivery. Returns nil when the message matched nothing or was a
// duplicate. The sent email's state is updated and pending follow-ups are
// cancelled before listeners run, so they observe consistent state.
func (m *ReplyMonitor) Ingest(ctx context.Context, raw RawReply) (*entity.EmailReply, error) {
	matched, err := m.match(ctx, raw.FromEmail)
	if err != nil {
		return nil, err
	}
	if matched == nil {
		m.logger.Debug("Inbound message matched no sent email", "from", raw.FromEmail)
		return nil, nil
	}

	dup, err := m.replies.HasRecentDuplicate(ctx, raw.FromEmail, matched.ID, raw.ReceivedAt, replyDedupWindow)
	if err != nil {
		return nil, err
	}
	if dup {
		m.logger.Debug("Duplicate reply dropped",
			"from", raw.FromEmail,
			"sentEmailId", matched.ID)
		return nil, nil
	}

	reply := &entity.EmailReply{
		ID:              uuid.NewString(),
		OriginalEmailID: matched.ID,
		FromEmail:       raw.FromEmail,
		Subject:         raw.Subject,
		Body:            raw.Body,
		ReceivedAt:      raw.ReceivedAt,
	}
	if err := m.replies.Save(ctx, reply); err != nil {
		return nil, err
	}

	if err := m.sentEmails.MarkReplied(ctx, matched.ID); err != nil {
		m.logger.Error("Failed to mark sent email replied",
			"sentEmailId", matched.ID,
			"error", err)
	}

	// Cancellation must happen here, not on the next scheduler tick, or a
	// follow-up could fire after the reply arrived.
	if m.canceller != nil {
		cancelled, err := m.canceller.CancelForEmail(ctx, matched.ID, "reply received")
		if err != nil {
			m.logger.Error("Failed to cancel follow-ups on reply",
				"sentEmailId", matched.ID,
				"error", err)
		} else if cancelled > 0 {
			m.logger.Info("Cancelled pending follow-ups on reply",
				"sentEmailId", matched.ID,
				"cancelled", cancelled)
		}
	}

	if m.metrics != nil {
		m.metrics.RepliesDetected.Inc()
	}
	m.logger.Info("Reply detected",
		"from", raw.FromEmail,
		"sentEmailId", matched.ID,
		"replyId", reply.ID)

	m.notify(ctx, reply)
	return reply, nil
}

// match finds the most recent outstanding sent email for the sender address
func (m *ReplyMonitor) match(ctx context.Context, fromEmail string) (*entity.SentEmail, error) {
	outstanding, err := m.sentEmails.FindOutstanding(ctx)
	if err != nil {
		return nil, err
	}

	var matched *entity.SentEmail
	for _, sent := range outstanding {
		if !strings.EqualFold(sent.ContactEmail, fromEmail) {
			continue
		}
		if matched == nil || sent.SentAt.After(matched.SentAt) {
			matched = sent
		}
	}
	return matched, nil
}

func (m *ReplyMonitor) notify(ctx context.Context, reply *entity.EmailReply) {
	m.mu.Lock()
	listeners := make([]ReplyListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, listener := range listeners {
		listener(ctx, reply)
	}
}
