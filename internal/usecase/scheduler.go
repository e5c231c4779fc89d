package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/domain/repository"
	"donorcast-service/pkg/logger"
	"donorcast-service/pkg/metrics"
)

// Minimum gap between two executed follow-ups for the same sent email.
// Guards against double-fire from overlapping ticks or clock skew.
const doubleFireWindow = 24 * time.Hour

// Escalating buffer added on top of the rule's day threshold as the
// follow-up count grows, producing increasing spacing between touches
func escalationBufferDays(followUpCount int) int {
	switch {
	case followUpCount <= 0:
		return 0
	case followUpCount == 1:
		return 3
	case followUpCount == 2:
		return 7
	default:
		return 14
	}
}

// FollowUpScheduler computes, defers, cancels and executes follow-ups.
// The (sent email, reply-exists) relationship is the sole source of truth
// for cancellation and is re-derived at execution time.
type FollowUpScheduler struct {
	events     repository.FollowUpEventRepository
	sentEmails repository.SentEmailRepository
	replies    repository.ReplyRepository
	rules      repository.RuleRepository
	hours      *BusinessHours
	logger     logger.Logger
	metrics    *metrics.Metrics

	tickInterval time.Duration
	ticking      atomic.Bool
	now          func() time.Time
}

// NewFollowUpScheduler creates a new follow-up scheduler
func NewFollowUpScheduler(
	events repository.FollowUpEventRepository,
	sentEmails repository.SentEmailRepository,
	replies repository.ReplyRepository,
	rules repository.RuleRepository,
	hours *BusinessHours,
	tickInterval time.Duration,
	logger logger.Logger,
	m *metrics.Metrics,
) *FollowUpScheduler {
	return &FollowUpScheduler{
		events:       events,
		sentEmails:   sentEmails,
		replies:      replies,
		rules:        rules,
		hours:        hours,
		tickInterval: tickInterval,
		logger:       logger,
		metrics:      m,
		now:          time.Now,
	}
}

// ScheduleForEmail evaluates every enabled rule against the sent email and
// schedules at most one follow-up event. An email with an event already in
// the scheduled state gets nothing new.
func (s *FollowUpScheduler) ScheduleForEmail(ctx context.Context, sent *entity.SentEmail) (*entity.FollowUpEvent, error) {
	existing, err := s.events.FindBySentEmail(ctx, sent.ID)
	if err != nil {
		return nil, err
	}
	for _, event := range existing {
		if event.Status == entity.FollowUpStatusScheduled {
			return nil, nil
		}
	}

	rules, err := s.rules.FindEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	for _, rule := range rules {
		ok, err := s.eligible(ctx, rule, sent)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		event := &entity.FollowUpEvent{
			ID:           uuid.NewString(),
			SentEmailID:  sent.ID,
			RuleID:       rule.ID,
			TemplateID:   rule.TemplateID,
			ScheduledFor: s.computeScheduleTime(sent, rule),
			CreatedAt:    s.now(),
			Status:       entity.FollowUpStatusScheduled,
		}
		if err := s.events.Save(ctx, event); err != nil {
			return nil, err
		}

		if s.metrics != nil {
			s.metrics.FollowUpsScheduled.Inc()
		}
		s.logger.Info("Follow-up scheduled",
			"sentEmailId", sent.ID,
			"ruleId", rule.ID,
			"scheduledFor", event.ScheduledFor,
			"followUpCount", sent.FollowUpCount)
		return event, nil
	}

	return nil, nil
}

// eligible applies the rule's conditions to the sent email. The day
// threshold is not checked here; it determines the scheduled time instead.
func (s *FollowUpScheduler) eligible(ctx context.Context, rule *entity.FollowUpRule, sent *entity.SentEmail) (bool, error) {
	if sent.FollowUpCount >= rule.Conditions.MaxFollowUps {
		return false, nil
	}

	if rule.HasSentimentFilter() {
		// Sentiment-gated rules need a classified reply in the filter set
		replies, err := s.replies.FindBySentEmail(ctx, sent.ID)
		if err != nil {
			return false, err
		}
		for _, reply := range replies {
			if reply.Sentiment != "" && rule.MatchesSentiment(reply.Sentiment) {
				return true, nil
			}
		}
		return false, nil
	}

	// Unfiltered rules only apply while no reply has arrived
	return !sent.ReplyReceived, nil
}

// computeScheduleTime derives the follow-up instant: last contact plus the
// rule's day threshold plus the escalating buffer, snapped into the next
// business window
func (s *FollowUpScheduler) computeScheduleTime(sent *entity.SentEmail, rule *entity.FollowUpRule) time.Time {
	days := rule.Conditions.NoReplyAfterDays + escalationBufferDays(sent.FollowUpCount)
	raw := sent.LastContactAt().AddDate(0, 0, days)
	return s.hours.SnapForward(raw)
}

// CancelForEmail cancels every scheduled event for the sent email. Invoked
// synchronously from reply ingestion.
func (s *FollowUpScheduler) CancelForEmail(ctx context.Context, sentEmailID, reason string) (int, error) {
	cancelled, err := s.events.CancelScheduledForEmail(ctx, sentEmailID, reason)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		for i := 0; i < cancelled; i++ {
			s.metrics.FollowUpsCancelled.Inc()
		}
	}
	return cancelled, nil
}

// Cancel manually cancels a single event. Returns false when the event is
// not currently scheduled.
func (s *FollowUpScheduler) Cancel(ctx context.Context, eventID string) bool {
	ok, err := s.events.TransitionFromScheduled(ctx, eventID, entity.FollowUpStatusCancelled, "cancelled manually", nil)
	if err != nil {
		s.logger.Error("Failed to cancel follow-up", "eventId", eventID, "error", err)
		return false
	}
	return ok
}

// Reschedule moves a scheduled event to a new time, snapped into business
// hours. Returns false when the event is not currently scheduled.
func (s *FollowUpScheduler) Reschedule(ctx context.Context, eventID string, newTime time.Time) bool {
	ok, err := s.events.Reschedule(ctx, eventID, s.hours.SnapForward(newTime))
	if err != nil {
		s.logger.Error("Failed to reschedule follow-up", "eventId", eventID, "error", err)
		return false
	}
	return ok
}

// ScheduledEvents returns every event still awaiting execution
func (s *FollowUpScheduler) ScheduledEvents(ctx context.Context) ([]*entity.FollowUpEvent, error) {
	return s.events.FindScheduled(ctx)
}

// EventsForEmail returns every follow-up event recorded for a sent email,
// whatever its state
func (s *FollowUpScheduler) EventsForEmail(ctx context.Context, sentEmailID string) ([]*entity.FollowUpEvent, error) {
	return s.events.FindBySentEmail(ctx, sentEmailID)
}

// Start runs the execution tick until the context is cancelled. Executed
// events are handed to dispatch, which sends the actual follow-up email.
func (s *FollowUpScheduler) Start(ctx context.Context, dispatch func(ctx context.Context, event *entity.FollowUpEvent)) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Follow-up scheduler stopped")
			return
		case <-ticker.C:
			executed, err := s.Tick(ctx)
			if err != nil {
				s.logger.Error("Follow-up tick failed", "error", err)
				continue
			}
			for _, event := range executed {
				dispatch(ctx, event)
			}
		}
	}
}

// Tick scans due events once, re-checks execution guards, and marks
// survivors as sent. A single-flight guard drops the tick when the
// previous one is still running.
func (s *FollowUpScheduler) Tick(ctx context.Context) ([]*entity.FollowUpEvent, error) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.logger.Debug("Previous tick still running, skipping")
		return nil, nil
	}
	defer s.ticking.Store(false)

	now := s.now()
	due, err := s.events.FindDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find due events: %w", err)
	}

	var executed []*entity.FollowUpEvent
	for _, event := range due {
		skipReason, err := s.executionGuard(ctx, event, now)
		if err != nil {
			s.logger.Error("Execution guard failed", "eventId", event.ID, "error", err)
			continue
		}
		if skipReason != "" {
			ok, err := s.events.TransitionFromScheduled(ctx, event.ID, entity.FollowUpStatusSkipped, skipReason, nil)
			if err != nil {
				s.logger.Error("Failed to skip follow-up", "eventId", event.ID, "error", err)
			} else if ok {
				if s.metrics != nil {
					s.metrics.FollowUpsSkipped.Inc()
				}
				s.logger.Info("Follow-up skipped", "eventId", event.ID, "reason", skipReason)
			}
			continue
		}

		execAt := now
		ok, err := s.events.TransitionFromScheduled(ctx, event.ID, entity.FollowUpStatusSent, "", &execAt)
		if err != nil {
			s.logger.Error("Failed to mark follow-up sent", "eventId", event.ID, "error", err)
			continue
		}
		if !ok {
			// Lost the race to a concurrent transition
			continue
		}

		event.Status = entity.FollowUpStatusSent
		event.ExecutedAt = &execAt
		executed = append(executed, event)
		if s.metrics != nil {
			s.metrics.FollowUpsExecuted.Inc()
		}
		s.logger.Info("Follow-up executed", "eventId", event.ID, "sentEmailId", event.SentEmailID)
	}

	return executed, nil
}

// executionGuard re-derives the skip conditions at execution time. Returns
// a non-empty reason when the event must not fire.
func (s *FollowUpScheduler) executionGuard(ctx context.Context, event *entity.FollowUpEvent, now time.Time) (string, error) {
	// A reply that arrived after this event was scheduled always wins,
	// even if it was already true at scheduling time
	replied, err := s.replies.ExistsForSentEmailSince(ctx, event.SentEmailID, event.CreatedAt)
	if err != nil {
		return "", err
	}
	if replied {
		return "reply received before execution", nil
	}

	lastExec, err := s.events.LastExecutionForEmail(ctx, event.SentEmailID)
	if err != nil {
		return "", err
	}
	if lastExec != nil && now.Sub(*lastExec) < doubleFireWindow {
		return "follow-up already executed within 24h", nil
	}

	return "", nil
}
