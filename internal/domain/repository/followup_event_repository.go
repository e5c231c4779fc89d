package repository

import (
	"context"
	"time"

	"donorcast-service/internal/domain/entity"
)

// FollowUpEventRepository defines storage operations for scheduled follow-ups.
// Implementations must guarantee that an event leaves the scheduled state at
// most once; every transition helper is compare-and-swap on status=scheduled.
type FollowUpEventRepository interface {
	Save(ctx context.Context, event *entity.FollowUpEvent) error
	FindByID(ctx context.Context, id string) (*entity.FollowUpEvent, error)
	FindScheduled(ctx context.Context) ([]*entity.FollowUpEvent, error)
	// FindDue returns scheduled events with scheduledFor <= now, oldest first
	FindDue(ctx context.Context, now time.Time) ([]*entity.FollowUpEvent, error)
	FindBySentEmail(ctx context.Context, sentEmailID string) ([]*entity.FollowUpEvent, error)
	// TransitionFromScheduled moves the event to a terminal state. Returns
	// false without error when the event is no longer scheduled.
	TransitionFromScheduled(ctx context.Context, id, status, reason string, executedAt *time.Time) (bool, error)
	// CancelScheduledForEmail cancels every scheduled event for the sent email
	// and returns how many were cancelled
	CancelScheduledForEmail(ctx context.Context, sentEmailID, reason string) (int, error)
	// Reschedule moves a scheduled event to a new time. Returns false when the
	// event is not currently scheduled.
	Reschedule(ctx context.Context, id string, newTime time.Time) (bool, error)
	// LastExecutionForEmail returns the most recent executedAt among sent
	// events for the sent email, or nil when none executed yet
	LastExecutionForEmail(ctx context.Context, sentEmailID string) (*time.Time, error)
}
