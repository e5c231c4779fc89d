package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/domain/repository"
)

// MemoryFollowUpEventRepository is the default in-process event store. Status
// transitions are compare-and-swap under the write lock so an event can leave
// the scheduled state at most once even with overlapping ticks.
type MemoryFollowUpEventRepository struct {
	mu     sync.RWMutex
	events map[string]*entity.FollowUpEvent
}

// NewMemoryFollowUpEventRepository creates a new in-memory follow-up event repository
func NewMemoryFollowUpEventRepository() repository.FollowUpEventRepository {
	return &MemoryFollowUpEventRepository{
		events: make(map[string]*entity.FollowUpEvent),
	}
}

// Save stores a follow-up event
func (r *MemoryFollowUpEventRepository) Save(ctx context.Context, event *entity.FollowUpEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *event
	r.events[event.ID] = &cp
	return nil
}

// FindByID finds an event by ID
func (r *MemoryFollowUpEventRepository) FindByID(ctx context.Context, id string) (*entity.FollowUpEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, fmt.Errorf("no follow-up event with id: %s", id)
	}
	cp := *event
	return &cp, nil
}

// FindScheduled returns every event still in the scheduled state
func (r *MemoryFollowUpEventRepository) FindScheduled(ctx context.Context) ([]*entity.FollowUpEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.FollowUpEvent
	for _, event := range r.events {
		if event.Status == entity.FollowUpStatusScheduled {
			cp := *event
			out = append(out, &cp)
		}
	}
	sortByScheduledFor(out)
	return out, nil
}

// FindDue returns scheduled events whose time has passed, oldest first
func (r *MemoryFollowUpEventRepository) FindDue(ctx context.Context, now time.Time) ([]*entity.FollowUpEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.FollowUpEvent
	for _, event := range r.events {
		if event.Status == entity.FollowUpStatusScheduled && !event.ScheduledFor.After(now) {
			cp := *event
			out = append(out, &cp)
		}
	}
	sortByScheduledFor(out)
	return out, nil
}

// FindBySentEmail returns all events for a sent email
func (r *MemoryFollowUpEventRepository) FindBySentEmail(ctx context.Context, sentEmailID string) ([]*entity.FollowUpEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.FollowUpEvent
	for _, event := range r.events {
		if event.SentEmailID == sentEmailID {
			cp := *event
			out = append(out, &cp)
		}
	}
	sortByScheduledFor(out)
	return out, nil
}

// TransitionFromScheduled moves an event to a terminal state exactly once
func (r *MemoryFollowUpEventRepository) TransitionFromScheduled(ctx context.Context, id, status, reason string, executedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return false, fmt.Errorf("no follow-up event with id: %s", id)
	}
	if event.Status != entity.FollowUpStatusScheduled {
		return false, nil
	}
	event.Status = status
	event.Reason = reason
	if executedAt != nil {
		t := *executedAt
		event.ExecutedAt = &t
	}
	return true, nil
}

// CancelScheduledForEmail cancels all scheduled events for a sent email
func (r *MemoryFollowUpEventRepository) CancelScheduledForEmail(ctx context.Context, sentEmailID, reason string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancelled := 0
	for _, event := range r.events {
		if event.SentEmailID == sentEmailID && event.Status == entity.FollowUpStatusScheduled {
			event.Status = entity.FollowUpStatusCancelled
			event.Reason = reason
			cancelled++
		}
	}
	return cancelled, nil
}

// Reschedule moves a scheduled event to a new time
func (r *MemoryFollowUpEventRepository) Reschedule(ctx context.Context, id string, newTime time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return false, fmt.Errorf("no follow-up event with id: %s", id)
	}
	if event.Status != entity.FollowUpStatusScheduled {
		return false, nil
	}
	event.ScheduledFor = newTime
	return true, nil
}

// LastExecutionForEmail returns the most recent execution time for a sent email
func (r *MemoryFollowUpEventRepository) LastExecutionForEmail(ctx context.Context, sentEmailID string) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *time.Time
	for _, event := range r.events {
		if event.SentEmailID != sentEmailID || event.ExecutedAt == nil {
			continue
		}
		if last == nil || event.ExecutedAt.After(*last) {
			t := *event.ExecutedAt
			last = &t
		}
	}
	return last, nil
}

func sortByScheduledFor(events []*entity.FollowUpEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].ScheduledFor.Before(events[j].ScheduledFor)
	})
}
