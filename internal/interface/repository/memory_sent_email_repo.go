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

// MemorySentEmailRepository is the default in-process SentEmailRepository.
// All access is mutex-guarded because the reply poller and the follow-up
// tick mutate the same records from separate goroutines.
type MemorySentEmailRepository struct {
	mu     sync.RWMutex
	emails map[string]*entity.SentEmail
}

// NewMemorySentEmailRepository creates a new in-memory sent email repository
func NewMemorySentEmailRepository() repository.SentEmailRepository {
	return &MemorySentEmailRepository{
		emails: make(map[string]*entity.SentEmail),
	}
}

// Save stores a sent email record
func (r *MemorySentEmailRepository) Save(ctx context.Context, email *entity.SentEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *email
	r.emails[email.ID] = &cp
	return nil
}

// FindByID finds a sent email by ID
func (r *MemorySentEmailRepository) FindByID(ctx context.Context, id string) (*entity.SentEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email, ok := r.emails[id]
	if !ok {
		return nil, fmt.Errorf("no sent email with id: %s", id)
	}
	cp := *email
	return &cp, nil
}

// FindByCampaign returns all sent emails for a campaign
func (r *MemorySentEmailRepository) FindByCampaign(ctx context.Context, campaignID string) ([]*entity.SentEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.SentEmail
	for _, email := range r.emails {
		if email.CampaignID == campaignID {
			cp := *email
			out = append(out, &cp)
		}
	}
	sortBySentAt(out)
	return out, nil
}

// FindOutstanding returns sent emails without a reply, oldest first
func (r *MemorySentEmailRepository) FindOutstanding(ctx context.Context) ([]*entity.SentEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.SentEmail
	for _, email := range r.emails {
		if !email.ReplyReceived {
			cp := *email
			out = append(out, &cp)
		}
	}
	sortBySentAt(out)
	return out, nil
}

// MarkReplied flips replyReceived and sets status to replied
func (r *MemorySentEmailRepository) MarkReplied(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email, ok := r.emails[id]
	if !ok {
		return fmt.Errorf("no sent email with id: %s", id)
	}
	email.ReplyReceived = true
	email.Status = entity.EmailStatusReplied
	return nil
}

// RecordFollowUp increments followUpCount and stamps lastFollowUp
func (r *MemorySentEmailRepository) RecordFollowUp(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email, ok := r.emails[id]
	if !ok {
		return fmt.Errorf("no sent email with id: %s", id)
	}
	email.FollowUpCount++
	t := at
	email.LastFollowUp = &t
	return nil
}

// UpdateStatus updates the delivery status
func (r *MemorySentEmailRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email, ok := r.emails[id]
	if !ok {
		return fmt.Errorf("no sent email with id: %s", id)
	}
	email.Status = status
	return nil
}

func sortBySentAt(emails []*entity.SentEmail) {
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].SentAt.Before(emails[j].SentAt)
	})
}
