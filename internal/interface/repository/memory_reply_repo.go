package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/domain/repository"
)

// MemoryReplyRepository is the default in-process ReplyRepository
type MemoryReplyRepository struct {
	mu      sync.RWMutex
	replies map[string]*entity.EmailReply
}

// NewMemoryReplyRepository creates a new in-memory reply repository
func NewMemoryReplyRepository() repository.ReplyRepository {
	return &MemoryReplyRepository{
		replies: make(map[string]*entity.EmailReply),
	}
}

// Save stores a reply
func (r *MemoryReplyRepository) Save(ctx context.Context, reply *entity.EmailReply) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *reply
	r.replies[reply.ID] = &cp
	return nil
}

// FindByID finds a reply by ID
func (r *MemoryReplyRepository) FindByID(ctx context.Context, id string) (*entity.EmailReply, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reply, ok := r.replies[id]
	if !ok {
		return nil, fmt.Errorf("no reply with id: %s", id)
	}
	cp := *reply
	return &cp, nil
}

// FindBySentEmail returns all replies for a sent email, oldest first
func (r *MemoryReplyRepository) FindBySentEmail(ctx context.Context, sentEmailID string) ([]*entity.EmailReply, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.EmailReply
	for _, reply := range r.replies {
		if reply.OriginalEmailID == sentEmailID {
			cp := *reply
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out, nil
}

// ExistsForSentEmailSince reports whether any reply for the sent email arrived
// at or after since
func (r *MemoryReplyRepository) ExistsForSentEmailSince(ctx context.Context, sentEmailID string, since time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reply := range r.replies {
		if reply.OriginalEmailID == sentEmailID && !reply.ReceivedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// HasRecentDuplicate reports whether an equivalent reply already exists within
// the dedup window around at
func (r *MemoryReplyRepository) HasRecentDuplicate(ctx context.Context, fromEmail, sentEmailID string, at time.Time, window time.Duration) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reply := range r.replies {
		if reply.OriginalEmailID != sentEmailID {
			continue
		}
		if !strings.EqualFold(reply.FromEmail, fromEmail) {
			continue
		}
		delta := at.Sub(reply.ReceivedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			return true, nil
		}
	}
	return false, nil
}

// SetSentiment records the classified sentiment on a reply
func (r *MemoryReplyRepository) SetSentiment(ctx context.Context, id string, sentiment string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reply, ok := r.replies[id]
	if !ok {
		return fmt.Errorf("no reply with id: %s", id)
	}
	reply.Sentiment = sentiment
	return nil
}

// MarkProcessed flags a reply as fully handled
func (r *MemoryReplyRepository) MarkProcessed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reply, ok := r.replies[id]
	if !ok {
		return fmt.Errorf("no reply with id: %s", id)
	}
	reply.Processed = true
	return nil
}
