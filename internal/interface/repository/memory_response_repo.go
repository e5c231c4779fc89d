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

// MemoryResponseRepository is the default in-process ResponseRepository
type MemoryResponseRepository struct {
	mu        sync.RWMutex
	responses map[string]*entity.GeneratedResponse
}

// NewMemoryResponseRepository creates a new in-memory response repository
func NewMemoryResponseRepository() repository.ResponseRepository {
	return &MemoryResponseRepository{
		responses: make(map[string]*entity.GeneratedResponse),
	}
}

// Save stores a generated response
func (r *MemoryResponseRepository) Save(ctx context.Context, response *entity.GeneratedResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *response
	r.responses[response.ID] = &cp
	return nil
}

// FindByID finds a response by ID
func (r *MemoryResponseRepository) FindByID(ctx context.Context, id string) (*entity.GeneratedResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	response, ok := r.responses[id]
	if !ok {
		return nil, fmt.Errorf("no response with id: %s", id)
	}
	cp := *response
	return &cp, nil
}

// FindPending returns unapproved responses that require approval, oldest first
func (r *MemoryResponseRepository) FindPending(ctx context.Context) ([]*entity.GeneratedResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.GeneratedResponse
	for _, response := range r.responses {
		if response.RequiresApproval && response.Approved == nil {
			cp := *response
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GeneratedAt.Before(out[j].GeneratedAt)
	})
	return out, nil
}

// MarkApproved approves a pending response exactly once
func (r *MemoryResponseRepository) MarkApproved(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	response, ok := r.responses[id]
	if !ok {
		return false, fmt.Errorf("no response with id: %s", id)
	}
	if !response.RequiresApproval || response.Approved != nil {
		return false, nil
	}
	approved := true
	response.Approved = &approved
	return true, nil
}

// MarkSent stamps the send time on a response
func (r *MemoryResponseRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	response, ok := r.responses[id]
	if !ok {
		return fmt.Errorf("no response with id: %s", id)
	}
	t := at
	response.SentAt = &t
	return nil
}
