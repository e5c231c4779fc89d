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

// MemoryCampaignRepository is the default in-process CampaignRepository
type MemoryCampaignRepository struct {
	mu        sync.RWMutex
	campaigns map[string]*entity.EmailCampaign
}

// NewMemoryCampaignRepository creates a new in-memory campaign repository
func NewMemoryCampaignRepository() repository.CampaignRepository {
	return &MemoryCampaignRepository{
		campaigns: make(map[string]*entity.EmailCampaign),
	}
}

// Save stores a campaign
func (r *MemoryCampaignRepository) Save(ctx context.Context, campaign *entity.EmailCampaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *campaign
	r.campaigns[campaign.ID] = &cp
	return nil
}

// FindByID finds a campaign by ID
func (r *MemoryCampaignRepository) FindByID(ctx context.Context, id string) (*entity.EmailCampaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("no campaign with id: %s", id)
	}
	cp := *campaign
	return &cp, nil
}

// List returns all campaigns, oldest first
func (r *MemoryCampaignRepository) List(ctx context.Context) ([]*entity.EmailCampaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.EmailCampaign
	for _, campaign := range r.campaigns {
		cp := *campaign
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus moves a campaign through its state machine
func (r *MemoryCampaignRepository) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return fmt.Errorf("no campaign with id: %s", id)
	}
	campaign.Status = status
	switch status {
	case entity.CampaignStatusRunning:
		if campaign.StartedAt == nil {
			t := at
			campaign.StartedAt = &t
		}
	case entity.CampaignStatusCompleted:
		t := at
		campaign.CompletedAt = &t
	}
	return nil
}
