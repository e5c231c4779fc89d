package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/domain/repository"
)

// MemoryRuleRepository is the default in-process RuleRepository
type MemoryRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]*entity.FollowUpRule
}

// NewMemoryRuleRepository creates a new in-memory rule repository
func NewMemoryRuleRepository() repository.RuleRepository {
	return &MemoryRuleRepository{
		rules: make(map[string]*entity.FollowUpRule),
	}
}

// Save stores a follow-up rule
func (r *MemoryRuleRepository) Save(ctx context.Context, rule *entity.FollowUpRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

// FindByID finds a rule by ID
func (r *MemoryRuleRepository) FindByID(ctx context.Context, id string) (*entity.FollowUpRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	if !ok {
		return nil, fmt.Errorf("no rule with id: %s", id)
	}
	cp := *rule
	return &cp, nil
}

// FindEnabled returns all enabled rules ordered by name
func (r *MemoryRuleRepository) FindEnabled(ctx context.Context) ([]*entity.FollowUpRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.FollowUpRule
	for _, rule := range r.rules {
		if rule.Enabled {
			cp := *rule
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}
