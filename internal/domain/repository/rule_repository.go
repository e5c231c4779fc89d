package repository

import (
	"context"

	"donorcast-service/internal/domain/entity"
)

// RuleRepository defines storage operations for follow-up rule configuration
type RuleRepository interface {
	Save(ctx context.Context, rule *entity.FollowUpRule) error
	FindByID(ctx context.Context, id string) (*entity.FollowUpRule, error)
	FindEnabled(ctx context.Context) ([]*entity.FollowUpRule, error)
}
