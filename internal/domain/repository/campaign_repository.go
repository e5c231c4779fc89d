package repository

import (
	"context"
	"time"

	"donorcast-service/internal/domain/entity"
)

// CampaignRepository defines storage operations for campaigns
type CampaignRepository interface {
	Save(ctx context.Context, campaign *entity.EmailCampaign) error
	FindByID(ctx context.Context, id string) (*entity.EmailCampaign, error)
	List(ctx context.Context) ([]*entity.EmailCampaign, error)
	UpdateStatus(ctx context.Context, id, status string, at time.Time) error
}
