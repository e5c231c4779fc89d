package repository

import (
	"context"
	"time"

	"donorcast-service/internal/domain/entity"
)

// SentEmailRepository defines storage operations for outbound send records
type SentEmailRepository interface {
	Save(ctx context.Context, email *entity.SentEmail) error
	FindByID(ctx context.Context, id string) (*entity.SentEmail, error)
	FindByCampaign(ctx context.Context, campaignID string) ([]*entity.SentEmail, error)
	// FindOutstanding returns sent emails that have not yet received a reply,
	// ordered by sentAt ascending. This is the reply monitor's correlation index.
	FindOutstanding(ctx context.Context) ([]*entity.SentEmail, error)
	// MarkReplied flips replyReceived and sets status to replied
	MarkReplied(ctx context.Context, id string) error
	// RecordFollowUp increments followUpCount and stamps lastFollowUp
	RecordFollowUp(ctx context.Context, id string, at time.Time) error
	UpdateStatus(ctx context.Context, id string, status string) error
}
