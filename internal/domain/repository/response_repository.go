package repository

import (
	"context"
	"time"

	"donorcast-service/internal/domain/entity"
)

// ResponseRepository defines storage operations for generated responses
type ResponseRepository interface {
	Save(ctx context.Context, response *entity.GeneratedResponse) error
	FindByID(ctx context.Context, id string) (*entity.GeneratedResponse, error)
	// FindPending returns responses awaiting operator approval, oldest first
	FindPending(ctx context.Context) ([]*entity.GeneratedResponse, error)
	// MarkApproved flips a pending response to approved exactly once. Returns
	// false when the response was not pending approval.
	MarkApproved(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
}
