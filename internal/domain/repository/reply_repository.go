package repository

import (
	"context"
	"time"

	"donorcast-service/internal/domain/entity"
)

// ReplyRepository defines storage operations for inbound replies
type ReplyRepository interface {
	Save(ctx context.Context, reply *entity.EmailReply) error
	FindByID(ctx context.Context, id string) (*entity.EmailReply, error)
	FindBySentEmail(ctx context.Context, sentEmailID string) ([]*entity.EmailReply, error)
	// ExistsForSentEmailSince reports whether any reply for the sent email
	// arrived at or after the given time. A zero time matches every reply.
	ExistsForSentEmailSince(ctx context.Context, sentEmailID string, since time.Time) (bool, error)
	// HasRecentDuplicate reports whether a reply from the same sender for the
	// same sent email was already recorded within the dedup window around at.
	HasRecentDuplicate(ctx context.Context, fromEmail, sentEmailID string, at time.Time, window time.Duration) (bool, error)
	SetSentiment(ctx context.Context, id string, sentiment string) error
	MarkProcessed(ctx context.Context, id string) error
}
