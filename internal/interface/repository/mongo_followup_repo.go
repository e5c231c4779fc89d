package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/domain/repository"
)

// MongoFollowUpEventRepository implements the FollowUpEventRepository
// interface. Transitions out of the scheduled state are single compare-and-
// swap updates so concurrent tickers cannot double-fire an event.
type MongoFollowUpEventRepository struct {
	collection *mongo.Collection
}

// NewMongoFollowUpEventRepository creates a new MongoDB follow-up event repository
func NewMongoFollowUpEventRepository(db *mongo.Database) repository.FollowUpEventRepository {
	collection := db.Collection("followUpEvents")

	ctx := context.Background()

	sentEmailIndex := mongo.IndexModel{
		Keys: bson.M{"sentEmailId": 1},
	}

	// Compound index backing the due-event scan
	dueIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "scheduledFor", Value: 1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		sentEmailIndex,
		dueIndex,
	})

	return &MongoFollowUpEventRepository{
		collection: collection,
	}
}

// Save saves a follow-up event to MongoDB
func (r *MongoFollowUpEventRepository) Save(ctx context.Context, event *entity.FollowUpEvent) error {
	if event.Status == "" {
		event.Status = entity.FollowUpStatusScheduled
	}
	_, err := r.collection.InsertOne(ctx, event)
	return err
}

// FindByID finds an event by ID
func (r *MongoFollowUpEventRepository) FindByID(ctx context.Context, id string) (*entity.FollowUpEvent, error) {
	var event entity.FollowUpEvent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no follow-up event with id: %s", id)
		}
		return nil, err
	}
	return &event, nil
}

// FindScheduled returns every event still in the scheduled state
func (r *MongoFollowUpEventRepository) FindScheduled(ctx context.Context) ([]*entity.FollowUpEvent, error) {
	return r.findByFilter(ctx, bson.M{"status": entity.FollowUpStatusScheduled})
}

// FindDue returns scheduled events whose time has come, oldest first
func (r *MongoFollowUpEventRepository) FindDue(ctx context.Context, now time.Time) ([]*entity.FollowUpEvent, error) {
	return r.findByFilter(ctx, bson.M{
		"status":       entity.FollowUpStatusScheduled,
		"scheduledFor": bson.M{"$lte": now},
	})
}

// FindBySentEmail returns all events for a sent email
func (r *MongoFollowUpEventRepository) FindBySentEmail(ctx context.Context, sentEmailID string) ([]*entity.FollowUpEvent, error) {
	return r.findByFilter(ctx, bson.M{"sentEmailId": sentEmailID})
}

func (r *MongoFollowUpEventRepository) findByFilter(ctx context.Context, filter bson.M) ([]*entity.FollowUpEvent, error) {
	cursor, err := r.collection.Find(ctx, filter, &options.FindOptions{
		Sort: bson.D{{Key: "scheduledFor", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*entity.FollowUpEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// TransitionFromScheduled moves the event to a terminal state. Returns false
// without error when the event already left the scheduled state.
func (r *MongoFollowUpEventRepository) TransitionFromScheduled(ctx context.Context, id, status, reason string, executedAt *time.Time) (bool, error) {
	set := bson.M{"status": status}
	if reason != "" {
		set["reason"] = reason
	}
	if executedAt != nil {
		set["executedAt"] = *executedAt
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": entity.FollowUpStatusScheduled},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition event: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

// CancelScheduledForEmail cancels every scheduled event for the sent email
func (r *MongoFollowUpEventRepository) CancelScheduledForEmail(ctx context.Context, sentEmailID, reason string) (int, error) {
	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{"sentEmailId": sentEmailID, "status": entity.FollowUpStatusScheduled},
		bson.M{"$set": bson.M{
			"status": entity.FollowUpStatusCancelled,
			"reason": reason,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel events: %w", err)
	}
	return int(result.ModifiedCount), nil
}

// Reschedule moves a scheduled event to a new time
func (r *MongoFollowUpEventRepository) Reschedule(ctx context.Context, id string, newTime time.Time) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": entity.FollowUpStatusScheduled},
		bson.M{"$set": bson.M{"scheduledFor": newTime}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to reschedule event: %w", err)
	}
	return result.MatchedCount > 0, nil
}

// LastExecutionForEmail returns the most recent executedAt among sent events
// for the sent email, or nil when none executed yet
func (r *MongoFollowUpEventRepository) LastExecutionForEmail(ctx context.Context, sentEmailID string) (*time.Time, error) {
	var event entity.FollowUpEvent
	opts := options.FindOne().SetSort(bson.D{{Key: "executedAt", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{
		"sentEmailId": sentEmailID,
		"status":      entity.FollowUpStatusSent,
		"executedAt":  bson.M{"$exists": true},
	}, opts).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return event.ExecutedAt, nil
}
