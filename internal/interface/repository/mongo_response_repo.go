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

// MongoResponseRepository implements the ResponseRepository interface
type MongoResponseRepository struct {
	collection *mongo.Collection
}

// NewMongoResponseRepository creates a new MongoDB response repository
func NewMongoResponseRepository(db *mongo.Database) repository.ResponseRepository {
	collection := db.Collection("generatedResponses")

	ctx := context.Background()

	// Compound index backing the pending-approval queue
	pendingIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "requiresApproval", Value: 1},
			{Key: "generatedAt", Value: 1},
		},
	}

	replyToIndex := mongo.IndexModel{
		Keys: bson.M{"replyToEmailId": 1},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		pendingIndex,
		replyToIndex,
	})

	return &MongoResponseRepository{
		collection: collection,
	}
}

// Save saves a generated response to MongoDB
func (r *MongoResponseRepository) Save(ctx context.Context, response *entity.GeneratedResponse) error {
	_, err := r.collection.InsertOne(ctx, response)
	return err
}

// FindByID finds a response by ID
func (r *MongoResponseRepository) FindByID(ctx context.Context, id string) (*entity.GeneratedResponse, error) {
	var response entity.GeneratedResponse
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&response)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no response with id: %s", id)
		}
		return nil, err
	}
	return &response, nil
}

// FindPending returns responses awaiting operator approval, oldest first
func (r *MongoResponseRepository) FindPending(ctx context.Context) ([]*entity.GeneratedResponse, error) {
	filter := bson.M{
		"requiresApproval": true,
		"approved":         bson.M{"$exists": false},
	}
	cursor, err := r.collection.Find(ctx, filter, &options.FindOptions{
		Sort: bson.D{{Key: "generatedAt", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var responses []*entity.GeneratedResponse
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}

// MarkApproved flips a pending response to approved exactly once
func (r *MongoResponseRepository) MarkApproved(ctx context.Context, id string) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{
			"_id":              id,
			"requiresApproval": true,
			"approved":         bson.M{"$exists": false},
		},
		bson.M{"$set": bson.M{"approved": true}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to approve response: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

// MarkSent stamps the send time on the response
func (r *MongoResponseRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"sentAt": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark sent: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no response found with id: %s", id)
	}
	return nil
}
