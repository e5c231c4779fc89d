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

// MongoReplyRepository implements the ReplyRepository interface
type MongoReplyRepository struct {
	collection *mongo.Collection
}

// NewMongoReplyRepository creates a new MongoDB reply repository
func NewMongoReplyRepository(db *mongo.Database) repository.ReplyRepository {
	collection := db.Collection("emailReplies")

	ctx := context.Background()

	originalEmailIndex := mongo.IndexModel{
		Keys: bson.M{"originalEmailId": 1},
	}

	// Compound index backing the dedup lookup
	dedupIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "fromEmail", Value: 1},
			{Key: "originalEmailId", Value: 1},
			{Key: "receivedAt", Value: -1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		originalEmailIndex,
		dedupIndex,
	})

	return &MongoReplyRepository{
		collection: collection,
	}
}

// Save saves a reply to MongoDB
func (r *MongoReplyRepository) Save(ctx context.Context, reply *entity.EmailReply) error {
	_, err := r.collection.InsertOne(ctx, reply)
	return err
}

// FindByID finds a reply by ID
func (r *MongoReplyRepository) FindByID(ctx context.Context, id string) (*entity.EmailReply, error) {
	var reply entity.EmailReply
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reply)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no reply with id: %s", id)
		}
		return nil, err
	}
	return &reply, nil
}

// FindBySentEmail finds all replies to a sent email, oldest first
func (r *MongoReplyRepository) FindBySentEmail(ctx context.Context, sentEmailID string) ([]*entity.EmailReply, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"originalEmailId": sentEmailID}, &options.FindOptions{
		Sort: bson.D{{Key: "receivedAt", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var replies []*entity.EmailReply
	if err := cursor.All(ctx, &replies); err != nil {
		return nil, err
	}
	return replies, nil
}

// ExistsForSentEmailSince reports whether any reply for the sent email arrived
// at or after the given time
func (r *MongoReplyRepository) ExistsForSentEmailSince(ctx context.Context, sentEmailID string, since time.Time) (bool, error) {
	filter := bson.M{"originalEmailId": sentEmailID}
	if !since.IsZero() {
		filter["receivedAt"] = bson.M{"$gte": since}
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasRecentDuplicate reports whether the same sender already replied to the
// same sent email within the dedup window around at
func (r *MongoReplyRepository) HasRecentDuplicate(ctx context.Context, fromEmail, sentEmailID string, at time.Time, window time.Duration) (bool, error) {
	filter := bson.M{
		"fromEmail":       fromEmail,
		"originalEmailId": sentEmailID,
		"receivedAt": bson.M{
			"$gte": at.Add(-window),
			"$lte": at.Add(window),
		},
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetSentiment stores the classifier verdict on the reply
func (r *MongoReplyRepository) SetSentiment(ctx context.Context, id string, sentiment string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"sentiment": sentiment}},
	)
	if err != nil {
		return fmt.Errorf("failed to set sentiment: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no reply found with id: %s", id)
	}
	return nil
}

// MarkProcessed marks the reply as fully handled
func (r *MongoReplyRepository) MarkProcessed(ctx context.Context, id string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"processed": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark processed: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no reply found with id: %s", id)
	}
	return nil
}
