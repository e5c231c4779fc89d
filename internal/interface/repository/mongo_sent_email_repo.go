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

// MongoSentEmailRepository implements the SentEmailRepository interface
type MongoSentEmailRepository struct {
	collection *mongo.Collection
}

// NewMongoSentEmailRepository creates a new MongoDB sent email repository
func NewMongoSentEmailRepository(db *mongo.Database) repository.SentEmailRepository {
	collection := db.Collection("sentEmails")

	// Create indexes for better performance
	ctx := context.Background()

	campaignIndex := mongo.IndexModel{
		Keys: bson.M{"campaignId": 1},
	}

	// Compound index backing the outstanding-email correlation scan
	outstandingIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "replyReceived", Value: 1},
			{Key: "sentAt", Value: 1},
		},
	}

	contactIndex := mongo.IndexModel{
		Keys: bson.M{"contactEmail": 1},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		campaignIndex,
		outstandingIndex,
		contactIndex,
	})

	return &MongoSentEmailRepository{
		collection: collection,
	}
}

// Save saves a sent email record to MongoDB
func (r *MongoSentEmailRepository) Save(ctx context.Context, email *entity.SentEmail) error {
	if email.Status == "" {
		email.Status = entity.EmailStatusSent
	}
	_, err := r.collection.InsertOne(ctx, email)
	return err
}

// FindByID finds a sent email by ID
func (r *MongoSentEmailRepository) FindByID(ctx context.Context, id string) (*entity.SentEmail, error) {
	var email entity.SentEmail
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&email)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no sent email with id: %s", id)
		}
		return nil, err
	}
	return &email, nil
}

// FindByCampaign finds all sent emails for a campaign
func (r *MongoSentEmailRepository) FindByCampaign(ctx context.Context, campaignID string) ([]*entity.SentEmail, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"campaignId": campaignID}, &options.FindOptions{
		Sort: bson.D{{Key: "sentAt", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var emails []*entity.SentEmail
	if err := cursor.All(ctx, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// FindOutstanding finds sent emails that have not received a reply yet
func (r *MongoSentEmailRepository) FindOutstanding(ctx context.Context) ([]*entity.SentEmail, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"replyReceived": false}, &options.FindOptions{
		Sort: bson.D{{Key: "sentAt", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var emails []*entity.SentEmail
	if err := cursor.All(ctx, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// MarkReplied flips replyReceived and moves the status to replied
func (r *MongoSentEmailRepository) MarkReplied(ctx context.Context, id string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"replyReceived": true,
			"status":        entity.EmailStatusReplied,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark replied: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no sent email found with id: %s", id)
	}
	return nil
}

// RecordFollowUp increments the follow-up counter and stamps lastFollowUp
func (r *MongoSentEmailRepository) RecordFollowUp(ctx context.Context, id string, at time.Time) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"followUpCount": 1},
			"$set": bson.M{"lastFollowUp": at},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to record follow-up: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no sent email found with id: %s", id)
	}
	return nil
}

// UpdateStatus updates the delivery status
func (r *MongoSentEmailRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no sent email found with id: %s", id)
	}
	return nil
}
