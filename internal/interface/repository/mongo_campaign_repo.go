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

// MongoCampaignRepository implements the CampaignRepository interface
type MongoCampaignRepository struct {
	collection *mongo.Collection
}

// NewMongoCampaignRepository creates a new MongoDB campaign repository
func NewMongoCampaignRepository(db *mongo.Database) repository.CampaignRepository {
	collection := db.Collection("campaigns")

	ctx := context.Background()

	statusIndex := mongo.IndexModel{
		Keys: bson.M{"status": 1},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{statusIndex})

	return &MongoCampaignRepository{
		collection: collection,
	}
}

// Save upserts a campaign document
func (r *MongoCampaignRepository) Save(ctx context.Context, campaign *entity.EmailCampaign) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": campaign.ID}, campaign, opts)
	return err
}

// FindByID finds a campaign by ID
func (r *MongoCampaignRepository) FindByID(ctx context.Context, id string) (*entity.EmailCampaign, error) {
	var campaign entity.EmailCampaign
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&campaign)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no campaign with id: %s", id)
		}
		return nil, err
	}
	return &campaign, nil
}

// List returns every campaign, newest first
func (r *MongoCampaignRepository) List(ctx context.Context) ([]*entity.EmailCampaign, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, &options.FindOptions{
		Sort: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var campaigns []*entity.EmailCampaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// UpdateStatus moves the campaign to a new lifecycle state, stamping
// startedAt or completedAt as appropriate
func (r *MongoCampaignRepository) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	set := bson.M{"status": status}
	switch status {
	case entity.CampaignStatusRunning:
		set["startedAt"] = at
	case entity.CampaignStatusCompleted:
		set["completedAt"] = at
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no campaign found with id: %s", id)
	}
	return nil
}
