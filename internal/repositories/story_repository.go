package repositories

import (
	"context"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoryRepository defines the interface for story operations.
// Every list query takes the current time and never returns an expired story.
type StoryRepository interface {
	CreateStory(ctx context.Context, story *models.Story) error
	GetStoryByID(ctx context.Context, id string) (*models.Story, error)
	GetActiveStoriesByUserIDs(ctx context.Context, userIDs []uint, now time.Time) ([]models.Story, error)
	// AddViewer appends viewerID to the story's viewer set and reports whether
	// it was not already present.
	AddViewer(ctx context.Context, storyID string, viewerID uint) (bool, error)
	DeleteStory(ctx context.Context, id string) error
}

type storyRepository struct {
	collection *mongo.Collection
}

func NewStoryRepository(mongoDB *mongo.Database) StoryRepository {
	return &storyRepository{collection: mongoDB.Collection("stories")}
}

func (r *storyRepository) CreateStory(ctx context.Context, story *models.Story) error {
	story.ID = primitive.NewObjectID()
	if story.Viewers == nil {
		story.Viewers = []uint{}
	}
	_, err := r.collection.InsertOne(ctx, story)
	return err
}

func (r *storyRepository) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	objID, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var story models.Story
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&story); err != nil {
		return nil, translateMongo(err)
	}
	return &story, nil
}

func (r *storyRepository) GetActiveStoriesByUserIDs(ctx context.Context, userIDs []uint, now time.Time) ([]models.Story, error) {
	stories := []models.Story{}
	if len(userIDs) == 0 {
		return stories, nil
	}
	filter := bson.M{
		"user_id":    bson.M{"$in": userIDs},
		"expires_at": bson.M{"$gt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *storyRepository) AddViewer(ctx context.Context, storyID string, viewerID uint) (bool, error) {
	objID, err := objectID(storyID)
	if err != nil {
		return false, err
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$addToSet": bson.M{"viewers": viewerID}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return res.ModifiedCount > 0, nil
}

func (r *storyRepository) DeleteStory(ctx context.Context, id string) error {
	objID, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
