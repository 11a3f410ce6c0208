package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository defines the interface for conversation operations.
// The pair_key unique index is the only guard against duplicate conversations:
// CreateConversation returns ErrDuplicate when another insert won the race.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conversation *models.Conversation) error
	GetConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	GetConversationByPairKey(ctx context.Context, pairKey string) (*models.Conversation, error)
	// UpsertAcceptedConversation finds the conversation by pair key, or creates it,
	// and leaves it accepted with no pending requester.
	UpsertAcceptedConversation(ctx context.Context, participants [2]uint, now time.Time) (*models.Conversation, error)
	AcceptConversation(ctx context.Context, id string, now time.Time) error
	DeleteConversation(ctx context.Context, id string) error
	UpdateLastMessage(ctx context.Context, id, preview string, now time.Time) error
	GetAcceptedConversations(ctx context.Context, userID uint) ([]models.Conversation, error)
	GetPendingRequests(ctx context.Context, userID uint) ([]models.Conversation, error)
}

type mongoConversationRepository struct {
	collection *mongo.Collection
}

func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &mongoConversationRepository{collection: db.Collection("conversations")}
}

func (r *mongoConversationRepository) CreateConversation(ctx context.Context, conversation *models.Conversation) error {
	conversation.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, conversation)
	return translateMongo(err)
}

func (r *mongoConversationRepository) findOne(ctx context.Context, filter bson.M) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.collection.FindOne(ctx, filter).Decode(&conversation); err != nil {
		return nil, translateMongo(err)
	}
	return &conversation, nil
}

func (r *mongoConversationRepository) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	objID, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

func (r *mongoConversationRepository) GetConversationByPairKey(ctx context.Context, pairKey string) (*models.Conversation, error) {
	return r.findOne(ctx, bson.M{"pair_key": pairKey})
}

func (r *mongoConversationRepository) UpsertAcceptedConversation(ctx context.Context, participants [2]uint, now time.Time) (*models.Conversation, error) {
	pairKey := models.PairKey(participants[0], participants[1])
	update := bson.M{
		"$set": bson.M{
			"is_accepted":  true,
			"requested_by": nil,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"participants": []uint{participants[0], participants[1]},
			"pair_key":     pairKey,
			"last_message": "",
			"created_at":   now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conversation models.Conversation
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"pair_key": pairKey}, update, opts).Decode(&conversation)
	if mongo.IsDuplicateKeyError(err) {
		// Two upserts raced on the unique index; the loser retries as a plain update.
		err = r.collection.FindOneAndUpdate(ctx, bson.M{"pair_key": pairKey}, update, opts).Decode(&conversation)
	}
	if err != nil {
		return nil, translateMongo(err)
	}
	return &conversation, nil
}

func (r *mongoConversationRepository) AcceptConversation(ctx context.Context, id string, now time.Time) error {
	objID, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{
		"is_accepted":  true,
		"requested_by": nil,
		"updated_at":   now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoConversationRepository) DeleteConversation(ctx context.Context, id string) error {
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

func (r *mongoConversationRepository) UpdateLastMessage(ctx context.Context, id, preview string, now time.Time) error {
	objID, err := objectID(id)
	if err != nil {
		return err
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{
		"last_message": preview,
		"updated_at":   now,
	}})
	return err
}

func (r *mongoConversationRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Conversation, error) {
	conversations := []models.Conversation{}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *mongoConversationRepository) GetAcceptedConversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	return r.find(ctx,
		bson.M{"participants": userID, "is_accepted": true},
		bson.D{{Key: "updated_at", Value: -1}},
	)
}

func (r *mongoConversationRepository) GetPendingRequests(ctx context.Context, userID uint) ([]models.Conversation, error) {
	return r.find(ctx,
		bson.M{"participants": userID, "is_accepted": false, "requested_by": bson.M{"$ne": userID}},
		bson.D{{Key: "created_at", Value: -1}},
	)
}

// EnsureIndexes creates the MongoDB indexes the stores rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"conversations": {
			{Keys: bson.D{{Key: "pair_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updated_at", Value: -1}}},
		},
		"messages": {
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		"stories": {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "expires_at", Value: 1}}},
		},
		"posts": {
			{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for collection, idx := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
