package repositories

import (
	"context"

	"github.com/anonto42/saylink/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository defines the interface for message operations
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessagesByConversationID(ctx context.Context, conversationID string) ([]models.Message, error)
	// MarkSeen adds userID to seen_by on every message of the conversation sent by
	// someone else, returning how many messages changed.
	MarkSeen(ctx context.Context, conversationID string, userID uint) (int64, error)
}

type mongoMessageRepository struct {
	collection *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepository{collection: db.Collection("messages")}
}

func (r *mongoMessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	if message.SeenBy == nil {
		message.SeenBy = []uint{}
	}
	_, err := r.collection.InsertOne(ctx, message)
	return err
}

func (r *mongoMessageRepository) GetMessagesByConversationID(ctx context.Context, conversationID string) ([]models.Message, error) {
	objID, err := objectID(conversationID)
	if err != nil {
		return nil, err
	}
	messages := []models.Message{}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": objID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *mongoMessageRepository) MarkSeen(ctx context.Context, conversationID string, userID uint) (int64, error) {
	objID, err := objectID(conversationID)
	if err != nil {
		return 0, err
	}
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"conversation_id": objID, "sender_id": bson.M{"$ne": userID}, "seen_by": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"seen_by": userID}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
