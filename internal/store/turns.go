package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
)

// TurnStore is the append-only conversation log, partitioned by userId.
type TurnStore struct {
	collection *mongo.Collection
}

func NewTurnStore(collection *mongo.Collection) *TurnStore {
	return &TurnStore{collection: collection}
}

func (s *TurnStore) Append(ctx context.Context, turn *models.ConversationTurn) error {
	if turn.ID.IsZero() {
		turn.ID = primitive.NewObjectID()
	}
	if turn.Language == "" {
		turn.Language = models.DefaultLanguage
	}
	_, err := s.collection.InsertOne(ctx, turn)
	return err
}

// Recent returns the n most recent turns for a user in ascending createdAt
// order, ready for prompt assembly.
func (s *TurnStore) Recent(ctx context.Context, userID string, n int64) ([]models.ConversationTurn, error) {
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(n)
	cursor, err := s.collection.Find(ctx, bson.M{"userId": userObjID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var turns []models.ConversationTurn
	if err := cursor.All(ctx, &turns); err != nil {
		return nil, err
	}

	// Cursor yields newest-first; flip to conversation order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// History returns up to limit turns for the history endpoint, oldest first.
func (s *TurnStore) History(ctx context.Context, userID string, limit int64) ([]models.ConversationTurn, error) {
	return s.Recent(ctx, userID, limit)
}
