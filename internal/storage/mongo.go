package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"babyfood-store/internal/models"
)

type cartDocument struct {
	Key       string            `bson:"_id"`
	Lines     []models.CartLine `bson:"lines"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// MongoStorage guarda un documento por carrito en la colección carts
type MongoStorage struct {
	collection *mongo.Collection
}

func NewMongoStorage(collection *mongo.Collection) *MongoStorage {
	return &MongoStorage{collection: collection}
}

func (s *MongoStorage) Load(ctx context.Context, key string) (models.CartState, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	empty := models.CartState{Lines: []models.CartLine{}}

	raw, err := s.collection.FindOne(ctx, bson.M{"_id": key}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return empty, false, nil
		}
		return empty, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var doc cartDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		// documento corrupto: carrito vacío
		return empty, false, nil
	}
	return Sanitize(models.CartState{Lines: doc.Lines}), true, nil
}

func (s *MongoStorage) Save(ctx context.Context, key string, state models.CartState) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	lines := state.Lines
	if lines == nil {
		lines = []models.CartLine{}
	}
	doc := cartDocument{Key: key, Lines: lines, UpdatedAt: time.Now().UTC()}

	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
