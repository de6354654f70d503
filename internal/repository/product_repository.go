package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/sourcegraph/conc"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"babyfood-store/internal/models"
)

type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(collection *mongo.Collection) *ProductRepository {
	return &ProductRepository{
		collection: collection,
	}
}

// EnsureIndexes crea el índice único por slug
func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create crea un nuevo producto
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	product.ID = primitive.NewObjectID()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	product.IsDeleted = false

	_, err := r.collection.InsertOne(ctx, product)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	return err
}

// FindBySlug obtiene un producto por su slug
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var product models.Product
	filter := bson.M{
		"slug":       slug,
		"is_deleted": false,
	}

	err := r.collection.FindOne(ctx, filter).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	return &product, nil
}

// FindAll lista productos con paginación y filtros
func (r *ProductRepository) FindAll(ctx context.Context, f ListFilter) ([]*models.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	f = f.Normalize()
	filter := buildFilter(f)

	// Contar total en paralelo
	var (
		wg       conc.WaitGroup
		total    int64
		countErr error
	)
	wg.Go(func() {
		total, countErr = r.collection.CountDocuments(ctx, filter)
	})

	findOptions := options.Find().
		SetSkip(int64((f.Page - 1) * f.PageSize)).
		SetLimit(int64(f.PageSize))

	sortOrder := -1
	if f.SortOrder == "asc" {
		sortOrder = 1
	}
	findOptions.SetSort(bson.D{{Key: f.SortBy, Value: sortOrder}, {Key: "_id", Value: sortOrder}})

	var products []*models.Product
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err == nil {
		err = cursor.All(ctx, &products)
	}

	// Esperar el conteo
	wg.Wait()
	if err != nil {
		return nil, 0, err
	}
	if countErr != nil {
		return nil, 0, countErr
	}

	return products, total, nil
}

// SoftDelete marca un producto como eliminado
func (r *ProductRepository) SoftDelete(ctx context.Context, slug string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"slug":       slug,
		"is_deleted": false,
	}

	update := bson.M{
		"$set": bson.M{
			"is_deleted": true,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

// buildFilter traduce ListFilter a un filtro de MongoDB
func buildFilter(f ListFilter) bson.M {
	filter := bson.M{"is_deleted": false}

	if f.Collection != "" {
		// igual que el catálogo semilla: sin distinguir mayúsculas
		filter["collections"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Collection) + "$", Options: "i"}
	}
	if f.Featured != nil {
		filter["featured"] = *f.Featured
	}
	if f.Query != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
	}

	return filter
}
