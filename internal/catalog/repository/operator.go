package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	catalogerrors "simbook/internal/catalog/errors"
	"simbook/pkg/config"
	"simbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const OperatorCollection = "Operators"

// OperatorRepository reads the regional roster. Operator records and
// their availability declarations are mutated by external self-service;
// this core consumes them read-only.
type OperatorRepository interface {
	FindByID(ctx context.Context, id string) (*model.Operator, error)
	FindByRegion(ctx context.Context, regionID string) ([]*model.Operator, error)
	FindActiveByRegion(ctx context.Context, regionID string) ([]*model.Operator, error)
	FindAll(ctx context.Context) ([]*model.Operator, error)
}

type mongoOperatorRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOperatorRepository(cfg *config.Config) OperatorRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOperatorRepository{
		cfg:        cfg,
		collection: db.Collection(OperatorCollection),
	}
}

func (r *mongoOperatorRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoOperatorRepository) FindByID(ctx context.Context, id string) (*model.Operator, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	var operator model.Operator
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&operator)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrOperatorNotFound
		}
		return nil, fmt.Errorf("failed to find operator: %w", err)
	}

	return &operator, nil
}

func (r *mongoOperatorRepository) FindByRegion(ctx context.Context, regionID string) ([]*model.Operator, error) {
	return r.find(ctx, bson.M{"region_id": regionID})
}

func (r *mongoOperatorRepository) FindActiveByRegion(ctx context.Context, regionID string) ([]*model.Operator, error) {
	return r.find(ctx, bson.M{"region_id": regionID, "active": true})
}

func (r *mongoOperatorRepository) FindAll(ctx context.Context) ([]*model.Operator, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoOperatorRepository) find(ctx context.Context, filter bson.M) ([]*model.Operator, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find operators: %w", err)
	}
	defer cursor.Close(ctx)

	var operators []*model.Operator
	if err = cursor.All(ctx, &operators); err != nil {
		return nil, fmt.Errorf("failed to decode operators: %w", err)
	}

	return operators, nil
}
