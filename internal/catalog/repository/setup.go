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

const SetupCollection = "Setups"

// SetupRepository reads the region-scoped rig inventory. Setups are
// written by an external admin workflow; this core never mutates them.
type SetupRepository interface {
	FindByID(ctx context.Context, id string) (*model.Setup, error)
	FindByRegion(ctx context.Context, regionID string) ([]*model.Setup, error)
	FindActiveByRegion(ctx context.Context, regionID string) ([]*model.Setup, error)
}

type mongoSetupRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSetupRepository(cfg *config.Config) SetupRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSetupRepository{
		cfg:        cfg,
		collection: db.Collection(SetupCollection),
	}
}

func (r *mongoSetupRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSetupRepository) FindByID(ctx context.Context, id string) (*model.Setup, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	var setup model.Setup
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&setup)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrSetupNotFound
		}
		return nil, fmt.Errorf("failed to find setup: %w", err)
	}

	return &setup, nil
}

func (r *mongoSetupRepository) FindByRegion(ctx context.Context, regionID string) ([]*model.Setup, error) {
	return r.find(ctx, bson.M{"region_id": regionID})
}

func (r *mongoSetupRepository) FindActiveByRegion(ctx context.Context, regionID string) ([]*model.Setup, error) {
	return r.find(ctx, bson.M{"region_id": regionID, "active": true})
}

func (r *mongoSetupRepository) find(ctx context.Context, filter bson.M) ([]*model.Setup, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	// Stable ordering keeps deterministic assignment simple downstream:
	// the first free setup is always the lowest ID.
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find setups: %w", err)
	}
	defer cursor.Close(ctx)

	var setups []*model.Setup
	if err = cursor.All(ctx, &setups); err != nil {
		return nil, fmt.Errorf("failed to decode setups: %w", err)
	}

	return setups, nil
}
