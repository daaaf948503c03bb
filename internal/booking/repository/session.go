package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingerrors "simbook/internal/booking/errors"
	"simbook/pkg/config"
	mongotx "simbook/pkg/db/mongo"
	"simbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const SessionCollection = "Sessions"

type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindAll(ctx context.Context) ([]*model.Session, error)
	FindByRegionAndDate(ctx context.Context, regionID, date string) ([]*model.Session, error)
	FindOpenByRegion(ctx context.Context, regionID string) ([]*model.Session, error)
	FindConfirmed(ctx context.Context) ([]*model.Session, error)
	Update(ctx context.Context, id string, patch *model.SessionUpdate) (*mongo.UpdateResult, error)
	Delete(ctx context.Context, id string) error
	AddAcceptedOperator(ctx context.Context, id, operatorID string) error
	RemoveAcceptedOperator(ctx context.Context, id, operatorID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSessionRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSessionRepository(cfg *config.Config) SessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSessionRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(SessionCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context
// unchanged with a no-op cancel function, as wrapping a SessionContext breaks
// transaction semantics.
func (r *mongoSessionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSessionRepository) Create(ctx context.Context, s *model.Session) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	s.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, s)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		s.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingerrors.ErrInvalidID, id)
	}

	var s model.Session
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingerrors.ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	s.Normalize()
	return &s, nil
}

func (r *mongoSessionRepository) FindAll(ctx context.Context) ([]*model.Session, error) {
	return r.find(ctx, bson.M{})
}

// FindByRegionAndDate returns every non-cancelled session occupying the
// given day. Records written before the multi-setup migration carry the
// date under scheduled_date; both spellings match here so old rows still
// count against capacity.
func (r *mongoSessionRepository) FindByRegionAndDate(ctx context.Context, regionID, date string) ([]*model.Session, error) {
	filter := bson.M{
		"region_id": regionID,
		"status":    bson.M{"$ne": model.StatusCancelled},
		"$or": []bson.M{
			{"date": date},
			{"scheduled_date": date},
		},
	}
	return r.find(ctx, filter)
}

func (r *mongoSessionRepository) FindOpenByRegion(ctx context.Context, regionID string) ([]*model.Session, error) {
	filter := bson.M{
		"region_id":           regionID,
		"status":              model.StatusConfirmed,
		"marketplace_visible": true,
		"$or": []bson.M{
			{"setup_ids.0": bson.M{"$exists": true}},
			{"setup_id": bson.M{"$nin": []interface{}{nil, ""}}},
		},
	}
	return r.find(ctx, filter)
}

func (r *mongoSessionRepository) FindConfirmed(ctx context.Context) ([]*model.Session, error) {
	return r.find(ctx, bson.M{"status": model.StatusConfirmed})
}

func (r *mongoSessionRepository) find(ctx context.Context, filter bson.M) ([]*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	for _, s := range sessions {
		s.Normalize()
	}
	return sessions, nil
}

func (r *mongoSessionRepository) Update(ctx context.Context, id string, patch *model.SessionUpdate) (*mongo.UpdateResult, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingerrors.ErrInvalidID, id)
	}

	set := bson.M{}
	if patch.Status != "" {
		set["status"] = patch.Status
	}
	if patch.MarketplaceVisible != nil {
		set["marketplace_visible"] = *patch.MarketplaceVisible
	}
	if patch.SetupIDs != nil {
		set["setup_ids"] = *patch.SetupIDs
	}
	if patch.ConfirmedAt != nil {
		set["confirmed_at"] = *patch.ConfirmedAt
	}
	if len(set) == 0 {
		return &mongo.UpdateResult{}, nil
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: %s", bookingerrors.ErrSessionNotFound, id)
	}
	return result, nil
}

func (r *mongoSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", bookingerrors.ErrSessionNotFound, id)
	}
	return nil
}

func (r *mongoSessionRepository) AddAcceptedOperator(ctx context.Context, id, operatorID string) error {
	return r.updateAcceptedSet(ctx, id, bson.M{"$addToSet": bson.M{"accepted_operator_ids": operatorID}})
}

func (r *mongoSessionRepository) RemoveAcceptedOperator(ctx context.Context, id, operatorID string) error {
	return r.updateAcceptedSet(ctx, id, bson.M{"$pull": bson.M{"accepted_operator_ids": operatorID}})
}

func (r *mongoSessionRepository) updateAcceptedSet(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingerrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update accepted operators: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", bookingerrors.ErrSessionNotFound, id)
	}
	return nil
}

func (r *mongoSessionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
