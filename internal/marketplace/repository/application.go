package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	marketplaceerrors "simbook/internal/marketplace/errors"
	"simbook/pkg/config"
	mongotx "simbook/pkg/db/mongo"
	"simbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ApplicationCollection = "Applications"

type ApplicationRepository interface {
	Create(ctx context.Context, a *model.Application) error
	FindByID(ctx context.Context, id string) (*model.Application, error)
	FindBySessionAndOperator(ctx context.Context, sessionID, operatorID string) (*model.Application, error)
	FindBySession(ctx context.Context, sessionID string) ([]*model.Application, error)
	FindAll(ctx context.Context) ([]*model.Application, error)
	UpdateStatus(ctx context.Context, id, status string, respondedAt time.Time, reason string) error
	DeleteRejectedForPair(ctx context.Context, sessionID, operatorID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoApplicationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoApplicationRepository(cfg *config.Config) ApplicationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoApplicationRepository{
		cfg:        cfg,
		collection: db.Collection(ApplicationCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoApplicationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// Create inserts a new pending application. The unique partial index on
// (session_id, operator_id) over non-rejected documents turns a racing
// double-apply into a duplicate key error here.
func (r *mongoApplicationRepository) Create(ctx context.Context, a *model.Application) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	a.AppliedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: session %s operator %s", marketplaceerrors.ErrDuplicateApplication, a.SessionID, a.OperatorID)
		}
		return fmt.Errorf("failed to create application: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid.Hex()
	}
	return nil
}

func (r *mongoApplicationRepository) FindByID(ctx context.Context, id string) (*model.Application, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", marketplaceerrors.ErrInvalidID, id)
	}

	var a model.Application
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", marketplaceerrors.ErrApplicationNotFound, id)
		}
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return &a, nil
}

// FindBySessionAndOperator returns the most recent application for the
// pair, preferring the open one when a rejected predecessor still exists.
func (r *mongoApplicationRepository) FindBySessionAndOperator(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"session_id": sessionID, "operator_id": operatorID}
	opts := options.FindOne().SetSort(bson.D{{Key: "applied_at", Value: -1}})

	var a model.Application
	err := r.collection.FindOne(ctx, filter, opts).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: session %s operator %s", marketplaceerrors.ErrApplicationNotFound, sessionID, operatorID)
		}
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return &a, nil
}

func (r *mongoApplicationRepository) FindBySession(ctx context.Context, sessionID string) ([]*model.Application, error) {
	return r.find(ctx, bson.M{"session_id": sessionID})
}

func (r *mongoApplicationRepository) FindAll(ctx context.Context) ([]*model.Application, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoApplicationRepository) find(ctx context.Context, filter bson.M) ([]*model.Application, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "applied_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer cursor.Close(ctx)

	var applications []*model.Application
	if err = cursor.All(ctx, &applications); err != nil {
		return nil, fmt.Errorf("failed to decode applications: %w", err)
	}
	return applications, nil
}

func (r *mongoApplicationRepository) UpdateStatus(ctx context.Context, id, status string, respondedAt time.Time, reason string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", marketplaceerrors.ErrInvalidID, id)
	}

	set := bson.M{
		"status":       status,
		"responded_at": respondedAt,
	}
	if reason != "" {
		set["rejection_reason"] = reason
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", marketplaceerrors.ErrApplicationNotFound, id)
	}
	return nil
}

// DeleteRejectedForPair clears a rejected predecessor so a re-application
// can insert a fresh pending record without tripping the partial index.
func (r *mongoApplicationRepository) DeleteRejectedForPair(ctx context.Context, sessionID, operatorID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"session_id":  sessionID,
		"operator_id": operatorID,
		"status":      model.ApplicationRejected,
	}
	if _, err := r.collection.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete rejected applications: %w", err)
	}
	return nil
}

func (r *mongoApplicationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
