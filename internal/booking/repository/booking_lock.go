package repository

import (
	"context"
	"fmt"
	"time"

	bookingerrors "simbook/internal/booking/errors"
	"simbook/pkg/config"
	"simbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const BookingLockCollection = "BookingLocks"

// BookingLockRepository provides advisory locks keyed by (region, date).
// A TTL index on expires_at reaps locks abandoned by crashed confirmations.
type BookingLockRepository interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type mongoBookingLockRepository struct {
	collection *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		collection: db.Collection(BookingLockCollection),
	}
}

// Acquire inserts the lock document. A duplicate key means another
// confirmation holds the lock for this region and date.
func (r *mongoBookingLockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) error {
	lock := &model.BookingLock{
		ID:        key,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", bookingerrors.ErrLockHeld, key)
		}
		return fmt.Errorf("failed to acquire booking lock: %w", err)
	}
	return nil
}

func (r *mongoBookingLockRepository) Release(ctx context.Context, key string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("failed to release booking lock: %w", err)
	}
	return nil
}

// LockKey builds the advisory lock identity for a confirmation attempt.
func LockKey(regionID, date string) string {
	return regionID + "|" + date
}
