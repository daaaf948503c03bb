package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"simbook/internal/migrations/mongo/validators"
)

var (
	SessionsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "region_id", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "region_id", Value: 1}, {Key: "scheduled_date", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}

	SetupsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "region_id", Value: 1}, {Key: "active", Value: 1}}},
	}

	OperatorsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "region_id", Value: 1}, {Key: "active", Value: 1}}},
	}

	// The unique partial index enforces the one-non-rejected-application
	// per (session, operator) invariant at the storage layer. Partial
	// indexes cannot express $ne, so the filter enumerates the open
	// statuses instead.
	ApplicationsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "operator_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": []string{"pending", "accepted"}},
				}),
		},
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "operator_id", Value: 1}}},
	}

	// Expired locks vanish on their own; confirmation failures never need
	// manual cleanup.
	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running planner Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Sessions": {
			Indexes:   SessionsIndexes,
			Validator: validators.SessionValidator,
		},
		"Setups": {
			Indexes:   SetupsIndexes,
			Validator: validators.SetupValidator,
		},
		"Operators": {
			Indexes:   OperatorsIndexes,
			Validator: validators.OperatorValidator,
		},
		"Applications": {
			Indexes:   ApplicationsIndexes,
			Validator: validators.ApplicationValidator,
		},
		"BookingLocks": {
			Indexes:   BookingLocksIndexes,
			Validator: validators.BookingLockValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
