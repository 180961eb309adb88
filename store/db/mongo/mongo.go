// Package mongo stores one document per actor in a MongoDB collection.
// Records are embedded arrays mutated with $push and filtered $set, so every
// mutation is a single atomic document update.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hrygo/finsense/internal/profile"
	"github.com/hrygo/finsense/store"
)

const UserCollection = "users"

type DB struct {
	client *mongo.Client
	users  *mongo.Collection
}

// NewDB connects to MongoDB and ensures the actor index exists.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.MongoURI == "" {
		return nil, fmt.Errorf("mongo uri required")
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(profile.MongoURI).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	db := &DB{
		client: client,
		users:  client.Database(profile.MongoDatabase).Collection(UserCollection),
	}
	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	slog.Info("connected to MongoDB", "database", profile.MongoDatabase)
	return db, nil
}

func (d *DB) ensureIndexes(ctx context.Context) error {
	_, err := d.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("error creating user index: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func (d *DB) GetUser(ctx context.Context, actorID int64) (*store.UserProfile, error) {
	var doc userDoc
	err := d.users.FindOne(ctx, bson.M{"user_id": actorID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return doc.toProfile()
}

func (d *DB) InsertUserIfAbsent(ctx context.Context, user *store.UserProfile) (bool, error) {
	doc, err := fromProfile(user)
	if err != nil {
		return false, err
	}
	result, err := d.users.UpdateOne(ctx,
		bson.M{"user_id": user.ActorID},
		bson.M{"$setOnInsert": doc},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("error inserting user: %w", err)
	}
	return result.UpsertedCount > 0, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.UserProfile, error) {
	filter := bson.M{}
	if find.HasInvestments {
		filter["investments.0"] = bson.M{"$exists": true}
	}
	if find.RemindersEnabled != nil {
		filter["reminders_enabled"] = *find.RemindersEnabled
	}

	cursor, err := d.users.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding users: %w", err)
	}

	users := make([]*store.UserProfile, 0, len(docs))
	for i := range docs {
		user, err := docs[i].toProfile()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (d *DB) SetIncome(ctx context.Context, actorID int64, income decimal.Decimal) error {
	v, err := toDecimal128(income)
	if err != nil {
		return err
	}
	return d.update(ctx, actorID, bson.M{"$set": bson.M{"income": v}})
}

func (d *DB) SetAllocation(ctx context.Context, actorID int64, allocation store.Allocation) error {
	doc, err := fromAllocation(allocation)
	if err != nil {
		return err
	}
	return d.update(ctx, actorID, bson.M{"$set": bson.M{"allocation": doc}})
}

func (d *DB) SetRemindersEnabled(ctx context.Context, actorID int64, enabled bool) error {
	return d.update(ctx, actorID, bson.M{"$set": bson.M{"reminders_enabled": enabled}})
}

func (d *DB) AppendExpense(ctx context.Context, actorID int64, record store.ExpenseRecord) error {
	doc, err := fromExpense(record)
	if err != nil {
		return err
	}
	return d.update(ctx, actorID, bson.M{"$push": bson.M{"expenses": doc}})
}

func (d *DB) AppendDebt(ctx context.Context, actorID int64, record store.DebtRecord) error {
	doc, err := fromDebt(record)
	if err != nil {
		return err
	}
	return d.update(ctx, actorID, bson.M{"$push": bson.M{"debts": doc}})
}

func (d *DB) AppendEvent(ctx context.Context, actorID int64, record store.EventRecord) error {
	doc, err := fromEvent(record)
	if err != nil {
		return err
	}
	return d.update(ctx, actorID, bson.M{"$push": bson.M{"events": doc}})
}

func (d *DB) AppendInvestment(ctx context.Context, actorID int64, record store.InvestmentRecord) error {
	doc, err := fromInvestment(record)
	if err != nil {
		return err
	}
	return d.update(ctx, actorID, bson.M{"$push": bson.M{"investments": doc}})
}

func (d *DB) UpdateInvestmentValue(ctx context.Context, actorID int64, assetSymbol string, value decimal.Decimal) error {
	v, err := toDecimal128(value)
	if err != nil {
		return err
	}
	result, err := d.users.UpdateOne(ctx,
		bson.M{"user_id": actorID},
		bson.M{"$set": bson.M{"investments.$[inv].current_value": v}},
		options.UpdateOne().SetArrayFilters([]any{bson.M{"inv.asset": assetSymbol}}),
	)
	if err != nil {
		return fmt.Errorf("error updating investment value: %w", err)
	}
	if result.MatchedCount == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (d *DB) update(ctx context.Context, actorID int64, update bson.M) error {
	result, err := d.users.UpdateOne(ctx, bson.M{"user_id": actorID}, update)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	if result.MatchedCount == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

var _ store.Driver = (*DB)(nil)
