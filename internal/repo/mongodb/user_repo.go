package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
)

const usersCollection = "users"

type UserRepo struct {
	store *Store
}

func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) Get(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	var user model.User
	if err := r.store.Get(ctx, usersCollection, userID, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Ensure creates the account with zero-value defaults when absent. Existing
// records keep every field; only last_active is touched.
func (r *UserRepo) Ensure(ctx context.Context, userID int64, name, username string, now time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	fields := bson.M{"last_active": now.UTC()}
	if name != "" {
		fields["name"] = name
	}
	if username != "" {
		fields["username"] = username
	}

	return r.store.PatchUpsert(ctx, usersCollection, userID, fields, bson.M{
		"credits":    int64(0),
		"vip_active": false,
		"created_at": now.UTC(),
	})
}

// AddCredits atomically increments the balance, creating the account with
// zero-value defaults first when absent, and returns the new balance.
func (r *UserRepo) AddCredits(ctx context.Context, userID, amount int64, now time.Time) (int64, error) {
	if userID <= 0 || amount <= 0 {
		return 0, fmt.Errorf("invalid add credits payload")
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	var user model.User
	err := r.store.Collection(usersCollection).FindOneAndUpdate(
		cctx,
		bson.M{"_id": userID},
		bson.M{
			"$inc": bson.M{"credits": amount},
			"$set": bson.M{"last_active": now.UTC()},
			"$setOnInsert": bson.M{
				"vip_active": false,
				"created_at": now.UTC(),
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return 0, classify("add credits", err)
	}

	return user.Credits, nil
}

// DeductCredits subtracts amount only when the stored balance covers it. The
// balance check and the write are a single conditional update, so two
// concurrent deductions can never both succeed on one balance. ErrNotFound
// means no record matched: the account is missing or the balance is short.
func (r *UserRepo) DeductCredits(ctx context.Context, userID, amount int64, now time.Time) (int64, error) {
	if userID <= 0 || amount <= 0 {
		return 0, fmt.Errorf("invalid deduct credits payload")
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	var user model.User
	err := r.store.Collection(usersCollection).FindOneAndUpdate(
		cctx,
		bson.M{
			"_id":     userID,
			"credits": bson.M{"$gte": amount},
		},
		bson.M{
			"$inc": bson.M{"credits": -amount},
			"$set": bson.M{"last_active": now.UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return 0, classify("deduct credits", err)
	}

	return user.Credits, nil
}

// SetVIP patches the VIP state, creating the account when absent.
func (r *UserRepo) SetVIP(ctx context.Context, userID int64, active bool, expiry time.Time, now time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	fields := bson.M{
		"vip_active":  active,
		"last_active": now.UTC(),
	}
	if expiry.IsZero() {
		fields["vip_expiry"] = time.Time{}
	} else {
		fields["vip_expiry"] = expiry.UTC()
	}

	return r.store.PatchUpsert(ctx, usersCollection, userID, fields, bson.M{
		"credits":    int64(0),
		"created_at": now.UTC(),
	})
}

// DeactivateLapsedVIP flips vip_active off for one account, but only when the
// stored expiry has actually passed. Reports whether a write happened.
func (r *UserRepo) DeactivateLapsedVIP(ctx context.Context, userID int64, at time.Time) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	res, err := r.store.Collection(usersCollection).UpdateOne(
		cctx,
		bson.M{
			"_id":        userID,
			"vip_active": true,
			"vip_expiry": bson.M{"$lte": at.UTC()},
		},
		bson.M{"$set": bson.M{"vip_active": false}},
	)
	if err != nil {
		return false, classify("deactivate lapsed vip", err)
	}

	return res.ModifiedCount > 0, nil
}

// DeactivateAllLapsedVIP is the bulk housekeeping variant used by the sweep.
func (r *UserRepo) DeactivateAllLapsedVIP(ctx context.Context, at time.Time) (int64, error) {
	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	res, err := r.store.Collection(usersCollection).UpdateMany(
		cctx,
		bson.M{
			"vip_active": true,
			"vip_expiry": bson.M{"$lte": at.UTC()},
		},
		bson.M{"$set": bson.M{"vip_active": false}},
	)
	if err != nil {
		return 0, classify("deactivate all lapsed vip", err)
	}

	return res.ModifiedCount, nil
}

type UserTotals struct {
	Users        int64
	VIPUsers     int64
	TotalCredits int64
}

func (r *UserRepo) Totals(ctx context.Context, at time.Time) (UserTotals, error) {
	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	coll := r.store.Collection(usersCollection)

	users, err := coll.CountDocuments(cctx, bson.M{})
	if err != nil {
		return UserTotals{}, classify("count users", err)
	}

	vips, err := coll.CountDocuments(cctx, bson.M{
		"vip_active": true,
		"vip_expiry": bson.M{"$gt": at.UTC()},
	})
	if err != nil {
		return UserTotals{}, classify("count vip users", err)
	}

	cursor, err := coll.Aggregate(cctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$credits"},
		}}},
	})
	if err != nil {
		return UserTotals{}, classify("sum credits", err)
	}
	defer cursor.Close(cctx)

	var sums []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(cctx, &sums); err != nil {
		return UserTotals{}, classify("decode credit sum", err)
	}

	totals := UserTotals{Users: users, VIPUsers: vips}
	if len(sums) > 0 {
		totals.TotalCredits = sums[0].Total
	}
	return totals, nil
}

func (r *UserRepo) ListRecent(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 10
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	cursor, err := r.store.Collection(usersCollection).Find(
		cctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, classify("list recent users", err)
	}
	defer cursor.Close(cctx)

	var users []model.User
	if err := cursor.All(cctx, &users); err != nil {
		return nil, classify("decode recent users", err)
	}
	return users, nil
}
