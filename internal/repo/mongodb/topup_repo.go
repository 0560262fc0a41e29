package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/thuzarw/kspvpn-bot/internal/domain/enums"
	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
)

const topupsCollection = "payment_requests"

type TopUpRepo struct {
	store *Store
}

func NewTopUpRepo(store *Store) *TopUpRepo {
	return &TopUpRepo{store: store}
}

func (r *TopUpRepo) Create(ctx context.Context, topup model.TopUp) error {
	if topup.ID == "" || topup.UserID <= 0 {
		return fmt.Errorf("invalid topup record")
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	if _, err := r.store.Collection(topupsCollection).InsertOne(cctx, topup); err != nil {
		return classify("create topup", err)
	}
	return nil
}

func (r *TopUpRepo) Get(ctx context.Context, topupID string) (model.TopUp, error) {
	if topupID == "" {
		return model.TopUp{}, fmt.Errorf("topup id is required")
	}

	var topup model.TopUp
	if err := r.store.Get(ctx, topupsCollection, topupID, &topup); err != nil {
		return model.TopUp{}, err
	}
	return topup, nil
}

// MarkProcessed transitions pending → terminal with the same one-shot filter
// discipline as requests; reports whether this call won the transition.
func (r *TopUpRepo) MarkProcessed(ctx context.Context, topupID string, status enums.TopUpStatus, fields bson.M) (bool, error) {
	if topupID == "" || !status.Terminal() {
		return false, fmt.Errorf("invalid topup transition")
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	set := bson.M{"status": status}
	for k, v := range fields {
		set[k] = v
	}

	res, err := r.store.Collection(topupsCollection).UpdateOne(
		cctx,
		bson.M{
			"_id":    topupID,
			"status": enums.TopUpStatusPending,
		},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, classify("mark topup processed", err)
	}

	return res.MatchedCount > 0, nil
}

func (r *TopUpRepo) ListPending(ctx context.Context, limit int) ([]model.TopUp, error) {
	return r.list(ctx, bson.M{"status": enums.TopUpStatusPending}, limit)
}

func (r *TopUpRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]model.TopUp, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	return r.list(ctx, bson.M{"user_id": userID}, limit)
}

func (r *TopUpRepo) ListRecent(ctx context.Context, limit int) ([]model.TopUp, error) {
	return r.list(ctx, bson.M{}, limit)
}

func (r *TopUpRepo) CountPending(ctx context.Context) (int64, error) {
	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	count, err := r.store.Collection(topupsCollection).CountDocuments(cctx, bson.M{
		"status": enums.TopUpStatusPending,
	})
	if err != nil {
		return 0, classify("count pending topups", err)
	}
	return count, nil
}

func (r *TopUpRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	res, err := r.store.Collection(topupsCollection).DeleteMany(cctx, bson.M{
		"status":     bson.M{"$ne": enums.TopUpStatusPending},
		"created_at": bson.M{"$lt": cutoff.UTC()},
	})
	if err != nil {
		return 0, classify("delete old topups", err)
	}
	return res.DeletedCount, nil
}

func (r *TopUpRepo) list(ctx context.Context, filter bson.M, limit int) ([]model.TopUp, error) {
	if limit <= 0 {
		limit = 50
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	cursor, err := r.store.Collection(topupsCollection).Find(
		cctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, classify("list topups", err)
	}
	defer cursor.Close(cctx)

	var topups []model.TopUp
	if err := cursor.All(cctx, &topups); err != nil {
		return nil, classify("decode topups", err)
	}
	return topups, nil
}
