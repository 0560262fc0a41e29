package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
)

const adminLogsCollection = "admin_logs"

// AdminLogRepo is append-only: no update path exists, and the only delete is
// the bulk retention purge.
type AdminLogRepo struct {
	store *Store
}

func NewAdminLogRepo(store *Store) *AdminLogRepo {
	return &AdminLogRepo{store: store}
}

func (r *AdminLogRepo) Append(ctx context.Context, entry model.AdminLogEntry) error {
	if entry.ID == "" || entry.Action == "" {
		return fmt.Errorf("invalid admin log entry")
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	if _, err := r.store.Collection(adminLogsCollection).InsertOne(cctx, entry); err != nil {
		return classify("append admin log", err)
	}
	return nil
}

func (r *AdminLogRepo) List(ctx context.Context, limit int) ([]model.AdminLogEntry, error) {
	return r.list(ctx, bson.M{}, limit)
}

func (r *AdminLogRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]model.AdminLogEntry, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	return r.list(ctx, bson.M{"user_id": userID}, limit)
}

func (r *AdminLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	res, err := r.store.Collection(adminLogsCollection).DeleteMany(cctx, bson.M{
		"created_at": bson.M{"$lt": cutoff.UTC()},
	})
	if err != nil {
		return 0, classify("delete old admin logs", err)
	}
	return res.DeletedCount, nil
}

func (r *AdminLogRepo) list(ctx context.Context, filter bson.M, limit int) ([]model.AdminLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	cursor, err := r.store.Collection(adminLogsCollection).Find(
		cctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, classify("list admin logs", err)
	}
	defer cursor.Close(cctx)

	var entries []model.AdminLogEntry
	if err := cursor.All(cctx, &entries); err != nil {
		return nil, classify("decode admin logs", err)
	}
	return entries, nil
}
