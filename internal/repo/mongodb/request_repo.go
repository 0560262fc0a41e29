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

const requestsCollection = "pending_tokens"

type RequestRepo struct {
	store *Store
}

func NewRequestRepo(store *Store) *RequestRepo {
	return &RequestRepo{store: store}
}

func (r *RequestRepo) Create(ctx context.Context, req model.Request) error {
	if req.ID == "" || req.UserID <= 0 {
		return fmt.Errorf("invalid request record")
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	if _, err := r.store.Collection(requestsCollection).InsertOne(cctx, req); err != nil {
		return classify("create request", err)
	}
	return nil
}

func (r *RequestRepo) Get(ctx context.Context, requestID string) (model.Request, error) {
	if requestID == "" {
		return model.Request{}, fmt.Errorf("request id is required")
	}

	var req model.Request
	if err := r.store.Get(ctx, requestsCollection, requestID, &req); err != nil {
		return model.Request{}, err
	}
	return req, nil
}

// MarkProcessed moves a pending request into a terminal status. The pending
// precondition is part of the filter, so a request that has already reached a
// terminal status is never rewritten; reports whether the transition happened.
func (r *RequestRepo) MarkProcessed(ctx context.Context, requestID string, status enums.RequestStatus, fields bson.M) (bool, error) {
	if requestID == "" || !status.Terminal() {
		return false, fmt.Errorf("invalid request transition")
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	set := bson.M{"status": status}
	for k, v := range fields {
		set[k] = v
	}

	res, err := r.store.Collection(requestsCollection).UpdateOne(
		cctx,
		bson.M{
			"_id":    requestID,
			"status": enums.RequestStatusPending,
		},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, classify("mark request processed", err)
	}

	return res.MatchedCount > 0, nil
}

func (r *RequestRepo) ListPending(ctx context.Context, limit int) ([]model.Request, error) {
	return r.list(ctx, bson.M{"status": enums.RequestStatusPending}, limit)
}

func (r *RequestRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Request, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	return r.list(ctx, bson.M{"user_id": userID}, limit)
}

func (r *RequestRepo) ListRecent(ctx context.Context, limit int) ([]model.Request, error) {
	return r.list(ctx, bson.M{}, limit)
}

func (r *RequestRepo) CountPending(ctx context.Context) (int64, error) {
	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	count, err := r.store.Collection(requestsCollection).CountDocuments(cctx, bson.M{
		"status": enums.RequestStatusPending,
	})
	if err != nil {
		return 0, classify("count pending requests", err)
	}
	return count, nil
}

// DeleteTerminalOlderThan removes processed requests past the retention
// cutoff. Pending requests are never swept.
func (r *RequestRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	res, err := r.store.Collection(requestsCollection).DeleteMany(cctx, bson.M{
		"status":     bson.M{"$ne": enums.RequestStatusPending},
		"created_at": bson.M{"$lt": cutoff.UTC()},
	})
	if err != nil {
		return 0, classify("delete old requests", err)
	}
	return res.DeletedCount, nil
}

func (r *RequestRepo) list(ctx context.Context, filter bson.M, limit int) ([]model.Request, error) {
	if limit <= 0 {
		limit = 50
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	cursor, err := r.store.Collection(requestsCollection).Find(
		cctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, classify("list requests", err)
	}
	defer cursor.Close(cctx)

	var requests []model.Request
	if err := cursor.All(cctx, &requests); err != nil {
		return nil, classify("decode requests", err)
	}
	return requests, nil
}
