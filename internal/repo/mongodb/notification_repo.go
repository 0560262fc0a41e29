package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
)

const notificationsCollection = "notifications"

type NotificationRepo struct {
	store *Store
}

func NewNotificationRepo(store *Store) *NotificationRepo {
	return &NotificationRepo{store: store}
}

func (r *NotificationRepo) Create(ctx context.Context, n model.Notification) error {
	if n.ID == "" || n.UserID <= 0 {
		return fmt.Errorf("invalid notification record")
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	if _, err := r.store.Collection(notificationsCollection).InsertOne(cctx, n); err != nil {
		return classify("create notification", err)
	}
	return nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 50
	}

	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["read"] = false
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	cursor, err := r.store.Collection(notificationsCollection).Find(
		cctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, classify("list notifications", err)
	}
	defer cursor.Close(cctx)

	var notifications []model.Notification
	if err := cursor.All(cctx, &notifications); err != nil {
		return nil, classify("decode notifications", err)
	}
	return notifications, nil
}

// MarkRead flips the read flag. The user id is part of the filter so one
// user cannot acknowledge another user's notification.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID int64, notificationID string) error {
	if userID <= 0 || notificationID == "" {
		return fmt.Errorf("invalid mark read payload")
	}

	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	res, err := r.store.Collection(notificationsCollection).UpdateOne(
		cctx,
		bson.M{"_id": notificationID, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return classify("mark notification read", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cctx, cancel := r.store.callCtx(ctx)
	defer cancel()

	res, err := r.store.Collection(notificationsCollection).DeleteMany(cctx, bson.M{
		"created_at": bson.M{"$lt": cutoff.UTC()},
	})
	if err != nil {
		return 0, classify("delete old notifications", err)
	}
	return res.DeletedCount, nil
}
