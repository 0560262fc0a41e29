package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
)

var ErrValidation = errors.New("validation error")

const (
	KindVIPApproved   = "vip_approved"
	KindNoCredit      = "no_credit"
	KindRejected      = "rejected"
	KindInvalid       = "invalid"
	KindCreditsAdded  = "credits_added"
	KindTopUpRejected = "topup_rejected"
)

type Store interface {
	Create(ctx context.Context, n model.Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID int64, notificationID string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service stores the side-effect payloads the messaging front end delivers
// to users after an admin decision lands.
type Service struct {
	store Store
	now   func() time.Time
	newID func(now time.Time) string
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: func(now time.Time) string {
			return strconv.FormatInt(now.UnixNano(), 10)
		},
	}
}

func (s *Service) Push(ctx context.Context, userID int64, kind, message string, data map[string]any) error {
	if userID <= 0 || kind == "" {
		return ErrValidation
	}
	if s.store == nil {
		return fmt.Errorf("notification store is nil")
	}

	now := s.now().UTC()
	return s.store.Create(ctx, model.Notification{
		ID:        s.newID(now),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		Data:      data,
		Read:      false,
		CreatedAt: now,
	})
}

func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("notification store is nil")
	}
	return s.store.ListByUser(ctx, userID, unreadOnly, limit)
}

func (s *Service) MarkRead(ctx context.Context, userID int64, notificationID string) error {
	if userID <= 0 || notificationID == "" {
		return ErrValidation
	}
	if s.store == nil {
		return fmt.Errorf("notification store is nil")
	}
	return s.store.MarkRead(ctx, userID, notificationID)
}

func (s *Service) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, ErrValidation
	}
	if s.store == nil {
		return 0, fmt.Errorf("notification store is nil")
	}

	cutoff := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	return s.store.DeleteOlderThan(ctx, cutoff)
}
