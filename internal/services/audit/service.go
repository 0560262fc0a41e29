package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thuzarw/kspvpn-bot/internal/domain/enums"
	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
)

var ErrValidation = errors.New("validation error")

type Store interface {
	Append(ctx context.Context, entry model.AdminLogEntry) error
	List(ctx context.Context, limit int) ([]model.AdminLogEntry, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.AdminLogEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Input carries the fields of one privileged action. Zero-valued fields are
// simply omitted from the stored entry.
type Input struct {
	Action     enums.AuditAction
	ActorID    int64
	UserID     int64
	RequestID  string
	Amount     int64
	Days       int
	NewBalance int64
	NewExpiry  time.Time
	Reason     string
}

// Service is the append-only admin log. Entries are immutable once written;
// the only removal path is the retention purge driven by the sweep job.
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *Service) Record(ctx context.Context, in Input) (model.AdminLogEntry, error) {
	if in.Action == "" || in.UserID <= 0 {
		return model.AdminLogEntry{}, ErrValidation
	}
	if s.store == nil {
		return model.AdminLogEntry{}, fmt.Errorf("audit store is nil")
	}

	entry := model.AdminLogEntry{
		ID:         s.newID(),
		Action:     in.Action,
		ActorID:    in.ActorID,
		UserID:     in.UserID,
		RequestID:  in.RequestID,
		Amount:     in.Amount,
		Days:       in.Days,
		NewBalance: in.NewBalance,
		NewExpiry:  in.NewExpiry,
		Reason:     in.Reason,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.store.Append(ctx, entry); err != nil {
		return model.AdminLogEntry{}, err
	}
	return entry, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]model.AdminLogEntry, error) {
	if s.store == nil {
		return nil, fmt.Errorf("audit store is nil")
	}
	return s.store.List(ctx, limit)
}

func (s *Service) ListForUser(ctx context.Context, userID int64, limit int) ([]model.AdminLogEntry, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("audit store is nil")
	}
	return s.store.ListByUser(ctx, userID, limit)
}

// PurgeOlderThan removes entries older than the given number of days and
// returns how many were dropped.
func (s *Service) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, ErrValidation
	}
	if s.store == nil {
		return 0, fmt.Errorf("audit store is nil")
	}

	cutoff := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	return s.store.DeleteOlderThan(ctx, cutoff)
}
