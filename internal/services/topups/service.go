package topups

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/thuzarw/kspvpn-bot/internal/domain/enums"
	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
	"github.com/thuzarw/kspvpn-bot/internal/pkg/keymutex"
	"github.com/thuzarw/kspvpn-bot/internal/pkg/validate"
	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
	auditsvc "github.com/thuzarw/kspvpn-bot/internal/services/audit"
	notifysvc "github.com/thuzarw/kspvpn-bot/internal/services/notify"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("topup not found")
	ErrAlreadyProcessed = errors.New("topup already processed")
	ErrRateLimited      = errors.New("too many submissions")
)

type RateLimitedError struct {
	RetryAfterSec int64
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many submissions: retry after %ds", e.RetryAfterSec)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

type Store interface {
	Create(ctx context.Context, topup model.TopUp) error
	Get(ctx context.Context, topupID string) (model.TopUp, error)
	MarkProcessed(ctx context.Context, topupID string, status enums.TopUpStatus, fields bson.M) (bool, error)
	ListPending(ctx context.Context, limit int) ([]model.TopUp, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.TopUp, error)
}

type Ledger interface {
	AddCredits(ctx context.Context, userID, amount int64) (int64, error)
}

type AuditLog interface {
	Record(ctx context.Context, in auditsvc.Input) (model.AdminLogEntry, error)
}

type Notifier interface {
	Push(ctx context.Context, userID int64, kind, message string, data map[string]any) error
}

type SubmitGate interface {
	AllowSubmit(ctx context.Context, userID int64) (int64, bool, error)
}

type CreateInput struct {
	UserID int64
	Amount int64
	Method string
	Proof  string
}

type Outcome struct {
	TopUpID    string
	UserID     int64
	Status     enums.TopUpStatus
	Reason     string
	NewBalance int64
}

// Service drives the top-up workflow. Unlike VIP requests a top-up only
// ever credits the ledger, so there is no refund path; the one-shot status
// flip is still what guards against double-crediting.
type Service struct {
	store    Store
	ledger   Ledger
	audit    AuditLog
	notifier Notifier
	gate     SubmitGate
	locks    *keymutex.KeyMutex
	logger   *zap.Logger
	now      func() time.Time
	newID    func(now time.Time) string
}

type Dependencies struct {
	Store    Store
	Ledger   Ledger
	Audit    AuditLog
	Notifier Notifier
}

func NewService(deps Dependencies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    deps.Store,
		ledger:   deps.Ledger,
		audit:    deps.Audit,
		notifier: deps.Notifier,
		locks:    keymutex.New(),
		logger:   logger,
		now:      time.Now,
		newID: func(now time.Time) string {
			return strconv.FormatInt(now.UnixNano(), 10)
		},
	}
}

func (s *Service) AttachSubmitGate(gate SubmitGate) {
	s.gate = gate
}

func (s *Service) Create(ctx context.Context, in CreateInput) (model.TopUp, error) {
	if !validate.UserID(in.UserID) || in.Amount <= 0 || !validate.Required(in.Method) {
		return model.TopUp{}, ErrValidation
	}
	if s.store == nil {
		return model.TopUp{}, fmt.Errorf("topup store is nil")
	}

	if s.gate != nil {
		retryAfter, allowed, err := s.gate.AllowSubmit(ctx, in.UserID)
		if err != nil {
			return model.TopUp{}, err
		}
		if !allowed {
			return model.TopUp{}, &RateLimitedError{RetryAfterSec: retryAfter}
		}
	}

	now := s.now().UTC()
	topup := model.TopUp{
		ID:        s.newID(now),
		UserID:    in.UserID,
		Amount:    in.Amount,
		Method:    in.Method,
		Proof:     in.Proof,
		Status:    enums.TopUpStatusPending,
		CreatedAt: now,
	}

	if err := s.store.Create(ctx, topup); err != nil {
		return model.TopUp{}, err
	}
	return topup, nil
}

// Approve credits the user's ledger and closes the top-up. The status flip
// happens after the credit lands; a flip that finds the topup already
// terminal means another approval won the race, and the credit from THIS
// call would double-pay, so approvals for one topup id are serialized.
func (s *Service) Approve(ctx context.Context, topupID string, actorID int64) (Outcome, error) {
	if topupID == "" {
		return Outcome{}, ErrValidation
	}
	if s.store == nil || s.ledger == nil {
		return Outcome{}, fmt.Errorf("topup workflow dependencies are not configured")
	}

	unlock := s.locks.Lock("topup:" + topupID)
	defer unlock()

	topup, err := s.store.Get(ctx, topupID)
	if err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			return Outcome{}, ErrNotFound
		}
		return Outcome{}, err
	}

	if topup.Status.Terminal() {
		return Outcome{}, ErrAlreadyProcessed
	}

	balance, err := s.ledger.AddCredits(ctx, topup.UserID, topup.Amount)
	if err != nil {
		return Outcome{}, err
	}

	changed, err := s.store.MarkProcessed(ctx, topup.ID, enums.TopUpStatusApproved, bson.M{
		"processed_at": s.now().UTC(),
		"processed_by": actorID,
		"new_balance":  balance,
	})
	if err != nil {
		return Outcome{}, err
	}
	if !changed {
		return Outcome{}, ErrAlreadyProcessed
	}

	s.record(ctx, auditsvc.Input{
		Action:     enums.AuditActionApproveTopUp,
		ActorID:    actorID,
		UserID:     topup.UserID,
		RequestID:  topup.ID,
		Amount:     topup.Amount,
		NewBalance: balance,
	})
	s.push(ctx, topup.UserID, notifysvc.KindCreditsAdded, "Your top-up was approved.", map[string]any{
		"topup_id":    topup.ID,
		"amount":      topup.Amount,
		"new_balance": balance,
	})

	return Outcome{
		TopUpID:    topup.ID,
		UserID:     topup.UserID,
		Status:     enums.TopUpStatusApproved,
		NewBalance: balance,
	}, nil
}

func (s *Service) Reject(ctx context.Context, topupID string, actorID int64, reason string) (Outcome, error) {
	if topupID == "" {
		return Outcome{}, ErrValidation
	}
	if s.store == nil {
		return Outcome{}, fmt.Errorf("topup store is nil")
	}

	unlock := s.locks.Lock("topup:" + topupID)
	defer unlock()

	topup, err := s.store.Get(ctx, topupID)
	if err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			return Outcome{}, ErrNotFound
		}
		return Outcome{}, err
	}

	if topup.Status.Terminal() {
		return Outcome{}, ErrAlreadyProcessed
	}

	if reason == "" {
		reason = "rejected"
	}

	changed, err := s.store.MarkProcessed(ctx, topup.ID, enums.TopUpStatusRejected, bson.M{
		"processed_at": s.now().UTC(),
		"processed_by": actorID,
		"reason":       reason,
	})
	if err != nil {
		return Outcome{}, err
	}
	if !changed {
		return Outcome{}, ErrAlreadyProcessed
	}

	s.record(ctx, auditsvc.Input{
		Action:    enums.AuditActionRejectTopUp,
		ActorID:   actorID,
		UserID:    topup.UserID,
		RequestID: topup.ID,
		Reason:    reason,
	})
	s.push(ctx, topup.UserID, notifysvc.KindTopUpRejected, "Your top-up was rejected.", map[string]any{
		"topup_id": topup.ID,
		"reason":   reason,
	})

	return Outcome{
		TopUpID: topup.ID,
		UserID:  topup.UserID,
		Status:  enums.TopUpStatusRejected,
		Reason:  reason,
	}, nil
}

func (s *Service) Get(ctx context.Context, topupID string) (model.TopUp, error) {
	if topupID == "" {
		return model.TopUp{}, ErrValidation
	}
	if s.store == nil {
		return model.TopUp{}, fmt.Errorf("topup store is nil")
	}

	topup, err := s.store.Get(ctx, topupID)
	if err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			return model.TopUp{}, ErrNotFound
		}
		return model.TopUp{}, err
	}
	return topup, nil
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]model.TopUp, error) {
	if s.store == nil {
		return nil, fmt.Errorf("topup store is nil")
	}
	return s.store.ListPending(ctx, limit)
}

func (s *Service) ListByUser(ctx context.Context, userID int64, limit int) ([]model.TopUp, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("topup store is nil")
	}
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *Service) record(ctx context.Context, in auditsvc.Input) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Record(ctx, in); err != nil {
		s.logger.Warn("audit record failed",
			zap.String("action", string(in.Action)),
			zap.String("topup_id", in.RequestID),
			zap.Error(err),
		)
	}
}

func (s *Service) push(ctx context.Context, userID int64, kind, message string, data map[string]any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Push(ctx, userID, kind, message, data); err != nil {
		s.logger.Warn("notification push failed",
			zap.Int64("user_id", userID),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}
