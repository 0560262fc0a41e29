package requests

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
	ledgersvc "github.com/thuzarw/kspvpn-bot/internal/services/ledger"
	notifysvc "github.com/thuzarw/kspvpn-bot/internal/services/notify"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("request not found")

	// ErrAlreadyProcessed means the request already reached a terminal
	// status. Nothing was changed; repeated approvals never double-spend.
	ErrAlreadyProcessed = errors.New("request already processed")

	// ErrInvalidData means the stored request cannot be approved; the
	// request has been moved to the invalid terminal status.
	ErrInvalidData = errors.New("invalid request data")

	ErrRateLimited = errors.New("too many submissions")
)

type RateLimitedError struct {
	RetryAfterSec int64
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many submissions: retry after %ds", e.RetryAfterSec)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

type Store interface {
	Create(ctx context.Context, req model.Request) error
	Get(ctx context.Context, requestID string) (model.Request, error)
	MarkProcessed(ctx context.Context, requestID string, status enums.RequestStatus, fields bson.M) (bool, error)
	ListPending(ctx context.Context, limit int) ([]model.Request, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.Request, error)
}

type Ledger interface {
	DeductCredits(ctx context.Context, userID, amount int64) (int64, error)
	AddCredits(ctx context.Context, userID, amount int64) (int64, error)
	GetCredits(ctx context.Context, userID int64) (int64, error)
	GrantVIP(ctx context.Context, userID int64, days int) (time.Time, error)
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
	UserID  int64
	Payload string
	Days    int
	Price   int64
}

// Outcome is the result of adjudicating a request. It doubles as the
// notification payload the messaging front end relays to the user.
type Outcome struct {
	RequestID  string
	UserID     int64
	Status     enums.RequestStatus
	Reason     string
	NewBalance int64
	NewExpiry  time.Time
}

// Service drives the request state machine: pending → exactly one of
// approved, rejected, no_credit, invalid. Approval is the only path that
// touches the ledger, and it is serialized per request id so a terminal
// request is never re-processed.
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

// AttachSubmitGate wires an optional rate limiter in front of Create.
func (s *Service) AttachSubmitGate(gate SubmitGate) {
	s.gate = gate
}

// Create is the only transition into pending.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Request, error) {
	if !validate.UserID(in.UserID) || in.Days <= 0 || in.Price < 0 || !validate.Required(in.Payload) {
		return model.Request{}, ErrValidation
	}
	if s.store == nil {
		return model.Request{}, fmt.Errorf("request store is nil")
	}

	if s.gate != nil {
		retryAfter, allowed, err := s.gate.AllowSubmit(ctx, in.UserID)
		if err != nil {
			return model.Request{}, err
		}
		if !allowed {
			return model.Request{}, &RateLimitedError{RetryAfterSec: retryAfter}
		}
	}

	now := s.now().UTC()
	req := model.Request{
		ID:        s.newID(now),
		UserID:    in.UserID,
		Payload:   in.Payload,
		Days:      in.Days,
		Price:     in.Price,
		Status:    enums.RequestStatusPending,
		CreatedAt: now,
	}

	if err := s.store.Create(ctx, req); err != nil {
		return model.Request{}, err
	}
	return req, nil
}

// Approve adjudicates a pending request: deduct the price, grant the VIP
// days, and move the request to its terminal status. The deduction and the
// status flip happen under the per-request lock, so observers only ever see
// pending or a terminal status, never a half-approved request.
func (s *Service) Approve(ctx context.Context, requestID string, actorID int64) (Outcome, error) {
	if requestID == "" {
		return Outcome{}, ErrValidation
	}
	if s.store == nil || s.ledger == nil {
		return Outcome{}, fmt.Errorf("request workflow dependencies are not configured")
	}

	unlock := s.locks.Lock("request:" + requestID)
	defer unlock()

	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			return Outcome{}, ErrNotFound
		}
		return Outcome{}, err
	}

	if req.Status.Terminal() {
		return Outcome{}, ErrAlreadyProcessed
	}

	if req.UserID <= 0 || req.Days <= 0 {
		return s.finishInvalid(ctx, req, actorID)
	}

	now := s.now().UTC()

	var balance int64
	if req.Price > 0 {
		balance, err = s.ledger.DeductCredits(ctx, req.UserID, req.Price)
		if err != nil {
			if errors.Is(err, ledgersvc.ErrInsufficientCredits) {
				return s.finishNoCredit(ctx, req, actorID)
			}
			return Outcome{}, err
		}
	} else if balance, err = s.ledger.GetCredits(ctx, req.UserID); err != nil {
		return Outcome{}, err
	}

	expiry, err := s.ledger.GrantVIP(ctx, req.UserID, req.Days)
	if err != nil {
		// The deduction already landed; put the credits back so the
		// request can be approved again once the store recovers.
		if req.Price > 0 {
			if _, refundErr := s.ledger.AddCredits(ctx, req.UserID, req.Price); refundErr != nil {
				s.logger.Error("refund after failed vip grant",
					zap.String("request_id", req.ID),
					zap.Int64("user_id", req.UserID),
					zap.Error(refundErr),
				)
			}
		}
		return Outcome{}, err
	}

	changed, err := s.store.MarkProcessed(ctx, req.ID, enums.RequestStatusApproved, bson.M{
		"processed_at": now,
		"processed_by": actorID,
		"new_balance":  balance,
		"new_expiry":   expiry,
	})
	if err != nil {
		return Outcome{}, err
	}
	if !changed {
		return Outcome{}, ErrAlreadyProcessed
	}

	out := Outcome{
		RequestID:  req.ID,
		UserID:     req.UserID,
		Status:     enums.RequestStatusApproved,
		NewBalance: balance,
		NewExpiry:  expiry,
	}

	s.record(ctx, auditsvc.Input{
		Action:     enums.AuditActionApproveRequest,
		ActorID:    actorID,
		UserID:     req.UserID,
		RequestID:  req.ID,
		Amount:     req.Price,
		Days:       req.Days,
		NewBalance: balance,
		NewExpiry:  expiry,
	})
	s.push(ctx, req.UserID, notifysvc.KindVIPApproved, "Your VIP request was approved.", map[string]any{
		"request_id": req.ID,
		"days":       req.Days,
		"expiry":     expiry.Unix(),
	})

	return out, nil
}

// Reject moves a pending request to rejected with a free-text reason.
func (s *Service) Reject(ctx context.Context, requestID string, actorID int64, reason string) (Outcome, error) {
	if requestID == "" {
		return Outcome{}, ErrValidation
	}
	if s.store == nil {
		return Outcome{}, fmt.Errorf("request store is nil")
	}

	unlock := s.locks.Lock("request:" + requestID)
	defer unlock()

	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			return Outcome{}, ErrNotFound
		}
		return Outcome{}, err
	}

	if req.Status.Terminal() {
		return Outcome{}, ErrAlreadyProcessed
	}

	if reason == "" {
		reason = "rejected"
	}

	changed, err := s.store.MarkProcessed(ctx, req.ID, enums.RequestStatusRejected, bson.M{
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
		Action:    enums.AuditActionRejectRequest,
		ActorID:   actorID,
		UserID:    req.UserID,
		RequestID: req.ID,
		Reason:    reason,
	})
	s.push(ctx, req.UserID, notifysvc.KindRejected, "Your VIP request was rejected.", map[string]any{
		"request_id": req.ID,
		"reason":     reason,
	})

	return Outcome{
		RequestID: req.ID,
		UserID:    req.UserID,
		Status:    enums.RequestStatusRejected,
		Reason:    reason,
	}, nil
}

func (s *Service) Get(ctx context.Context, requestID string) (model.Request, error) {
	if requestID == "" {
		return model.Request{}, ErrValidation
	}
	if s.store == nil {
		return model.Request{}, fmt.Errorf("request store is nil")
	}

	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			return model.Request{}, ErrNotFound
		}
		return model.Request{}, err
	}
	return req, nil
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]model.Request, error) {
	if s.store == nil {
		return nil, fmt.Errorf("request store is nil")
	}
	return s.store.ListPending(ctx, limit)
}

func (s *Service) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Request, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("request store is nil")
	}
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *Service) finishInvalid(ctx context.Context, req model.Request, actorID int64) (Outcome, error) {
	changed, err := s.store.MarkProcessed(ctx, req.ID, enums.RequestStatusInvalid, bson.M{
		"processed_at": s.now().UTC(),
		"processed_by": actorID,
		"reason":       "missing user or non-positive days",
	})
	if err != nil {
		return Outcome{}, err
	}
	if !changed {
		return Outcome{}, ErrAlreadyProcessed
	}

	if req.UserID > 0 {
		s.push(ctx, req.UserID, notifysvc.KindInvalid, "Your VIP request could not be processed.", map[string]any{
			"request_id": req.ID,
		})
	}

	return Outcome{
		RequestID: req.ID,
		UserID:    req.UserID,
		Status:    enums.RequestStatusInvalid,
		Reason:    "missing user or non-positive days",
	}, ErrInvalidData
}

func (s *Service) finishNoCredit(ctx context.Context, req model.Request, actorID int64) (Outcome, error) {
	changed, err := s.store.MarkProcessed(ctx, req.ID, enums.RequestStatusNoCredit, bson.M{
		"processed_at": s.now().UTC(),
		"processed_by": actorID,
		"reason":       "insufficient credits",
	})
	if err != nil {
		return Outcome{}, err
	}
	if !changed {
		return Outcome{}, ErrAlreadyProcessed
	}

	s.push(ctx, req.UserID, notifysvc.KindNoCredit, "Your VIP request failed: not enough credits.", map[string]any{
		"request_id": req.ID,
		"price":      req.Price,
	})

	return Outcome{
		RequestID: req.ID,
		UserID:    req.UserID,
		Status:    enums.RequestStatusNoCredit,
		Reason:    "insufficient credits",
	}, nil
}

// record and push are best-effort: a failed audit write or notification must
// not undo an approval that already landed in the ledger.
func (s *Service) record(ctx context.Context, in auditsvc.Input) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Record(ctx, in); err != nil {
		s.logger.Warn("audit record failed",
			zap.String("action", string(in.Action)),
			zap.String("request_id", in.RequestID),
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
