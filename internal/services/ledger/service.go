package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
	"github.com/thuzarw/kspvpn-bot/internal/domain/rules"
	"github.com/thuzarw/kspvpn-bot/internal/pkg/keymutex"
	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
)

var (
	ErrValidation = errors.New("validation error")

	// ErrInsufficientCredits is an expected business outcome, not a failure:
	// the balance did not cover the deduction and was left unchanged.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

type UserStore interface {
	Get(ctx context.Context, userID int64) (model.User, error)
	Ensure(ctx context.Context, userID int64, name, username string, now time.Time) error
	AddCredits(ctx context.Context, userID, amount int64, now time.Time) (int64, error)
	DeductCredits(ctx context.Context, userID, amount int64, now time.Time) (int64, error)
	SetVIP(ctx context.Context, userID int64, active bool, expiry, now time.Time) error
	DeactivateLapsedVIP(ctx context.Context, userID int64, at time.Time) (bool, error)
}

// Service owns every credit and VIP mutation. Read-modify-write cycles are
// serialized per account through a keyed mutex; deductions are additionally
// conditioned at the store so the balance can never go negative.
type Service struct {
	users UserStore
	locks *keymutex.KeyMutex
	now   func() time.Time
}

type VIPStatus struct {
	Active bool
	Expiry time.Time
}

// BulkResult reports which accounts a bulk mutation reached.
type BulkResult struct {
	Updated []int64
	Failed  []int64
}

func NewService(users UserStore) *Service {
	return &Service{
		users: users,
		locks: keymutex.New(),
		now:   time.Now,
	}
}

// EnsureAccount registers the account with zero-value defaults when absent.
func (s *Service) EnsureAccount(ctx context.Context, userID int64, name, username string) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.users == nil {
		return fmt.Errorf("user store is nil")
	}
	return s.users.Ensure(ctx, userID, name, username, s.now())
}

// AddCredits increments the balance and returns the new one, creating the
// account first when absent. There is no failure path beyond validation and
// store availability.
func (s *Service) AddCredits(ctx context.Context, userID, amount int64) (int64, error) {
	if userID <= 0 || amount <= 0 {
		return 0, ErrValidation
	}
	if s.users == nil {
		return 0, fmt.Errorf("user store is nil")
	}

	unlock := s.locks.Lock(accountKey(userID))
	defer unlock()

	return s.users.AddCredits(ctx, userID, amount, s.now())
}

// BulkAddCredits credits every listed account with the same amount. Accounts
// that fail are collected and skipped; the rest still land.
func (s *Service) BulkAddCredits(ctx context.Context, userIDs []int64, amount int64) (BulkResult, error) {
	if len(userIDs) == 0 || amount <= 0 {
		return BulkResult{}, ErrValidation
	}

	var res BulkResult
	for _, userID := range userIDs {
		if _, err := s.AddCredits(ctx, userID, amount); err != nil {
			res.Failed = append(res.Failed, userID)
			continue
		}
		res.Updated = append(res.Updated, userID)
	}
	return res, nil
}

// BulkGrantVIP grants the same number of VIP days to every listed account,
// with the per-account extension rule applied individually.
func (s *Service) BulkGrantVIP(ctx context.Context, userIDs []int64, days int) (BulkResult, error) {
	if len(userIDs) == 0 || days <= 0 {
		return BulkResult{}, ErrValidation
	}

	var res BulkResult
	for _, userID := range userIDs {
		if _, err := s.GrantVIP(ctx, userID, days); err != nil {
			res.Failed = append(res.Failed, userID)
			continue
		}
		res.Updated = append(res.Updated, userID)
	}
	return res, nil
}

// DeductCredits subtracts amount when the balance covers it and returns the
// new balance; otherwise the balance is untouched and ErrInsufficientCredits
// is returned. A store outage is reported as-is, never as insufficiency.
func (s *Service) DeductCredits(ctx context.Context, userID, amount int64) (int64, error) {
	if userID <= 0 || amount <= 0 {
		return 0, ErrValidation
	}
	if s.users == nil {
		return 0, fmt.Errorf("user store is nil")
	}

	unlock := s.locks.Lock(accountKey(userID))
	defer unlock()

	balance, err := s.users.DeductCredits(ctx, userID, amount, s.now())
	if err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			return 0, ErrInsufficientCredits
		}
		return 0, err
	}
	return balance, nil
}

// GetCredits returns the current balance, zero for unknown accounts. It
// never creates the account.
func (s *Service) GetCredits(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, ErrValidation
	}
	if s.users == nil {
		return 0, fmt.Errorf("user store is nil")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return user.Credits, nil
}

// GrantVIP extends the entitlement by days and returns the new expiry.
// The baseline is the current unexpired expiry when VIP is live, otherwise
// now; a lapsed expiry never contributes time.
func (s *Service) GrantVIP(ctx context.Context, userID int64, days int) (time.Time, error) {
	if userID <= 0 || days <= 0 {
		return time.Time{}, ErrValidation
	}
	if s.users == nil {
		return time.Time{}, fmt.Errorf("user store is nil")
	}

	unlock := s.locks.Lock(accountKey(userID))
	defer unlock()

	now := s.now().UTC()

	user, err := s.users.Get(ctx, userID)
	if err != nil && !errors.Is(err, mongorepo.ErrNotFound) {
		return time.Time{}, err
	}

	expiry := rules.NextVIPExpiry(user.VIPActive, user.VIPExpiry, now, days)
	if err := s.users.SetVIP(ctx, userID, true, expiry, now); err != nil {
		return time.Time{}, err
	}

	return expiry, nil
}

// Status reports the VIP state. A stored expiry that has passed is expired
// lazily here: the deactivation is written back before reporting inactive.
func (s *Service) Status(ctx context.Context, userID int64) (VIPStatus, error) {
	if userID <= 0 {
		return VIPStatus{}, ErrValidation
	}
	if s.users == nil {
		return VIPStatus{}, fmt.Errorf("user store is nil")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			return VIPStatus{}, nil
		}
		return VIPStatus{}, err
	}

	now := s.now().UTC()
	if user.VIPActive && !rules.VIPActiveAt(user.VIPActive, user.VIPExpiry, now) {
		unlock := s.locks.Lock(accountKey(userID))
		defer unlock()

		if _, err := s.users.DeactivateLapsedVIP(ctx, userID, now); err != nil {
			return VIPStatus{}, err
		}
		return VIPStatus{Active: false, Expiry: user.VIPExpiry}, nil
	}

	return VIPStatus{Active: user.VIPActive, Expiry: user.VIPExpiry}, nil
}

// RevokeVIP unconditionally deactivates the entitlement and clears the expiry.
func (s *Service) RevokeVIP(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.users == nil {
		return fmt.Errorf("user store is nil")
	}

	unlock := s.locks.Lock(accountKey(userID))
	defer unlock()

	return s.users.SetVIP(ctx, userID, false, time.Time{}, s.now())
}

// GetAccount returns the full account record, zero-valued for unknown users.
func (s *Service) GetAccount(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, ErrValidation
	}
	if s.users == nil {
		return model.User{}, fmt.Errorf("user store is nil")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			return model.User{ID: userID}, nil
		}
		return model.User{}, err
	}
	return user, nil
}

func accountKey(userID int64) string {
	return "account:" + strconv.FormatInt(userID, 10)
}
