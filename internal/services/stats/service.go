package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
)

type UserTotalsStore interface {
	Totals(ctx context.Context, at time.Time) (mongorepo.UserTotals, error)
	ListRecent(ctx context.Context, limit int) ([]model.User, error)
}

type RequestCounter interface {
	CountPending(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.Request, error)
}

type TopUpCounter interface {
	CountPending(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.TopUp, error)
}

// Dashboard is the admin overview snapshot.
type Dashboard struct {
	Users          int64           `json:"users"`
	ActiveVIPs     int64           `json:"active_vips"`
	TotalCredits   int64           `json:"total_credits"`
	PendingReqs    int64           `json:"pending_requests"`
	PendingTopUps  int64           `json:"pending_topups"`
	RecentUsers    []model.User    `json:"recent_users"`
	RecentRequests []model.Request `json:"recent_requests"`
	RecentTopUps   []model.TopUp   `json:"recent_topups"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

type Service struct {
	users    UserTotalsStore
	requests RequestCounter
	topups   TopUpCounter
	now      func() time.Time
}

func NewService(users UserTotalsStore, requests RequestCounter, topups TopUpCounter) *Service {
	return &Service{
		users:    users,
		requests: requests,
		topups:   topups,
		now:      time.Now,
	}
}

// Dashboard assembles the admin overview. The counts come from separate
// reads and are not a consistent snapshot.
func (s *Service) Dashboard(ctx context.Context, recentLimit int) (Dashboard, error) {
	if s.users == nil || s.requests == nil || s.topups == nil {
		return Dashboard{}, fmt.Errorf("stats dependencies are not configured")
	}
	if recentLimit <= 0 {
		recentLimit = 10
	}

	now := s.now().UTC()

	totals, err := s.users.Totals(ctx, now)
	if err != nil {
		return Dashboard{}, fmt.Errorf("user totals: %w", err)
	}

	pendingReqs, err := s.requests.CountPending(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("count pending requests: %w", err)
	}

	pendingTopUps, err := s.topups.CountPending(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("count pending topups: %w", err)
	}

	recentUsers, err := s.users.ListRecent(ctx, recentLimit)
	if err != nil {
		return Dashboard{}, fmt.Errorf("recent users: %w", err)
	}

	recentReqs, err := s.requests.ListRecent(ctx, recentLimit)
	if err != nil {
		return Dashboard{}, fmt.Errorf("recent requests: %w", err)
	}

	recentTopUps, err := s.topups.ListRecent(ctx, recentLimit)
	if err != nil {
		return Dashboard{}, fmt.Errorf("recent topups: %w", err)
	}

	return Dashboard{
		Users:          totals.Users,
		ActiveVIPs:     totals.VIPUsers,
		TotalCredits:   totals.TotalCredits,
		PendingReqs:    pendingReqs,
		PendingTopUps:  pendingTopUps,
		RecentUsers:    recentUsers,
		RecentRequests: recentReqs,
		RecentTopUps:   recentTopUps,
		GeneratedAt:    now,
	}, nil
}
