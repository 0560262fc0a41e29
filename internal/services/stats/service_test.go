package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
)

type userTotalsStub struct {
	totals mongorepo.UserTotals
	recent []model.User
	err    error
}

func (s *userTotalsStub) Totals(_ context.Context, _ time.Time) (mongorepo.UserTotals, error) {
	return s.totals, s.err
}

func (s *userTotalsStub) ListRecent(_ context.Context, _ int) ([]model.User, error) {
	return s.recent, s.err
}

type requestCounterStub struct {
	pending int64
	recent  []model.Request
}

func (s *requestCounterStub) CountPending(_ context.Context) (int64, error) {
	return s.pending, nil
}

func (s *requestCounterStub) ListRecent(_ context.Context, _ int) ([]model.Request, error) {
	return s.recent, nil
}

type topupCounterStub struct {
	pending int64
	recent  []model.TopUp
}

func (s *topupCounterStub) CountPending(_ context.Context) (int64, error) {
	return s.pending, nil
}

func (s *topupCounterStub) ListRecent(_ context.Context, _ int) ([]model.TopUp, error) {
	return s.recent, nil
}

func TestDashboardAssemblesCounts(t *testing.T) {
	users := &userTotalsStub{
		totals: mongorepo.UserTotals{Users: 120, VIPUsers: 34, TotalCredits: 5600},
		recent: []model.User{{ID: 7}},
	}
	requests := &requestCounterStub{pending: 5, recent: []model.Request{{ID: "r1"}}}
	topups := &topupCounterStub{pending: 2, recent: []model.TopUp{{ID: "t1"}}}

	svc := NewService(users, requests, topups)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	dash, err := svc.Dashboard(context.Background(), 10)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	if dash.Users != 120 || dash.ActiveVIPs != 34 || dash.TotalCredits != 5600 {
		t.Fatalf("totals = %+v", dash)
	}
	if dash.PendingReqs != 5 || dash.PendingTopUps != 2 {
		t.Fatalf("pending counts = %d/%d", dash.PendingReqs, dash.PendingTopUps)
	}
	if len(dash.RecentUsers) != 1 || len(dash.RecentRequests) != 1 || len(dash.RecentTopUps) != 1 {
		t.Fatalf("recents = %+v", dash)
	}
	if !dash.GeneratedAt.Equal(svc.now()) {
		t.Fatalf("generated_at = %v", dash.GeneratedAt)
	}
}

func TestDashboardPropagatesStoreErrors(t *testing.T) {
	users := &userTotalsStub{err: errors.New("store down")}
	svc := NewService(users, &requestCounterStub{}, &topupCounterStub{})

	if _, err := svc.Dashboard(context.Background(), 10); err == nil {
		t.Fatal("expected an error from the failing store")
	}
}
