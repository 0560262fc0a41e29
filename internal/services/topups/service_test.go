package topups

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/thuzarw/kspvpn-bot/internal/domain/enums"
	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
	auditsvc "github.com/thuzarw/kspvpn-bot/internal/services/audit"
)

type topupStoreStub struct {
	mu   sync.Mutex
	byID map[string]model.TopUp
}

func newTopUpStoreStub() *topupStoreStub {
	return &topupStoreStub{byID: map[string]model.TopUp{}}
}

func (s *topupStoreStub) Create(_ context.Context, topup model.TopUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[topup.ID] = topup
	return nil
}

func (s *topupStoreStub) Get(_ context.Context, topupID string) (model.TopUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topup, ok := s.byID[topupID]
	if !ok {
		return model.TopUp{}, mongorepo.ErrNotFound
	}
	return topup, nil
}

func (s *topupStoreStub) MarkProcessed(_ context.Context, topupID string, status enums.TopUpStatus, fields bson.M) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topup, ok := s.byID[topupID]
	if !ok || topup.Status != enums.TopUpStatusPending {
		return false, nil
	}
	topup.Status = status
	if v, ok := fields["reason"].(string); ok {
		topup.Reason = v
	}
	if v, ok := fields["processed_by"].(int64); ok {
		topup.ProcessedBy = v
	}
	if v, ok := fields["new_balance"].(int64); ok {
		topup.NewBalance = v
	}
	s.byID[topupID] = topup
	return true, nil
}

func (s *topupStoreStub) ListPending(_ context.Context, _ int) ([]model.TopUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TopUp
	for _, topup := range s.byID {
		if topup.Status == enums.TopUpStatusPending {
			out = append(out, topup)
		}
	}
	return out, nil
}

func (s *topupStoreStub) ListByUser(_ context.Context, userID int64, _ int) ([]model.TopUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TopUp
	for _, topup := range s.byID {
		if topup.UserID == userID {
			out = append(out, topup)
		}
	}
	return out, nil
}

type ledgerStub struct {
	mu      sync.Mutex
	credits map[int64]int64
	adds    int
	failing bool
}

func (l *ledgerStub) AddCredits(_ context.Context, userID, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failing {
		return 0, errors.New("store down")
	}
	l.adds++
	l.credits[userID] += amount
	return l.credits[userID], nil
}

type auditStub struct {
	mu      sync.Mutex
	entries []auditsvc.Input
}

func (a *auditStub) Record(_ context.Context, in auditsvc.Input) (model.AdminLogEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, in)
	return model.AdminLogEntry{}, nil
}

type notifierStub struct {
	mu    sync.Mutex
	kinds []string
}

func (n *notifierStub) Push(_ context.Context, _ int64, kind, _ string, _ map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	return nil
}

func newTestService(t *testing.T) (*Service, *topupStoreStub, *ledgerStub, *auditStub, *notifierStub) {
	t.Helper()
	store := newTopUpStoreStub()
	ledger := &ledgerStub{credits: map[int64]int64{}}
	audit := &auditStub{}
	notifier := &notifierStub{}
	svc := NewService(Dependencies{
		Store:    store,
		Ledger:   ledger,
		Audit:    audit,
		Notifier: notifier,
	}, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc, store, ledger, audit, notifier
}

func TestCreatePendingTopUp(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)

	topup, err := svc.Create(context.Background(), CreateInput{UserID: 7, Amount: 50, Method: "kpay", Proof: "txn-123"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if topup.Status != enums.TopUpStatusPending {
		t.Fatalf("status = %q, want pending", topup.Status)
	}
	if _, ok := store.byID[topup.ID]; !ok {
		t.Fatal("topup not persisted")
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	cases := []CreateInput{
		{UserID: 0, Amount: 50, Method: "kpay"},
		{UserID: 7, Amount: 0, Method: "kpay"},
		{UserID: 7, Amount: 50, Method: ""},
	}
	for i, in := range cases {
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: err = %v, want ErrValidation", i, err)
		}
	}
}

func TestApproveCreditsLedger(t *testing.T) {
	svc, store, ledger, audit, notifier := newTestService(t)

	topup, _ := svc.Create(context.Background(), CreateInput{UserID: 7, Amount: 50, Method: "kpay"})

	out, err := svc.Approve(context.Background(), topup.ID, 99)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if out.Status != enums.TopUpStatusApproved {
		t.Fatalf("status = %q, want approved", out.Status)
	}
	if out.NewBalance != 50 {
		t.Fatalf("new balance = %d, want 50", out.NewBalance)
	}
	if ledger.credits[7] != 50 {
		t.Fatalf("credits = %d, want 50", ledger.credits[7])
	}
	if store.byID[topup.ID].Status != enums.TopUpStatusApproved {
		t.Fatalf("stored status = %q, want approved", store.byID[topup.ID].Status)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != enums.AuditActionApproveTopUp {
		t.Fatalf("audit entries = %+v", audit.entries)
	}
	if len(notifier.kinds) != 1 || notifier.kinds[0] != "credits_added" {
		t.Fatalf("notifications = %v", notifier.kinds)
	}
}

func TestApproveLeavesPendingOnLedgerFailure(t *testing.T) {
	svc, store, ledger, _, _ := newTestService(t)
	ledger.failing = true

	topup, _ := svc.Create(context.Background(), CreateInput{UserID: 7, Amount: 50, Method: "kpay"})

	if _, err := svc.Approve(context.Background(), topup.ID, 99); err == nil {
		t.Fatal("expected an error when the ledger write fails")
	}
	if store.byID[topup.ID].Status != enums.TopUpStatusPending {
		t.Fatalf("stored status = %q, want still pending", store.byID[topup.ID].Status)
	}
}

func TestApproveConcurrentSingleCredit(t *testing.T) {
	svc, _, ledger, _, _ := newTestService(t)

	topup, _ := svc.Create(context.Background(), CreateInput{UserID: 7, Amount: 50, Method: "kpay"})

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Approve(context.Background(), topup.ID, 99)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrAlreadyProcessed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want exactly 1", succeeded)
	}
	if ledger.adds != 1 || ledger.credits[7] != 50 {
		t.Fatalf("adds = %d credits = %d, want a single credit of 50", ledger.adds, ledger.credits[7])
	}
}

func TestRejectDoesNotCredit(t *testing.T) {
	svc, store, ledger, _, notifier := newTestService(t)

	topup, _ := svc.Create(context.Background(), CreateInput{UserID: 7, Amount: 50, Method: "kpay"})

	out, err := svc.Reject(context.Background(), topup.ID, 99, "no matching transaction")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if out.Status != enums.TopUpStatusRejected {
		t.Fatalf("status = %q, want rejected", out.Status)
	}
	if ledger.credits[7] != 0 {
		t.Fatalf("credits = %d, want untouched 0", ledger.credits[7])
	}
	if store.byID[topup.ID].Reason != "no matching transaction" {
		t.Fatalf("reason = %q", store.byID[topup.ID].Reason)
	}
	if len(notifier.kinds) != 1 || notifier.kinds[0] != "topup_rejected" {
		t.Fatalf("notifications = %v", notifier.kinds)
	}
}

func TestApproveUnknownTopUp(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	if _, err := svc.Approve(context.Background(), "missing", 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
