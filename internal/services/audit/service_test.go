package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thuzarw/kspvpn-bot/internal/domain/enums"
	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
)

type auditStoreStub struct {
	entries []model.AdminLogEntry
}

func (s *auditStoreStub) Append(_ context.Context, entry model.AdminLogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *auditStoreStub) List(_ context.Context, limit int) ([]model.AdminLogEntry, error) {
	if limit > 0 && limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func (s *auditStoreStub) ListByUser(_ context.Context, userID int64, _ int) ([]model.AdminLogEntry, error) {
	var out []model.AdminLogEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *auditStoreStub) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []model.AdminLogEntry
	var deleted int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewService(store)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	entry, err := svc.Record(context.Background(), Input{
		Action:     enums.AuditActionAddCredits,
		ActorID:    1,
		UserID:     42,
		Amount:     100,
		NewBalance: 100,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("entry must be assigned an id")
	}
	if !entry.CreatedAt.Equal(now) {
		t.Fatalf("unexpected timestamp: got %s want %s", entry.CreatedAt, now)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(store.entries))
	}
}

func TestRecordRejectsMissingSubject(t *testing.T) {
	svc := NewService(&auditStoreStub{})

	if _, err := svc.Record(context.Background(), Input{Action: enums.AuditActionGrantVIP}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestListForUserFiltersBySubject(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewService(store)

	for _, userID := range []int64{42, 43, 42} {
		if _, err := svc.Record(context.Background(), Input{
			Action:  enums.AuditActionGrantVIP,
			ActorID: 1,
			UserID:  userID,
			Days:    30,
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := svc.ListForUser(context.Background(), 42, 0)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for subject, got %d", len(entries))
	}
}

func TestPurgeOlderThanDropsOnlyStaleEntries(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewService(store)

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return old }
	if _, err := svc.Record(context.Background(), Input{
		Action: enums.AuditActionAddCredits, ActorID: 1, UserID: 42, Amount: 10,
	}); err != nil {
		t.Fatalf("record old entry: %v", err)
	}

	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	if _, err := svc.Record(context.Background(), Input{
		Action: enums.AuditActionAddCredits, ActorID: 1, UserID: 42, Amount: 20,
	}); err != nil {
		t.Fatalf("record fresh entry: %v", err)
	}

	deleted, err := svc.PurgeOlderThan(context.Background(), 30)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 purged entry, got %d", deleted)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(store.entries))
	}
}
