package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
)

type notifyStoreStub struct {
	byID    map[string]model.Notification
	deleted time.Time
}

func newNotifyStoreStub() *notifyStoreStub {
	return &notifyStoreStub{byID: map[string]model.Notification{}}
}

func (s *notifyStoreStub) Create(_ context.Context, n model.Notification) error {
	s.byID[n.ID] = n
	return nil
}

func (s *notifyStoreStub) ListByUser(_ context.Context, userID int64, unreadOnly bool, _ int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range s.byID {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *notifyStoreStub) MarkRead(_ context.Context, userID int64, notificationID string) error {
	n, ok := s.byID[notificationID]
	if !ok || n.UserID != userID {
		return errors.New("not found")
	}
	n.Read = true
	s.byID[notificationID] = n
	return nil
}

func (s *notifyStoreStub) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.deleted = cutoff
	var n int64
	for id, note := range s.byID {
		if note.CreatedAt.Before(cutoff) {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func TestPushAssignsIDAndTimestamp(t *testing.T) {
	store := newNotifyStoreStub()
	svc := NewService(store)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	if err := svc.Push(context.Background(), 7, KindVIPApproved, "approved", map[string]any{"days": 30}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	if len(store.byID) != 1 {
		t.Fatalf("stored = %d, want 1", len(store.byID))
	}
	for _, n := range store.byID {
		if n.ID == "" {
			t.Fatal("expected a generated id")
		}
		if n.Read {
			t.Fatal("new notification must be unread")
		}
		if !n.CreatedAt.Equal(svc.now()) {
			t.Fatalf("created_at = %v", n.CreatedAt)
		}
	}
}

func TestPushRejectsBadInput(t *testing.T) {
	svc := NewService(newNotifyStoreStub())

	if err := svc.Push(context.Background(), 0, KindNoCredit, "x", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if err := svc.Push(context.Background(), 7, "", "x", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestListUnreadOnly(t *testing.T) {
	store := newNotifyStoreStub()
	store.byID["a"] = model.Notification{ID: "a", UserID: 7, Kind: KindRejected, Read: true}
	store.byID["b"] = model.Notification{ID: "b", UserID: 7, Kind: KindNoCredit}
	store.byID["c"] = model.Notification{ID: "c", UserID: 8, Kind: KindNoCredit}

	svc := NewService(store)

	unread, err := svc.List(context.Background(), 7, true, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != "b" {
		t.Fatalf("unread = %+v, want only b", unread)
	}
}

func TestMarkReadScopedToUser(t *testing.T) {
	store := newNotifyStoreStub()
	store.byID["a"] = model.Notification{ID: "a", UserID: 7, Kind: KindRejected}

	svc := NewService(store)

	if err := svc.MarkRead(context.Background(), 8, "a"); err == nil {
		t.Fatal("expected an error marking another user's notification")
	}
	if err := svc.MarkRead(context.Background(), 7, "a"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !store.byID["a"].Read {
		t.Fatal("notification not marked read")
	}
}

func TestPurgeOlderThan(t *testing.T) {
	store := newNotifyStoreStub()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.byID["old"] = model.Notification{ID: "old", UserID: 7, CreatedAt: now.Add(-40 * 24 * time.Hour)}
	store.byID["new"] = model.Notification{ID: "new", UserID: 7, CreatedAt: now.Add(-time.Hour)}

	svc := NewService(store)
	svc.now = func() time.Time { return now }

	n, err := svc.PurgeOlderThan(context.Background(), 30)
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged = %d, want 1", n)
	}
	if _, ok := store.byID["new"]; !ok {
		t.Fatal("recent notification must survive")
	}
}
