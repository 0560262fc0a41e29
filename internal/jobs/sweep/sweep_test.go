package sweep

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDeactivator struct {
	at      time.Time
	flipped int64
	err     error
}

func (f *fakeDeactivator) DeactivateAllLapsedVIP(_ context.Context, at time.Time) (int64, error) {
	f.at = at
	return f.flipped, f.err
}

type fakeTerminalPurger struct {
	cutoff  time.Time
	deleted int64
}

func (f *fakeTerminalPurger) DeleteTerminalOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, nil
}

type fakeAgePurger struct {
	cutoff  time.Time
	deleted int64
}

func (f *fakeAgePurger) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, nil
}

func TestRunDeactivatesLapsedVIPAtNow(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	users := &fakeDeactivator{flipped: 3}
	job := New(users, Retention{}, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run sweep job: %v", err)
	}
	if !users.at.Equal(now) {
		t.Fatalf("deactivation time = %v, want %v", users.at, now)
	}
}

func TestRunPurgesWithConfiguredCutoffs(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	users := &fakeDeactivator{}
	requests := &fakeTerminalPurger{deleted: 4}
	topups := &fakeTerminalPurger{deleted: 1}
	adminLogs := &fakeAgePurger{deleted: 2}
	notifications := &fakeAgePurger{deleted: 9}

	job := New(users, Retention{
		AdminLogs:     90 * 24 * time.Hour,
		Requests:      30 * 24 * time.Hour,
		TopUps:        30 * 24 * time.Hour,
		Notifications: 14 * 24 * time.Hour,
	}, nil)
	job.now = func() time.Time { return now }
	job.AttachRequestPurge(requests)
	job.AttachTopUpPurge(topups)
	job.AttachAdminLogPurge(adminLogs)
	job.AttachNotificationPurge(notifications)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run sweep job: %v", err)
	}

	if want := now.Add(-30 * 24 * time.Hour); !requests.cutoff.Equal(want) {
		t.Fatalf("request cutoff = %v, want %v", requests.cutoff, want)
	}
	if want := now.Add(-90 * 24 * time.Hour); !adminLogs.cutoff.Equal(want) {
		t.Fatalf("admin log cutoff = %v, want %v", adminLogs.cutoff, want)
	}
	if want := now.Add(-14 * 24 * time.Hour); !notifications.cutoff.Equal(want) {
		t.Fatalf("notification cutoff = %v, want %v", notifications.cutoff, want)
	}
}

func TestRunSkipsPurgesWithZeroRetention(t *testing.T) {
	users := &fakeDeactivator{}
	requests := &fakeTerminalPurger{}

	job := New(users, Retention{}, nil)
	job.AttachRequestPurge(requests)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run sweep job: %v", err)
	}
	if !requests.cutoff.IsZero() {
		t.Fatal("purge must be skipped when retention is zero")
	}
}

func TestRunPropagatesDeactivationError(t *testing.T) {
	users := &fakeDeactivator{err: errors.New("store down")}
	job := New(users, Retention{}, nil)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected an error from the failing store")
	}
}
