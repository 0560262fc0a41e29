package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type vipDeactivator interface {
	DeactivateAllLapsedVIP(ctx context.Context, at time.Time) (int64, error)
}

type terminalPurger interface {
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type agePurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Retention struct {
	AdminLogs     time.Duration
	Requests      time.Duration
	TopUps        time.Duration
	Notifications time.Duration
}

// Job reconciles lapsed VIP flags and prunes aged records. Reads already
// treat a past expiry as inactive, so the flag flip here is catch-up work,
// not correctness-critical.
type Job struct {
	users         vipDeactivator
	requests      terminalPurger
	topups        terminalPurger
	adminLogs     agePurger
	notifications agePurger
	retention     Retention
	now           func() time.Time
	logger        *zap.Logger
}

func New(users vipDeactivator, retention Retention, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		users:     users,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) AttachRequestPurge(requests terminalPurger) {
	j.requests = requests
}

func (j *Job) AttachTopUpPurge(topups terminalPurger) {
	j.topups = topups
}

func (j *Job) AttachAdminLogPurge(adminLogs agePurger) {
	j.adminLogs = adminLogs
}

func (j *Job) AttachNotificationPurge(notifications agePurger) {
	j.notifications = notifications
}

func (j *Job) Run(ctx context.Context) error {
	now := j.now().UTC()

	if j.users != nil {
		flipped, err := j.users.DeactivateAllLapsedVIP(ctx, now)
		if err != nil {
			return fmt.Errorf("deactivate lapsed vip flags: %w", err)
		}
		if flipped > 0 {
			j.logger.Info("lapsed vip flags deactivated", zap.Int64("users", flipped))
		}
	}

	if j.requests != nil && j.retention.Requests > 0 {
		deleted, err := j.requests.DeleteTerminalOlderThan(ctx, now.Add(-j.retention.Requests))
		if err != nil {
			return fmt.Errorf("purge terminal requests: %w", err)
		}
		if deleted > 0 {
			j.logger.Info("terminal requests purged", zap.Int64("deleted", deleted))
		}
	}

	if j.topups != nil && j.retention.TopUps > 0 {
		deleted, err := j.topups.DeleteTerminalOlderThan(ctx, now.Add(-j.retention.TopUps))
		if err != nil {
			return fmt.Errorf("purge terminal topups: %w", err)
		}
		if deleted > 0 {
			j.logger.Info("terminal topups purged", zap.Int64("deleted", deleted))
		}
	}

	if j.adminLogs != nil && j.retention.AdminLogs > 0 {
		deleted, err := j.adminLogs.DeleteOlderThan(ctx, now.Add(-j.retention.AdminLogs))
		if err != nil {
			return fmt.Errorf("purge admin logs: %w", err)
		}
		if deleted > 0 {
			j.logger.Info("aged admin logs purged", zap.Int64("deleted", deleted))
		}
	}

	if j.notifications != nil && j.retention.Notifications > 0 {
		deleted, err := j.notifications.DeleteOlderThan(ctx, now.Add(-j.retention.Notifications))
		if err != nil {
			return fmt.Errorf("purge notifications: %w", err)
		}
		if deleted > 0 {
			j.logger.Info("aged notifications purged", zap.Int64("deleted", deleted))
		}
	}

	return nil
}
