package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/thuzarw/kspvpn-bot/internal/config"
	"github.com/thuzarw/kspvpn-bot/internal/infra/logger"
	"github.com/thuzarw/kspvpn-bot/internal/jobs/sweep"
	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
)

// One-shot retention sweep for cron setups that do not keep the api
// process running around the clock.
func main() {
	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := mongorepo.NewClient(ctx, cfg.Mongo.URI)
	if err != nil {
		log.Fatal("init mongo", zap.Error(err))
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	store := mongorepo.NewStore(client, cfg.Mongo.Database, cfg.Mongo.CallTimeout)

	job := sweep.New(mongorepo.NewUserRepo(store), sweep.Retention{
		AdminLogs:     days(cfg.Retention.AdminLogDays),
		Requests:      days(cfg.Retention.RequestDays),
		TopUps:        days(cfg.Retention.TopUpDays),
		Notifications: days(cfg.Retention.NotificationDays),
	}, log)
	job.AttachRequestPurge(mongorepo.NewRequestRepo(store))
	job.AttachTopUpPurge(mongorepo.NewTopUpRepo(store))
	job.AttachAdminLogPurge(mongorepo.NewAdminLogRepo(store))
	job.AttachNotificationPurge(mongorepo.NewNotificationRepo(store))

	if err := job.Run(ctx); err != nil {
		log.Fatal("retention sweep failed", zap.Error(err))
	}
	log.Info("retention sweep completed")
}

func days(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * 24 * time.Hour
}
