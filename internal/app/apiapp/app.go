package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/thuzarw/kspvpn-bot/internal/config"
	"github.com/thuzarw/kspvpn-bot/internal/jobs/sweep"
	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
	redrepo "github.com/thuzarw/kspvpn-bot/internal/repo/redis"
	auditsvc "github.com/thuzarw/kspvpn-bot/internal/services/audit"
	ledgersvc "github.com/thuzarw/kspvpn-bot/internal/services/ledger"
	notifysvc "github.com/thuzarw/kspvpn-bot/internal/services/notify"
	ratesvc "github.com/thuzarw/kspvpn-bot/internal/services/rate"
	requestsvc "github.com/thuzarw/kspvpn-bot/internal/services/requests"
	statssvc "github.com/thuzarw/kspvpn-bot/internal/services/stats"
	topupsvc "github.com/thuzarw/kspvpn-bot/internal/services/topups"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	mongo      *mongo.Client
	redis      *goredis.Client
	sweepJob   *sweep.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	mongoClient, err := mongorepo.NewClient(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, fmt.Errorf("init mongo: %w", err)
	}

	store := mongorepo.NewStore(mongoClient, cfg.Mongo.Database, cfg.Mongo.CallTimeout)
	userRepo := mongorepo.NewUserRepo(store)
	requestRepo := mongorepo.NewRequestRepo(store)
	topupRepo := mongorepo.NewTopUpRepo(store)
	adminLogRepo := mongorepo.NewAdminLogRepo(store)
	notificationRepo := mongorepo.NewNotificationRepo(store)

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.SubmitPerMinute, cfg.Limits.SubmitPer10Sec)

	ledgerService := ledgersvc.NewService(userRepo)
	auditService := auditsvc.NewService(adminLogRepo)
	notifyService := notifysvc.NewService(notificationRepo)
	requestService := requestsvc.NewService(requestsvc.Dependencies{
		Store:    requestRepo,
		Ledger:   ledgerService,
		Audit:    auditService,
		Notifier: notifyService,
	}, log)
	requestService.AttachSubmitGate(rateLimiter)
	topupService := topupsvc.NewService(topupsvc.Dependencies{
		Store:    topupRepo,
		Ledger:   ledgerService,
		Audit:    auditService,
		Notifier: notifyService,
	}, log)
	topupService.AttachSubmitGate(rateLimiter)
	statsService := statssvc.NewService(userRepo, requestRepo, topupRepo)

	sweepJob := sweep.New(userRepo, sweep.Retention{
		AdminLogs:     days(cfg.Retention.AdminLogDays),
		Requests:      days(cfg.Retention.RequestDays),
		TopUps:        days(cfg.Retention.TopUpDays),
		Notifications: days(cfg.Retention.NotificationDays),
	}, log)
	sweepJob.AttachRequestPurge(requestRepo)
	sweepJob.AttachTopUpPurge(topupRepo)
	sweepJob.AttachAdminLogPurge(adminLogRepo)
	sweepJob.AttachNotificationPurge(notificationRepo)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		LedgerService:  ledgerService,
		RequestService: requestService,
		TopUpService:   topupService,
		NotifyService:  notifyService,
		AuditService:   auditService,
		StatsService:   statsService,
		Logger:         log,
		Config:         cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		mongo:      mongoClient,
		redis:      redisClient,
		sweepJob:   sweepJob,
		httpRouter: r,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runSweepLoop(ctx)
	}()
	go func() {
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runSweepLoop(ctx context.Context) error {
	if a.sweepJob == nil {
		return nil
	}

	interval := a.cfg.Retention.SweepInterval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	if err := a.sweepJob.Run(ctx); err != nil {
		a.logger.Warn("retention sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.sweepJob.Run(ctx); err != nil {
				a.logger.Warn("retention sweep failed", zap.Error(err))
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

func days(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * 24 * time.Hour
}
