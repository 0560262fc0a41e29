package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/thuzarw/kspvpn-bot/internal/config"
	auditsvc "github.com/thuzarw/kspvpn-bot/internal/services/audit"
	ledgersvc "github.com/thuzarw/kspvpn-bot/internal/services/ledger"
	notifysvc "github.com/thuzarw/kspvpn-bot/internal/services/notify"
	requestsvc "github.com/thuzarw/kspvpn-bot/internal/services/requests"
	statssvc "github.com/thuzarw/kspvpn-bot/internal/services/stats"
	topupsvc "github.com/thuzarw/kspvpn-bot/internal/services/topups"
	"github.com/thuzarw/kspvpn-bot/internal/transport/http/handlers"
)

type Dependencies struct {
	LedgerService  *ledgersvc.Service
	RequestService *requestsvc.Service
	TopUpService   *topupsvc.Service
	NotifyService  *notifysvc.Service
	AuditService   *auditsvc.Service
	StatsService   *statssvc.Service
	Logger         *zap.Logger
	Config         config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	ledgerHandler := handlers.NewLedgerHandler(deps.LedgerService, deps.AuditService)
	requestHandler := handlers.NewRequestHandler(deps.RequestService)
	topupHandler := handlers.NewTopUpHandler(deps.TopUpService)
	notificationHandler := handlers.NewNotificationHandler(deps.NotifyService)
	adminHandler := handlers.NewAdminHandler(
		deps.LedgerService,
		deps.RequestService,
		deps.TopUpService,
		deps.StatsService,
		deps.AuditService,
	)
	adminAuthMW := AdminAuthMiddleware(deps.Config.Admin, deps.Logger)

	r.Get("/health", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", ledgerHandler.EnsureAccount)
		r.Get("/users/{id}/balance", ledgerHandler.Balance)
		r.Get("/users/{id}/vip", ledgerHandler.VIPStatus)
		r.Get("/users/{id}/requests", requestHandler.ListByUser)
		r.Get("/users/{id}/notifications", notificationHandler.List)
		r.Post("/users/{id}/notifications/{nid}/read", notificationHandler.MarkRead)

		r.Post("/requests", requestHandler.Create)
		r.Get("/requests/{id}", requestHandler.Get)
		r.Post("/topups", topupHandler.Create)
		r.Get("/topups/{id}", topupHandler.Get)

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuthMW)

			r.Get("/dashboard", adminHandler.Dashboard)
			r.Get("/logs", adminHandler.Logs)
			r.Get("/users/{id}", adminHandler.UserDetail)

			r.Post("/users/{id}/credits", ledgerHandler.AddCredits)
			r.Post("/users/{id}/vip", ledgerHandler.GrantVIP)
			r.Delete("/users/{id}/vip", ledgerHandler.RevokeVIP)
			r.Post("/bulk/credits", ledgerHandler.BulkAddCredits)
			r.Post("/bulk/vip", ledgerHandler.BulkGrantVIP)

			r.Get("/requests/pending", adminHandler.PendingRequests)
			r.Post("/requests/{id}/approve", requestHandler.Approve)
			r.Post("/requests/{id}/reject", requestHandler.Reject)

			r.Get("/topups/pending", adminHandler.PendingTopUps)
			r.Post("/topups/{id}/approve", topupHandler.Approve)
			r.Post("/topups/{id}/reject", topupHandler.Reject)
		})
	})
}
