package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/thuzarw/kspvpn-bot/internal/domain/model"
	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
	ledgersvc "github.com/thuzarw/kspvpn-bot/internal/services/ledger"
	requestsvc "github.com/thuzarw/kspvpn-bot/internal/services/requests"
	statssvc "github.com/thuzarw/kspvpn-bot/internal/services/stats"
	topupsvc "github.com/thuzarw/kspvpn-bot/internal/services/topups"
	"github.com/thuzarw/kspvpn-bot/internal/transport/http/dto"
	httperrors "github.com/thuzarw/kspvpn-bot/internal/transport/http/errors"
)

type auditListing interface {
	List(ctx context.Context, limit int) ([]model.AdminLogEntry, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]model.AdminLogEntry, error)
}

type AdminHandler struct {
	ledger   *ledgersvc.Service
	requests *requestsvc.Service
	topups   *topupsvc.Service
	stats    *statssvc.Service
	audit    auditListing
}

func NewAdminHandler(
	ledger *ledgersvc.Service,
	requests *requestsvc.Service,
	topups *topupsvc.Service,
	stats *statssvc.Service,
	audit auditListing,
) *AdminHandler {
	return &AdminHandler{
		ledger:   ledger,
		requests: requests,
		topups:   topups,
		stats:    stats,
		audit:    audit,
	}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeInternal(w, "STATS_SERVICE_UNAVAILABLE", "stats service is unavailable")
		return
	}

	dash, err := h.stats.Dashboard(r.Context(), 10)
	if err != nil {
		if errors.Is(err, mongorepo.ErrStoreUnavailable) {
			writeUnavailable(w, "STORE_UNAVAILABLE", "data store is unavailable")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to assemble dashboard")
		return
	}

	httperrors.Write(w, http.StatusOK, dash)
}

func (h *AdminHandler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	if h.requests == nil {
		writeInternal(w, "REQUEST_SERVICE_UNAVAILABLE", "request service is unavailable")
		return
	}

	list, err := h.requests.ListPending(r.Context(), listLimit(r))
	if err != nil {
		writeRequestError(w, err, "failed to list pending requests")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PendingRequestsResponse{Requests: list})
}

func (h *AdminHandler) PendingTopUps(w http.ResponseWriter, r *http.Request) {
	if h.topups == nil {
		writeInternal(w, "TOPUP_SERVICE_UNAVAILABLE", "topup service is unavailable")
		return
	}

	list, err := h.topups.ListPending(r.Context(), listLimit(r))
	if err != nil {
		writeTopUpError(w, err, "failed to list pending topups")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PendingTopUpsResponse{TopUps: list})
}

func (h *AdminHandler) UserDetail(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}
	if h.ledger == nil || h.requests == nil || h.topups == nil {
		writeInternal(w, "ADMIN_SERVICE_UNAVAILABLE", "admin services are unavailable")
		return
	}

	// Unknown accounts come back zero-valued, same as the public balance
	// endpoint.
	user, err := h.ledger.GetAccount(r.Context(), userID)
	if err != nil {
		writeLedgerError(w, err, "failed to read user")
		return
	}

	requests, err := h.requests.ListByUser(r.Context(), userID, 20)
	if err != nil {
		writeRequestError(w, err, "failed to list user requests")
		return
	}

	topups, err := h.topups.ListByUser(r.Context(), userID, 20)
	if err != nil {
		writeTopUpError(w, err, "failed to list user topups")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminUserResponse{
		User:     user,
		Requests: requests,
		TopUps:   topups,
	})
}

func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeInternal(w, "AUDIT_SERVICE_UNAVAILABLE", "audit service is unavailable")
		return
	}

	limit := listLimit(r)

	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid user id filter")
			return
		}
		entries, err := h.audit.ListForUser(r.Context(), userID, limit)
		if err != nil {
			writeAuditError(w, err)
			return
		}
		httperrors.Write(w, http.StatusOK, dto.AdminLogsResponse{Entries: entries})
		return
	}

	entries, err := h.audit.List(r.Context(), limit)
	if err != nil {
		writeAuditError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminLogsResponse{Entries: entries})
}

func writeAuditError(w http.ResponseWriter, err error) {
	if errors.Is(err, mongorepo.ErrStoreUnavailable) {
		writeUnavailable(w, "STORE_UNAVAILABLE", "data store is unavailable")
		return
	}
	writeInternal(w, "INTERNAL_ERROR", "failed to list admin logs")
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 50
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
