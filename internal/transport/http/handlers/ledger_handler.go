package handlers

import (
	"errors"
	"net/http"

	"github.com/thuzarw/kspvpn-bot/internal/domain/enums"
	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
	auditsvc "github.com/thuzarw/kspvpn-bot/internal/services/audit"
	ledgersvc "github.com/thuzarw/kspvpn-bot/internal/services/ledger"
	"github.com/thuzarw/kspvpn-bot/internal/transport/http/dto"
	httperrors "github.com/thuzarw/kspvpn-bot/internal/transport/http/errors"
)

type LedgerHandler struct {
	ledger *ledgersvc.Service
	audit  *auditsvc.Service
}

func NewLedgerHandler(ledger *ledgersvc.Service, audit *auditsvc.Service) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, audit: audit}
}

func (h *LedgerHandler) EnsureAccount(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	var req dto.EnsureAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.ledger.EnsureAccount(r.Context(), req.UserID, req.Name, req.Username); err != nil {
		writeLedgerError(w, err, "failed to ensure account")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.EnsureAccountResponse{
		UserID: req.UserID,
		OK:     true,
	})
}

func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	credits, err := h.ledger.GetCredits(r.Context(), userID)
	if err != nil {
		writeLedgerError(w, err, "failed to read balance")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BalanceResponse{
		UserID:  userID,
		Credits: credits,
	})
}

func (h *LedgerHandler) VIPStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	status, err := h.ledger.Status(r.Context(), userID)
	if err != nil {
		writeLedgerError(w, err, "failed to read vip status")
		return
	}

	resp := dto.VIPStatusResponse{
		UserID: userID,
		Active: status.Active,
	}
	if status.Active {
		resp.Expiry = &status.Expiry
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *LedgerHandler) AddCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	var req dto.AddCreditsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	balance, err := h.ledger.AddCredits(r.Context(), userID, req.Amount)
	if err != nil {
		writeLedgerError(w, err, "failed to add credits")
		return
	}

	h.recordAudit(r, auditsvc.Input{
		Action:     enums.AuditActionAddCredits,
		ActorID:    req.ActorID,
		UserID:     userID,
		Amount:     req.Amount,
		NewBalance: balance,
	})

	httperrors.Write(w, http.StatusOK, dto.AddCreditsResponse{
		UserID:     userID,
		NewBalance: balance,
	})
}

func (h *LedgerHandler) GrantVIP(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	var req dto.GrantVIPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	expiry, err := h.ledger.GrantVIP(r.Context(), userID, req.Days)
	if err != nil {
		writeLedgerError(w, err, "failed to grant vip")
		return
	}

	h.recordAudit(r, auditsvc.Input{
		Action:    enums.AuditActionGrantVIP,
		ActorID:   req.ActorID,
		UserID:    userID,
		Days:      req.Days,
		NewExpiry: expiry,
	})

	httperrors.Write(w, http.StatusOK, dto.GrantVIPResponse{
		UserID: userID,
		Expiry: expiry,
	})
}

func (h *LedgerHandler) BulkAddCredits(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	var req dto.BulkCreditsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	res, err := h.ledger.BulkAddCredits(r.Context(), req.UserIDs, req.Amount)
	if err != nil {
		writeLedgerError(w, err, "failed to bulk add credits")
		return
	}

	for _, userID := range res.Updated {
		h.recordAudit(r, auditsvc.Input{
			Action:  enums.AuditActionAddCredits,
			ActorID: req.ActorID,
			UserID:  userID,
			Amount:  req.Amount,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.BulkResponse{
		Updated: res.Updated,
		Failed:  res.Failed,
	})
}

func (h *LedgerHandler) BulkGrantVIP(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	var req dto.BulkVIPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	res, err := h.ledger.BulkGrantVIP(r.Context(), req.UserIDs, req.Days)
	if err != nil {
		writeLedgerError(w, err, "failed to bulk grant vip")
		return
	}

	for _, userID := range res.Updated {
		h.recordAudit(r, auditsvc.Input{
			Action:  enums.AuditActionGrantVIP,
			ActorID: req.ActorID,
			UserID:  userID,
			Days:    req.Days,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.BulkResponse{
		Updated: res.Updated,
		Failed:  res.Failed,
	})
}

func (h *LedgerHandler) RevokeVIP(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	if err := h.ledger.RevokeVIP(r.Context(), userID); err != nil {
		writeLedgerError(w, err, "failed to revoke vip")
		return
	}

	h.recordAudit(r, auditsvc.Input{
		Action: enums.AuditActionRevokeVIP,
		UserID: userID,
	})

	httperrors.Write(w, http.StatusOK, dto.VIPStatusResponse{
		UserID: userID,
		Active: false,
	})
}

func (h *LedgerHandler) recordAudit(r *http.Request, in auditsvc.Input) {
	if h.audit == nil {
		return
	}
	_, _ = h.audit.Record(r.Context(), in)
}

func writeLedgerError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ledgersvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid ledger payload")
	case errors.Is(err, ledgersvc.ErrInsufficientCredits):
		writeConflict(w, "INSUFFICIENT_CREDITS", "not enough credits")
	case errors.Is(err, mongorepo.ErrStoreUnavailable):
		writeUnavailable(w, "STORE_UNAVAILABLE", "data store is unavailable")
	default:
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}
