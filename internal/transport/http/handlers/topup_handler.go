package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
	topupsvc "github.com/thuzarw/kspvpn-bot/internal/services/topups"
	"github.com/thuzarw/kspvpn-bot/internal/transport/http/dto"
	httperrors "github.com/thuzarw/kspvpn-bot/internal/transport/http/errors"
)

type TopUpHandler struct {
	topups *topupsvc.Service
}

func NewTopUpHandler(topups *topupsvc.Service) *TopUpHandler {
	return &TopUpHandler{topups: topups}
}

func (h *TopUpHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.topups == nil {
		writeInternal(w, "TOPUP_SERVICE_UNAVAILABLE", "topup service is unavailable")
		return
	}

	var req dto.TopUpCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	created, err := h.topups.Create(r.Context(), topupsvc.CreateInput{
		UserID: req.UserID,
		Amount: req.Amount,
		Method: req.Method,
		Proof:  req.Proof,
	})
	if err != nil {
		switch {
		case errors.Is(err, topupsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid topup create payload")
		case errors.Is(err, topupsvc.ErrRateLimited):
			var limited *topupsvc.RateLimitedError
			retryAfter := int64(0)
			if errors.As(err, &limited) {
				retryAfter = limited.RetryAfterSec
			}
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "TOO_MANY_REQUESTS",
				Message:       "submission rate limit exceeded",
				RetryAfterSec: retryAfter,
			})
		case errors.Is(err, mongorepo.ErrStoreUnavailable):
			writeUnavailable(w, "STORE_UNAVAILABLE", "data store is unavailable")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to create topup")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.TopUpCreateResponse{
		TopUpID:   created.ID,
		Status:    string(created.Status),
		CreatedAt: created.CreatedAt,
	})
}

func (h *TopUpHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.topups == nil {
		writeInternal(w, "TOPUP_SERVICE_UNAVAILABLE", "topup service is unavailable")
		return
	}

	topup, err := h.topups.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeTopUpError(w, err, "failed to read topup")
		return
	}

	httperrors.Write(w, http.StatusOK, topup)
}

func (h *TopUpHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.adjudicate(w, r, true)
}

func (h *TopUpHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.adjudicate(w, r, false)
}

func (h *TopUpHandler) adjudicate(w http.ResponseWriter, r *http.Request, approve bool) {
	if h.topups == nil {
		writeInternal(w, "TOPUP_SERVICE_UNAVAILABLE", "topup service is unavailable")
		return
	}

	var req dto.AdjudicateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	topupID := chi.URLParam(r, "id")

	var (
		out topupsvc.Outcome
		err error
	)
	if approve {
		out, err = h.topups.Approve(r.Context(), topupID, req.ActorID)
	} else {
		out, err = h.topups.Reject(r.Context(), topupID, req.ActorID, req.Reason)
	}
	if err != nil {
		writeTopUpError(w, err, "failed to adjudicate topup")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TopUpAdjudicateResponse{
		TopUpID:    out.TopUpID,
		UserID:     out.UserID,
		Status:     string(out.Status),
		Reason:     out.Reason,
		NewBalance: out.NewBalance,
	})
}

func writeTopUpError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, topupsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid topup payload")
	case errors.Is(err, topupsvc.ErrNotFound):
		writeNotFound(w, "TOPUP_NOT_FOUND", "topup not found")
	case errors.Is(err, topupsvc.ErrAlreadyProcessed):
		writeConflict(w, "ALREADY_PROCESSED", "topup already processed")
	case errors.Is(err, mongorepo.ErrStoreUnavailable):
		writeUnavailable(w, "STORE_UNAVAILABLE", "data store is unavailable")
	default:
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}
