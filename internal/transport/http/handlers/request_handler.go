package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
	requestsvc "github.com/thuzarw/kspvpn-bot/internal/services/requests"
	"github.com/thuzarw/kspvpn-bot/internal/transport/http/dto"
	httperrors "github.com/thuzarw/kspvpn-bot/internal/transport/http/errors"
)

type RequestHandler struct {
	requests *requestsvc.Service
}

func NewRequestHandler(requests *requestsvc.Service) *RequestHandler {
	return &RequestHandler{requests: requests}
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.requests == nil {
		writeInternal(w, "REQUEST_SERVICE_UNAVAILABLE", "request service is unavailable")
		return
	}

	var req dto.RequestCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	created, err := h.requests.Create(r.Context(), requestsvc.CreateInput{
		UserID:  req.UserID,
		Payload: req.Payload,
		Days:    req.Days,
		Price:   req.Price,
	})
	if err != nil {
		switch {
		case errors.Is(err, requestsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid request create payload")
		case errors.Is(err, requestsvc.ErrRateLimited):
			var limited *requestsvc.RateLimitedError
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
			writeInternal(w, "INTERNAL_ERROR", "failed to create request")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.RequestCreateResponse{
		RequestID: created.ID,
		Status:    string(created.Status),
		CreatedAt: created.CreatedAt,
	})
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.requests == nil {
		writeInternal(w, "REQUEST_SERVICE_UNAVAILABLE", "request service is unavailable")
		return
	}

	req, err := h.requests.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeRequestError(w, err, "failed to read request")
		return
	}

	httperrors.Write(w, http.StatusOK, req)
}

func (h *RequestHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}
	if h.requests == nil {
		writeInternal(w, "REQUEST_SERVICE_UNAVAILABLE", "request service is unavailable")
		return
	}

	list, err := h.requests.ListByUser(r.Context(), userID, 50)
	if err != nil {
		writeRequestError(w, err, "failed to list requests")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PendingRequestsResponse{Requests: list})
}

func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.adjudicate(w, r, true)
}

func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.adjudicate(w, r, false)
}

func (h *RequestHandler) adjudicate(w http.ResponseWriter, r *http.Request, approve bool) {
	if h.requests == nil {
		writeInternal(w, "REQUEST_SERVICE_UNAVAILABLE", "request service is unavailable")
		return
	}

	var req dto.AdjudicateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	requestID := chi.URLParam(r, "id")

	var (
		out requestsvc.Outcome
		err error
	)
	if approve {
		out, err = h.requests.Approve(r.Context(), requestID, req.ActorID)
	} else {
		out, err = h.requests.Reject(r.Context(), requestID, req.ActorID, req.Reason)
	}

	// An invalid request still reaches a terminal status; report the
	// outcome rather than a bare error.
	if err != nil && !errors.Is(err, requestsvc.ErrInvalidData) {
		writeRequestError(w, err, "failed to adjudicate request")
		return
	}

	resp := dto.AdjudicateResponse{
		RequestID:  out.RequestID,
		UserID:     out.UserID,
		Status:     string(out.Status),
		Reason:     out.Reason,
		NewBalance: out.NewBalance,
	}
	if !out.NewExpiry.IsZero() {
		expiry := out.NewExpiry
		resp.NewExpiry = &expiry
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func writeRequestError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, requestsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request payload")
	case errors.Is(err, requestsvc.ErrNotFound):
		writeNotFound(w, "REQUEST_NOT_FOUND", "request not found")
	case errors.Is(err, requestsvc.ErrAlreadyProcessed):
		writeConflict(w, "ALREADY_PROCESSED", "request already processed")
	case errors.Is(err, mongorepo.ErrStoreUnavailable):
		writeUnavailable(w, "STORE_UNAVAILABLE", "data store is unavailable")
	default:
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}
