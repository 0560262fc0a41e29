package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	mongorepo "github.com/thuzarw/kspvpn-bot/internal/repo/mongodb"
	notifysvc "github.com/thuzarw/kspvpn-bot/internal/services/notify"
	"github.com/thuzarw/kspvpn-bot/internal/transport/http/dto"
	httperrors "github.com/thuzarw/kspvpn-bot/internal/transport/http/errors"
)

type NotificationHandler struct {
	notify *notifysvc.Service
}

func NewNotificationHandler(notify *notifysvc.Service) *NotificationHandler {
	return &NotificationHandler{notify: notify}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}
	if h.notify == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.notify.List(r.Context(), userID, unreadOnly, 50)
	if err != nil {
		writeNotifyError(w, err, "failed to list notifications")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NotificationListResponse{Notifications: list})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}
	if h.notify == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	notificationID := chi.URLParam(r, "nid")

	if err := h.notify.MarkRead(r.Context(), userID, notificationID); err != nil {
		if errors.Is(err, mongorepo.ErrNotFound) {
			writeNotFound(w, "NOTIFICATION_NOT_FOUND", "notification not found")
			return
		}
		writeNotifyError(w, err, "failed to mark notification read")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MarkReadResponse{OK: true})
}

func writeNotifyError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, notifysvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid notification payload")
	case errors.Is(err, mongorepo.ErrStoreUnavailable):
		writeUnavailable(w, "STORE_UNAVAILABLE", "data store is unavailable")
	default:
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}
