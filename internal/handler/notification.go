package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/mutualaid/internal/model"
)

const defaultNotificationLimit = 50

type NotificationReader interface {
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error)
}

type NotificationHandler struct {
	store  NotificationReader
	logger *slog.Logger
}

func NewNotificationHandler(store NotificationReader, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{store: store, logger: logger}
}

func (h *NotificationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	limit := defaultNotificationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			writeFail(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	notes, err := h.store.ListByRecipient(r.Context(), actor.UserID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, emptyIfNil(notes))
}
