package http

import (
	"errors"
	"net/http"
	"time"

	"expensed/internal/core"
	"expensed/internal/log"
	"expensed/internal/storage"
)

type notificationResponse struct {
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
	Read      bool   `json:"read"`
}

func toNotificationResponse(n core.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Message:   n.Message,
		Kind:      n.Kind,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		Read:      n.Read,
	}
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	notifications, err := s.storage.ListNotificationsByUser(r.Context(), identity.UserID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list notifications",
			log.FieldUserID, identity.UserID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleMarkNotificationRead flips the read flag. The flag never goes
// back; repeating the call is a no-op.
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := s.storage.MarkNotificationRead(r.Context(), id, identity.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to mark notification read",
			"notification_id", id,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "marked as read"})
}
