package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/groupcar/groupcar-server/internal/apperrors"
	"github.com/groupcar/groupcar-server/internal/http/middleware"
	"github.com/groupcar/groupcar-server/internal/http/response"
	"github.com/groupcar/groupcar-server/internal/notification"
	"github.com/groupcar/groupcar-server/internal/observability"
)

type NotificationHandler struct {
	hub      *notification.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewNotificationHandler(hub *notification.Hub, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cookie-authenticated handshake; cross-origin upgrades
			// are rejected like any other cross-origin write.
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
		logger: logger,
	}
}

// Subscribe upgrades a logged-in session to a websocket and streams
// notifications until the client disconnects. Authentication happened
// in the session pipeline during the handshake request.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, apperrors.NotLoggedIn())
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		h.logger.DebugContext(r.Context(), "websocket upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	observability.Audit(r, "notifications_subscribed", "user_id", user.ID)
	h.hub.Register(user.ID, conn)
	h.hub.Serve(user.ID, conn)
}
