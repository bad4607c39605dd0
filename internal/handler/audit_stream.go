package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourorg/staffdesk/internal/featureflags"
	"github.com/yourorg/staffdesk/internal/security/audit"
	"github.com/yourorg/staffdesk/internal/service"
)

// AuditStreamHandler streams live audit events over a WebSocket. Superadmin
// only, and gated behind the audit_stream process flag.
type AuditStreamHandler struct {
	auditLog       *audit.Logger
	actors         *service.ActorResolver
	logger         *slog.Logger
	allowedOrigins []string
}

// NewAuditStreamHandler creates a new audit stream handler
func NewAuditStreamHandler(auditLog *audit.Logger, actors *service.ActorResolver, logger *slog.Logger, allowedOrigins []string) *AuditStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditStreamHandler{
		auditLog:       auditLog,
		actors:         actors,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

func (h *AuditStreamHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/audit
func (h *AuditStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !featureflags.Enabled(featureflags.FlagAuditStream) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	if !actor.IsSuperadmin() {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	events, cancel := h.auditLog.Subscribe()
	defer cancel()

	h.logger.Info("audit stream opened", slog.String("actor_id", actor.ID()))

	// Heartbeat ping to keep connection alive
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := ws.WriteJSON(ev); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("audit stream closed", slog.String("actor_id", actor.ID()))
				}
				return
			}
		}
	}
}
