package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aryan0dhankhar/bluecarbon/internal/service"
)

const (
	pingInterval = 15 * time.Second
	writeWait    = 5 * time.Second
	// Recent entries sent before live ones so a dashboard starts populated
	backlogSize = 20
)

// AuditStreamHandler streams committed audit entries over a WebSocket
type AuditStreamHandler struct {
	registry       *service.RegistryService
	logger         *slog.Logger
	allowedOrigins []string
}

// NewAuditStreamHandler creates a new audit stream handler
func NewAuditStreamHandler(registry *service.RegistryService, logger *slog.Logger, allowedOrigins []string) *AuditStreamHandler {
	return &AuditStreamHandler{
		registry:       registry,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
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
				if allowed == "*" || origin == allowed {
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
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.registry.CanStreamAudit(user); err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Subscribe before reading the backlog so no entry falls between the two
	entries, cancel := h.registry.Broadcaster().Subscribe()
	defer cancel()
	backlog, err := h.registry.AuditLogs(user, backlogSize)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	h.logger.Debug("audit stream opened", slog.String("user_id", user.ID))

	seen := make(map[string]bool, len(backlog))
	// backlog is newest first; send oldest first
	for i := len(backlog) - 1; i >= 0; i-- {
		seen[backlog[i].ID] = true
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(backlog[i]); err != nil {
			return
		}
	}

	// Reader detects client close; the stream is server-to-client only
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	// Heartbeat ping to keep connection alive
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if seen[entry.ID] {
				continue
			}
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(entry); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("websocket closed", slog.String("user_id", user.ID))
				}
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			h.logger.Debug("audit stream closed by client", slog.String("user_id", user.ID))
			return
		case <-r.Context().Done():
			return
		}
	}
}
