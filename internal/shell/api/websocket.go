package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/dharuna457/ClaraVerse/internal/shell/store"
)

// writeWait bounds each websocket write.
const writeWait = 10 * time.Second

// handleDeploymentEvents streams one deployment's progress events over a
// WebSocket. The stream is live-only: it carries events published after
// the socket opens and ends with the deployment's terminal event. A
// deployment that has already settled closes immediately; its history is
// on the registry record.
func (h *Handler) handleDeploymentEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.GetDeployment(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "deployment not found", "deployment_not_found")
			return
		}
		h.logger.Error("failed to get deployment", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get deployment", "internal_error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "deployment_id", id, "error", err)
		return
	}
	defer conn.Close()

	if rec.Status != store.StatusDeploying {
		h.closeSocket(conn, "deployment "+string(rec.Status))
		return
	}

	sub := h.deploy.SubscribeLog(id)
	defer sub.Cancel()

	// The subscription came after the record check; a deployment that
	// settled in between would never produce another event.
	if cur, err := h.store.GetDeployment(r.Context(), id); err == nil && cur.Status != store.StatusDeploying {
		h.closeSocket(conn, "deployment "+string(cur.Status))
		return
	}

	// Reader pump: the client never sends data, but reading is how we
	// notice it went away. Canceling the subscription closes the event
	// channel and unblocks the write loop.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		sub.Cancel()
	}()

	for ev := range sub.Events() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Warn("websocket send failed", "deployment_id", id, "error", err)
			return
		}
		if ev.Step.IsTerminal() {
			h.closeSocket(conn, "deployment resolved")
			return
		}
	}
}

// closeSocket sends a normal close frame with a reason.
func (h *Handler) closeSocket(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
