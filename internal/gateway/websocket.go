package gateway

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	v1 "github.com/PaulBabatuyi/cohortChat-gRPC/proto/chat/v1"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// checkOrigin admits requests without an Origin header (non-browser
// clients), same-host pages, and the configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.origins["*"] || h.origins[strings.ToLower(strings.TrimRight(origin, "/"))] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// roomSocket joins the caller's room and pushes every snapshot as
// {roomId, messages} until either side goes away. The gate and reset run
// before the upgrade so their failures are plain HTTP errors.
func (h *Handler) roomSocket(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		h.log.Warn("websocket origin rejected", zap.String("origin", r.Header.Get("Origin")))
		writeJSONError(w, http.StatusForbidden, "origin not allowed")
		return
	}

	uid := userID(r)
	sess, err := h.svc.Join(r.Context(), uid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer sess.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.log.With(zap.String("user_id", uid), zap.String("room_id", sess.RoomID))
	log.Debug("websocket attached")

	// inbound frames are ignored; reading keeps pongs and close frames flowing
	gone := make(chan struct{})
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			log.Debug("websocket detached")
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msgs, ok := <-sess.Updates():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "room closed"))
				return
			}
			if err := conn.WriteJSON(v1.FromSnapshot(sess.RoomID, msgs)); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}
