package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/md-rashed-zaman/roombook/libs/httpx"
)

// newUpgrader accepts origins matching allowed (see httpx.OriginMatcher).
// With an empty list only same-host origins are accepted.
func newUpgrader(allowed []string) *websocket.Upgrader {
	u := &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096}
	origins := httpx.NewOriginMatcher(allowed)
	if origins.Empty() {
		return u
	}
	u.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origins.Match(origin)
	}
	return u
}

func closeWebsocket(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func pingWebsocket(conn *websocket.Conn, wait time.Duration) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wait))
}
