package serve

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// upgrader permits cross-origin WS connections; CORS for the plain
// HTTP routes is handled by middleware.CORSMiddleware, but the
// handshake itself bypasses the chain's header writes, so gorilla's
// own origin check is disabled deliberately here (dashboard clients
// may be served from any static-asset origin).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Subscribe upgrades the connection and starts the client's pumps
// (§4.5 "PUSH subscribe(channels)"). The channels query parameter is a
// comma-separated list of §4.5's fixed section names, defaulting to
// "all".
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	var channels []string
	if raw := r.URL.Query().Get("channels"); raw != "" {
		channels = strings.Split(raw, ",")
	}

	c := newClient(h, conn, channels)
	h.Register <- c
	c.trySend(Message{Type: "connection_established", Channels: c.subscribedChannels()})
	c.start(r.Context())
}
