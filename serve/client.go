package serve

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var clientIDCounter atomic.Uint64

// client is a middleman between one websocket connection and the Hub,
// tracking which sections that connection subscribed to (§4.5 "PUSH
// subscribe(channels)").
type client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	channels map[string]bool
}

func newClient(hub *Hub, conn *websocket.Conn, channels []string) *client {
	c := &client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		send:     make(chan Message, 64),
		channels: make(map[string]bool),
	}
	if len(channels) == 0 {
		channels = []string{"all"}
	}
	for _, ch := range channels {
		c.channels[ch] = true
	}
	return c
}

func (c *client) wants(channel string) bool {
	return c.channels["all"] || c.channels[channel]
}

// subscribedChannels lists the channels this client is currently
// subscribed to, for the connection_established ack.
func (c *client) subscribedChannels() []string {
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

// start begins the read/write pumps for this client.
func (c *client) start(ctx context.Context) {
	go c.writePump()
	go c.readPump(ctx)
}

// readPump handles the three inbound message behaviors §4.5 specifies:
// ping -> pong, request_data -> section payload, unknown -> error.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "ping":
			c.trySend(Message{Type: "pong"})
		case "subscribe":
			if len(msg.Channels) > 0 {
				c.channels = make(map[string]bool, len(msg.Channels))
				for _, ch := range msg.Channels {
					c.channels[ch] = true
				}
			}
			c.trySend(Message{Type: "subscribed", Channels: msg.Channels})
		case "request_data":
			section, err := FetchSection(ctx, c.hub.analytics, msg.Channel)
			if err != nil {
				c.trySend(Message{Type: "error", Channel: msg.Channel, Error: err.Error()})
				continue
			}
			c.trySend(Message{Type: "section_update", Channel: msg.Channel, Data: section})
		default:
			c.trySend(Message{Type: "error", Error: "unknown message type"})
		}
	}
}

func (c *client) trySend(msg Message) {
	select {
	case c.send <- msg:
	default:
	}
}

// writePump pumps hub/section messages and keepalive pings to the
// connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
