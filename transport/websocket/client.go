package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// Client is one open socket. Only the write pump writes to conn.
type Client struct {
	id       string
	identity string

	conn *websocket.Conn
	send chan []byte

	chat *rate.Limiter
}

func newClient(id, identity string, conn *websocket.Conn, opts Options) *Client {
	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, opts.SendBuffer),
		chat:     rate.NewLimiter(rate.Limit(opts.ChatRate), opts.ChatBurst),
	}
}

func (that *Client) ID() string {
	return that.id
}

func (that *Client) Identity() string {
	return that.identity
}

// writePump drains the queue and keeps the connection alive with pings.
func (that *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
