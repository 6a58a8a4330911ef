package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub knows every open client by connection id and queues outbound messages.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "hub"),
		clients: make(map[string]*Client),
	}
}

func (that *Hub) Register(client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.clients[client.id] = client
}

// Unregister drops the client and closes its outbound queue once.
func (that *Hub) Unregister(client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.clients[client.id]; !ok || current != client {
		return
	}

	delete(that.clients, client.id)
	close(client.send)
}

// Send queues a message without blocking. A client whose queue is full misses it.
func (that *Hub) Send(connID, action string, payload any) {
	log := that.logger.With("method", "Send", "connID", connID, "action", action)

	data, err := encode(action, payload)
	if err != nil {
		log.Error("failed to encode message", "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	client, ok := that.clients[connID]
	if !ok {
		log.Debug("connection is gone, message dropped")
		return
	}

	select {
	case client.send <- data:
	default:
		log.Warn("send queue is full, message dropped")
	}
}

// CloseAll closes every open connection, their read loops then clean up.
func (that *Hub) CloseAll() {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, client := range that.clients {
		_ = client.conn.Close()
	}
}

func (that *Hub) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.clients)
}

func encode(action string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{Action: action, Payload: raw})
}
