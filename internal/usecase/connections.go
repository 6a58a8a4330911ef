package usecase

import (
	"sync"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
)

// ConnectionTracker maps every open connection to the room it plays in,
// an empty room while it has none.
type ConnectionTracker struct {
	mu    sync.RWMutex
	rooms map[string]string
}

func NewConnectionTracker() *ConnectionTracker {
	return &ConnectionTracker{
		rooms: make(map[string]string),
	}
}

func (that *ConnectionTracker) Register(connID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[connID]; !ok {
		that.rooms[connID] = ""
	}
}

// Unregister forgets a closed connection and returns the room it was in.
func (that *ConnectionTracker) Unregister(connID string) (string, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	roomID, ok := that.rooms[connID]
	delete(that.rooms, connID)

	return roomID, ok && roomID != ""
}

// Bind attaches an open connection to a room. Closed connections are refused
// so a session never waits on a socket that is already gone.
func (that *ConnectionTracker) Bind(connID, roomID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[connID]; !ok {
		return apperror.ErrUnknownConnection
	}

	that.rooms[connID] = roomID

	return nil
}

// Release detaches the connection only while it still points at roomID.
func (that *ConnectionTracker) Release(connID, roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.rooms[connID]; ok && current == roomID {
		that.rooms[connID] = ""
	}
}

func (that *ConnectionTracker) Room(connID string) (string, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	roomID, ok := that.rooms[connID]

	return roomID, ok && roomID != ""
}

func (that *ConnectionTracker) IsOpen(connID string) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	_, ok := that.rooms[connID]

	return ok
}
