package usecase

import "sync"

// Registry holds the active sessions by room id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*GameSession
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*GameSession),
	}
}

func (that *Registry) Add(session *GameSession) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[session.ID()] = session
}

func (that *Registry) Get(roomID string) (*GameSession, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	session, ok := that.sessions[roomID]

	return session, ok
}

// Remove reports whether the room was still registered.
func (that *Registry) Remove(roomID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.sessions[roomID]; !ok {
		return false
	}

	delete(that.sessions, roomID)

	return true
}

func (that *Registry) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions)
}
