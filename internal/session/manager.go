package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyloom-backend/internal/models"
	"storyloom-backend/internal/narration"
)

// EngineFactory builds the narration playback device for one session.
// In production this is the WebSocket relay to the client's speech engine.
type EngineFactory func(id uuid.UUID) narration.Engine

// Manager owns the live sessions. Sessions are memory-only: a session that
// goes quiet past the TTL is swept, and the client starts fresh.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*Session
	ttl       time.Duration
	engineFor EngineFactory
}

func NewManager(ttl time.Duration, engineFor EngineFactory) *Manager {
	return &Manager{
		sessions:  make(map[uuid.UUID]*Session),
		ttl:       ttl,
		engineFor: engineFor,
	}
}

// GetOrCreate resolves the session for a cookie id, creating it on first
// contact.
func (m *Manager) GetOrCreate(id uuid.UUID) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Touch()
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Touch()
		return s
	}
	s = New(id, m.engineFor(id))
	m.sessions[id] = s
	log.Printf("session %s: created", id)
	return s
}

// Get resolves an existing session without creating one.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Start runs the expiry sweep until the context is cancelled.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	log.Printf("Session manager started (ttl %s)", m.ttl)
	for {
		select {
		case <-ctx.Done():
			log.Println("Session manager stopped")
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.lastSeenAt().Before(cutoff) {
			s.Narration().ForceIdle()
			delete(m.sessions, id)
			log.Printf("session %s: expired", id)
		}
	}
}

// HandleClientMessage dispatches one inbound WebSocket message to its
// session. Unknown types are logged and dropped; a malformed payload must
// not take the connection down.
func (m *Manager) HandleClientMessage(id uuid.UUID, msgType string, payload json.RawMessage) {
	s, ok := m.Get(id)
	if !ok {
		return
	}

	switch msgType {
	case "voices":
		var voices []models.VoiceInfo
		if err := json.Unmarshal(payload, &voices); err != nil {
			log.Printf("session %s: bad voices payload: %v", id, err)
			return
		}
		inventory := make([]narration.Voice, len(voices))
		for i, v := range voices {
			inventory[i] = narration.Voice{ID: v.ID, Name: v.Name, Lang: v.Lang}
		}
		s.Narration().SetVoices(inventory)
	case "narration_event":
		var ev models.NarrationEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Printf("session %s: bad narration event: %v", id, err)
			return
		}
		s.Narration().HandleEvent(ev.Event)
	default:
		log.Printf("session %s: unknown client message type %q", id, msgType)
	}
}
