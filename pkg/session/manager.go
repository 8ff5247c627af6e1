// Package session keeps one studio (store and pipeline) per connected client.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beautifulqr/qrgen/pkg/bus"
	"github.com/beautifulqr/qrgen/pkg/logger"
	"github.com/beautifulqr/qrgen/pkg/metrics"
	"github.com/beautifulqr/qrgen/pkg/qrcode"
	"github.com/beautifulqr/qrgen/pkg/studio"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string
	Store     *studio.Store
	Pipeline  *studio.Pipeline
	CreatedAt time.Time

	unsubscribe func()
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	encoder  qrcode.Encoder
	bus      *bus.MessageBus
}

func NewManager(encoder qrcode.Encoder, msgBus *bus.MessageBus) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		encoder:  encoder,
		bus:      msgBus,
	}
}

// Create starts a session with the given parameters. Every result its
// pipeline publishes is announced on the bus without the image bodies;
// readers that need them take the store's current result.
func (m *Manager) Create(initial studio.Params) *Session {
	id := uuid.NewString()
	store := studio.NewStore(initial)
	sess := &Session{
		ID:        id,
		Store:     store,
		Pipeline:  studio.NewPipeline(m.encoder, studio.WithLabel(id)),
		CreatedAt: time.Now(),
	}
	if m.bus != nil {
		sess.unsubscribe = store.Subscribe(func(r studio.Result) {
			m.bus.PublishResult(bus.ResultEvent{
				SessionID: id,
				Revision:  r.Revision,
				State:     string(r.State()),
				Error:     r.Error,
			})
		})
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	if m.bus != nil {
		m.bus.PublishSession(bus.SessionEvent{SessionID: id, Event: "opened"})
	}
	logger.DebugCF("session", "Session opened", map[string]interface{}{"session": id})

	sess.Pipeline.Attach(store)
	return sess
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the session's pipeline and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	m.shutdown(sess)
	if m.bus != nil {
		m.bus.PublishSession(bus.SessionEvent{SessionID: id, Event: "closed"})
	}
	logger.DebugCF("session", "Session closed", map[string]interface{}{"session": id})
	return nil
}

// CloseAll closes every session and waits for their cycles to return.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range all {
		m.shutdown(sess)
	}
	for _, sess := range all {
		sess.Pipeline.Wait()
	}
}

func (m *Manager) shutdown(sess *Session) {
	sess.Pipeline.Close()
	if sess.unsubscribe != nil {
		sess.unsubscribe()
	}
	metrics.ActiveSessions.Dec()
}

// ResultEvent converts a studio result into its wire form.
func ResultEvent(sessionID string, r studio.Result) bus.ResultEvent {
	return bus.ResultEvent{
		SessionID: sessionID,
		Revision:  r.Revision,
		State:     string(r.State()),
		PNG:       r.PNGDataURL(),
		SVG:       r.SVG,
		Error:     r.Error,
	}
}
