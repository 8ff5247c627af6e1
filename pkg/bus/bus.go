package bus

import (
	"sync"
	"time"
)

// BusEvent is the envelope observers receive.
type BusEvent struct {
	Type    string        `json:"type"` // "result" or "session"
	Result  *ResultEvent  `json:"result,omitempty"`
	Session *SessionEvent `json:"session,omitempty"`
	Time    time.Time     `json:"time"`
}

// SessionID returns the session the event belongs to.
func (e BusEvent) SessionID() string {
	switch {
	case e.Result != nil:
		return e.Result.SessionID
	case e.Session != nil:
		return e.Session.SessionID
	default:
		return ""
	}
}

type MessageBus struct {
	observers []chan BusEvent
	obsMu     sync.RWMutex
	buffer    int
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		observers: make([]chan BusEvent, 0),
		buffer:    64,
	}
}

// Subscribe returns a channel that receives copies of all bus events.
func (mb *MessageBus) Subscribe() chan BusEvent {
	ch := make(chan BusEvent, mb.buffer)
	mb.obsMu.Lock()
	mb.observers = append(mb.observers, ch)
	mb.obsMu.Unlock()
	return ch
}

// Unsubscribe removes an observer channel and closes it.
func (mb *MessageBus) Unsubscribe(ch chan BusEvent) {
	mb.obsMu.Lock()
	defer mb.obsMu.Unlock()
	for i, obs := range mb.observers {
		if obs == ch {
			mb.observers = append(mb.observers[:i], mb.observers[i+1:]...)
			close(ch)
			return
		}
	}
}

func (mb *MessageBus) notifyObservers(event BusEvent) {
	mb.obsMu.RLock()
	defer mb.obsMu.RUnlock()
	for _, obs := range mb.observers {
		select {
		case obs <- event:
		default:
			// Non-blocking: skip slow observers
		}
	}
}

func (mb *MessageBus) PublishResult(event ResultEvent) {
	mb.notifyObservers(BusEvent{
		Type:   "result",
		Result: &event,
		Time:   time.Now(),
	})
}

func (mb *MessageBus) PublishSession(event SessionEvent) {
	mb.notifyObservers(BusEvent{
		Type:    "session",
		Session: &event,
		Time:    time.Now(),
	})
}

// Close unsubscribes every observer.
func (mb *MessageBus) Close() {
	mb.obsMu.Lock()
	defer mb.obsMu.Unlock()
	for _, obs := range mb.observers {
		close(obs)
	}
	mb.observers = nil
}
