package studio

import (
	"context"
	"sync"

	"github.com/beautifulqr/qrgen/pkg/qrcode"
)

// ChangeFunc is invoked after every accepted parameter change with the new
// snapshot and its revision.
type ChangeFunc func(params Params, revision uint64)

// ResultFunc is invoked after every published result.
type ResultFunc func(Result)

// Store holds the current parameters and the latest derived result of one
// studio. Every accepted change bumps the revision; a result is only
// accepted for the revision that is current when it is published.
type Store struct {
	mu       sync.RWMutex
	params   Params
	result   Result
	revision uint64

	onChange []ChangeFunc

	// pubMu serializes publish with result notification so observers see
	// results in revision order.
	pubMu     sync.Mutex
	observers map[int]ResultFunc
	nextObs   int
}

func NewStore(initial Params) *Store {
	return &Store{
		params:    initial,
		observers: make(map[int]ResultFunc),
	}
}

func (s *Store) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

func (s *Store) Result() Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store) snapshot() (Params, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params, s.revision
}

func (s *Store) SetPayload(v string) bool {
	return s.update(func(p *Params) { p.Payload = v }, false)
}

func (s *Store) SetSize(v int) bool {
	return s.update(func(p *Params) { p.Size = v }, false)
}

func (s *Store) SetMargin(v int) bool {
	return s.update(func(p *Params) { p.Margin = v }, false)
}

func (s *Store) SetLevel(v qrcode.Level) bool {
	return s.update(func(p *Params) { p.Level = v }, false)
}

func (s *Store) SetForeground(v string) bool {
	return s.update(func(p *Params) { p.Foreground = v }, false)
}

func (s *Store) SetBackground(v string) bool {
	return s.update(func(p *Params) { p.Background = v }, false)
}

// ResetColors restores both colors to their defaults as a single change.
func (s *Store) ResetColors() bool {
	return s.update(func(p *Params) {
		p.Foreground = DefaultForeground
		p.Background = DefaultBackground
	}, false)
}

// Apply merges a patch as one change.
func (s *Store) Apply(patch Patch) bool {
	return s.update(func(p *Params) { *p = p.With(patch) }, false)
}

// Regenerate bumps the revision without changing parameters.
func (s *Store) Regenerate() {
	s.update(func(*Params) {}, true)
}

// OnChange registers fn for every subsequent accepted change.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Subscribe registers fn for every subsequent published result. The
// returned function removes it.
func (s *Store) Subscribe(fn ResultFunc) (unsubscribe func()) {
	s.pubMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.pubMu.Unlock()

	return func() {
		s.pubMu.Lock()
		delete(s.observers, id)
		s.pubMu.Unlock()
	}
}

func (s *Store) update(fn func(*Params), force bool) bool {
	s.mu.Lock()
	next := s.params
	fn(&next)
	if next == s.params && !force {
		s.mu.Unlock()
		return false
	}
	s.params = next
	s.revision++
	rev := s.revision
	handlers := make([]ChangeFunc, len(s.onChange))
	copy(handlers, s.onChange)
	s.mu.Unlock()

	for _, h := range handlers {
		h(next, rev)
	}
	return true
}

// publish replaces the result if rev is still current. It reports whether
// the result was accepted.
func (s *Store) publish(rev uint64, res Result) bool {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if rev != s.revision {
		s.mu.Unlock()
		return false
	}
	res.Revision = rev
	s.result = res
	s.mu.Unlock()

	for _, fn := range s.observers {
		fn(res)
	}
	return true
}

// Await blocks until the result for rev has settled into ready or error.
// It fails once a newer revision exists or ctx is done.
func (s *Store) Await(ctx context.Context, rev uint64) (Result, error) {
	done := make(chan Result, 1)
	unsubscribe := s.Subscribe(func(r Result) {
		if r.State() != StatePending {
			select {
			case done <- r:
			default:
			}
		}
	})
	defer unsubscribe()

	if r := s.Result(); r.Revision == rev && r.State() != StatePending {
		return r, nil
	}
	if s.Revision() > rev {
		return Result{}, ErrSuperseded
	}
	for {
		select {
		case r := <-done:
			if r.Revision == rev {
				return r, nil
			}
			if r.Revision > rev {
				return Result{}, ErrSuperseded
			}
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}
