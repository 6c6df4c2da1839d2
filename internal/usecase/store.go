package usecase

import (
	"sync"

	"storyweave/internal/domain"
)

// watchBuffer is the per-subscriber notification queue depth. A slow
// consumer drops intermediate snapshots rather than blocking the reducer;
// the latest state is always observable via Snapshot.
const watchBuffer = 16

type watcher struct {
	id uint64
	ch chan domain.SessionState
}

// SessionStore holds the single streaming session state for the process.
// Reducers are the only writers; everything else reads snapshots or
// subscribes for change notifications.
type SessionStore struct {
	mu      sync.RWMutex
	state   domain.SessionState
	watches []watcher
	nextID  uint64
}

// NewSessionStore creates a store in the initial idle state.
func NewSessionStore() *SessionStore {
	return &SessionStore{state: domain.NewSessionState()}
}

// Snapshot returns a copy of the current session state.
func (s *SessionStore) Snapshot() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers for state-change notifications. Each mutation sends
// the new snapshot on the returned channel; snapshots may be dropped if the
// consumer lags. The unsubscribe function closes the channel.
func (s *SessionStore) Subscribe() (<-chan domain.SessionState, func()) {
	s.mu.Lock()
	s.nextID++
	w := watcher{id: s.nextID, ch: make(chan domain.SessionState, watchBuffer)}
	s.watches = append(s.watches, w)
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, cur := range s.watches {
			if cur.id == w.id {
				s.watches = append(s.watches[:i], s.watches[i+1:]...)
				close(cur.ch)
				return
			}
		}
	}
	return w.ch, unsubscribe
}

// update applies fn to the state under lock and notifies watchers. Sends
// happen under the same lock that guards unsubscribe's close, so a snapshot
// can never land on a closed channel. The sends are non-blocking, so holding
// the lock across them is safe.
func (s *SessionStore) update(fn func(*domain.SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	snapshot := s.state
	for _, w := range s.watches {
		select {
		case w.ch <- snapshot:
		default: // lagging consumer, drop
		}
	}
}

// Reset returns the session to the initial idle state.
func (s *SessionStore) Reset() {
	s.update(func(st *domain.SessionState) {
		*st = domain.NewSessionState()
	})
}

// BeginStreaming marks the start of a job: streaming on, phase connecting.
func (s *SessionStore) BeginStreaming() {
	s.update(func(st *domain.SessionState) {
		*st = domain.NewSessionState()
		st.IsStreaming = true
		st.Phase = domain.PhaseConnecting
	})
}

// EndStreaming clears the streaming flag without touching the phase, for
// streams that end without a terminal event.
func (s *SessionStore) EndStreaming() {
	s.update(func(st *domain.SessionState) {
		st.IsStreaming = false
	})
}

// FailValidation surfaces a local validation failure without ever entering
// a streaming phase.
func (s *SessionStore) FailValidation(msg string) {
	s.update(func(st *domain.SessionState) {
		st.IsStreaming = false
		st.Phase = domain.PhaseError
		st.Message = msg
	})
}

// Fail records a transport or backend failure.
func (s *SessionStore) Fail(msg string) {
	s.update(func(st *domain.SessionState) {
		st.IsStreaming = false
		st.Phase = domain.PhaseError
		st.Message = msg
	})
}
