package turn

import (
	"sync"
	"time"

	"github.com/aziztlili/sawt/pkg/recognizer"
)

type State int

const (
	StateIdle State = iota
	StateListening
	StateSpeaking
	StateProcessing
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateListening:
		return "LISTENING"
	case StateSpeaking:
		return "SPEAKING"
	case StateProcessing:
		return "PROCESSING"
	default:
		return "UNKNOWN"
	}
}

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// StateListener observes turn state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// SessionState is the shared voice session snapshot. The controller is
// its only writer; every flag has exactly one upstream source
// (listening from the recognizer adapter, speaking from the speech
// queue, permission from the adapter, processing and shouldListen from
// the controller itself).
type SessionState struct {
	mu           sync.RWMutex
	listening    bool
	speaking     bool
	processing   bool
	shouldListen bool
	permission   recognizer.Permission
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Listening    bool                  `json:"listening"`
	Speaking     bool                  `json:"speaking"`
	Processing   bool                  `json:"processing"`
	ShouldListen bool                  `json:"shouldListen"`
	Permission   recognizer.Permission `json:"permission"`
}

func NewSessionState() *SessionState {
	return &SessionState{permission: recognizer.PermissionChecking}
}

func (s *SessionState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Listening:    s.listening,
		Speaking:     s.speaking,
		Processing:   s.processing,
		ShouldListen: s.shouldListen,
		Permission:   s.permission,
	}
}

func (s *SessionState) setListening(v bool) {
	s.mu.Lock()
	s.listening = v
	s.mu.Unlock()
}

func (s *SessionState) setSpeaking(v bool) {
	s.mu.Lock()
	s.speaking = v
	s.mu.Unlock()
}

func (s *SessionState) setProcessing(v bool) {
	s.mu.Lock()
	s.processing = v
	s.mu.Unlock()
}

func (s *SessionState) setShouldListen(v bool) {
	s.mu.Lock()
	s.shouldListen = v
	s.mu.Unlock()
}

func (s *SessionState) setPermission(p recognizer.Permission) {
	s.mu.Lock()
	s.permission = p
	s.mu.Unlock()
}
