package orchestrators

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
)

// SessionState is a step of the extraction state machine
type SessionState int

// Extraction states
const (
	StateIdle SessionState = iota
	StateSessionOpen
	StateTryingStrategy
	StateSuccess
	StateAllFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSessionOpen:
		return "SessionOpen"
	case StateTryingStrategy:
		return "TryingStrategy"
	case StateSuccess:
		return "Success"
	case StateAllFailed:
		return "AllFailed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

var allowedTransitions = map[SessionState][]SessionState{
	StateIdle:           {StateSessionOpen},
	StateSessionOpen:    {StateTryingStrategy, StateAllFailed},
	StateTryingStrategy: {StateTryingStrategy, StateSuccess, StateAllFailed},
}

// Session owns one temporary extraction root. Sessions are single use: once
// a run reaches Success or AllFailed the session cannot be extracted into again.
type Session struct {
	ID       string
	Root     string
	Settings entities.Settings

	logger    interfaces.Logger
	mu        sync.Mutex
	state     SessionState
	closeOnce sync.Once
}

// OpenSession creates a fresh root under tempDir ("" uses the system temp dir)
// and snapshots settings
func OpenSession(settings entities.Settings, tempDir string, logger interfaces.Logger) (*Session, error) {
	id := uuid.NewString()
	root, err := os.MkdirTemp(tempDir, "decant-"+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create session root: %w", err)
	}

	s := &Session{
		ID:       id,
		Root:     root,
		Settings: settings,
		logger:   interfaces.OrNoOp(logger),
	}
	s.transition(StateSessionOpen)
	s.logger.Debug("session opened", interfaces.F("session", id), interfaces.F("root", root))
	return s, nil
}

// State returns the current state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves the state machine forward. An illegal move is a
// programming error and panics.
func (s *Session) transition(to SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, allowed := range allowedTransitions[s.state] {
		if allowed == to {
			s.state = to
			return
		}
	}
	panic(fmt.Sprintf("illegal session transition %s -> %s", s.state, to))
}

// Close removes the session root. It is safe to call more than once and on
// any exit path; removal errors are logged, not returned.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := os.RemoveAll(s.Root); err != nil {
			s.logger.Warn("failed to remove session root", interfaces.F("root", s.Root), interfaces.F("error", err))
			return
		}
		s.logger.Debug("session closed", interfaces.F("session", s.ID))
	})
}
