package sdk

import (
	"log/slog"
	"sort"
	"sync"
)

// Simulator is an in-process stand-in for the native SDK. It enforces the
// same lifecycle rules: the handshake comes first, SetGame succeeds at most
// once per process, and states and events need a game.
type Simulator struct {
	log *slog.Logger

	mu         sync.Mutex
	handshakes int
	lastError  int
	control    bool
	game       string
	states     map[string]struct{}
	events     []string
}

// Compile-time verification that Simulator implements SDK.
var _ SDK = (*Simulator)(nil)

// NewSimulator returns a fresh simulator, as if the library had just been
// loaded into a new process.
func NewSimulator(log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Simulator{
		log:    log.With("component", "sdk_simulator"),
		states: make(map[string]struct{}),
	}
}

func (s *Simulator) PerformProtocolHandshake() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handshakes++
	s.lastError = ErrorSuccess

	if s.handshakes > 1 {
		s.log.Warn("Protocol handshake repeated in one process", "handshakes", s.handshakes)
	}
}

// Handshakes returns how many times the handshake has run.
func (s *Simulator) Handshakes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.handshakes
}

func (s *Simulator) GetLastError() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastError
}

func (s *Simulator) RequestControl() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready() {
		return false
	}

	s.control = true

	return s.succeed()
}

func (s *Simulator) ReleaseControl() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready() {
		return false
	}

	if !s.control {
		return s.fail(ErrorNoControl)
	}

	s.control = false

	return s.succeed()
}

func (s *Simulator) SetGame(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready() {
		return false
	}

	if name == "" {
		return s.fail(ErrorInvalidArguments)
	}

	if s.game != "" {
		s.log.Debug("SetGame rejected, game already set", "game", s.game, "requested", name)

		return s.fail(ErrorGameAlreadySet)
	}

	s.game = name

	return s.succeed()
}

// Game returns the game set in this process, if any.
func (s *Simulator) Game() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.game
}

func (s *Simulator) SetState(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gameReady(name) {
		return false
	}

	s.states[name] = struct{}{}

	return s.succeed()
}

func (s *Simulator) SetEvent(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gameReady(name) {
		return false
	}

	s.events = append(s.events, name)

	return s.succeed()
}

func (s *Simulator) ClearState(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gameReady(name) {
		return false
	}

	delete(s.states, name)

	return s.succeed()
}

func (s *Simulator) ClearAllStates() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gameReady("*") {
		return false
	}

	clear(s.states)

	return s.succeed()
}

func (s *Simulator) ClearAllEvents() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gameReady("*") {
		return false
	}

	s.events = nil

	return s.succeed()
}

// States returns the active states in sorted order.
func (s *Simulator) States() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.states))
	for name := range s.states {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// ready checks the handshake precondition. Caller must hold s.mu.
func (s *Simulator) ready() bool {
	if s.handshakes == 0 {
		s.lastError = ErrorHandshakeMissing

		return false
	}

	return true
}

// gameReady checks the preconditions of state and event operations.
// Caller must hold s.mu.
func (s *Simulator) gameReady(name string) bool {
	if !s.ready() {
		return false
	}

	if s.game == "" {
		return s.fail(ErrorGameNotSet)
	}

	if name == "" {
		return s.fail(ErrorInvalidArguments)
	}

	return true
}

func (s *Simulator) succeed() bool {
	s.lastError = ErrorSuccess

	return true
}

func (s *Simulator) fail(code int) bool {
	s.lastError = code

	return false
}
