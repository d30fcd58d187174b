package config

// State is the supervisor's lifecycle state.
type State string

const (
	// StateStopped means Start has not been called.
	StateStopped State = "stopped"
	// StateStarting means a worker is being spawned or is connecting.
	StateStarting State = "starting"
	// StateReady means a worker is connected and accepting calls.
	StateReady State = "ready"
	// StateResetting means the current worker is being torn down.
	StateResetting State = "resetting"
	// StateClosed means the supervisor has shut down.
	StateClosed State = "closed"
)
