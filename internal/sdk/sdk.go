package sdk

// SDK is the flat function surface of the constrained lighting SDK.
//
// Implementations wrap the native library. At least one operation
// (SetGame) may succeed only once per process, which is why the SDK is only
// ever driven from a disposable worker process.
type SDK interface {
	// PerformProtocolHandshake initializes the SDK. It must be called once,
	// before any other operation.
	PerformProtocolHandshake()

	// GetLastError returns the error code of the last failed operation.
	GetLastError() int

	RequestControl() bool
	ReleaseControl() bool

	// SetGame selects the game profile. Only the first call per process can
	// succeed.
	SetGame(name string) bool

	SetState(name string) bool
	SetEvent(name string) bool
	ClearState(name string) bool
	ClearAllStates() bool
	ClearAllEvents() bool
}

// Error codes reported by GetLastError.
const (
	ErrorSuccess           = 0
	ErrorServerNotFound    = 1
	ErrorNoControl         = 2
	ErrorHandshakeMissing  = 3
	ErrorIncompatibleProto = 4
	ErrorInvalidArguments  = 5
	ErrorGameNotSet        = 6
	ErrorGameAlreadySet    = 7
)
