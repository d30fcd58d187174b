package protocol

// Operation names mirrored one-to-one from the SDK's flat function surface.
const (
	OpGetLastError   = "getLastError"
	OpRequestControl = "requestControl"
	OpReleaseControl = "releaseControl"
	OpSetGame        = "setGame"
	OpSetState       = "setState"
	OpSetEvent       = "setEvent"
	OpClearState     = "clearState"
	OpClearAllStates = "clearAllStates"
	OpClearAllEvents = "clearAllEvents"
)

// Operation describes one pass-through SDK call.
type Operation struct {
	Name        string
	Description string
	HasArg      bool
	Returns     Kind
}

var operations = []Operation{
	{Name: OpGetLastError, Description: "Return the SDK's last error code", Returns: KindInt},
	{Name: OpRequestControl, Description: "Request control of the lighting SDK", Returns: KindBool},
	{Name: OpReleaseControl, Description: "Release control of the lighting SDK", Returns: KindBool},
	{Name: OpSetGame, Description: "Set the game profile (once per worker)", HasArg: true, Returns: KindBool},
	{Name: OpSetState, Description: "Set a named state", HasArg: true, Returns: KindBool},
	{Name: OpSetEvent, Description: "Trigger a named event", HasArg: true, Returns: KindBool},
	{Name: OpClearState, Description: "Clear a named state", HasArg: true, Returns: KindBool},
	{Name: OpClearAllStates, Description: "Clear every state", Returns: KindBool},
	{Name: OpClearAllEvents, Description: "Clear every event", Returns: KindBool},
}

var operationsByName = func() map[string]Operation {
	m := make(map[string]Operation, len(operations))
	for _, op := range operations {
		m[op.Name] = op
	}

	return m
}()

// Lookup returns the operation registered under name.
func Lookup(name string) (Operation, bool) {
	op, ok := operationsByName[name]

	return op, ok
}

// Operations returns the operation table in declaration order.
func Operations() []Operation {
	out := make([]Operation, len(operations))
	copy(out, operations)

	return out
}
