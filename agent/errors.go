package agent

// These errors are caller errors, surfaced at the agent boundary.

// BadRequest occurs when a caller omits a required command or command
// name.  It is raised before any FSM interaction, so no state change
// can have occurred.
type BadRequest struct {
	Msg string
}

func (e *BadRequest) Error() string {
	return "bad request: " + e.Msg
}

// Conflict occurs when a requested event is not legal in the current
// state.  The FSM's state/event mismatch is caught at the agent
// boundary and re-signaled as a Conflict carrying the original
// diagnostic text.  No state change occurred; the caller may retry
// after a different transition.
type Conflict struct {
	Msg string
}

func (e *Conflict) Error() string {
	return "conflict: " + e.Msg
}

// NotFound occurs when no running agent is registered for a given
// resource id.
type NotFound struct {
	Msg string
}

func (e *NotFound) Error() string {
	return "not found: " + e.Msg
}
