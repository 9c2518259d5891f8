package core

// State is the negotiator's position in the join sequence.
type State int

const (
	// StateIdle means no join is in progress.
	StateIdle State = iota
	// StateAwaitingPassword means the password prompt is open for the pending room.
	StateAwaitingPassword
	// StateAwaitingLanguage means the language prompt is open, or its confirmation is unacknowledged.
	StateAwaitingLanguage
	// StateJoinRequested means join_room_request was sent and is unanswered.
	StateJoinRequested
	// StateJoined means the server accepted the join and the handoff was written.
	StateJoined
	// StateFailed means the last join was refused; a new selection starts over.
	StateFailed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPassword:
		return "awaiting_password"
	case StateAwaitingLanguage:
		return "awaiting_language"
	case StateJoinRequested:
		return "join_requested"
	case StateJoined:
		return "joined"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether the negotiator is waiting on neither the user nor the server.
func (s State) Settled() bool {
	return s == StateIdle || s == StateJoined || s == StateFailed
}
