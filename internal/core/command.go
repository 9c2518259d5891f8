package core

// CommandKind describes what the user wants to do.
type CommandKind int

const (
	// CommandSelectRoom starts a join for a catalog room.
	CommandSelectRoom CommandKind = iota
	// CommandSubmitPassword answers the password prompt.
	CommandSubmitPassword
	// CommandCancelPassword dismisses the password prompt.
	CommandCancelPassword
	// CommandHighlightLanguage marks a language without confirming it.
	CommandHighlightLanguage
	// CommandConfirmLanguage sends the highlighted language to the server.
	CommandConfirmLanguage
	// CommandCancelLanguage dismisses the language prompt and abandons the join.
	CommandCancelLanguage
	// CommandCreateRoom validates the form and asks the server to create a room.
	CommandCreateRoom
)

// String returns the string representation of a CommandKind.
func (k CommandKind) String() string {
	switch k {
	case CommandSelectRoom:
		return "select_room"
	case CommandSubmitPassword:
		return "submit_password"
	case CommandCancelPassword:
		return "cancel_password"
	case CommandHighlightLanguage:
		return "highlight_language"
	case CommandConfirmLanguage:
		return "confirm_language"
	case CommandCancelLanguage:
		return "cancel_language"
	case CommandCreateRoom:
		return "create_room"
	default:
		return "unknown"
	}
}

// Command represents an action requested by the user.
type Command struct {
	Kind     CommandKind
	Room     RoomSummary
	Password string
	Language Language
	Form     CreateRoomForm
}
