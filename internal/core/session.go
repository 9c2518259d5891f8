package core

// ClientSession is what the client knows about the connected user.
// Language is empty until the server reports or acknowledges one.
type ClientSession struct {
	Nickname string
	Language Language
}

// HasLanguage reports whether the user already picked a language.
func (s ClientSession) HasLanguage() bool {
	return s.Language != ""
}

// PendingJoin is the single in-flight attempt to enter a room.
type PendingJoin struct {
	RoomID   string
	Password string
}
