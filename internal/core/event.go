package core

import "context"

// NoticeKind is a notification the negotiator emits to the UI.
type NoticeKind int

const (
	// NoticeAlert carries a user-visible error or warning.
	NoticeAlert NoticeKind = iota
	// NoticePasswordPrompt asks the UI to collect a room password.
	NoticePasswordPrompt
	// NoticeLanguagePrompt asks the UI to collect a language.
	NoticeLanguagePrompt
	// NoticePromptClosed tells the UI the open prompt is gone.
	NoticePromptClosed
	// NoticeNavigate tells the UI to leave the lobby for the chat page.
	NoticeNavigate
	// NoticeSessionReady reports the session seeded by the server on connect.
	NoticeSessionReady
)

// String returns the string representation of a NoticeKind.
func (k NoticeKind) String() string {
	switch k {
	case NoticeAlert:
		return "alert"
	case NoticePasswordPrompt:
		return "password_prompt"
	case NoticeLanguagePrompt:
		return "language_prompt"
	case NoticePromptClosed:
		return "prompt_closed"
	case NoticeNavigate:
		return "navigate"
	case NoticeSessionReady:
		return "session_ready"
	default:
		return "unknown"
	}
}

// Notice describes what the UI should show. State is the negotiator state
// after the transition that produced the notice.
type Notice struct {
	Kind     NoticeKind
	State    State
	RoomID   string
	Path     string
	Message  string
	Language Language
	Error    *CoreError
}

// Notifier receives notices from the negotiator.
type Notifier interface {
	Notify(Notice)
}

// NoticeQueue is a channel-backed Notifier that stops blocking once ctx is done.
type NoticeQueue struct {
	ch   chan Notice
	done <-chan struct{}
}

// NewNoticeQueue builds a queue with the given buffer size.
func NewNoticeQueue(ctx context.Context, size int) *NoticeQueue {
	return &NoticeQueue{
		ch:   make(chan Notice, size),
		done: ctx.Done(),
	}
}

// Notify enqueues n, dropping it if the queue's context is already done.
func (q *NoticeQueue) Notify(n Notice) {
	select {
	case q.ch <- n:
	case <-q.done:
	}
}

// C returns the receive side of the queue.
func (q *NoticeQueue) C() <-chan Notice {
	return q.ch
}
