package core

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/globalchat-lobby/internal/handoff"
	"github.com/vovakirdan/globalchat-lobby/internal/proto"
	"github.com/vovakirdan/globalchat-lobby/internal/utils"
)

// Emitter sends a named event to the server. Delivery is fire-and-forget.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any) error
}

// HandoffWriter records join context for the chat page.
type HandoffWriter interface {
	WriteHandoff(ctx context.Context, h handoff.Handoff) error
}

// RequestKind names an operation with a server acknowledgment.
type RequestKind int

const (
	RequestCreateRoom RequestKind = iota
	RequestSetLanguage
	RequestJoinRoom
)

// String returns the string representation of a RequestKind.
func (k RequestKind) String() string {
	switch k {
	case RequestCreateRoom:
		return "create_room"
	case RequestSetLanguage:
		return "set_language"
	case RequestJoinRoom:
		return "join_room"
	default:
		return "unknown"
	}
}

type outstandingRequest struct {
	id      string
	sentAt  time.Time
	attempt uint64
}

// Settings tunes a Negotiator. Zero values are usable.
type Settings struct {
	// ChatPath prefixes the room id in navigation targets.
	ChatPath string
	// AckTimeout fails a request whose acknowledgment takes longer. Zero waits forever.
	AckTimeout      time.Duration
	DefaultMaxUsers string
	Now             func() time.Time
	NewID           func() string
}

// Negotiator is the lobby's join state machine. It is not safe for
// concurrent use; Loop serializes every input onto one goroutine.
type Negotiator struct {
	emitter  Emitter
	notifier Notifier
	handoff  HandoffWriter
	log      *zerolog.Logger
	settings Settings

	state     State
	session   ClientSession
	pending   *PendingJoin
	selection Language

	// password typed into the create form, used once room_created arrives
	createPassword string
	outstanding    map[RequestKind]outstandingRequest
	// bumped each time the user starts a new join or create
	attempt uint64
}

// NewNegotiator builds an idle negotiator.
func NewNegotiator(emitter Emitter, notifier Notifier, hw HandoffWriter, logger *zerolog.Logger, settings Settings) *Negotiator {
	if settings.ChatPath == "" {
		settings.ChatPath = "/chat/"
	}
	if settings.DefaultMaxUsers == "" {
		settings.DefaultMaxUsers = "50"
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.NewID == nil {
		settings.NewID = utils.NewID
	}
	return &Negotiator{
		emitter:     emitter,
		notifier:    notifier,
		handoff:     hw,
		log:         logger,
		settings:    settings,
		state:       StateIdle,
		outstanding: make(map[RequestKind]outstandingRequest),
	}
}

// State returns the current state.
func (n *Negotiator) State() State {
	return n.state
}

// Session returns a copy of the client session.
func (n *Negotiator) Session() ClientSession {
	return n.session
}

// Pending returns a copy of the pending join, if any.
func (n *Negotiator) Pending() (PendingJoin, bool) {
	if n.pending == nil {
		return PendingJoin{}, false
	}
	return *n.pending, true
}

// Selection returns the highlighted, unconfirmed language.
func (n *Negotiator) Selection() Language {
	return n.selection
}

// Outstanding reports whether a request of the given kind awaits an answer.
func (n *Negotiator) Outstanding(kind RequestKind) bool {
	_, ok := n.outstanding[kind]
	return ok
}

// ---- user side ----

// SelectRoom starts a join for room, abandoning any previous attempt.
func (n *Negotiator) SelectRoom(ctx context.Context, room RoomSummary) error {
	// a join still in flight for another room is abandoned, its answer dropped
	delete(n.outstanding, RequestJoinRoom)
	n.attempt++
	n.pending = &PendingJoin{RoomID: room.ID}
	n.selection = ""
	n.log.Debug().Str("room_id", room.ID).Bool("has_password", room.HasPassword).Msg("room selected")

	if room.HasPassword {
		n.setState(StateAwaitingPassword)
		n.notify(Notice{Kind: NoticePasswordPrompt, RoomID: room.ID})
		return nil
	}
	return n.proceed(ctx)
}

// SubmitPassword answers the password prompt for the pending room.
func (n *Negotiator) SubmitPassword(ctx context.Context, password string) error {
	if n.state != StateAwaitingPassword || n.pending == nil {
		return ErrNoPendingJoin
	}
	n.pending.Password = password
	n.notify(Notice{Kind: NoticePromptClosed, RoomID: n.pending.RoomID})
	return n.proceed(ctx)
}

// CancelPassword drops the pending join along with the prompt.
func (n *Negotiator) CancelPassword() {
	if n.state != StateAwaitingPassword {
		return
	}
	n.pending = nil
	n.setState(StateIdle)
	n.notify(Notice{Kind: NoticePromptClosed})
}

// HighlightLanguage marks lang in the open language prompt.
func (n *Negotiator) HighlightLanguage(lang Language) error {
	if n.state != StateAwaitingLanguage {
		return ErrNoLanguagePrompt
	}
	if !lang.Valid() {
		return ErrUnknownLanguage
	}
	n.selection = lang
	return nil
}

// ConfirmLanguage sends the highlighted language. The prompt stays open
// until the server acknowledges.
func (n *Negotiator) ConfirmLanguage(ctx context.Context) error {
	if n.state != StateAwaitingLanguage {
		return ErrNoLanguagePrompt
	}
	if n.selection == "" {
		return ErrNoLanguageSelected
	}
	id := n.track(RequestSetLanguage)
	payload := proto.SetLanguageData{Language: string(n.selection), RequestID: id}
	if err := n.emitter.Emit(ctx, proto.EventSetLanguage, payload); err != nil {
		delete(n.outstanding, RequestSetLanguage)
		return n.fail(NewTransportError(err), StateIdle)
	}
	n.log.Debug().Str("language", string(n.selection)).Str("request_id", id).Msg("set_language sent")
	return nil
}

// CancelLanguage dismisses the language prompt and abandons the join.
func (n *Negotiator) CancelLanguage() {
	if n.state != StateAwaitingLanguage {
		return
	}
	n.pending = nil
	n.selection = ""
	n.setState(StateIdle)
	n.notify(Notice{Kind: NoticePromptClosed})
}

// CreateRoom validates form locally and asks the server to create the room.
func (n *Negotiator) CreateRoom(ctx context.Context, form CreateRoomForm) error {
	normalized, err := form.Normalize(n.settings.DefaultMaxUsers)
	if err != nil {
		cerr, _ := err.(*CoreError)
		n.notify(Notice{Kind: NoticeAlert, Message: cerr.Message, Error: cerr})
		return cerr
	}

	n.attempt++
	id := n.track(RequestCreateRoom)
	n.createPassword = normalized.Password
	payload := proto.CreateRoomData{
		Title:     normalized.Title,
		Password:  normalized.Password,
		MaxUsers:  normalized.MaxUsers,
		RequestID: id,
	}
	if err := n.emitter.Emit(ctx, proto.EventCreateRoom, payload); err != nil {
		delete(n.outstanding, RequestCreateRoom)
		return n.fail(NewTransportError(err), StateIdle)
	}
	n.log.Debug().Str("title", normalized.Title).Str("request_id", id).Msg("create_room sent")
	return nil
}

// Expire fails every request older than the ack timeout. It reports whether
// anything expired. Without a timeout it never does.
func (n *Negotiator) Expire(now time.Time) bool {
	if n.settings.AckTimeout <= 0 {
		return false
	}
	expired := false
	for _, kind := range []RequestKind{RequestCreateRoom, RequestSetLanguage, RequestJoinRoom} {
		req, ok := n.outstanding[kind]
		if !ok || now.Sub(req.sentAt) < n.settings.AckTimeout {
			continue
		}
		delete(n.outstanding, kind)
		expired = true
		n.log.Warn().Str("request", kind.String()).Str("request_id", req.id).Msg("request timed out")

		switch kind {
		case RequestCreateRoom:
			n.createPassword = ""
			n.failFor(req, coreError(ErrCodeCreateRoomFailed, "Failed to create room: timed out"), StateIdle)
		case RequestSetLanguage:
			n.failFor(req, coreError(ErrCodeLanguageSetFailed, "Language setting failed: timed out"), StateIdle)
		case RequestJoinRoom:
			_ = n.fail(coreError(ErrCodeJoinFailed, "Failed to join room: timed out"), StateFailed)
		}
	}
	return expired
}

// ---- server side ----

// HandleInbound applies one server event. Duplicate or stale responses are no-ops.
func (n *Negotiator) HandleInbound(ctx context.Context, msg proto.Message) error {
	switch msg.Event {
	case proto.EventConnected:
		return n.onConnected(msg)
	case proto.EventCreateRoomError:
		return n.onCreateRoomError(msg)
	case proto.EventRoomCreated:
		return n.onRoomCreated(ctx, msg)
	case proto.EventLanguageRequired:
		return n.onLanguageRequired(msg)
	case proto.EventLanguageSet:
		return n.onLanguageSet(ctx, msg)
	case proto.EventJoinRoomError:
		return n.onJoinRoomError(msg)
	case proto.EventRoomJoined:
		return n.onRoomJoined(ctx, msg)
	default:
		n.log.Debug().Str("event", msg.Event).Msg("ignoring event")
		return nil
	}
}

func (n *Negotiator) onConnected(msg proto.Message) error {
	var data proto.ConnectedData
	if err := msg.Decode(&data); err != nil {
		n.log.Warn().Err(err).Msg("bad connected payload")
		return err
	}

	n.session = ClientSession{}
	if data.User != nil {
		n.session.Nickname = data.User.Nickname
		if data.User.Language != "" {
			lang, err := ParseLanguage(data.User.Language)
			if err != nil {
				n.log.Warn().Err(err).Msg("server reported unsupported language")
			} else {
				n.session.Language = lang
			}
		}
	}
	n.notify(Notice{Kind: NoticeSessionReady, Language: n.session.Language, Message: n.session.Nickname})
	return nil
}

func (n *Negotiator) onCreateRoomError(msg proto.Message) error {
	var data proto.ErrorData
	decodeErr := msg.Decode(&data)
	req, ok := n.settle(RequestCreateRoom, data.RequestID)
	if !ok {
		n.log.Debug().Msg("create_room_error without outstanding create")
		return nil
	}
	n.createPassword = ""
	text := "Failed to create room"
	if data.Message != "" {
		text = data.Message
	}
	n.failFor(req, coreErrorWith(ErrCodeCreateRoomFailed, text, decodeErr), StateIdle)
	return nil
}

func (n *Negotiator) onRoomCreated(ctx context.Context, msg proto.Message) error {
	var data proto.RoomCreatedData
	decodeErr := msg.Decode(&data)
	req, ok := n.settle(RequestCreateRoom, data.RequestID)
	if !ok {
		n.log.Debug().Str("room_id", data.RoomID).Msg("room_created without outstanding create")
		return nil
	}
	password := n.createPassword
	n.createPassword = ""

	if decodeErr != nil || data.RoomID == "" {
		n.failFor(req, coreErrorWith(ErrCodeCreateRoomFailed, "Room created, but no room_id returned.", decodeErr), StateIdle)
		return nil
	}

	n.log.Info().Str("room_id", data.RoomID).Str("title", data.RoomTitle).Msg("room created")
	if req.attempt != n.attempt {
		// the user picked another room meanwhile; keep that selection
		return nil
	}
	n.pending = &PendingJoin{RoomID: data.RoomID, Password: password}
	n.selection = ""
	return n.proceed(ctx)
}

func (n *Negotiator) onLanguageRequired(msg proto.Message) error {
	var data proto.LanguageRequiredData
	_ = msg.Decode(&data)

	// The demand answers an outstanding join; it is re-sent once the language is set.
	if req, ok := n.outstanding[RequestJoinRoom]; ok && (data.RequestID == "" || data.RequestID == req.id) {
		delete(n.outstanding, RequestJoinRoom)
	}
	n.log.Info().Str("state", n.state.String()).Msg("server requires a language")
	n.openLanguagePrompt()
	return nil
}

func (n *Negotiator) onLanguageSet(ctx context.Context, msg proto.Message) error {
	var data proto.LanguageSetData
	decodeErr := msg.Decode(&data)
	req, ok := n.settle(RequestSetLanguage, data.RequestID)
	if !ok {
		n.log.Debug().Msg("language_set without outstanding request")
		return nil
	}

	if decodeErr != nil || !data.Success {
		reason := data.Message
		if reason == "" {
			reason = "Unknown error"
		}
		n.failFor(req, coreErrorWith(ErrCodeLanguageSetFailed, "Language setting failed: "+reason, decodeErr), StateIdle)
		return nil
	}

	lang, err := ParseLanguage(data.Language)
	if err != nil {
		// the server accepted something; trust what was confirmed locally
		lang = n.selection
	}
	if !lang.Valid() {
		n.failFor(req, coreErrorWith(ErrCodeLanguageSetFailed, "Language setting failed: unsupported language", err), StateIdle)
		return nil
	}

	n.session.Language = lang
	n.selection = ""
	n.log.Info().Str("language", lang.Code()).Msg("language confirmed")

	if n.state != StateAwaitingLanguage {
		// prompt was cancelled, or another room took over, while the request was in flight
		return nil
	}
	if n.pending == nil {
		n.setState(StateIdle)
		n.notify(Notice{Kind: NoticePromptClosed, Language: lang})
		return nil
	}
	n.notify(Notice{Kind: NoticePromptClosed, RoomID: n.pending.RoomID, Language: lang})
	return n.requestJoin(ctx)
}

func (n *Negotiator) onJoinRoomError(msg proto.Message) error {
	var data proto.ErrorData
	decodeErr := msg.Decode(&data)
	if _, ok := n.settle(RequestJoinRoom, data.RequestID); !ok {
		n.log.Debug().Str("state", n.state.String()).Msg("join_room_error without outstanding join")
		return nil
	}
	reason := data.Message
	if reason == "" {
		reason = "Unknown error"
	}
	_ = n.fail(coreErrorWith(ErrCodeJoinFailed, "Failed to join room: "+reason, decodeErr), StateFailed)
	return nil
}

func (n *Negotiator) onRoomJoined(ctx context.Context, msg proto.Message) error {
	var data proto.RoomJoinedData
	decodeErr := msg.Decode(&data)
	if _, ok := n.settle(RequestJoinRoom, data.RequestID); !ok {
		n.log.Debug().Msg("room_joined without outstanding join")
		return nil
	}
	if decodeErr != nil || !data.Success {
		_ = n.fail(coreErrorWith(ErrCodeJoinFailed, "Failed to join room: Unknown error", decodeErr), StateFailed)
		return nil
	}

	roomID := ""
	if data.RoomInfo != nil {
		roomID = data.RoomInfo.ID
	}
	password := ""
	if n.pending != nil {
		if roomID == "" {
			roomID = n.pending.RoomID
		}
		password = n.pending.Password
	}
	if roomID == "" {
		_ = n.fail(coreError(ErrCodeJoinFailed, "Failed to join room: no room id"), StateFailed)
		return nil
	}

	h := handoff.Handoff{
		RoomID:   roomID,
		Password: password,
		Language: n.session.Language.Code(),
	}
	if err := n.handoff.WriteHandoff(ctx, h); err != nil {
		n.log.Error().Err(err).Str("room_id", roomID).Msg("handoff write failed")
		_ = n.fail(coreErrorWith(ErrCodeHandoffFailed, "Joined room, but the session could not be saved.", err), StateFailed)
		return nil
	}

	n.pending = nil
	n.selection = ""
	n.setState(StateJoined)
	n.log.Info().Str("room_id", roomID).Msg("room joined")
	n.notify(Notice{
		Kind:     NoticeNavigate,
		RoomID:   roomID,
		Path:     n.settings.ChatPath + url.PathEscape(roomID),
		Language: n.session.Language,
	})
	return nil
}

// ---- transitions ----

// proceed moves a pending join past the password step: language first if
// unknown, otherwise straight to the join request.
func (n *Negotiator) proceed(ctx context.Context) error {
	if !n.session.HasLanguage() {
		n.openLanguagePrompt()
		return nil
	}
	return n.requestJoin(ctx)
}

func (n *Negotiator) openLanguagePrompt() {
	n.selection = ""
	n.setState(StateAwaitingLanguage)
	roomID := ""
	if n.pending != nil {
		roomID = n.pending.RoomID
	}
	n.notify(Notice{Kind: NoticeLanguagePrompt, RoomID: roomID})
}

func (n *Negotiator) requestJoin(ctx context.Context) error {
	if n.pending == nil {
		n.setState(StateIdle)
		return ErrNoPendingJoin
	}
	if !n.session.HasLanguage() {
		n.openLanguagePrompt()
		return nil
	}

	id := n.track(RequestJoinRoom)
	payload := proto.JoinRoomData{
		RoomID:    n.pending.RoomID,
		Password:  n.pending.Password,
		RequestID: id,
	}
	if err := n.emitter.Emit(ctx, proto.EventJoinRoomRequest, payload); err != nil {
		delete(n.outstanding, RequestJoinRoom)
		return n.fail(NewTransportError(err), StateIdle)
	}
	n.setState(StateJoinRequested)
	n.log.Debug().Str("room_id", payload.RoomID).Str("request_id", id).Msg("join_room_request sent")
	return nil
}

// fail alerts the user and resets so nothing from this attempt leaks into the next.
func (n *Negotiator) fail(cerr *CoreError, next State) error {
	n.pending = nil
	n.selection = ""
	n.setState(next)
	n.log.Warn().Str("code", cerr.Code).Str("state", next.String()).Msg(cerr.Message)
	n.notify(Notice{Kind: NoticeAlert, Message: cerr.Message, Error: cerr})
	return cerr
}

// failFor fails like fail when req was issued for the current attempt. A
// failure that outlived its attempt only alerts; the newer selection stays.
func (n *Negotiator) failFor(req outstandingRequest, cerr *CoreError, next State) {
	if req.attempt == n.attempt {
		_ = n.fail(cerr, next)
		return
	}
	n.log.Warn().Str("code", cerr.Code).Str("state", n.state.String()).Str("request_id", req.id).Msg(cerr.Message)
	n.notify(Notice{Kind: NoticeAlert, Message: cerr.Message, Error: cerr})
}

func (n *Negotiator) track(kind RequestKind) string {
	id := n.settings.NewID()
	n.outstanding[kind] = outstandingRequest{id: id, sentAt: n.settings.Now(), attempt: n.attempt}
	return id
}

// settle consumes the outstanding request of kind. A response echoing a
// different request id is stale and leaves the request outstanding.
func (n *Negotiator) settle(kind RequestKind, requestID string) (outstandingRequest, bool) {
	req, ok := n.outstanding[kind]
	if !ok {
		return outstandingRequest{}, false
	}
	if requestID != "" && requestID != req.id {
		n.log.Debug().Str("request", kind.String()).Str("request_id", requestID).Msg("dropping stale response")
		return outstandingRequest{}, false
	}
	delete(n.outstanding, kind)
	return req, true
}

func (n *Negotiator) setState(s State) {
	if n.state != s {
		n.log.Debug().Str("from", n.state.String()).Str("to", s.String()).Msg("state change")
	}
	n.state = s
}

func (n *Negotiator) notify(notice Notice) {
	notice.State = n.state
	if n.notifier != nil {
		n.notifier.Notify(notice)
	}
}

func coreErrorWith(code, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: err}
}
