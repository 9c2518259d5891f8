package core

import "errors"

// Error codes for lobby failures.
const (
	ErrCodeValidation        = "validation_error"
	ErrCodeCreateRoomFailed  = "create_room_failed"
	ErrCodeJoinFailed        = "join_failed"
	ErrCodeLanguageSetFailed = "language_set_failed"
	ErrCodeCatalogLoadFailed = "catalog_load_failed"
	ErrCodeHandoffFailed     = "handoff_failed"
	ErrCodeTransportFailed   = "transport_failed"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrCreateRoomFailed  = errors.New("create room failed")
	ErrJoinFailed        = errors.New("join failed")
	ErrLanguageSetFailed = errors.New("language set failed")
	ErrCatalogLoadFailed = errors.New("catalog load failed")
	ErrHandoffFailed     = errors.New("handoff failed")
	ErrTransportFailed   = errors.New("transport failed")

	ErrUnknownLanguage    = errors.New("unknown language")
	ErrNoPendingJoin      = errors.New("no pending join")
	ErrNoLanguageSelected = errors.New("no language selected")
	ErrNoLanguagePrompt   = errors.New("no language prompt open")
	ErrChannelClosed      = errors.New("messaging channel closed")
)

var codeSentinels = map[string]error{
	ErrCodeValidation:        ErrValidation,
	ErrCodeCreateRoomFailed:  ErrCreateRoomFailed,
	ErrCodeJoinFailed:        ErrJoinFailed,
	ErrCodeLanguageSetFailed: ErrLanguageSetFailed,
	ErrCodeCatalogLoadFailed: ErrCatalogLoadFailed,
	ErrCodeHandoffFailed:     ErrHandoffFailed,
	ErrCodeTransportFailed:   ErrTransportFailed,
}

// CoreError wraps a code, a human-readable message and an optional cause.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error code.
func (e *CoreError) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// NewCatalogError reports a failed catalog fetch.
func NewCatalogError(err error) *CoreError {
	return &CoreError{Code: ErrCodeCatalogLoadFailed, Message: "Failed to load rooms.", Err: err}
}

// NewTransportError reports that the messaging channel could not be used.
func NewTransportError(err error) *CoreError {
	return &CoreError{Code: ErrCodeTransportFailed, Message: "Failed to reach the server.", Err: err}
}
