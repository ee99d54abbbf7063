// Package apperr defines the single error taxonomy shared by the HTTP API
// and the WebSocket dispatcher. Every handler-visible failure is an *Error
// carrying a stable code, an HTTP-equivalent status, and optional details;
// internal causes are wrapped but never exposed to the caller.
package apperr

import (
	"errors"
	"net/http"
)

// Item is one entry of the wire-level "errors" array.
type Item struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Error is the application's single error type. Status mirrors the HTTP
// status this error maps to; the identical mapping is used to classify
// WebSocket error events.
type Error struct {
	Status  int
	Code    string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.cause.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.cause }

// Items renders the error as the wire-level envelope body.
func (e *Error) Items() []Item {
	return []Item{{Code: e.Code, Details: e.Details}}
}

func newErr(status int, code string) *Error {
	return &Error{Status: status, Code: code}
}

// Stable error codes, matching the wire-level strings exactly.
const (
	CodeInternalServerError  = "internal_server_error"
	CodeInvalidRequestFormat = "invalid_request_format"
	CodeUserHasNoKeys        = "user_has_no_keys"
	CodeFileLimitExceeded    = "file_limit_exceeded"
	CodeValidation           = "validation_failed"

	CodeWrongCredentials = "wrong_credentials"
	CodeSessionExpired   = "session_expired"
	CodeInvalidToken     = "invalid_token"

	CodeNotRoomMember       = "not_room_member"
	CodeTargetNotRoomMember = "target_not_room_member"
	CodeNotRoomAdmin        = "not_room_admin"
	CodeNotMessageAuthor    = "not_message_author"

	CodeUserNotFound        = "user_not_found"
	CodeRoomNotFound        = "room_not_found"
	CodeInvitationNotFound  = "invitation_not_found"
	CodeMessageNotFound     = "message_not_found"
	CodeNoPendingInvitation = "no_pending_invitation"
	CodeFileNotFound        = "file_not_found"

	CodeUsernameAlreadyExists   = "username_already_exists"
	CodeAlreadyRoomMember       = "already_room_member"
	CodeTargetAlreadyRoomMember = "target_already_room_member"
	CodeAlreadyInvited          = "already_invited"
)

// Constructors, one per stable code named in the error taxonomy.

func Internal(cause error) *Error {
	e := newErr(http.StatusInternalServerError, CodeInternalServerError)
	e.cause = cause
	return e
}

func InvalidRequestFormat() *Error { return newErr(http.StatusBadRequest, CodeInvalidRequestFormat) }
func UserHasNoKeys() *Error        { return newErr(http.StatusBadRequest, CodeUserHasNoKeys) }
func FileLimitExceeded() *Error    { return newErr(http.StatusBadRequest, CodeFileLimitExceeded) }

func Validation(details any) *Error {
	e := newErr(http.StatusBadRequest, CodeValidation)
	e.Details = details
	return e
}

func WrongCredentials() *Error { return newErr(http.StatusUnauthorized, CodeWrongCredentials) }
func SessionExpired() *Error   { return newErr(http.StatusUnauthorized, CodeSessionExpired) }
func InvalidToken() *Error     { return newErr(http.StatusUnauthorized, CodeInvalidToken) }

func NotRoomMember() *Error       { return newErr(http.StatusForbidden, CodeNotRoomMember) }
func TargetNotRoomMember() *Error { return newErr(http.StatusForbidden, CodeTargetNotRoomMember) }
func NotRoomAdmin() *Error        { return newErr(http.StatusForbidden, CodeNotRoomAdmin) }
func NotMessageAuthor() *Error    { return newErr(http.StatusForbidden, CodeNotMessageAuthor) }

func UserNotFound() *Error        { return newErr(http.StatusNotFound, CodeUserNotFound) }
func RoomNotFound() *Error        { return newErr(http.StatusNotFound, CodeRoomNotFound) }
func InvitationNotFound() *Error  { return newErr(http.StatusNotFound, CodeInvitationNotFound) }
func MessageNotFound() *Error     { return newErr(http.StatusNotFound, CodeMessageNotFound) }
func NoPendingInvitation() *Error { return newErr(http.StatusNotFound, CodeNoPendingInvitation) }
func FileNotFound() *Error        { return newErr(http.StatusNotFound, CodeFileNotFound) }

func UsernameAlreadyExists() *Error {
	return newErr(http.StatusConflict, CodeUsernameAlreadyExists)
}
func AlreadyRoomMember() *Error { return newErr(http.StatusConflict, CodeAlreadyRoomMember) }
func TargetAlreadyRoomMember() *Error {
	return newErr(http.StatusConflict, CodeTargetAlreadyRoomMember)
}
func AlreadyInvited() *Error { return newErr(http.StatusConflict, CodeAlreadyInvited) }

// As extracts an *Error from err, wrapping it as Internal if it is not
// already one of ours. Repository callers should route every unexpected
// driver/storage error through this so nothing but the taxonomy above ever
// reaches a handler boundary.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
