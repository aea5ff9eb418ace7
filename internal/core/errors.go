package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotInRoom  = "not_in_room"
	ErrCodeWrongRoom  = "wrong_room"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotInRoom  = errors.New("not in room")
	ErrWrongRoom  = errors.New("wrong room")
)

// CoreError wraps a code and human-readable message.
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

func coreError(code, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: err}
}
