package services

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorUnavailable  ErrorCode = "unavailable"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

func NewInvalidError(msg string) error  { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewUnavailableError(msg string) error {
	return &ServiceError{Code: ErrorUnavailable, Message: msg}
}

func wrapError(code ErrorCode, err error) error {
	return &ServiceError{Code: code, Message: err.Error(), Err: err}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	// ErrNoSelection is returned when Next is requested without a chosen label.
	ErrNoSelection = errors.New("no answer selected")
	// ErrUnknownChoice flags a label that does not belong to the current question.
	ErrUnknownChoice = errors.New("answer is not an option of the current question")
	// ErrBackNotAllowed is returned for Back outside Question(2..10).
	ErrBackNotAllowed = errors.New("back is not available here")
	// ErrProfileLocked is returned when the profile is edited after the questionnaire started.
	ErrProfileLocked = errors.New("profile can only be changed before the questionnaire starts")
	// ErrNotAtQuestion is returned for Next outside a question screen.
	ErrNotAtQuestion = errors.New("no question is being asked")
	// ErrNotAtResult is returned when report artifacts are requested before the end.
	ErrNotAtResult = errors.New("questionnaire is not finished")
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
)

// FieldError names one invalid profile field. Key is a message key for utils.T.
type FieldError struct {
	Field string `json:"field"`
	Key   string `json:"key"`
}

// ValidationError collects every profile problem found in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Key))
	}
	return "invalid profile (" + strings.Join(parts, ", ") + ")"
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
