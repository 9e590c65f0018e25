package services

import (
	"errors"
	"fmt"
)

// FormatError means the uploaded file is unparsable or does not match the
// declared task kind. The whole upload is rejected and nothing is persisted.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string { return e.Message }

func formatErrorf(format string, args ...interface{}) *FormatError {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}

// FieldValidationError means one record's field failed a vocabulary or
// format rule. File loaders treat it as fatal for the upload (the file is
// rejected before anything is persisted); the submission engine records it
// on the offending record only.
type FieldValidationError struct {
	Row     int // 1-based file row, 0 when not row-scoped
	Message string
}

func (e *FieldValidationError) Error() string { return e.Message }

func fieldErrorf(row int, format string, args ...interface{}) *FieldValidationError {
	return &FieldValidationError{Row: row, Message: fmt.Sprintf(format, args...)}
}

// AuthorizationError means the caller's authorization grant does not cover
// the profile section being written; the remote call is not attempted.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrRecordNotFound = errors.New("record not found")
	ErrWrongTaskType  = errors.New("operation does not match the task type")
)
