package syncerrors

import "errors"

// Common errors
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrValidation        = errors.New("validation failed")
	ErrReferential       = errors.New("referenced record does not exist")
	ErrExternal          = errors.New("external service failure")
	ErrFatalBatch        = errors.New("fatal batch error")
)
