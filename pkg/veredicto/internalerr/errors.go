package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrSyntax             = errors.New("condition syntax error")
	ErrUnknownAttribute   = errors.New("unknown attribute")
	ErrUnknownFunction    = errors.New("unknown function")
	ErrActionNotPermitted = errors.New("action not permitted")
	ErrEvaluation         = errors.New("evaluation error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicate          = errors.New("duplicate entry")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrInvalidConfig      = errors.New("invalid configuration")
)
