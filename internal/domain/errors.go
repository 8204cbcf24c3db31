package domain

import "errors"

// Sentinel errors shared across the core. Callers should compare with
// errors.Is; HTTP boundaries (native and qB) map these onto the problem
// taxonomy described in the package doc of apperr.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnsupported   = errors.New("unsupported operation")
	ErrConflict      = errors.New("conflict")
)
