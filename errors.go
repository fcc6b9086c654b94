package marp

import (
	"errors"

	"github.com/alnah/go-marp/internal/render"
)

// Setup errors. These are the only failures New returns; per-deck problems
// become error fragments instead.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrBinaryNotFound means no marp executable was found.
	ErrBinaryNotFound = render.ErrBinaryNotFound
)

// Per-deck error kinds, recorded in Document.Err and logs.
var (
	ErrTooManySlides = errors.New("deck exceeds maxSlides")
	ErrInternal      = errors.New("internal error")
)
