package main

import (
	"errors"
	"os"

	"github.com/alnah/go-marp"
	"github.com/alnah/go-marp/internal/cache"
	"github.com/alnah/go-marp/internal/config"
	"github.com/alnah/go-marp/internal/diagram"
)

// Exit codes for the marp-go CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Every deck rendered
	ExitGeneral  = 1 // Some decks failed, or an unexpected error
	ExitUsage    = 2 // Invalid flags, config, or validation
	ExitIO       = 3 // File not found, permission denied, write failures
	ExitRenderer = 4 // marp executable missing
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Renderer errors (exit 4)
	if errors.Is(err, marp.ErrBinaryNotFound) {
		return ExitRenderer
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, errUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, marp.ErrInvalidConfig) ||
		errors.Is(err, diagram.ErrUnknownStrategy) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, ErrUnsupportedShell) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrNoDecks) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, cache.ErrOpen) {
		return ExitIO
	}

	return ExitGeneral
}
