// Package errs provides the unified error type used across the registry tools.
//
// Every subsystem (registry, codegen, drift, gateway, migrate, …) wraps its
// native errors into *errs.Error before returning them to callers. The command
// layer inspects the kind once, at the process boundary, to pick an exit code.
//
// Usage:
//
//	// In a library, wrap native errors:
//	return errs.Wrap(errs.ErrKindRegistryLoad, "parse registry", yamlErr)
//
//	// In a command, map to the process outcome:
//	os.Exit(errs.ExitCode(err))
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no object, no file
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL or storage operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindRegistryLoad             // registry absent, unparseable or invalid
	ErrKindGeneration               // registry value the generator cannot render
	ErrKindDrift                    // generated files differ from the registry
	ErrKindSchemaValidation         // live schema does not satisfy the registry
	ErrKindGateway                  // gateway transport or protocol failure
	ErrKindMigration                // a migration file failed to execute
	ErrKindConfig                   // startup precondition (env, flags) not met
	ErrKindLint                     // registry metadata is incomplete
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindRegistryLoad:
		return "registry_load"
	case ErrKindGeneration:
		return "generation"
	case ErrKindDrift:
		return "drift"
	case ErrKindSchemaValidation:
		return "schema_validation"
	case ErrKindGateway:
		return "gateway"
	case ErrKindMigration:
		return "migration"
	case ErrKindConfig:
		return "config"
	case ErrKindLint:
		return "lint"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// KindOf extracts the ErrKind of the outermost *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// IsNotFound reports whether err represents a missing row, object or file.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsRegistryLoad reports whether err came from loading or validating the registry.
func IsRegistryLoad(err error) bool {
	return KindOf(err) == ErrKindRegistryLoad
}

// IsGeneration reports whether err came from rendering the registry.
func IsGeneration(err error) bool {
	return KindOf(err) == ErrKindGeneration
}

// IsGateway reports whether err is a gateway transport or protocol failure.
func IsGateway(err error) bool {
	return KindOf(err) == ErrKindGateway
}

// IsConfig reports whether err is a missing or invalid startup setting.
func IsConfig(err error) bool {
	return KindOf(err) == ErrKindConfig
}

// --- Process outcome ---

// Process exit codes shared by every tool.
const (
	ExitOK             = 0 // success
	ExitDivergence     = 1 // drift, validation, lint, migration or gateway failure
	ExitInfrastructure = 2 // registry load, generation or configuration failure
)

// ExitCode maps err to the process exit code. Load, generation and
// configuration problems are kept apart from content mismatches so CI can
// tell "fix your registry" from "fix your tooling".
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case ErrKindDrift, ErrKindSchemaValidation, ErrKindMigration,
		ErrKindGateway, ErrKindTimeout, ErrKindPermissionDenied,
		ErrKindConnectionFailed, ErrKindLint:
		return ExitDivergence
	default:
		return ExitInfrastructure
	}
}
