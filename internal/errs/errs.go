// Package errs defines the tagged error taxonomy shared by every DocBro
// component. The core never panics or throws through a boundary; it returns
// values wrapping one of these kinds, and the CLI / MCP boundaries translate
// a Kind into an exit code or an HTTP status without re-inspecting messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a DocBro error, per spec §7.
type Kind string

const (
	InvalidInput           Kind = "invalid_input"
	NotFound                Kind = "not_found"
	NameTaken               Kind = "name_taken"
	Protected               Kind = "protected"
	ProhibitedOp            Kind = "operation_prohibited"
	Busy                    Kind = "busy"
	EmbedTimeout            Kind = "embed_timeout"
	EmbedBackendUnavailable Kind = "embed_backend_unavailable"
	VectorBackendUnavailable Kind = "vector_backend_unavailable"
	VectorDimError          Kind = "vector_dim_error"
	CrawlHTTPError          Kind = "crawl_http_error"
	SemanticChunkTimeout    Kind = "semantic_chunk_timeout"
	WizardInvalid           Kind = "wizard_invalid"
	Cancelled               Kind = "cancelled"
	ForbiddenNetwork        Kind = "forbidden_network"
	ConfigError             Kind = "config_error"
	Internal                Kind = "internal"
)

// Error is the tagged value every DocBro component returns on failure.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an underlying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithSuggestion returns a copy of e with Suggestion set, for the
// "suggested_actions"-style hints spec §7 requires on surfaced errors.
func (e *Error) WithSuggestion(s string) *Error {
	clone := *e
	clone.Suggestion = s
	return &clone
}

// As extracts the Kind of err if it (or something it wraps) is *Error.
func As(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := As(err)
	return ok && k == kind
}

// ExitCode maps a Kind to the CLI exit code defined in spec §6/§7.
func ExitCode(kind Kind) int {
	switch kind {
	case InvalidInput:
		return 2
	case NameTaken:
		return 2
	case NotFound:
		return 3
	case Protected, ProhibitedOp:
		return 4
	case EmbedTimeout, EmbedBackendUnavailable, VectorBackendUnavailable:
		return 5
	case VectorDimError, Internal, ConfigError:
		return 1
	case Busy:
		return 1
	default:
		return 1
	}
}

// ExitCodeForErr extracts the Kind from err (defaulting to Internal) and
// maps it to a CLI exit code.
func ExitCodeForErr(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := As(err)
	if !ok {
		return 1
	}
	return ExitCode(kind)
}

// HTTPStatus maps a Kind to the MCP HTTP status defined in spec §6/§7.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidInput, NameTaken, WizardInvalid:
		return 400
	case NotFound:
		return 404
	case Protected, ProhibitedOp, ForbiddenNetwork:
		return 403
	case Busy:
		return 409
	case EmbedTimeout, EmbedBackendUnavailable, VectorBackendUnavailable:
		return 503
	case VectorDimError, Internal, ConfigError:
		return 500
	default:
		return 500
	}
}

// Code returns the stable wire code used in the MCP envelope's error.code
// field (spec §6).
func Code(kind Kind) string {
	return string(kind)
}
