package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure along the taxonomy shared by all components.
type ErrorKind string

const (
	// KindValidation marks bad caller input (unsupported format, empty query).
	KindValidation ErrorKind = "validation"
	// KindResource marks session lifecycle conflicts (not found, destroyed,
	// embed in progress).
	KindResource ErrorKind = "resource"
	// KindCollaborator marks a fault raised by an external collaborator
	// (parser, embedder, vector search, LLM provider).
	KindCollaborator ErrorKind = "collaborator"
	// KindProtocol marks malformed messages or unknown receivers.
	KindProtocol ErrorKind = "protocol"
)

// Stable error codes carried inside ERROR payloads and surfaced to callers.
const (
	CodeUnknownReceiver    = "UNKNOWN_RECEIVER"
	CodeMalformedMessage   = "MALFORMED_MESSAGE"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeSessionDestroyed   = "SESSION_DESTROYED"
	CodeEmbedInProgress    = "EMBED_IN_PROGRESS"
	CodeEmptyQuery         = "EMPTY_QUERY"
	CodeMissingFile        = "MISSING_FILE"
	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
	CodeEmptyDocument      = "EMPTY_DOCUMENT"
	CodeParseFailed        = "PARSE_FAILED"
	CodeEmbeddingFailed    = "EMBEDDING_FAILED"
	CodeVectorStoreMissing = "VECTOR_STORE_MISSING"
	CodeProviderError      = "PROVIDER_ERROR"
	CodeInternal           = "INTERNAL"
)

// Error is the typed error used across package boundaries. It pairs a
// taxonomy kind with a stable code so agents can convert faults into ERROR
// messages without losing the original cause.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// Is matches against sentinel errors of the same code, so
// errors.Is(err, ErrSessionDestroyed) works for freshly constructed values.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// NewValidationError constructs a validation failure with a stable code.
func NewValidationError(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// NewResourceError constructs a session/resource lifecycle failure.
func NewResourceError(code, msg string) *Error {
	return &Error{Kind: KindResource, Code: code, Message: msg}
}

// NewProtocolError constructs a bus protocol failure.
func NewProtocolError(code, msg string) *Error {
	return &Error{Kind: KindProtocol, Code: code, Message: msg}
}

// WrapCollaborator converts a collaborator fault into a typed error carrying
// the stable provider-level code.
func WrapCollaborator(code, msg string, err error) *Error {
	return &Error{Kind: KindCollaborator, Code: code, Message: msg, Err: err}
}

// Sentinel errors for the common lifecycle and protocol conditions. They can
// be compared with errors.Is against any *Error carrying the same code.
var (
	ErrUnknownReceiver  = NewProtocolError(CodeUnknownReceiver, "receiver is not a registered agent")
	ErrMalformedMessage = NewProtocolError(CodeMalformedMessage, "message is missing type or payload")
	ErrSessionNotFound  = NewResourceError(CodeSessionNotFound, "session not found")
	ErrSessionDestroyed = NewResourceError(CodeSessionDestroyed, "session has been destroyed")
	ErrEmbedInProgress  = NewResourceError(CodeEmbedInProgress, "ingestion already in progress for this session")
	ErrEmptyQuery       = NewValidationError(CodeEmptyQuery, "query text is empty")
)

// ErrorFromCode reconstructs a typed error from a stable code and reason,
// the inverse of building an ErrorPayload. Unknown codes map to INTERNAL.
func ErrorFromCode(code, reason string) *Error {
	kind := KindCollaborator
	switch code {
	case CodeEmptyQuery, CodeMissingFile, CodeUnsupportedFormat, CodeEmptyDocument:
		kind = KindValidation
	case CodeSessionNotFound, CodeSessionDestroyed, CodeEmbedInProgress:
		kind = KindResource
	case CodeUnknownReceiver, CodeMalformedMessage:
		kind = KindProtocol
	case CodeParseFailed, CodeEmbeddingFailed, CodeVectorStoreMissing, CodeProviderError:
		kind = KindCollaborator
	default:
		code = CodeInternal
		if reason == "" {
			reason = "internal error"
		}
	}
	return &Error{Kind: kind, Code: code, Message: reason}
}

// CodeOf extracts the stable code from any error, falling back to INTERNAL
// for untyped errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// KindOf extracts the taxonomy kind from any error. Untyped errors are
// treated as collaborator faults since those are the only errors allowed to
// originate outside the core.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindCollaborator
}
