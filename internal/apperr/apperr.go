// Package apperr defines the classified failures surfaced to callers of the
// generation pipeline and the media adapters.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	InvalidRequest          Kind = "invalid_request"
	UpstreamMalformedOutput Kind = "upstream_malformed_output"
	UpstreamMissingPayload  Kind = "upstream_missing_payload"
	UpstreamAuthError       Kind = "upstream_auth_error"
	UpstreamQuotaExceeded   Kind = "upstream_quota_exceeded"
	UpstreamGenericFailure  Kind = "upstream_generic_failure"
)

// User-facing messages for the upstream kinds that do not carry their own.
const (
	MsgMalformed = "The AI returned invalid JSON. Please try again."
	MsgAuth      = "Your API key is not valid. Make sure it is configured correctly."
	MsgQuota     = "You have exceeded your current quota. Check your plan and billing details, or wait a moment and try again."
	MsgGeneric   = "Could not generate content. The model may be overloaded or the request was invalid."
	MsgNoImage   = "no image data"
	MsgNoAudio   = "no audio data"
)

// Error is a classified failure. Message is safe to show to a user as-is;
// Err keeps the underlying cause for logs and never leaks into Error().
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Invalid returns an InvalidRequest error.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: InvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err with the default message for kind.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: DefaultMessage(kind), Err: err}
}

// Malformed wraps a structural parse failure.
func Malformed(err error) *Error {
	return Wrap(UpstreamMalformedOutput, err)
}

// WithOp returns a copy of err tagged with op when err is classified,
// or a generic failure tagged with op otherwise.
func WithOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		cp := *ae
		cp.Op = op
		return &cp
	}
	return &Error{Kind: UpstreamGenericFailure, Op: op, Message: MsgGeneric, Err: err}
}

// KindOf reports the kind of err, or UpstreamGenericFailure for
// unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return UpstreamGenericFailure
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// DefaultMessage returns the user-facing message for kind.
func DefaultMessage(kind Kind) string {
	switch kind {
	case UpstreamMalformedOutput:
		return MsgMalformed
	case UpstreamAuthError:
		return MsgAuth
	case UpstreamQuotaExceeded:
		return MsgQuota
	case UpstreamMissingPayload:
		return "the response contained no payload"
	case InvalidRequest:
		return "invalid request"
	default:
		return MsgGeneric
	}
}
