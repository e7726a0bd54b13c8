package anychat

import "fmt"

// BaseError is the base error type for this package. It preserves the
// underlying cause unchanged so callers can unwrap to provider-specific
// payloads.
type BaseError struct {
	Message string
	Cause   error
}

func (e *BaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BaseError) Unwrap() error {
	return e.Cause
}

// ConfigurationError reports a missing or malformed model identifier, an
// unknown provider, or a missing API key. It is returned at construction
// time, before any network call.
type ConfigurationError struct{ BaseError }

// InvalidToolChoiceError reports a tool choice directive outside the mapped
// vocabulary. It is returned during parameter translation, before any
// network call.
type InvalidToolChoiceError struct {
	BaseError
	Choice string
}

func (e *InvalidToolChoiceError) Error() string {
	return fmt.Sprintf("invalid tool choice %q: %s", e.Choice, e.Message)
}

// StructuredOutputSchemaError reports an output schema whose declared kind
// does not match its content, or a kind this package does not support.
type StructuredOutputSchemaError struct{ BaseError }

// ProviderError represents a failure reported by the underlying provider
// client. The original error is preserved as Cause; this layer never retries
// and never rewrites the provider payload.
type ProviderError struct {
	BaseError
	Provider   string
	StatusCode int
	ErrorCode  string
	Retryable  bool
	Raw        map[string]any
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type AccessDeniedError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContentFilterError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }

// RequestTimeoutError reports a timeout raised by the underlying client.
type RequestTimeoutError struct{ BaseError }

// StreamClosedError reports a Next call on a stream that was already closed
// or exhausted. Streams are finite and not restartable.
type StreamClosedError struct{ BaseError }

// IsRetryable reports whether a caller could reasonably retry the request.
// This package itself performs no retries; the flag is advisory.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *AuthenticationError, *AccessDeniedError, *NotFoundError,
		*InvalidRequestError, *ContextLengthError, *ContentFilterError,
		*ConfigurationError, *InvalidToolChoiceError, *StructuredOutputSchemaError,
		*StreamClosedError:
		return false
	case *RateLimitError, *ServerError, *RequestTimeoutError:
		return true
	case *ProviderError:
		return e.Retryable
	default:
		return false
	}
}

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{BaseError: BaseError{Message: fmt.Sprintf(format, args...)}}
}

func schemaErrorf(format string, args ...any) *StructuredOutputSchemaError {
	return &StructuredOutputSchemaError{BaseError: BaseError{Message: fmt.Sprintf(format, args...)}}
}
