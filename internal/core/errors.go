package core

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrorKind identifies a failure class. The set is closed so the HTTP mapping
// in the server stays exhaustive.
type ErrorKind string

const (
	// KindInvalidRequest is a caller fault: missing or malformed field (400).
	KindInvalidRequest ErrorKind = "invalid_request"
	// KindUnsupportedLanguage is a caller fault: target outside the supported
	// language list (400).
	KindUnsupportedLanguage ErrorKind = "unsupported_language"
	// KindProvider is an upstream fault: the provider rejected or failed the
	// call (502).
	KindProvider ErrorKind = "provider_error"
	// KindRateLimit means the provider reported a rate limit (503).
	KindRateLimit ErrorKind = "rate_limit"
	// KindTimeout means the provider call exceeded its deadline (503).
	KindTimeout ErrorKind = "timeout"
	// KindRefusal means the provider declined to translate on content-policy
	// grounds (502).
	KindRefusal ErrorKind = "content_refusal"
	// KindMalformedReply means the provider answered with an empty or
	// undecodable completion (502).
	KindMalformedReply ErrorKind = "malformed_reply"
)

// ShimError is the error type crossing component boundaries. Message is safe
// to show to the caller; the wrapped cause is for logs only and may contain
// provider payload fragments.
type ShimError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ShimError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ShimError) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to the status code of the LibreTranslate
// error response.
func (e *ShimError) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidRequest, KindUnsupportedLanguage:
		return http.StatusBadRequest
	case KindRateLimit, KindTimeout:
		return http.StatusServiceUnavailable
	case KindProvider, KindRefusal, KindMalformedReply:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Body returns the LibreTranslate error body: a flat {"error": message}.
func (e *ShimError) Body() map[string]string {
	return map[string]string{"error": e.Message}
}

// NewMissingFieldError reports a required request field that is absent or empty.
func NewMissingFieldError(field string) *ShimError {
	return &ShimError{
		Kind:    KindInvalidRequest,
		Message: fmt.Sprintf("missing required field: %s", field),
	}
}

// NewInvalidRequestError reports any other caller fault.
func NewInvalidRequestError(message string, err error) *ShimError {
	return &ShimError{Kind: KindInvalidRequest, Message: message, Err: err}
}

// NewUnsupportedLanguageError reports a target language outside the supported set.
func NewUnsupportedLanguageError(code string) *ShimError {
	return &ShimError{
		Kind:    KindUnsupportedLanguage,
		Message: fmt.Sprintf("unsupported target language: %s", code),
	}
}

// NewProviderError reports a generic upstream failure.
func NewProviderError(message string, err error) *ShimError {
	return &ShimError{Kind: KindProvider, Message: message, Err: err}
}

// NewTimeoutError reports a provider call that exceeded its deadline.
func NewTimeoutError(err error) *ShimError {
	return &ShimError{Kind: KindTimeout, Message: "translation backend timed out", Err: err}
}

// NewRateLimitError reports a provider-side rate limit.
func NewRateLimitError(err error) *ShimError {
	return &ShimError{Kind: KindRateLimit, Message: "translation backend is rate limited", Err: err}
}

// NewRefusalError reports a content-policy refusal by the provider.
func NewRefusalError() *ShimError {
	return &ShimError{Kind: KindRefusal, Message: "translation backend declined to translate this text"}
}

// NewMalformedReplyError reports an empty or undecodable provider reply.
func NewMalformedReplyError(message string, err error) *ShimError {
	return &ShimError{Kind: KindMalformedReply, Message: message, Err: err}
}

// ParseProviderError classifies a non-2xx provider response. The display
// message never includes the raw body; the extracted provider message is kept
// on the wrapped cause for logging.
func ParseProviderError(statusCode int, body []byte) *ShimError {
	detail := gjson.GetBytes(body, "error.message").String()
	if detail == "" {
		detail = gjson.GetBytes(body, "error").String()
	}
	cause := fmt.Errorf("provider returned status %d: %s", statusCode, detail)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(cause)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return NewProviderError("translation backend rejected the configured credentials", cause)
	default:
		return NewProviderError("translation backend request failed", cause)
	}
}
