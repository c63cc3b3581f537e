package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when no backend has been configured successfully.
	// It is raised before any network call is attempted.
	ErrNotReady = errors.New("AI service not initialized. Please configure your API key")
	// ErrInvalidCredential is returned when the backend rejects the credential.
	ErrInvalidCredential = errors.New("invalid API key")
	// ErrRateLimited is returned when the backend reports quota or throughput exhaustion.
	ErrRateLimited = errors.New("rate limit or quota exceeded")
	// ErrContentFiltered is returned when the backend refused to answer for safety reasons.
	ErrContentFiltered = errors.New("content blocked by safety filters")
	// ErrTransport is returned for network level failures and malformed responses.
	ErrTransport = errors.New("network error")
	// ErrUnknownProvider wraps any backend failure that matches none of the other kinds.
	ErrUnknownProvider = errors.New("provider error")
)

// Error is the uniform error raised at the gateway boundary.
// errors.Is matches both the Kind sentinel and the underlying cause.
type Error struct {
	Provider Kind
	Kind     error
	Err      error
}

// NewError creates an *Error of the given kind.
func NewError(provider Kind, kind, cause error) *Error {
	return &Error{Provider: provider, Kind: kind, Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	if e.Provider == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Describe renders err as a sentence suitable for showing to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotReady):
		return "AI service not initialized. Please configure your API key."
	case errors.Is(err, ErrInvalidCredential):
		return "Invalid API key. Please check your API key configuration."
	case errors.Is(err, ErrRateLimited):
		return "Rate limit or quota exceeded. Please wait a moment and try again."
	case errors.Is(err, ErrContentFiltered):
		return "Content blocked by safety filters. Please try rephrasing your request."
	case errors.Is(err, ErrTransport):
		return "Network error. Please check your internet connection."
	}

	var pe *Error
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err.Error()
	}
	return err.Error()
}
