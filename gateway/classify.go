package gateway

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/casualjim/codelens/provider"
	"github.com/casualjim/codelens/provider/gemini"
	oai "github.com/casualjim/codelens/provider/openai"
	"github.com/openai/openai-go"
)

// classify maps a raw backend error onto the provider error kinds.
// Errors that already carry a kind are returned unchanged.
func classify(kind provider.Kind, err error) error {
	if err == nil {
		return nil
	}

	var pe *provider.Error
	if errors.As(err, &pe) {
		return err
	}

	var sentinel error
	switch kind {
	case provider.KindOpenAI:
		sentinel = classifyOpenAI(err)
	case provider.KindGemini:
		sentinel = classifyGemini(err)
	}
	if sentinel == nil {
		sentinel = classifyTransport(err)
	}
	if sentinel == nil {
		sentinel = classifyMessage(err.Error())
	}
	if sentinel == nil {
		sentinel = provider.ErrUnknownProvider
	}
	return provider.NewError(kind, sentinel, err)
}

func classifyOpenAI(err error) error {
	if errors.Is(err, oai.ErrContentFilter) {
		return provider.ErrContentFiltered
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return nil
	}

	switch apiErr.Code {
	case "invalid_api_key":
		return provider.ErrInvalidCredential
	case "insufficient_quota", "rate_limit_exceeded":
		return provider.ErrRateLimited
	case "content_filter", "content_policy_violation":
		return provider.ErrContentFiltered
	}
	return classifyStatus(apiErr.StatusCode)
}

func classifyGemini(err error) error {
	if errors.Is(err, gemini.ErrBlocked) {
		return provider.ErrContentFiltered
	}
	if errors.Is(err, gemini.ErrMalformedResponse) {
		return provider.ErrTransport
	}

	var apiErr *gemini.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}

	switch apiErr.Reason {
	case "API_KEY_INVALID", "API_KEY_EXPIRED":
		return provider.ErrInvalidCredential
	case "RATE_LIMIT_EXCEEDED", "QUOTA_EXCEEDED":
		return provider.ErrRateLimited
	}
	switch apiErr.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return provider.ErrInvalidCredential
	case "RESOURCE_EXHAUSTED":
		return provider.ErrRateLimited
	}
	if s := classifyStatus(apiErr.StatusCode); s != nil {
		return s
	}
	return classifyMessage(apiErr.Message)
}

func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return provider.ErrInvalidCredential
	case http.StatusTooManyRequests:
		return provider.ErrRateLimited
	}
	return nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return provider.ErrTransport
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return provider.ErrTransport
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return provider.ErrTransport
	}
	return nil
}

// classifyMessage looks for provider markers in an error message, for
// failures that only surface as text.
func classifyMessage(msg string) error {
	switch {
	case strings.Contains(msg, "API_KEY_INVALID"):
		return provider.ErrInvalidCredential
	case strings.Contains(msg, "QUOTA_EXCEEDED"), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return provider.ErrRateLimited
	case strings.Contains(msg, "SAFETY"):
		return provider.ErrContentFiltered
	case strings.Contains(strings.ToLower(msg), "failed to fetch"):
		return provider.ErrTransport
	}
	return nil
}
