package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrBlocked matches every *BlockedError.
var ErrBlocked = errors.New("gemini: response blocked by safety filters")

// BlockedError reports a prompt or candidate withheld by the safety system.
type BlockedError struct {
	Reason string
	// Prompt is true when the prompt itself was rejected.
	Prompt bool
}

func (e *BlockedError) Error() string {
	if e.Prompt {
		return "gemini: prompt blocked: " + e.Reason
	}
	return "gemini: candidate blocked: " + e.Reason
}

func (e *BlockedError) Is(target error) bool {
	return target == ErrBlocked
}

// APIError is a non-2xx answer from the Gemini REST API.
type APIError struct {
	StatusCode int
	// Status is the canonical status name, e.g. INVALID_ARGUMENT or RESOURCE_EXHAUSTED.
	Status string
	// Reason is the first ErrorInfo reason, e.g. API_KEY_INVALID.
	Reason  string
	Message string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gemini: %d", e.StatusCode)
	if e.Status != "" {
		b.WriteString(" " + e.Status)
	}
	if e.Reason != "" {
		b.WriteString(" (" + e.Reason + ")")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

// parseAPIError builds an *APIError from a response body of the form
//
//	{"error":{"code":400,"message":"...","status":"INVALID_ARGUMENT","details":[{"reason":"API_KEY_INVALID"}]}}
//
// Bodies that are not JSON are kept verbatim as the message.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	if !gjson.ValidBytes(body) {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(statusCode)
		}
		return apiErr
	}

	root := gjson.GetBytes(body, "error")
	if code := root.Get("code"); code.Exists() && code.Int() != 0 {
		apiErr.StatusCode = int(code.Int())
	}
	apiErr.Status = root.Get("status").String()
	apiErr.Message = root.Get("message").String()
	root.Get("details").ForEach(func(_, detail gjson.Result) bool {
		if reason := detail.Get("reason").String(); reason != "" {
			apiErr.Reason = reason
			return false
		}
		return true
	})
	return apiErr
}
