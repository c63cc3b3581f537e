package provider

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

// Kind identifies one of the supported AI completion backends.
type Kind string

const (
	// KindOpenAI is the chat-completion backend (GPT models).
	KindOpenAI Kind = "openai"
	// KindGemini is the Google Gemini backend.
	KindGemini Kind = "gemini"
)

// Kinds lists every supported backend in display order.
func Kinds() []Kind {
	return []Kind{KindOpenAI, KindGemini}
}

func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k names a supported backend.
func (k Kind) Valid() bool {
	_, ok := catalog[k]
	return ok
}

// ParseKind converts a user supplied name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown provider %q", s)
	}
	return k, nil
}

// Info is the static display metadata for a backend.
type Info struct {
	Kind        Kind   `json:"kind"`
	DisplayName string `json:"name"`
	Model       string `json:"model"`
	Icon        string `json:"icon"`
	// Label is the short name reported by connection tests.
	Label string `json:"label"`
}

func (i Info) String() string {
	return i.Icon + " " + i.DisplayName
}

var catalog = map[Kind]Info{
	KindOpenAI: {
		Kind:        KindOpenAI,
		DisplayName: "OpenAI (GPT)",
		Model:       "gpt-4-turbo",
		Icon:        "🤖",
		Label:       "OpenAI",
	},
	KindGemini: {
		Kind:        KindGemini,
		DisplayName: "Google Gemini",
		Model:       "gemini-1.5-flash",
		Icon:        "✨",
		Label:       "Google Gemini",
	},
}

// Lookup returns the metadata for kind.
func Lookup(kind Kind) (Info, bool) {
	info, ok := catalog[kind]
	return info, ok
}

// Config selects a backend and the credential used to reach it.
type Config struct {
	Kind       Kind
	Credential string
}

// Request is a single completion request, independent of the wire protocol.
type Request struct {
	// Instructions is the system instruction. Backends without a system role
	// prepend it to the prompt.
	Instructions string
	// Prompt is the user turn.
	Prompt string
	// MaxTokens limits the length of the completion. Zero means the backend default.
	MaxTokens int
	// Temperature is passed through when Temperature is set.
	Temperature *float64
	// Moderated asks backends with content safety settings to apply them.
	Moderated bool
}

// Provider is implemented by every backend client.
//
// Stream yields non-empty text increments in arrival order. The sequence stops
// after the first error; breaking out of the loop releases the underlying
// connection.
type Provider interface {
	Kind() Kind
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Factory constructs a backend client for a configuration.
type Factory func(cfg Config) (Provider, error)

// ConnectionResult reports the outcome of a connection test. It is a value and
// never an error so that it can be rendered directly.
type ConnectionResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HistoryEntry is one past analysis used to build coding insights.
type HistoryEntry struct {
	Language string `json:"language"`
	Topic    string `json:"topic,omitempty"`
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}
