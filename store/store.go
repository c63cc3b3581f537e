package store

import (
	"errors"

	"github.com/casualjim/codelens/provider"
)

const (
	KeyProvider     = "ai-provider"
	KeyOpenAI       = "openai-api-key"
	KeyGemini       = "gemini-api-key"
	KeyConversation = "ai-code-chat-conversation"
)

// ErrClosed is returned by a Bolt store after Close.
var ErrClosed = errors.New("store is closed")

// Store is a synchronous, string valued key-value store.
// Get reports false when the key is absent. Removing an absent key is not an error.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// CredentialKey returns the key the credential for kind is stored under.
func CredentialKey(kind provider.Kind) string {
	switch kind {
	case provider.KindOpenAI:
		return KeyOpenAI
	case provider.KindGemini:
		return KeyGemini
	default:
		return string(kind) + "-api-key"
	}
}
