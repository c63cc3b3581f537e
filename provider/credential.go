package provider

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxCredentialLength   = 200
	minOpenAIKeyLength    = 45
	minGeminiLegacyKeyLen = 30
	openAIKeyPrefix       = "sk-"
	geminiKeyPrefix       = "AIza"
)

// ValidateCredential performs a format check of a credential for kind.
// It does not contact the backend.
func ValidateCredential(kind Kind, credential string) error {
	key := strings.TrimSpace(credential)
	if key == "" {
		return errors.New("API key is required")
	}
	if len(key) > maxCredentialLength {
		return fmt.Errorf("API key is too long (max %d characters)", maxCredentialLength)
	}

	switch kind {
	case KindOpenAI:
		if !strings.HasPrefix(key, openAIKeyPrefix) {
			return fmt.Errorf("OpenAI API keys start with %q", openAIKeyPrefix)
		}
		if len(key) < minOpenAIKeyLength {
			return fmt.Errorf("OpenAI API key is too short (min %d characters)", minOpenAIKeyLength)
		}
	case KindGemini:
		if !strings.HasPrefix(key, geminiKeyPrefix) && len(key) < minGeminiLegacyKeyLen {
			return fmt.Errorf("Gemini API key is too short (min %d characters)", minGeminiLegacyKeyLen)
		}
	default:
		return fmt.Errorf("unknown provider %q", kind)
	}
	return nil
}
