package openai

import (
	"errors"
	"slices"
	"strings"

	"github.com/casualjim/codelens/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is the chat model used for code analysis.
const DefaultModel = openai.ChatModelGPT4Turbo

// Factory returns a provider.Factory that builds an OpenAI client for the
// configured credential. The extra options are applied before the API key,
// e.g. option.WithBaseURL for a compatible endpoint.
func Factory(opts ...option.RequestOption) provider.Factory {
	return ModelFactory(DefaultModel, opts...)
}

// ModelFactory is Factory for a specific chat model. An empty model selects
// DefaultModel.
func ModelFactory(model string, opts ...option.RequestOption) provider.Factory {
	return func(cfg provider.Config) (provider.Provider, error) {
		if cfg.Kind != provider.KindOpenAI {
			return nil, errors.New("openai: configuration is for " + cfg.Kind.String())
		}
		key := strings.TrimSpace(cfg.Credential)
		if key == "" {
			return nil, errors.New("openai: API key is required")
		}

		options := append(slices.Clone(opts), option.WithAPIKey(key))
		return New(options...).WithModel(model), nil
	}
}
