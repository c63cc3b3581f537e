/*
Package openai implements the provider.Provider interface for OpenAI's chat models.
It talks to the chat completions endpoint through github.com/openai/openai-go.

# Design Decisions

  - Chat turns: instructions become a system message, the prompt a single user message
  - Streaming as a sequence: Stream yields each non-empty delta.content in arrival order
  - Raw errors: API failures are returned as *openai.Error; mapping them onto the
    provider error kinds is left to the gateway
  - Thread Safe: a Provider holds no per-request state and may be shared

# Usage

	p := openai.New(option.WithAPIKey(key))
	text, err := p.Complete(ctx, provider.AnalysisRequest(code, "go"))

Streaming:

	for chunk, err := range p.Stream(ctx, provider.AnalysisRequest(code, "go")) {
		if err != nil {
			return err
		}
		fmt.Print(chunk)
	}

Breaking out of the loop closes the response body.

# Factory

Factory adapts the package to the gateway's registry. Additional request options,
such as option.WithBaseURL for an OpenAI compatible server, are applied to every
client it builds:

	gw := gateway.New(gateway.WithOpenAIOptions(option.WithBaseURL(baseURL)))
*/
package openai
