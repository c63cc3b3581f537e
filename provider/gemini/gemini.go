package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"slices"
	"strings"

	"github.com/casualjim/codelens/provider"
	"github.com/fogfish/opts"
	"github.com/goccy/go-json"
)

const (
	// DefaultBaseURL is the public Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is the model used for code analysis.
	DefaultModel = "gemini-1.5-flash"

	apiKeyHeader       = "x-goog-api-key"
	maxErrorBodySize   = 1 << 20
	instructionsPrefix = "\n\n"
)

var (
	// ErrEmptyResponse is returned when a completion carries no candidate text.
	ErrEmptyResponse = errors.New("gemini: no response received")
	// ErrMalformedResponse is returned when a response body or stream event cannot be decoded.
	ErrMalformedResponse = errors.New("gemini: malformed response")
)

type Option = opts.Option[Provider]

var (
	// WithBaseURL overrides the API endpoint, e.g. for a proxy or a test server.
	WithBaseURL = opts.ForName[Provider, string]("baseURL")
	// WithModel selects another Gemini model.
	WithModel = opts.ForName[Provider, string]("model")
	// WithHTTPClient replaces the http.Client used for every request.
	WithHTTPClient = opts.ForName[Provider, *http.Client]("client")
	// WithSafetySettings replaces the default safety settings.
	WithSafetySettings = opts.ForName[Provider, []SafetySetting]("safety")
)

var _ provider.Provider = (*Provider)(nil)

// Provider is a client for the generateContent family of endpoints.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	safety  []SafetySetting
}

// New creates a Gemini client authenticating with apiKey.
func New(apiKey string, options ...Option) (*Provider, error) {
	p := &Provider{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		client:  http.DefaultClient,
		safety:  DefaultSafetySettings(),
	}
	if err := opts.Apply(p, options); err != nil {
		return nil, err
	}
	if p.apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	p.baseURL = strings.TrimRight(p.baseURL, "/")
	return p, nil
}

// Factory returns a provider.Factory that builds a Gemini client for the
// configured credential.
func Factory(options ...Option) provider.Factory {
	return func(cfg provider.Config) (provider.Provider, error) {
		if cfg.Kind != provider.KindGemini {
			return nil, errors.New("gemini: configuration is for " + cfg.Kind.String())
		}
		return New(cfg.Credential, slices.Clone(options)...)
	}
}

func (p *Provider) Kind() provider.Kind {
	return provider.KindGemini
}

// Model returns the model the requests are sent to.
func (p *Provider) Model() string {
	return p.model
}

func (p *Provider) buildRequest(req provider.Request) generateContentRequest {
	prompt := req.Prompt
	if strings.TrimSpace(req.Instructions) != "" {
		prompt = req.Instructions + instructionsPrefix + req.Prompt
	}

	body := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if req.Moderated {
		body.SafetySettings = p.safety
	}
	if req.MaxTokens > 0 || req.Temperature != nil {
		cfg := &generationConfig{Temperature: req.Temperature}
		if req.MaxTokens > 0 {
			n := req.MaxTokens
			cfg.MaxOutputTokens = &n
		}
		body.GenerationConfig = cfg
	}
	return body
}

func (p *Provider) endpoint(method string) string {
	return fmt.Sprintf("%s/models/%s:%s", p.baseURL, p.model, method)
}

func (p *Provider) post(ctx context.Context, url string, body any, accept string) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set(apiKeyHeader, p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, parseAPIError(resp.StatusCode, errBody)
	}
	return resp, nil
}

func (p *Provider) Complete(ctx context.Context, req provider.Request) (string, error) {
	resp, err := p.post(ctx, p.endpoint("generateContent"), p.buildRequest(req), "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrMalformedResponse, err)
	}
	if err := result.blocked(); err != nil {
		return "", err
	}

	text := result.text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (p *Provider) Stream(ctx context.Context, req provider.Request) iter.Seq2[string, error] {
	body := p.buildRequest(req)

	return func(yield func(string, error) bool) {
		resp, err := p.post(ctx, p.endpoint("streamGenerateContent")+"?alt=sse", body, "text/event-stream")
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		events := newSSEScanner(resp.Body)
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			payload, err := events.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = ctxErr
				}
				yield("", fmt.Errorf("gemini: %w", err))
				return
			}

			var chunk generateContentResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				yield("", fmt.Errorf("%w: decode stream event: %w", ErrMalformedResponse, err))
				return
			}
			if err := chunk.blocked(); err != nil {
				yield("", err)
				return
			}

			if text := chunk.text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}
