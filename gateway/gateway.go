package gateway

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/codelens/pkg/slogx"
	"github.com/casualjim/codelens/provider"
	"github.com/casualjim/codelens/provider/gemini"
	oai "github.com/casualjim/codelens/provider/openai"
	"github.com/fogfish/opts"
	"github.com/openai/openai-go/option"
)

const (
	defaultConnectionMessage = "Connection successful"
	notInitializedMessage    = "Service not initialized"
)

// WithFactory registers the factory used to build clients for kind,
// replacing the built-in one.
func WithFactory(kind provider.Kind, factory provider.Factory) opts.Option[Gateway] {
	return opts.Type[Gateway](func(g *Gateway) error {
		if factory == nil {
			return fmt.Errorf("nil factory for %s", kind)
		}
		g.factories.Set(kind, factory)
		return nil
	})
}

// WithOpenAIOptions passes request options to every OpenAI client the gateway builds.
func WithOpenAIOptions(options ...option.RequestOption) opts.Option[Gateway] {
	return opts.Type[Gateway](func(g *Gateway) error {
		g.openaiOptions = append(g.openaiOptions, options...)
		return nil
	})
}

// WithGeminiOptions passes options to every Gemini client the gateway builds.
func WithGeminiOptions(options ...gemini.Option) opts.Option[Gateway] {
	return opts.Type[Gateway](func(g *Gateway) error {
		g.geminiOptions = append(g.geminiOptions, options...)
		return nil
	})
}

// Gateway holds the single active backend client.
// All methods are safe for concurrent use.
type Gateway struct {
	factories     *haxmap.Map[provider.Kind, provider.Factory]
	openaiOptions []option.RequestOption
	geminiOptions []gemini.Option

	mu     sync.RWMutex
	kind   provider.Kind
	client provider.Provider
}

// New creates a gateway with no provider selected.
func New(options ...opts.Option[Gateway]) *Gateway {
	g := &Gateway{
		factories: haxmap.New[provider.Kind, provider.Factory](),
	}
	if err := opts.Apply(g, options); err != nil {
		panic(err)
	}

	g.factories.GetOrCompute(provider.KindOpenAI, func() provider.Factory {
		return oai.Factory(slices.Clone(g.openaiOptions)...)
	})
	g.factories.GetOrCompute(provider.KindGemini, func() provider.Factory {
		return gemini.Factory(slices.Clone(g.geminiOptions)...)
	})
	return g
}

// Initialize replaces the active client with one built for cfg.
// The previous client is always discarded first. It returns false, leaving the
// gateway not ready, when the kind is unknown, the credential is empty or the
// client cannot be constructed.
func (g *Gateway) Initialize(cfg provider.Config) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.client = nil
	g.kind = ""

	if !cfg.Kind.Valid() {
		slog.Warn("unknown provider", slogx.LoggerName("gateway"), slogx.Provider(cfg.Kind))
		return false
	}
	g.kind = cfg.Kind

	if strings.TrimSpace(cfg.Credential) == "" {
		slog.Warn("missing credential", slogx.LoggerName("gateway"), slogx.Provider(cfg.Kind))
		return false
	}

	factory, ok := g.factories.Get(cfg.Kind)
	if !ok {
		slog.Warn("no factory registered", slogx.LoggerName("gateway"), slogx.Provider(cfg.Kind))
		return false
	}

	client, err := factory(cfg)
	if err != nil {
		slog.Error("failed to initialize provider", slogx.LoggerName("gateway"), slogx.Provider(cfg.Kind), slogx.Error(err))
		return false
	}
	if client == nil {
		slog.Error("factory returned no client", slogx.LoggerName("gateway"), slogx.Provider(cfg.Kind))
		return false
	}

	g.client = client
	slog.Info("provider initialized", slogx.LoggerName("gateway"), slogx.Provider(cfg.Kind), slogx.Redacted("credential", cfg.Credential))
	return true
}

// IsReady reports whether a client exists for the selected provider.
func (g *Gateway) IsReady() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.client != nil
}

// Describe returns the metadata of the selected provider, false when none is selected.
func (g *Gateway) Describe() (provider.Info, bool) {
	g.mu.RLock()
	kind := g.kind
	g.mu.RUnlock()

	if kind == "" {
		return provider.Info{}, false
	}
	return provider.Lookup(kind)
}

func (g *Gateway) active() (provider.Provider, provider.Kind, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.client == nil {
		return nil, g.kind, provider.NewError(g.kind, provider.ErrNotReady, nil)
	}
	return g.client, g.kind, nil
}

func (g *Gateway) complete(ctx context.Context, req provider.Request) (string, error) {
	client, kind, err := g.active()
	if err != nil {
		return "", err
	}

	text, err := client.Complete(ctx, req)
	if err != nil {
		return "", classify(kind, err)
	}
	return text, nil
}

// Analyze asks the active backend to explain code. An empty language defaults
// to javascript.
func (g *Gateway) Analyze(ctx context.Context, code, language string) (string, error) {
	return g.complete(ctx, provider.AnalysisRequest(code, language))
}

// Stream is the streaming form of Analyze. It yields every non-empty text
// increment in arrival order and stops after the first error. Breaking out of
// the loop, or cancelling ctx, stops consuming the upstream response.
func (g *Gateway) Stream(ctx context.Context, code, language string) iter.Seq2[string, error] {
	req := provider.AnalysisRequest(code, language)

	return func(yield func(string, error) bool) {
		client, kind, err := g.active()
		if err != nil {
			yield("", err)
			return
		}

		for chunk, err := range client.Stream(ctx, req) {
			if err != nil {
				yield("", classify(kind, err))
				return
			}
			if chunk == "" {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// StreamAnalyze consumes Stream, invoking onChunk once per increment before
// the next one is read. It returns when the stream completes or fails.
func (g *Gateway) StreamAnalyze(ctx context.Context, code, language string, onChunk func(string)) error {
	for chunk, err := range g.Stream(ctx, code, language) {
		if err != nil {
			return err
		}
		onChunk(chunk)
	}
	return nil
}

// TestConnection issues a minimal request to verify that the credential is
// accepted. Failures are reported in the result, never returned or raised.
func (g *Gateway) TestConnection(ctx context.Context) (result provider.ConnectionResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("connection test panicked", slogx.LoggerName("gateway"), slog.Any("panic", r))
			result = provider.ConnectionResult{Success: false, Error: fmt.Sprint(r)}
		}
	}()

	client, kind, err := g.active()
	if err != nil {
		return provider.ConnectionResult{Success: false, Error: notInitializedMessage}
	}
	info, _ := provider.Lookup(kind)

	text, err := client.Complete(ctx, provider.ProbeRequest())
	if errors.Is(err, gemini.ErrEmptyResponse) {
		// the credential was accepted, the probe just produced no text
		text, err = "", nil
	}
	if err != nil {
		err = classify(kind, err)
		slog.Warn("connection test failed", slogx.LoggerName("gateway"), slogx.Provider(kind), slogx.Error(err))
		return provider.ConnectionResult{Success: false, Provider: info.Label, Error: provider.Describe(err)}
	}

	if strings.TrimSpace(text) == "" {
		text = defaultConnectionMessage
	}
	return provider.ConnectionResult{Success: true, Message: text, Provider: info.Label}
}

// CodingInsights asks for mentoring feedback on a history of analyses.
func (g *Gateway) CodingInsights(ctx context.Context, history []provider.HistoryEntry) (string, error) {
	return g.complete(ctx, provider.InsightsRequest(history))
}
