// Command codelens explains code with an AI provider from the terminal.
//
// Usage:
//
//	codelens [-config path] [-provider openai|gemini] [-stream] [-file path [-lang language]]
//
// Without -file it starts an interactive session. With -file it explains that
// file, or standard input when the path is "-", and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/casualjim/codelens/conversation"
	"github.com/casualjim/codelens/events"
	"github.com/casualjim/codelens/gateway"
	"github.com/casualjim/codelens/internal/broker"
	"github.com/casualjim/codelens/internal/config"
	"github.com/casualjim/codelens/internal/repl"
	"github.com/casualjim/codelens/pkg/natsx"
	"github.com/casualjim/codelens/pkg/slogx"
	"github.com/casualjim/codelens/pkg/uuidx"
	"github.com/casualjim/codelens/provider"
	"github.com/casualjim/codelens/provider/gemini"
	oai "github.com/casualjim/codelens/provider/openai"
	"github.com/casualjim/codelens/store"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/option"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	setupLogging(slog.LevelInfo)
}

func setupLogging(level slog.Level) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

type flags struct {
	configPath string
	provider   string
	stream     bool
	file       string
	language   string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("codelens", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "path to the configuration file (default "+config.DefaultPath()+")")
	fs.StringVar(&f.provider, "provider", "", "AI provider to use: openai or gemini")
	fs.BoolVar(&f.stream, "stream", false, "stream explanations as they are generated")
	fs.StringVar(&f.file, "file", "", "explain this file and exit; - reads standard input")
	fs.StringVar(&f.language, "lang", "", "language of the code, detected when empty")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		return f, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return f, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("codelens failed", slogx.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.provider != "" {
		cfg.Provider = f.provider
	}
	if f.stream {
		cfg.Stream = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	setupLogging(level)

	var nc *nats.Conn
	if cfg.Store.Driver == config.DriverNATS || cfg.NATS.Events {
		nc, err = natsx.NewClient(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer func() { _ = nc.Drain() }()
	}

	st, closeStore, err := openStore(cfg, nc)
	if err != nil {
		return err
	}
	defer closeStore()

	topic := newTopic(ctx, cfg, nc)
	if sub, err := topic.Subscribe(ctx, events.LoggingHook()); err == nil {
		defer sub.Unsubscribe()
	}

	orch := conversation.New(newGateway(cfg), st, conversation.WithTopic(topic))
	defer orch.Wait()
	orch.Load()
	connect(ctx, cfg, st, orch)

	opts := repl.Options{Stream: cfg.Stream}
	if renderer, err := repl.NewRenderer(); err == nil {
		opts.Renderer = renderer
	} else {
		slog.Warn("markdown rendering disabled", slogx.Error(err))
	}

	if f.file == "" {
		return repl.Run(ctx, orch, topic, opts)
	}
	code, err := readSource(f.file)
	if err != nil {
		return err
	}
	return repl.RunOnce(ctx, orch, topic, code, f.language, opts)
}

func readSource(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func openStore(cfg *config.Config, nc *nats.Conn) (store.Store, func(), error) {
	noop := func() {}
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return store.NewMemory(), noop, nil
	case config.DriverBolt:
		db, err := store.OpenBolt(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, closer("bolt", db), nil
	case config.DriverSQLite:
		db, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, closer("sqlite", db), nil
	case config.DriverNATS:
		kv, err := natsx.KeyValue(nc, cfg.NATS.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return store.NewNATS(kv), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func closer(name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close store", slog.String("driver", name), slogx.Error(err))
		}
	}
}

func newTopic(ctx context.Context, cfg *config.Config, nc *nats.Conn) broker.Topic {
	id := uuidx.NewString()
	if cfg.NATS.Events && nc != nil {
		slog.Info("publishing conversation events", slog.String("subject", broker.SubjectPrefix+id))
		return broker.NATS(nc).Topic(ctx, id)
	}
	return broker.Local().Topic(ctx, id)
}

func newGateway(cfg *config.Config) *gateway.Gateway {
	var openaiOptions []option.RequestOption
	if cfg.OpenAI.BaseURL != "" {
		openaiOptions = append(openaiOptions, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	model := cfg.OpenAI.Model
	if model == "" {
		model = oai.DefaultModel
	}

	var geminiOptions []gemini.Option
	if cfg.Gemini.BaseURL != "" {
		geminiOptions = append(geminiOptions, gemini.WithBaseURL(cfg.Gemini.BaseURL))
	}
	if cfg.Gemini.Model != "" {
		geminiOptions = append(geminiOptions, gemini.WithModel(cfg.Gemini.Model))
	}

	return gateway.New(
		gateway.WithFactory(provider.KindOpenAI, oai.ModelFactory(model, openaiOptions...)),
		gateway.WithGeminiOptions(geminiOptions...),
	)
}

// connect selects the provider named in the configuration when it carries a
// credential that differs from the stored one, and otherwise restores the
// stored selection.
func connect(ctx context.Context, cfg *config.Config, st store.Store, orch *conversation.Orchestrator) {
	if cfg.Provider != "" {
		kind := provider.Kind(cfg.Provider)
		credential := strings.TrimSpace(cfg.Credential(kind))
		if credential != "" && !stored(st, kind, credential) {
			orch.Configure(ctx, kind, credential)
			return
		}
		if credential == "" {
			slog.Warn("no API key configured for provider", slogx.Provider(kind))
		}
	}
	orch.Restore(ctx)
}

func stored(st store.Store, kind provider.Kind, credential string) bool {
	selected, ok, err := st.Get(store.KeyProvider)
	if err != nil || !ok || selected != string(kind) {
		return false
	}
	current, ok, err := st.Get(store.CredentialKey(kind))
	return err == nil && ok && current == credential
}
