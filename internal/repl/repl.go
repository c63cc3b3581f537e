package repl

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/casualjim/codelens/conversation"
	"github.com/casualjim/codelens/internal/broker"
	"github.com/casualjim/codelens/messages"
	"github.com/casualjim/codelens/provider"
	"github.com/fatih/color"
)

// settleTimeout bounds how long the prompt waits for the events of a command
// to be printed.
const settleTimeout = 5 * time.Second

const helpText = `Paste or type code, then send it with an empty line.

Commands:
  /config <openai|gemini> <api-key>   configure the AI provider
  /provider                           show the configured provider
  /status                             show the session state
  /stream [on|off]                    toggle streaming explanations
  /lang [language|auto]               force a language or detect it
  /insights                           coding insights for this session
  /history                            list the messages of this conversation
  /new                                start a new conversation
  /help                               show this help
  /quit                               exit`

// Options configure a terminal session.
type Options struct {
	In       io.Reader
	Out      io.Writer
	Stream   bool
	Renderer Renderer
}

type session struct {
	orch     *conversation.Orchestrator
	console  *console
	out      io.Writer
	stream   bool
	language string
}

func newSession(ctx context.Context, orch *conversation.Orchestrator, topic broker.Topic, opts Options) (*session, func(), error) {
	out := cmp.Or[io.Writer](opts.Out, os.Stdout)
	con := newConsole(out, opts.Renderer)
	sub, err := topic.Subscribe(ctx, con)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe console: %w", err)
	}
	return &session{
		orch:    orch,
		console: con,
		out:     out,
		stream:  opts.Stream,
	}, sub.Unsubscribe, nil
}

// Run reads code and commands from the terminal until EOF, /quit or ctx is
// cancelled. The orchestrator must publish its events on topic.
func Run(ctx context.Context, orch *conversation.Orchestrator, topic broker.Topic, opts Options) error {
	s, unsubscribe, err := newSession(ctx, orch, topic, opts)
	if err != nil {
		return err
	}
	defer unsubscribe()

	in := cmp.Or[io.Reader](opts.In, os.Stdin)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	s.banner()

	var code []string
	for {
		if ctx.Err() != nil {
			return nil
		}
		if len(code) == 0 {
			fmt.Fprintf(s.out, "%s: ", color.CyanString("Code"))
		} else {
			fmt.Fprint(s.out, color.CyanString("...")+" ")
		}

		if !scanner.Scan() {
			if len(code) > 0 {
				s.submit(ctx, strings.Join(code, "\n"))
			}
			fmt.Fprintln(s.out, "Exiting...")
			return scanner.Err()
		}
		line := scanner.Text()

		if len(code) == 0 {
			trimmed := strings.TrimSpace(line)
			switch {
			case trimmed == "":
				continue
			case strings.EqualFold(trimmed, "exit"), strings.EqualFold(trimmed, "quit"):
				return nil
			case strings.HasPrefix(trimmed, "/"):
				if quit := s.command(ctx, trimmed); quit {
					return nil
				}
				continue
			}
		}

		if strings.TrimSpace(line) == "" {
			s.submit(ctx, strings.Join(code, "\n"))
			code = code[:0]
			continue
		}
		code = append(code, line)
	}
}

// RunOnce explains a single snippet and returns the gateway error, if any.
// An empty language is detected from the code.
func RunOnce(ctx context.Context, orch *conversation.Orchestrator, topic broker.Topic, code, language string, opts Options) error {
	s, unsubscribe, err := newSession(ctx, orch, topic, opts)
	if err != nil {
		return err
	}
	defer unsubscribe()

	s.language = language
	return s.submit(ctx, code)
}

func (s *session) banner() {
	fmt.Fprintln(s.out, color.New(color.Bold).Sprint("CodeLens")+" explains your code. Type /help for commands.")
	fmt.Fprintf(s.out, "AI Provider: %s\n\n", s.providerDisplay())
}

func (s *session) providerDisplay() string {
	if !s.orch.IsConfigured() {
		return color.YellowString("Not Configured") + " (use /config)"
	}
	info, ok := s.orch.Describe()
	if !ok {
		return string(s.orch.Provider())
	}
	display := info.String()
	switch s.orch.Status() {
	case conversation.StatusSuccess:
		display += " " + color.GreenString("Connected")
	case conversation.StatusError:
		display += " " + color.RedString("Connection Failed")
	case conversation.StatusChecking:
		display += " " + color.YellowString("Checking")
	}
	return display
}

func (s *session) languageFor(code string) string {
	if s.language != "" {
		return s.language
	}
	return DetectLanguage(code, provider.DefaultLanguage)
}

func (s *session) submit(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	language := s.languageFor(code)

	before := s.console.snapshot()
	var err error
	if s.stream {
		err = s.orch.SubmitStreaming(ctx, code, language)
	} else {
		err = s.orch.Submit(ctx, code, language)
	}

	switch {
	case errors.Is(err, conversation.ErrConfigurationRequired):
		fmt.Fprintln(s.out, color.YellowString("⚙️  Configure an AI provider first: /config <openai|gemini> <api-key>"))
		return err
	case errors.Is(err, conversation.ErrBusy):
		fmt.Fprintln(s.out, color.YellowString("A request is already in progress."))
		return err
	}

	s.settle(ctx, func(p progress) bool { return p.requests > before.requests })
	return err
}

// settle waits until the console has printed the events of the last command.
func (s *session) settle(ctx context.Context, done func(progress) bool) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	s.console.waitFor(ctx, done)
}

func (s *session) command(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(s.out, helpText)
	case "/config":
		s.configure(ctx, args)
	case "/provider":
		fmt.Fprintf(s.out, "AI Provider: %s\n", s.providerDisplay())
		if info, ok := s.orch.Describe(); ok {
			fmt.Fprintf(s.out, "Model: %s\n", info.Model)
		}
		if result, ok := s.orch.LastConnection(); ok && !result.Success {
			fmt.Fprintln(s.out, color.RedString(result.Error))
		}
	case "/status":
		s.status()
	case "/stream":
		switch {
		case len(args) == 0:
			s.stream = !s.stream
		case strings.EqualFold(args[0], "on"):
			s.stream = true
		case strings.EqualFold(args[0], "off"):
			s.stream = false
		default:
			fmt.Fprintln(s.out, color.RedString("usage: /stream [on|off]"))
			return false
		}
		fmt.Fprintf(s.out, "Streaming: %s\n", onOff(s.stream))
	case "/lang":
		s.setLanguage(args)
	case "/insights":
		before := s.console.snapshot()
		_, err := s.orch.Insights(ctx)
		switch {
		case errors.Is(err, conversation.ErrConfigurationRequired):
			fmt.Fprintln(s.out, color.YellowString("⚙️  Configure an AI provider first: /config <openai|gemini> <api-key>"))
		case errors.Is(err, conversation.ErrBusy):
			fmt.Fprintln(s.out, color.YellowString("A request is already in progress."))
		default:
			s.settle(ctx, func(p progress) bool { return p.requests > before.requests })
		}
	case "/history":
		s.history()
	case "/new":
		before := s.console.snapshot()
		s.orch.Reset(ctx)
		s.settle(ctx, func(p progress) bool { return p.resets > before.resets })
	default:
		fmt.Fprintf(s.out, "%s %s\n", color.RedString("unknown command"), name)
		fmt.Fprintln(s.out, "Type /help for the list of commands.")
	}
	return false
}

func (s *session) configure(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, color.RedString("usage: /config <openai|gemini> <api-key>"))
		return
	}
	kind, err := provider.ParseKind(args[0])
	if err != nil {
		fmt.Fprintln(s.out, color.RedString(err.Error()))
		return
	}
	if err := provider.ValidateCredential(kind, args[1]); err != nil {
		fmt.Fprintln(s.out, color.RedString(err.Error()))
		return
	}

	before := s.console.snapshot()
	s.orch.Configure(ctx, kind, args[1])
	if s.orch.Busy() {
		fmt.Fprintln(s.out, color.YellowString("A request is already in progress."))
		return
	}
	s.settle(ctx, func(p progress) bool { return p.messages > before.messages })
}

func (s *session) setLanguage(args []string) {
	if len(args) == 0 {
		fmt.Fprintf(s.out, "Language: %s\n", cmp.Or(s.language, "auto"))
		return
	}
	lang := strings.ToLower(args[0])
	switch {
	case lang == "auto":
		s.language = ""
	case slices.Contains(Languages, lang):
		s.language = lang
	default:
		fmt.Fprintf(s.out, "%s %s (one of auto, %s)\n", color.RedString("unknown language"), lang, strings.Join(Languages, ", "))
		return
	}
	fmt.Fprintf(s.out, "Language: %s\n", cmp.Or(s.language, "auto"))
}

func (s *session) status() {
	fmt.Fprintf(s.out, "AI Provider:  %s\n", s.providerDisplay())
	fmt.Fprintf(s.out, "Connection:   %s\n", s.orch.Status())
	fmt.Fprintf(s.out, "Conversation: %s\n", cmp.Or(s.orch.ConversationID(), "none"))
	fmt.Fprintf(s.out, "Messages:     %d\n", len(s.orch.Messages()))
	fmt.Fprintf(s.out, "Streaming:    %s\n", onOff(s.stream))
	fmt.Fprintf(s.out, "Language:     %s\n", cmp.Or(s.language, "auto"))
}

func (s *session) history() {
	msgs := s.orch.Messages()
	if len(msgs) == 0 {
		fmt.Fprintln(s.out, "No messages yet.")
		return
	}
	for _, m := range msgs {
		at := time.Time(m.Timestamp).Local().Format(time.Kitchen)
		fmt.Fprintf(s.out, "%s %s %s\n", color.HiBlackString(at), senderLabel(m), summary(m))
	}
}

func senderLabel(m messages.Message) string {
	switch m.Sender {
	case messages.SenderUser:
		return color.CyanString("You")
	case messages.SenderAssistant:
		return assistantLabel(m.Provider)
	default:
		if m.Type == messages.TypeError {
			return color.RedString("System")
		}
		return color.GreenString("System")
	}
}

func summary(m messages.Message) string {
	text := m.Content
	if m.IsUser() && m.Language != "" {
		text = "[" + m.Language + "] " + text
	}
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > 72 {
		text = string(r[:71]) + "…"
	}
	return text
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
