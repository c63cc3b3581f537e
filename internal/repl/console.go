package repl

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/casualjim/codelens/events"
	"github.com/casualjim/codelens/messages"
	"github.com/casualjim/codelens/provider"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

// Renderer turns markdown into terminal output.
type Renderer interface {
	Render(string) (string, error)
}

// NewRenderer returns a glamour renderer that picks its style from the terminal.
func NewRenderer() (Renderer, error) {
	return glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
}

type plainRenderer struct{}

func (plainRenderer) Render(s string) (string, error) { return s + "\n", nil }

// console prints conversation events as they arrive.
type console struct {
	w        io.Writer
	renderer Renderer

	mu       sync.Mutex
	state    progress
	streamed bool
	changed  chan struct{}
}

// progress counts the events that matter for synchronizing the prompt.
type progress struct {
	messages int
	// requests counts finished requests
	requests int
	resets   int
}

func newConsole(w io.Writer, renderer Renderer) *console {
	if renderer == nil {
		renderer = plainRenderer{}
	}
	return &console{w: w, renderer: renderer, changed: make(chan struct{})}
}

func (c *console) OnMessage(_ context.Context, _ string, msg messages.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.notifyLocked()
	c.state.messages++

	switch msg.Sender {
	case messages.SenderUser:
	case messages.SenderAssistant:
		fmt.Fprintln(c.w)
		fmt.Fprint(c.w, assistantLabel(msg.Provider)+": ")
		if msg.Streaming {
			c.streamed = false
			return
		}
		fmt.Fprintln(c.w)
		c.printMarkdown(msg.Content)
	case messages.SenderSystem:
		fmt.Fprintln(c.w)
		if msg.Type == messages.TypeError {
			c.printMarkdown(msg.Content)
			return
		}
		fmt.Fprintln(c.w, color.GreenString(msg.Content))
	}
}

func (c *console) printMarkdown(content string) {
	out, err := c.renderer.Render(content)
	if err != nil {
		out = content + "\n"
	}
	fmt.Fprint(c.w, out)
}

func (c *console) OnChunk(_ context.Context, chunk events.ChunkReceived) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streamed = true
	fmt.Fprint(c.w, chunk.Chunk)
}

func (c *console) OnDelim(_ context.Context, delim events.Delim) {
	if delim.Delim != events.DelimEnd {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streamed {
		fmt.Fprintln(c.w)
	}
	c.streamed = false
}

func (c *console) OnStatus(_ context.Context, status events.StatusChanged) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := status.Result
	switch {
	case r == nil:
		fmt.Fprintln(c.w, color.YellowString("Testing connection..."))
	case r.Success:
		fmt.Fprintln(c.w, color.GreenString("✅ %s connection successful: %s", r.Provider, strings.TrimSpace(r.Message)))
	default:
		fmt.Fprintln(c.w, color.RedString("❌ %s connection failed: %s", r.Provider, r.Error))
	}
}

func (c *console) OnBusy(_ context.Context, busy bool) {
	if busy {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.requests++
	c.notifyLocked()
}

func (c *console) OnReset(context.Context, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.notifyLocked()
	c.state.resets++
	fmt.Fprintln(c.w, color.CyanString("Started a new conversation."))
}

// notifyLocked wakes everyone waiting in waitFor.
func (c *console) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// waitFor blocks until cond holds for the console state or ctx is done.
func (c *console) waitFor(ctx context.Context, cond func(progress) bool) {
	for {
		c.mu.Lock()
		if cond(c.state) {
			c.mu.Unlock()
			return
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}

func (c *console) snapshot() progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func assistantLabel(kind provider.Kind) string {
	if info, ok := provider.Lookup(kind); ok {
		return color.MagentaString(info.String())
	}
	return color.MagentaString("Assistant")
}
