package events

import (
	"context"
	"log/slog"

	"github.com/casualjim/codelens/messages"
	"github.com/casualjim/codelens/pkg/slogx"
)

// Hook receives conversation events. Implementations must be safe to call from
// a goroutine other than the one that published the event.
type Hook interface {
	OnMessage(ctx context.Context, conversationID string, msg messages.Message)
	OnChunk(ctx context.Context, chunk ChunkReceived)
	OnDelim(ctx context.Context, delim Delim)
	OnStatus(ctx context.Context, status StatusChanged)
	OnBusy(ctx context.Context, busy bool)
	OnReset(ctx context.Context, conversationID string)
}

// Dispatch calls the hook method matching the event.
func Dispatch(ctx context.Context, hook Hook, event Event) {
	switch event := event.(type) {
	case MessageAppended:
		hook.OnMessage(ctx, event.ConversationID, event.Message)
	case ChunkReceived:
		hook.OnChunk(ctx, event)
	case Delim:
		hook.OnDelim(ctx, event)
	case StatusChanged:
		hook.OnStatus(ctx, event)
	case BusyChanged:
		hook.OnBusy(ctx, event.Busy)
	case Reset:
		hook.OnReset(ctx, event.ConversationID)
	default:
		slog.WarnContext(ctx, "unknown event type", slog.String("type", typeOf(event)))
	}
}

func typeOf(event Event) string {
	if event == nil {
		return "<nil>"
	}
	return event.typeName()
}

// NoopHook ignores every event. Embed it to implement only some of the methods.
type NoopHook struct{}

func (NoopHook) OnMessage(context.Context, string, messages.Message) {}
func (NoopHook) OnChunk(context.Context, ChunkReceived)              {}
func (NoopHook) OnDelim(context.Context, Delim)                      {}
func (NoopHook) OnStatus(context.Context, StatusChanged)             {}
func (NoopHook) OnBusy(context.Context, bool)                        {}
func (NoopHook) OnReset(context.Context, string)                     {}

// LoggingHook logs every event at debug level.
func LoggingHook() Hook {
	return loggingHook{}
}

type loggingHook struct{}

func (loggingHook) OnMessage(ctx context.Context, conversationID string, msg messages.Message) {
	slog.DebugContext(ctx, "message appended",
		slogx.Conversation(conversationID),
		slogx.Message(msg.ID),
		slog.String("sender", string(msg.Sender)),
		slog.String("type", string(msg.Type)),
	)
}

func (loggingHook) OnChunk(ctx context.Context, chunk ChunkReceived) {
	slog.DebugContext(ctx, "chunk received", slogx.Message(chunk.MessageID), slog.Int("size", len(chunk.Chunk)))
}

func (loggingHook) OnDelim(ctx context.Context, delim Delim) {
	slog.DebugContext(ctx, "stream "+delim.Delim, slogx.Message(delim.MessageID))
}

func (loggingHook) OnStatus(ctx context.Context, status StatusChanged) {
	slog.DebugContext(ctx, "connection status changed", slog.String("status", status.Status))
}

func (loggingHook) OnBusy(ctx context.Context, busy bool) {
	slog.DebugContext(ctx, "busy changed", slog.Bool("busy", busy))
}

func (loggingHook) OnReset(ctx context.Context, conversationID string) {
	slog.DebugContext(ctx, "conversation reset", slogx.Conversation(conversationID))
}
