// Package events defines the notifications a conversation publishes to its
// observers, such as a terminal front end or a remote listener.
//
// Event hierarchy:
//   - Event: sealed interface for all conversation events
//     ├── MessageAppended: a message was added
//     ├── ChunkReceived: a streamed increment was folded into a message
//     ├── Delim: start and end of a stream
//     ├── StatusChanged: connection test progress and outcome
//     ├── BusyChanged: a request started or finished
//     └── Reset: the conversation was cleared
//
// Events serialize to JSON with a "type" discriminator (ToJSON, FromJSON) so
// they can cross process boundaries. A Hook receives events one method per
// kind; Dispatch routes an event to the matching method.
//
// Example usage:
//
//	type printer struct{ events.NoopHook }
//
//	func (printer) OnChunk(_ context.Context, c events.ChunkReceived) {
//	    fmt.Print(c.Chunk)
//	}
//
//	events.Dispatch(ctx, printer{}, events.ChunkReceived{MessageID: 2, Chunk: "Hello"})
package events
