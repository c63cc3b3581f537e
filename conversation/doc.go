// Package conversation drives a code explanation conversation.
//
// An Orchestrator owns the message list, the conversation id, a busy flag and
// the connection status. It calls the gateway for every user request and folds
// the results, or the streamed chunks, into the message list:
//
//	Empty --first message--> Active --Reset--> Empty
//	Idle --Submit/SubmitStreaming/Insights--> Busy --> Idle
//
// Only one request is in flight at a time; a second one fails with ErrBusy.
// Requests made before a provider is configured fail with
// ErrConfigurationRequired without touching the conversation or the gateway.
// Gateway failures are appended as system error messages and never retried.
//
// After every appended message a Snapshot is written to the store under
// store.KeyConversation. Load restores it; a snapshot that cannot be decoded is
// discarded.
//
// When a broker.Topic is configured with WithTopic, every state change is
// published as an event, see package events.
package conversation
