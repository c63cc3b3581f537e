package events

import (
	"github.com/casualjim/codelens/messages"
	"github.com/casualjim/codelens/provider"
	"github.com/go-openapi/strfmt"
)

const (
	DelimStart = "start"
	DelimEnd   = "end"
)

// Event is implemented by every conversation event.
type Event interface {
	isEvent()
	typeName() string
}

// MessageAppended is published when a message is added to the conversation.
type MessageAppended struct {
	ConversationID string           `json:"conversation_id,omitempty"`
	Message        messages.Message `json:"message"`
	Timestamp      strfmt.DateTime  `json:"timestamp"`
}

// ChunkReceived is published for every streamed increment folded into a message.
type ChunkReceived struct {
	ConversationID string          `json:"conversation_id,omitempty"`
	MessageID      int64           `json:"message_id"`
	Chunk          string          `json:"chunk"`
	Timestamp      strfmt.DateTime `json:"timestamp"`
}

// Delim marks the start and the end of a stream for a message.
type Delim struct {
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      int64  `json:"message_id"`
	Delim          string `json:"delim"`
}

// StatusChanged is published when the connection status changes.
type StatusChanged struct {
	Status    string                     `json:"status"`
	Result    *provider.ConnectionResult `json:"result,omitempty"`
	Timestamp strfmt.DateTime            `json:"timestamp"`
}

// BusyChanged is published when a request starts or finishes.
type BusyChanged struct {
	Busy      bool            `json:"busy"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// Reset is published when the conversation is cleared.
type Reset struct {
	ConversationID string          `json:"conversation_id,omitempty"`
	Timestamp      strfmt.DateTime `json:"timestamp"`
}

func (MessageAppended) isEvent() {}
func (ChunkReceived) isEvent()   {}
func (Delim) isEvent()           {}
func (StatusChanged) isEvent()   {}
func (BusyChanged) isEvent()     {}
func (Reset) isEvent()           {}

func (MessageAppended) typeName() string { return "message" }
func (ChunkReceived) typeName() string   { return "chunk" }
func (Delim) typeName() string           { return "delim" }
func (StatusChanged) typeName() string   { return "status" }
func (BusyChanged) typeName() string     { return "busy" }
func (Reset) typeName() string           { return "reset" }
