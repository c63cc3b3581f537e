package messages

import (
	"time"

	"github.com/casualjim/codelens/provider"
	"github.com/go-openapi/strfmt"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// Type classifies the content of a message for rendering.
type Type string

const (
	TypeCode        Type = "code"
	TypeExplanation Type = "explanation"
	TypeInsights    Type = "insights"
	TypeSuccess     Type = "success"
	TypeError       Type = "error"
)

// Message is one entry of a conversation.
//
// Streaming is only ever true on assistant messages whose stream has not
// terminated yet.
type Message struct {
	ID        int64           `json:"id"`
	Sender    Sender          `json:"sender"`
	Type      Type            `json:"type,omitempty"`
	Content   string          `json:"content"`
	Code      string          `json:"code,omitempty"`
	Language  string          `json:"language,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
	Streaming bool            `json:"streaming,omitempty"`
	Provider  provider.Kind   `json:"provider,omitempty"`
}

// Code creates the user message carrying a code submission.
func Code(id int64, code, language string, at time.Time) Message {
	return Message{
		ID:        id,
		Sender:    SenderUser,
		Type:      TypeCode,
		Content:   code,
		Code:      code,
		Language:  language,
		Timestamp: strfmt.DateTime(at),
	}
}

// Explanation creates a completed assistant message.
func Explanation(id int64, content string, kind provider.Kind, at time.Time) Message {
	return Message{
		ID:        id,
		Sender:    SenderAssistant,
		Type:      TypeExplanation,
		Content:   content,
		Timestamp: strfmt.DateTime(at),
		Provider:  kind,
	}
}

// Placeholder creates the empty assistant message that a stream is folded into.
func Placeholder(id int64, kind provider.Kind, at time.Time) Message {
	msg := Explanation(id, "", kind, at)
	msg.Streaming = true
	return msg
}

// Insights creates an assistant message carrying coding insights.
func Insights(id int64, content string, kind provider.Kind, at time.Time) Message {
	msg := Explanation(id, content, kind, at)
	msg.Type = TypeInsights
	return msg
}

// System creates a system notice of type success or error.
func System(id int64, typ Type, content string, at time.Time) Message {
	return Message{
		ID:        id,
		Sender:    SenderSystem,
		Type:      typ,
		Content:   content,
		Timestamp: strfmt.DateTime(at),
	}
}

// IsUser reports whether the message was sent by the user.
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}

// Append adds a streamed chunk to the content.
func (m *Message) Append(chunk string) {
	m.Content += chunk
}

// Complete marks the end of the stream.
func (m *Message) Complete() {
	m.Streaming = false
}
