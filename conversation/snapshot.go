package conversation

import (
	"fmt"

	"github.com/casualjim/codelens/messages"
	"github.com/casualjim/codelens/provider"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
)

// Snapshot is the persisted form of a conversation.
type Snapshot struct {
	ID           string             `json:"id"`
	Messages     []messages.Message `json:"messages"`
	LastUpdated  strfmt.DateTime    `json:"lastUpdated"`
	Provider     provider.Kind      `json:"provider,omitempty"`
	MessageCount int                `json:"messageCount"`
}

// MarshalSnapshot encodes a snapshot for the store.
func MarshalSnapshot(s Snapshot) (string, error) {
	s.MessageCount = len(s.Messages)
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal conversation %s: %w", s.ID, err)
	}
	return string(data), nil
}

// UnmarshalSnapshot decodes a stored snapshot. A snapshot without an id is
// rejected. Streaming flags are cleared since no stream survives a restart.
func UnmarshalSnapshot(data string) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal conversation: %w", err)
	}
	if s.ID == "" {
		return Snapshot{}, fmt.Errorf("unmarshal conversation: missing id")
	}
	for i := range s.Messages {
		s.Messages[i].Streaming = false
	}
	s.MessageCount = len(s.Messages)
	return s, nil
}

func (s Snapshot) maxID() int64 {
	var highest int64
	for _, m := range s.Messages {
		highest = max(highest, m.ID)
	}
	return highest
}
