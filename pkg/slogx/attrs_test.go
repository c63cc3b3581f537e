package slogx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type kind string

func TestAttrs(t *testing.T) {
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
	assert.Equal(t, "<nil>", Error(nil).Value.String())
	assert.Equal(t, "gemini", Provider(kind("gemini")).Value.String())
	assert.Equal(t, KeyProvider, Provider(kind("openai")).Key)
	assert.Equal(t, int64(42), Message(42).Value.Int64())
	assert.Equal(t, "abc", Conversation("abc").Value.String())
	assert.Equal(t, "gateway", LoggerName("gateway").Value.String())
}

func TestRedacted(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "empty", secret: "", want: "****"},
		{name: "short", secret: "abcd", want: "****"},
		{name: "long", secret: "sk-1234567890", want: "****7890"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redacted("key", tt.secret).Value.String())
		})
	}
}
