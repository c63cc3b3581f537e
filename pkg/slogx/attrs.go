package slogx

import (
	"fmt"
	"log/slog"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Stringer creates a slog.Attr with the provided key and the string representation
// of the given fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

const (
	// KeyLoggerName is the key for the component that emitted a record.
	KeyLoggerName = "logger"
	// KeyProvider is the key for the active AI provider.
	KeyProvider = "provider"
	// KeyConversation is the key for the conversation id.
	KeyConversation = "conversation_id"
	// KeyMessage is the key for a message id.
	KeyMessage = "message_id"
)

// LoggerName returns an attribute naming the component that logs.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Provider returns an attribute for the provider kind. Any string-like kind works.
func Provider[K ~string](kind K) slog.Attr {
	return slog.String(KeyProvider, string(kind))
}

// Conversation returns an attribute for a conversation id.
func Conversation(id string) slog.Attr {
	return slog.String(KeyConversation, id)
}

// Message returns an attribute for a message id.
func Message(id int64) slog.Attr {
	return slog.Int64(KeyMessage, id)
}

// Redacted returns an attribute that reveals only the last four characters of a secret.
func Redacted(key, secret string) slog.Attr {
	if len(secret) <= 4 {
		return slog.String(key, "****")
	}
	return slog.String(key, "****"+secret[len(secret)-4:])
}
