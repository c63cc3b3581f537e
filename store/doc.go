// Package store persists settings and the conversation snapshot.
//
// Every backend implements Store: Memory (process memory), Bolt (a bbolt
// file), SQLite (a SQLite database) and NATS (a JetStream key-value bucket).
// The keys the application uses are KeyProvider, KeyConversation and one
// credential key per provider, see CredentialKey.
package store
