package uuidx

import "github.com/google/uuid"

// New generates a new UUID using the version 7 format and returns it.
// Version 7 ids sort by creation time, which keeps conversation ids ordered
// without relying on the wall clock alone for uniqueness.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString generates a new version 7 UUID and returns it as a string.
func NewString() string {
	return New().String()
}

// Valid reports whether s parses as a UUID of any version.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
