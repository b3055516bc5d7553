package utils

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID returns a time-sortable id with the given prefix, e.g. "m_01J...".
func NewID(prefix string) string {
	return prefix + "_" + ulid.Make().String()
}

// NewConnectionID returns a random id for a transport connection.
func NewConnectionID() string {
	return uuid.NewString()
}
