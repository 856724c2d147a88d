package common

import "github.com/google/uuid"

// NewPrefixedID generates a unique identifier of the form "<prefix>_<uuid>", used for
// IPC task IDs and other process-local identifiers that are not derived from a URL.
func NewPrefixedID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}
