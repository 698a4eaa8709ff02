// Package uuid generates identifiers used to correlate log records of a
// single CA operation.
package uuid

import "github.com/google/uuid"

// New returns a random (version 4) UUID string.
func New() string {
	return uuid.NewString()
}
