package uid

import "github.com/google/uuid"

// New generates a new unique identifier.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether id is a well-formed identifier.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
