package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new unique identifier string
func GenerateID() string {
	return uuid.New().String()
}

// IsValidID reports whether s is a canonical UUID, the only form client
// supplied bid IDs are accepted in
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}
