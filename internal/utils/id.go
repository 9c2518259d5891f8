package utils

import "github.com/google/uuid"

// NewID returns a random identifier for correlating requests with responses.
func NewID() string {
	return uuid.NewString()
}
