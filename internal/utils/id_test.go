package utils

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewIDIsUniqueUUID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Fatalf("ids collided: %s", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("not a uuid: %q: %v", a, err)
	}
}
