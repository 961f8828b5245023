package id

import (
	"strings"

	"github.com/google/uuid"
)

// NewID32 returns a random UUID as 32 lowercase hex characters.
func NewID32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
