// Package id generates URL-safe identifiers for evaluation runs.
//
// Identifiers are UUIDv4 bytes encoded as lowercase base32 (RFC 4648) with no
// padding, giving 26-character strings that are safe in file names.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new random identifier.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(value[:])), nil
}
