// Package id generates short prefixed identifiers for inbox files and requests.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes in use.
const (
	PrefixInbox   = "in"
	PrefixRequest = "req"
)

// Lowercase alphanumerics keep ids safe in file names on case-insensitive filesystems.
const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	size     = 16
)

// Generate creates a prefixed unique ID, e.g. "in-4f9k2m0x7q1z8c3b".
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Valid reports whether id was produced by Generate with prefix.
func Valid(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	if !ok || len(rest) != size {
		return false
	}
	for _, c := range rest {
		if !strings.ContainsRune(alphabet, c) {
			return false
		}
	}
	return true
}
