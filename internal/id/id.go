// Package id generates prefixed unique identifiers.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes. The prefix makes IDs self-describing in logs and API
// payloads.
const (
	PrefixDocument = "doc"
	PrefixSession  = "rs"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "doc-V1StGXR8_Z5jdHi6B-myT").
//
// NanoIDs are URL-friendly, compact (21 characters vs UUID's 36),
// and use a larger alphabet for better entropy per character.
//
// Returns an error if the system has insufficient entropy for secure random
// generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use this only when failure should crash the program (e.g., during
// initialization).
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewDocument returns a fresh document ID.
func NewDocument() (string, error) {
	return Generate(PrefixDocument)
}

// NewSession returns a fresh reading session ID.
func NewSession() (string, error) {
	return Generate(PrefixSession)
}

// HasPrefix reports whether id carries the given entity prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"-")
}
