package ids

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultLength is the standard length for generated IDs.
const DefaultLength = 12

// Alphabet is the character set used for generated IDs. Lowercase only so
// that prefix matching stays case-insensitive.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generate returns a random ID of the given length drawn from Alphabet.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	return gonanoid.Generate(Alphabet, length)
}

// MustGenerate is like Generate but panics on failure.
func MustGenerate(length int) string {
	if length <= 0 {
		return ""
	}
	return gonanoid.MustGenerate(Alphabet, length)
}
