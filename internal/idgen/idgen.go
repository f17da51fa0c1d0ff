// Package idgen mints and validates note identifiers of the fixed shape
// "n-" + 8 lowercase hex characters. The legacy-identifier to new-ID
// mapping from the v1.1.0 -> v2.0.0 migration is kept by internal/store.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

var idPattern = regexp.MustCompile(`^n-[0-9a-f]{8}$`)

// IsNoteID reports whether s matches the note-ID shape exactly.
func IsNoteID(s string) bool {
	return idPattern.MatchString(s)
}

// Generate draws 4 random bytes and hex-encodes them into a new ID.
// Collision handling against a live store is the caller's
// responsibility via GenerateUnique.
func Generate() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "n-" + hex.EncodeToString(b[:]), nil
}

// Exists reports whether id is already in use. Implemented by the
// index store.
type Exists func(id string) (bool, error)

// GenerateUnique regenerates until Exists reports false, matching the
// insert-conflict-then-retry policy from §4.2.
func GenerateUnique(exists Exists) (string, error) {
	for {
		id, err := Generate()
		if err != nil {
			return "", err
		}
		taken, err := exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
}
