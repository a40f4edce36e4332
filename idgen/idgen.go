// Package idgen provides pluggable ID generation.
//
// Check IDs and trace IDs are produced through a Generator so tests can pin
// them and the service can pick the strategy at startup.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, so check IDs order the same way in logs and in time.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Hex returns a Generator of n random bytes, hex-encoded. Short enough for
// response headers.
func Hex(n int) Generator {
	return func() string {
		b := make([]byte, n)
		if _, err := rand.Read(b); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		return hex.EncodeToString(b)
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID
// (e.g. "chk_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a deterministic Generator yielding prefix + 1, 2, 3...
// Not safe for concurrent use; intended for tests.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}
