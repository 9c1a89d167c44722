// Package gameid generates sortable, prefixed identifiers for rooms and
// games, e.g. room_01j9z3q4w8f6r2m5t7v9x1c3b5.
package gameid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// encodedLen is the length of a base32 encoded UUID
const encodedLen = 26

const (
	PrefixRoom = "room"
	PrefixGame = "game"
)

// New returns prefix_<base32 UUIDv7>. IDs with the same prefix sort by
// creation time.
func New(prefix string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return prefix + "_" + encodeBase32(id), nil
}

// Room returns a new room ID
func Room() (string, error) {
	return New(PrefixRoom)
}

// Game returns a new game ID
func Game() (string, error) {
	return New(PrefixGame)
}

// encodeBase32 encodes 128 bits as 26 characters, most significant first.
// The two leading pad bits keep the first character within 0-7.
func encodeBase32(data [16]byte) string {
	out := make([]byte, encodedLen)
	var acc uint32
	bits := 2 // pad bits
	pos := 0
	for _, b := range data {
		acc = acc<<8 | uint32(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out[pos] = alphabet[(acc>>bits)&0x1f]
			pos++
		}
	}
	return string(out)
}

func decodeBase32(s string) ([16]byte, error) {
	var out [16]byte
	if len(s) != encodedLen {
		return out, fmt.Errorf("encoded part must be exactly %d characters, got %d", encodedLen, len(s))
	}
	if s[0] > '7' {
		return out, fmt.Errorf("first character must be 0-7, got %c", s[0])
	}
	var acc uint32
	bits := -2 // drop the pad bits
	pos := 0
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(alphabet, s[i])
		if v < 0 {
			return out, fmt.Errorf("invalid character %c at position %d", s[i], i)
		}
		acc = acc<<5 | uint32(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out[pos] = byte(acc >> bits)
			pos++
		}
	}
	return out, nil
}

// Parse splits id into its prefix and UUID
func Parse(id string) (string, uuid.UUID, error) {
	prefix, encoded, ok := strings.Cut(id, "_")
	if !ok || prefix == "" {
		return "", uuid.Nil, fmt.Errorf("id %q has no prefix", id)
	}
	raw, err := decodeBase32(encoded)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("id %q: %w", id, err)
	}
	u := uuid.UUID(raw)
	if u.Version() != 7 {
		return "", uuid.Nil, fmt.Errorf("id %q is not a version 7 uuid", id)
	}
	return prefix, u, nil
}

// Validate checks that id is well formed and carries prefix
func Validate(prefix, id string) error {
	got, _, err := Parse(id)
	if err != nil {
		return err
	}
	if got != prefix {
		return fmt.Errorf("id %q has prefix %q, want %q", id, got, prefix)
	}
	return nil
}
