package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// ID is a 256-bit session identifier, hex-serialised as exactly 64 lowercase
// characters. It is constructed only from a cryptographic RNG.
type ID [32]byte

var ErrInvalidID = errors.New("session: id must be exactly 64 lowercase hex characters")

// NewID generates a fresh cryptographically random ID.
func NewID() (ID, error) {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		return ID{}, err
	}
	return id, nil
}

// ParseID decodes a 64-character hex string into an ID, rejecting any other
// length or non-hex content.
func ParseID(s string) (ID, error) {
	if len(s) != 64 {
		return ID{}, ErrInvalidID
	}
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'F' {
			return ID{}, ErrInvalidID
		}
	}
	var id ID
	n, err := hex.Decode(id[:], []byte(s))
	if err != nil || n != 32 {
		return ID{}, ErrInvalidID
	}
	return id, nil
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}
