// Package plumbing implements the core value types shared by the format
// readers: object ids and object types.
package plumbing

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"github.com/gitmeta/gitmeta/plumbing/hash"
)

// Hash is the SHA-1 id of a git object, 20 raw bytes or 40 hex characters.
// The first two hex characters select both the loose object subdirectory
// and the fan-out bucket of a pack index.
type Hash [hash.Size]byte

// ZeroHash is Hash with value zero.
var ZeroHash Hash

// NewHash returns a new Hash from its hexadecimal representation, upper or
// mixed case included. Invalid input yields ZeroHash.
func NewHash(s string) Hash {
	b, _ := hex.DecodeString(s)

	var h Hash
	copy(h[:], b)

	return h
}

func (h Hash) IsZero() bool {
	var empty Hash
	return h == empty
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns the raw 20 bytes of the hash.
func (h Hash) Bytes() []byte {
	return h[:]
}

// Compare compares the hash's sum with a slice of bytes.
func (h Hash) Compare(b []byte) int {
	return bytes.Compare(h[:], b)
}

// ComputeHash derives the object id git assigns to an object of the given
// type and content, over the canonical `<type> <size>\x00<content>` frame.
func ComputeHash(t ObjectType, content []byte) Hash {
	hasher := hash.New()
	hasher.Write(t.Bytes())
	hasher.Write([]byte(" " + strconv.Itoa(len(content))))
	hasher.Write([]byte{0})
	hasher.Write(content)

	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}
