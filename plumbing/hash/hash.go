// Package hash provides the hash function used to derive git object ids.
package hash

import (
	"crypto"
	"hash"

	"github.com/pjbgf/sha1cd"
)

const (
	// CryptoType defines what hash algorithm is being used.
	CryptoType = crypto.SHA1
	// Size defines the amount of bytes the hash yields.
	Size = 20
	// HexSize defines the strings size of the hash when represented in hexadecimal.
	HexSize = 40
)

// New returns a new SHA-1 hash with collision detection. Object ids are
// derived with it, matching the hardened SHA-1 git uses.
func New() hash.Hash {
	return sha1cd.New()
}
