package commitment

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"

	"github.com/pkg/errors"
)

// SaltSize is the length of the random blinding factor.
const SaltSize = 32

// Commitment represents the output of a commitment scheme.
// C = H(D, len(part_1), part_1, ..., len(part_k), part_k)
type Commitment struct {
	C []byte // the commitment value (hash)
	D []byte // the decommitment value (blinding salt)
}

// New commits to the ordered parts with a fresh random salt.
func New(parts ...[]byte) (*Commitment, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "commitment: read salt")
	}
	return &Commitment{
		C: digest(salt, parts),
		D: salt,
	}, nil
}

// Verify checks that (c, d) opens to the ordered parts.
func Verify(c, d []byte, parts ...[]byte) bool {
	if len(c) != sha256.Size || len(d) != SaltSize {
		return false
	}
	return subtle.ConstantTimeCompare(digest(d, parts), c) == 1
}

// Length prefixes keep ("ab","c") and ("a","bc") apart.
func digest(salt []byte, parts [][]byte) []byte {
	hash := sha256.New()
	hash.Write(salt)
	var l [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(l[:], uint64(len(p)))
		hash.Write(l[:])
		hash.Write(p)
	}
	return hash.Sum(nil)
}
