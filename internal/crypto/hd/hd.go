// Package hd derives unhardened child keys from a joint public key and
// chaincode. Only public data enters the derivation, so every party of a
// threshold key computes the same child and the same private-key tweak.
package hd

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// HardenedOffset is the first hardened child index.
const HardenedOffset uint32 = 0x80000000

var (
	ErrInvalidPath  = errors.New("hd: invalid derivation path")
	ErrHardened     = errors.New("hd: hardened derivation requires the full private key")
	ErrInvalidChild = errors.New("hd: derived key is invalid")
)

// Derivation is a child public key and chaincode together with the scalar a
// holder of the parent private key adds to obtain the child private key.
type Derivation struct {
	PublicKey []byte
	ChainCode []byte
	// Tweak is added to the parent private key modulo the group order.
	Tweak *big.Int
	// PrefixTweak is added to the ed25519 nonce prefix modulo 2^256. It is
	// zero for secp256k1.
	PrefixTweak *big.Int
}

// ParsePath parses "m/0/1" or "0/1" into child indices. Hardened
// components are rejected.
func ParsePath(path string) ([]uint32, error) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "m")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, nil
	}

	parts := strings.Split(path, "/")
	indices := make([]uint32, 0, len(parts))
	for _, p := range parts {
		if strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h") {
			return nil, errors.Wrapf(ErrHardened, "component %q", p)
		}
		idx, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidPath, "component %q", p)
		}
		if uint32(idx) >= HardenedOffset {
			return nil, errors.Wrapf(ErrHardened, "index %d", idx)
		}
		indices = append(indices, uint32(idx))
	}
	return indices, nil
}

func hmac512(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha512.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

func checkChainCode(chaincode []byte) error {
	if len(chaincode) != 32 {
		return errors.Wrapf(ErrInvalidPath, "chaincode must be 32 bytes, got %d", len(chaincode))
	}
	return nil
}

func indexBE(index uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, index)
	return b
}

func indexLE(index uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, index)
	return b
}
