// Package encoding converts big integers to and from the fixed-width hex
// strings carried inside share structures.
package encoding

import (
	"encoding/hex"
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/pkg/tss"
)

// BigToBytes returns x as a big-endian byte slice of exactly size bytes.
// It panics if x is negative or does not fit.
func BigToBytes(x *big.Int, size int) []byte {
	if x.Sign() < 0 || (x.BitLen()+7)/8 > size {
		panic("encoding: integer does not fit in requested width")
	}
	return x.FillBytes(make([]byte, size))
}

// BigToBytesLE returns x as a little-endian byte slice of exactly size bytes.
func BigToBytesLE(x *big.Int, size int) []byte {
	return Reverse(BigToBytes(x, size))
}

// BytesToBigLE interprets b as a little-endian integer.
func BytesToBigLE(b []byte) *big.Int {
	return new(big.Int).SetBytes(Reverse(b))
}

// Reverse returns a reversed copy of b.
func Reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}

// BigToHex encodes x as zero-padded big-endian hex of size bytes.
func BigToHex(x *big.Int, size int) string {
	return hex.EncodeToString(BigToBytes(x, size))
}

// BigToHexLE encodes x as zero-padded little-endian hex of size bytes.
func BigToHexLE(x *big.Int, size int) string {
	return hex.EncodeToString(BigToBytesLE(x, size))
}

// HexToBig decodes big-endian hex.
func HexToBig(s string) (*big.Int, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(tss.ErrDecode, "hex: %v", err)
	}
	return new(big.Int).SetBytes(b), nil
}

// HexToBigLE decodes little-endian hex.
func HexToBigLE(s string) (*big.Int, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(tss.ErrDecode, "hex: %v", err)
	}
	return BytesToBigLE(b), nil
}

// HexToBytes decodes hex and checks the decoded length when size > 0.
func HexToBytes(s string, size int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(tss.ErrDecode, "hex: %v", err)
	}
	if size > 0 && len(b) != size {
		return nil, errors.Wrapf(tss.ErrDecode, "expected %d bytes, got %d", size, len(b))
	}
	return b, nil
}

// ByteLen is the number of bytes needed to hold any value below m.
func ByteLen(m *big.Int) int {
	return (m.BitLen() + 7) / 8
}

// Hex is a byte string carried as lowercase hex in JSON. Share structures
// hold fixed-width encodings in Hex fields.
type Hex []byte

func (h Hex) String() string {
	return hex.EncodeToString(h)
}

func (h Hex) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *Hex) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrapf(tss.ErrDecode, "hex: %v", err)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return errors.Wrapf(tss.ErrDecode, "hex: %v", err)
	}
	*h = raw
	return nil
}
