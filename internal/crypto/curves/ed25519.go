package curves

import (
	"crypto/sha512"
	"math/big"

	"filippo.io/edwards25519"
	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/encoding"
)

// l = 2^252 + 27742317777372353535851937790883648493
var ed25519Order, _ = new(big.Int).SetString("7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)

// Ed25519 implements Curve with 32-byte little-endian point encoding.
type Ed25519 struct {
	scalarField
}

func NewEd25519() *Ed25519 {
	return &Ed25519{scalarField{order: ed25519Order}}
}

func (c *Ed25519) Name() string {
	return NameEd25519
}

func (c *Ed25519) PointSize() int {
	return 32
}

func (c *Ed25519) PointAdd(a, b []byte) ([]byte, error) {
	pa, err := c.decode(a)
	if err != nil {
		return nil, err
	}
	pb, err := c.decode(b)
	if err != nil {
		return nil, err
	}
	return c.encode(edwards25519.NewIdentityPoint().Add(pa, pb))
}

func (c *Ed25519) PointMultiply(p []byte, k *big.Int) ([]byte, error) {
	pp, err := c.decode(p)
	if err != nil {
		return nil, err
	}
	return c.encode(edwards25519.NewIdentityPoint().ScalarMult(c.scalar(k), pp))
}

func (c *Ed25519) BasePointMult(k *big.Int) ([]byte, error) {
	return c.encode(edwards25519.NewIdentityPoint().ScalarBaseMult(c.scalar(k)))
}

// Verify checks an R||S signature per RFC 8032 (cofactorless).
func (c *Ed25519) Verify(message, signature, publicKey []byte) bool {
	if len(signature) != 64 || len(publicKey) != 32 {
		return false
	}
	A, err := edwards25519.NewIdentityPoint().SetBytes(publicKey)
	if err != nil {
		return false
	}
	S, err := edwards25519.NewScalar().SetCanonicalBytes(signature[32:])
	if err != nil {
		return false
	}

	h := sha512.New()
	h.Write(signature[:32])
	h.Write(publicKey)
	h.Write(message)
	k, err := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	if err != nil {
		return false
	}

	// R' = [S]B - [k]A
	minusA := edwards25519.NewIdentityPoint().Negate(A)
	R := edwards25519.NewIdentityPoint().VarTimeDoubleScalarBaseMult(k, minusA, S)
	return string(R.Bytes()) == string(signature[:32])
}

// Clamp applies the RFC 8032 bit-mangling to a 32-byte little-endian secret.
func Clamp(b []byte) *big.Int {
	buf := make([]byte, 32)
	copy(buf, b)
	buf[0] &= 248
	buf[31] &= 127
	buf[31] |= 64
	return encoding.BytesToBigLE(buf)
}

func (c *Ed25519) scalar(k *big.Int) *edwards25519.Scalar {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(encoding.BigToBytesLE(c.ScalarReduce(k), 32))
	if err != nil {
		// unreachable: the input is reduced modulo l
		panic(err)
	}
	return s
}

func (c *Ed25519) decode(b []byte) (*edwards25519.Point, error) {
	if len(b) != 32 {
		return nil, errors.Wrapf(ErrInvalidPoint, "ed25519: expected 32 bytes, got %d", len(b))
	}
	p, err := edwards25519.NewIdentityPoint().SetBytes(b)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPoint, "ed25519: %v", err)
	}
	if edwards25519.NewIdentityPoint().MultByCofactor(p).Equal(edwards25519.NewIdentityPoint()) == 1 {
		return nil, errors.Wrap(ErrInvalidPoint, "ed25519: small order point")
	}
	return p, nil
}

func (c *Ed25519) encode(p *edwards25519.Point) ([]byte, error) {
	if p.Equal(edwards25519.NewIdentityPoint()) == 1 {
		return nil, ErrIdentity
	}
	return p.Bytes(), nil
}
