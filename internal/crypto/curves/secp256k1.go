package curves

import (
	"crypto/sha256"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/encoding"
)

// Secp256k1 implements Curve with 33-byte compressed point encoding.
type Secp256k1 struct {
	scalarField
}

func NewSecp256k1() *Secp256k1 {
	return &Secp256k1{scalarField{order: secp256k1.S256().N}}
}

func (c *Secp256k1) Name() string {
	return NameSecp256k1
}

func (c *Secp256k1) PointSize() int {
	return secp256k1.PubKeyBytesLenCompressed
}

func (c *Secp256k1) PointAdd(a, b []byte) ([]byte, error) {
	pa, err := c.decode(a)
	if err != nil {
		return nil, err
	}
	pb, err := c.decode(b)
	if err != nil {
		return nil, err
	}
	var sum secp256k1.JacobianPoint
	secp256k1.AddNonConst(pa, pb, &sum)
	return c.encode(&sum)
}

func (c *Secp256k1) PointMultiply(p []byte, k *big.Int) ([]byte, error) {
	pp, err := c.decode(p)
	if err != nil {
		return nil, err
	}
	var out secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(c.modN(k), pp, &out)
	return c.encode(&out)
}

func (c *Secp256k1) BasePointMult(k *big.Int) ([]byte, error) {
	var out secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(c.modN(k), &out)
	return c.encode(&out)
}

// Verify checks an r||s signature over SHA-256(message).
func (c *Secp256k1) Verify(message, signature, publicKey []byte) bool {
	if len(signature) != 64 {
		return false
	}
	pk, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(signature[:32]); overflow || r.IsZero() {
		return false
	}
	if overflow := s.SetByteSlice(signature[32:]); overflow || s.IsZero() {
		return false
	}
	hash := sha256.Sum256(message)
	return ecdsa.NewSignature(&r, &s).Verify(hash[:], pk)
}

func (c *Secp256k1) modN(k *big.Int) *secp256k1.ModNScalar {
	var s secp256k1.ModNScalar
	s.SetByteSlice(encoding.BigToBytes(c.ScalarReduce(k), 32))
	return &s
}

func (c *Secp256k1) decode(b []byte) (*secp256k1.JacobianPoint, error) {
	if len(b) != secp256k1.PubKeyBytesLenCompressed {
		return nil, errors.Wrapf(ErrInvalidPoint, "secp256k1: expected %d bytes, got %d",
			secp256k1.PubKeyBytesLenCompressed, len(b))
	}
	pk, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPoint, "secp256k1: %v", err)
	}
	var p secp256k1.JacobianPoint
	pk.AsJacobian(&p)
	return &p, nil
}

func (c *Secp256k1) encode(p *secp256k1.JacobianPoint) ([]byte, error) {
	if p.Z.IsZero() || (p.X.IsZero() && p.Y.IsZero()) {
		return nil, ErrIdentity
	}
	p.ToAffine()
	return secp256k1.NewPublicKey(&p.X, &p.Y).SerializeCompressed(), nil
}
