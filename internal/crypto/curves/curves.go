package curves

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

const (
	NameSecp256k1 = "secp256k1"
	NameEd25519   = "ed25519"
)

var (
	ErrInvalidPoint = errors.New("curves: invalid point encoding")
	ErrIdentity     = errors.New("curves: result is the identity element")
	ErrZeroScalar   = errors.New("curves: scalar is zero")
)

var one = big.NewInt(1)

// Curve is the scalar and point arithmetic of a prime-order group.
// Scalars are big integers reduced modulo Order. Points are passed in their
// canonical encoding and are validated on every decode.
type Curve interface {
	Name() string
	Order() *big.Int
	ScalarSize() int
	PointSize() int

	ScalarRandom() (*big.Int, error)
	ScalarReduce(x *big.Int) *big.Int
	ScalarAdd(x, y *big.Int) *big.Int
	ScalarSub(x, y *big.Int) *big.Int
	ScalarMult(x, y *big.Int) *big.Int
	ScalarNegate(x *big.Int) *big.Int
	ScalarInvert(x *big.Int) (*big.Int, error)

	PointAdd(a, b []byte) ([]byte, error)
	PointMultiply(p []byte, k *big.Int) ([]byte, error)
	BasePointMult(k *big.Int) ([]byte, error)

	// Verify checks a 64-byte signature over message under publicKey using
	// the curve's native signature scheme.
	Verify(message, signature, publicKey []byte) bool
}

// New returns the curve registered under name.
func New(name string) (Curve, error) {
	switch name {
	case NameSecp256k1:
		return NewSecp256k1(), nil
	case NameEd25519:
		return NewEd25519(), nil
	}
	return nil, errors.Errorf("curves: unsupported curve %q", name)
}

// WithRandom returns a copy of c whose ScalarRandom reads from random.
func WithRandom(c Curve, random io.Reader) Curve {
	switch c := c.(type) {
	case *Secp256k1:
		out := *c
		out.random = random
		return &out
	case *Ed25519:
		out := *c
		out.random = random
		return &out
	}
	return c
}

// scalarField implements the scalar half of Curve for a prime order. A nil
// random reads from crypto/rand.
type scalarField struct {
	order  *big.Int
	random io.Reader
}

func (f scalarField) Order() *big.Int {
	return new(big.Int).Set(f.order)
}

func (f scalarField) ScalarSize() int {
	return 32
}

// ScalarRandom returns a uniform scalar in [1, order).
func (f scalarField) ScalarRandom() (*big.Int, error) {
	random := f.random
	if random == nil {
		random = rand.Reader
	}
	max := new(big.Int).Sub(f.order, one)
	k, err := rand.Int(random, max)
	if err != nil {
		return nil, errors.Wrap(err, "curves: read randomness")
	}
	return k.Add(k, one), nil
}

func (f scalarField) ScalarReduce(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, f.order)
}

func (f scalarField) ScalarAdd(x, y *big.Int) *big.Int {
	z := new(big.Int).Add(x, y)
	return z.Mod(z, f.order)
}

func (f scalarField) ScalarSub(x, y *big.Int) *big.Int {
	z := new(big.Int).Sub(x, y)
	return z.Mod(z, f.order)
}

func (f scalarField) ScalarMult(x, y *big.Int) *big.Int {
	z := new(big.Int).Mul(x, y)
	return z.Mod(z, f.order)
}

func (f scalarField) ScalarNegate(x *big.Int) *big.Int {
	z := new(big.Int).Neg(x)
	return z.Mod(z, f.order)
}

func (f scalarField) ScalarInvert(x *big.Int) (*big.Int, error) {
	r := f.ScalarReduce(x)
	if r.Sign() == 0 {
		return nil, ErrZeroScalar
	}
	return r.ModInverse(r, f.order), nil
}
