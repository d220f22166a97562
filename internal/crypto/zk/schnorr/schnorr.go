// Package schnorr provides non-interactive Schnorr proofs over any
// curves.Curve: knowledge of x with X = x*G, and knowledge of (s, l) with
// V = s*R + l*G.
package schnorr

import (
	"crypto/sha256"
	"math/big"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/curves"
	"github.com/smallyu/go-tss/internal/encoding"
)

var (
	ErrVerify       = errors.New("schnorr: discrete log proof failed")
	ErrVerifyLinear = errors.New("schnorr: two-base proof failed")
)

// Proof represents a Schnorr proof of knowledge of a discrete logarithm.
type Proof struct {
	R []byte   // Commitment R = k * G
	S *big.Int // Response s = k + e * x
}

// LinearProof proves knowledge of (s, l) such that V = s*R + l*G.
type LinearProof struct {
	A []byte   // Commitment A = a*R + b*G
	T *big.Int // t = a + e*s
	U *big.Int // u = b + e*l
}

// Prove generates a Schnorr proof for the secret x, public key X = x*G.
// ctx binds the proof to a session and prover.
func Prove(curve curves.Curve, ctx []byte, x *big.Int, X []byte) (*Proof, error) {
	if x == nil || X == nil {
		return nil, errors.New("schnorr: inputs cannot be nil")
	}

	// 1. Generate random nonce k
	k, err := curve.ScalarRandom()
	if err != nil {
		return nil, err
	}

	// 2. Compute R = k * G
	R, err := curve.BasePointMult(k)
	if err != nil {
		return nil, err
	}

	// 3. Compute challenge e = H(ctx, X, R)
	e := challenge(curve, ctx, X, R)

	// 4. Compute s = k + e * x mod n
	s := curve.ScalarAdd(k, curve.ScalarMult(e, x))

	return &Proof{R: R, S: s}, nil
}

// Verify checks the validity of the Schnorr proof for public key X.
func (p *Proof) Verify(curve curves.Curve, ctx []byte, X []byte) error {
	if p == nil || p.R == nil || p.S == nil || X == nil {
		return errors.Wrap(ErrVerify, "incomplete proof")
	}
	if p.S.Sign() < 0 || p.S.Cmp(curve.Order()) >= 0 {
		return errors.Wrap(ErrVerify, "response out of range")
	}

	e := challenge(curve, ctx, X, p.R)

	// s*G = R + e*X
	lhs, err := curve.BasePointMult(p.S)
	if err != nil {
		return errors.Wrapf(ErrVerify, "s*G: %v", err)
	}
	eX, err := curve.PointMultiply(X, e)
	if err != nil {
		return errors.Wrapf(ErrVerify, "e*X: %v", err)
	}
	rhs, err := curve.PointAdd(p.R, eX)
	if err != nil {
		return errors.Wrapf(ErrVerify, "R + e*X: %v", err)
	}
	if string(lhs) != string(rhs) {
		return ErrVerify
	}
	return nil
}

// ProveLinear proves knowledge of s and l with V = s*R + l*G.
func ProveLinear(curve curves.Curve, ctx []byte, s, l *big.Int, R, V []byte) (*LinearProof, error) {
	if s == nil || l == nil || R == nil || V == nil {
		return nil, errors.New("schnorr: inputs cannot be nil")
	}
	a, err := curve.ScalarRandom()
	if err != nil {
		return nil, err
	}
	b, err := curve.ScalarRandom()
	if err != nil {
		return nil, err
	}
	A, err := linear(curve, a, b, R)
	if err != nil {
		return nil, err
	}

	e := challenge(curve, ctx, R, V, A)
	return &LinearProof{
		A: A,
		T: curve.ScalarAdd(a, curve.ScalarMult(e, s)),
		U: curve.ScalarAdd(b, curve.ScalarMult(e, l)),
	}, nil
}

// Verify checks the proof against the base R and the public V.
func (p *LinearProof) Verify(curve curves.Curve, ctx []byte, R, V []byte) error {
	if p == nil || p.A == nil || p.T == nil || p.U == nil || R == nil || V == nil {
		return errors.Wrap(ErrVerifyLinear, "incomplete proof")
	}
	q := curve.Order()
	if p.T.Sign() < 0 || p.T.Cmp(q) >= 0 || p.U.Sign() < 0 || p.U.Cmp(q) >= 0 {
		return errors.Wrap(ErrVerifyLinear, "response out of range")
	}

	e := challenge(curve, ctx, R, V, p.A)

	// t*R + u*G = A + e*V
	lhs, err := linear(curve, p.T, p.U, R)
	if err != nil {
		return errors.Wrapf(ErrVerifyLinear, "t*R + u*G: %v", err)
	}
	eV, err := curve.PointMultiply(V, e)
	if err != nil {
		return errors.Wrapf(ErrVerifyLinear, "e*V: %v", err)
	}
	rhs, err := curve.PointAdd(p.A, eV)
	if err != nil {
		return errors.Wrapf(ErrVerifyLinear, "A + e*V: %v", err)
	}
	if string(lhs) != string(rhs) {
		return ErrVerifyLinear
	}
	return nil
}

// linear returns a*R + b*G.
func linear(curve curves.Curve, a, b *big.Int, R []byte) ([]byte, error) {
	aR, err := curve.PointMultiply(R, a)
	if err != nil {
		return nil, err
	}
	bG, err := curve.BasePointMult(b)
	if err != nil {
		return nil, err
	}
	return curve.PointAdd(aR, bG)
}

// challenge computes H(ctx, points...) mod n over length-prefixed fields.
func challenge(curve curves.Curve, ctx []byte, points ...[]byte) *big.Int {
	h := sha256.New()
	h.Write([]byte(curve.Name()))
	for _, b := range append([][]byte{ctx}, points...) {
		h.Write(encoding.BigToBytes(big.NewInt(int64(len(b))), 8))
		h.Write(b)
	}
	e := new(big.Int).SetBytes(h.Sum(nil))
	return e.Mod(e, curve.Order())
}
