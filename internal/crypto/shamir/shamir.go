// Package shamir implements Shamir secret sharing with Feldman commitments
// over the scalar field of a curve.
//
// Combine interpolates whatever shares it is given. With fewer shares than the
// threshold it returns a wrong secret rather than an error, because the
// threshold is not recoverable from the shares alone; callers must check the
// share count against their threshold first.
package shamir

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/curves"
)

var (
	ErrInvalidParams = errors.New("shamir: invalid parameters")
	ErrVerify        = errors.New("shamir: share verification failed")
)

// Shamir is a stateless sharing service bound to a curve.
type Shamir struct {
	curve curves.Curve
}

func New(curve curves.Curve) *Shamir {
	return &Shamir{curve: curve}
}

// Split is the output of a split: the shares keyed by evaluation index and the
// commitments a_k*G to the non-constant coefficients.
type Split struct {
	Shares map[int]*big.Int
	V      [][]byte
}

// Split shares secret with threshold t among n indices. Indices default to 1..n.
func (s *Shamir) Split(secret *big.Int, t, n int, indices ...int) (*Split, error) {
	if t < 1 || n < t {
		return nil, errors.Wrapf(ErrInvalidParams, "threshold %d, shares %d", t, n)
	}
	if len(indices) == 0 {
		indices = make([]int, n)
		for i := range indices {
			indices[i] = i + 1
		}
	}
	if len(indices) != n {
		return nil, errors.Wrapf(ErrInvalidParams, "%d indices for %d shares", len(indices), n)
	}
	if err := s.checkIndices(indices); err != nil {
		return nil, err
	}

	poly, err := NewPolynomial(s.curve, t-1, secret)
	if err != nil {
		return nil, err
	}
	v, err := poly.Commitments()
	if err != nil {
		return nil, err
	}

	shares := make(map[int]*big.Int, n)
	for _, i := range indices {
		shares[i] = poly.Evaluate(big.NewInt(int64(i)))
	}
	return &Split{Shares: shares, V: v}, nil
}

// Verify checks share against the commitment vector, where commitments[0] is
// the commitment to the constant term and the rest are Split.V.
func (s *Shamir) Verify(share *big.Int, commitments [][]byte, index int) error {
	if len(commitments) == 0 {
		return errors.Wrap(ErrVerify, "empty commitment vector")
	}
	lhs, err := s.curve.BasePointMult(share)
	if err != nil {
		return errors.Wrapf(ErrVerify, "share*G: %v", err)
	}

	x := big.NewInt(int64(index))
	xk := big.NewInt(1)
	rhs := commitments[0]
	for _, c := range commitments[1:] {
		xk = s.curve.ScalarMult(xk, x)
		term, err := s.curve.PointMultiply(c, xk)
		if err != nil {
			return errors.Wrapf(ErrVerify, "commitment term: %v", err)
		}
		if rhs, err = s.curve.PointAdd(rhs, term); err != nil {
			return errors.Wrapf(ErrVerify, "commitment sum: %v", err)
		}
	}

	if !bytes.Equal(lhs, rhs) {
		return errors.Wrapf(ErrVerify, "index %d", index)
	}
	return nil
}

// Combine interpolates the shares at zero.
func (s *Shamir) Combine(shares map[int]*big.Int) (*big.Int, error) {
	if len(shares) == 0 {
		return nil, errors.Wrap(ErrInvalidParams, "no shares")
	}
	indices := make([]int, 0, len(shares))
	for i := range shares {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	if err := s.checkIndices(indices); err != nil {
		return nil, err
	}

	secret := new(big.Int)
	for _, i := range indices {
		lambda, err := s.lagrange(i, indices)
		if err != nil {
			return nil, err
		}
		secret = s.curve.ScalarAdd(secret, s.curve.ScalarMult(lambda, shares[i]))
	}
	return secret, nil
}

// LagrangeCoefficient returns the coefficient of index for interpolation at
// zero over indices.
func (s *Shamir) LagrangeCoefficient(index int, indices []int) (*big.Int, error) {
	if err := s.checkIndices(indices); err != nil {
		return nil, err
	}
	found := false
	for _, j := range indices {
		if j == index {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Wrapf(ErrInvalidParams, "index %d not in %v", index, indices)
	}
	return s.lagrange(index, indices)
}

// lagrange computes prod_{j != i} j / (j - i) mod q.
func (s *Shamir) lagrange(i int, indices []int) (*big.Int, error) {
	num := big.NewInt(1)
	den := big.NewInt(1)
	xi := big.NewInt(int64(i))
	for _, j := range indices {
		if j == i {
			continue
		}
		xj := big.NewInt(int64(j))
		num = s.curve.ScalarMult(num, xj)
		den = s.curve.ScalarMult(den, s.curve.ScalarSub(xj, xi))
	}
	inv, err := s.curve.ScalarInvert(den)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidParams, "duplicate index")
	}
	return s.curve.ScalarMult(num, inv), nil
}

func (s *Shamir) checkIndices(indices []int) error {
	seen := make(map[int]bool, len(indices))
	q := s.curve.Order()
	for _, i := range indices {
		if i <= 0 || big.NewInt(int64(i)).Cmp(q) >= 0 {
			return errors.Wrapf(ErrInvalidParams, "index %d out of range", i)
		}
		if seen[i] {
			return errors.Wrapf(ErrInvalidParams, "duplicate index %d", i)
		}
		seen[i] = true
	}
	return nil
}
