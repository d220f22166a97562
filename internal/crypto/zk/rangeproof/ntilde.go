package rangeproof

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"hash"
	"io"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/smallyu/go-tss/internal/encoding"
)

// NtildeIterations is the number of discrete-log proof rounds per direction.
const NtildeIterations = 128

var (
	one = big.NewInt(1)
	two = big.NewInt(2)

	ErrNtilde = errors.New("rangeproof: ntilde proof failed")
)

// Ntilde is an auxiliary RSA modulus with two generators of its
// quadratic-residue subgroup, used by the verifier of a range proof.
type Ntilde struct {
	N  *big.Int
	H1 *big.Int
	H2 *big.Int
}

// NtildeProof is a batch of discrete-log proofs that H1^x = H2 for a
// known x: H1^T[i] = Alpha[i] * H2^c_i.
type NtildeProof struct {
	Alpha []*big.Int
	T     []*big.Int
}

// NtildeWithProofs carries both directions of the discrete-log relation
// between H1 and H2.
type NtildeWithProofs struct {
	Ntilde
	H1WrtH2 *NtildeProof
	H2WrtH1 *NtildeProof
}

// GenerateNtilde builds Ntilde = p*q from two safe primes with
// h1 = f1^2 and h2 = h1^f2, and proves both discrete logs.
func GenerateNtilde(ctx context.Context, random io.Reader, bits int) (*NtildeWithProofs, error) {
	bitsP := bits / 2
	bitsQ := bits - bitsP

	const retry = 10
	for i := 0; i < retry; i++ {
		var p, q *big.Int
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			p, err = GenerateSafePrime(gctx, random, bitsP)
			return err
		})
		g.Go(func() (err error) {
			q, err = GenerateSafePrime(gctx, random, bitsQ)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		n := new(big.Int).Mul(p, q)
		if n.BitLen() != bits || p.Cmp(q) == 0 {
			continue
		}

		// q1, q2 are the Sophie Germain primes behind p and q
		q1 := new(big.Int).Rsh(p, 1)
		q2 := new(big.Int).Rsh(q, 1)
		order := new(big.Int).Mul(q1, q2)

		f1, err := randomUnit(random, n)
		if err != nil {
			return nil, err
		}
		f2, err := randomUnit(random, order)
		if err != nil {
			return nil, err
		}
		h1 := new(big.Int).Exp(f1, two, n)
		h2 := new(big.Int).Exp(h1, f2, n)
		beta := new(big.Int).ModInverse(f2, order)

		nt := Ntilde{N: n, H1: h1, H2: h2}
		h1WrtH2, err := GenerateNtildeProof(random, nt, f2, q1, q2)
		if err != nil {
			return nil, err
		}
		h2WrtH1, err := GenerateNtildeProof(random, Ntilde{N: n, H1: h2, H2: h1}, beta, q1, q2)
		if err != nil {
			return nil, err
		}
		return &NtildeWithProofs{Ntilde: nt, H1WrtH2: h1WrtH2, H2WrtH1: h2WrtH1}, nil
	}
	return nil, errors.Errorf("rangeproof: unable to generate a %d-bit modulus after %d tries", bits, retry)
}

// GenerateNtildeProof proves knowledge of x with H1^x = H2 in the subgroup of
// order q1*q2.
func GenerateNtildeProof(random io.Reader, nt Ntilde, x, q1, q2 *big.Int) (*NtildeProof, error) {
	order := new(big.Int).Mul(q1, q2)
	size := encoding.ByteLen(nt.N)

	a := make([]*big.Int, NtildeIterations)
	alpha := make([]*big.Int, NtildeIterations)
	h := ntildeTranscript(nt)
	for i := range a {
		ai, err := rand.Int(random, order)
		if err != nil {
			return nil, errors.Wrap(err, "rangeproof: read randomness")
		}
		a[i] = ai
		alpha[i] = new(big.Int).Exp(nt.H1, ai, nt.N)
		h.Write(encoding.BigToBytes(alpha[i], size))
	}
	challenge := h.Sum(nil)

	t := make([]*big.Int, NtildeIterations)
	for i := range t {
		ti := new(big.Int).Set(a[i])
		if challengeBit(challenge, i) == 1 {
			ti.Add(ti, x)
		}
		t[i] = ti.Mod(ti, order)
	}
	return &NtildeProof{Alpha: alpha, T: t}, nil
}

// VerifyNtildeProof checks a proof produced by GenerateNtildeProof.
func VerifyNtildeProof(nt Ntilde, proof *NtildeProof) error {
	if nt.N == nil || nt.H1 == nil || nt.H2 == nil || nt.N.Sign() <= 0 {
		return errors.Wrap(ErrNtilde, "missing parameters")
	}
	h1 := new(big.Int).Mod(nt.H1, nt.N)
	h2 := new(big.Int).Mod(nt.H2, nt.N)
	if h1.Sign() == 0 || h2.Sign() == 0 || h1.Cmp(one) == 0 || h2.Cmp(one) == 0 {
		return errors.Wrap(ErrNtilde, "degenerate generator")
	}
	if h1.Cmp(h2) == 0 {
		return errors.Wrap(ErrNtilde, "h1 equals h2")
	}
	if proof == nil || len(proof.Alpha) != NtildeIterations || len(proof.T) != NtildeIterations {
		return errors.Wrapf(ErrNtilde, "expected %d iterations", NtildeIterations)
	}

	size := encoding.ByteLen(nt.N)
	h := ntildeTranscript(nt)
	for _, a := range proof.Alpha {
		if a == nil || a.Sign() < 0 || a.Cmp(nt.N) >= 0 {
			return errors.Wrap(ErrNtilde, "alpha out of range")
		}
		h.Write(encoding.BigToBytes(a, size))
	}
	challenge := h.Sum(nil)

	for i := range proof.Alpha {
		if proof.T[i] == nil || proof.T[i].Sign() < 0 {
			return errors.Wrap(ErrNtilde, "negative response")
		}
		lhs := new(big.Int).Exp(nt.H1, proof.T[i], nt.N)
		rhs := new(big.Int).Set(proof.Alpha[i])
		if challengeBit(challenge, i) == 1 {
			rhs.Mul(rhs, nt.H2)
		}
		rhs.Mod(rhs, nt.N)
		if lhs.Cmp(rhs) != 0 {
			return errors.Wrapf(ErrNtilde, "iteration %d", i)
		}
	}
	return nil
}

// Verify checks both discrete-log directions.
func (nt *NtildeWithProofs) Verify() error {
	if err := VerifyNtildeProof(nt.Ntilde, nt.H1WrtH2); err != nil {
		return errors.Wrap(err, "h1 wrt h2")
	}
	swapped := Ntilde{N: nt.N, H1: nt.H2, H2: nt.H1}
	if err := VerifyNtildeProof(swapped, nt.H2WrtH1); err != nil {
		return errors.Wrap(err, "h2 wrt h1")
	}
	return nil
}

func ntildeTranscript(nt Ntilde) hash.Hash {
	h := sha256.New()
	h.Write(nt.H1.Bytes())
	h.Write(nt.H2.Bytes())
	h.Write(nt.N.Bytes())
	return h
}

// challengeBit reads bit i of b, most significant bit first.
func challengeBit(b []byte, i int) uint {
	return uint(b[i/8]>>(7-i%8)) & 1
}

// randomUnit returns a uniform element of [1, n) coprime to n.
func randomUnit(random io.Reader, n *big.Int) (*big.Int, error) {
	for {
		x, err := rand.Int(random, n)
		if err != nil {
			return nil, errors.Wrap(err, "rangeproof: read randomness")
		}
		if x.Sign() > 0 && new(big.Int).GCD(nil, nil, x, n).Cmp(one) == 0 {
			return x, nil
		}
	}
}
