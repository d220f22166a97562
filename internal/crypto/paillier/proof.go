package paillier

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math/big"
	"sync"

	"github.com/pkg/errors"
)

// Proof of knowledge of the factorization of n (Goldberg, Reyzin, Sagga,
// Baldimtsi: "Efficient Noninteractive Certification of RSA Moduli").
// A prover who can take n-th roots of ProofIterations random units knows
// phi(n), and the small-factor sieve rules out moduli sharing a factor
// with phi(n).
const (
	// ProofAlpha bounds the small-factor sieve applied to n.
	ProofAlpha = 319567
	// ProofIterations is ceil(128 / log2(ProofAlpha)).
	ProofIterations = 7
)

var ErrProof = errors.New("paillier: modulus proof failed")

var (
	primorialOnce sync.Once
	primorial     *big.Int
)

// smallPrimorial returns the product of all primes below ProofAlpha.
func smallPrimorial() *big.Int {
	primorialOnce.Do(func() {
		sieve := make([]bool, ProofAlpha)
		primorial = big.NewInt(1)
		for i := 2; i < ProofAlpha; i++ {
			if sieve[i] {
				continue
			}
			primorial.Mul(primorial, big.NewInt(int64(i)))
			for j := i * i; j < ProofAlpha; j += i {
				sieve[j] = true
			}
		}
	})
	return primorial
}

// GenerateP samples ProofIterations random challenges in Z*_n. It is used
// by a verifier running the interactive variant.
func GenerateP(random io.Reader, n *big.Int) ([]*big.Int, error) {
	p := make([]*big.Int, 0, ProofIterations)
	for len(p) < ProofIterations {
		x, err := rand.Int(random, n)
		if err != nil {
			return nil, errors.Wrap(err, "paillier: read randomness")
		}
		if x.Sign() > 0 && new(big.Int).GCD(nil, nil, x, n).Cmp(one) == 0 {
			p = append(p, x)
		}
	}
	return p, nil
}

// DeriveP derives the challenges from n and a context string by hashing,
// for the non-interactive variant. Prover and verifier must agree on ctx.
func DeriveP(n *big.Int, ctx []byte) []*big.Int {
	size := (n.BitLen()+7)/8 + 16
	p := make([]*big.Int, 0, ProofIterations)
	var counter uint32
	for len(p) < ProofIterations {
		buf := make([]byte, 0, size+sha256.Size)
		for block := uint32(0); len(buf) < size; block++ {
			h := sha256.New()
			h.Write(ctx)
			h.Write(n.Bytes())
			var c [8]byte
			binary.BigEndian.PutUint32(c[:4], counter)
			binary.BigEndian.PutUint32(c[4:], block)
			h.Write(c[:])
			buf = h.Sum(buf)
		}
		counter++
		x := new(big.Int).SetBytes(buf[:size])
		x.Mod(x, n)
		if x.Sign() > 0 && new(big.Int).GCD(nil, nil, x, n).Cmp(one) == 0 {
			p = append(p, x)
		}
	}
	return p
}

// Prove answers each challenge p_i with sigma_i = p_i^(n^-1 mod lambda) mod n.
func (priv *PrivateKey) Prove(p []*big.Int) ([]*big.Int, error) {
	nInv := new(big.Int).ModInverse(priv.N, priv.Lambda)
	if nInv == nil {
		return nil, errors.Wrap(ErrInvalidKey, "n is not invertible mod lambda")
	}
	sigma := make([]*big.Int, len(p))
	for i, pi := range p {
		if pi == nil || pi.Sign() <= 0 || pi.Cmp(priv.N) >= 0 {
			return nil, errors.Wrapf(ErrProof, "challenge %d out of range", i)
		}
		sigma[i] = new(big.Int).Exp(pi, nInv, priv.N)
	}
	return sigma, nil
}

// Verify checks the answers sigma to challenges p for modulus n.
func Verify(n *big.Int, p, sigma []*big.Int) error {
	if n == nil || n.Sign() <= 0 || n.Bit(0) == 0 {
		return errors.Wrap(ErrProof, "modulus must be a positive odd integer")
	}
	if len(p) != ProofIterations || len(sigma) != ProofIterations {
		return errors.Wrapf(ErrProof, "expected %d challenges, got %d/%d", ProofIterations, len(p), len(sigma))
	}
	if new(big.Int).GCD(nil, nil, n, smallPrimorial()).Cmp(one) != 0 {
		return errors.Wrapf(ErrProof, "modulus has a factor below %d", ProofAlpha)
	}
	for i := range p {
		if p[i] == nil || sigma[i] == nil || p[i].Sign() <= 0 || p[i].Cmp(n) >= 0 ||
			sigma[i].Sign() <= 0 || sigma[i].Cmp(n) >= 0 {
			return errors.Wrapf(ErrProof, "value %d out of range", i)
		}
		if new(big.Int).GCD(nil, nil, p[i], n).Cmp(one) != 0 {
			return errors.Wrapf(ErrProof, "challenge %d not a unit", i)
		}
		if new(big.Int).Exp(sigma[i], n, n).Cmp(p[i]) != 0 {
			return errors.Wrapf(ErrProof, "sigma %d", i)
		}
	}
	return nil
}
