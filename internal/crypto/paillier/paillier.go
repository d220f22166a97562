package paillier

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// MinBits is the smallest modulus GenerateKey accepts.
const MinBits = 2048

var (
	one = big.NewInt(1)

	ErrMessageRange    = errors.New("paillier: message m must be in range [0, n)")
	ErrCiphertextRange = errors.New("paillier: ciphertext must be in Z*_{n^2}")
	ErrInvalidKey      = errors.New("paillier: invalid key")
)

// PublicKey represents a Paillier public key (n) with g = n + 1.
type PublicKey struct {
	N  *big.Int // Modulus n = p * q
	N2 *big.Int // n^2, cached for performance
}

// PrivateKey represents a Paillier private key (lambda, mu).
type PrivateKey struct {
	PublicKey
	Lambda *big.Int // lcm(p-1, q-1)
	Mu     *big.Int // modular multiplicative inverse of lambda mod n
}

// NewPublicKey wraps a modulus received from a peer.
func NewPublicKey(n *big.Int) (*PublicKey, error) {
	if n == nil || n.Sign() <= 0 || n.Bit(0) == 0 {
		return nil, errors.Wrap(ErrInvalidKey, "modulus must be a positive odd integer")
	}
	return &PublicKey{N: n, N2: new(big.Int).Mul(n, n)}, nil
}

// NewPrivateKey rebuilds a private key from its serialized (lambda, mu, n).
func NewPrivateKey(lambda, mu, n *big.Int) (*PrivateKey, error) {
	pk, err := NewPublicKey(n)
	if err != nil {
		return nil, err
	}
	expected := new(big.Int).ModInverse(lambda, n)
	if expected == nil || expected.Cmp(mu) != 0 {
		return nil, errors.Wrap(ErrInvalidKey, "mu is not lambda^-1 mod n")
	}
	return &PrivateKey{PublicKey: *pk, Lambda: lambda, Mu: mu}, nil
}

// GenerateKey generates a Paillier key pair with the given bit length for the
// modulus n. The two primes are searched for concurrently, so random must be
// safe for concurrent use.
func GenerateKey(ctx context.Context, random io.Reader, bits int) (*PrivateKey, error) {
	if bits < MinBits {
		return nil, errors.Errorf("paillier: bits must be at least %d", MinBits)
	}

	for {
		// 1. Choose two large prime numbers p and q
		var p, q *big.Int
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			p, err = prime(gctx, random, bits/2)
			return err
		})
		g.Go(func() (err error) {
			q, err = prime(gctx, random, bits-bits/2)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if p.Cmp(q) == 0 {
			continue
		}

		// 2. Compute n = p * q
		n := new(big.Int).Mul(p, q)
		if n.BitLen() != bits {
			continue
		}

		// 3. lambda = lcm(p-1, q-1); gcd(n, phi) must be 1
		pMinus1 := new(big.Int).Sub(p, one)
		qMinus1 := new(big.Int).Sub(q, one)
		phi := new(big.Int).Mul(pMinus1, qMinus1)
		if new(big.Int).GCD(nil, nil, n, phi).Cmp(one) != 0 {
			continue
		}
		gcd := new(big.Int).GCD(nil, nil, pMinus1, qMinus1)
		lambda := phi.Div(phi, gcd)

		// 4. mu = lambda^-1 mod n
		mu := new(big.Int).ModInverse(lambda, n)
		if mu == nil {
			continue
		}

		return &PrivateKey{
			PublicKey: PublicKey{
				N:  n,
				N2: new(big.Int).Mul(n, n),
			},
			Lambda: lambda,
			Mu:     mu,
		}, nil
	}
}

func prime(ctx context.Context, random io.Reader, bits int) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := rand.Prime(random, bits)
	if err != nil {
		return nil, errors.Wrap(err, "paillier: generate prime")
	}
	return p, nil
}

// Encrypt encrypts a plaintext message m into a ciphertext c and returns the
// nonce r it drew from random. m must be in the range [0, n).
func (pk *PublicKey) Encrypt(random io.Reader, m *big.Int) (*big.Int, *big.Int, error) {
	r, err := pk.RandomUnit(random)
	if err != nil {
		return nil, nil, err
	}
	c, err := pk.EncryptWithNonce(m, r)
	if err != nil {
		return nil, nil, err
	}
	return c, r, nil
}

// EncryptWithNonce encrypts m using a specific nonce r.
// c = (1 + n*m) * r^n mod n^2
func (pk *PublicKey) EncryptWithNonce(m, r *big.Int) (*big.Int, error) {
	if m.Sign() == -1 || m.Cmp(pk.N) >= 0 {
		return nil, ErrMessageRange
	}

	// (1 + n*m) is already below n^2 since m < n
	gm := new(big.Int).Mul(pk.N, m)
	gm.Add(gm, one)

	rn := new(big.Int).Exp(r, pk.N, pk.N2)

	c := gm.Mul(gm, rn)
	return c.Mod(c, pk.N2), nil
}

// RandomUnit returns a uniform element of Z*_n.
func (pk *PublicKey) RandomUnit(random io.Reader) (*big.Int, error) {
	for {
		r, err := rand.Int(random, pk.N)
		if err != nil {
			return nil, errors.Wrap(err, "paillier: read randomness")
		}
		if r.Sign() > 0 && new(big.Int).GCD(nil, nil, r, pk.N).Cmp(one) == 0 {
			return r, nil
		}
	}
}

// Decrypt decrypts a ciphertext c into a plaintext message m.
// m = L(c^lambda mod n^2) * mu mod n, where L(x) = (x-1)/n
func (priv *PrivateKey) Decrypt(c *big.Int) (*big.Int, error) {
	if err := priv.ValidateCiphertext(c); err != nil {
		return nil, err
	}

	u := new(big.Int).Exp(c, priv.Lambda, priv.N2)

	l := u.Sub(u, one)
	l.Div(l, priv.N)

	m := l.Mul(l, priv.Mu)
	return m.Mod(m, priv.N), nil
}

// Add performs homomorphic addition of two ciphertexts.
// E(m1) + E(m2) = E(m1 + m2)
func (pk *PublicKey) Add(c1, c2 *big.Int) *big.Int {
	c := new(big.Int).Mul(c1, c2)
	return c.Mod(c, pk.N2)
}

// Mul performs homomorphic multiplication of a ciphertext by a scalar.
// E(m) * k = E(m * k)
func (pk *PublicKey) Mul(c1, k *big.Int) *big.Int {
	return new(big.Int).Exp(c1, k, pk.N2)
}

// ValidateCiphertext checks that c is in [1, n^2) and coprime to n.
func (pk *PublicKey) ValidateCiphertext(c *big.Int) error {
	if c == nil || c.Sign() <= 0 || c.Cmp(pk.N2) >= 0 {
		return ErrCiphertextRange
	}
	if new(big.Int).GCD(nil, nil, c, pk.N).Cmp(one) != 0 {
		return ErrCiphertextRange
	}
	return nil
}
