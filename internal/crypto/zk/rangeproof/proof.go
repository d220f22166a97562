// Package rangeproof implements the zero-knowledge range proofs of
// Reiter and MacKenzie, "Two-party generation of DSA signatures", as used in
// the MtA share conversion of GG18: a Paillier ciphertext is shown to hold a
// value below q^3 using the verifier's Ntilde as a commitment modulus.
package rangeproof

import (
	"crypto/rand"
	"crypto/sha256"
	"hash"
	"io"
	"math/big"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/curves"
	"github.com/smallyu/go-tss/internal/crypto/paillier"
	"github.com/smallyu/go-tss/internal/encoding"
)

var ErrVerify = errors.New("rangeproof: proof verification failed")

var (
	proveDomain     = []byte{0x06, 0, 0, 0, 0, 0, 0, 0}
	withCheckDomain = []byte{0x0d, 0, 0, 0, 0, 0, 0, 0}
	separator       = []byte("$")
)

// Proof shows that c encrypts a value m < q^3 under the prover's key.
type Proof struct {
	Z  *big.Int
	U  *big.Int
	W  *big.Int
	S  *big.Int
	S1 *big.Int
	S2 *big.Int
}

// ProofWithCheck shows that c2 = c1^x * Enc(y) with x < q^3, y < q^7 and
// X = x*G on the curve.
type ProofWithCheck struct {
	Z    *big.Int
	ZPrm *big.Int
	T    *big.Int
	V    *big.Int
	W    *big.Int
	S    *big.Int
	S1   *big.Int
	S2   *big.Int
	T1   *big.Int
	T2   *big.Int
	U    []byte
}

type transcript struct {
	h hash.Hash
}

func newTranscript(domain []byte) *transcript {
	h := sha256.New()
	h.Write(domain)
	return &transcript{h: h}
}

func (t *transcript) int(x *big.Int, size int) {
	t.h.Write(encoding.BigToBytes(x, size))
	t.h.Write(separator)
}

func (t *transcript) bytes(b []byte) {
	t.h.Write(b)
	t.h.Write(separator)
}

func (t *transcript) challenge(q *big.Int) *big.Int {
	e := new(big.Int).SetBytes(t.h.Sum(nil))
	return e.Mod(e, q)
}

func randInt(random io.Reader, max *big.Int) (*big.Int, error) {
	x, err := rand.Int(random, max)
	if err != nil {
		return nil, errors.Wrap(err, "rangeproof: read randomness")
	}
	return x, nil
}

func pow(x, e, m *big.Int) *big.Int {
	return new(big.Int).Exp(x, e, m)
}

// mulMod returns the product of xs mod m.
func mulMod(m *big.Int, xs ...*big.Int) *big.Int {
	z := big.NewInt(1)
	for _, x := range xs {
		z.Mul(z, x)
		z.Mod(z, m)
	}
	return z
}

// powNeg returns x^-e mod m.
func powNeg(x, e, m *big.Int) (*big.Int, error) {
	inv := new(big.Int).ModInverse(x, m)
	if inv == nil {
		return nil, errors.Wrap(ErrVerify, "value not invertible")
	}
	return inv.Exp(inv, e, m), nil
}

func inRange(x, max *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.Cmp(max) < 0
}

func generator(pk *paillier.PublicKey) *big.Int {
	return new(big.Int).Add(pk.N, one)
}

// Prove produces a range proof for c = Enc_pk(m; r) against the verifier's
// ntilde, drawing its nonces from random.
func Prove(random io.Reader, curve curves.Curve, pk *paillier.PublicKey, nt *Ntilde, c, m, r *big.Int) (*Proof, error) {
	modulusBytes := encoding.ByteLen(pk.N)
	ntildeBytes := encoding.ByteLen(nt.N)
	q := curve.Order()
	q3 := new(big.Int).Exp(q, big.NewInt(3), nil)
	qNtilde := new(big.Int).Mul(q, nt.N)
	q3Ntilde := new(big.Int).Mul(q3, nt.N)

	alpha, err := randInt(random, q3)
	if err != nil {
		return nil, err
	}
	beta, err := pk.RandomUnit(random)
	if err != nil {
		return nil, err
	}
	gamma, err := randInt(random, q3Ntilde)
	if err != nil {
		return nil, err
	}
	rho, err := randInt(random, qNtilde)
	if err != nil {
		return nil, err
	}

	g := generator(pk)
	z := mulMod(nt.N, pow(nt.H1, m, nt.N), pow(nt.H2, rho, nt.N))
	u := mulMod(pk.N2, pow(g, alpha, pk.N2), pow(beta, pk.N, pk.N2))
	w := mulMod(nt.N, pow(nt.H1, alpha, nt.N), pow(nt.H2, gamma, nt.N))

	t := newTranscript(proveDomain)
	t.int(pk.N, modulusBytes)
	t.int(g, modulusBytes)
	t.int(c, 2*modulusBytes)
	t.int(z, ntildeBytes)
	t.int(u, 2*modulusBytes)
	t.int(w, ntildeBytes)
	e := t.challenge(q)

	s := mulMod(pk.N, pow(r, e, pk.N), beta)
	s1 := new(big.Int).Mul(e, m)
	s1.Add(s1, alpha)
	s2 := new(big.Int).Mul(e, rho)
	s2.Add(s2, gamma)

	return &Proof{Z: z, U: u, W: w, S: s, S1: s1, S2: s2}, nil
}

// Verify checks a range proof for ciphertext c under the prover's key pk.
func Verify(curve curves.Curve, pk *paillier.PublicKey, nt *Ntilde, proof *Proof, c *big.Int) error {
	if proof == nil {
		return errors.Wrap(ErrVerify, "missing proof")
	}
	if !inRange(proof.U, pk.N2) || proof.U.Sign() == 0 || !inRange(proof.S, pk.N) || proof.S.Sign() == 0 {
		return errors.Wrap(ErrVerify, "u or s out of range")
	}
	if !inRange(proof.Z, nt.N) || !inRange(proof.W, nt.N) || !inRange(c, pk.N2) {
		return errors.Wrap(ErrVerify, "commitment out of range")
	}
	if proof.S2 == nil || proof.S2.Sign() < 0 || proof.S1 == nil || proof.S1.Sign() < 0 {
		return errors.Wrap(ErrVerify, "negative response")
	}
	q := curve.Order()
	q3 := new(big.Int).Exp(q, big.NewInt(3), nil)
	if proof.S1.Cmp(q3) > 0 {
		return errors.Wrap(ErrVerify, "s1 exceeds q^3")
	}

	modulusBytes := encoding.ByteLen(pk.N)
	ntildeBytes := encoding.ByteLen(nt.N)
	g := generator(pk)
	t := newTranscript(proveDomain)
	t.int(pk.N, modulusBytes)
	t.int(g, modulusBytes)
	t.int(c, 2*modulusBytes)
	t.int(proof.Z, ntildeBytes)
	t.int(proof.U, 2*modulusBytes)
	t.int(proof.W, ntildeBytes)
	e := t.challenge(q)

	// u == g^s1 * s^N * c^-e mod N^2
	cNeg, err := powNeg(c, e, pk.N2)
	if err != nil {
		return err
	}
	if mulMod(pk.N2, pow(g, proof.S1, pk.N2), pow(proof.S, pk.N, pk.N2), cNeg).Cmp(proof.U) != 0 {
		return errors.Wrap(ErrVerify, "paillier equation")
	}

	// w == h1^s1 * h2^s2 * z^-e mod Ntilde
	zNeg, err := powNeg(proof.Z, e, nt.N)
	if err != nil {
		return err
	}
	if mulMod(nt.N, pow(nt.H1, proof.S1, nt.N), pow(nt.H2, proof.S2, nt.N), zNeg).Cmp(proof.W) != 0 {
		return errors.Wrap(ErrVerify, "ntilde equation")
	}
	return nil
}

// ProveWithCheck proves c2 = c1^x * Enc_pk(y; r) with X = x*G, against the
// verifier's ntilde. pk is the verifier's Paillier key that encrypted c1.
func ProveWithCheck(random io.Reader, curve curves.Curve, pk *paillier.PublicKey, nt *Ntilde, c1, c2, x, y, r *big.Int, X []byte) (*ProofWithCheck, error) {
	modulusBytes := encoding.ByteLen(pk.N)
	ntildeBytes := encoding.ByteLen(nt.N)
	q := curve.Order()
	q3 := new(big.Int).Exp(q, big.NewInt(3), nil)
	q7 := new(big.Int).Exp(q, big.NewInt(7), nil)
	qNtilde := new(big.Int).Mul(q, nt.N)
	q3Ntilde := new(big.Int).Mul(q3, nt.N)

	var (
		alpha, rho, sigma, tau, rhoPrm, gamma *big.Int
		u                                     []byte
		err                                   error
	)
	for {
		if alpha, err = randInt(random, q3); err != nil {
			return nil, err
		}
		// alpha = 0 mod q would make u the identity
		if u, err = curve.BasePointMult(alpha); err == nil {
			break
		}
		if !errors.Is(err, curves.ErrIdentity) {
			return nil, err
		}
	}
	for _, v := range []struct {
		dst **big.Int
		max *big.Int
	}{{&rho, qNtilde}, {&sigma, qNtilde}, {&tau, q3Ntilde}, {&rhoPrm, q3Ntilde}, {&gamma, q7}} {
		if *v.dst, err = randInt(random, v.max); err != nil {
			return nil, err
		}
	}
	beta, err := pk.RandomUnit(random)
	if err != nil {
		return nil, err
	}

	g := generator(pk)
	z := mulMod(nt.N, pow(nt.H1, x, nt.N), pow(nt.H2, rho, nt.N))
	zPrm := mulMod(nt.N, pow(nt.H1, alpha, nt.N), pow(nt.H2, rhoPrm, nt.N))
	t := mulMod(nt.N, pow(nt.H1, y, nt.N), pow(nt.H2, sigma, nt.N))
	v := mulMod(pk.N2, pow(c1, alpha, pk.N2), pow(g, gamma, pk.N2), pow(beta, pk.N, pk.N2))
	w := mulMod(nt.N, pow(nt.H1, gamma, nt.N), pow(nt.H2, tau, nt.N))

	e := withCheckChallenge(curve, pk, modulusBytes, ntildeBytes, X, c1, c2, u, z, zPrm, t, v, w)

	s := mulMod(pk.N, pow(r, e, pk.N), beta)
	s1 := new(big.Int).Mul(e, x)
	s1.Add(s1, alpha)
	s2 := new(big.Int).Mul(e, rho)
	s2.Add(s2, rhoPrm)
	t1 := new(big.Int).Mul(e, y)
	t1.Add(t1, gamma)
	t2 := new(big.Int).Mul(e, sigma)
	t2.Add(t2, tau)

	return &ProofWithCheck{Z: z, ZPrm: zPrm, T: t, V: v, W: w, S: s, S1: s1, S2: s2, T1: t1, T2: t2, U: u}, nil
}

// VerifyWithCheck checks a proof produced by ProveWithCheck.
func VerifyWithCheck(curve curves.Curve, pk *paillier.PublicKey, nt *Ntilde, proof *ProofWithCheck, c1, c2 *big.Int, X []byte) error {
	if proof == nil {
		return errors.Wrap(ErrVerify, "missing proof")
	}
	for _, x := range []*big.Int{proof.Z, proof.ZPrm, proof.T, proof.W} {
		if !inRange(x, nt.N) {
			return errors.Wrap(ErrVerify, "commitment out of range")
		}
	}
	if !inRange(proof.V, pk.N2) || !inRange(proof.S, pk.N) || proof.S.Sign() == 0 ||
		!inRange(c1, pk.N2) || !inRange(c2, pk.N2) {
		return errors.Wrap(ErrVerify, "paillier value out of range")
	}
	for _, x := range []*big.Int{proof.S1, proof.S2, proof.T1, proof.T2} {
		if x == nil || x.Sign() < 0 {
			return errors.Wrap(ErrVerify, "negative response")
		}
	}
	if len(proof.U) != curve.PointSize() || len(X) != curve.PointSize() {
		return errors.Wrap(ErrVerify, "point size")
	}

	q := curve.Order()
	q3 := new(big.Int).Exp(q, big.NewInt(3), nil)
	q7 := new(big.Int).Exp(q, big.NewInt(7), nil)
	if proof.S1.Cmp(q3) > 0 {
		return errors.Wrap(ErrVerify, "s1 exceeds q^3")
	}
	if proof.T1.Cmp(q7) > 0 {
		return errors.Wrap(ErrVerify, "t1 exceeds q^7")
	}

	modulusBytes := encoding.ByteLen(pk.N)
	ntildeBytes := encoding.ByteLen(nt.N)
	e := withCheckChallenge(curve, pk, modulusBytes, ntildeBytes, X, c1, c2, proof.U,
		proof.Z, proof.ZPrm, proof.T, proof.V, proof.W)

	// s1*G == e*X + u
	gS1, err := curve.BasePointMult(proof.S1)
	if err != nil {
		return errors.Wrapf(ErrVerify, "s1*G: %v", err)
	}
	xE, err := curve.PointMultiply(X, e)
	if err != nil {
		return errors.Wrapf(ErrVerify, "e*X: %v", err)
	}
	xEU, err := curve.PointAdd(xE, proof.U)
	if err != nil {
		return errors.Wrapf(ErrVerify, "e*X + u: %v", err)
	}
	if string(gS1) != string(xEU) {
		return errors.Wrap(ErrVerify, "curve equation")
	}

	// h1^s1 * h2^s2 == z^e * z'
	left := mulMod(nt.N, pow(nt.H1, proof.S1, nt.N), pow(nt.H2, proof.S2, nt.N))
	right := mulMod(nt.N, pow(proof.Z, e, nt.N), proof.ZPrm)
	if left.Cmp(right) != 0 {
		return errors.Wrap(ErrVerify, "x commitment equation")
	}

	// h1^t1 * h2^t2 == t^e * w
	left = mulMod(nt.N, pow(nt.H1, proof.T1, nt.N), pow(nt.H2, proof.T2, nt.N))
	right = mulMod(nt.N, pow(proof.T, e, nt.N), proof.W)
	if left.Cmp(right) != 0 {
		return errors.Wrap(ErrVerify, "y commitment equation")
	}

	// c1^s1 * s^N * g^t1 == c2^e * v
	g := generator(pk)
	left = mulMod(pk.N2, pow(c1, proof.S1, pk.N2), pow(proof.S, pk.N, pk.N2), pow(g, proof.T1, pk.N2))
	right = mulMod(pk.N2, pow(c2, e, pk.N2), proof.V)
	if left.Cmp(right) != 0 {
		return errors.Wrap(ErrVerify, "paillier equation")
	}
	return nil
}

func withCheckChallenge(curve curves.Curve, pk *paillier.PublicKey, modulusBytes, ntildeBytes int,
	X []byte, c1, c2 *big.Int, u []byte, z, zPrm, t, v, w *big.Int) *big.Int {
	tr := newTranscript(withCheckDomain)
	tr.int(pk.N, modulusBytes)
	tr.int(generator(pk), modulusBytes)
	tr.bytes(X)
	tr.int(c1, 2*modulusBytes)
	tr.int(c2, 2*modulusBytes)
	tr.bytes(u)
	tr.int(z, ntildeBytes)
	tr.int(zPrm, ntildeBytes)
	tr.int(t, ntildeBytes)
	tr.int(v, 2*modulusBytes)
	tr.int(w, ntildeBytes)
	return tr.challenge(curve.Order())
}
