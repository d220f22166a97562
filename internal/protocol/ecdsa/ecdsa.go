// Package ecdsa implements GG18 threshold ECDSA over secp256k1.
//
// Key generation:
//  1. Each party calls KeyShare and sends NShares[j] to party j.
//  2. Each party calls KeyCombine with the NShares it received, obtaining its
//     long-term XShare and one YShare per peer.
//
// Signing, for a signer set S with |S| >= t:
//  1. SignShare: fresh k_i, gamma_i; KShares[j] = Enc_i(k_i) with a range proof.
//  2. SignConvertStep1 on every received KShare yields an AShare (send back)
//     and a BShare (keep). SignConvertStep2 on every received AShare yields an
//     MUShare; SignConvertStep3 pairs it with the BShare into a GShare.
//  3. SignCombine: delta_i and sigma_i; broadcast DShares.
//  4. Sign: R, r and the withheld s_i; broadcast a commitment to (V_i, A_i),
//     then GenerateVAProofs and broadcast the opening.
//  5. VerifyVAShares, RevealUTShare, VerifyUTShares: only if sum(U_i) equals
//     sum(T_i) is s_i released as an SShare. ConstructSignature sums them.
//
// Every function is synchronous and keeps no state between calls. The caller
// delivers each output to the right peer and must not start a phase before
// all inputs of the previous phase have been verified.
package ecdsa

import (
	"crypto/rand"
	"io"
	"math/big"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/smallyu/go-tss/internal/crypto/curves"
	"github.com/smallyu/go-tss/internal/crypto/paillier"
	"github.com/smallyu/go-tss/internal/crypto/shamir"
	"github.com/smallyu/go-tss/internal/encoding"
	"github.com/smallyu/go-tss/pkg/tss"
)

// Phases reported in tss.Blame.
const (
	PhaseKeyShare    = "keyshare"
	PhaseKeyCombine  = "keycombine"
	PhaseKeyDerive   = "keyderive"
	PhaseSignShare   = "signshare"
	PhaseSignConvert = "signconvert"
	PhaseSignCombine = "signcombine"
	PhaseSign        = "sign"
	PhaseVerifyVA    = "verify-va"
	PhaseVerifyUT    = "verify-ut"
	PhaseConstruct   = "construct-signature"
)

// ECDSA is the stateless protocol service.
type ECDSA struct {
	curve  curves.Curve
	shamir *shamir.Shamir
	config tss.Config
	logger zerolog.Logger
	random io.Reader
}

// Option configures an ECDSA service.
type Option func(*ECDSA)

// WithConfig sets the modulus sizes.
func WithConfig(config tss.Config) Option {
	return func(e *ECDSA) {
		e.config = config
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *ECDSA) {
		e.logger = logger
	}
}

// WithRandom sets the randomness source for every secret, nonce and modulus
// the service draws. It must be safe for concurrent use.
func WithRandom(random io.Reader) Option {
	return func(e *ECDSA) {
		e.random = random
	}
}

// New builds the service. The configured curve is ignored: GG18 here is
// secp256k1 only.
func New(opts ...Option) (*ECDSA, error) {
	e := &ECDSA{
		config: tss.DefaultConfig(),
		logger: log.Logger.With().Str("component", "ecdsa").Logger(),
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.curve = curves.WithRandom(curves.NewSecp256k1(), e.random)
	e.shamir = shamir.New(e.curve)
	e.config.Curve = curves.NameSecp256k1
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	if e.config.NtildeBits < tss.RecommendedModulusBits || e.config.PaillierBits < tss.RecommendedModulusBits {
		e.logger.Warn().
			Int("paillier_bits", e.config.PaillierBits).
			Int("ntilde_bits", e.config.NtildeBits).
			Msg("modulus sizes below recommended 3072 bits")
	}
	return e, nil
}

// Curve returns the curve the service operates on.
func (e *ECDSA) Curve() curves.Curve {
	return e.curve
}

func (e *ECDSA) scalarHex(x *big.Int) Hex {
	return encoding.BigToBytes(e.curve.ScalarReduce(x), e.curve.ScalarSize())
}

// scalar decodes a fixed-width scalar below the group order.
func (e *ECDSA) scalar(b Hex, field string) (*big.Int, error) {
	if len(b) != e.curve.ScalarSize() {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: expected %d bytes, got %d", field, e.curve.ScalarSize(), len(b))
	}
	x := new(big.Int).SetBytes(b)
	if x.Cmp(e.curve.Order()) >= 0 {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: scalar out of range", field)
	}
	return x, nil
}

// point checks that b is a valid, non-identity point encoding.
func (e *ECDSA) point(b Hex, field string) ([]byte, error) {
	if len(b) != e.curve.PointSize() {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: expected %d bytes, got %d", field, e.curve.PointSize(), len(b))
	}
	if _, err := e.curve.PointMultiply(b, big.NewInt(1)); err != nil {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: %v", field, err)
	}
	return b, nil
}

// sumPoints adds every point in ps.
func (e *ECDSA) sumPoints(ps ...[]byte) ([]byte, error) {
	if len(ps) == 0 {
		return nil, errors.New("ecdsa: no points to add")
	}
	sum := ps[0]
	for _, p := range ps[1:] {
		var err error
		if sum, err = e.curve.PointAdd(sum, p); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// bounded decodes an integer in [0, max).
func bounded(b Hex, max *big.Int, field string) (*big.Int, error) {
	if len(b) == 0 {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: empty", field)
	}
	x := new(big.Int).SetBytes(b)
	if x.Cmp(max) >= 0 {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: out of range", field)
	}
	return x, nil
}

func paillierPublicKey(n Hex) (*paillier.PublicKey, error) {
	x, err := modulus(n, "paillier modulus")
	if err != nil {
		return nil, err
	}
	pk, err := paillier.NewPublicKey(x)
	if err != nil {
		return nil, errors.Wrapf(tss.ErrDecode, "paillier modulus: %v", err)
	}
	return pk, nil
}

func paillierPrivateKey(l, m, n Hex) (*paillier.PrivateKey, error) {
	priv, err := paillier.NewPrivateKey(new(big.Int).SetBytes(l), new(big.Int).SetBytes(m), new(big.Int).SetBytes(n))
	if err != nil {
		return nil, errors.Wrapf(tss.ErrDecode, "paillier key: %v", err)
	}
	return priv, nil
}

// ciphertext decodes a Paillier ciphertext under pk, written at twice the
// modulus width, and checks it is a unit.
func ciphertext(pk *paillier.PublicKey, b Hex, field string) (*big.Int, error) {
	c, err := fixedBig(b, 2*encoding.ByteLen(pk.N), field)
	if err != nil {
		return nil, err
	}
	if err := pk.ValidateCiphertext(c); err != nil {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: %v", field, err)
	}
	return c, nil
}

func ciphertextHex(pk *paillier.PublicKey, c *big.Int) Hex {
	return encoding.BigToBytes(c, 2*encoding.ByteLen(pk.N))
}

// checkSigners validates a signer set against the threshold and party count.
func checkSigners(self, t, parties int, peers []int) ([]int, error) {
	seen := map[int]bool{self: true}
	signers := []int{self}
	for _, j := range peers {
		if j < 1 || j > parties || seen[j] {
			return nil, tss.Blamef(PhaseSignShare, j, tss.ErrUnexpectedShare,
				errors.Errorf("signer index %d is out of range or repeated", j))
		}
		seen[j] = true
		signers = append(signers, j)
	}
	if len(signers) < t {
		return nil, tss.Blamef(PhaseSignShare, 0, tss.ErrInsufficientShares,
			errors.Errorf("%d signers for threshold %d", len(signers), t))
	}
	sort.Ints(signers)
	return signers, nil
}

// expectPeers checks that got holds exactly the signers other than self.
func expectPeers(phase string, self int, signers []int, got []int) error {
	want := make(map[int]bool, len(signers))
	for _, s := range signers {
		if s != self {
			want[s] = true
		}
	}
	for _, j := range got {
		if !want[j] {
			return tss.Blamef(phase, j, tss.ErrUnexpectedShare,
				errors.Errorf("party %d is not an expected peer", j))
		}
		delete(want, j)
	}
	if len(want) == 0 {
		return nil
	}
	missing := make([]int, 0, len(want))
	for j := range want {
		missing = append(missing, j)
	}
	sort.Ints(missing)
	return tss.Blamef(phase, missing[0], tss.ErrInsufficientShares,
		errors.Errorf("missing shares from parties %v", missing))
}
