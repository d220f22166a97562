// Package eddsa implements threshold EdDSA over ed25519.
//
// Key generation:
//  1. Each party calls KeyShare and sends YShares[j] to party j.
//  2. Each party calls KeyCombine with the YShares it received and keeps the
//     resulting PShare. The YShares stay with the recipient: they are the
//     contributions of the parties that do not sign in a later session.
//
// Signing, for a signer set S with |S| >= t:
//  1. SignShare: every signer re-shares its contribution u_i and a fresh nonce
//     r_i among S and sends RShares[j] to signer j.
//  2. Sign: every signer combines the RShares with the YShares of the
//     non-signers into a share gamma_i = r + k*x of the signature scalar.
//  3. SignCombine: interpolating the GShares of all of S yields the signature,
//     which is verified before it is returned.
package eddsa

import (
	"crypto/rand"
	"io"
	"math/big"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/smallyu/go-tss/internal/crypto/curves"
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
	PhaseSign        = "sign"
	PhaseSignCombine = "signcombine"
)

// SeedSize is the length of a key generation or nonce seed.
const SeedSize = 64

var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

// EdDSA is the stateless protocol service.
type EdDSA struct {
	curve  curves.Curve
	shamir *shamir.Shamir
	config tss.Config
	logger zerolog.Logger
	random io.Reader
}

// Option configures an EdDSA service.
type Option func(*EdDSA)

// WithConfig sets the configuration. Only LenientVSS applies to EdDSA.
func WithConfig(config tss.Config) Option {
	return func(e *EdDSA) {
		e.config = config
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *EdDSA) {
		e.logger = logger
	}
}

// WithRandom sets the source of seeds when the caller passes none and of the
// coefficients of every re-sharing.
func WithRandom(random io.Reader) Option {
	return func(e *EdDSA) {
		e.random = random
	}
}

func New(opts ...Option) (*EdDSA, error) {
	e := &EdDSA{
		config: tss.DefaultConfig(),
		logger: log.Logger.With().Str("component", "eddsa").Logger(),
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.curve = curves.WithRandom(curves.NewEd25519(), e.random)
	e.shamir = shamir.New(e.curve)
	e.config.Curve = curves.NameEd25519
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	if e.config.LenientVSS {
		e.logger.Warn().Msg("vss failures during key combination will be tolerated")
	}
	return e, nil
}

// Curve returns the curve the service operates on.
func (e *EdDSA) Curve() curves.Curve {
	return e.curve
}

func (e *EdDSA) scalarHex(x *big.Int) Hex {
	return encoding.BigToBytesLE(e.curve.ScalarReduce(x), 32)
}

func (e *EdDSA) scalar(b Hex, field string) (*big.Int, error) {
	if len(b) != 32 {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: expected 32 bytes, got %d", field, len(b))
	}
	x := encoding.BytesToBigLE(b)
	if x.Cmp(e.curve.Order()) >= 0 {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: scalar out of range", field)
	}
	return x, nil
}

func (e *EdDSA) point(b Hex, field string) ([]byte, error) {
	if len(b) != e.curve.PointSize() {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: expected %d bytes, got %d", field, e.curve.PointSize(), len(b))
	}
	if _, err := e.curve.PointMultiply(b, big.NewInt(1)); err != nil {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: %v", field, err)
	}
	return b, nil
}

func (e *EdDSA) sumPoints(ps ...[]byte) ([]byte, error) {
	if len(ps) == 0 {
		return nil, errors.New("eddsa: no points to add")
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

// seed returns the caller's seed, or a fresh one.
func (e *EdDSA) seed(phase string, seed []byte) ([]byte, error) {
	if seed == nil {
		seed = make([]byte, SeedSize)
		if _, err := io.ReadFull(e.random, seed); err != nil {
			return nil, tss.NewBlame(phase, 0, errors.Wrap(err, "read seed"))
		}
		return seed, nil
	}
	if len(seed) != SeedSize {
		return nil, tss.NewBlame(phase, 0, errors.Wrapf(tss.ErrInvalidSeed, "got %d bytes", len(seed)))
	}
	return seed, nil
}

// checkVSS verifies a YShare against its Feldman commitments. In lenient
// mode the failure is logged and tolerated.
func (e *EdDSA) checkVSS(phase string, self int, share *YShare) error {
	err := e.verifyShare(self, share.U, share.Y, share.V)
	if err == nil {
		return nil
	}
	if e.config.LenientVSS {
		e.logger.Warn().Err(err).Int("party", self).Int("peer", share.J).Msg("tolerating failed vss check")
		return nil
	}
	return tss.Blamef(phase, share.J, tss.ErrVSS, err)
}

func (e *EdDSA) verifyShare(self int, u, y Hex, v []Hex) error {
	ux, err := e.scalar(u, "u")
	if err != nil {
		return err
	}
	if len(v) == 0 || string(v[0]) != string(y) {
		return errors.New("first commitment is not y")
	}
	commitments := make([][]byte, len(v))
	for k := range v {
		commitments[k] = v[k]
	}
	return e.shamir.Verify(ux, commitments, self)
}

// expectPeers checks that got holds exactly the parties in want other than self.
func expectPeers(phase string, self int, want []int, got []int) error {
	pending := make(map[int]bool, len(want))
	for _, s := range want {
		if s != self {
			pending[s] = true
		}
	}
	for _, j := range got {
		if !pending[j] {
			return tss.Blamef(phase, j, tss.ErrUnexpectedShare,
				errors.Errorf("party %d is not an expected peer", j))
		}
		delete(pending, j)
	}
	if len(pending) == 0 {
		return nil
	}
	missing := make([]int, 0, len(pending))
	for j := range pending {
		missing = append(missing, j)
	}
	sort.Ints(missing)
	return tss.Blamef(phase, missing[0], tss.ErrInsufficientShares,
		errors.Errorf("missing shares from parties %v", missing))
}

func allParties(n int) []int {
	out := make([]int, n)
	for k := range out {
		out[k] = k + 1
	}
	return out
}
