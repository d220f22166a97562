package eddsa

import (
	"crypto/sha512"
	"math/big"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/curves"
	"github.com/smallyu/go-tss/internal/encoding"
	"github.com/smallyu/go-tss/pkg/tss"
)

// expand derives the clamped secret u and the nonce prefix from the first
// half of a seed, as RFC 8032 does for a private key.
func expand(seed []byte) (*big.Int, []byte) {
	h := sha512.Sum512(seed)
	return curves.Clamp(h[:32]), h[32:]
}

// KeyShare generates party index's contribution to a t-of-n key from a
// 64-byte seed: the first 32 bytes determine u, the last 32 are the
// chaincode. A nil seed is drawn at random.
func (e *EdDSA) KeyShare(index, t, n int, seed []byte) (*KeyShare, error) {
	if err := tss.ValidateParams(index, t, n); err != nil {
		return nil, tss.NewBlame(PhaseKeyShare, 0, err)
	}
	seed, err := e.seed(PhaseKeyShare, seed)
	if err != nil {
		return nil, err
	}
	u, _ := expand(seed[:32])
	y, err := e.curve.BasePointMult(u)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyShare, 0, err)
	}
	split, err := e.shamir.Split(u, t, n)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyShare, 0, err)
	}
	v := make([]Hex, 0, t)
	v = append(v, y)
	for _, c := range split.V {
		v = append(v, c)
	}
	chaincode := append(Hex(nil), seed[32:]...)

	keyShare := &KeyShare{
		UShare: &UShare{
			I:         index,
			T:         t,
			Parties:   n,
			Y:         y,
			Seed:      append(Hex(nil), seed[:32]...),
			Chaincode: chaincode,
		},
		YShares: make(map[int]*YShare, n-1),
	}
	for j, share := range split.Shares {
		if j == index {
			continue
		}
		keyShare.YShares[j] = &YShare{
			I:         j,
			J:         index,
			Y:         y,
			V:         v,
			U:         e.scalarHex(share),
			Chaincode: chaincode,
		}
	}
	e.logger.Debug().Int("party", index).Int("t", t).Int("n", n).Msg("key share ready")
	return keyShare, nil
}

// KeyCombine checks the YShares received from every other party and derives
// this party's PShare: the joint public key, the joint chaincode and the
// party's own contribution recomputed from its seed.
func (e *EdDSA) KeyCombine(uShare *UShare, yShares []*YShare) (*KeyCombined, error) {
	if uShare == nil {
		return nil, tss.NewBlame(PhaseKeyCombine, 0, errors.Wrap(tss.ErrDecode, "missing u-share"))
	}
	if err := tss.ValidateParams(uShare.I, uShare.T, uShare.Parties); err != nil {
		return nil, tss.NewBlame(PhaseKeyCombine, 0, err)
	}
	if len(uShare.Seed) != 32 {
		return nil, tss.NewBlame(PhaseKeyCombine, 0, errors.Wrap(tss.ErrInvalidSeed, "stored seed must be 32 bytes"))
	}
	y, chaincode, err := e.joint(PhaseKeyCombine, uShare, yShares)
	if err != nil {
		return nil, err
	}
	for _, share := range yShares {
		if err := e.checkVSS(PhaseKeyCombine, uShare.I, share); err != nil {
			return nil, err
		}
	}

	u, prefix := expand(uShare.Seed)
	combined := &KeyCombined{
		PShare: &PShare{
			I:             uShare.I,
			T:             uShare.T,
			Parties:       uShare.Parties,
			Y:             y,
			U:             e.scalarHex(u),
			Prefix:        prefix,
			Chaincode:     encoding.BigToBytes(chaincode, 32),
			Contributions: contributions(uShare.I, uShare.Y, yShares),
		},
		JShares: make(map[int]*JShare, len(yShares)),
	}
	for _, share := range yShares {
		combined.JShares[share.J] = &JShare{I: share.J, J: uShare.I}
	}
	e.logger.Debug().Int("party", uShare.I).Msg("key combined")
	return combined, nil
}

// joint validates the addressing of yShares and returns the joint public
// key and the chaincode sum mod 2^256.
func (e *EdDSA) joint(phase string, uShare *UShare, yShares []*YShare) ([]byte, *big.Int, error) {
	senders := make([]int, 0, len(yShares))
	ys := [][]byte{uShare.Y}
	chaincode := new(big.Int).SetBytes(uShare.Chaincode)
	for _, share := range yShares {
		if share == nil {
			return nil, nil, tss.NewBlame(phase, 0, errors.Wrap(tss.ErrDecode, "missing y-share"))
		}
		if share.I != uShare.I {
			return nil, nil, tss.Blamef(phase, share.J, tss.ErrUnexpectedShare,
				errors.Errorf("share addressed to party %d", share.I))
		}
		if _, err := e.point(share.Y, "y"); err != nil {
			return nil, nil, tss.NewBlame(phase, share.J, err)
		}
		if len(share.Chaincode) != 32 {
			return nil, nil, tss.NewBlame(phase, share.J, errors.Wrap(tss.ErrDecode, "chaincode must be 32 bytes"))
		}
		senders = append(senders, share.J)
		ys = append(ys, share.Y)
		chaincode.Add(chaincode, new(big.Int).SetBytes(share.Chaincode))
	}
	if err := expectPeers(phase, uShare.I, allParties(uShare.Parties), senders); err != nil {
		return nil, nil, err
	}
	y, err := e.sumPoints(ys...)
	if err != nil {
		return nil, nil, tss.NewBlame(phase, 0, errors.Wrap(err, "joint public key"))
	}
	return y, chaincode.Mod(chaincode, two256), nil
}

// contributions maps every sender of yShares to its public contribution,
// with own for party self.
func contributions(self int, own Hex, yShares []*YShare) map[int]Hex {
	out := make(map[int]Hex, len(yShares)+1)
	out[self] = own
	for _, share := range yShares {
		out[share.J] = share.Y
	}
	return out
}
