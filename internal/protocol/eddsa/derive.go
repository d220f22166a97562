package eddsa

import (
	"encoding/hex"
	"math/big"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/hd"
	"github.com/smallyu/go-tss/internal/encoding"
	"github.com/smallyu/go-tss/pkg/tss"
)

// CommonKeychain is the joint public key followed by the joint chaincode,
// hex encoded.
func (p *PShare) CommonKeychain() string {
	return hex.EncodeToString(append(append([]byte(nil), p.Y...), p.Chaincode...))
}

// KeyDerive derives the unhardened child at path for the whole group on
// behalf of a single party. The tweak is added to this party's contribution
// only, which is then re-shared: the returned YShares replace the ones the
// peers received from this party at key generation, and the chaincode
// contribution they carry makes the peers' sum equal the child chaincode.
func (e *EdDSA) KeyDerive(uShare *UShare, yShares []*YShare, path string) (*SubkeyShare, error) {
	if uShare == nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, errors.Wrap(tss.ErrDecode, "missing u-share"))
	}
	if err := tss.ValidateParams(uShare.I, uShare.T, uShare.Parties); err != nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, err)
	}
	if len(uShare.Seed) != 32 {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, errors.Wrap(tss.ErrInvalidSeed, "stored seed must be 32 bytes"))
	}
	indices, err := hd.ParsePath(path)
	if err != nil {
		return nil, tss.Blamef(PhaseKeyDerive, 0, tss.ErrInvalidConfig, err)
	}
	y, chaincode, err := e.joint(PhaseKeyDerive, uShare, yShares)
	if err != nil {
		return nil, err
	}
	d, err := hd.Ed25519(y, encoding.BigToBytes(chaincode, 32), indices)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, err)
	}

	u, prefix := expand(uShare.Seed)
	sk := e.curve.ScalarAdd(u, d.Tweak)
	childPrefix := new(big.Int).Add(new(big.Int).SetBytes(prefix), d.PrefixTweak)
	childPrefix.Mod(childPrefix, two256)
	contribY, err := e.curve.BasePointMult(sk)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, err)
	}

	// Shift this party's chaincode contribution by the change of the sum.
	delta := new(big.Int).Sub(new(big.Int).SetBytes(d.ChainCode), chaincode)
	contribChaincode := new(big.Int).Add(new(big.Int).SetBytes(uShare.Chaincode), delta)
	contribChaincode.Mod(contribChaincode, two256)
	contribChaincodeHex := Hex(encoding.BigToBytes(contribChaincode, 32))

	split, err := e.shamir.Split(sk, uShare.T, uShare.Parties)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, err)
	}
	v := make([]Hex, 0, uShare.T)
	v = append(v, contribY)
	for _, c := range split.V {
		v = append(v, c)
	}

	sub := &SubkeyShare{
		PShare: &PShare{
			I:             uShare.I,
			T:             uShare.T,
			Parties:       uShare.Parties,
			Y:             d.PublicKey,
			U:             e.scalarHex(sk),
			Prefix:        encoding.BigToBytes(childPrefix, 32),
			Chaincode:     d.ChainCode,
			Contributions: contributions(uShare.I, contribY, yShares),
		},
		YShares: make(map[int]*YShare, len(yShares)),
	}
	for _, share := range yShares {
		sub.YShares[share.J] = &YShare{
			I:         share.J,
			J:         uShare.I,
			Y:         contribY,
			V:         v,
			U:         e.scalarHex(split.Shares[share.J]),
			Chaincode: contribChaincodeHex,
		}
	}
	e.logger.Debug().Int("party", uShare.I).Str("path", path).Msg("derived child key")
	return sub, nil
}

// ChildPShare moves a non-deriving party's PShare to the child at path after
// party deriver ran KeyDerive. Its own contribution is unchanged; the joint
// public key, the chaincode and the deriver's public contribution move.
func (e *EdDSA) ChildPShare(pShare *PShare, deriver int, path string) (*PShare, error) {
	if pShare == nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, errors.Wrap(tss.ErrDecode, "missing p-share"))
	}
	if deriver == pShare.I || deriver < 1 || deriver > pShare.Parties {
		return nil, tss.Blamef(PhaseKeyDerive, 0, tss.ErrInvalidConfig,
			errors.Errorf("party %d cannot follow a derivation by party %d", pShare.I, deriver))
	}
	contribution, ok := pShare.Contributions[deriver]
	if !ok {
		return nil, tss.NewBlame(PhaseKeyDerive, 0,
			errors.Wrapf(tss.ErrDecode, "no contribution recorded for party %d", deriver))
	}
	indices, err := hd.ParsePath(path)
	if err != nil {
		return nil, tss.Blamef(PhaseKeyDerive, 0, tss.ErrInvalidConfig, err)
	}
	d, err := hd.Ed25519(pShare.Y, pShare.Chaincode, indices)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, err)
	}
	tweak, err := e.curve.BasePointMult(d.Tweak)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, err)
	}
	moved, err := e.curve.PointAdd(contribution, tweak)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, errors.Wrapf(err, "contribution of party %d", deriver))
	}

	child := *pShare
	child.Y = d.PublicKey
	child.Chaincode = d.ChainCode
	child.Contributions = make(map[int]Hex, len(pShare.Contributions))
	for j, c := range pShare.Contributions {
		child.Contributions[j] = c
	}
	child.Contributions[deriver] = moved
	return &child, nil
}

// DeriveUnhardened derives the child common keychain at path from a common
// keychain (32-byte public key and 32-byte chaincode, hex).
func (e *EdDSA) DeriveUnhardened(commonKeychain, path string) (string, error) {
	raw, err := hex.DecodeString(commonKeychain)
	if err != nil || len(raw) != 64 {
		return "", errors.Wrap(tss.ErrDecode, "common keychain must be 64 bytes of hex")
	}
	indices, err := hd.ParsePath(path)
	if err != nil {
		return "", errors.Wrap(tss.ErrInvalidConfig, err.Error())
	}
	d, err := hd.Ed25519(raw[:32], raw[32:], indices)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(append(d.PublicKey, d.ChainCode...)), nil
}
