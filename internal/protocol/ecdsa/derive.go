package ecdsa

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/hd"
	"github.com/smallyu/go-tss/pkg/tss"
)

// CommonKeychain is the joint public key followed by the joint chaincode,
// hex encoded.
func (x *XShare) CommonKeychain() string {
	return hex.EncodeToString(append(append([]byte(nil), x.Y...), x.Chaincode...))
}

// KeyDerive derives the unhardened child at path of a combined key. Every
// party shifts its own share by the same public tweak, so the shares of all
// parties stay consistent without another round.
func (e *ECDSA) KeyDerive(combined *KeyCombined, path string) (*KeyCombined, error) {
	if combined == nil || combined.XShare == nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, errors.Wrap(tss.ErrDecode, "missing x-share"))
	}
	indices, err := hd.ParsePath(path)
	if err != nil {
		return nil, tss.Blamef(PhaseKeyDerive, 0, tss.ErrInvalidConfig, err)
	}
	xShare := combined.XShare
	x, err := e.scalar(xShare.X, "x")
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, err)
	}
	d, err := hd.Secp256k1(xShare.Y, xShare.Chaincode, indices)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyDerive, 0, err)
	}

	// Every public share moves by tweak*G.
	var tweakG []byte
	if d.Tweak.Sign() != 0 {
		if tweakG, err = e.curve.BasePointMult(d.Tweak); err != nil {
			return nil, tss.NewBlame(PhaseKeyDerive, 0, err)
		}
	}
	yShares := make(map[int]*YShare, len(combined.YShares))
	for j, peer := range combined.YShares {
		child := *peer
		if tweakG != nil {
			X, err := e.curve.PointAdd(peer.X, tweakG)
			if err != nil {
				return nil, tss.Blamef(PhaseKeyDerive, j, tss.ErrDecode, err)
			}
			child.X = X
		}
		yShares[j] = &child
	}

	child := *xShare
	child.X = e.scalarHex(e.curve.ScalarAdd(x, d.Tweak))
	child.Y = d.PublicKey
	child.Chaincode = d.ChainCode
	e.logger.Debug().Int("party", xShare.I).Str("path", path).Msg("derived child key")
	return &KeyCombined{XShare: &child, YShares: yShares}, nil
}

// DeriveUnhardened derives the child common keychain at path from a common
// keychain (33-byte public key and 32-byte chaincode, hex).
func (e *ECDSA) DeriveUnhardened(commonKeychain, path string) (string, error) {
	raw, err := hex.DecodeString(commonKeychain)
	if err != nil || len(raw) != e.curve.PointSize()+32 {
		return "", errors.Wrap(tss.ErrDecode, "common keychain must be 65 bytes of hex")
	}
	indices, err := hd.ParsePath(path)
	if err != nil {
		return "", errors.Wrap(tss.ErrInvalidConfig, err.Error())
	}
	d, err := hd.Secp256k1(raw[:e.curve.PointSize()], raw[e.curve.PointSize():], indices)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(append(d.PublicKey, d.ChainCode...)), nil
}
