package ecdsa

import (
	"bytes"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/pkg/tss"
)

// compactMagic is the header offset of a compact signature over a
// compressed public key.
const compactMagic = 27 + 4

// ConstructSignature sums the released signature shares into a low-s
// signature and checks it against the joint public key.
func (e *ECDSA) ConstructSignature(sShares []*SShare) (*Signature, error) {
	if len(sShares) == 0 {
		return nil, tss.NewBlame(PhaseConstruct, 0, tss.ErrInsufficientShares)
	}
	first := sShares[0]
	if first == nil {
		return nil, tss.NewBlame(PhaseConstruct, 0, errors.Wrap(tss.ErrDecode, "missing s-share"))
	}
	seen := make(map[int]bool, len(sShares))
	s := new(big.Int)
	for _, share := range sShares {
		if share == nil {
			return nil, tss.NewBlame(PhaseConstruct, 0, errors.Wrap(tss.ErrDecode, "missing s-share"))
		}
		if seen[share.I] {
			return nil, tss.Blamef(PhaseConstruct, share.I, tss.ErrUnexpectedShare, errors.New("duplicate s-share"))
		}
		seen[share.I] = true
		if !bytes.Equal(share.Y, first.Y) || !bytes.Equal(share.R, first.R) ||
			!bytes.Equal(share.Rx, first.Rx) || !bytes.Equal(share.M, first.M) {
			return nil, tss.Blamef(PhaseConstruct, share.I, tss.ErrUnexpectedShare,
				errors.New("s-share disagrees on y, R, r or m"))
		}
		si, err := e.scalar(share.S, "s")
		if err != nil {
			return nil, tss.NewBlame(PhaseConstruct, share.I, err)
		}
		s = e.curve.ScalarAdd(s, si)
	}
	if _, err := e.point(first.R, "R"); err != nil {
		return nil, tss.NewBlame(PhaseConstruct, 0, err)
	}
	if s.Sign() == 0 {
		return nil, tss.NewBlame(PhaseConstruct, 0, errors.Wrap(tss.ErrInvalidSignature, "s is zero"))
	}

	recID := 0
	if first.R[0] == 0x03 {
		recID |= 1
	}
	if new(big.Int).SetBytes(first.R[1:]).Cmp(e.curve.Order()) >= 0 {
		recID |= 2
	}
	half := new(big.Int).Rsh(e.curve.Order(), 1)
	if s.Cmp(half) > 0 {
		s = e.curve.ScalarNegate(s)
		recID ^= 1
	}

	sig := &Signature{Y: first.Y, R: first.Rx, S: e.scalarHex(s), RecID: recID}
	if err := verifyHash(first.M, sig); err != nil {
		return nil, tss.NewBlame(PhaseConstruct, 0, err)
	}
	e.logger.Debug().Int("signers", len(sShares)).Msg("signature constructed")
	return sig, nil
}

// Verify checks sig over SHA-256(message) under sig.Y.
func (e *ECDSA) Verify(message []byte, sig *Signature) bool {
	if sig == nil || len(sig.R) != 32 || len(sig.S) != 32 {
		return false
	}
	return e.curve.Verify(message, append(append([]byte(nil), sig.R...), sig.S...), sig.Y)
}

// Compact returns the 65-byte recoverable form: a header byte carrying the
// recovery id, then r and s.
func (s *Signature) Compact() []byte {
	out := make([]byte, 0, 65)
	out = append(out, byte(compactMagic+s.RecID))
	out = append(out, s.R...)
	return append(out, s.S...)
}

func verifyHash(hash []byte, sig *Signature) error {
	pk, err := secp256k1.ParsePubKey(sig.Y)
	if err != nil {
		return errors.Wrapf(tss.ErrDecode, "public key: %v", err)
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig.R); overflow || r.IsZero() {
		return errors.Wrap(tss.ErrInvalidSignature, "r out of range")
	}
	if overflow := s.SetByteSlice(sig.S); overflow || s.IsZero() {
		return errors.Wrap(tss.ErrInvalidSignature, "s out of range")
	}
	if !decredecdsa.NewSignature(&r, &s).Verify(hash, pk) {
		return tss.ErrInvalidSignature
	}
	return nil
}
