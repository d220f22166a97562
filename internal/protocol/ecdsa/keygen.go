package ecdsa

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/smallyu/go-tss/internal/crypto/paillier"
	"github.com/smallyu/go-tss/internal/crypto/zk/rangeproof"
	"github.com/smallyu/go-tss/internal/encoding"
	"github.com/smallyu/go-tss/pkg/tss"
)

var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

// paillierProofContext binds the modulus proof of party from to recipient to.
func paillierProofContext(from, to int) []byte {
	return []byte(fmt.Sprintf("paillier-modulus/%d->%d", from, to))
}

// KeyShare generates party index's key material for a t-of-n key: a Paillier
// key pair, an Ntilde with proofs, a random secret u split with Feldman VSS,
// and a 32-byte chaincode. The returned NShares go to the other parties.
func (e *ECDSA) KeyShare(ctx context.Context, index, t, n int) (*KeyShare, error) {
	if err := tss.ValidateParams(index, t, n); err != nil {
		return nil, tss.NewBlame(PhaseKeyShare, 0, err)
	}
	logger := e.logger.With().Int("party", index).Logger()
	logger.Debug().Int("t", t).Int("n", n).Msg("generating key share")

	var (
		priv *paillier.PrivateKey
		nt   *rangeproof.NtildeWithProofs
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		priv, err = paillier.GenerateKey(gctx, e.random, e.config.PaillierBits)
		return errors.Wrap(err, "paillier key")
	})
	g.Go(func() (err error) {
		nt, err = rangeproof.GenerateNtilde(gctx, e.random, e.config.NtildeBits)
		return errors.Wrap(err, "ntilde")
	})
	if err := g.Wait(); err != nil {
		return nil, tss.NewBlame(PhaseKeyShare, 0, err)
	}

	u, err := e.curve.ScalarRandom()
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyShare, 0, err)
	}
	y, err := e.curve.BasePointMult(u)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyShare, 0, err)
	}
	chaincode := make([]byte, 32)
	if _, err := io.ReadFull(e.random, chaincode); err != nil {
		return nil, tss.NewBlame(PhaseKeyShare, 0, errors.Wrap(err, "chaincode"))
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

	nb := encoding.ByteLen(priv.N)
	paillierN := encoding.BigToBytes(priv.N, nb)
	ntilde := e.encodeNtilde(nt)

	keyShare := &KeyShare{
		PShare: &PShare{
			I:         index,
			T:         t,
			Parties:   n,
			L:         encoding.BigToBytes(priv.Lambda, nb),
			M:         encoding.BigToBytes(priv.Mu, nb),
			N:         paillierN,
			Y:         y,
			U:         e.scalarHex(split.Shares[index]),
			V:         v,
			Chaincode: chaincode,
			Ntilde:    publicNtilde(ntilde),
		},
		NShares: make(map[int]*NShare, n-1),
	}

	for j := 1; j <= n; j++ {
		if j == index {
			continue
		}
		sigma, err := priv.Prove(paillier.DeriveP(priv.N, paillierProofContext(index, j)))
		if err != nil {
			return nil, tss.NewBlame(PhaseKeyShare, 0, err)
		}
		proof := make([]Hex, len(sigma))
		for k := range sigma {
			proof[k] = encoding.BigToBytes(sigma[k], nb)
		}
		keyShare.NShares[j] = &NShare{
			I:             j,
			J:             index,
			N:             paillierN,
			Ntilde:        ntilde,
			Y:             y,
			V:             v,
			U:             e.scalarHex(split.Shares[j]),
			Chaincode:     chaincode,
			PaillierProof: proof,
		}
	}
	logger.Debug().Msg("key share ready")
	return keyShare, nil
}

// KeyCombine verifies the NShares received from every other party and
// combines them with pShare into this party's long-term share.
func (e *ECDSA) KeyCombine(pShare *PShare, nShares []*NShare) (*KeyCombined, error) {
	if pShare == nil {
		return nil, tss.NewBlame(PhaseKeyCombine, 0, errors.Wrap(tss.ErrDecode, "missing p-share"))
	}
	if err := tss.ValidateParams(pShare.I, pShare.T, pShare.Parties); err != nil {
		return nil, tss.NewBlame(PhaseKeyCombine, 0, err)
	}
	logger := e.logger.With().Int("party", pShare.I).Logger()

	senders := make([]int, 0, len(nShares))
	for _, share := range nShares {
		if share == nil {
			return nil, tss.NewBlame(PhaseKeyCombine, 0, errors.Wrap(tss.ErrDecode, "missing n-share"))
		}
		if share.I != pShare.I {
			return nil, tss.Blamef(PhaseKeyCombine, share.J, tss.ErrUnexpectedShare,
				errors.Errorf("share addressed to party %d", share.I))
		}
		senders = append(senders, share.J)
	}
	all := make([]int, pShare.Parties)
	for k := range all {
		all[k] = k + 1
	}
	if err := expectPeers(PhaseKeyCombine, pShare.I, all, senders); err != nil {
		return nil, err
	}

	ownU, err := e.scalar(pShare.U, "u")
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyCombine, 0, err)
	}
	ys := [][]byte{pShare.Y}
	x := ownU
	chaincode := new(big.Int).SetBytes(pShare.Chaincode)
	commitments := [][][]byte{hexList(pShare.V)}
	yShares := make(map[int]*YShare, len(nShares))

	for _, share := range nShares {
		if err := e.verifyNShare(pShare, share); err != nil {
			return nil, err
		}
		u, _ := e.scalar(share.U, "u")
		x = e.curve.ScalarAdd(x, u)
		ys = append(ys, share.Y)
		commitments = append(commitments, hexList(share.V))
		chaincode.Add(chaincode, new(big.Int).SetBytes(share.Chaincode))
		chaincode.Mod(chaincode, two256)
		yShares[share.J] = &YShare{
			I:      pShare.I,
			J:      share.J,
			N:      share.N,
			Ntilde: publicNtilde(share.Ntilde),
		}
	}

	y, err := e.sumPoints(ys...)
	if err != nil {
		return nil, tss.NewBlame(PhaseKeyCombine, 0, errors.Wrap(err, "joint public key"))
	}

	// Public shares x_j*G follow from everyone's commitments.
	for j, peer := range yShares {
		X, err := e.publicShare(commitments, j)
		if err != nil {
			return nil, tss.Blamef(PhaseKeyCombine, j, tss.ErrVSS, err)
		}
		peer.X = X
	}
	own, err := e.publicShare(commitments, pShare.I)
	if err != nil {
		return nil, tss.Blamef(PhaseKeyCombine, 0, tss.ErrVSS, err)
	}
	xG, err := e.curve.BasePointMult(x)
	if err != nil || !bytes.Equal(xG, own) {
		return nil, tss.Blamef(PhaseKeyCombine, 0, tss.ErrVSS, errors.New("own share does not match the commitments"))
	}

	logger.Debug().Int("peers", len(yShares)).Msg("key combined")
	return &KeyCombined{
		XShare: &XShare{
			I:         pShare.I,
			T:         pShare.T,
			Parties:   pShare.Parties,
			L:         pShare.L,
			M:         pShare.M,
			N:         pShare.N,
			Y:         y,
			X:         e.scalarHex(x),
			Chaincode: encoding.BigToBytes(chaincode, 32),
			Ntilde:    pShare.Ntilde,
		},
		YShares: yShares,
	}, nil
}

// verifyNShare checks the sender's VSS, Paillier modulus proof and Ntilde proofs.
func (e *ECDSA) verifyNShare(pShare *PShare, share *NShare) error {
	blame := func(sentinel, cause error) error {
		return tss.Blamef(PhaseKeyCombine, share.J, sentinel, cause)
	}

	u, err := e.scalar(share.U, "u")
	if err != nil {
		return blame(tss.ErrDecode, err)
	}
	if len(share.V) != pShare.T {
		return blame(tss.ErrVSS, errors.Errorf("%d commitments for threshold %d", len(share.V), pShare.T))
	}
	for k, c := range share.V {
		if _, err := e.point(c, fmt.Sprintf("v[%d]", k)); err != nil {
			return blame(tss.ErrDecode, err)
		}
	}
	if !bytes.Equal(share.V[0], share.Y) {
		return blame(tss.ErrVSS, errors.New("first commitment is not y"))
	}
	if len(share.Chaincode) != 32 {
		return blame(tss.ErrDecode, errors.New("chaincode must be 32 bytes"))
	}
	if err := e.shamir.Verify(u, hexList(share.V), pShare.I); err != nil {
		return blame(tss.ErrVSS, err)
	}

	pk, err := paillierPublicKey(share.N)
	if err != nil {
		return blame(tss.ErrDecode, err)
	}
	if pk.N.BitLen() < tss.MinPaillierBits {
		return blame(tss.ErrPaillierProof, errors.Errorf("modulus of %d bits", pk.N.BitLen()))
	}
	sigma := make([]*big.Int, len(share.PaillierProof))
	for k, s := range share.PaillierProof {
		if sigma[k], err = fixedBig(s, len(share.N), "paillier proof"); err != nil {
			return blame(tss.ErrDecode, err)
		}
	}
	p := paillier.DeriveP(pk.N, paillierProofContext(share.J, share.I))
	if err := paillier.Verify(pk.N, p, sigma); err != nil {
		return blame(tss.ErrPaillierProof, err)
	}

	nt, err := decodeNtildeWithProofs(share.Ntilde)
	if err != nil {
		return blame(tss.ErrDecode, err)
	}
	if nt.N.BitLen() < tss.MinNtildeBits {
		return blame(tss.ErrNtildeProof, errors.Errorf("ntilde of %d bits", nt.N.BitLen()))
	}
	if nt.N.Cmp(pk.N) == 0 {
		return blame(tss.ErrNtildeProof, errors.New("ntilde reuses the paillier modulus"))
	}
	if err := nt.Verify(); err != nil {
		return blame(tss.ErrNtildeProof, err)
	}
	return nil
}

// publicShare evaluates sum_k V_k(index) in the exponent: x_index*G.
func (e *ECDSA) publicShare(commitments [][][]byte, index int) ([]byte, error) {
	x := big.NewInt(int64(index))
	terms := make([][]byte, 0, len(commitments))
	for _, v := range commitments {
		// Horner in the exponent.
		acc := v[len(v)-1]
		for k := len(v) - 2; k >= 0; k-- {
			scaled, err := e.curve.PointMultiply(acc, x)
			if err != nil {
				return nil, err
			}
			if acc, err = e.curve.PointAdd(scaled, v[k]); err != nil {
				return nil, err
			}
		}
		terms = append(terms, acc)
	}
	return e.sumPoints(terms...)
}

func hexList(hs []Hex) [][]byte {
	out := make([][]byte, len(hs))
	for i, h := range hs {
		out[i] = h
	}
	return out
}
