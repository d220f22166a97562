package ecdsa

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/commitment"
	"github.com/smallyu/go-tss/internal/crypto/zk/schnorr"
	"github.com/smallyu/go-tss/pkg/tss"
)

// hashMessage is SHA-256(message) reduced mod q.
func (e *ECDSA) hashMessage(message []byte) *big.Int {
	h := sha256.Sum256(message)
	return e.curve.ScalarReduce(new(big.Int).SetBytes(h[:]))
}

// Sign computes R = (sum Gamma_j) * delta^-1, r = R.x mod q and this party's
// signature share s_i = m*k_i + r*omicron_i. s_i is not released: only a
// commitment to V_i = s_i*R + l_i*G and A_i = rho_i*G is broadcast.
func (e *ECDSA) Sign(message []byte, oShare *OShare, dShares []*DShare) (*SignRT, error) {
	if oShare == nil {
		return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(tss.ErrDecode, "missing o-share"))
	}
	peers := make([]int, 0, len(dShares))
	for _, d := range dShares {
		if d == nil {
			return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(tss.ErrDecode, "missing d-share"))
		}
		if d.I != oShare.I {
			return nil, tss.Blamef(PhaseSign, d.J, tss.ErrUnexpectedShare,
				errors.Errorf("d-share addressed to party %d", d.I))
		}
		peers = append(peers, d.J)
	}
	if err := expectPeers(PhaseSign, oShare.I, oShare.Signers, peers); err != nil {
		return nil, err
	}

	delta, err := e.scalar(oShare.Delta, "delta")
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, err)
	}
	gammas := [][]byte{oShare.Gamma}
	for _, d := range dShares {
		if !bytes.Equal(d.Gamma, oShare.PeerGammas[d.J]) {
			return nil, tss.Blamef(PhaseSign, d.J, tss.ErrUnexpectedShare,
				errors.New("broadcast Gamma differs from the one bound in the mta proof"))
		}
		dj, err := e.scalar(d.Delta, "delta")
		if err != nil {
			return nil, tss.NewBlame(PhaseSign, d.J, err)
		}
		delta = e.curve.ScalarAdd(delta, dj)
		gammas = append(gammas, d.Gamma)
	}
	deltaInv, err := e.curve.ScalarInvert(delta)
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(err, "delta"))
	}
	gamma, err := e.sumPoints(gammas...)
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(err, "sum of Gamma"))
	}
	R, err := e.curve.PointMultiply(gamma, deltaInv)
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(err, "R"))
	}
	r := e.curve.ScalarReduce(new(big.Int).SetBytes(R[1:]))
	if r.Sign() == 0 {
		return nil, tss.NewBlame(PhaseSign, 0, errors.New("r is zero"))
	}

	k, err := e.scalar(oShare.K, "k")
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, err)
	}
	omicron, err := e.scalar(oShare.Omicron, "omicron")
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, err)
	}
	m := e.hashMessage(message)
	s := e.curve.ScalarAdd(e.curve.ScalarMult(m, k), e.curve.ScalarMult(r, omicron))

	l, err := e.curve.ScalarRandom()
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, err)
	}
	rho, err := e.curve.ScalarRandom()
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, err)
	}
	va := &VAShare{
		I:       oShare.I,
		Signers: oShare.Signers,
		Y:       oShare.Y,
		M:       e.scalarHex(m),
		R:       R,
		Rx:      e.scalarHex(r),
		S:       e.scalarHex(s),
		L:       e.scalarHex(l),
		Rho:     e.scalarHex(rho),
	}
	if err := e.commitVA(va); err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, err)
	}
	e.logger.Debug().Int("party", oShare.I).Msg("signature share committed")
	return &SignRT{
		VAShare:      va,
		VACommitment: &VACommitment{I: va.I, C: va.C},
	}, nil
}

// commitVA sets V, A and a fresh commitment to them from S, L and Rho.
func (e *ECDSA) commitVA(va *VAShare) error {
	s := toBig(va.S)
	l := toBig(va.L)
	sR, err := e.curve.PointMultiply(va.R, s)
	if err != nil {
		return errors.Wrap(err, "s*R")
	}
	lG, err := e.curve.BasePointMult(l)
	if err != nil {
		return errors.Wrap(err, "l*G")
	}
	V, err := e.curve.PointAdd(sR, lG)
	if err != nil {
		return errors.Wrap(err, "V")
	}
	A, err := e.curve.BasePointMult(toBig(va.Rho))
	if err != nil {
		return errors.Wrap(err, "A")
	}
	c, err := commitment.New(V, A)
	if err != nil {
		return err
	}
	va.V, va.A, va.C, va.D = V, A, c.C, c.D
	return nil
}

// vaContext binds the phase 5 proofs to the prover and the session's R.
func vaContext(index int, R []byte) []byte {
	return append([]byte(fmt.Sprintf("gg18-va/%d/", index)), R...)
}

// GenerateVAProofs opens this party's VACommitment and proves knowledge of
// (s_i, l_i) behind V_i and of rho_i behind A_i.
func (e *ECDSA) GenerateVAProofs(va *VAShare) (*VAShareWithProofs, error) {
	if va == nil {
		return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(tss.ErrDecode, "missing va-share"))
	}
	ctx := vaContext(va.I, va.R)
	vProof, err := schnorr.ProveLinear(e.curve, ctx, toBig(va.S), toBig(va.L), va.R, va.V)
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, err)
	}
	aProof, err := schnorr.Prove(e.curve, ctx, toBig(va.Rho), va.A)
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, err)
	}
	return &VAShareWithProofs{
		I:      va.I,
		V:      va.V,
		A:      va.A,
		D:      va.D,
		VProof: e.encodeLinear(vProof),
		AProof: e.encodeSchnorr(aProof),
	}, nil
}
