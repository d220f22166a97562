package ecdsa

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/commitment"
	"github.com/smallyu/go-tss/pkg/tss"
)

// VerifyVAShares opens every peer's VA commitment, checks the proofs, and
// computes
//
//	V = -m*G - r*y + sum V_i    A = sum A_i
//	U_i = rho_i*V               T_i = l_i*A
//
// With honest shares sum U_i = sum T_i. Only a commitment to (U_i, T_i) is
// broadcast at this point.
func (e *ECDSA) VerifyVAShares(va *VAShare, commitments []*VACommitment, proofs []*VAShareWithProofs) (*VerifyVART, error) {
	if va == nil {
		return nil, tss.NewBlame(PhaseVerifyVA, 0, errors.Wrap(tss.ErrDecode, "missing va-share"))
	}
	committed, err := commitmentsByParty(PhaseVerifyVA, va.I, va.Signers, len(commitments), func(k int) (int, Hex) {
		if commitments[k] == nil {
			return 0, nil
		}
		return commitments[k].I, commitments[k].C
	})
	if err != nil {
		return nil, err
	}
	senders := make([]int, 0, len(proofs))
	for _, p := range proofs {
		if p == nil {
			return nil, tss.NewBlame(PhaseVerifyVA, 0, errors.Wrap(tss.ErrDecode, "missing va proofs"))
		}
		senders = append(senders, p.I)
	}
	if err := expectPeers(PhaseVerifyVA, va.I, va.Signers, senders); err != nil {
		return nil, err
	}

	vs := [][]byte{va.V}
	as := [][]byte{va.A}
	for _, p := range proofs {
		if !commitment.Verify(committed[p.I], p.D, p.V, p.A) {
			return nil, tss.NewBlame(PhaseVerifyVA, p.I, tss.ErrCommitment)
		}
		if _, err := e.point(p.V, "v"); err != nil {
			return nil, tss.NewBlame(PhaseVerifyVA, p.I, err)
		}
		if _, err := e.point(p.A, "a"); err != nil {
			return nil, tss.NewBlame(PhaseVerifyVA, p.I, err)
		}
		ctx := vaContext(p.I, va.R)
		vProof, err := e.decodeLinear(p.VProof)
		if err != nil {
			return nil, tss.NewBlame(PhaseVerifyVA, p.I, err)
		}
		if err := vProof.Verify(e.curve, ctx, va.R, p.V); err != nil {
			return nil, tss.Blamef(PhaseVerifyVA, p.I, tss.ErrSchnorrProof, err)
		}
		aProof, err := e.decodeSchnorr(p.AProof)
		if err != nil {
			return nil, tss.NewBlame(PhaseVerifyVA, p.I, err)
		}
		if err := aProof.Verify(e.curve, ctx, p.A); err != nil {
			return nil, tss.Blamef(PhaseVerifyVA, p.I, tss.ErrSchnorrProof, err)
		}
		vs = append(vs, p.V)
		as = append(as, p.A)
	}

	m := toBig(va.M)
	r := toBig(va.Rx)
	terms := vs
	if m.Sign() != 0 {
		mG, err := e.curve.BasePointMult(e.curve.ScalarNegate(m))
		if err != nil {
			return nil, tss.NewBlame(PhaseVerifyVA, 0, err)
		}
		terms = append(terms, mG)
	}
	ry, err := e.curve.PointMultiply(va.Y, e.curve.ScalarNegate(r))
	if err != nil {
		return nil, tss.NewBlame(PhaseVerifyVA, 0, err)
	}
	V, err := e.sumPoints(append(terms, ry)...)
	if err != nil {
		return nil, tss.NewBlame(PhaseVerifyVA, 0, errors.Wrap(err, "V"))
	}
	A, err := e.sumPoints(as...)
	if err != nil {
		return nil, tss.NewBlame(PhaseVerifyVA, 0, errors.Wrap(err, "A"))
	}
	U, err := e.curve.PointMultiply(V, toBig(va.Rho))
	if err != nil {
		return nil, tss.NewBlame(PhaseVerifyVA, 0, err)
	}
	T, err := e.curve.PointMultiply(A, toBig(va.L))
	if err != nil {
		return nil, tss.NewBlame(PhaseVerifyVA, 0, err)
	}
	c, err := commitment.New(U, T)
	if err != nil {
		return nil, tss.NewBlame(PhaseVerifyVA, 0, err)
	}

	e.logger.Debug().Int("party", va.I).Msg("va shares verified")
	return &VerifyVART{
		UTShare: &UTShare{
			I:       va.I,
			Signers: va.Signers,
			Y:       va.Y,
			R:       va.R,
			Rx:      va.Rx,
			M:       va.M,
			S:       va.S,
			U:       U,
			T:       T,
			C:       c.C,
			D:       c.D,
		},
		UTCommitment: &UTCommitment{I: va.I, C: c.C},
	}, nil
}

// RevealUTShare opens this party's UT commitment.
func (e *ECDSA) RevealUTShare(ut *UTShare) (*PublicUTShare, error) {
	if ut == nil {
		return nil, tss.NewBlame(PhaseVerifyUT, 0, errors.Wrap(tss.ErrDecode, "missing ut-share"))
	}
	return &PublicUTShare{I: ut.I, U: ut.U, T: ut.T, D: ut.D}, nil
}

// VerifyUTShares opens every peer's UT commitment and checks
// sum U_i = sum T_i. Only then is s_i released as an SShare.
func (e *ECDSA) VerifyUTShares(ut *UTShare, commitments []*UTCommitment, reveals []*PublicUTShare) (*SShare, error) {
	if ut == nil {
		return nil, tss.NewBlame(PhaseVerifyUT, 0, errors.Wrap(tss.ErrDecode, "missing ut-share"))
	}
	committed, err := commitmentsByParty(PhaseVerifyUT, ut.I, ut.Signers, len(commitments), func(k int) (int, Hex) {
		if commitments[k] == nil {
			return 0, nil
		}
		return commitments[k].I, commitments[k].C
	})
	if err != nil {
		return nil, err
	}
	senders := make([]int, 0, len(reveals))
	for _, p := range reveals {
		if p == nil {
			return nil, tss.NewBlame(PhaseVerifyUT, 0, errors.Wrap(tss.ErrDecode, "missing ut reveal"))
		}
		senders = append(senders, p.I)
	}
	if err := expectPeers(PhaseVerifyUT, ut.I, ut.Signers, senders); err != nil {
		return nil, err
	}

	us := [][]byte{ut.U}
	ts := [][]byte{ut.T}
	for _, p := range reveals {
		if !commitment.Verify(committed[p.I], p.D, p.U, p.T) {
			return nil, tss.NewBlame(PhaseVerifyUT, p.I, tss.ErrCommitment)
		}
		if _, err := e.point(p.U, "u"); err != nil {
			return nil, tss.NewBlame(PhaseVerifyUT, p.I, err)
		}
		if _, err := e.point(p.T, "t"); err != nil {
			return nil, tss.NewBlame(PhaseVerifyUT, p.I, err)
		}
		us = append(us, p.U)
		ts = append(ts, p.T)
	}
	sumU, errU := e.sumPoints(us...)
	sumT, errT := e.sumPoints(ts...)
	if errU != nil || errT != nil || !bytes.Equal(sumU, sumT) {
		e.logger.Warn().Int("party", ut.I).Msg("signature share check failed")
		return nil, tss.NewBlame(PhaseVerifyUT, 0, tss.ErrSignatureShares)
	}

	return &SShare{I: ut.I, Y: ut.Y, R: ut.R, Rx: ut.Rx, M: ut.M, S: ut.S}, nil
}

// commitmentsByParty indexes the broadcast commitments by sender and checks
// that exactly the other signers sent one.
func commitmentsByParty(phase string, self int, signers []int, n int, at func(int) (int, Hex)) (map[int]Hex, error) {
	out := make(map[int]Hex, n)
	senders := make([]int, 0, n)
	for k := 0; k < n; k++ {
		j, c := at(k)
		if c == nil {
			return nil, tss.NewBlame(phase, j, errors.Wrap(tss.ErrDecode, "missing commitment"))
		}
		out[j] = c
		senders = append(senders, j)
	}
	if err := expectPeers(phase, self, signers, senders); err != nil {
		return nil, err
	}
	return out, nil
}
