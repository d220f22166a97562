package ecdsa

import (
	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/pkg/tss"
)

// SignCombine folds the completed MtA shares into this party's additive
// shares of k*gamma and k*x:
//
//	delta_i   = k_i*gamma_i + sum_j (alpha_ij + beta_ij)
//	omicron_i = k_i*w_i     + sum_j (mu_ij + nu_ij)
//
// delta_i and Gamma_i are broadcast as DShares; omicron_i stays private.
func (e *ECDSA) SignCombine(wShare *WShare, gShares []*GShare) (*SignCombineRT, error) {
	if wShare == nil {
		return nil, tss.NewBlame(PhaseSignCombine, 0, errors.Wrap(tss.ErrDecode, "missing w-share"))
	}
	peers := make([]int, 0, len(gShares))
	for _, g := range gShares {
		if g == nil {
			return nil, tss.NewBlame(PhaseSignCombine, 0, errors.Wrap(tss.ErrDecode, "missing g-share"))
		}
		if g.I != wShare.I {
			return nil, tss.Blamef(PhaseSignCombine, g.J, tss.ErrUnexpectedShare,
				errors.Errorf("g-share belongs to party %d", g.I))
		}
		peers = append(peers, g.J)
	}
	if err := expectPeers(PhaseSignCombine, wShare.I, wShare.Signers, peers); err != nil {
		return nil, err
	}

	k, err := e.scalar(wShare.K, "k")
	if err != nil {
		return nil, tss.NewBlame(PhaseSignCombine, 0, err)
	}
	gamma, err := e.scalar(wShare.Gamma, "gamma")
	if err != nil {
		return nil, tss.NewBlame(PhaseSignCombine, 0, err)
	}
	w, err := e.scalar(wShare.W, "w")
	if err != nil {
		return nil, tss.NewBlame(PhaseSignCombine, 0, err)
	}
	delta := e.curve.ScalarMult(k, gamma)
	omicron := e.curve.ScalarMult(k, w)
	peerGammas := make(map[int]Hex, len(gShares))
	for _, g := range gShares {
		alpha, err := e.scalar(g.Alpha, "alpha")
		if err != nil {
			return nil, tss.NewBlame(PhaseSignCombine, g.J, err)
		}
		beta, err := e.scalar(g.Beta, "beta")
		if err != nil {
			return nil, tss.NewBlame(PhaseSignCombine, g.J, err)
		}
		mu, err := e.scalar(g.Mu, "mu")
		if err != nil {
			return nil, tss.NewBlame(PhaseSignCombine, g.J, err)
		}
		nu, err := e.scalar(g.Nu, "nu")
		if err != nil {
			return nil, tss.NewBlame(PhaseSignCombine, g.J, err)
		}
		if _, err := e.point(g.Gamma, "gamma"); err != nil {
			return nil, tss.NewBlame(PhaseSignCombine, g.J, err)
		}
		delta = e.curve.ScalarAdd(delta, e.curve.ScalarAdd(alpha, beta))
		omicron = e.curve.ScalarAdd(omicron, e.curve.ScalarAdd(mu, nu))
		peerGammas[g.J] = g.Gamma
	}

	gammaPoint, err := e.curve.BasePointMult(gamma)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignCombine, 0, err)
	}
	deltaHex := e.scalarHex(delta)
	rt := &SignCombineRT{
		OShare: &OShare{
			I:          wShare.I,
			Signers:    wShare.Signers,
			Y:          wShare.Y,
			K:          wShare.K,
			Omicron:    e.scalarHex(omicron),
			Delta:      deltaHex,
			Gamma:      gammaPoint,
			PeerGammas: peerGammas,
		},
		DShares: make(map[int]*DShare, len(gShares)),
	}
	for j := range peerGammas {
		rt.DShares[j] = &DShare{I: j, J: wShare.I, Delta: deltaHex, Gamma: gammaPoint}
	}
	e.logger.Debug().Int("party", wShare.I).Msg("sign combine")
	return rt, nil
}
