package ecdsa

import (
	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/zk/rangeproof"
	"github.com/smallyu/go-tss/pkg/tss"
)

// SignShare starts a signing session between xShare's owner and the peers
// in yShares. It samples k_i and gamma_i, converts x_i into the additive
// share w_i = lambda_i(S)*x_i, and encrypts k_i under its own Paillier key
// with one range proof per peer.
func (e *ECDSA) SignShare(xShare *XShare, yShares []*YShare) (*SignShareRT, error) {
	if xShare == nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, errors.Wrap(tss.ErrDecode, "missing x-share"))
	}
	peers := make(map[int]*YShare, len(yShares))
	indices := make([]int, 0, len(yShares))
	for _, peer := range yShares {
		if peer == nil {
			return nil, tss.NewBlame(PhaseSignShare, 0, errors.Wrap(tss.ErrDecode, "missing y-share"))
		}
		if peer.I != xShare.I {
			return nil, tss.Blamef(PhaseSignShare, peer.J, tss.ErrUnexpectedShare,
				errors.Errorf("y-share belongs to party %d", peer.I))
		}
		peers[peer.J] = peer
		indices = append(indices, peer.J)
	}
	signers, err := checkSigners(xShare.I, xShare.T, xShare.Parties, indices)
	if err != nil {
		return nil, err
	}
	logger := e.logger.With().Int("party", xShare.I).Logger()
	logger.Debug().Ints("signers", signers).Msg("sign share")

	x, err := e.scalar(xShare.X, "x")
	if err != nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, err)
	}
	lambda, err := e.shamir.LagrangeCoefficient(xShare.I, signers)
	if err != nil {
		return nil, tss.Blamef(PhaseSignShare, 0, tss.ErrInvalidConfig, err)
	}
	w := e.curve.ScalarMult(lambda, x)
	k, err := e.curve.ScalarRandom()
	if err != nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, err)
	}
	gamma, err := e.curve.ScalarRandom()
	if err != nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, err)
	}

	pk, err := paillierPublicKey(xShare.N)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, err)
	}
	ck, nonce, err := pk.Encrypt(e.random, k)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, errors.Wrap(err, "encrypt k"))
	}
	ckHex := ciphertextHex(pk, ck)

	rt := &SignShareRT{
		WShare: &WShare{
			I:       xShare.I,
			Signers: signers,
			L:       xShare.L,
			M:       xShare.M,
			N:       xShare.N,
			Y:       xShare.Y,
			K:       e.scalarHex(k),
			Gamma:   e.scalarHex(gamma),
			W:       e.scalarHex(w),
			CK:      ckHex,
			Ntilde:  xShare.Ntilde,
			Peers:   peers,
		},
		KShares: make(map[int]*KShare, len(peers)),
	}
	for j, peer := range peers {
		nt, err := decodeNtilde(peer.Ntilde)
		if err != nil {
			return nil, tss.Blamef(PhaseSignShare, j, tss.ErrDecode, err)
		}
		proof, err := rangeproof.Prove(e.random, e.curve, pk, nt, ck, k, nonce)
		if err != nil {
			return nil, tss.NewBlame(PhaseSignShare, 0, errors.Wrap(err, "range proof"))
		}
		rt.KShares[j] = &KShare{
			I:     j,
			J:     xShare.I,
			N:     xShare.N,
			K:     ckHex,
			Proof: e.encodeRangeProof(pk, nt, proof),
		}
	}
	return rt, nil
}
