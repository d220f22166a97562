package ecdsa

import (
	"bytes"
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/paillier"
	"github.com/smallyu/go-tss/internal/crypto/zk/rangeproof"
	"github.com/smallyu/go-tss/pkg/tss"
)

// SignConvertStep1 answers peer kShare.J's encrypted k_J. It returns the
// AShare to send back and the BShare to keep:
//
//	alpha = Enc_J(k_J*gamma_I + beta')   beta = -beta' mod q
//	mu    = Enc_J(k_J*w_I + nu')         nu   = -nu' mod q
func (e *ECDSA) SignConvertStep1(wShare *WShare, kShare *KShare) (*SignConvertRT, error) {
	if wShare == nil || kShare == nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, errors.Wrap(tss.ErrDecode, "missing share"))
	}
	j := kShare.J
	peer, err := e.peer(wShare, kShare.I, j)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(kShare.N, peer.N) {
		return nil, tss.Blamef(PhaseSignConvert, j, tss.ErrUnexpectedShare,
			errors.New("k-share paillier modulus differs from key generation"))
	}
	pk, err := paillierPublicKey(peer.N)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, j, err)
	}
	ck, err := ciphertext(pk, kShare.K, "k")
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, j, err)
	}
	ownNtilde, err := decodeNtilde(wShare.Ntilde)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, err)
	}
	proof, err := e.decodeRangeProof(pk, ownNtilde, kShare.Proof)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, j, err)
	}
	if err := rangeproof.Verify(e.curve, pk, ownNtilde, proof, ck); err != nil {
		return nil, tss.Blamef(PhaseSignConvert, j, tss.ErrRangeProof, err)
	}
	peerNtilde, err := decodeNtilde(peer.Ntilde)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, j, err)
	}

	gamma, err := e.scalar(wShare.Gamma, "gamma")
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, err)
	}
	w, err := e.scalar(wShare.W, "w")
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, err)
	}
	gammaAlpha, beta, gammaPoint, gammaProof, err := e.mta(pk, peerNtilde, ck, gamma)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, errors.Wrap(err, "gamma"))
	}
	wMu, nu, wPoint, wProof, err := e.mta(pk, peerNtilde, ck, w)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, errors.Wrap(err, "w"))
	}

	e.logger.Debug().Int("party", wShare.I).Int("peer", j).Msg("mta response")
	return &SignConvertRT{
		AShare: &AShare{
			I:          j,
			J:          wShare.I,
			Alpha:      ciphertextHex(pk, gammaAlpha),
			Mu:         ciphertextHex(pk, wMu),
			Gamma:      gammaPoint,
			W:          wPoint,
			GammaProof: e.encodeRangeProofWithCheck(pk, peerNtilde, gammaProof),
			WProof:     e.encodeRangeProofWithCheck(pk, peerNtilde, wProof),
		},
		BShare: &BShare{
			I:    wShare.I,
			J:    j,
			Beta: e.scalarHex(beta),
			Nu:   e.scalarHex(nu),
		},
	}, nil
}

// mta computes c^x * Enc(b') for a fresh b' in [0, q^5) and proves it
// against X = x*G. It returns the ciphertext, -b' mod q, X and the proof.
func (e *ECDSA) mta(pk *paillier.PublicKey, nt *rangeproof.Ntilde, c, x *big.Int) (*big.Int, *big.Int, []byte, *rangeproof.ProofWithCheck, error) {
	bPrm, err := rand.Int(e.random, e.qPow(5))
	if err != nil {
		return nil, nil, nil, nil, errors.Wrap(err, "read randomness")
	}
	cb, r, err := pk.Encrypt(e.random, bPrm)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	out := pk.Add(pk.Mul(c, x), cb)
	X, err := e.curve.BasePointMult(x)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	proof, err := rangeproof.ProveWithCheck(e.random, e.curve, pk, nt, c, out, x, bPrm, r, X)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return out, e.curve.ScalarNegate(e.curve.ScalarReduce(bPrm)), X, proof, nil
}

// SignConvertStep2 verifies peer aShare.J's MtA responses to this party's
// k and decrypts them. W_J must match the peer's public share from key
// generation scaled by its Lagrange coefficient.
func (e *ECDSA) SignConvertStep2(wShare *WShare, aShare *AShare) (*MUShare, error) {
	if wShare == nil || aShare == nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, errors.Wrap(tss.ErrDecode, "missing share"))
	}
	j := aShare.J
	peer, err := e.peer(wShare, aShare.I, j)
	if err != nil {
		return nil, err
	}
	priv, err := paillierPrivateKey(wShare.L, wShare.M, wShare.N)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, err)
	}
	pk := &priv.PublicKey
	ck, err := ciphertext(pk, wShare.CK, "ck")
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, err)
	}
	nt, err := decodeNtilde(wShare.Ntilde)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, err)
	}

	verify := func(field string, c Hex, X Hex, p *RangeProofWithCheck) (*big.Int, error) {
		ct, err := ciphertext(pk, c, field)
		if err != nil {
			return nil, tss.NewBlame(PhaseSignConvert, j, err)
		}
		if _, err := e.point(X, field); err != nil {
			return nil, tss.NewBlame(PhaseSignConvert, j, err)
		}
		proof, err := e.decodeRangeProofWithCheck(pk, nt, p)
		if err != nil {
			return nil, tss.NewBlame(PhaseSignConvert, j, err)
		}
		if err := rangeproof.VerifyWithCheck(e.curve, pk, nt, proof, ck, ct, X); err != nil {
			return nil, tss.Blamef(PhaseSignConvert, j, tss.ErrRangeProof, errors.Wrap(err, field))
		}
		m, err := priv.Decrypt(ct)
		if err != nil {
			return nil, tss.Blamef(PhaseSignConvert, j, tss.ErrDecode, err)
		}
		return e.curve.ScalarReduce(m), nil
	}
	alpha, err := verify("alpha", aShare.Alpha, aShare.Gamma, aShare.GammaProof)
	if err != nil {
		return nil, err
	}
	mu, err := verify("mu", aShare.Mu, aShare.W, aShare.WProof)
	if err != nil {
		return nil, err
	}

	lambda, err := e.shamir.LagrangeCoefficient(j, wShare.Signers)
	if err != nil {
		return nil, tss.Blamef(PhaseSignConvert, j, tss.ErrUnexpectedShare, err)
	}
	expected, err := e.curve.PointMultiply(peer.X, lambda)
	if err != nil || !bytes.Equal(expected, aShare.W) {
		return nil, tss.Blamef(PhaseSignConvert, j, tss.ErrUnexpectedShare,
			errors.New("W does not match the public share from key generation"))
	}

	return &MUShare{
		I:     wShare.I,
		J:     j,
		Alpha: e.scalarHex(alpha),
		Mu:    e.scalarHex(mu),
		Gamma: aShare.Gamma,
	}, nil
}

// SignConvertStep3 completes the MtA with peer J by pairing the kept BShare
// with the decrypted MUShare.
func (e *ECDSA) SignConvertStep3(bShare *BShare, muShare *MUShare) (*GShare, error) {
	if bShare == nil || muShare == nil {
		return nil, tss.NewBlame(PhaseSignConvert, 0, errors.Wrap(tss.ErrDecode, "missing share"))
	}
	if bShare.I != muShare.I || bShare.J != muShare.J {
		return nil, tss.Blamef(PhaseSignConvert, muShare.J, tss.ErrUnexpectedShare,
			errors.Errorf("b-share (%d,%d) paired with mu-share (%d,%d)", bShare.I, bShare.J, muShare.I, muShare.J))
	}
	return &GShare{
		I:     bShare.I,
		J:     bShare.J,
		Alpha: muShare.Alpha,
		Beta:  bShare.Beta,
		Mu:    muShare.Mu,
		Nu:    bShare.Nu,
		Gamma: muShare.Gamma,
	}, nil
}

// peer checks that a share addressed to i came from a signer j and returns
// j's key generation record.
func (e *ECDSA) peer(wShare *WShare, i, j int) (*YShare, error) {
	if i != wShare.I {
		return nil, tss.Blamef(PhaseSignConvert, j, tss.ErrUnexpectedShare,
			errors.Errorf("share addressed to party %d", i))
	}
	peer, ok := wShare.Peers[j]
	if !ok || peer == nil {
		return nil, tss.Blamef(PhaseSignConvert, j, tss.ErrUnexpectedShare,
			errors.Errorf("party %d is not a signer", j))
	}
	return peer, nil
}
