package eddsa

import (
	"crypto/sha512"
	"math/big"
	"sort"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/encoding"
	"github.com/smallyu/go-tss/pkg/tss"
)

// reduce maps a 64-byte SHA-512 digest to a scalar, little-endian.
func (e *EdDSA) reduce(digest []byte) *big.Int {
	return e.curve.ScalarReduce(encoding.BytesToBigLE(digest))
}

// SignShare starts a signing session for message between pShare's owner and
// the peers in jShares. The nonce is r = H(prefix || message || seed) with a
// fresh 64-byte seed unless one is given. Both u and r are re-shared: u with
// the key's threshold, r among exactly the signers.
func (e *EdDSA) SignShare(message []byte, pShare *PShare, jShares []*JShare, seed []byte) (*SignShareRT, error) {
	if pShare == nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, errors.Wrap(tss.ErrDecode, "missing p-share"))
	}
	seed, err := e.seed(PhaseSignShare, seed)
	if err != nil {
		return nil, err
	}
	signers := []int{pShare.I}
	seen := map[int]bool{pShare.I: true}
	for _, j := range jShares {
		if j == nil {
			return nil, tss.NewBlame(PhaseSignShare, 0, errors.Wrap(tss.ErrDecode, "missing j-share"))
		}
		if j.J != pShare.I || j.I < 1 || j.I > pShare.Parties || seen[j.I] {
			return nil, tss.Blamef(PhaseSignShare, j.I, tss.ErrUnexpectedShare,
				errors.Errorf("j-share (%d,%d) is not a distinct peer of party %d", j.I, j.J, pShare.I))
		}
		seen[j.I] = true
		signers = append(signers, j.I)
	}
	if len(signers) < pShare.T {
		return nil, tss.Blamef(PhaseSignShare, 0, tss.ErrInsufficientShares,
			errors.Errorf("%d signers for threshold %d", len(signers), pShare.T))
	}
	sort.Ints(signers)
	if len(pShare.Contributions) != pShare.Parties {
		return nil, tss.NewBlame(PhaseSignShare, 0,
			errors.Wrapf(tss.ErrDecode, "p-share records %d contributions for %d parties", len(pShare.Contributions), pShare.Parties))
	}

	u, err := e.scalar(pShare.U, "u")
	if err != nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, err)
	}
	uSplit, err := e.shamir.Split(u, pShare.T, pShare.Parties)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, err)
	}
	uG, err := e.curve.BasePointMult(u)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, err)
	}
	v := make([]Hex, 0, pShare.T)
	v = append(v, uG)
	for _, c := range uSplit.V {
		v = append(v, c)
	}

	h := sha512.New()
	h.Write(pShare.Prefix)
	h.Write(message)
	h.Write(seed)
	r := e.reduce(h.Sum(nil))
	R, err := e.curve.BasePointMult(r)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, err)
	}
	rSplit, err := e.shamir.Split(r, len(signers), len(signers), signers...)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignShare, 0, err)
	}
	rv := make([]Hex, 0, len(signers))
	rv = append(rv, R)
	for _, c := range rSplit.V {
		rv = append(rv, c)
	}

	rt := &SignShareRT{
		XShare: &XShare{
			I:       pShare.I,
			T:       pShare.T,
			Parties: pShare.Parties,
			Signers: signers,
			Y:       pShare.Y,
			U:             e.scalarHex(uSplit.Shares[pShare.I]),
			R:             e.scalarHex(rSplit.Shares[pShare.I]),
			BigR:          R,
			Contributions: pShare.Contributions,
		},
		RShares: make(map[int]*RShare, len(jShares)),
	}
	for _, j := range signers {
		if j == pShare.I {
			continue
		}
		commitment, err := e.curve.BasePointMult(rSplit.Shares[j])
		if err != nil {
			return nil, tss.NewBlame(PhaseSignShare, 0, err)
		}
		rt.RShares[j] = &RShare{
			I:          j,
			J:          pShare.I,
			U:          e.scalarHex(uSplit.Shares[j]),
			V:          v,
			R:          e.scalarHex(rSplit.Shares[j]),
			BigR:       R,
			Commitment: commitment,
			RV:         rv,
		}
	}
	e.logger.Debug().Int("party", pShare.I).Ints("signers", signers).Msg("sign share")
	return rt, nil
}

// Sign computes this signer's share gamma_i = r_i + k*x_i, where x_i sums
// every party's share at i: the signers' fresh ones from rShares and the
// non-signers' from their key generation yShares. Each share is checked
// against the sender's published R_j and key generation contribution u_j*G.
func (e *EdDSA) Sign(message []byte, xShare *XShare, rShares []*RShare, yShares []*YShare) (*GShare, error) {
	if xShare == nil {
		return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(tss.ErrDecode, "missing x-share"))
	}
	x, err := e.scalar(xShare.U, "u")
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, err)
	}
	r, err := e.scalar(xShare.R, "r")
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, err)
	}
	Rs := [][]byte{xShare.BigR}

	senders := make([]int, 0, len(rShares))
	for _, share := range rShares {
		if share == nil {
			return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(tss.ErrDecode, "missing r-share"))
		}
		if share.I != xShare.I {
			return nil, tss.Blamef(PhaseSign, share.J, tss.ErrUnexpectedShare,
				errors.Errorf("r-share addressed to party %d", share.I))
		}
		senders = append(senders, share.J)
	}
	if err := expectPeers(PhaseSign, xShare.I, xShare.Signers, senders); err != nil {
		return nil, err
	}
	for _, share := range rShares {
		rj, err := e.scalar(share.R, "r")
		if err != nil {
			return nil, tss.NewBlame(PhaseSign, share.J, err)
		}
		c, err := e.curve.BasePointMult(rj)
		if err != nil || string(c) != string(share.Commitment) {
			return nil, tss.NewBlame(PhaseSign, share.J, tss.ErrCommitment)
		}
		if _, err := e.point(share.BigR, "R"); err != nil {
			return nil, tss.NewBlame(PhaseSign, share.J, err)
		}
		if len(share.RV) != len(xShare.Signers) {
			return nil, tss.Blamef(PhaseSign, share.J, tss.ErrVSS,
				errors.Errorf("%d nonce commitments for %d signers", len(share.RV), len(xShare.Signers)))
		}
		if err := e.verifyShare(xShare.I, share.R, share.BigR, share.RV); err != nil {
			return nil, tss.Blamef(PhaseSign, share.J, tss.ErrVSS, errors.Wrap(err, "nonce share"))
		}
		if len(share.V) != xShare.T {
			return nil, tss.Blamef(PhaseSign, share.J, tss.ErrVSS,
				errors.Errorf("%d commitments for threshold %d", len(share.V), xShare.T))
		}
		contribution, ok := xShare.Contributions[share.J]
		if !ok {
			return nil, tss.NewBlame(PhaseSign, 0,
				errors.Wrapf(tss.ErrDecode, "no contribution recorded for party %d", share.J))
		}
		if err := e.verifyShare(xShare.I, share.U, contribution, share.V); err != nil {
			return nil, tss.Blamef(PhaseSign, share.J, tss.ErrVSS, errors.Wrap(err, "key re-share"))
		}
		uj, _ := e.scalar(share.U, "u")
		x = e.curve.ScalarAdd(x, uj)
		r = e.curve.ScalarAdd(r, rj)
		Rs = append(Rs, share.BigR)
	}

	// Parties outside the signer set contribute their key generation shares.
	signing := make(map[int]bool, len(xShare.Signers))
	for _, s := range xShare.Signers {
		signing[s] = true
	}
	others := make([]int, 0, xShare.Parties-len(xShare.Signers))
	for j := 1; j <= xShare.Parties; j++ {
		if !signing[j] {
			others = append(others, j)
		}
	}
	holders := make([]int, 0, len(yShares))
	for _, share := range yShares {
		if share == nil {
			return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(tss.ErrDecode, "missing y-share"))
		}
		if share.I != xShare.I {
			return nil, tss.Blamef(PhaseSign, share.J, tss.ErrUnexpectedShare,
				errors.Errorf("y-share addressed to party %d", share.I))
		}
		holders = append(holders, share.J)
	}
	if err := expectPeers(PhaseSign, xShare.I, others, holders); err != nil {
		return nil, err
	}
	for _, share := range yShares {
		if string(share.Y) != string(xShare.Contributions[share.J]) {
			return nil, tss.Blamef(PhaseSign, share.J, tss.ErrVSS,
				errors.New("y-share does not carry the key generation contribution"))
		}
		if err := e.checkVSS(PhaseSign, xShare.I, share); err != nil {
			return nil, err
		}
		uj, err := e.scalar(share.U, "u")
		if err != nil {
			return nil, tss.NewBlame(PhaseSign, share.J, err)
		}
		x = e.curve.ScalarAdd(x, uj)
	}

	R, err := e.sumPoints(Rs...)
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(err, "R"))
	}
	k := e.challenge(R, xShare.Y, message)
	gamma := e.curve.ScalarAdd(r, e.curve.ScalarMult(k, x))
	rPoint, err := e.curve.BasePointMult(r)
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(err, "r_i"))
	}
	xPoint, err := e.curve.BasePointMult(x)
	if err != nil {
		return nil, tss.NewBlame(PhaseSign, 0, errors.Wrap(err, "x_i"))
	}

	e.logger.Debug().Int("party", xShare.I).Msg("signature share ready")
	return &GShare{
		I:       xShare.I,
		Signers: xShare.Signers,
		Y:       xShare.Y,
		Gamma:   e.scalarHex(gamma),
		R:       R,
		RI:      rPoint,
		XI:      xPoint,
	}, nil
}

// challenge is k = H(R || y || M) mod L.
func (e *EdDSA) challenge(R, y, message []byte) *big.Int {
	h := sha512.New()
	h.Write(R)
	h.Write(y)
	h.Write(message)
	return e.reduce(h.Sum(nil))
}

// checkGamma checks gamma*G = RI + k*XI for one signer.
func (e *EdDSA) checkGamma(g *GShare, gamma, k *big.Int) error {
	lhs, err := e.curve.BasePointMult(gamma)
	if err != nil {
		return errors.Wrap(err, "gamma")
	}
	kx, err := e.curve.PointMultiply(g.XI, k)
	if err != nil {
		return errors.Wrap(err, "x_i")
	}
	rhs, err := e.curve.PointAdd(g.RI, kx)
	if err != nil {
		return errors.Wrap(err, "r_i")
	}
	if string(lhs) != string(rhs) {
		return errors.New("gamma does not match r_i + k*x_i")
	}
	return nil
}

// SignCombine interpolates the GShares of the whole signer set into the
// signature over message. The nonce is shared with threshold |S|, so every
// signer's share is required. A share that does not match the signer's public
// r_i and x_i is blamed on that signer; a combined signature that still fails
// verification is reported with ErrInvalidSignature and no party.
func (e *EdDSA) SignCombine(message []byte, gShares []*GShare) (*Signature, error) {
	if len(gShares) == 0 || gShares[0] == nil {
		return nil, tss.NewBlame(PhaseSignCombine, 0, tss.ErrInsufficientShares)
	}
	first := gShares[0]
	k := e.challenge(first.R, first.Y, message)
	gammas := make(map[int]*big.Int, len(gShares))
	indices := make([]int, 0, len(gShares))
	for _, g := range gShares {
		if g == nil {
			return nil, tss.NewBlame(PhaseSignCombine, 0, errors.Wrap(tss.ErrDecode, "missing g-share"))
		}
		if string(g.Y) != string(first.Y) || string(g.R) != string(first.R) || !sameSigners(g.Signers, first.Signers) {
			return nil, tss.Blamef(PhaseSignCombine, g.I, tss.ErrUnexpectedShare,
				errors.New("g-share disagrees on y, R or the signer set"))
		}
		gamma, err := e.scalar(g.Gamma, "gamma")
		if err != nil {
			return nil, tss.NewBlame(PhaseSignCombine, g.I, err)
		}
		if err := e.checkGamma(g, gamma, k); err != nil {
			return nil, tss.Blamef(PhaseSignCombine, g.I, tss.ErrInvalidSignature, err)
		}
		gammas[g.I] = gamma
		indices = append(indices, g.I)
	}
	if err := expectPeers(PhaseSignCombine, 0, first.Signers, indices); err != nil {
		return nil, err
	}
	sigma, err := e.shamir.Combine(gammas)
	if err != nil {
		return nil, tss.NewBlame(PhaseSignCombine, 0, err)
	}
	sig := &Signature{Y: first.Y, R: first.R, Sigma: e.scalarHex(sigma)}
	if !e.Verify(message, sig) {
		return nil, tss.Blamef(PhaseSignCombine, 0, tss.ErrInvalidSignature,
			errors.New("signer shares do not interpolate to R and y"))
	}
	return sig, nil
}

// Verify checks sig over message with the RFC 8032 equation.
func (e *EdDSA) Verify(message []byte, sig *Signature) bool {
	if sig == nil {
		return false
	}
	return e.curve.Verify(message, sig.Bytes(), sig.Y)
}

func sameSigners(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}
