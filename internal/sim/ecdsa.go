package sim

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/smallyu/go-tss/internal/encoding"
	"github.com/smallyu/go-tss/internal/protocol/ecdsa"
	"github.com/smallyu/go-tss/pkg/tss"
)

// Message phases of a GG18 session.
const (
	msgNShare       = "ecdsa/n-share"
	msgKShare       = "ecdsa/k-share"
	msgAShare       = "ecdsa/a-share"
	msgDShare       = "ecdsa/d-share"
	msgVACommitment = "ecdsa/va-commitment"
	msgVAProofs     = "ecdsa/va-proofs"
	msgUTCommitment = "ecdsa/ut-commitment"
	msgUTReveal     = "ecdsa/ut-reveal"
	msgSShare       = "ecdsa/s-share"
)

func (s *Simulator) runECDSA(ctx context.Context, result *Result, message []byte) error {
	e, err := ecdsa.New(ecdsa.WithConfig(s.config), ecdsa.WithLogger(s.logger))
	if err != nil {
		return err
	}
	keys, err := s.ecdsaKeygen(ctx, e, result.Parties, result.Threshold)
	if err != nil {
		return errors.Wrap(err, "key generation")
	}

	session := newSession()
	router := NewRouter(result.Signers)
	sigs := make([]*ecdsa.Signature, len(result.Signers))
	g, gctx := errgroup.WithContext(ctx)
	for k, i := range result.Signers {
		k, i := k, i
		p := &party{index: i, session: session, router: router}
		g.Go(func() error {
			sig, err := ecdsaSign(gctx, e, p, keys[i], result.Signers, message)
			if err != nil {
				return errors.Wrapf(err, "party %d", i)
			}
			sigs[k] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "signing")
	}

	sig := sigs[0]
	for k, other := range sigs[1:] {
		if !bytes.Equal(sig.R, other.R) || !bytes.Equal(sig.S, other.S) {
			return errors.Wrapf(tss.ErrInvalidSignature, "party %d constructed a different signature", result.Signers[k+1])
		}
	}
	if !e.Verify(message, sig) {
		return errors.WithStack(tss.ErrInvalidSignature)
	}
	result.PublicKey = sig.Y
	result.Signature = append(append(encoding.Hex(nil), sig.R...), sig.S...)
	result.RecID = sig.RecID
	s.logger.Info().Str("session", session).Ints("signers", result.Signers).Msg("ecdsa signature verified")
	return nil
}

func (s *Simulator) ecdsaKeygen(ctx context.Context, e *ecdsa.ECDSA, n, t int) (map[int]*ecdsa.KeyCombined, error) {
	session := newSession()
	router := NewRouter(allParties(n))
	combined := make([]*ecdsa.KeyCombined, n+1)
	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= n; i++ {
		i := i
		p := &party{index: i, session: session, router: router}
		g.Go(func() error {
			keyShare, err := e.KeyShare(gctx, i, t, n)
			if err != nil {
				return errors.Wrapf(err, "party %d", i)
			}
			for j, share := range keyShare.NShares {
				if err := p.send(msgNShare, j, share); err != nil {
					return err
				}
			}
			nShares, err := collect[ecdsa.NShare](gctx, p, msgNShare, n-1)
			if err != nil {
				return err
			}
			key, err := e.KeyCombine(keyShare.PShare, nShares)
			if err != nil {
				return errors.Wrapf(err, "party %d", i)
			}
			combined[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	keys := make(map[int]*ecdsa.KeyCombined, n)
	for i := 1; i <= n; i++ {
		keys[i] = combined[i]
	}
	s.logger.Info().Str("session", session).Str("y", keys[1].XShare.Y.String()).Msg("ecdsa key generated")
	return keys, nil
}

// ecdsaSign is one signer's side of a signing session.
func ecdsaSign(ctx context.Context, e *ecdsa.ECDSA, p *party, key *ecdsa.KeyCombined,
	signers []int, message []byte) (*ecdsa.Signature, error) {
	peers := others(signers, p.index)
	yShares := make([]*ecdsa.YShare, 0, len(peers))
	for _, j := range peers {
		yShares = append(yShares, key.YShares[j])
	}
	share, err := e.SignShare(key.XShare, yShares)
	if err != nil {
		return nil, err
	}
	for _, j := range peers {
		if err := p.send(msgKShare, j, share.KShares[j]); err != nil {
			return nil, err
		}
	}

	// Answer every peer's k with both MtA conversions.
	kShares, err := collect[ecdsa.KShare](ctx, p, msgKShare, len(peers))
	if err != nil {
		return nil, err
	}
	bShares := make(map[int]*ecdsa.BShare, len(peers))
	for _, k := range kShares {
		rt, err := e.SignConvertStep1(share.WShare, k)
		if err != nil {
			return nil, err
		}
		bShares[k.J] = rt.BShare
		if err := p.send(msgAShare, k.J, rt.AShare); err != nil {
			return nil, err
		}
	}

	aShares, err := collect[ecdsa.AShare](ctx, p, msgAShare, len(peers))
	if err != nil {
		return nil, err
	}
	gShares := make([]*ecdsa.GShare, 0, len(peers))
	for _, a := range aShares {
		mu, err := e.SignConvertStep2(share.WShare, a)
		if err != nil {
			return nil, err
		}
		g, err := e.SignConvertStep3(bShares[a.J], mu)
		if err != nil {
			return nil, err
		}
		gShares = append(gShares, g)
	}
	combined, err := e.SignCombine(share.WShare, gShares)
	if err != nil {
		return nil, err
	}
	for _, j := range peers {
		if err := p.send(msgDShare, j, combined.DShares[j]); err != nil {
			return nil, err
		}
	}

	dShares, err := collect[ecdsa.DShare](ctx, p, msgDShare, len(peers))
	if err != nil {
		return nil, err
	}
	signed, err := e.Sign(message, combined.OShare, dShares)
	if err != nil {
		return nil, err
	}
	if err := p.broadcast(msgVACommitment, signed.VACommitment); err != nil {
		return nil, err
	}

	// Phase 5: commit, open and check V_i and A_i, then U_i and T_i.
	vaCommitments, err := collect[ecdsa.VACommitment](ctx, p, msgVACommitment, len(peers))
	if err != nil {
		return nil, err
	}
	proofs, err := e.GenerateVAProofs(signed.VAShare)
	if err != nil {
		return nil, err
	}
	if err := p.broadcast(msgVAProofs, proofs); err != nil {
		return nil, err
	}
	peerProofs, err := collect[ecdsa.VAShareWithProofs](ctx, p, msgVAProofs, len(peers))
	if err != nil {
		return nil, err
	}
	verified, err := e.VerifyVAShares(signed.VAShare, vaCommitments, peerProofs)
	if err != nil {
		return nil, err
	}
	if err := p.broadcast(msgUTCommitment, verified.UTCommitment); err != nil {
		return nil, err
	}

	utCommitments, err := collect[ecdsa.UTCommitment](ctx, p, msgUTCommitment, len(peers))
	if err != nil {
		return nil, err
	}
	reveal, err := e.RevealUTShare(verified.UTShare)
	if err != nil {
		return nil, err
	}
	if err := p.broadcast(msgUTReveal, reveal); err != nil {
		return nil, err
	}
	reveals, err := collect[ecdsa.PublicUTShare](ctx, p, msgUTReveal, len(peers))
	if err != nil {
		return nil, err
	}
	sShare, err := e.VerifyUTShares(verified.UTShare, utCommitments, reveals)
	if err != nil {
		return nil, err
	}
	if err := p.broadcast(msgSShare, sShare); err != nil {
		return nil, err
	}

	sShares, err := collect[ecdsa.SShare](ctx, p, msgSShare, len(peers))
	if err != nil {
		return nil, err
	}
	return e.ConstructSignature(append(sShares, sShare))
}
