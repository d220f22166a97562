package sim

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/smallyu/go-tss/internal/encoding"
	"github.com/smallyu/go-tss/internal/protocol/eddsa"
	"github.com/smallyu/go-tss/pkg/tss"
)

const (
	msgYShare = "eddsa/y-share"
	msgRShare = "eddsa/r-share"
	msgGShare = "eddsa/g-share"
)

// eddsaKey is what a party keeps after key generation: its PShare and the
// YShares it received, which stand in for peers that do not sign.
type eddsaKey struct {
	combined *eddsa.KeyCombined
	held     map[int]*eddsa.YShare
}

func (s *Simulator) runEdDSA(ctx context.Context, result *Result, message []byte) error {
	e, err := eddsa.New(eddsa.WithConfig(s.config), eddsa.WithLogger(s.logger))
	if err != nil {
		return err
	}
	keys, err := s.eddsaKeygen(ctx, e, result.Parties, result.Threshold)
	if err != nil {
		return errors.Wrap(err, "key generation")
	}

	session := newSession()
	router := NewRouter(result.Signers)
	sigs := make([]*eddsa.Signature, len(result.Signers))
	g, gctx := errgroup.WithContext(ctx)
	for k, i := range result.Signers {
		k, i := k, i
		p := &party{index: i, session: session, router: router}
		g.Go(func() error {
			sig, err := eddsaSign(gctx, e, p, keys[i], result.Signers, message)
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
		if !bytes.Equal(sig.Bytes(), other.Bytes()) {
			return errors.Wrapf(tss.ErrInvalidSignature, "party %d combined a different signature", result.Signers[k+1])
		}
	}
	if !e.Verify(message, sig) {
		return errors.WithStack(tss.ErrInvalidSignature)
	}
	result.PublicKey = sig.Y
	result.Signature = encoding.Hex(sig.Bytes())
	s.logger.Info().Str("session", session).Ints("signers", result.Signers).Msg("eddsa signature verified")
	return nil
}

func (s *Simulator) eddsaKeygen(ctx context.Context, e *eddsa.EdDSA, n, t int) (map[int]*eddsaKey, error) {
	session := newSession()
	router := NewRouter(allParties(n))
	results := make([]*eddsaKey, n+1)
	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= n; i++ {
		i := i
		p := &party{index: i, session: session, router: router}
		g.Go(func() error {
			keyShare, err := e.KeyShare(i, t, n, nil)
			if err != nil {
				return errors.Wrapf(err, "party %d", i)
			}
			for j, share := range keyShare.YShares {
				if err := p.send(msgYShare, j, share); err != nil {
					return err
				}
			}
			yShares, err := collect[eddsa.YShare](gctx, p, msgYShare, n-1)
			if err != nil {
				return err
			}
			combined, err := e.KeyCombine(keyShare.UShare, yShares)
			if err != nil {
				return errors.Wrapf(err, "party %d", i)
			}
			held := make(map[int]*eddsa.YShare, len(yShares))
			for _, share := range yShares {
				held[share.J] = share
			}
			results[i] = &eddsaKey{combined: combined, held: held}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	keys := make(map[int]*eddsaKey, n)
	for i := 1; i <= n; i++ {
		keys[i] = results[i]
	}
	s.logger.Info().Str("session", session).Str("y", keys[1].combined.PShare.Y.String()).Msg("eddsa key generated")
	return keys, nil
}

// eddsaSign is one signer's side of a signing session. Every signer combines
// the full set of GShares itself.
func eddsaSign(ctx context.Context, e *eddsa.EdDSA, p *party, key *eddsaKey,
	signers []int, message []byte) (*eddsa.Signature, error) {
	peers := others(signers, p.index)
	jShares := make([]*eddsa.JShare, 0, len(peers))
	for _, j := range peers {
		jShares = append(jShares, key.combined.JShares[j])
	}
	share, err := e.SignShare(message, key.combined.PShare, jShares, nil)
	if err != nil {
		return nil, err
	}
	for _, j := range peers {
		if err := p.send(msgRShare, j, share.RShares[j]); err != nil {
			return nil, err
		}
	}

	rShares, err := collect[eddsa.RShare](ctx, p, msgRShare, len(peers))
	if err != nil {
		return nil, err
	}
	signing := make(map[int]bool, len(signers))
	for _, j := range signers {
		signing[j] = true
	}
	var yShares []*eddsa.YShare
	for j, y := range key.held {
		if !signing[j] {
			yShares = append(yShares, y)
		}
	}
	gShare, err := e.Sign(message, share.XShare, rShares, yShares)
	if err != nil {
		return nil, err
	}
	if err := p.broadcast(msgGShare, gShare); err != nil {
		return nil, err
	}

	gShares, err := collect[eddsa.GShare](ctx, p, msgGShare, len(peers))
	if err != nil {
		return nil, err
	}
	return e.SignCombine(message, append(gShares, gShare))
}
