package rangeproof

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var errFound = errors.New("found")

// GenerateSafePrime returns a prime p = 2q + 1 of exactly bits bits with q
// prime. The search runs on every CPU and stops at the first hit.
// random must be safe for concurrent use.
func GenerateSafePrime(ctx context.Context, random io.Reader, bits int) (*big.Int, error) {
	if bits < 16 {
		return nil, errors.Errorf("rangeproof: safe prime of %d bits is too small", bits)
	}

	found := make(chan *big.Int, 1)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < runtime.NumCPU(); w++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				q, err := rand.Prime(random, bits-1)
				if err != nil {
					return errors.Wrap(err, "rangeproof: generate prime")
				}
				p := new(big.Int).Lsh(q, 1)
				p.Add(p, one)
				if p.BitLen() != bits || !p.ProbablyPrime(20) {
					continue
				}
				select {
				case found <- p:
				default:
				}
				// cancels the other workers
				return errFound
			}
		})
	}

	err := g.Wait()
	select {
	case p := <-found:
		return p, nil
	default:
	}
	if errors.Is(err, errFound) {
		// unreachable: errFound is only returned after a send
		return nil, errors.New("rangeproof: safe prime lost")
	}
	return nil, err
}
