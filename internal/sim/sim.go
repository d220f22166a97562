// Package sim runs every party of a threshold key generation and signing
// session in one process. Each party is a goroutine that only talks to the
// others through JSON tss.Messages carried by a Router.
package sim

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/smallyu/go-tss/internal/encoding"
	"github.com/smallyu/go-tss/pkg/tss"
)

// Result is the outcome of one simulated key generation and signing session.
type Result struct {
	Curve     string       `json:"curve"`
	Parties   int          `json:"parties"`
	Threshold int          `json:"threshold"`
	Signers   []int        `json:"signers"`
	PublicKey encoding.Hex `json:"public_key"`
	// Signature is r || s for secp256k1 and R || S for ed25519.
	Signature encoding.Hex `json:"signature"`
	RecID     int          `json:"recid"`
}

// Simulator drives the protocol services for a whole group.
type Simulator struct {
	config tss.Config
	logger zerolog.Logger
}

func New(config tss.Config, logger zerolog.Logger) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{config: config, logger: logger.With().Str("component", "sim").Logger()}, nil
}

// Run generates a threshold-of-parties key on the configured curve, signs
// message with signers and verifies the signature. An empty signer list
// means the first threshold parties.
func (s *Simulator) Run(ctx context.Context, parties, threshold int, signers []int, message []byte) (*Result, error) {
	signers, err := checkSigners(parties, threshold, signers)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Curve:     s.config.Curve,
		Parties:   parties,
		Threshold: threshold,
		Signers:   signers,
	}
	switch s.config.Curve {
	case "secp256k1":
		err = s.runECDSA(ctx, result, message)
	case "ed25519":
		err = s.runEdDSA(ctx, result, message)
	default:
		err = errors.Wrapf(tss.ErrInvalidConfig, "unsupported curve %q", s.config.Curve)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func checkSigners(parties, threshold int, signers []int) ([]int, error) {
	if err := tss.ValidateParams(1, threshold, parties); err != nil {
		return nil, err
	}
	if len(signers) == 0 {
		for i := 1; i <= threshold; i++ {
			signers = append(signers, i)
		}
		return signers, nil
	}
	out := append([]int(nil), signers...)
	sort.Ints(out)
	for k, i := range out {
		if i < 1 || i > parties {
			return nil, errors.Wrapf(tss.ErrInvalidConfig, "signer %d not in [1, %d]", i, parties)
		}
		if k > 0 && out[k-1] == i {
			return nil, errors.Wrapf(tss.ErrInvalidConfig, "signer %d listed twice", i)
		}
	}
	if len(out) < threshold {
		return nil, errors.Wrapf(tss.ErrInsufficientShares, "%d signers for threshold %d", len(out), threshold)
	}
	return out, nil
}

func newSession() string {
	return uuid.New().String()
}

// party is one participant's view of a session.
type party struct {
	index   int
	session string
	router  *Router
}

func (p *party) send(phase string, to int, payload interface{}) error {
	msg, err := tss.NewMessage(p.session, phase, p.index, to, payload)
	if err != nil {
		return err
	}
	return p.router.Send(msg)
}

func (p *party) broadcast(phase string, payload interface{}) error {
	return p.send(phase, tss.Broadcast, payload)
}

// collect waits for count messages of phase and decodes their payloads.
func collect[T any](ctx context.Context, p *party, phase string, count int) ([]*T, error) {
	msgs, err := p.router.Receive(ctx, p.index, p.session, phase, count)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(msgs))
	for _, msg := range msgs {
		v := new(T)
		if err := msg.Decode(v); err != nil {
			return nil, tss.NewBlame(phase, msg.From, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func others(signers []int, self int) []int {
	out := make([]int, 0, len(signers))
	for _, j := range signers {
		if j != self {
			out = append(out, j)
		}
	}
	return out
}

func allParties(n int) []int {
	out := make([]int, n)
	for k := range out {
		out[k] = k + 1
	}
	return out
}
