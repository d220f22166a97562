package tss

import (
	"fmt"

	"github.com/pkg/errors"
)

// Configuration errors. These are returned before any cryptographic work starts.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidSeed   = errors.New("seed must have length 64")
)

// Decoding and consistency errors.
var (
	ErrDecode             = errors.New("malformed encoding")
	ErrUnexpectedShare    = errors.New("unexpected share")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Proof verification failures. Each one indicates a potentially malicious
// counterparty and aborts the session.
var (
	ErrPaillierProof    = errors.New("paillier modulus proof failed")
	ErrNtildeProof      = errors.New("ntilde proof failed")
	ErrRangeProof       = errors.New("range proof failed")
	ErrSchnorrProof     = errors.New("schnorr proof failed")
	ErrCommitment       = errors.New("commitment does not open")
	ErrVSS              = errors.New("share does not match its vss commitment")
	ErrSignatureShares  = errors.New("signature shares do not agree: sum of all U_i does not match sum of all T_i")
	ErrInvalidSignature = errors.New("signature verification failed")
)

// Blame attributes a failed session to a protocol phase and, where known,
// the peer index that caused it. Party is 0 for local failures.
type Blame struct {
	Phase string
	Party int
	Err   error
}

func (b *Blame) Error() string {
	if b.Party == 0 {
		return fmt.Sprintf("%s: %v", b.Phase, b.Err)
	}
	return fmt.Sprintf("%s: party %d: %v", b.Phase, b.Party, b.Err)
}

func (b *Blame) Unwrap() error {
	return b.Err
}

// NewBlame creates a new Blame error.
func NewBlame(phase string, party int, err error) *Blame {
	return &Blame{
		Phase: phase,
		Party: party,
		Err:   err,
	}
}

// Blamef wraps cause with a sentinel and attributes it to party.
// The result matches both sentinel and cause under errors.Is.
func Blamef(phase string, party int, sentinel, cause error) *Blame {
	if cause == nil {
		return NewBlame(phase, party, sentinel)
	}
	return NewBlame(phase, party, &chain{sentinel: sentinel, cause: cause})
}

type chain struct {
	sentinel error
	cause    error
}

func (c *chain) Error() string {
	return fmt.Sprintf("%v: %v", c.sentinel, c.cause)
}

func (c *chain) Is(target error) bool {
	return target == c.sentinel
}

func (c *chain) Unwrap() error {
	return c.cause
}

// PartyOf returns the blamed party index, or 0 if err carries no Blame.
func PartyOf(err error) int {
	var b *Blame
	if errors.As(err, &b) {
		return b.Party
	}
	return 0
}
