package sim

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-tss/pkg/tss"
)

func newTestSimulator(t *testing.T, curve string) *Simulator {
	t.Helper()
	s, err := New(tss.Config{
		Curve:        curve,
		PaillierBits: tss.MinPaillierBits,
		NtildeBits:   tss.MinNtildeBits,
	}, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestRouter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r := NewRouter([]int{1, 2, 3})

	t.Run("broadcast skips the sender", func(t *testing.T) {
		msg, err := tss.NewMessage("s", "p", 2, tss.Broadcast, "hello")
		require.NoError(t, err)
		require.NoError(t, r.Send(msg))
		for _, i := range []int{1, 3} {
			got, err := r.Receive(ctx, i, "s", "p", 1)
			require.NoError(t, err)
			require.Len(t, got, 1)
			var payload string
			require.NoError(t, got[0].Decode(&payload))
			assert.Equal(t, "hello", payload)
		}
		short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err = r.Receive(short, 2, "s", "p", 1)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("messages wait for their phase", func(t *testing.T) {
		later, err := tss.NewMessage("s", "second", 3, 1, 2)
		require.NoError(t, err)
		require.NoError(t, r.Send(later))
		done := make(chan error, 1)
		go func() {
			msgs, err := r.Receive(ctx, 1, "s", "first", 2)
			if err == nil && (msgs[0].From != 2 || msgs[1].From != 3) {
				err = errors.New("messages not ordered by sender")
			}
			done <- err
		}()
		for _, from := range []int{3, 2} {
			msg, err := tss.NewMessage("s", "first", from, 1, from)
			require.NoError(t, err)
			require.NoError(t, r.Send(msg))
		}
		require.NoError(t, <-done)
		got, err := r.Receive(ctx, 1, "s", "second", 1)
		require.NoError(t, err)
		assert.Equal(t, 3, got[0].From)
	})

	t.Run("sessions are separate", func(t *testing.T) {
		msg, err := tss.NewMessage("other", "p", 1, 2, nil)
		require.NoError(t, err)
		require.NoError(t, r.Send(msg))
		short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err = r.Receive(short, 2, "s", "p", 1)
		assert.Error(t, err)
	})

	t.Run("unknown parties", func(t *testing.T) {
		msg, err := tss.NewMessage("s", "p", 4, 1, nil)
		require.NoError(t, err)
		assert.Error(t, r.Send(msg))
		msg, err = tss.NewMessage("s", "p", 1, 1, nil)
		require.NoError(t, err)
		assert.Error(t, r.Send(msg))
		_, err = r.Receive(ctx, 9, "s", "p", 1)
		assert.Error(t, err)
	})
}

func TestCheckSigners(t *testing.T) {
	tests := []struct {
		name     string
		n, t     int
		signers  []int
		want     []int
		sentinel error
	}{
		{"default", 3, 2, nil, []int{1, 2}, nil},
		{"sorted", 5, 3, []int{5, 1, 3}, []int{1, 3, 5}, nil},
		{"too few", 3, 2, []int{3}, nil, tss.ErrInsufficientShares},
		{"out of range", 3, 2, []int{1, 4}, nil, tss.ErrInvalidConfig},
		{"duplicate", 3, 2, []int{2, 2}, nil, tss.ErrInvalidConfig},
		{"bad threshold", 3, 4, nil, nil, tss.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checkSigners(tt.n, tt.t, tt.signers)
			if tt.sentinel != nil {
				assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRejectsConfig(t *testing.T) {
	_, err := New(tss.Config{Curve: "p256", PaillierBits: 2048, NtildeBits: 1024}, zerolog.Nop())
	assert.True(t, errors.Is(err, tss.ErrInvalidConfig))
}

func TestRunEdDSA(t *testing.T) {
	s := newTestSimulator(t, "ed25519")
	message := []byte("simulated eddsa")
	tests := []struct {
		n, t    int
		signers []int
	}{
		{2, 2, nil},
		{3, 2, []int{1, 3}},
		{3, 2, []int{1, 2, 3}},
		{5, 3, []int{2, 4, 5}},
	}
	for _, tt := range tests {
		result, err := s.Run(context.Background(), tt.n, tt.t, tt.signers, message)
		require.NoError(t, err, "%d-of-%d %v", tt.t, tt.n, tt.signers)
		assert.Equal(t, "ed25519", result.Curve)
		assert.True(t, ed25519.Verify(ed25519.PublicKey(result.PublicKey), message, result.Signature))
	}
}

func TestRunECDSA(t *testing.T) {
	if testing.Short() {
		t.Skip("paillier and ntilde generation is slow")
	}
	s := newTestSimulator(t, "secp256k1")
	result, err := s.Run(context.Background(), 3, 2, []int{1, 3}, []byte("simulated ecdsa"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, result.Signers)
	assert.Len(t, result.PublicKey, 33)
	assert.Len(t, result.Signature, 64)
}

func TestRunCancelled(t *testing.T) {
	s := newTestSimulator(t, "secp256k1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Run(ctx, 3, 2, nil, []byte("m"))
	assert.Error(t, err)
}
