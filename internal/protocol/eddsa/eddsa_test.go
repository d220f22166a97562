package eddsa

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-tss/pkg/tss"
)

func newTestService(t *testing.T, lenient bool) *EdDSA {
	t.Helper()
	config := tss.DefaultConfig()
	config.LenientVSS = lenient
	e, err := New(WithConfig(config), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return e
}

type group struct {
	keyShares map[int]*KeyShare
	pShares   map[int]*PShare
	// held[i][j] is the YShare party i received from party j.
	held map[int]map[int]*YShare
}

func (g *group) received(i int) []*YShare {
	out := make([]*YShare, 0, len(g.held[i]))
	for j := 1; j <= len(g.keyShares); j++ {
		if share, ok := g.held[i][j]; ok {
			out = append(out, share)
		}
	}
	return out
}

func keygen(t testing.TB, e *EdDSA, threshold, n int) *group {
	t.Helper()
	g := &group{
		keyShares: make(map[int]*KeyShare, n),
		pShares:   make(map[int]*PShare, n),
		held:      make(map[int]map[int]*YShare, n),
	}
	for i := 1; i <= n; i++ {
		ks, err := e.KeyShare(i, threshold, n, nil)
		require.NoError(t, err)
		g.keyShares[i] = ks
		g.held[i] = make(map[int]*YShare, n-1)
	}
	for j, ks := range g.keyShares {
		for i, share := range ks.YShares {
			g.held[i][j] = share
		}
	}
	for i, ks := range g.keyShares {
		combined, err := e.KeyCombine(ks.UShare, g.received(i))
		require.NoError(t, err)
		g.pShares[i] = combined.PShare
	}
	return g
}

func runSign(t testing.TB, e *EdDSA, pShares map[int]*PShare, held map[int]map[int]*YShare,
	signers []int, message []byte) (*Signature, error) {
	t.Helper()
	signing := make(map[int]bool, len(signers))
	for _, i := range signers {
		signing[i] = true
	}

	rts := make(map[int]*SignShareRT, len(signers))
	for _, i := range signers {
		var jShares []*JShare
		for _, j := range signers {
			if j != i {
				jShares = append(jShares, &JShare{I: j, J: i})
			}
		}
		rt, err := e.SignShare(message, pShares[i], jShares, nil)
		require.NoError(t, err)
		rts[i] = rt
	}

	var gShares []*GShare
	for _, i := range signers {
		var rShares []*RShare
		for _, j := range signers {
			if j != i {
				rShares = append(rShares, rts[j].RShares[i])
			}
		}
		var yShares []*YShare
		for j, share := range held[i] {
			if !signing[j] {
				yShares = append(yShares, share)
			}
		}
		g, err := e.Sign(message, rts[i].XShare, rShares, yShares)
		require.NoError(t, err)
		gShares = append(gShares, g)
	}
	return e.SignCombine(message, gShares)
}

func TestKeyShareSeed(t *testing.T) {
	e := newTestService(t, false)

	_, err := e.KeyShare(1, 2, 3, make([]byte, 63))
	assert.True(t, errors.Is(err, tss.ErrInvalidSeed))
	_, err = e.KeyShare(0, 2, 3, nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidConfig))
	_, err = e.KeyShare(1, 4, 3, nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidConfig))

	seed := bytes.Repeat([]byte{7}, SeedSize)
	a, err := e.KeyShare(1, 2, 3, seed)
	require.NoError(t, err)
	b, err := e.KeyShare(1, 2, 3, seed)
	require.NoError(t, err)
	assert.Equal(t, a.UShare.Y, b.UShare.Y)
	assert.Equal(t, Hex(seed[32:]), a.UShare.Chaincode)

	// A single party with a seed holds an ordinary ed25519 key.
	single, err := e.KeyShare(1, 1, 1, seed)
	require.NoError(t, err)
	expected := ed25519.NewKeyFromSeed(seed[:32]).Public().(ed25519.PublicKey)
	assert.Equal(t, []byte(expected), []byte(single.UShare.Y))
}

func TestSign(t *testing.T) {
	e := newTestService(t, false)
	message := []byte("threshold eddsa")

	tests := []struct {
		threshold, n int
		signers      [][]int
	}{
		{1, 1, [][]int{{1}}},
		{1, 3, [][]int{{2}, {1, 3}}},
		{2, 2, [][]int{{1, 2}}},
		{2, 3, [][]int{{1, 2}, {2, 3}, {1, 3}, {1, 2, 3}}},
		{3, 5, [][]int{{1, 2, 3}, {3, 4, 5}, {1, 3, 5}, {1, 2, 3, 4, 5}}},
		{5, 5, [][]int{{1, 2, 3, 4, 5}}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-of-%d", tt.threshold, tt.n), func(t *testing.T) {
			g := keygen(t, e, tt.threshold, tt.n)
			for i := 1; i <= tt.n; i++ {
				assert.Equal(t, g.pShares[1].Y, g.pShares[i].Y, "party %d", i)
				assert.Equal(t, g.pShares[1].Chaincode, g.pShares[i].Chaincode, "party %d", i)
			}
			for _, signers := range tt.signers {
				sig, err := runSign(t, e, g.pShares, g.held, signers, message)
				require.NoError(t, err, "signers %v", signers)
				assert.Equal(t, g.pShares[1].Y, sig.Y)
				assert.True(t, e.Verify(message, sig), "signers %v", signers)
				assert.True(t, e.Verify(message, sig), "verification is repeatable")
				assert.True(t, ed25519.Verify(ed25519.PublicKey(sig.Y), message, sig.Bytes()))
				assert.False(t, e.Verify([]byte("other"), sig))
			}
		})
	}
}

func TestKeyCombineVSS(t *testing.T) {
	e := newTestService(t, false)
	g := keygen(t, e, 2, 3)
	shares := g.received(1)
	bad := *shares[0]
	u, err := e.scalar(bad.U, "u")
	require.NoError(t, err)
	bad.U = e.scalarHex(new(big.Int).Add(u, big.NewInt(1)))
	shares[0] = &bad

	t.Run("strict", func(t *testing.T) {
		_, err := e.KeyCombine(g.keyShares[1].UShare, shares)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tss.ErrVSS))
		assert.Equal(t, bad.J, tss.PartyOf(err))
	})

	t.Run("lenient", func(t *testing.T) {
		combined, err := newTestService(t, true).KeyCombine(g.keyShares[1].UShare, shares)
		require.NoError(t, err)
		assert.Equal(t, g.pShares[1].Y, combined.PShare.Y)
	})

	t.Run("addressing", func(t *testing.T) {
		_, err := e.KeyCombine(g.keyShares[1].UShare, g.received(1)[:1])
		assert.True(t, errors.Is(err, tss.ErrInsufficientShares))
		_, err = e.KeyCombine(g.keyShares[1].UShare, g.received(2))
		assert.True(t, errors.Is(err, tss.ErrUnexpectedShare))
	})
}

func TestSignRejects(t *testing.T) {
	e := newTestService(t, false)
	g := keygen(t, e, 2, 3)
	message := []byte("m")

	rt1, err := e.SignShare(message, g.pShares[1], []*JShare{{I: 2, J: 1}}, nil)
	require.NoError(t, err)
	rt2, err := e.SignShare(message, g.pShares[2], []*JShare{{I: 1, J: 2}}, nil)
	require.NoError(t, err)
	yShares := []*YShare{g.held[1][3]}

	t.Run("below threshold", func(t *testing.T) {
		_, err := e.SignShare(message, g.pShares[1], nil, nil)
		assert.True(t, errors.Is(err, tss.ErrInsufficientShares))
	})

	t.Run("bad seed", func(t *testing.T) {
		_, err := e.SignShare(message, g.pShares[1], []*JShare{{I: 2, J: 1}}, []byte{1})
		assert.True(t, errors.Is(err, tss.ErrInvalidSeed))
	})

	t.Run("commitment", func(t *testing.T) {
		r := *rt2.RShares[1]
		r.Commitment = rt2.XShare.BigR
		_, err := e.Sign(message, rt1.XShare, []*RShare{&r}, yShares)
		assert.True(t, errors.Is(err, tss.ErrCommitment))
		assert.Equal(t, 2, tss.PartyOf(err))
	})

	t.Run("vss", func(t *testing.T) {
		r := *rt2.RShares[1]
		r.U = rt2.XShare.U
		_, err := e.Sign(message, rt1.XShare, []*RShare{&r}, yShares)
		assert.True(t, errors.Is(err, tss.ErrVSS))
	})

	t.Run("missing non-signer", func(t *testing.T) {
		_, err := e.Sign(message, rt1.XShare, []*RShare{rt2.RShares[1]}, nil)
		assert.True(t, errors.Is(err, tss.ErrInsufficientShares))
		assert.Equal(t, 3, tss.PartyOf(err))
	})

	t.Run("signer passed as non-signer", func(t *testing.T) {
		_, err := e.Sign(message, rt1.XShare, []*RShare{rt2.RShares[1]}, []*YShare{g.held[1][2], g.held[1][3]})
		assert.True(t, errors.Is(err, tss.ErrUnexpectedShare))
	})

	t.Run("nonce share off R_j", func(t *testing.T) {
		// Consistent with its own commitment but not with the sender's R_j.
		forged := big.NewInt(12345)
		c, err := e.curve.BasePointMult(forged)
		require.NoError(t, err)
		r := *rt2.RShares[1]
		r.R = e.scalarHex(forged)
		r.Commitment = c
		_, err = e.Sign(message, rt1.XShare, []*RShare{&r}, yShares)
		assert.True(t, errors.Is(err, tss.ErrVSS))
		assert.Equal(t, 2, tss.PartyOf(err))
	})

	t.Run("missing nonce commitments", func(t *testing.T) {
		r := *rt2.RShares[1]
		r.RV = r.RV[:1]
		_, err := e.Sign(message, rt1.XShare, []*RShare{&r}, yShares)
		assert.True(t, errors.Is(err, tss.ErrVSS))
		assert.Equal(t, 2, tss.PartyOf(err))
	})

	t.Run("re-share of another secret", func(t *testing.T) {
		// A well-formed sharing whose V[0] is not party 2's contribution.
		other, err := e.curve.ScalarRandom()
		require.NoError(t, err)
		split, err := e.shamir.Split(other, 2, 3)
		require.NoError(t, err)
		otherG, err := e.curve.BasePointMult(other)
		require.NoError(t, err)
		v := []Hex{otherG}
		for _, c := range split.V {
			v = append(v, c)
		}
		require.NoError(t, e.verifyShare(1, e.scalarHex(split.Shares[1]), otherG, v))

		r := *rt2.RShares[1]
		r.U = e.scalarHex(split.Shares[1])
		r.V = v
		_, err = e.Sign(message, rt1.XShare, []*RShare{&r}, yShares)
		assert.True(t, errors.Is(err, tss.ErrVSS))
		assert.Equal(t, 2, tss.PartyOf(err))
	})

	t.Run("non-signer share of another contribution", func(t *testing.T) {
		fresh, err := e.KeyShare(3, 2, 3, nil)
		require.NoError(t, err)
		_, err = e.Sign(message, rt1.XShare, []*RShare{rt2.RShares[1]}, []*YShare{fresh.YShares[1]})
		assert.True(t, errors.Is(err, tss.ErrVSS))
		assert.Equal(t, 3, tss.PartyOf(err))
	})

	t.Run("combine", func(t *testing.T) {
		g1, err := e.Sign(message, rt1.XShare, []*RShare{rt2.RShares[1]}, yShares)
		require.NoError(t, err)
		g2, err := e.Sign(message, rt2.XShare, []*RShare{rt1.RShares[2]}, []*YShare{g.held[2][3]})
		require.NoError(t, err)

		_, err = e.SignCombine(message, []*GShare{g1})
		assert.True(t, errors.Is(err, tss.ErrInsufficientShares))
		assert.Equal(t, 2, tss.PartyOf(err))

		sig, err := e.SignCombine(message, []*GShare{g2, g1})
		require.NoError(t, err)
		assert.True(t, e.Verify(message, sig))

		_, err = e.SignCombine([]byte("other"), []*GShare{g1, g2})
		assert.True(t, errors.Is(err, tss.ErrInvalidSignature))
		assert.Equal(t, 1, tss.PartyOf(err))

		gamma, err := e.scalar(g2.Gamma, "gamma")
		require.NoError(t, err)
		bumped := e.scalarHex(new(big.Int).Add(gamma, big.NewInt(1)))

		tampered := *g2
		tampered.Gamma = bumped
		_, err = e.SignCombine(message, []*GShare{g1, &tampered})
		assert.True(t, errors.Is(err, tss.ErrInvalidSignature))
		assert.Equal(t, 2, tss.PartyOf(err))

		// Consistent with its own public shares, but they no longer
		// interpolate to R.
		base, err := e.curve.BasePointMult(big.NewInt(1))
		require.NoError(t, err)
		shifted, err := e.curve.PointAdd(g2.RI, base)
		require.NoError(t, err)
		tampered.RI = shifted
		_, err = e.SignCombine(message, []*GShare{g1, &tampered})
		assert.True(t, errors.Is(err, tss.ErrInvalidSignature))
		assert.Equal(t, 0, tss.PartyOf(err))
	})
}

func TestKeyDerive(t *testing.T) {
	e := newTestService(t, false)
	g := keygen(t, e, 2, 3)
	const path = "m/0/1"

	sub, err := e.KeyDerive(g.keyShares[1].UShare, g.received(1), path)
	require.NoError(t, err)
	require.Len(t, sub.YShares, 2)

	public, err := e.DeriveUnhardened(g.pShares[1].CommonKeychain(), path)
	require.NoError(t, err)
	assert.Equal(t, sub.PShare.CommonKeychain(), public)

	// Peers replace party 1's key generation shares with the derived ones.
	held := make(map[int]map[int]*YShare, 3)
	pShares := map[int]*PShare{1: sub.PShare}
	for i := 1; i <= 3; i++ {
		held[i] = make(map[int]*YShare, 2)
		for j, share := range g.held[i] {
			held[i][j] = share
		}
	}
	for i := 2; i <= 3; i++ {
		held[i][1] = sub.YShares[i]
		child, err := e.ChildPShare(g.pShares[i], 1, path)
		require.NoError(t, err)
		assert.Equal(t, sub.PShare.Y, child.Y)
		assert.Equal(t, sub.PShare.Contributions, child.Contributions)
		assert.NotEqual(t, g.pShares[i].Contributions[1], child.Contributions[1])
		pShares[i] = child

		// Recombining with the derived shares lands on the same child key.
		var received []*YShare
		for j := 1; j <= 3; j++ {
			if j != i {
				received = append(received, held[i][j])
			}
		}
		recombined, err := e.KeyCombine(g.keyShares[i].UShare, received)
		require.NoError(t, err)
		assert.Equal(t, sub.PShare.Y, recombined.PShare.Y)
		assert.Equal(t, sub.PShare.Chaincode, recombined.PShare.Chaincode)
		assert.Equal(t, child.Contributions, recombined.PShare.Contributions)
	}

	_, err = e.ChildPShare(g.pShares[2], 2, path)
	assert.True(t, errors.Is(err, tss.ErrInvalidConfig))
	_, err = e.ChildPShare(g.pShares[2], 4, path)
	assert.True(t, errors.Is(err, tss.ErrInvalidConfig))

	message := []byte("derived")
	for _, signers := range [][]int{{1, 2}, {2, 3}} {
		sig, err := runSign(t, e, pShares, held, signers, message)
		require.NoError(t, err)
		assert.Equal(t, sub.PShare.Y, sig.Y)
		assert.True(t, ed25519.Verify(ed25519.PublicKey(sig.Y), message, sig.Bytes()), "signers %v", signers)
	}

	_, err = e.KeyDerive(g.keyShares[1].UShare, g.received(1), "m/1'")
	assert.Error(t, err)
}

func TestSignatureJSON(t *testing.T) {
	e := newTestService(t, false)
	g := keygen(t, e, 2, 2)
	message := []byte("json")
	sig, err := runSign(t, e, g.pShares, g.held, []int{1, 2}, message)
	require.NoError(t, err)

	raw, err := json.Marshal(sig)
	require.NoError(t, err)
	var decoded Signature
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, e.Verify(message, &decoded))

	var bad Signature
	err = json.Unmarshal([]byte(`{"y":"zz"}`), &bad)
	assert.True(t, errors.Is(err, tss.ErrDecode))
}

func BenchmarkSign(b *testing.B) {
	e, err := New(WithLogger(zerolog.Nop()))
	require.NoError(b, err)
	g := keygen(b, e, 2, 3)
	message := []byte("benchmark")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := runSign(b, e, g.pShares, g.held, []int{1, 3}, message); err != nil {
			b.Fatal(err)
		}
	}
}
