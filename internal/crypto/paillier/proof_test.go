package paillier

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulusProofInteractive(t *testing.T) {
	priv := fixtureKey(t)

	p, err := GenerateP(rand.Reader, priv.N)
	require.NoError(t, err)
	require.Len(t, p, ProofIterations)

	sigma, err := priv.Prove(p)
	require.NoError(t, err)
	assert.NoError(t, Verify(priv.N, p, sigma))
	assert.NoError(t, Verify(priv.N, p, sigma), "verification is a pure predicate")
}

func TestModulusProofDerived(t *testing.T) {
	priv := fixtureKey(t)

	p := DeriveP(priv.N, []byte("1->2"))
	assert.Equal(t, p, DeriveP(priv.N, []byte("1->2")))
	assert.NotEqual(t, p, DeriveP(priv.N, []byte("1->3")))

	sigma, err := priv.Prove(p)
	require.NoError(t, err)
	assert.NoError(t, Verify(priv.N, p, sigma))

	// answers for another context do not transfer
	assert.True(t, errors.Is(Verify(priv.N, DeriveP(priv.N, []byte("1->3")), sigma), ErrProof))
}

func TestModulusProofRejects(t *testing.T) {
	priv := fixtureKey(t)
	p, err := GenerateP(rand.Reader, priv.N)
	require.NoError(t, err)
	sigma, err := priv.Prove(p)
	require.NoError(t, err)

	t.Run("tampered sigma", func(t *testing.T) {
		bad := append([]*big.Int(nil), sigma...)
		bad[3] = new(big.Int).Add(bad[3], one)
		assert.True(t, errors.Is(Verify(priv.N, p, bad), ErrProof))
	})

	t.Run("short proof", func(t *testing.T) {
		assert.True(t, errors.Is(Verify(priv.N, p[:3], sigma[:3]), ErrProof))
	})

	t.Run("small factor", func(t *testing.T) {
		n := new(big.Int).Mul(priv.N, big.NewInt(3))
		assert.True(t, errors.Is(Verify(n, p, sigma), ErrProof))
	})

	t.Run("even modulus", func(t *testing.T) {
		n := new(big.Int).Lsh(priv.N, 1)
		assert.True(t, errors.Is(Verify(n, p, sigma), ErrProof))
	})
}
