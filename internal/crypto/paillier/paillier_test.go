package paillier

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keyOnce sync.Once
	testKey *PrivateKey
	keyErr  error
)

func fixtureKey(t testing.TB) *PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		testKey, keyErr = GenerateKey(context.Background(), rand.Reader, MinBits)
	})
	require.NoError(t, keyErr)
	return testKey
}

func TestGenerateKey(t *testing.T) {
	priv := fixtureKey(t)

	if priv.N.BitLen() != MinBits {
		t.Errorf("Expected modulus bit length %d, got %d", MinBits, priv.N.BitLen())
	}
	if priv.N2.Cmp(new(big.Int).Mul(priv.N, priv.N)) != 0 {
		t.Errorf("N2 is not N*N")
	}

	_, err := GenerateKey(context.Background(), rand.Reader, 1024)
	assert.Error(t, err)
}

func TestGenerateKeyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := GenerateKey(ctx, rand.Reader, MinBits)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEncryptDecrypt(t *testing.T) {
	priv := fixtureKey(t)

	for _, msg := range []*big.Int{big.NewInt(0), big.NewInt(123456789), new(big.Int).Sub(priv.N, one)} {
		c, r, err := priv.Encrypt(rand.Reader, msg)
		require.NoError(t, err)
		require.NotNil(t, r)

		decrypted, err := priv.Decrypt(c)
		require.NoError(t, err)
		assert.Equal(t, 0, msg.Cmp(decrypted))

		again, err := priv.EncryptWithNonce(msg, r)
		require.NoError(t, err)
		assert.Equal(t, 0, c.Cmp(again))
	}

	_, _, err := priv.Encrypt(rand.Reader, priv.N)
	assert.True(t, errors.Is(err, ErrMessageRange))
	_, _, err = priv.Encrypt(rand.Reader, big.NewInt(-1))
	assert.True(t, errors.Is(err, ErrMessageRange))

	// The nonce comes from the caller's reader.
	_, _, err = priv.Encrypt(iotest.ErrReader(errors.New("drained")), big.NewInt(1))
	assert.Error(t, err)
	_, err = priv.RandomUnit(iotest.ErrReader(errors.New("drained")))
	assert.Error(t, err)
}

func TestHomomorphicOps(t *testing.T) {
	priv := fixtureKey(t)

	c1, _, err := priv.Encrypt(rand.Reader, big.NewInt(100))
	require.NoError(t, err)
	c2, _, err := priv.Encrypt(rand.Reader, big.NewInt(200))
	require.NoError(t, err)

	sum, err := priv.Decrypt(priv.Add(c1, c2))
	require.NoError(t, err)
	assert.Equal(t, int64(300), sum.Int64())

	prod, err := priv.Decrypt(priv.Mul(c1, big.NewInt(3)))
	require.NoError(t, err)
	assert.Equal(t, int64(300), prod.Int64())
}

func TestValidateCiphertext(t *testing.T) {
	priv := fixtureKey(t)

	assert.True(t, errors.Is(priv.ValidateCiphertext(big.NewInt(0)), ErrCiphertextRange))
	assert.True(t, errors.Is(priv.ValidateCiphertext(priv.N2), ErrCiphertextRange))
	assert.True(t, errors.Is(priv.ValidateCiphertext(priv.N), ErrCiphertextRange))
	_, err := priv.Decrypt(priv.N2)
	assert.Error(t, err)
}

func TestKeyReconstruction(t *testing.T) {
	priv := fixtureKey(t)

	rebuilt, err := NewPrivateKey(priv.Lambda, priv.Mu, priv.N)
	require.NoError(t, err)
	assert.Equal(t, 0, rebuilt.N2.Cmp(priv.N2))

	_, err = NewPrivateKey(priv.Lambda, new(big.Int).Add(priv.Mu, one), priv.N)
	assert.True(t, errors.Is(err, ErrInvalidKey))

	_, err = NewPublicKey(big.NewInt(10))
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func BenchmarkEncrypt(b *testing.B) {
	priv := fixtureKey(b)
	m := big.NewInt(123456789)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := priv.Encrypt(rand.Reader, m); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecrypt(b *testing.B) {
	priv := fixtureKey(b)
	c, _, err := priv.Encrypt(rand.Reader, big.NewInt(123456789))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := priv.Decrypt(c); err != nil {
			b.Fatal(err)
		}
	}
}
