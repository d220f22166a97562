package curves

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"math/big"
	"testing"
	"testing/iotest"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-tss/internal/encoding"
)

func allCurves() []Curve {
	return []Curve{NewSecp256k1(), NewEd25519()}
}

func TestNew(t *testing.T) {
	for _, name := range []string{NameSecp256k1, NameEd25519} {
		c, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}
	_, err := New("p256")
	assert.Error(t, err)
}

func TestScalarArithmetic(t *testing.T) {
	for _, c := range allCurves() {
		t.Run(c.Name(), func(t *testing.T) {
			q := c.Order()
			x, err := c.ScalarRandom()
			require.NoError(t, err)
			y, err := c.ScalarRandom()
			require.NoError(t, err)

			assert.Equal(t, 0, c.ScalarSub(c.ScalarAdd(x, y), y).Cmp(x))
			assert.Equal(t, 0, c.ScalarAdd(x, c.ScalarNegate(x)).Sign())
			assert.Equal(t, 0, c.ScalarReduce(q).Sign())

			inv, err := c.ScalarInvert(x)
			require.NoError(t, err)
			assert.Equal(t, 0, c.ScalarMult(x, inv).Cmp(big.NewInt(1)))

			_, err = c.ScalarInvert(q)
			assert.True(t, errors.Is(err, ErrZeroScalar))
		})
	}
}

func TestWithRandom(t *testing.T) {
	for _, c := range allCurves() {
		t.Run(c.Name(), func(t *testing.T) {
			stream := func() Curve {
				return WithRandom(c, bytes.NewReader(bytes.Repeat([]byte{1}, 64)))
			}
			a, err := stream().ScalarRandom()
			require.NoError(t, err)
			b, err := stream().ScalarRandom()
			require.NoError(t, err)
			assert.Equal(t, 0, a.Cmp(b))
			assert.Equal(t, c.Name(), stream().Name())

			_, err = WithRandom(c, iotest.ErrReader(errors.New("drained"))).ScalarRandom()
			assert.Error(t, err)
			_, err = c.ScalarRandom()
			assert.NoError(t, err, "the original curve keeps its reader")
		})
	}
}

func TestPointArithmetic(t *testing.T) {
	for _, c := range allCurves() {
		t.Run(c.Name(), func(t *testing.T) {
			a, err := c.ScalarRandom()
			require.NoError(t, err)
			b, err := c.ScalarRandom()
			require.NoError(t, err)

			A, err := c.BasePointMult(a)
			require.NoError(t, err)
			assert.Len(t, A, c.PointSize())
			B, err := c.BasePointMult(b)
			require.NoError(t, err)

			// aG + bG == (a+b)G
			sum, err := c.PointAdd(A, B)
			require.NoError(t, err)
			expected, err := c.BasePointMult(c.ScalarAdd(a, b))
			require.NoError(t, err)
			assert.Equal(t, expected, sum)

			// b(aG) == (ab)G
			ab, err := c.PointMultiply(A, b)
			require.NoError(t, err)
			expected, err = c.BasePointMult(c.ScalarMult(a, b))
			require.NoError(t, err)
			assert.Equal(t, expected, ab)
		})
	}
}

func TestIdentityIsSignaled(t *testing.T) {
	for _, c := range allCurves() {
		t.Run(c.Name(), func(t *testing.T) {
			_, err := c.BasePointMult(big.NewInt(0))
			assert.True(t, errors.Is(err, ErrIdentity))

			_, err = c.BasePointMult(c.Order())
			assert.True(t, errors.Is(err, ErrIdentity))

			x, err := c.ScalarRandom()
			require.NoError(t, err)
			P, err := c.BasePointMult(x)
			require.NoError(t, err)
			negP, err := c.BasePointMult(c.ScalarNegate(x))
			require.NoError(t, err)
			_, err = c.PointAdd(P, negP)
			assert.True(t, errors.Is(err, ErrIdentity))
		})
	}
}

func TestRejectsMalformedPoints(t *testing.T) {
	for _, c := range allCurves() {
		t.Run(c.Name(), func(t *testing.T) {
			G, err := c.BasePointMult(big.NewInt(1))
			require.NoError(t, err)

			_, err = c.PointAdd(G[:len(G)-1], G)
			assert.True(t, errors.Is(err, ErrInvalidPoint))

			_, err = c.PointMultiply(make([]byte, c.PointSize()), big.NewInt(2))
			assert.True(t, errors.Is(err, ErrInvalidPoint))
		})
	}
}

func TestSecp256k1OffCurve(t *testing.T) {
	c := NewSecp256k1()
	// x >= p is not a field element
	x := new(big.Int).Lsh(big.NewInt(1), 256)
	bad := append([]byte{0x02}, encoding.BigToBytes(x.Sub(x, big.NewInt(1)), 32)...)
	_, err := c.PointAdd(bad, bad)
	assert.True(t, errors.Is(err, ErrInvalidPoint))
}

func TestEd25519SmallOrder(t *testing.T) {
	c := NewEd25519()
	identity := make([]byte, 32)
	identity[0] = 1
	_, err := c.PointMultiply(identity, big.NewInt(3))
	assert.True(t, errors.Is(err, ErrInvalidPoint))
}

func TestSecp256k1Verify(t *testing.T) {
	c := NewSecp256k1()
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	msg := []byte("hello")
	hash := sha256.Sum256(msg)
	raw := dcrecdsa.SignCompact(priv, hash[:], true)[1:]
	pub := priv.PubKey().SerializeCompressed()

	assert.True(t, c.Verify(msg, raw, pub))
	assert.True(t, c.Verify(msg, raw, pub), "verification is a pure predicate")
	assert.False(t, c.Verify([]byte("other"), raw, pub))
	assert.False(t, c.Verify(msg, raw[:63], pub))
}

func TestEd25519VerifyMatchesStdlib(t *testing.T) {
	c := NewEd25519()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	msg := []byte("hello")
	sig := ed25519.Sign(priv, msg)
	assert.True(t, c.Verify(msg, sig, pub))

	sig[0] ^= 1
	assert.False(t, c.Verify(msg, sig, pub))
}

func TestClamp(t *testing.T) {
	b := make([]byte, 32)
	for i := range b {
		b[i] = 0xff
	}
	u := Clamp(b)
	assert.Equal(t, 254, u.BitLen()-1)
	assert.Equal(t, uint(0), u.Bit(0)|u.Bit(1)|u.Bit(2))

	// the clamped key's public point matches the stdlib derivation
	seed := make([]byte, 32)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	h := sha512.Sum512(seed)
	c := NewEd25519()
	y, err := c.BasePointMult(Clamp(h[:32]))
	require.NoError(t, err)
	assert.Equal(t, []byte(ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)), y)
}
