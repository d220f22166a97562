package hd

import (
	"crypto/rand"
	"math/big"
	"testing"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-tss/internal/crypto/curves"
	"github.com/smallyu/go-tss/internal/encoding"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		path    string
		want    []uint32
		wantErr error
	}{
		{path: "m", want: nil},
		{path: "", want: nil},
		{path: "m/0/1/2", want: []uint32{0, 1, 2}},
		{path: "0/7", want: []uint32{0, 7}},
		{path: "m/1'", wantErr: ErrHardened},
		{path: "m/1h", wantErr: ErrHardened},
		{path: "m/2147483648", wantErr: ErrHardened},
		{path: "m/a", wantErr: ErrInvalidPath},
		{path: "m//1", wantErr: ErrInvalidPath},
		{path: "m/-1", wantErr: ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParsePath(tt.path)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func randomChainCode(t *testing.T) []byte {
	cc := make([]byte, 32)
	_, err := rand.Read(cc)
	require.NoError(t, err)
	return cc
}

func TestSecp256k1(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey().SerializeCompressed()
	cc := randomChainCode(t)

	d, err := Secp256k1(pub, cc, []uint32{0, 5, 17})
	require.NoError(t, err)
	assert.Len(t, d.PublicKey, 33)
	assert.Len(t, d.ChainCode, 32)
	assert.Equal(t, 0, d.PrefixTweak.Sign())

	// (x + tweak)*G is the derived key
	x := new(big.Int).SetBytes(priv.Serialize())
	x.Add(x, d.Tweak)
	x.Mod(x, btcec.S256().N)
	child, _ := btcec.PrivKeyFromBytes(encoding.BigToBytes(x, 32))
	assert.Equal(t, d.PublicKey, child.PubKey().SerializeCompressed())

	// derivation composes along the path
	step, err := Secp256k1(pub, cc, []uint32{0})
	require.NoError(t, err)
	rest, err := Secp256k1(step.PublicKey, step.ChainCode, []uint32{5, 17})
	require.NoError(t, err)
	assert.Equal(t, d.PublicKey, rest.PublicKey)
	assert.Equal(t, d.ChainCode, rest.ChainCode)

	// empty path is the identity
	same, err := Secp256k1(pub, cc, nil)
	require.NoError(t, err)
	assert.Equal(t, pub, same.PublicKey)
	assert.Equal(t, 0, same.Tweak.Sign())

	_, err = Secp256k1(pub, cc, []uint32{HardenedOffset})
	assert.True(t, errors.Is(err, ErrHardened))
	_, err = Secp256k1(pub, cc[:31], []uint32{0})
	assert.True(t, errors.Is(err, ErrInvalidPath))
	_, err = Secp256k1(pub[:32], cc, []uint32{0})
	assert.Error(t, err)
}

func TestEd25519(t *testing.T) {
	seed := make([]byte, 64)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	a, err := new(edwards25519.Scalar).SetUniformBytes(seed)
	require.NoError(t, err)
	pub := new(edwards25519.Point).ScalarBaseMult(a).Bytes()
	cc := randomChainCode(t)

	d, err := Ed25519(pub, cc, []uint32{3, 9})
	require.NoError(t, err)
	assert.Len(t, d.PublicKey, 32)
	assert.Len(t, d.ChainCode, 32)

	// (a + tweak)*G is the derived key
	tb := encoding.BigToBytesLE(d.Tweak, 32)
	ts, err := new(edwards25519.Scalar).SetCanonicalBytes(tb)
	require.NoError(t, err)
	childScalar := new(edwards25519.Scalar).Add(a, ts)
	assert.Equal(t, d.PublicKey, new(edwards25519.Point).ScalarBaseMult(childScalar).Bytes())

	step, err := Ed25519(pub, cc, []uint32{3})
	require.NoError(t, err)
	rest, err := Ed25519(step.PublicKey, step.ChainCode, []uint32{9})
	require.NoError(t, err)
	assert.Equal(t, d.PublicKey, rest.PublicKey)
	assert.Equal(t, d.ChainCode, rest.ChainCode)
	sum := new(big.Int).Add(step.PrefixTweak, rest.PrefixTweak)
	assert.Equal(t, 0, sum.Mod(sum, two256).Cmp(d.PrefixTweak))
	order := curves.NewEd25519().Order()
	assert.Equal(t, -1, d.Tweak.Cmp(order))
	tweaks := new(big.Int).Add(step.Tweak, rest.Tweak)
	assert.Equal(t, 0, tweaks.Mod(tweaks, order).Cmp(d.Tweak))

	other, err := Ed25519(pub, cc, []uint32{4, 9})
	require.NoError(t, err)
	assert.NotEqual(t, d.PublicKey, other.PublicKey)

	_, err = Ed25519(pub, cc, []uint32{HardenedOffset + 1})
	assert.True(t, errors.Is(err, ErrHardened))
}
