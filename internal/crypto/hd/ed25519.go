package hd

import (
	"math/big"

	"filippo.io/edwards25519"
	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/curves"
	"github.com/smallyu/go-tss/internal/encoding"
)

var (
	two256 = new(big.Int).Lsh(big.NewInt(1), 256)
	eight  = big.NewInt(8)
)

// Ed25519 performs BIP32-Ed25519 public derivation from a 32-byte
// little-endian point. chaincode is 32 bytes big-endian.
//
// For each index:
//
//	Z  = HMAC-SHA512(cc, 0x02 || A || LE32(index))
//	A' = A + 8*ZL[0:28]*G
//	cc' = HMAC-SHA512(cc, 0x03 || A || LE32(index))[32:]
//
// and the private scalar and nonce prefix move by 8*ZL and ZR.
func Ed25519(publicKey, chaincode []byte, path []uint32) (*Derivation, error) {
	if err := checkChainCode(chaincode); err != nil {
		return nil, err
	}
	A, err := new(edwards25519.Point).SetBytes(publicKey)
	if err != nil {
		return nil, errors.Wrap(err, "hd: failed to parse parent public key")
	}

	order := curves.NewEd25519().Order()
	tweak := new(big.Int)
	prefixTweak := new(big.Int)
	cc := append([]byte(nil), chaincode...)
	for _, index := range path {
		if index >= HardenedOffset {
			return nil, errors.Wrapf(ErrHardened, "index %d", index)
		}
		pk := A.Bytes()
		z := hmac512(cc, []byte{0x02}, pk, indexLE(index))
		i := hmac512(cc, []byte{0x03}, pk, indexLE(index))

		zl := encoding.BytesToBigLE(z[:28])
		zr := encoding.BytesToBigLE(z[32:])
		t := new(big.Int).Mul(zl, eight)

		// t < 2^227 < L, so the encoding is canonical.
		ts, err := new(edwards25519.Scalar).SetCanonicalBytes(encoding.BigToBytesLE(t, 32))
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidChild, "index %d: %v", index, err)
		}
		A = new(edwards25519.Point).Add(A, new(edwards25519.Point).ScalarBaseMult(ts))
		if A.Equal(edwards25519.NewIdentityPoint()) == 1 {
			return nil, errors.Wrapf(ErrInvalidChild, "index %d: identity", index)
		}

		tweak.Add(tweak, t)
		tweak.Mod(tweak, order)
		prefixTweak.Add(prefixTweak, zr)
		prefixTweak.Mod(prefixTweak, two256)
		cc = i[32:]
	}

	return &Derivation{
		PublicKey:   A.Bytes(),
		ChainCode:   cc,
		Tweak:       tweak,
		PrefixTweak: prefixTweak,
	}, nil
}
