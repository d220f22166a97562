package hd

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
)

// Secp256k1 performs BIP32 public derivation from a 33-byte compressed key.
// The holder of a share of the parent key adds Tweak to its share: Shamir
// shares of x + IL are the shares of x shifted by IL.
func Secp256k1(publicKey, chaincode []byte, path []uint32) (*Derivation, error) {
	if err := checkChainCode(chaincode); err != nil {
		return nil, err
	}
	pub, err := btcec.ParsePubKey(publicKey)
	if err != nil {
		return nil, errors.Wrap(err, "hd: failed to parse parent public key")
	}

	order := btcec.S256().N
	tweak := new(big.Int)
	cc := append([]byte(nil), chaincode...)
	for _, index := range path {
		if index >= HardenedOffset {
			return nil, errors.Wrapf(ErrHardened, "index %d", index)
		}

		I := hmac512(cc, pub.SerializeCompressed(), indexBE(index))
		IL, IR := I[:32], I[32:]

		var il btcec.ModNScalar
		if overflow := il.SetByteSlice(IL); overflow || il.IsZero() {
			return nil, errors.Wrapf(ErrInvalidChild, "index %d: IL >= n or IL = 0", index)
		}

		// child = parent + IL*G
		var parent, ilG, child btcec.JacobianPoint
		pub.AsJacobian(&parent)
		btcec.ScalarBaseMultNonConst(&il, &ilG)
		btcec.AddNonConst(&parent, &ilG, &child)
		if (child.X.IsZero() && child.Y.IsZero()) || child.Z.IsZero() {
			return nil, errors.Wrapf(ErrInvalidChild, "index %d: point at infinity", index)
		}
		child.ToAffine()
		pub = btcec.NewPublicKey(&child.X, &child.Y)

		tweak.Add(tweak, new(big.Int).SetBytes(IL))
		tweak.Mod(tweak, order)
		cc = IR
	}

	return &Derivation{
		PublicKey:   pub.SerializeCompressed(),
		ChainCode:   cc,
		Tweak:       tweak,
		PrefixTweak: new(big.Int),
	}, nil
}
