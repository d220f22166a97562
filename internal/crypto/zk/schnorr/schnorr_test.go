package schnorr

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/curves"
)

var ctx = []byte("session-1/party-2")

func allCurves() []curves.Curve {
	return []curves.Curve{curves.NewSecp256k1(), curves.NewEd25519()}
}

func TestSchnorrProof(t *testing.T) {
	for _, curve := range allCurves() {
		t.Run(curve.Name(), func(t *testing.T) {
			// 1. Generate a random secret x
			x, err := curve.ScalarRandom()
			if err != nil {
				t.Fatalf("Failed to generate secret: %v", err)
			}

			// 2. Compute public key X = x * G
			X, err := curve.BasePointMult(x)
			if err != nil {
				t.Fatal(err)
			}

			// 3. Generate Proof
			proof, err := Prove(curve, ctx, x, X)
			if err != nil {
				t.Fatalf("Prove failed: %v", err)
			}

			// 4. Verify Proof
			if err := proof.Verify(curve, ctx, X); err != nil {
				t.Fatalf("Verify failed for valid proof: %v", err)
			}
			if err := proof.Verify(curve, []byte("other"), X); !errors.Is(err, ErrVerify) {
				t.Fatalf("Verify passed under another context: %v", err)
			}
		})
	}
}

func TestSchnorrProofInvalid(t *testing.T) {
	curve := curves.NewSecp256k1()
	x, _ := curve.ScalarRandom()
	X, _ := curve.BasePointMult(x)
	proof, _ := Prove(curve, ctx, x, X)

	// Case A: Modify s
	bad := *proof
	bad.S = curve.ScalarAdd(proof.S, big.NewInt(1))
	if err := bad.Verify(curve, ctx, X); !errors.Is(err, ErrVerify) {
		t.Fatal("Verify passed for tampered s")
	}

	// Case B: Modify R
	bad = *proof
	bad.R, _ = curve.PointAdd(proof.R, proof.R)
	if err := bad.Verify(curve, ctx, X); !errors.Is(err, ErrVerify) {
		t.Fatal("Verify passed for tampered R")
	}

	// Case C: garbage R
	bad = *proof
	bad.R = []byte{0x02, 0x01}
	if err := bad.Verify(curve, ctx, X); !errors.Is(err, ErrVerify) {
		t.Fatal("Verify passed for malformed R")
	}
}

func TestLinearProof(t *testing.T) {
	for _, curve := range allCurves() {
		t.Run(curve.Name(), func(t *testing.T) {
			s, _ := curve.ScalarRandom()
			l, _ := curve.ScalarRandom()
			k, _ := curve.ScalarRandom()
			R, err := curve.BasePointMult(k)
			if err != nil {
				t.Fatal(err)
			}
			V, err := linear(curve, s, l, R)
			if err != nil {
				t.Fatal(err)
			}

			proof, err := ProveLinear(curve, ctx, s, l, R, V)
			if err != nil {
				t.Fatalf("ProveLinear failed: %v", err)
			}
			if err := proof.Verify(curve, ctx, R, V); err != nil {
				t.Fatalf("Verify failed for valid proof: %v", err)
			}

			bad := *proof
			bad.U = curve.ScalarAdd(proof.U, big.NewInt(1))
			if err := bad.Verify(curve, ctx, R, V); !errors.Is(err, ErrVerifyLinear) {
				t.Fatal("Verify passed for tampered u")
			}

			G, _ := curve.BasePointMult(big.NewInt(1))
			if err := proof.Verify(curve, ctx, G, V); !errors.Is(err, ErrVerifyLinear) {
				t.Fatal("Verify passed for another base")
			}
		})
	}
}
