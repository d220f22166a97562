package commitment

import (
	"testing"
)

func TestCommitment(t *testing.T) {
	msg := []byte("Hello, MPC!")

	comm, err := New(msg)
	if err != nil {
		t.Fatalf("Failed to create commitment: %v", err)
	}

	if len(comm.C) != 32 {
		t.Errorf("Expected commitment length 32, got %d", len(comm.C))
	}
	if len(comm.D) != SaltSize {
		t.Errorf("Expected decommitment length %d, got %d", SaltSize, len(comm.D))
	}

	if !Verify(comm.C, comm.D, msg) {
		t.Fatal("Verification failed for valid commitment")
	}
}

func TestCommitmentVerifyFailed(t *testing.T) {
	msg := []byte("Secret Message")
	comm, err := New(msg)
	if err != nil {
		t.Fatalf("Failed to create commitment: %v", err)
	}

	// Case 1: Wrong message
	if Verify(comm.C, comm.D, []byte("Wrong Message")) {
		t.Fatal("Verification passed for wrong message")
	}

	// Case 2: Wrong salt
	wrongSalt := make([]byte, 32)
	copy(wrongSalt, comm.D)
	wrongSalt[0] ^= 0xFF
	if Verify(comm.C, wrongSalt, msg) {
		t.Fatal("Verification passed for wrong salt")
	}

	// Case 3: Wrong commitment
	wrongC := make([]byte, 32)
	copy(wrongC, comm.C)
	wrongC[0] ^= 0xFF
	if Verify(wrongC, comm.D, msg) {
		t.Fatal("Verification passed for wrong commitment")
	}

	// Case 4: Truncated inputs
	if Verify(comm.C[:31], comm.D, msg) || Verify(comm.C, comm.D[:31], msg) {
		t.Fatal("Verification passed for truncated input")
	}
}

func TestMultiPartCommitment(t *testing.T) {
	v := []byte{0x02, 0xaa, 0xbb}
	a := []byte{0x03, 0xcc}

	comm, err := New(v, a)
	if err != nil {
		t.Fatalf("Failed to create commitment: %v", err)
	}

	if !Verify(comm.C, comm.D, v, a) {
		t.Fatal("Multi-part verification failed")
	}

	// Moving a byte across the part boundary must not verify.
	if Verify(comm.C, comm.D, v[:2], append([]byte{0xbb}, a...)) {
		t.Fatal("Verification passed for re-split parts")
	}

	// Order matters.
	if Verify(comm.C, comm.D, a, v) {
		t.Fatal("Verification passed for swapped parts")
	}
}

func TestCommitmentsAreHiding(t *testing.T) {
	msg := []byte("same")
	c1, err := New(msg)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := New(msg)
	if err != nil {
		t.Fatal(err)
	}
	if string(c1.C) == string(c2.C) {
		t.Fatal("Two commitments to the same value collided")
	}
}
