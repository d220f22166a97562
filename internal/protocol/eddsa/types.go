package eddsa

import (
	"github.com/smallyu/go-tss/internal/encoding"
)

// Hex is the wire form of scalars and points: 32 bytes little-endian, and
// chaincodes: 32 bytes big-endian.
type Hex = encoding.Hex

// UShare is a party's private key generation output.
type UShare struct {
	I       int `json:"i"`
	T       int `json:"t"`
	Parties int `json:"parties"`
	// Y is this party's public contribution u*G.
	Y Hex `json:"y"`
	// Seed is the first half of the 64-byte seed; u and the nonce prefix are
	// derived from it.
	Seed      Hex `json:"seed"`
	Chaincode Hex `json:"chaincode"`
}

// YShare is sent by party J to party I: J's Shamir share of its secret u_J
// at I, with the Feldman commitments V (V[0] = Y).
type YShare struct {
	I         int   `json:"i"`
	J         int   `json:"j"`
	Y         Hex   `json:"y"`
	V         []Hex `json:"v"`
	U         Hex   `json:"u"`
	Chaincode Hex   `json:"chaincode"`
}

// KeyShare is the output of KeyShare.
type KeyShare struct {
	UShare  *UShare         `json:"u_share"`
	YShares map[int]*YShare `json:"y_shares"`
}

// PShare is a party's long-term signing material.
type PShare struct {
	I       int `json:"i"`
	T       int `json:"t"`
	Parties int `json:"parties"`
	// Y is the joint public key.
	Y Hex `json:"y"`
	// U is this party's full secret contribution; it is re-shared per session.
	U         Hex `json:"u"`
	Prefix    Hex `json:"prefix"`
	Chaincode Hex `json:"chaincode"`
	// Contributions maps every party, this one included, to its public
	// contribution u_j*G. Signers check re-shares against it.
	Contributions map[int]Hex `json:"contributions"`
}

// JShare records a peer of party J.
type JShare struct {
	I int `json:"i"`
	J int `json:"j"`
}

// KeyCombined is the output of KeyCombine.
type KeyCombined struct {
	PShare  *PShare         `json:"p_share"`
	JShares map[int]*JShare `json:"j_shares"`
}

// SubkeyShare is the output of KeyDerive: the deriving party's child PShare
// and fresh YShares of its shifted contribution for every peer.
type SubkeyShare struct {
	PShare  *PShare         `json:"p_share"`
	YShares map[int]*YShare `json:"y_shares"`
}

// XShare is the private state of a signer after SignShare.
type XShare struct {
	I       int   `json:"i"`
	T       int   `json:"t"`
	Parties int   `json:"parties"`
	Signers []int `json:"signers"`
	Y       Hex   `json:"y"`
	// U and R are this party's own subshares of u_I and r_I.
	U Hex `json:"u"`
	R Hex `json:"r"`
	// BigR is r_I*G.
	BigR          Hex         `json:"big_r"`
	Contributions map[int]Hex `json:"contributions"`
}

// RShare is sent by signer J to signer I.
type RShare struct {
	I int `json:"i"`
	J int `json:"j"`
	// U is J's fresh Shamir share of u_J at I, V its Feldman commitments.
	U Hex   `json:"u"`
	V []Hex `json:"v"`
	// R is J's share of its nonce r_J at I, BigR = r_J*G.
	R    Hex `json:"r"`
	BigR Hex `json:"big_r"`
	// Commitment is R*G for the subshare R.
	Commitment Hex `json:"commitment"`
	// RV are the Feldman commitments of the nonce split, RV[0] = BigR.
	RV []Hex `json:"rv"`
}

// SignShareRT is the output of SignShare.
type SignShareRT struct {
	XShare  *XShare         `json:"x_share"`
	RShares map[int]*RShare `json:"r_shares"`
}

// GShare is a signer's share of the signature scalar.
type GShare struct {
	I       int   `json:"i"`
	Signers []int `json:"signers"`
	Y       Hex   `json:"y"`
	Gamma   Hex   `json:"gamma"`
	R       Hex   `json:"r"`
	// RI and XI are r_i*G and x_i*G for the summed shares behind Gamma.
	RI Hex `json:"r_i"`
	XI Hex `json:"x_i"`
}

// Signature is an RFC 8032 signature (R, sigma) with its public key.
type Signature struct {
	Y     Hex `json:"y"`
	R     Hex `json:"r"`
	Sigma Hex `json:"sigma"`
}

// Bytes returns R || sigma.
func (s *Signature) Bytes() []byte {
	return append(append(make([]byte, 0, 64), s.R...), s.Sigma...)
}
