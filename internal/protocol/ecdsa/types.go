package ecdsa

import (
	"github.com/smallyu/go-tss/internal/encoding"
)

// Hex is the wire form of every integer and point in a share: fixed-width,
// zero-padded bytes that marshal to lowercase hex.
type Hex = encoding.Hex

// NtildeShare is a party's auxiliary modulus with both discrete-log proofs.
type NtildeShare struct {
	N       Hex          `json:"n"`
	H1      Hex          `json:"h1"`
	H2      Hex          `json:"h2"`
	H1WrtH2 *NtildeProof `json:"h1_wrt_h2,omitempty"`
	H2WrtH1 *NtildeProof `json:"h2_wrt_h1,omitempty"`
}

// NtildeProof is the wire form of rangeproof.NtildeProof.
type NtildeProof struct {
	Alpha []Hex `json:"alpha"`
	T     []Hex `json:"t"`
}

// RangeProof is the wire form of rangeproof.Proof.
type RangeProof struct {
	Z  Hex `json:"z"`
	U  Hex `json:"u"`
	W  Hex `json:"w"`
	S  Hex `json:"s"`
	S1 Hex `json:"s1"`
	S2 Hex `json:"s2"`
}

// RangeProofWithCheck is the wire form of rangeproof.ProofWithCheck.
type RangeProofWithCheck struct {
	Z    Hex `json:"z"`
	ZPrm Hex `json:"zprm"`
	T    Hex `json:"t"`
	V    Hex `json:"v"`
	W    Hex `json:"w"`
	S    Hex `json:"s"`
	S1   Hex `json:"s1"`
	S2   Hex `json:"s2"`
	T1   Hex `json:"t1"`
	T2   Hex `json:"t2"`
	U    Hex `json:"u"`
}

// SchnorrProof is the wire form of schnorr.Proof.
type SchnorrProof struct {
	R Hex `json:"r"`
	S Hex `json:"s"`
}

// LinearProof is the wire form of schnorr.LinearProof.
type LinearProof struct {
	A Hex `json:"a"`
	T Hex `json:"t"`
	U Hex `json:"u"`
}

// PShare is a party's private key generation output.
type PShare struct {
	I       int `json:"i"`
	T       int `json:"t"`
	Parties int `json:"parties"`
	// Paillier private key (lambda, mu) and modulus.
	L Hex `json:"l"`
	M Hex `json:"m"`
	N Hex `json:"n"`
	// Y is this party's public contribution u*G.
	Y Hex `json:"y"`
	// U is this party's own Shamir share of u.
	U Hex `json:"u"`
	// V are the Feldman commitments to the sharing polynomial of u, V[0] = Y.
	V         []Hex `json:"v"`
	Chaincode Hex   `json:"chaincode"`
	// Ntilde is this party's own auxiliary modulus, without proofs.
	Ntilde *NtildeShare `json:"ntilde"`
}

// NShare is sent by party J to party I during key generation.
type NShare struct {
	I         int          `json:"i"`
	J         int          `json:"j"`
	N         Hex          `json:"n"`
	Ntilde    *NtildeShare `json:"ntilde"`
	Y         Hex          `json:"y"`
	V         []Hex        `json:"v"`
	U         Hex          `json:"u"`
	Chaincode Hex          `json:"chaincode"`
	// PaillierProof answers the challenges derived from N for the pair J->I.
	PaillierProof []Hex `json:"paillier_proof"`
}

// KeyShare is the output of KeyShare: the private half and one NShare per peer.
type KeyShare struct {
	PShare  *PShare         `json:"p_share"`
	NShares map[int]*NShare `json:"n_shares"`
}

// XShare is a party's long-term signing share.
type XShare struct {
	I       int `json:"i"`
	T       int `json:"t"`
	Parties int `json:"parties"`
	L       Hex `json:"l"`
	M       Hex `json:"m"`
	N       Hex `json:"n"`
	// Y is the joint public key.
	Y Hex `json:"y"`
	// X is this party's Shamir share of the joint secret.
	X         Hex          `json:"x"`
	Chaincode Hex          `json:"chaincode"`
	Ntilde    *NtildeShare `json:"ntilde"`
}

// YShare is what party I keeps about peer J after key generation.
type YShare struct {
	I      int          `json:"i"`
	J      int          `json:"j"`
	N      Hex          `json:"n"`
	Ntilde *NtildeShare `json:"ntilde"`
	// X is the peer's public share x_j*G.
	X Hex `json:"x"`
}

// KeyCombined is the output of KeyCombine.
type KeyCombined struct {
	XShare  *XShare         `json:"x_share"`
	YShares map[int]*YShare `json:"y_shares"`
}

// WShare is the private state of a signer after SignShare.
type WShare struct {
	I       int   `json:"i"`
	Signers []int `json:"signers"`
	L       Hex   `json:"l"`
	M       Hex   `json:"m"`
	N       Hex   `json:"n"`
	Y       Hex   `json:"y"`
	K       Hex   `json:"k"`
	Gamma   Hex   `json:"gamma"`
	// W is lambda_i(S) * x_i, the additive share of the secret for this signer set.
	W Hex `json:"w"`
	// CK is the Paillier encryption of K under this party's key.
	CK     Hex             `json:"ck"`
	Ntilde *NtildeShare    `json:"ntilde"`
	Peers  map[int]*YShare `json:"peers"`
}

// KShare carries Enc_J(k_J) from party J to party I with a range proof
// under I's Ntilde.
type KShare struct {
	I     int         `json:"i"`
	J     int         `json:"j"`
	N     Hex         `json:"n"`
	K     Hex         `json:"k"`
	Proof *RangeProof `json:"proof"`
}

// SignShareRT is the output of SignShare.
type SignShareRT struct {
	WShare  *WShare         `json:"w_share"`
	KShares map[int]*KShare `json:"k_shares"`
}

// AShare carries the MtA responses of party J to party I: Enc_I(k_I*gamma_J + beta')
// and Enc_I(k_I*w_J + nu') with proofs binding them to Gamma_J and W_J.
type AShare struct {
	I          int                  `json:"i"`
	J          int                  `json:"j"`
	Alpha      Hex                  `json:"alpha"`
	Mu         Hex                  `json:"mu"`
	Gamma      Hex                  `json:"gamma"`
	W          Hex                  `json:"w"`
	GammaProof *RangeProofWithCheck `json:"gamma_proof"`
	WProof     *RangeProofWithCheck `json:"w_proof"`
}

// BShare is party I's private half of the MtA with peer J.
type BShare struct {
	I    int `json:"i"`
	J    int `json:"j"`
	Beta Hex `json:"beta"`
	Nu   Hex `json:"nu"`
}

// SignConvertRT is the output of SignConvertStep1.
type SignConvertRT struct {
	AShare *AShare `json:"a_share"`
	BShare *BShare `json:"b_share"`
}

// MUShare is party I's decryption of the MtA responses of peer J.
type MUShare struct {
	I     int `json:"i"`
	J     int `json:"j"`
	Alpha Hex `json:"alpha"`
	Mu    Hex `json:"mu"`
	// Gamma is the peer's Gamma_J as bound by its proof.
	Gamma Hex `json:"gamma"`
}

// GShare is the completed MtA of party I with peer J.
type GShare struct {
	I     int `json:"i"`
	J     int `json:"j"`
	Alpha Hex `json:"alpha"`
	Beta  Hex `json:"beta"`
	Mu    Hex `json:"mu"`
	Nu    Hex `json:"nu"`
	Gamma Hex `json:"gamma"`
}

// OShare is the private state of a signer after SignCombine.
type OShare struct {
	I       int   `json:"i"`
	Signers []int `json:"signers"`
	Y       Hex   `json:"y"`
	K       Hex   `json:"k"`
	Omicron Hex   `json:"omicron"`
	Delta   Hex   `json:"delta"`
	Gamma   Hex   `json:"gamma"`
	// PeerGammas are the Gamma_j each peer bound in its MtA proof.
	PeerGammas map[int]Hex `json:"peer_gammas"`
}

// DShare broadcasts delta_J and Gamma_J from party J to party I.
type DShare struct {
	I     int `json:"i"`
	J     int `json:"j"`
	Delta Hex `json:"delta"`
	Gamma Hex `json:"gamma"`
}

// SignCombineRT is the output of SignCombine.
type SignCombineRT struct {
	OShare  *OShare         `json:"o_share"`
	DShares map[int]*DShare `json:"d_shares"`
}

// VAShare is the private state of a signer after Sign. S is withheld until
// every party has shown that the signature shares agree.
type VAShare struct {
	I       int   `json:"i"`
	Signers []int `json:"signers"`
	Y       Hex   `json:"y"`
	M       Hex   `json:"m"`
	R       Hex   `json:"big_r"`
	Rx      Hex   `json:"r"`
	S       Hex   `json:"s"`
	L       Hex   `json:"l"`
	Rho     Hex   `json:"rho"`
	V       Hex   `json:"v"`
	A       Hex   `json:"a"`
	C       Hex   `json:"c"`
	D       Hex   `json:"d"`
}

// VACommitment is broadcast after Sign.
type VACommitment struct {
	I int `json:"i"`
	C Hex `json:"c"`
}

// SignRT is the output of Sign.
type SignRT struct {
	VAShare      *VAShare      `json:"va_share"`
	VACommitment *VACommitment `json:"va_commitment"`
}

// VAShareWithProofs opens a VACommitment and proves knowledge of the
// openings of V_i and A_i.
type VAShareWithProofs struct {
	I      int           `json:"i"`
	V      Hex           `json:"v"`
	A      Hex           `json:"a"`
	D      Hex           `json:"d"`
	VProof *LinearProof  `json:"v_proof"`
	AProof *SchnorrProof `json:"a_proof"`
}

// UTShare is the private state of a signer after VerifyVAShares.
type UTShare struct {
	I       int   `json:"i"`
	Signers []int `json:"signers"`
	Y       Hex   `json:"y"`
	R       Hex   `json:"big_r"`
	Rx      Hex   `json:"r"`
	M       Hex   `json:"m"`
	S       Hex   `json:"s"`
	U       Hex   `json:"u"`
	T       Hex   `json:"t"`
	C       Hex   `json:"c"`
	D       Hex   `json:"d"`
}

// UTCommitment is broadcast after VerifyVAShares.
type UTCommitment struct {
	I int `json:"i"`
	C Hex `json:"c"`
}

// VerifyVART is the output of VerifyVAShares.
type VerifyVART struct {
	UTShare      *UTShare      `json:"ut_share"`
	UTCommitment *UTCommitment `json:"ut_commitment"`
}

// PublicUTShare opens a UTCommitment.
type PublicUTShare struct {
	I int `json:"i"`
	U Hex `json:"u"`
	T Hex `json:"t"`
	D Hex `json:"d"`
}

// SShare is a released signature share.
type SShare struct {
	I int `json:"i"`
	Y Hex `json:"y"`
	R Hex `json:"big_r"`
	// Rx is r = R.x mod q.
	Rx Hex `json:"r"`
	// M is the message hash reduced mod q.
	M Hex `json:"m"`
	S Hex `json:"s"`
}

// Signature is a standard ECDSA signature with its public key and recovery id.
type Signature struct {
	Y     Hex `json:"y"`
	R     Hex `json:"r"`
	S     Hex `json:"s"`
	RecID int `json:"recid"`
}
