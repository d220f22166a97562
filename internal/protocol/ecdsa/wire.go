package ecdsa

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/internal/crypto/paillier"
	"github.com/smallyu/go-tss/internal/crypto/zk/rangeproof"
	"github.com/smallyu/go-tss/internal/crypto/zk/schnorr"
	"github.com/smallyu/go-tss/internal/encoding"
	"github.com/smallyu/go-tss/pkg/tss"
)

func (e *ECDSA) qPow(k int64) *big.Int {
	return new(big.Int).Exp(e.curve.Order(), big.NewInt(k), nil)
}

// responseWidth is the encoded width of a proof response e*secret + mask
// with mask below bound. One byte over the bound always suffices.
func responseWidth(bound *big.Int) int {
	return encoding.ByteLen(bound) + 1
}

// toBig reads locally held values; peer input goes through fixedBig.
func toBig(b Hex) *big.Int {
	return new(big.Int).SetBytes(b)
}

// fixedBig decodes an unsigned integer that was encoded at exactly size bytes.
func fixedBig(b Hex, size int, field string) (*big.Int, error) {
	if len(b) != size {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: expected %d bytes, got %d", field, size, len(b))
	}
	return new(big.Int).SetBytes(b), nil
}

// modulus decodes a modulus whose encoding sets its own width: it must not
// carry a leading zero byte.
func modulus(b Hex, field string) (*big.Int, error) {
	if len(b) == 0 || b[0] == 0 {
		return nil, errors.Wrapf(tss.ErrDecode, "%s: not a minimal encoding", field)
	}
	return new(big.Int).SetBytes(b), nil
}

func (e *ECDSA) encodeNtilde(nt *rangeproof.NtildeWithProofs) *NtildeShare {
	size := encoding.ByteLen(nt.N)
	proof := func(p *rangeproof.NtildeProof) *NtildeProof {
		out := &NtildeProof{
			Alpha: make([]Hex, len(p.Alpha)),
			T:     make([]Hex, len(p.T)),
		}
		for i := range p.Alpha {
			out.Alpha[i] = encoding.BigToBytes(p.Alpha[i], size)
			out.T[i] = encoding.BigToBytes(p.T[i], size)
		}
		return out
	}
	return &NtildeShare{
		N:       encoding.BigToBytes(nt.N, size),
		H1:      encoding.BigToBytes(nt.H1, size),
		H2:      encoding.BigToBytes(nt.H2, size),
		H1WrtH2: proof(nt.H1WrtH2),
		H2WrtH1: proof(nt.H2WrtH1),
	}
}

// decodeNtilde returns the modulus values; proofs are only decoded on request.
// H1 and H2 share the width of N.
func decodeNtilde(s *NtildeShare) (*rangeproof.Ntilde, error) {
	if s == nil {
		return nil, errors.Wrap(tss.ErrDecode, "ntilde: missing values")
	}
	n, err := modulus(s.N, "ntilde")
	if err != nil {
		return nil, err
	}
	h1, err := fixedBig(s.H1, len(s.N), "ntilde h1")
	if err != nil {
		return nil, err
	}
	h2, err := fixedBig(s.H2, len(s.N), "ntilde h2")
	if err != nil {
		return nil, err
	}
	return &rangeproof.Ntilde{N: n, H1: h1, H2: h2}, nil
}

func decodeNtildeWithProofs(s *NtildeShare) (*rangeproof.NtildeWithProofs, error) {
	nt, err := decodeNtilde(s)
	if err != nil {
		return nil, err
	}
	proof := func(p *NtildeProof) (*rangeproof.NtildeProof, error) {
		if p == nil || len(p.Alpha) != len(p.T) {
			return nil, errors.Wrap(tss.ErrDecode, "ntilde proof: malformed")
		}
		out := &rangeproof.NtildeProof{
			Alpha: make([]*big.Int, len(p.Alpha)),
			T:     make([]*big.Int, len(p.T)),
		}
		size := len(s.N)
		var err error
		for i := range p.Alpha {
			if out.Alpha[i], err = fixedBig(p.Alpha[i], size, "ntilde proof alpha"); err != nil {
				return nil, err
			}
			if out.T[i], err = fixedBig(p.T[i], size, "ntilde proof t"); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	h1, err := proof(s.H1WrtH2)
	if err != nil {
		return nil, err
	}
	h2, err := proof(s.H2WrtH1)
	if err != nil {
		return nil, err
	}
	return &rangeproof.NtildeWithProofs{Ntilde: *nt, H1WrtH2: h1, H2WrtH1: h2}, nil
}

// publicNtilde strips the proofs once they have been verified.
func publicNtilde(s *NtildeShare) *NtildeShare {
	return &NtildeShare{N: s.N, H1: s.H1, H2: s.H2}
}

func (e *ECDSA) encodeRangeProof(pk *paillier.PublicKey, nt *rangeproof.Ntilde, p *rangeproof.Proof) *RangeProof {
	nb := encoding.ByteLen(pk.N)
	ntb := encoding.ByteLen(nt.N)
	q3 := e.qPow(3)
	return &RangeProof{
		Z:  encoding.BigToBytes(p.Z, ntb),
		U:  encoding.BigToBytes(p.U, 2*nb),
		W:  encoding.BigToBytes(p.W, ntb),
		S:  encoding.BigToBytes(p.S, nb),
		S1: encoding.BigToBytes(p.S1, responseWidth(q3)),
		S2: encoding.BigToBytes(p.S2, responseWidth(new(big.Int).Mul(q3, nt.N))),
	}
}

// decodeRangeProof reads a proof at the widths encodeRangeProof writes for
// pk and nt.
func (e *ECDSA) decodeRangeProof(pk *paillier.PublicKey, nt *rangeproof.Ntilde, p *RangeProof) (*rangeproof.Proof, error) {
	if p == nil {
		return nil, errors.Wrap(tss.ErrDecode, "range proof: missing")
	}
	nb := encoding.ByteLen(pk.N)
	ntb := encoding.ByteLen(nt.N)
	q3 := e.qPow(3)
	out := &rangeproof.Proof{}
	for _, f := range []struct {
		name string
		b    Hex
		size int
		dst  **big.Int
	}{
		{"z", p.Z, ntb, &out.Z},
		{"u", p.U, 2 * nb, &out.U},
		{"w", p.W, ntb, &out.W},
		{"s", p.S, nb, &out.S},
		{"s1", p.S1, responseWidth(q3), &out.S1},
		{"s2", p.S2, responseWidth(new(big.Int).Mul(q3, nt.N)), &out.S2},
	} {
		x, err := fixedBig(f.b, f.size, "range proof "+f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = x
	}
	return out, nil
}

func (e *ECDSA) encodeRangeProofWithCheck(pk *paillier.PublicKey, nt *rangeproof.Ntilde, p *rangeproof.ProofWithCheck) *RangeProofWithCheck {
	nb := encoding.ByteLen(pk.N)
	ntb := encoding.ByteLen(nt.N)
	q3Ntilde := new(big.Int).Mul(e.qPow(3), nt.N)
	return &RangeProofWithCheck{
		Z:    encoding.BigToBytes(p.Z, ntb),
		ZPrm: encoding.BigToBytes(p.ZPrm, ntb),
		T:    encoding.BigToBytes(p.T, ntb),
		V:    encoding.BigToBytes(p.V, 2*nb),
		W:    encoding.BigToBytes(p.W, ntb),
		S:    encoding.BigToBytes(p.S, nb),
		S1:   encoding.BigToBytes(p.S1, responseWidth(e.qPow(3))),
		S2:   encoding.BigToBytes(p.S2, responseWidth(q3Ntilde)),
		T1:   encoding.BigToBytes(p.T1, responseWidth(e.qPow(7))),
		T2:   encoding.BigToBytes(p.T2, responseWidth(q3Ntilde)),
		U:    p.U,
	}
}

func (e *ECDSA) decodeRangeProofWithCheck(pk *paillier.PublicKey, nt *rangeproof.Ntilde, p *RangeProofWithCheck) (*rangeproof.ProofWithCheck, error) {
	if p == nil {
		return nil, errors.Wrap(tss.ErrDecode, "range proof with check: missing")
	}
	nb := encoding.ByteLen(pk.N)
	ntb := encoding.ByteLen(nt.N)
	q3Ntilde := new(big.Int).Mul(e.qPow(3), nt.N)
	out := &rangeproof.ProofWithCheck{U: p.U}
	for _, f := range []struct {
		name string
		b    Hex
		size int
		dst  **big.Int
	}{
		{"z", p.Z, ntb, &out.Z},
		{"z'", p.ZPrm, ntb, &out.ZPrm},
		{"t", p.T, ntb, &out.T},
		{"v", p.V, 2 * nb, &out.V},
		{"w", p.W, ntb, &out.W},
		{"s", p.S, nb, &out.S},
		{"s1", p.S1, responseWidth(e.qPow(3)), &out.S1},
		{"s2", p.S2, responseWidth(q3Ntilde), &out.S2},
		{"t1", p.T1, responseWidth(e.qPow(7)), &out.T1},
		{"t2", p.T2, responseWidth(q3Ntilde), &out.T2},
	} {
		x, err := fixedBig(f.b, f.size, "range proof with check "+f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = x
	}
	return out, nil
}

func (e *ECDSA) encodeSchnorr(p *schnorr.Proof) *SchnorrProof {
	return &SchnorrProof{R: p.R, S: e.scalarHex(p.S)}
}

func (e *ECDSA) decodeSchnorr(p *SchnorrProof) (*schnorr.Proof, error) {
	if p == nil {
		return nil, errors.Wrap(tss.ErrDecode, "schnorr proof: missing")
	}
	s, err := fixedBig(p.S, e.curve.ScalarSize(), "schnorr proof s")
	if err != nil {
		return nil, err
	}
	return &schnorr.Proof{R: p.R, S: s}, nil
}

func (e *ECDSA) encodeLinear(p *schnorr.LinearProof) *LinearProof {
	return &LinearProof{A: p.A, T: e.scalarHex(p.T), U: e.scalarHex(p.U)}
}

func (e *ECDSA) decodeLinear(p *LinearProof) (*schnorr.LinearProof, error) {
	if p == nil {
		return nil, errors.Wrap(tss.ErrDecode, "two-base proof: missing")
	}
	t, err := fixedBig(p.T, e.curve.ScalarSize(), "two-base proof t")
	if err != nil {
		return nil, err
	}
	u, err := fixedBig(p.U, e.curve.ScalarSize(), "two-base proof u")
	if err != nil {
		return nil, err
	}
	return &schnorr.LinearProof{A: p.A, T: t, U: u}, nil
}
