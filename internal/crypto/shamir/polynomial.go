package shamir

import (
	"math/big"

	"github.com/smallyu/go-tss/internal/crypto/curves"
)

// Polynomial represents f(x) = a_0 + a_1*x + ... + a_d*x^d
// over the scalar field of the curve.
type Polynomial struct {
	Coefficients []*big.Int
	Curve        curves.Curve
}

// NewPolynomial generates a random polynomial of given degree with constant
// term secret. If secret is nil, a random constant term is generated.
// The higher coefficients are never zero.
func NewPolynomial(curve curves.Curve, degree int, secret *big.Int) (*Polynomial, error) {
	coeffs := make([]*big.Int, degree+1)
	var err error

	if secret == nil {
		coeffs[0], err = curve.ScalarRandom()
		if err != nil {
			return nil, err
		}
	} else {
		coeffs[0] = curve.ScalarReduce(secret)
	}

	for i := 1; i <= degree; i++ {
		coeffs[i], err = curve.ScalarRandom()
		if err != nil {
			return nil, err
		}
	}

	return &Polynomial{
		Coefficients: coeffs,
		Curve:        curve,
	}, nil
}

// Evaluate calculates f(x) mod q using Horner's method.
func (p *Polynomial) Evaluate(x *big.Int) *big.Int {
	q := p.Curve.Order()
	degree := len(p.Coefficients) - 1
	result := new(big.Int).Set(p.Coefficients[degree])

	for i := degree - 1; i >= 0; i-- {
		result.Mul(result, x)
		result.Add(result, p.Coefficients[i])
		result.Mod(result, q)
	}

	return result
}

// Commitments returns a_k*G for every coefficient except the constant term.
func (p *Polynomial) Commitments() ([][]byte, error) {
	v := make([][]byte, 0, len(p.Coefficients)-1)
	for _, a := range p.Coefficients[1:] {
		A, err := p.Curve.BasePointMult(a)
		if err != nil {
			return nil, err
		}
		v = append(v, A)
	}
	return v, nil
}
