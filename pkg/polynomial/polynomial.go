// Package polynomial implements the polynomial utilities used for Shamir
// sharing and Lagrange interpolation: random polynomial sampling,
// evaluation by Horner's rule, and Lagrange coefficient computation.
package polynomial

import (
	"github.com/luxfi/shamir-mpc/pkg/field"
	"github.com/luxfi/shamir-mpc/pkg/mpcerr"
)

// Polynomial is a_0 + a_1*X + ... + a_d*X^d, represented by its coefficients
// in ascending order. It is ephemeral: built during sharing, evaluated, and
// discarded.
type Polynomial struct {
	coeffs []field.F
}

// New wraps a coefficient slice as a Polynomial. coeffs[0] is the constant
// term.
func New(coeffs []field.F) Polynomial {
	return Polynomial{coeffs: coeffs}
}

// Random samples a degree-d polynomial with fixed constant term s, used to
// share a secret s at threshold d.
func Random(s field.F, d int) (Polynomial, error) {
	coeffs := make([]field.F, d+1)
	coeffs[0] = s
	for i := 1; i <= d; i++ {
		c, err := field.Sample()
		if err != nil {
			return Polynomial{}, err
		}
		coeffs[i] = c
	}
	return Polynomial{coeffs: coeffs}, nil
}

// Evaluate computes f(x) via Horner's rule.
func (f Polynomial) Evaluate(x field.F) field.F {
	if len(f.coeffs) == 0 {
		return field.Zero()
	}
	out := f.coeffs[len(f.coeffs)-1]
	for i := len(f.coeffs) - 2; i >= 0; i-- {
		out = out.Mul(x).Add(f.coeffs[i])
	}
	return out
}

// Degree returns the polynomial's degree.
func (f Polynomial) Degree() int {
	return len(f.coeffs) - 1
}

// Lagrange computes, for each point in xs, the Lagrange basis coefficient
// L_i(target) = prod_{j != i} (target - x_j) * (x_i - x_j)^-1.
// Fails with mpcerr.ErrDuplicatePoint if xs contains a repeated point.
func Lagrange(xs []field.F, target field.F) ([]field.F, error) {
	for i := range xs {
		for j := i + 1; j < len(xs); j++ {
			if xs[i].Equal(xs[j]) {
				return nil, mpcerr.ErrDuplicatePoint
			}
		}
	}

	coeffs := make([]field.F, len(xs))
	for i, xi := range xs {
		num := field.One()
		den := field.One()
		for j, xj := range xs {
			if i == j {
				continue
			}
			num = num.Mul(target.Sub(xj))
			den = den.Mul(xi.Sub(xj))
		}
		invDen, err := den.Inverse()
		if err != nil {
			// Unreachable given the duplicate-point check above: distinct
			// points guarantee a nonzero denominator.
			return nil, err
		}
		coeffs[i] = num.Mul(invDen)
	}
	return coeffs, nil
}

// Interpolate recovers f(target) from the k pairs (xs[i], ys[i]) via
// Lagrange interpolation. Called with target = field.Zero() to recover a
// shared secret.
func Interpolate(xs, ys []field.F, target field.F) (field.F, error) {
	coeffs, err := Lagrange(xs, target)
	if err != nil {
		return field.F{}, err
	}
	sum := field.Zero()
	for i, c := range coeffs {
		sum = sum.Add(c.Mul(ys[i]))
	}
	return sum, nil
}
