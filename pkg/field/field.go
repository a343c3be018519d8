// Package field implements arithmetic in Z_p for the Mersenne61 prime
// p = 2^61 - 1.
package field

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/cronokirby/saferith"
	"github.com/luxfi/shamir-mpc/pkg/mpcerr"
)

// P is the Mersenne61 prime 2^61 - 1.
const P uint64 = (1 << 61) - 1

// F is a canonical residue modulo P: every exposed value satisfies
// 0 <= v < P. Arithmetic never produces a non-reduced value.
type F struct {
	v uint64
}

// Zero is the additive identity.
func Zero() F { return F{0} }

// One is the multiplicative identity.
func One() F { return F{1} }

// FromUint64 reduces an arbitrary 64-bit input modulo P.
func FromUint64(x uint64) F {
	return reduceSum(x>>61, x&P)
}

// FromNat reduces an arbitrary-precision natural number modulo P. It is the
// entry point used when converting integers that may exceed 64 bits, such as
// the driver's --input flag and the evaluation-point conversion in
// pkg/party, into the field. saferith.Nat is used only as the wide-integer
// boundary type, the same role it plays in the teacher's
// group.NewScalar().SetNat(...) call sites; the reduction itself is a
// math/big modulus, not a saferith operation.
func FromNat(n *saferith.Nat) F {
	v := n.Big()
	v.Mod(v, new(big.Int).SetUint64(P))
	return F{v.Uint64()}
}

// Uint64 returns the canonical representative.
func (a F) Uint64() uint64 { return a.v }

// Equal reports whether a and b have the same canonical representative.
func (a F) Equal(b F) bool { return a.v == b.v }

// IsZero reports whether a is the additive identity.
func (a F) IsZero() bool { return a.v == 0 }

// String renders the canonical representative in decimal.
func (a F) String() string { return fmt.Sprintf("%d", a.v) }

// reduceSum folds a 128-bit value given as (high bits above 2^61, low 61
// bits) down to a canonical representative, using 2^61 ≡ 1 (mod P).
func reduceSum(high, low uint64) F {
	r := low + high
	if r >= P {
		r -= P
	}
	return F{r}
}

// Add returns a + b mod P.
func (a F) Add(b F) F {
	s := a.v + b.v
	if s >= P {
		s -= P
	}
	return F{s}
}

// Sub returns a - b mod P.
func (a F) Sub(b F) F {
	if a.v >= b.v {
		return F{a.v - b.v}
	}
	return F{P - (b.v - a.v)}
}

// Neg returns -a mod P.
func (a F) Neg() F {
	if a.v == 0 {
		return F{0}
	}
	return F{P - a.v}
}

// Mul returns a * b mod P via a 128-bit widening multiply followed by
// Mersenne reduction.
func (a F) Mul(b F) F {
	hi, lo := bits.Mul64(a.v, b.v)
	// z = hi*2^64 + lo. Split into z_low (bottom 61 bits) and z_high (the
	// remaining bits, which is z >> 61).
	zLow := lo & P
	zHigh := (lo >> 61) | (hi << 3)
	return reduceSum(zHigh, zLow)
}

// Inverse returns a^-1 mod P via Fermat's little theorem (a^(P-2)) using
// square-and-multiply. Fails with mpcerr.ErrZeroInverse when a is zero.
func (a F) Inverse() (F, error) {
	if a.v == 0 {
		return F{}, mpcerr.ErrZeroInverse
	}
	exp := P - 2
	result := One()
	base := a
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		exp >>= 1
	}
	return result, nil
}

// Sample draws a uniformly random field element using rejection sampling
// over 61-bit values.
func Sample() (F, error) {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return F{}, err
		}
		v := binary.LittleEndian.Uint64(buf[:]) & P
		if v != P {
			return F{v}, nil
		}
	}
}

// Encode serializes the canonical representative as 8 little-endian bytes,
// the FieldElement frame payload from §6.
func Encode(a F) [8]byte {
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], a.v)
	return out
}

// Decode parses 8 little-endian bytes back into a field element. The result
// is reduced modulo P for robustness even though well-formed wire data is
// already canonical.
func Decode(b [8]byte) F {
	return FromUint64(binary.LittleEndian.Uint64(b[:]))
}
