// Package party defines the party identifier convention shared by sharing,
// re-sharing, and reconstruction: a zero-based PID whose evaluation point is
// F(PID + 1), reserving zero for the secret.
package party

import (
	"github.com/cronokirby/saferith"

	"github.com/luxfi/shamir-mpc/pkg/field"
)

// ID is a zero-based party identifier, 0 <= ID < n.
type ID int

// Point returns this party's evaluation point F(id + 1). The conversion
// goes through saferith.Nat, mirroring the teacher's convention of feeding
// plain integers through a wide-integer boundary type before they reach
// field/group arithmetic.
func (id ID) Point() field.F {
	nat := new(saferith.Nat).SetUint64(uint64(id) + 1)
	return field.FromNat(nat)
}

// IDSlice is an ordered list of party IDs, used wherever a deterministic
// iteration order over parties is required (e.g. fixing the degree-reduction
// subset in pkg/protocol).
type IDSlice []ID

// Points returns the evaluation points for every ID in the slice, in order.
func (ids IDSlice) Points() []field.F {
	pts := make([]field.F, len(ids))
	for i, id := range ids {
		pts[i] = id.Point()
	}
	return pts
}

// Contains reports whether id appears in the slice.
func (ids IDSlice) Contains(id ID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
