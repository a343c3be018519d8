// Package shamir implements Shamir secret sharing over pkg/field: sharing a
// secret across n parties at threshold t, and reconstructing it from a
// ShareSet of size >= t+1.
package shamir

import (
	"github.com/luxfi/shamir-mpc/pkg/field"
	"github.com/luxfi/shamir-mpc/pkg/mpcerr"
	"github.com/luxfi/shamir-mpc/pkg/party"
	"github.com/luxfi/shamir-mpc/pkg/polynomial"
)

// Share is a single (owner, value) pair. On its own it conveys no
// information about the shared secret if the sharing's degree is at least
// the corruption threshold t.
type Share struct {
	Owner party.ID
	Value field.F
}

// ShareSet is an insertion-ordered collection of shares indexed by PID, with
// at most one share per PID.
type ShareSet struct {
	order []party.ID
	byID  map[party.ID]field.F
}

// NewShareSet returns an empty ShareSet.
func NewShareSet() *ShareSet {
	return &ShareSet{byID: make(map[party.ID]field.F)}
}

// Add inserts a share, overwriting any previous value for the same owner
// without changing the owner's position in insertion order.
func (s *ShareSet) Add(sh Share) {
	if _, exists := s.byID[sh.Owner]; !exists {
		s.order = append(s.order, sh.Owner)
	}
	s.byID[sh.Owner] = sh.Value
}

// Len returns the number of distinct owners in the set.
func (s *ShareSet) Len() int {
	return len(s.order)
}

// Shares returns the set's contents as a slice, in insertion order.
func (s *ShareSet) Shares() []Share {
	out := make([]Share, len(s.order))
	for i, id := range s.order {
		out[i] = Share{Owner: id, Value: s.byID[id]}
	}
	return out
}

// Share produces the n shares of a degree-t sharing of secret, one per
// party in parties, as f(parties[i].Point()) for a random degree-t
// polynomial f with f(0) = secret.
func Share(secret field.F, t int, parties party.IDSlice) ([]Share, error) {
	f, err := polynomial.Random(secret, t)
	if err != nil {
		return nil, err
	}
	shares := make([]Share, len(parties))
	for i, id := range parties {
		shares[i] = Share{Owner: id, Value: f.Evaluate(id.Point())}
	}
	return shares, nil
}

// Reconstruct recovers the shared secret from a ShareSet of size >= t+1 via
// Lagrange interpolation at x* = 0. Fails with mpcerr.ErrInsufficientShares
// if the set is too small, or mpcerr.ErrDuplicatePoint if two shares
// resolve to the same evaluation point (which, given distinct PIDs, cannot
// happen, but is propagated from pkg/polynomial for completeness).
func Reconstruct(set *ShareSet, t int) (field.F, error) {
	if set.Len() < t+1 {
		return field.F{}, mpcerr.ErrInsufficientShares
	}
	shares := set.Shares()
	xs := make([]field.F, len(shares))
	ys := make([]field.F, len(shares))
	for i, sh := range shares {
		xs[i] = sh.Owner.Point()
		ys[i] = sh.Value
	}
	return polynomial.Interpolate(xs, ys, field.Zero())
}
