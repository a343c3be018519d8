// Package protocol implements the MPC engine: input sharing, the
// degree-reduction multiplication sub-protocol, the left-leaning product
// tree, and final reconstruction, driven over a bootstrapped
// pkg/transport.Mesh.
package protocol

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/shamir-mpc/pkg/field"
	"github.com/luxfi/shamir-mpc/pkg/mpcerr"
	"github.com/luxfi/shamir-mpc/pkg/party"
	"github.com/luxfi/shamir-mpc/pkg/polynomial"
	"github.com/luxfi/shamir-mpc/pkg/shamir"
	"github.com/luxfi/shamir-mpc/pkg/trace"
	"github.com/luxfi/shamir-mpc/pkg/transport"
)

// Engine holds the per-session state needed to run the product protocol
// once the mesh is ready: the party's own identity, the protocol
// parameters, the Lagrange weights for the fixed degree-reduction subset
// (§9: computed once, reused for every round), and an optional trace
// stream.
type Engine struct {
	mesh   *transport.Mesh
	self   party.ID
	n      int
	t      int
	subset party.IDSlice // first 2t+1 parties by ascending PID
	weights []field.F    // Lagrange weights at x*=0 for subset.Points()
	tracer *trace.Tracer
	state  State
}

// New builds an Engine bound to an already-bootstrapped mesh. It validates
// the honest-majority invariant n >= 2t+1 (§3, §9) and precomputes the
// degree-reduction Lagrange weights.
func New(mesh *transport.Mesh, t int, tracer *trace.Tracer) (*Engine, error) {
	n := mesh.N()
	if n < 2*t+1 {
		return nil, fmt.Errorf("%w: n=%d t=%d", mpcerr.ErrThresholdTooLarge, n, t)
	}

	subset := make(party.IDSlice, 2*t+1)
	for i := range subset {
		subset[i] = party.ID(i)
	}
	weights, err := polynomial.Lagrange(subset.Points(), field.Zero())
	if err != nil {
		return nil, err
	}

	return &Engine{
		mesh:    mesh,
		self:    mesh.Self(),
		n:       n,
		t:       t,
		subset:  subset,
		weights: weights,
		tracer:  tracer,
		state:   StateMeshReady,
	}, nil
}

// State returns the engine's current position in the session state machine.
func (e *Engine) State() State { return e.state }

// Run executes the full session: input sharing, the left-leaning product
// tree over all n inputs, and final reconstruction, returning the product
// x_0 * x_1 * ... * x_{n-1} mod p.
func (e *Engine) Run(ctx context.Context, input field.F) (field.F, error) {
	inputShares, err := e.shareSecret(ctx, input)
	if err != nil {
		return field.F{}, e.abort(StateMeshReady, err)
	}
	e.state = StateInputShared
	e.trace(StateInputShared.String())

	product, err := e.productTree(ctx, inputShares)
	if err != nil {
		return field.F{}, e.abort(StateMultiplying, err)
	}

	e.state = StateReconstructing
	e.trace(StateReconstructing.String())
	result, err := e.reconstruct(ctx, product)
	if err != nil {
		return field.F{}, e.abort(StateReconstructing, err)
	}

	e.state = StateDone
	e.trace(StateDone.String())
	return result, nil
}

// productTree folds shares left-to-right: ((x_0 * x_1) * x_2) * ... This
// canonical order (§4.5) ensures every party drives the same round
// structure without coordination.
func (e *Engine) productTree(ctx context.Context, shares []field.F) (field.F, error) {
	acc := shares[0]
	for round, next := range shares[1:] {
		var err error
		e.state = StateMultiplying
		e.trace(trace.ParsePhaseLabel(StateMultiplying.String(), round+1))
		acc, err = e.multiply(ctx, acc, next)
		if err != nil {
			return field.F{}, err
		}
	}
	return acc, nil
}

// multiply runs the degree-reduction sub-protocol (§4.5) that turns local
// shares [a]_i, [b]_i at threshold t into a fresh threshold-t share of a*b.
func (e *Engine) multiply(ctx context.Context, a, b field.F) (field.F, error) {
	c := a.Mul(b) // share of a*b at threshold 2t
	reshares, err := e.shareSecret(ctx, c)
	if err != nil {
		return field.F{}, err
	}

	sum := field.Zero()
	for i, id := range e.subset {
		sum = sum.Add(e.weights[i].Mul(reshares[int(id)]))
	}
	return sum, nil
}

// shareSecret runs one instance of "every party deals its own secret": the
// caller deals `secret` at threshold t to every party, and in parallel
// receives every other party's dealt share of their own secret. It backs
// both input sharing and the multiplication sub-protocol's re-share step,
// which are the same exchange shape applied to different per-party values
// (§4.5).
func (e *Engine) shareSecret(ctx context.Context, secret field.F) ([]field.F, error) {
	allParties := e.allPartyIDs()
	myShares, err := shamir.Share(secret, e.t, allParties)
	if err != nil {
		return nil, err
	}

	results := make([]field.F, e.n)
	g, _ := errgroup.WithContext(ctx)

	for _, sh := range myShares {
		sh := sh
		if sh.Owner == e.self {
			results[int(e.self)] = sh.Value
			continue
		}
		g.Go(func() error {
			if err := e.mesh.SendFieldTo(sh.Owner, sh.Value); err != nil {
				return err
			}
			e.traceSent(int(sh.Owner), sh.Value)
			return nil
		})
	}

	for _, k := range allParties {
		if k == e.self {
			continue
		}
		k := k
		g.Go(func() error {
			f, err := e.mesh.RecvFieldFrom(k)
			if err != nil {
				return err
			}
			e.traceRecv(int(k), f)
			results[int(k)] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// reconstruct broadcasts the final local share to every other party,
// gathers theirs, and interpolates the secret at x*=0 (§4.5).
func (e *Engine) reconstruct(ctx context.Context, finalShare field.F) (field.F, error) {
	if err := e.mesh.BroadcastField(ctx, finalShare); err != nil {
		return field.F{}, err
	}
	others, err := e.mesh.GatherFields(ctx)
	if err != nil {
		return field.F{}, err
	}

	// With n == 2t+1 the gathered shares are exactly the degree-reduction
	// subset, so the precomputed weights interpolate at x*=0 directly.
	if e.n == len(e.subset) {
		values := make([]field.F, e.n)
		values[int(e.self)] = finalShare
		for i, id := range e.otherPartyIDs() {
			values[int(id)] = others[i]
		}
		sum := field.Zero()
		for i, id := range e.subset {
			sum = sum.Add(e.weights[i].Mul(values[int(id)]))
		}
		return sum, nil
	}

	set := shamir.NewShareSet()
	set.Add(shamir.Share{Owner: e.self, Value: finalShare})
	for i, id := range e.otherPartyIDs() {
		set.Add(shamir.Share{Owner: id, Value: others[i]})
	}
	return shamir.Reconstruct(set, e.t)
}

// allPartyIDs returns every PID in [0, n), ascending.
func (e *Engine) allPartyIDs() party.IDSlice {
	ids := make(party.IDSlice, e.n)
	for i := range ids {
		ids[i] = party.ID(i)
	}
	return ids
}

// otherPartyIDs returns every PID except self, ascending — the same order
// transport.Mesh.GatherFields uses.
func (e *Engine) otherPartyIDs() party.IDSlice {
	ids := make(party.IDSlice, 0, e.n-1)
	for i := 0; i < e.n; i++ {
		if party.ID(i) != e.self {
			ids = append(ids, party.ID(i))
		}
	}
	return ids
}

func (e *Engine) trace(phase string) {
	if e.tracer != nil {
		e.tracer.Phase(phase)
	}
}

func (e *Engine) traceSent(peer int, f field.F) {
	if e.tracer != nil {
		e.tracer.FrameSent(peer, f)
	}
}

func (e *Engine) traceRecv(peer int, f field.F) {
	if e.tracer != nil {
		e.tracer.FrameRecv(peer, f)
	}
}

// abort transitions the session to Aborted and wraps err in a protocol
// Error carrying the state it failed in and, if the error came from a
// specific peer, that peer's PID.
func (e *Engine) abort(s State, err error) error {
	e.state = StateAborted
	e.trace(StateAborted.String())

	var perr *mpcerr.PeerError
	if pe, ok := err.(*mpcerr.PeerError); ok {
		perr = pe
		return &Error{State: s, Peer: perr.Peer, HasPeer: true, Err: perr.Err}
	}
	return &Error{State: s, Err: err}
}
