// Package trace provides an optional, non-persistent observability stream
// for a single party's session: every frame sent or received and every
// protocol phase transition, CBOR-encoded and tagged with a short session
// fingerprint so an operator can correlate trace lines from different
// parties in the same run. Nothing written here is ever read back by the
// protocol itself.
package trace

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/luxfi/shamir-mpc/pkg/field"
)

// Event is one entry in the trace stream.
type Event struct {
	Seq   uint64 `cbor:"seq"`
	Kind  string `cbor:"kind"`
	Peer  int    `cbor:"peer,omitempty"`
	Value uint64 `cbor:"value,omitempty"`
	Phase string `cbor:"phase,omitempty"`
}

const (
	KindFrameSent = "frame_sent"
	KindFrameRecv = "frame_recv"
	KindPhase     = "phase"
)

// Fingerprint derives a short session identifier from the parameters that
// define a run: every honest party computes the same fingerprint without
// exchanging it.
func Fingerprint(n, t int, peerIPs []string, basePort uint16) string {
	h := blake3.New()
	fmt.Fprintf(h, "n=%d,t=%d,base_port=%d;", n, t, basePort)
	for _, ip := range peerIPs {
		h.Write([]byte(ip))
		h.Write([]byte{';'})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// Tracer writes a length-prefixed stream of CBOR-encoded Events to w. It is
// safe for concurrent use: the protocol engine may call it from multiple
// peer goroutines at once.
type Tracer struct {
	mu          sync.Mutex
	w           io.Writer
	fingerprint string
	seq         uint64
}

// New returns a Tracer for the given session. w may be nil, in which case
// New returns a nil *Tracer; every method of a nil *Tracer is a no-op.
func New(w io.Writer, n, t int, peerIPs []string, basePort uint16) *Tracer {
	if w == nil {
		return nil
	}
	return &Tracer{w: w, fingerprint: Fingerprint(n, t, peerIPs, basePort)}
}

// FrameSent records that a field element was sent to peer.
func (tr *Tracer) FrameSent(peer int, f field.F) {
	tr.emit(Event{Kind: KindFrameSent, Peer: peer, Value: f.Uint64()})
}

// FrameRecv records that a field element was received from peer.
func (tr *Tracer) FrameRecv(peer int, f field.F) {
	tr.emit(Event{Kind: KindFrameRecv, Peer: peer, Value: f.Uint64()})
}

// Phase records a protocol state-machine transition.
func (tr *Tracer) Phase(phase string) {
	tr.emit(Event{Kind: KindPhase, Phase: phase})
}

func (tr *Tracer) emit(ev Event) {
	if tr == nil {
		return
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.seq++
	ev.Seq = tr.seq

	body, err := cbor.Marshal(ev)
	if err != nil {
		// Encoding a well-formed Event cannot fail; if it ever does, the
		// trace stream is advisory and the session must not fail because
		// of it.
		return
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	tr.w.Write([]byte(tr.fingerprint))
	tr.w.Write([]byte{' '})
	tr.w.Write(lenBuf[:])
	tr.w.Write(body)
	tr.w.Write([]byte{'\n'})
}

// Decode reads back one traced Event from r, stripping the fingerprint
// prefix and length-delimited CBOR body written by Tracer.emit. It exists
// for tests exercising the trace wire format; the protocol never calls it.
func Decode(r io.Reader) (fingerprint string, ev Event, err error) {
	var fp [16]byte
	if _, err = io.ReadFull(r, fp[:]); err != nil {
		return "", Event{}, err
	}
	var sep [1]byte
	if _, err = io.ReadFull(r, sep[:]); err != nil {
		return "", Event{}, err
	}
	var lenBuf [4]byte
	if _, err = io.ReadFull(r, lenBuf[:]); err != nil {
		return "", Event{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err = io.ReadFull(r, body); err != nil {
		return "", Event{}, err
	}
	if err = cbor.Unmarshal(body, &ev); err != nil {
		return "", Event{}, err
	}
	var nl [1]byte
	if _, err = io.ReadFull(r, nl[:]); err != nil {
		return "", Event{}, err
	}
	return string(fp[:]), ev, nil
}

// ParsePhaseLabel renders a protocol round index as a human-readable phase
// label, e.g. "multiplying(3)".
func ParsePhaseLabel(name string, round int) string {
	if round < 0 {
		return name
	}
	return name + "(" + strconv.Itoa(round) + ")"
}
