package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/shamir-mpc/pkg/field"
	"github.com/luxfi/shamir-mpc/pkg/mpcerr"
	"github.com/luxfi/shamir-mpc/pkg/party"
	"github.com/luxfi/shamir-mpc/pkg/shamir"
)

// Params configures mesh bootstrap. Certificate and key material is loaded
// by the caller (the driver) into TLSConfig; pkg/transport never reads
// certificate files itself (§1, out of scope).
type Params struct {
	Self      party.ID
	N         int
	BasePort  uint16
	PeerIPs   []string
	Timeout   time.Duration
	SleepTime time.Duration
	TLSConfig *tls.Config
}

// Mesh is the n-by-n logical matrix of point-to-point TLS channels owned by
// party Self. It is built once during Bootstrap and never mutated
// afterwards; the protocol engine only reads from it.
type Mesh struct {
	self     party.ID
	n        int
	inbound  []net.Conn // inbound[j] is the channel on which party j sends to us
	outbound []net.Conn // outbound[j] is the channel on which we send to party j
}

// Bootstrap establishes the full mesh for party p.Self: it listens for the
// p.Self inbound connections from lower-PID parties while dialing every
// higher-PID party, per the "i dials j > i" convention in §4.4/§9. It
// returns once all n-1 peers are paired, or with an error if any peer could
// not be reached within p.Timeout.
func Bootstrap(ctx context.Context, p Params) (*Mesh, error) {
	m := &Mesh{
		self:     p.Self,
		n:        p.N,
		inbound:  make([]net.Conn, p.N),
		outbound: make([]net.Conn, p.N),
	}

	addr := net.JoinHostPort(p.PeerIPs[p.Self], strconv.Itoa(int(p.BasePort)+int(p.Self)))
	ln, err := tls.Listen("tcp", addr, p.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	defer ln.Close()

	g, gctx := errgroup.WithContext(ctx)

	// Listener role: accept exactly self inbound connections, one per
	// party with a lower PID.
	g.Go(func() error {
		for i := 0; i < int(p.Self); i++ {
			conn, err := ln.Accept()
			if err != nil {
				return fmt.Errorf("%w: accept: %v", mpcerr.ErrHandshakeFailed, err)
			}
			tlsConn, ok := conn.(*tls.Conn)
			if !ok {
				return fmt.Errorf("%w: non-TLS connection accepted", mpcerr.ErrHandshakeFailed)
			}
			if err := tlsConn.HandshakeContext(gctx); err != nil {
				return fmt.Errorf("%w: %v", mpcerr.ErrHandshakeFailed, err)
			}
			remote, err := ReadHandshake(tlsConn)
			if err != nil {
				return err
			}
			if int(remote) < 0 || int(remote) >= p.N {
				return fmt.Errorf("%w: handshake PID %d out of range", mpcerr.ErrHandshakeFailed, remote)
			}
			m.inbound[remote] = tlsConn
		}
		return nil
	})

	// Dialer role: connect to every party with a higher PID, concurrently.
	g.Go(func() error {
		dg, dgctx := errgroup.WithContext(gctx)
		for j := int(p.Self) + 1; j < p.N; j++ {
			j := j
			dg.Go(func() error {
				conn, err := dialWithRetry(dgctx, p.PeerIPs[j], int(p.BasePort)+j, p.TLSConfig, p.Timeout, p.SleepTime)
				if err != nil {
					return mpcerr.WithPeer(err, j)
				}
				if err := WriteHandshake(conn, p.Self); err != nil {
					return mpcerr.WithPeer(err, j)
				}
				m.outbound[j] = conn
				return nil
			})
		}
		return dg.Wait()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// Self returns the PID this mesh was bootstrapped for.
func (m *Mesh) Self() party.ID { return m.self }

// N returns the total party count.
func (m *Mesh) N() int { return m.n }

// dialWithRetry attempts a TLS connection to host:port, retrying on
// transient failure every sleepTime until the cumulative elapsed time
// exceeds timeout, at which point it fails with mpcerr.ErrConnectTimeout.
func dialWithRetry(ctx context.Context, host string, port int, tlsConfig *tls.Config, timeout, sleepTime time.Duration) (net.Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	deadline := time.Now().Add(timeout)
	dialer := &net.Dialer{Timeout: timeout}
	for {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s: %v", mpcerr.ErrConnectTimeout, addr, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepTime):
		}
	}
}

// Close abruptly drops every channel in the mesh. Per §9's open question,
// teardown is an abrupt close rather than a graceful close_notify exchange.
func (m *Mesh) Close() {
	for _, c := range m.inbound {
		if c != nil {
			c.Close()
		}
	}
	for _, c := range m.outbound {
		if c != nil {
			c.Close()
		}
	}
}

// otherParties returns every PID in [0, n) except self, in ascending order.
func (m *Mesh) otherParties() []party.ID {
	out := make([]party.ID, 0, m.n-1)
	for i := 0; i < m.n; i++ {
		if party.ID(i) != m.self {
			out = append(out, party.ID(i))
		}
	}
	return out
}

// SendFieldTo enqueues a single field element to party j's outbound
// channel. It returns once the frame has been handed to the OS send
// buffer.
func (m *Mesh) SendFieldTo(j party.ID, f field.F) error {
	if err := WriteFieldFrame(m.outbound[j], f); err != nil {
		return mpcerr.WithPeer(err, int(j))
	}
	return nil
}

// RecvFieldFrom blocks until the next field-element frame arrives from
// party j.
func (m *Mesh) RecvFieldFrom(j party.ID) (field.F, error) {
	f, err := ReadFieldFrame(m.inbound[j])
	if err != nil {
		return field.F{}, mpcerr.WithPeer(err, int(j))
	}
	return f, nil
}

// BroadcastField sends the same field element to every other party, in
// parallel.
func (m *Mesh) BroadcastField(ctx context.Context, f field.F) error {
	g, _ := errgroup.WithContext(ctx)
	for _, j := range m.otherParties() {
		j := j
		g.Go(func() error { return m.SendFieldTo(j, f) })
	}
	return g.Wait()
}

// GatherFields blocks until a field-element frame has arrived from every
// other party, returning them ordered by ascending PID.
func (m *Mesh) GatherFields(ctx context.Context) ([]field.F, error) {
	others := m.otherParties()
	out := make([]field.F, len(others))
	g, _ := errgroup.WithContext(ctx)
	for i, j := range others {
		i, j := i, j
		g.Go(func() error {
			f, err := m.RecvFieldFrom(j)
			if err != nil {
				return err
			}
			out[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SendShareSetTo enqueues a ShareSet frame to party j's outbound channel.
func (m *Mesh) SendShareSetTo(j party.ID, set *shamir.ShareSet) error {
	if err := WriteShareSetFrame(m.outbound[j], set); err != nil {
		return mpcerr.WithPeer(err, int(j))
	}
	return nil
}

// RecvShareSetFrom blocks until the next ShareSet frame arrives from party
// j.
func (m *Mesh) RecvShareSetFrom(j party.ID) (*shamir.ShareSet, error) {
	set, err := ReadShareSetFrame(m.inbound[j])
	if err != nil {
		return nil, mpcerr.WithPeer(err, int(j))
	}
	return set, nil
}
