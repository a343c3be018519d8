package protocol_test

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/shamir-mpc/pkg/field"
	"github.com/luxfi/shamir-mpc/pkg/party"
	"github.com/luxfi/shamir-mpc/pkg/protocol"
	"github.com/luxfi/shamir-mpc/pkg/transport"
)

// bootstrapMeshes spins up n in-process parties over 127.0.0.1, each on its
// own port starting at basePort, and returns their bootstrapped meshes
// ordered by PID. Callers are responsible for closing every returned mesh.
// Each scenario passes a distinct basePort so back-to-back test cases never
// race for the same socket.
func bootstrapMeshes(t testing.TB, n int, basePort uint16) []*transport.Mesh {
	t.Helper()
	pki := newTestPKI(t, n)
	peerIPs := make([]string, n)
	for i := range peerIPs {
		peerIPs[i] = "127.0.0.1"
	}

	meshes := make([]*transport.Mesh, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			m, err := transport.Bootstrap(ctx, transport.Params{
				Self:      party.ID(i),
				N:         n,
				BasePort:  basePort,
				PeerIPs:   peerIPs,
				Timeout:   5 * time.Second,
				SleepTime: 20 * time.Millisecond,
				TLSConfig: pki.tlsConfig(i),
			})
			if err != nil {
				return err
			}
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return meshes
}

func closeAll(meshes []*transport.Mesh) {
	for _, m := range meshes {
		m.Close()
	}
}

// runAll builds a protocol.Engine over each mesh and runs the full session
// concurrently (one goroutine per party, as in a real deployment), each
// contributing inputs[i]. It returns the reconstructed product as seen by
// every party, ordered by PID.
func runAll(meshes []*transport.Mesh, t int, inputs []uint64) ([]field.F, error) {
	n := len(meshes)
	results := make([]field.F, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			eng, err := protocol.New(meshes[i], t, nil)
			if err != nil {
				return err
			}
			r, err := eng.Run(ctx, field.FromUint64(inputs[i]))
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
