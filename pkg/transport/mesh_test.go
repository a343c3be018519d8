package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/shamir-mpc/pkg/field"
	"github.com/luxfi/shamir-mpc/pkg/party"
	"github.com/luxfi/shamir-mpc/pkg/transport"
)

func bootstrapAll(t *testing.T, n int) []*transport.Mesh {
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
				BasePort:  29000,
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
	require.NoError(t, g.Wait())
	return meshes
}

func TestBootstrapTwoPartiesAndExchangeFIFO(t *testing.T) {
	meshes := bootstrapAll(t, 2)
	defer func() {
		for _, m := range meshes {
			m.Close()
		}
	}()

	a, b := meshes[0], meshes[1]

	sequence := []uint64{1, 2, field.P - 1, 0, 999999}
	var eg errgroup.Group
	eg.Go(func() error {
		for _, v := range sequence {
			if err := a.SendFieldTo(party.ID(1), field.FromUint64(v)); err != nil {
				return err
			}
		}
		return nil
	})
	eg.Go(func() error {
		for _, v := range sequence {
			got, err := b.RecvFieldFrom(party.ID(0))
			if err != nil {
				return err
			}
			if !got.Equal(field.FromUint64(v)) {
				t.Errorf("fifo violation: want %d got %s", v, got)
			}
		}
		return nil
	})
	require.NoError(t, eg.Wait())
}

func TestBootstrapFiveParties(t *testing.T) {
	meshes := bootstrapAll(t, 5)
	defer func() {
		for _, m := range meshes {
			m.Close()
		}
	}()

	ctx := context.Background()
	var eg errgroup.Group
	for i := range meshes {
		i := i
		eg.Go(func() error {
			return meshes[i].BroadcastField(ctx, field.FromUint64(uint64(i)))
		})
	}
	require.NoError(t, eg.Wait())

	for i := range meshes {
		got, err := meshes[i].GatherFields(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 4)
	}
}
