package protocol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/shamir-mpc/pkg/mpcerr"
	"github.com/luxfi/shamir-mpc/pkg/protocol"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "mesh_ready", protocol.StateMeshReady.String())
	assert.Equal(t, "done", protocol.StateDone.String())
	assert.Contains(t, protocol.State(99).String(), "99")
}

func TestErrorFormatsPeerWhenPresent(t *testing.T) {
	withPeer := &protocol.Error{State: protocol.StateMultiplying, Peer: 2, HasPeer: true, Err: mpcerr.ErrChannelClosed}
	assert.Contains(t, withPeer.Error(), "peer 2")
	assert.True(t, errors.Is(withPeer, mpcerr.ErrChannelClosed))

	withoutPeer := &protocol.Error{State: protocol.StateReconstructing, Err: mpcerr.ErrInsufficientShares}
	assert.NotContains(t, withoutPeer.Error(), "peer")
}

func TestNewRejectsThresholdTooLarge(t *testing.T) {
	meshes := bootstrapMeshes(t, 3, 31200)
	defer closeAll(meshes)

	_, err := protocol.New(meshes[0], 2, nil) // n=3 needs t<=1
	require.Error(t, err)
	assert.ErrorIs(t, err, mpcerr.ErrThresholdTooLarge)
}

func TestNewAcceptsHonestMajority(t *testing.T) {
	meshes := bootstrapMeshes(t, 3, 31210)
	defer closeAll(meshes)

	eng, err := protocol.New(meshes[0], 1, nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.StateMeshReady, eng.State())
}
