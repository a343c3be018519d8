// Package mpcerr collects the sentinel error kinds named in the protocol's
// error taxonomy so callers across packages can compare with errors.Is
// instead of matching on message text.
package mpcerr

import "errors"

// Field errors.
var ErrZeroInverse = errors.New("field: zero has no multiplicative inverse")

// Polynomial / reconstruction errors.
var (
	ErrDuplicatePoint     = errors.New("polynomial: duplicate evaluation point")
	ErrInsufficientShares = errors.New("shamir: insufficient shares for reconstruction")
)

// Config errors.
var (
	ErrMissingField      = errors.New("config: missing field")
	ErrInvalidIP         = errors.New("config: invalid peer IP")
	ErrInconsistentN     = errors.New("config: peer_ips length disagrees with party count")
	ErrThresholdTooLarge = errors.New("config: 2*t+1 exceeds party count")
)

// Transport errors.
var (
	ErrConnectTimeout = errors.New("transport: connect timeout")
	ErrHandshakeFailed = errors.New("transport: handshake failed")
	ErrShortRead       = errors.New("transport: short read")
	ErrFrameTooLarge   = errors.New("transport: frame exceeds size cap")
	ErrChannelClosed   = errors.New("transport: channel closed")
	ErrSendFailed      = errors.New("transport: send failed")
)

// Protocol errors.
var (
	ErrUnexpectedFrame = errors.New("protocol: unexpected frame")
	ErrPeerAborted     = errors.New("protocol: peer aborted")
)

// PeerError wraps an error kind with the remote party involved, so the
// driver can print "kind: ... (peer N)" per the user-visible failure format.
type PeerError struct {
	Peer int
	Err  error
}

func (e *PeerError) Error() string {
	return e.Err.Error()
}

func (e *PeerError) Unwrap() error {
	return e.Err
}

// WithPeer annotates err with the peer ID that caused or was involved in it.
func WithPeer(err error, peer int) error {
	if err == nil {
		return nil
	}
	return &PeerError{Peer: peer, Err: err}
}
