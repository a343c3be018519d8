// Package transport implements the TLS all-to-all mesh and the typed,
// length-prefixed framing described in §4.4 and §6 of the specification.
package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/luxfi/shamir-mpc/pkg/field"
	"github.com/luxfi/shamir-mpc/pkg/mpcerr"
	"github.com/luxfi/shamir-mpc/pkg/party"
	"github.com/luxfi/shamir-mpc/pkg/shamir"
)

// MaxFrameSize bounds the payload length a receiver will accept, guarding
// against a misbehaving or desynchronized peer claiming an unreasonable
// frame size.
const MaxFrameSize = 1 << 20

// fieldPayloadSize is the wire size of a FieldElement payload (§6): 8 bytes,
// little-endian canonical representative.
const fieldPayloadSize = 8

// shareRecordSize is the wire size of one ShareSet record: a 4-byte
// big-endian PID followed by an 8-byte little-endian F value.
const shareRecordSize = 4 + 8

// WriteHandshake sends the one-shot handshake frame: the local PID as 4
// bytes, big-endian, with no length prefix (§6).
func WriteHandshake(w io.Writer, id party.ID) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(id))
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("%w: handshake: %v", mpcerr.ErrSendFailed, err)
	}
	return nil
}

// ReadHandshake reads the remote's PID from the one-shot handshake frame.
func ReadHandshake(r io.Reader) (party.ID, error) {
	var buf [4]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: handshake: %v", mpcerr.ErrHandshakeFailed, err)
	}
	return party.ID(binary.BigEndian.Uint32(buf[:])), nil
}

// WriteFieldFrame writes a data frame carrying a single field element: a
// 4-byte big-endian length prefix (always 8) followed by the 8-byte
// little-endian payload.
func WriteFieldFrame(w io.Writer, f field.F) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], fieldPayloadSize)
	payload := field.Encode(f)
	if err := writeAll(w, lenBuf[:], payload[:]); err != nil {
		return fmt.Errorf("%w: field frame: %v", mpcerr.ErrSendFailed, err)
	}
	return nil
}

// ReadFieldFrame reads a data frame expected to carry a single field
// element.
func ReadFieldFrame(r io.Reader) (field.F, error) {
	n, err := readLength(r)
	if err != nil {
		return field.F{}, err
	}
	if n != fieldPayloadSize {
		return field.F{}, fmt.Errorf("%w: field frame length %d", mpcerr.ErrUnexpectedFrame, n)
	}
	var payload [8]byte
	if err := readFull(r, payload[:]); err != nil {
		return field.F{}, err
	}
	return field.Decode(payload), nil
}

// WriteShareSetFrame writes a data frame carrying a ShareSet: a 4-byte
// big-endian length prefix, a 4-byte big-endian record count k, then k
// records of (4-byte big-endian PID, 8-byte little-endian F).
func WriteShareSetFrame(w io.Writer, set *shamir.ShareSet) error {
	shares := set.Shares()
	k := len(shares)
	payloadLen := 4 + k*shareRecordSize
	buf := make([]byte, 4+payloadLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(payloadLen))
	binary.BigEndian.PutUint32(buf[4:8], uint32(k))
	off := 8
	for _, sh := range shares {
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(sh.Owner))
		enc := field.Encode(sh.Value)
		copy(buf[off+4:off+12], enc[:])
		off += shareRecordSize
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("%w: shareset frame: %v", mpcerr.ErrSendFailed, err)
	}
	return nil
}

// ReadShareSetFrame reads a data frame expected to carry a ShareSet.
func ReadShareSetFrame(r io.Reader) (*shamir.ShareSet, error) {
	n, err := readLength(r)
	if err != nil {
		return nil, err
	}
	if n < 4 {
		return nil, fmt.Errorf("%w: shareset frame length %d", mpcerr.ErrUnexpectedFrame, n)
	}
	payload := make([]byte, n)
	if err := readFull(r, payload); err != nil {
		return nil, err
	}
	k := binary.BigEndian.Uint32(payload[0:4])
	want := 4 + int(k)*shareRecordSize
	if want != len(payload) {
		return nil, fmt.Errorf("%w: shareset frame declares %d records but carries %d bytes",
			mpcerr.ErrUnexpectedFrame, k, len(payload))
	}
	set := shamir.NewShareSet()
	off := 4
	for i := uint32(0); i < k; i++ {
		pid := party.ID(binary.BigEndian.Uint32(payload[off : off+4]))
		var enc [8]byte
		copy(enc[:], payload[off+4:off+12])
		set.Add(shamir.Share{Owner: pid, Value: field.Decode(enc)})
		off += shareRecordSize
	}
	return set, nil
}

// readLength reads the 4-byte big-endian frame length prefix, enforcing
// MaxFrameSize.
func readLength(r io.Reader) (int, error) {
	var lenBuf [4]byte
	if err := readFull(r, lenBuf[:]); err != nil {
		return 0, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return 0, fmt.Errorf("%w: %d bytes", mpcerr.ErrFrameTooLarge, n)
	}
	return int(n), nil
}

// readFull reads exactly len(buf) bytes, translating io.EOF before any byte
// of buf was read into ChannelClosed and any other failure, including a
// read cut short part-way, into ShortRead. It is used for the length prefix
// and the payload alike, so a payload missing entirely after its prefix
// also reports ChannelClosed.
func readFull(r io.Reader, buf []byte) error {
	n, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}
	if err == io.EOF && n == 0 {
		return mpcerr.ErrChannelClosed
	}
	return fmt.Errorf("%w: %v", mpcerr.ErrShortRead, err)
}

// writeAll writes each buffer in sequence to w.
func writeAll(w io.Writer, bufs ...[]byte) error {
	for _, b := range bufs {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}
