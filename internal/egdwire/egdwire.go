// Package egdwire encodes and decodes the entropy gathering daemon protocol
// spoken over a unix socket by egd, prngd and compatible daemons.
package egdwire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Command bytes.
const (
	CmdEntropyLevel = 0x00
	CmdReadNonBlock = 0x01
	CmdReadBlock    = 0x02
	CmdWrite        = 0x03
	CmdPID          = 0x04
)

// MaxRequest is the largest byte count a single read command can ask for.
const MaxRequest = 255

var (
	// ErrRequestTooLarge indicates a read above MaxRequest bytes.
	ErrRequestTooLarge = errors.New("entropool/egdwire: request exceeds 255 bytes")
	// ErrUnknownCommand indicates a command byte outside the protocol.
	ErrUnknownCommand = errors.New("entropool/egdwire: unknown command")
)

// Request is one decoded client command.
type Request struct {
	Cmd   uint8
	Count uint8
	Bits  uint16
	Data  []byte
}

// EncodeRead returns a read command for n bytes. cmd must be CmdReadBlock or
// CmdReadNonBlock.
func EncodeRead(cmd uint8, n int) ([]byte, error) {
	if cmd != CmdReadBlock && cmd != CmdReadNonBlock {
		return nil, fmt.Errorf("%w: 0x%02x is not a read", ErrUnknownCommand, cmd)
	}
	if n < 0 || n > MaxRequest {
		return nil, fmt.Errorf("%w: %d", ErrRequestTooLarge, n)
	}
	return []byte{cmd, byte(n)}, nil
}

// ReadBlock asks the daemon for exactly n bytes and waits for all of them.
func ReadBlock(rw io.ReadWriter, n int) ([]byte, error) {
	req, err := EncodeRead(CmdReadBlock, n)
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(req); err != nil {
		return nil, fmt.Errorf("egd: send read: %w", err)
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(rw, out); err != nil {
		return nil, fmt.Errorf("egd: read %d bytes: %w", n, err)
	}
	return out, nil
}

// ReadNonBlock asks for up to n bytes; the daemon answers with whatever it
// has, possibly nothing.
func ReadNonBlock(rw io.ReadWriter, n int) ([]byte, error) {
	req, err := EncodeRead(CmdReadNonBlock, n)
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(req); err != nil {
		return nil, fmt.Errorf("egd: send read: %w", err)
	}
	var count [1]byte
	if _, err := io.ReadFull(rw, count[:]); err != nil {
		return nil, fmt.Errorf("egd: read count: %w", err)
	}
	if int(count[0]) > n {
		return nil, fmt.Errorf("egd: daemon returned %d bytes for a %d byte request", count[0], n)
	}
	out := make([]byte, count[0])
	if _, err := io.ReadFull(rw, out); err != nil {
		return nil, fmt.Errorf("egd: read %d bytes: %w", count[0], err)
	}
	return out, nil
}

// EntropyLevel asks the daemon how many bits of entropy it holds.
func EntropyLevel(rw io.ReadWriter) (uint32, error) {
	if _, err := rw.Write([]byte{CmdEntropyLevel}); err != nil {
		return 0, fmt.Errorf("egd: send level: %w", err)
	}
	var buf [4]byte
	if _, err := io.ReadFull(rw, buf[:]); err != nil {
		return 0, fmt.Errorf("egd: read level: %w", err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadRequest decodes one command from r. Daemon implementations use it; the
// client helpers above are its inverse.
func ReadRequest(r io.Reader) (Request, error) {
	var cmd [1]byte
	if _, err := io.ReadFull(r, cmd[:]); err != nil {
		return Request{}, err
	}
	req := Request{Cmd: cmd[0]}
	switch req.Cmd {
	case CmdEntropyLevel, CmdPID:
		return req, nil
	case CmdReadBlock, CmdReadNonBlock:
		var n [1]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return Request{}, fmt.Errorf("egd: read count: %w", err)
		}
		req.Count = n[0]
		return req, nil
	case CmdWrite:
		var hdr [3]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return Request{}, fmt.Errorf("egd: read write header: %w", err)
		}
		req.Bits = binary.BigEndian.Uint16(hdr[:2])
		req.Count = hdr[2]
		req.Data = make([]byte, req.Count)
		if _, err := io.ReadFull(r, req.Data); err != nil {
			return Request{}, fmt.Errorf("egd: read write payload: %w", err)
		}
		return req, nil
	default:
		return Request{}, fmt.Errorf("%w: 0x%02x", ErrUnknownCommand, req.Cmd)
	}
}

// EncodeLevel serialises a daemon's reply to CmdEntropyLevel.
func EncodeLevel(bits uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], bits)
	return buf[:]
}
