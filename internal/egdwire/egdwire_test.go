package egdwire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// loopback records what the client writes and replays a canned reply.
type loopback struct {
	sent  bytes.Buffer
	reply *bytes.Reader
}

func (l *loopback) Write(p []byte) (int, error) { return l.sent.Write(p) }
func (l *loopback) Read(p []byte) (int, error)  { return l.reply.Read(p) }

func newLoopback(reply []byte) *loopback {
	return &loopback{reply: bytes.NewReader(reply)}
}

func TestEncodeReadBounds(t *testing.T) {
	req, err := EncodeRead(CmdReadBlock, 255)
	if err != nil {
		t.Fatalf("EncodeRead: %v", err)
	}
	if !bytes.Equal(req, []byte{0x02, 0xff}) {
		t.Fatalf("unexpected encoding %x", req)
	}
	if _, err := EncodeRead(CmdReadBlock, 256); !errors.Is(err, ErrRequestTooLarge) {
		t.Fatalf("expected ErrRequestTooLarge, got %v", err)
	}
	if _, err := EncodeRead(CmdWrite, 1); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestReadBlock(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 16)
	lb := newLoopback(payload)
	got, err := ReadBlock(lb, 16)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
	if !bytes.Equal(lb.sent.Bytes(), []byte{CmdReadBlock, 16}) {
		t.Fatalf("unexpected request %x", lb.sent.Bytes())
	}
}

func TestReadBlockShortReply(t *testing.T) {
	lb := newLoopback([]byte{1, 2, 3})
	if _, err := ReadBlock(lb, 8); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestReadNonBlock(t *testing.T) {
	lb := newLoopback([]byte{3, 7, 8, 9})
	got, err := ReadNonBlock(lb, 10)
	if err != nil {
		t.Fatalf("ReadNonBlock: %v", err)
	}
	if !bytes.Equal(got, []byte{7, 8, 9}) {
		t.Fatalf("unexpected payload %x", got)
	}
}

func TestReadNonBlockRejectsOverlongReply(t *testing.T) {
	lb := newLoopback([]byte{9, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	if _, err := ReadNonBlock(lb, 4); err == nil {
		t.Fatalf("expected error when daemon over-delivers")
	}
}

func TestEntropyLevel(t *testing.T) {
	lb := newLoopback(EncodeLevel(4096))
	bits, err := EntropyLevel(lb)
	if err != nil {
		t.Fatalf("EntropyLevel: %v", err)
	}
	if bits != 4096 {
		t.Fatalf("expected 4096 bits, got %d", bits)
	}
}

func TestReadRequestRoundTrip(t *testing.T) {
	write := append([]byte{CmdWrite, 0, 64, 5}, "noise"...)
	read, _ := EncodeRead(CmdReadNonBlock, 42)
	stream := bytes.NewReader(bytes.Join([][]byte{{CmdEntropyLevel}, read, write, {CmdPID}}, nil))

	want := []Request{
		{Cmd: CmdEntropyLevel},
		{Cmd: CmdReadNonBlock, Count: 42},
		{Cmd: CmdWrite, Bits: 64, Count: 5, Data: []byte("noise")},
		{Cmd: CmdPID},
	}
	for i, w := range want {
		got, err := ReadRequest(stream)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if got.Cmd != w.Cmd || got.Count != w.Count || got.Bits != w.Bits || !bytes.Equal(got.Data, w.Data) {
			t.Fatalf("request %d: got %+v want %+v", i, got, w)
		}
	}
	if _, err := ReadRequest(stream); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReadRequestUnknownCommand(t *testing.T) {
	if _, err := ReadRequest(bytes.NewReader([]byte{0x7f})); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}
