package source

import (
	"context"
	"fmt"
	"net"
	"time"

	"pkt.systems/entropool/internal/egdwire"
	"pkt.systems/entropool/pool"
)

// DefaultEGDBytes is how much EGD requests when Bytes is zero.
const DefaultEGDBytes = egdwire.MaxRequest

// EGD reads from an entropy gathering daemon listening on a unix socket and
// credits every byte. Requests above 255 bytes are split. With NonBlocking set
// the daemon answers with whatever it holds, possibly less than Bytes, and
// only what it returned is credited.
type EGD struct {
	Path        string
	Bytes       int
	NonBlocking bool
	// Dial overrides how the socket is opened.
	Dial func(ctx context.Context, path string) (net.Conn, error)
}

// Name implements Source.
func (e EGD) Name() string { return "egd:" + e.Path }

// Fill implements Source.
func (e EGD) Fill(ctx context.Context, sink pool.Sink) error {
	n := e.Bytes
	if n <= 0 {
		n = DefaultEGDBytes
	}
	conn, err := e.open(ctx)
	if err != nil {
		return unavailable(e.Name(), err)
	}
	defer conn.Close()

	buf := make([]byte, 0, n)
	defer func() { clear(buf) }()
	read := egdwire.ReadBlock
	if e.NonBlocking {
		read = egdwire.ReadNonBlock
	}
	for len(buf) < n {
		want := min(n-len(buf), egdwire.MaxRequest)
		chunk, err := read(conn, want)
		if err != nil {
			return unavailable(e.Name(), ctxErr(ctx, err))
		}
		buf = append(buf, chunk...)
		clear(chunk)
		if len(chunk) < want {
			break
		}
	}
	if len(buf) == 0 {
		return unavailable(e.Name(), fmt.Errorf("daemon has no entropy"))
	}
	sink.Seed(buf)
	return nil
}

// EntropyLevel asks the daemon how many bits of entropy it currently holds.
func (e EGD) EntropyLevel(ctx context.Context) (uint32, error) {
	conn, err := e.open(ctx)
	if err != nil {
		return 0, unavailable(e.Name(), err)
	}
	defer conn.Close()
	bits, err := egdwire.EntropyLevel(conn)
	if err != nil {
		return 0, unavailable(e.Name(), ctxErr(ctx, err))
	}
	return bits, nil
}

// open dials the daemon. Cancelling ctx expires the connection's deadline so
// blocked reads return.
func (e EGD) open(ctx context.Context) (net.Conn, error) {
	if e.Path == "" {
		return nil, fmt.Errorf("no socket path")
	}
	dial := e.Dial
	if dial == nil {
		dial = func(ctx context.Context, path string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		}
	}
	conn, err := dial(ctx, e.Path)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	return &stoppingConn{Conn: conn, stop: stop}, nil
}

// stoppingConn releases the context watcher when closed.
type stoppingConn struct {
	net.Conn
	stop func() bool
}

func (c *stoppingConn) Close() error {
	c.stop()
	return c.Conn.Close()
}

func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w (%w)", cerr, err)
	}
	return err
}
