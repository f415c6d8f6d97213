package source

import (
	"context"
	"fmt"
	"io"

	"pkt.systems/entropool/pool"
)

// DefaultReaderBytes is how much Reader reads when Bytes is zero.
const DefaultReaderBytes = 32

// Reader adapts any io.Reader, such as an open /dev/hwrng, into a Source.
// Credit works as it does for HTTP.
type Reader struct {
	Label  string
	R      io.Reader
	Bytes  int
	Credit float64
}

// Name implements Source.
func (r Reader) Name() string {
	if r.Label == "" {
		return "reader"
	}
	return r.Label
}

// Fill implements Source. It insists on a full read.
func (r Reader) Fill(ctx context.Context, sink pool.Sink) error {
	if r.R == nil {
		return unavailable(r.Name(), fmt.Errorf("nil reader"))
	}
	if err := ctx.Err(); err != nil {
		return unavailable(r.Name(), err)
	}
	n := r.Bytes
	if n <= 0 {
		n = DefaultReaderBytes
	}
	buf := make([]byte, n)
	defer clear(buf)
	if _, err := io.ReadFull(r.R, buf); err != nil {
		return unavailable(r.Name(), err)
	}
	return add(r.Name(), sink, buf, r.Credit)
}
