// Package estimate guesses how much entropy a sample holds from how well it
// compresses. Compressed size is an upper bound on information content, so the
// result is halved before it is credited to a pool.
package estimate

import (
	"compress/gzip"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

type codec struct {
	name     string
	size     func([]byte) (int, error)
	overhead int
}

var (
	gzipPool = sync.Pool{New: func() any {
		w, err := gzip.NewWriterLevel(io.Discard, gzip.BestCompression)
		if err != nil {
			panic(err)
		}
		return w
	}}
	lz4Pool = sync.Pool{New: func() any {
		return lz4.NewWriter(io.Discard)
	}}

	codecs = []*codec{
		{name: "gzip", size: gzipSize},
		{name: "snappy", size: snappySize},
		{name: "lz4", size: lz4Size},
	}
)

func init() {
	for _, c := range codecs {
		n, err := c.size(nil)
		if err != nil {
			panic(err)
		}
		c.overhead = n
	}
}

type countingWriter struct {
	n int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}

func gzipSize(sample []byte) (int, error) {
	var cw countingWriter
	gw := gzipPool.Get().(*gzip.Writer)
	defer gzipPool.Put(gw)
	gw.Reset(&cw)
	if _, err := gw.Write(sample); err != nil {
		return 0, err
	}
	if err := gw.Close(); err != nil {
		return 0, err
	}
	gw.Reset(io.Discard)
	return cw.n, nil
}

func snappySize(sample []byte) (int, error) {
	return len(snappy.Encode(nil, sample)), nil
}

func lz4Size(sample []byte) (int, error) {
	var cw countingWriter
	lw := lz4Pool.Get().(*lz4.Writer)
	defer lz4Pool.Put(lw)
	lw.Reset(&cw)
	if _, err := lw.Write(sample); err != nil {
		return 0, err
	}
	if err := lw.Close(); err != nil {
		return 0, err
	}
	lw.Reset(io.Discard)
	return cw.n, nil
}

// Sizes reports the payload size of sample under each codec, with the codec's
// fixed framing overhead removed.
func Sizes(sample []byte) (map[string]int, error) {
	out := make(map[string]int, len(codecs))
	for _, c := range codecs {
		n, err := c.size(sample)
		if err != nil {
			return nil, err
		}
		out[c.name] = max(n-c.overhead, 0)
	}
	return out, nil
}

// Conservative returns a lower-bound style entropy estimate for sample, in
// bytes: half of the smallest compressed payload, never more than len(sample).
func Conservative(sample []byte) int {
	if len(sample) == 0 {
		return 0
	}
	sizes, err := Sizes(sample)
	if err != nil {
		return 0
	}
	best := len(sample)
	for _, n := range sizes {
		best = min(best, n)
	}
	return best / 2
}
