package source

import (
	"context"
	"crypto/rand"

	"pkt.systems/entropool/pool"
)

// DefaultOSBytes is how much OS randomness OS reads when Bytes is zero.
const DefaultOSBytes = 48

// OS reads from the operating system CSPRNG and credits every byte.
type OS struct {
	Bytes int
}

// Name implements Source.
func (OS) Name() string { return "os" }

// Fill implements Source.
func (o OS) Fill(ctx context.Context, sink pool.Sink) error {
	n := o.Bytes
	if n <= 0 {
		n = DefaultOSBytes
	}
	buf := make([]byte, n)
	defer clear(buf)
	if _, err := rand.Read(buf); err != nil {
		return unavailable(o.Name(), err)
	}
	sink.Seed(buf)
	return nil
}
