package pool

import (
	"fmt"
	"slices"
)

type config struct {
	threshold       float64
	ceiling         float64
	maxRequest      int
	personalization []byte
}

const (
	// DefaultThreshold is the credited entropy, in bytes, at which a pool
	// becomes seeded (256 bits).
	DefaultThreshold = 32
	// DefaultEntropyCeiling caps the accumulated estimate so that no single
	// claim buys unbounded trust.
	DefaultEntropyCeiling = 4096
	// DefaultMaxRequest is the largest number of bytes a single RandomBytes or
	// PseudoBytes call may return.
	DefaultMaxRequest = 1 << 20
)

// Option configures a Pool.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{
		threshold:  DefaultThreshold,
		ceiling:    DefaultEntropyCeiling,
		maxRequest: DefaultMaxRequest,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ceiling < cfg.threshold {
		panic(fmt.Sprintf("entropool/pool: entropy ceiling %.1f below threshold %.1f", cfg.ceiling, cfg.threshold))
	}
	return cfg
}

// WithThreshold sets how many bytes of credited entropy are required before
// RandomBytes will produce output.
func WithThreshold(bytes float64) Option {
	return func(cfg *config) {
		if bytes <= 0 {
			panic("entropool/pool: threshold must be > 0")
		}
		cfg.threshold = bytes
	}
}

// WithEntropyCeiling bounds the accumulated entropy estimate. The ceiling must
// not be lower than the threshold.
func WithEntropyCeiling(bytes float64) Option {
	return func(cfg *config) {
		if bytes <= 0 {
			panic("entropool/pool: entropy ceiling must be > 0")
		}
		cfg.ceiling = bytes
	}
}

// WithMaxRequest sets the per-call output ceiling.
func WithMaxRequest(n int) Option {
	return func(cfg *config) {
		if n <= 0 {
			panic("entropool/pool: max request must be > 0")
		}
		cfg.maxRequest = n
	}
}

// WithPersonalization mixes b into the initial state without crediting any
// entropy. Use it to separate pools that may later receive identical seeds.
func WithPersonalization(b []byte) Option {
	return func(cfg *config) {
		cfg.personalization = slices.Clone(b)
	}
}
