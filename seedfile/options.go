package seedfile

import (
	"fmt"
	"slices"

	"pkt.systems/entropool/cipher"
)

const (
	// DefaultBytes is how much strong output Write stores, matching the size
	// OpenSSL-style seed files have always used.
	DefaultBytes = 1024
	// DefaultPBKDF2Iterations is the PBKDF2-SHA256 work factor for sealed files.
	DefaultPBKDF2Iterations = 600_000

	saltBytes = 32
)

type config struct {
	format     Format
	bytes      int
	passphrase []byte
	suite      cipher.Suite
	iterations int
}

// Option configures Write and Load.
type Option func(*config)

func defaultConfig() config {
	suite, err := cipher.ByName(cipher.Default)
	if err != nil {
		panic(err)
	}
	return config{
		format:     FormatAuto,
		bytes:      DefaultBytes,
		suite:      suite,
		iterations: DefaultPBKDF2Iterations,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithFormat forces a file format instead of guessing from the path or the
// file contents.
func WithFormat(f Format) Option {
	if f < FormatAuto || f > FormatProtobuf {
		panic(fmt.Sprintf("entropool/seedfile: unknown format %d", f))
	}
	return func(c *config) { c.format = f }
}

// WithBytes sets how much strong output Write stores.
func WithBytes(n int) Option {
	if n <= 0 {
		panic("entropool/seedfile: seed size must be positive")
	}
	return func(c *config) { c.bytes = n }
}

// WithPassphrase seals written files, and opens sealed files on Load. The
// slice is copied.
func WithPassphrase(p []byte) Option {
	if len(p) == 0 {
		panic("entropool/seedfile: empty passphrase")
	}
	p = slices.Clone(p)
	return func(c *config) { c.passphrase = p }
}

// WithCipher selects the AEAD suite Write seals with. Load always uses the
// suite recorded in the file.
func WithCipher(name string) Option {
	suite, err := cipher.ByName(name)
	if err != nil {
		panic(err)
	}
	return func(c *config) { c.suite = suite }
}

// WithPBKDF2Iterations sets the passphrase work factor for Write.
func WithPBKDF2Iterations(n int) Option {
	if n < 1 {
		panic("entropool/seedfile: PBKDF2 iterations must be positive")
	}
	return func(c *config) { c.iterations = n }
}
