// Package pool implements an embeddable CSPRNG with explicit entropy
// accounting.
//
// A Pool starts unseeded. Callers push entropy with Seed (full credit) or Add
// (partial credit) and the pool becomes seeded once the credited estimate
// reaches the threshold. Only then does RandomBytes produce output. The weak
// PseudoBytes path never requires seeding and never promises unpredictability.
//
//	p := pool.New()
//	osBytes := make([]byte, 32)
//	if _, err := rand.Read(osBytes); err != nil {
//		panic(err)
//	}
//	p.Seed(osBytes)
//	key, err := p.RandomBytes(32)
//
// Internally the state is a 32-byte key. Input is folded in with keyed
// BLAKE2b; output is ChaCha20 keystream under the key, whose first 32 bytes
// replace the key before any output is returned (fast key erasure), so a later
// state compromise does not reveal earlier output.
package pool

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-i2p/logger"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
)

// KeySize is the size of the generator key in bytes.
const KeySize = 32

const (
	domainMix         = "entropool/mix/v1"
	domainPersonalize = "entropool/personalize/v1"
	domainSession     = "entropool/session/v1"
	domainPseudo      = "entropool/pseudo/v1"
)

var (
	log            = logger.GetGoI2PLogger()
	sessionCounter atomic.Uint64
	zeroNonce      [chacha20.NonceSize]byte
)

// Pool is a seedable CSPRNG. The zero value is not usable; construct pools
// with New. A Pool is safe for concurrent use.
type Pool struct {
	cfg    config
	seeded atomic.Bool

	mu          sync.Mutex
	key         [KeySize]byte
	pseudoKey   [KeySize]byte
	entropy     float64
	mixes       uint64
	strongCalls uint64
	pseudoCalls uint64
	generated   uint64
}

// New returns an unseeded pool.
func New(opts ...Option) *Pool {
	p := &Pool{cfg: applyOptions(opts)}
	if len(p.cfg.personalization) > 0 {
		p.mixLocked(domainPersonalize, p.cfg.personalization)
	}
	p.pseudoKey = sessionSalt()
	return p
}

// sessionSalt makes pseudo output unique per pool within a process without
// touching the credited estimate.
func sessionSalt() [KeySize]byte {
	var buf [len(domainSession) + 24]byte
	n := copy(buf[:], domainSession)
	binary.BigEndian.PutUint64(buf[n:], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(buf[n+8:], uint64(os.Getpid()))
	binary.BigEndian.PutUint64(buf[n+16:], sessionCounter.Add(1))
	return blake2b.Sum256(buf[:])
}

// Seed mixes b into the pool and credits len(b) bytes of entropy. Empty input
// is a no-op.
func (p *Pool) Seed(b []byte) {
	if len(b) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mixLocked(domainMix, b)
	p.creditLocked(float64(len(b)))
}

// Add mixes b into the pool and credits estimate bytes of entropy, never more
// than len(b). Negative, NaN and infinite estimates are rejected with
// ErrInvalidArgument before anything is mixed.
func (p *Pool) Add(b []byte, estimate float64) error {
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) || estimate < 0 {
		return fmt.Errorf("%w: entropy estimate %v", ErrInvalidArgument, estimate)
	}
	if len(b) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mixLocked(domainMix, b)
	p.creditLocked(math.Min(estimate, float64(len(b))))
	return nil
}

// RandomBytes returns n cryptographically strong bytes. It fails with
// ErrNotSeeded until the pool is seeded and with ErrInvalidArgument if n is
// negative or above the configured maximum.
func (p *Pool) RandomBytes(n int) ([]byte, error) {
	if err := p.checkLength(n); err != nil {
		return nil, err
	}
	if !p.seeded.Load() {
		return nil, p.notSeeded()
	}
	out := make([]byte, n)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generateLocked(&p.key, out)
	p.strongCalls++
	p.generated += uint64(n)
	return out, nil
}

// PseudoBytes returns n bytes that are unique within the session but NOT
// guaranteed unpredictable: it succeeds on an unseeded pool. Never use it for
// keys, nonces that must be secret, or tokens.
func (p *Pool) PseudoBytes(n int) ([]byte, error) {
	if err := p.checkLength(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pseudoLocked(out)
	p.pseudoCalls++
	p.generated += uint64(n)
	return out, nil
}

// Read fills b with strong random bytes, splitting large buffers into chunks
// no bigger than the configured maximum request. It implements io.Reader and
// returns ErrNotSeeded while the pool is unseeded.
func (p *Pool) Read(b []byte) (int, error) {
	if !p.seeded.Load() {
		return 0, p.notSeeded()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for off := 0; off < len(b); off += p.cfg.maxRequest {
		chunk := b[off:min(off+p.cfg.maxRequest, len(b))]
		clear(chunk)
		p.generateLocked(&p.key, chunk)
	}
	p.strongCalls++
	p.generated += uint64(len(b))
	return len(b), nil
}

// PseudoReader returns an io.Reader over the weak PseudoBytes path.
func (p *Pool) PseudoReader() io.Reader {
	return pseudoReader{p: p}
}

type pseudoReader struct {
	p *Pool
}

func (r pseudoReader) Read(b []byte) (int, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	for off := 0; off < len(b); off += r.p.cfg.maxRequest {
		chunk := b[off:min(off+r.p.cfg.maxRequest, len(b))]
		clear(chunk)
		r.p.pseudoLocked(chunk)
	}
	r.p.pseudoCalls++
	r.p.generated += uint64(len(b))
	return len(b), nil
}

// Status reports whether the pool has been seeded. It never blocks.
func (p *Pool) Status() bool {
	return p.seeded.Load()
}

// Entropy returns the credited entropy estimate in bytes.
func (p *Pool) Entropy() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entropy
}

func (p *Pool) checkLength(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative length %d", ErrInvalidArgument, n)
	}
	if n > p.cfg.maxRequest {
		return fmt.Errorf("%w: length %d exceeds maximum %d", ErrInvalidArgument, n, p.cfg.maxRequest)
	}
	return nil
}

func (p *Pool) notSeeded() error {
	have := p.Entropy()
	return fmt.Errorf("%w: have %.1f of %.1f bytes", ErrNotSeeded, have, p.cfg.threshold)
}

// mixLocked folds b into the key. Every call advances the key, so feeding the
// same bytes split across calls yields a different state than feeding them at
// once.
func (p *Pool) mixLocked(domain string, b []byte) {
	h, err := blake2b.New256(p.key[:])
	if err != nil {
		panic(err)
	}
	var hdr [16]byte
	binary.BigEndian.PutUint64(hdr[:8], p.mixes)
	binary.BigEndian.PutUint64(hdr[8:], uint64(len(b)))
	h.Write([]byte(domain))
	h.Write(hdr[:])
	h.Write(b)
	h.Sum(p.key[:0])
	p.mixes++
}

func (p *Pool) creditLocked(estimate float64) {
	p.entropy = math.Min(p.entropy+estimate, p.cfg.ceiling)
	if !p.seeded.Load() && p.entropy >= p.cfg.threshold {
		p.seeded.Store(true)
		log.Debugf("entropool: pool seeded with %.1f bytes of entropy", p.entropy)
	}
}

// generateLocked fills out (which must be zeroed) with keystream and replaces
// *key with keystream taken before out.
func (p *Pool) generateLocked(key *[KeySize]byte, out []byte) {
	c, err := chacha20.NewUnauthenticatedCipher(key[:], zeroNonce[:])
	if err != nil {
		panic(err)
	}
	var next [KeySize]byte
	c.XORKeyStream(next[:], next[:])
	c.XORKeyStream(out, out)
	*key = next
	clear(next[:])
}

func (p *Pool) pseudoLocked(out []byte) {
	h, err := blake2b.New256(p.pseudoKey[:])
	if err != nil {
		panic(err)
	}
	h.Write([]byte(domainPseudo))
	h.Write(p.key[:])
	var k [KeySize]byte
	h.Sum(k[:0])
	p.generateLocked(&k, out)
	p.pseudoKey = k
	clear(k[:])
}
