package pool

import (
	"bytes"
	"errors"
	"testing"

	"pgregory.net/rapid"
)

func TestPropertyThresholdDependsOnCumulativeCredit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chunks := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 0, 16), 1, 12).Draw(t, "chunks")
		p := New()
		total := 0
		for _, c := range chunks {
			p.Seed(c)
			total += len(c)
			if want := total >= DefaultThreshold; p.Status() != want {
				t.Fatalf("after %d bytes: status %t, want %t", total, p.Status(), want)
			}
		}
		joined := New()
		joined.Seed(bytes.Join(chunks, nil))
		if joined.Status() != p.Status() {
			t.Fatalf("split status %t differs from joined status %t", p.Status(), joined.Status())
		}
	})
}

func TestPropertyRandomBytesLength(t *testing.T) {
	p := New()
	p.Seed(make([]byte, DefaultThreshold))
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8192).Draw(t, "n")
		out, err := p.RandomBytes(n)
		if err != nil {
			t.Fatalf("RandomBytes(%d) error: %v", n, err)
		}
		if len(out) != n {
			t.Fatalf("RandomBytes(%d) returned %d bytes", n, len(out))
		}
	})
}

func TestPropertyConsecutiveOutputsDiffer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.SliceOfN(rapid.Byte(), DefaultThreshold, 128).Draw(t, "seed")
		n := rapid.IntRange(1, 64).Draw(t, "n")
		p := New()
		p.Seed(seed)
		a, err := p.RandomBytes(n)
		if err != nil {
			t.Fatalf("RandomBytes error: %v", err)
		}
		b, err := p.RandomBytes(n)
		if err != nil {
			t.Fatalf("RandomBytes error: %v", err)
		}
		// A single byte repeats by chance 1/256 of the time; require
		// distinctness only where a collision is negligible.
		if n >= 8 && bytes.Equal(a, b) {
			t.Fatalf("consecutive %d-byte outputs are equal", n)
		}
	})
}

func TestPropertyUnseededStrongAlwaysFails(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.SliceOfN(rapid.Byte(), 0, DefaultThreshold-1).Draw(t, "seed")
		n := rapid.IntRange(0, 256).Draw(t, "n")
		p := New()
		p.Seed(seed)
		if _, err := p.RandomBytes(n); !errors.Is(err, ErrNotSeeded) {
			t.Fatalf("expected ErrNotSeeded, got %v", err)
		}
		out, err := p.PseudoBytes(n)
		if err != nil || len(out) != n {
			t.Fatalf("PseudoBytes(%d) = %d bytes, %v", n, len(out), err)
		}
	})
}

func TestPropertyNegativeEstimateLeavesEntropyUnchanged(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "seed")
		data := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "data")
		est := rapid.Float64Range(-1e12, -1e-12).Draw(t, "estimate")
		p := New()
		p.Seed(seed)
		before := p.Entropy()
		if err := p.Add(data, est); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("Add(%v) expected ErrInvalidArgument, got %v", est, err)
		}
		if p.Entropy() != before {
			t.Fatalf("entropy changed from %v to %v", before, p.Entropy())
		}
	})
}
