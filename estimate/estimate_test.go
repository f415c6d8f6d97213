package estimate

import (
	"bytes"
	"crypto/rand"
	"sync"
	"testing"
)

func TestConservativeRandomData(t *testing.T) {
	sample := make([]byte, 4096)
	if _, err := rand.Read(sample); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	got := Conservative(sample)
	if got > len(sample)/2 {
		t.Fatalf("estimate %d exceeds half the sample", got)
	}
	if got < len(sample)*2/5 {
		t.Fatalf("random data estimated too low: %d of %d", got, len(sample))
	}
}

func TestConservativeRepetitiveData(t *testing.T) {
	sample := bytes.Repeat([]byte("abcd"), 1024)
	if got := Conservative(sample); got > 64 {
		t.Fatalf("repetitive data estimated too high: %d", got)
	}
}

func TestConservativeEmpty(t *testing.T) {
	if got := Conservative(nil); got != 0 {
		t.Fatalf("expected 0 for empty sample, got %d", got)
	}
}

func TestSizesReportsEveryCodec(t *testing.T) {
	sizes, err := Sizes([]byte("hello hello hello hello"))
	if err != nil {
		t.Fatalf("Sizes error: %v", err)
	}
	for _, name := range []string{"gzip", "snappy", "lz4"} {
		if _, ok := sizes[name]; !ok {
			t.Fatalf("missing codec %q in %v", name, sizes)
		}
	}
}

func TestConservativeConcurrent(t *testing.T) {
	sample := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 256)
	want := Conservative(sample)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if got := Conservative(sample); got != want {
					t.Errorf("pooled writers gave %d, want %d", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkConservative4K(b *testing.B) {
	sample := make([]byte, 4096)
	rand.Read(sample)
	b.SetBytes(int64(len(sample)))
	for b.Loop() {
		Conservative(sample)
	}
}
