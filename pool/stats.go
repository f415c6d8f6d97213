package pool

import "fmt"

// Stats is a point-in-time snapshot of a pool's accounting.
type Stats struct {
	Seeded         bool
	Entropy        float64
	Threshold      float64
	Ceiling        float64
	MaxRequest     int
	Mixes          uint64
	StrongCalls    uint64
	PseudoCalls    uint64
	BytesGenerated uint64
}

// Stats returns a snapshot of the pool's counters. It never exposes key
// material.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Seeded:         p.seeded.Load(),
		Entropy:        p.entropy,
		Threshold:      p.cfg.threshold,
		Ceiling:        p.cfg.ceiling,
		MaxRequest:     p.cfg.maxRequest,
		Mixes:          p.mixes,
		StrongCalls:    p.strongCalls,
		PseudoCalls:    p.pseudoCalls,
		BytesGenerated: p.generated,
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("seeded=%t entropy=%.1f/%.1f ceiling=%.1f mixes=%d strong=%d pseudo=%d generated=%d",
		s.Seeded, s.Entropy, s.Threshold, s.Ceiling, s.Mixes, s.StrongCalls, s.PseudoCalls, s.BytesGenerated)
}
