package pool

// Sink accepts entropy. Entropy sources only need this much of a pool.
type Sink interface {
	Seed(b []byte)
	Add(b []byte, estimate float64) error
}

// StrongGenerator produces unpredictable output and refuses to do so while
// unseeded.
type StrongGenerator interface {
	RandomBytes(n int) ([]byte, error)
}

// PseudoGenerator produces output that is unique but not necessarily
// unpredictable. Never accept one where a StrongGenerator is required.
type PseudoGenerator interface {
	PseudoBytes(n int) ([]byte, error)
}

// StatusReporter reports seeding state.
type StatusReporter interface {
	Status() bool
}

var (
	_ Sink            = (*Pool)(nil)
	_ StrongGenerator = (*Pool)(nil)
	_ PseudoGenerator = (*Pool)(nil)
	_ StatusReporter  = (*Pool)(nil)
)
