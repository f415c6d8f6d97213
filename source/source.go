// Package source collects entropy from outside the process and pushes it into
// a pool. Each Source decides how much of what it delivers to credit.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-i2p/logger"

	"pkt.systems/entropool/estimate"
	"pkt.systems/entropool/pool"
)

var log = logger.GetGoI2PLogger()

// Source delivers entropy to a sink.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Fill reads from the source and adds the bytes to sink. Failures wrap
	// pool.ErrSourceUnavailable.
	Fill(ctx context.Context, sink pool.Sink) error
}

// Gather fills sink from every source in order. A failing source is logged
// and skipped; the joined error is returned only when every source failed.
func Gather(ctx context.Context, sink pool.Sink, sources ...Source) error {
	var errs []error
	for _, s := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Fill(ctx, sink); err != nil {
			log.Warnf("entropool: source %s failed: %v", s.Name(), err)
			errs = append(errs, err)
			continue
		}
		log.Debugf("entropool: source %s filled", s.Name())
	}
	if len(sources) > 0 && len(errs) == len(sources) {
		return errors.Join(errs...)
	}
	return nil
}

func unavailable(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", pool.ErrSourceUnavailable, name, err)
}

// add credits data at perByte and hands it to sink. A negative fraction asks
// the compressibility estimator; NaN and infinite fractions are rejected.
func add(name string, sink pool.Sink, data []byte, perByte float64) error {
	if math.IsNaN(perByte) || math.IsInf(perByte, 0) {
		return unavailable(name, fmt.Errorf("invalid credit %v", perByte))
	}
	est := min(perByte, 1) * float64(len(data))
	if perByte < 0 {
		est = float64(estimate.Conservative(data))
	}
	if err := sink.Add(data, est); err != nil {
		return unavailable(name, err)
	}
	return nil
}
