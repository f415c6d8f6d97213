package pool

import "errors"

var (
	// ErrInvalidArgument indicates a malformed request: a negative length, a
	// length above the configured ceiling, or a negative/NaN/infinite entropy
	// estimate. It is always returned before any state is touched.
	ErrInvalidArgument = errors.New("entropool/pool: invalid argument")

	// ErrNotSeeded indicates strong output was requested before the pool
	// accumulated enough entropy. Add entropy and retry.
	ErrNotSeeded = errors.New("entropool/pool: not seeded")

	// ErrSourceUnavailable is reported by entropy sources (seed files, daemons,
	// network services) that could not deliver bytes. The pool itself never
	// returns it.
	ErrSourceUnavailable = errors.New("entropool/pool: entropy source unavailable")
)
