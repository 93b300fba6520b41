package engine

import "errors"

// Terminal session conditions. All of them abort the session; the freed
// cash accumulated before the abort is still returned to the caller.
var (
	ErrInsufficientInventory = errors.New("target exceeds available inventory")
	ErrSubmissionFailed      = errors.New("order submission failed")
	ErrDivergentFillFailed   = errors.New("market fallback for divergent fill failed")
	ErrHedgeParityViolation  = errors.New("hedge parity violated")

	// ErrStatsUnavailable only fails one threshold recompute, never the
	// session.
	ErrStatsUnavailable = errors.New("no recent spread statistics")
)
