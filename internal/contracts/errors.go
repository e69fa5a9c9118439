package contracts

import (
	"context"
	"errors"
)

// Error taxonomy of the analytics engine.
// ⭐ SSOT: every failure kind reported in a result maps onto one of these
var (
	ErrResolution           = errors.New("resolution failure")
	ErrInvalidSchedule      = errors.New("invalid schedule")
	ErrYieldNotConverged    = errors.New("yield not converged")
	ErrNegativePrice        = errors.New("negative price")
	ErrBenchmarkUnavailable = errors.New("benchmark unavailable")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
)

// FailureKind is the machine-readable failure category of a result.
type FailureKind string

const (
	FailureResolution           FailureKind = "resolution_failure"
	FailureInvalidSchedule      FailureKind = "invalid_schedule"
	FailureYieldNotConverged    FailureKind = "yield_not_converged"
	FailureNegativePrice        FailureKind = "negative_price"
	FailureBenchmarkUnavailable FailureKind = "benchmark_unavailable"
	FailureInvalidInput         FailureKind = "invalid_input"
	FailureCanceled             FailureKind = "canceled"
	FailureInternal             FailureKind = "internal"
)

// KindOf maps err onto its failure kind. Unknown errors are internal.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrResolution), errors.Is(err, ErrNotFound):
		return FailureResolution
	case errors.Is(err, ErrInvalidSchedule):
		return FailureInvalidSchedule
	case errors.Is(err, ErrYieldNotConverged):
		return FailureYieldNotConverged
	case errors.Is(err, ErrNegativePrice):
		return FailureNegativePrice
	case errors.Is(err, ErrBenchmarkUnavailable):
		return FailureBenchmarkUnavailable
	case errors.Is(err, ErrInvalidInput):
		return FailureInvalidInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCanceled
	}
	return FailureInternal
}
