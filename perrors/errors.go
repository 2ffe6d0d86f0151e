// Package perrors defines the planner's error kinds (spec §7), shared
// as sentinel errors across packages so callers can discriminate with
// errors.Is rather than type assertions. The teacher wraps sentinel-ish
// errors with fmt.Errorf("...: %w", err) throughout (datalog/parser/
// parser.go, datalog/codec/l85.go); this package centralizes the
// sentinels that wrapping pattern needs.
package perrors

import "errors"

var (
	// ErrInvalidQuery signals a malformed predicate tree: a cyclic
	// reference or an unknown field name.
	ErrInvalidQuery = errors.New("planner: invalid query")

	// ErrUnsupportedConstraint signals a constraint variant no
	// registered strategy accepts and the planner cannot fall back
	// from (e.g. a vector condition with no vector index present).
	ErrUnsupportedConstraint = errors.New("planner: unsupported constraint")

	// ErrParameterBinding signals a missing, mistyped, or miscounted
	// parameter at prepared-plan execution time.
	ErrParameterBinding = errors.New("planner: parameter binding error")

	// ErrStatisticsUnavailable signals a live-statistics call failed;
	// callers recover by falling back to the heuristic provider and
	// recording a non-fatal warning on the plan.
	ErrStatisticsUnavailable = errors.New("planner: statistics unavailable")

	// ErrIndexInvalidated signals a cached prepared plan references an
	// index that no longer exists; the cache validator rejects it and
	// the planner re-plans.
	ErrIndexInvalidated = errors.New("planner: index invalidated")
)
