package predicate

import "github.com/janusql/planner/value"

// Bounds describes a closed-or-open interval on a single field, as
// produced by range merging and consumed by the scalar index strategy's
// toBounds mapping. A nil Lower/Upper means unbounded on that side.
type Bounds struct {
	Lower          *value.Value
	Upper          *value.Value
	LowerInclusive bool
	UpperInclusive bool
}

// MergeBounds is the single, centralized bound-merge implementation used
// by both the rewriter's range-merging pass and the scalar index
// strategy's toBounds. Spec §9 flags that one upstream variant of this
// logic "returns the first argument when both bounds are present,
// ignoring comparison" — this function is the fix: it always compares.
//
// The strictest lower bound wins (higher value; at equal value,
// exclusive beats inclusive). The strictest upper bound wins (lower
// value; at equal value, exclusive beats inclusive).
func MergeBounds(a, b Bounds) Bounds {
	out := Bounds{
		Lower: a.Lower, LowerInclusive: a.LowerInclusive,
		Upper: a.Upper, UpperInclusive: a.UpperInclusive,
	}

	if b.Lower != nil {
		switch {
		case out.Lower == nil:
			out.Lower, out.LowerInclusive = b.Lower, b.LowerInclusive
		default:
			cmp := value.Compare(*b.Lower, *out.Lower)
			if cmp > 0 || (cmp == 0 && !b.LowerInclusive && out.LowerInclusive) {
				out.Lower, out.LowerInclusive = b.Lower, b.LowerInclusive
			}
		}
	}

	if b.Upper != nil {
		switch {
		case out.Upper == nil:
			out.Upper, out.UpperInclusive = b.Upper, b.UpperInclusive
		default:
			cmp := value.Compare(*b.Upper, *out.Upper)
			if cmp < 0 || (cmp == 0 && !b.UpperInclusive && out.UpperInclusive) {
				out.Upper, out.UpperInclusive = b.Upper, b.UpperInclusive
			}
		}
	}

	return out
}

// BoundsFromComparison converts a single scalar comparison into a Bounds
// with exactly one side set (or both, for OpEQ).
func BoundsFromComparison(c FieldComparison) (Bounds, bool) {
	switch c.Op {
	case OpEQ:
		v := c.Value.Clone()
		return Bounds{Lower: &v, LowerInclusive: true, Upper: &v, UpperInclusive: true}, true
	case OpLT:
		v := c.Value.Clone()
		return Bounds{Upper: &v, UpperInclusive: false}, true
	case OpLE:
		v := c.Value.Clone()
		return Bounds{Upper: &v, UpperInclusive: true}, true
	case OpGT:
		v := c.Value.Clone()
		return Bounds{Lower: &v, LowerInclusive: false}, true
	case OpGE:
		v := c.Value.Clone()
		return Bounds{Lower: &v, LowerInclusive: true}, true
	default:
		return Bounds{}, false
	}
}

// Empty reports whether the interval can contain no value: lower > upper,
// or lower == upper with either side exclusive.
func (b Bounds) Empty() bool {
	if b.Lower == nil || b.Upper == nil {
		return false
	}
	cmp := value.Compare(*b.Lower, *b.Upper)
	if cmp > 0 {
		return true
	}
	if cmp == 0 && (!b.LowerInclusive || !b.UpperInclusive) {
		return true
	}
	return false
}

// Contains reports whether v falls within b.
func (b Bounds) Contains(v value.Value) bool {
	if b.Lower != nil {
		cmp := value.Compare(v, *b.Lower)
		if cmp < 0 || (cmp == 0 && !b.LowerInclusive) {
			return false
		}
	}
	if b.Upper != nil {
		cmp := value.Compare(v, *b.Upper)
		if cmp > 0 || (cmp == 0 && !b.UpperInclusive) {
			return false
		}
	}
	return true
}
