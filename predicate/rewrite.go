package predicate

import "github.com/janusql/planner/value"

// Rewrite applies the fixed-order transformation pipeline of spec §4.1:
// flatten -> deduplicate -> merge-ranges -> fold-constants ->
// eliminate-contradictions; the DNF pass is separate (RewriteToDNF). It is pure:
// the input tree is never mutated, and Rewrite(Rewrite(p)) == Rewrite(p)
// (spec §8 invariant 1) because every pass is itself idempotent on an
// already-rewritten tree.
func Rewrite(p Predicate) Predicate {
	p = flatten(p)
	p = deduplicate(p)
	p = mergeRanges(p)
	p = foldConstants(p)
	p = eliminateContradictions(p)
	return p
}

// RewriteToDNF additionally distributes And over Or after the main
// rewrite. The plan enumerator does not call it; its union candidates
// start from Rewrite's output.
func RewriteToDNF(p Predicate) Predicate {
	return foldConstants(toDNF(Rewrite(p)))
}

// flatten collapses nested and/or of the same kind and single-child
// and/or wrappers, recursing into children first.
func flatten(p Predicate) Predicate {
	switch p.kind {
	case KindNot:
		return Not(flatten(p.children[0]))
	case KindAnd, KindOr:
		var flat []Predicate
		for _, c := range p.children {
			fc := flatten(c)
			if fc.kind == p.kind {
				flat = append(flat, fc.children...)
			} else {
				flat = append(flat, fc)
			}
		}
		if len(flat) == 1 {
			return flat[0]
		}
		if p.kind == KindAnd {
			return And(flat...)
		}
		return Or(flat...)
	default:
		return p
	}
}

// deduplicate removes structurally identical children within each
// and/or, using canonicalKey for structural equality.
func deduplicate(p Predicate) Predicate {
	switch p.kind {
	case KindNot:
		return Not(deduplicate(p.children[0]))
	case KindAnd, KindOr:
		seen := make(map[string]bool, len(p.children))
		var uniq []Predicate
		for _, c := range p.children {
			dc := deduplicate(c)
			key := canonicalKey(dc)
			if seen[key] {
				continue
			}
			seen[key] = true
			uniq = append(uniq, dc)
		}
		if len(uniq) == 1 {
			return uniq[0]
		}
		if p.kind == KindAnd {
			return And(uniq...)
		}
		return Or(uniq...)
	default:
		return p
	}
}

// mergeRanges merges same-field scalar comparisons within an And using
// MergeBounds, keeping non-range operators (in, isNull, ...) untouched
// and passing through fields that never appear as a bound-bearing op.
func mergeRanges(p Predicate) Predicate {
	switch p.kind {
	case KindNot:
		return Not(mergeRanges(p.children[0]))
	case KindOr:
		children := make([]Predicate, len(p.children))
		for i, c := range p.children {
			children[i] = mergeRanges(c)
		}
		return Or(children...)
	case KindAnd:
		children := make([]Predicate, len(p.children))
		for i, c := range p.children {
			children[i] = mergeRanges(c)
		}

		boundsByField := make(map[string]Bounds)
		hasBounds := make(map[string]bool)
		var passthrough []Predicate

		for _, c := range children {
			// Equalities pass through unchanged here (spec §4.1): only
			// range-shaped operators (<,<=,>,>=) merge with each other.
			// Contradiction elimination later checks an equality against
			// the merged range separately.
			if c.kind == KindCmp && c.cmp.Op != OpEQ {
				if b, ok := BoundsFromComparison(c.cmp); ok {
					if hasBounds[c.cmp.Field] {
						boundsByField[c.cmp.Field] = MergeBounds(boundsByField[c.cmp.Field], b)
					} else {
						boundsByField[c.cmp.Field] = b
						hasBounds[c.cmp.Field] = true
					}
					continue
				}
			}
			passthrough = append(passthrough, c)
		}

		var out []Predicate
		for field, b := range boundsByField {
			out = append(out, boundsToComparisons(field, b)...)
		}
		out = append(out, passthrough...)

		if len(out) == 1 {
			return out[0]
		}
		return And(out...)
	default:
		return p
	}
}

// boundsToComparisons converts a merged Bounds back into one or two
// field comparisons (a single "=" when both sides are the identical
// inclusive point, otherwise one comparison per bounded side).
func boundsToComparisons(field string, b Bounds) []Predicate {
	if b.Lower != nil && b.Upper != nil && b.LowerInclusive && b.UpperInclusive &&
		value.Compare(*b.Lower, *b.Upper) == 0 {
		return []Predicate{Cmp(FieldComparison{Field: field, Op: OpEQ, Value: *b.Lower})}
	}

	var out []Predicate
	if b.Lower != nil {
		op := OpGE
		if !b.LowerInclusive {
			op = OpGT
		}
		out = append(out, Cmp(FieldComparison{Field: field, Op: op, Value: *b.Lower}))
	}
	if b.Upper != nil {
		op := OpLE
		if !b.UpperInclusive {
			op = OpLT
		}
		out = append(out, Cmp(FieldComparison{Field: field, Op: op, Value: *b.Upper}))
	}
	if len(out) == 0 {
		// Both sides nil cannot happen (caller only inserts fields with
		// at least one bound), but guard defensively.
		return []Predicate{True()}
	}
	return out
}

// foldConstants drops true from and, short-circuits to false on any
// false (symmetrically for or), and simplifies not(true)/not(false)/
// not(not(p)).
func foldConstants(p Predicate) Predicate {
	switch p.kind {
	case KindNot:
		inner := foldConstants(p.children[0])
		switch inner.kind {
		case KindTrue:
			return False()
		case KindFalse:
			return True()
		case KindNot:
			return inner.children[0]
		default:
			return Not(inner)
		}
	case KindAnd:
		var kept []Predicate
		for _, c := range p.children {
			fc := foldConstants(c)
			if fc.kind == KindFalse {
				return False()
			}
			if fc.kind == KindTrue {
				continue
			}
			kept = append(kept, fc)
		}
		if len(kept) == 0 {
			return True()
		}
		if len(kept) == 1 {
			return kept[0]
		}
		return And(kept...)
	case KindOr:
		var kept []Predicate
		for _, c := range p.children {
			fc := foldConstants(c)
			if fc.kind == KindTrue {
				return True()
			}
			if fc.kind == KindFalse {
				continue
			}
			kept = append(kept, fc)
		}
		if len(kept) == 0 {
			return False()
		}
		if len(kept) == 1 {
			return kept[0]
		}
		return Or(kept...)
	default:
		return p
	}
}

// eliminateContradictions detects, within an And, multiple conflicting
// equalities on the same field, an equality outside a merged range, or
// an empty merged range, collapsing the whole And to False. It applies
// to every value tag alike, relying on value.Compare's total order
// (false < true for bools, byte-wise order for bytes).
func eliminateContradictions(p Predicate) Predicate {
	switch p.kind {
	case KindNot:
		return Not(eliminateContradictions(p.children[0]))
	case KindOr:
		children := make([]Predicate, len(p.children))
		for i, c := range p.children {
			children[i] = eliminateContradictions(c)
		}
		return foldConstants(Or(children...))
	case KindAnd:
		children := make([]Predicate, len(p.children))
		for i, c := range p.children {
			children[i] = eliminateContradictions(c)
		}

		equalities := make(map[string]value.Value)
		bounds := make(map[string]Bounds)
		hasBounds := make(map[string]bool)

		for _, c := range children {
			if c.kind != KindCmp {
				continue
			}
			if c.cmp.Op == OpEQ {
				if existing, ok := equalities[c.cmp.Field]; ok {
					if value.Compare(existing, c.cmp.Value) != 0 {
						return False()
					}
				} else {
					equalities[c.cmp.Field] = c.cmp.Value
				}
			}
			if b, ok := BoundsFromComparison(c.cmp); ok && c.cmp.Op != OpEQ {
				if hasBounds[c.cmp.Field] {
					bounds[c.cmp.Field] = MergeBounds(bounds[c.cmp.Field], b)
				} else {
					bounds[c.cmp.Field] = b
					hasBounds[c.cmp.Field] = true
				}
			}
		}

		for field, b := range bounds {
			if b.Empty() {
				return False()
			}
			if eq, ok := equalities[field]; ok && !b.Contains(eq) {
				return False()
			}
		}

		return foldConstants(And(children...))
	default:
		return p
	}
}

// toDNF distributes And over Or recursively until no And has an Or
// child, producing a disjunction-of-conjunctions shape.
func toDNF(p Predicate) Predicate {
	switch p.kind {
	case KindNot:
		return Not(toDNF(p.children[0]))
	case KindOr:
		children := make([]Predicate, len(p.children))
		for i, c := range p.children {
			children[i] = toDNF(c)
		}
		return flatten(Or(children...))
	case KindAnd:
		children := make([]Predicate, len(p.children))
		for i, c := range p.children {
			children[i] = toDNF(c)
		}
		return distributeAnd(children)
	default:
		return p
	}
}

// distributeAnd expands And(children...) where any child is an Or into
// Or(And(...), And(...), ...) via cross-product distribution.
func distributeAnd(children []Predicate) Predicate {
	disjuncts := [][]Predicate{{}}
	for _, c := range children {
		if c.kind == KindOr {
			var next [][]Predicate
			for _, existing := range disjuncts {
				for _, orChild := range c.children {
					combo := make([]Predicate, len(existing), len(existing)+1)
					copy(combo, existing)
					combo = append(combo, orChild)
					next = append(next, combo)
				}
			}
			disjuncts = next
		} else {
			for i := range disjuncts {
				disjuncts[i] = append(disjuncts[i], c)
			}
		}
	}

	if len(disjuncts) == 1 {
		return flatten(And(disjuncts[0]...))
	}
	terms := make([]Predicate, len(disjuncts))
	for i, d := range disjuncts {
		terms[i] = flatten(And(d...))
	}
	return flatten(Or(terms...))
}
