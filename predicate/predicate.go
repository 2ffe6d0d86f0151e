// Package predicate implements the recursive boolean predicate tree
// (spec §3) and its pure rewriter (spec §4.1).
//
// The tree shape generalizes janus-datalog's query.Comparison /
// query.Predicate (datalog/query/predicate.go) from variable/constant
// terms over Datalog bindings to plain field-name comparisons over a
// single record type, and its rewrite pipeline follows the same
// detect-pattern -> compose -> mark-handled idiom as
// datalog/planner/predicate_rewriter.go, but expressed as a pure
// Predicate -> Predicate transform rather than in-place phase mutation.
package predicate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/janusql/planner/value"
)

// Operator is a field-comparison operator.
type Operator string

const (
	OpEQ          Operator = "="
	OpNE          Operator = "!="
	OpLT          Operator = "<"
	OpLE          Operator = "<="
	OpGT          Operator = ">"
	OpGE          Operator = ">="
	OpIn          Operator = "in"
	OpContains    Operator = "contains"
	OpHasPrefix   Operator = "hasPrefix"
	OpHasSuffix   Operator = "hasSuffix"
	OpIsNull      Operator = "isNull"
	OpIsNotNull   Operator = "isNotNull"
)

// FieldComparison is a single leaf comparison: fieldName op value.
// For OpIn the Value is conventionally ignored in favor of Values.
type FieldComparison struct {
	Field    string
	Op       Operator
	Value    value.Value
	Values   []value.Value // populated only for OpIn
}

func (c FieldComparison) String() string {
	switch c.Op {
	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", c.Field, c.Op)
	case OpIn:
		parts := make([]string, len(c.Values))
		for i, v := range c.Values {
			parts[i] = v.String()
		}
		return fmt.Sprintf("%s in [%s]", c.Field, strings.Join(parts, ","))
	default:
		return fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Value.String())
	}
}

// Kind distinguishes the Predicate's variant.
type Kind uint8

const (
	KindTrue Kind = iota
	KindFalse
	KindNot
	KindAnd
	KindOr
	KindCmp
)

// Predicate is the recursive boolean expression tree of spec §3.
// It is immutable: every transform (including Not/And/Or constructors)
// returns a fresh node rather than mutating Children in place.
type Predicate struct {
	kind     Kind
	children []Predicate // Not uses children[0]; And/Or use all
	cmp      FieldComparison
}

func True() Predicate  { return Predicate{kind: KindTrue} }
func False() Predicate { return Predicate{kind: KindFalse} }

func Not(p Predicate) Predicate { return Predicate{kind: KindNot, children: []Predicate{p}} }

func And(ps ...Predicate) Predicate { return Predicate{kind: KindAnd, children: ps} }

func Or(ps ...Predicate) Predicate { return Predicate{kind: KindOr, children: ps} }

func Cmp(c FieldComparison) Predicate { return Predicate{kind: KindCmp, cmp: c} }

func (p Predicate) Kind() Kind { return p.kind }

// Children returns the child predicates for Not/And/Or; nil otherwise.
func (p Predicate) Children() []Predicate { return p.children }

// Comparison returns the leaf comparison for KindCmp; panics otherwise.
func (p Predicate) Comparison() FieldComparison {
	if p.kind != KindCmp {
		panic("predicate: Comparison called on non-cmp node")
	}
	return p.cmp
}

// String renders p for debugging, canonical keys, and explain output.
func (p Predicate) String() string {
	switch p.kind {
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindNot:
		return fmt.Sprintf("not(%s)", p.children[0].String())
	case KindAnd:
		return joinKind("and", p.children)
	case KindOr:
		return joinKind("or", p.children)
	case KindCmp:
		return p.cmp.String()
	default:
		return "?"
	}
}

func joinKind(name string, children []Predicate) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ","))
}

// canonicalKey produces the structural stringification used by
// deduplication: cmp(field,op,value), and(sortedKeys), or(sortedKeys),
// not(key). Two structurally identical subtrees always produce the
// same key, independent of child order within And/Or.
func canonicalKey(p Predicate) string {
	switch p.kind {
	case KindTrue:
		return "T"
	case KindFalse:
		return "F"
	case KindNot:
		return "not(" + canonicalKey(p.children[0]) + ")"
	case KindCmp:
		return "cmp(" + p.cmp.Field + "," + string(p.cmp.Op) + "," + valuesKey(p.cmp) + ")"
	case KindAnd, KindOr:
		keys := make([]string, len(p.children))
		for i, c := range p.children {
			keys[i] = canonicalKey(c)
		}
		sort.Strings(keys)
		name := "and"
		if p.kind == KindOr {
			name = "or"
		}
		return name + "(" + strings.Join(keys, "|") + ")"
	default:
		return ""
	}
}

func valuesKey(c FieldComparison) string {
	if c.Op == OpIn {
		parts := make([]string, len(c.Values))
		for i, v := range c.Values {
			parts[i] = v.String()
		}
		sort.Strings(parts)
		return strings.Join(parts, ";")
	}
	return c.Value.String()
}

// Evaluate applies p against a field lookup function, used by property
// tests verifying rewrite semantic preservation (spec §8 invariant 2).
func Evaluate(p Predicate, get func(field string) (value.Value, bool)) bool {
	switch p.kind {
	case KindTrue:
		return true
	case KindFalse:
		return false
	case KindNot:
		return !Evaluate(p.children[0], get)
	case KindAnd:
		for _, c := range p.children {
			if !Evaluate(c, get) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range p.children {
			if Evaluate(c, get) {
				return true
			}
		}
		return false
	case KindCmp:
		return evaluateCmp(p.cmp, get)
	default:
		return false
	}
}

func evaluateCmp(c FieldComparison, get func(string) (value.Value, bool)) bool {
	v, ok := get(c.Field)
	switch c.Op {
	case OpIsNull:
		return !ok || v.IsNull()
	case OpIsNotNull:
		return ok && !v.IsNull()
	}
	if !ok {
		return false
	}
	switch c.Op {
	case OpEQ:
		return value.Compare(v, c.Value) == 0
	case OpNE:
		return value.Compare(v, c.Value) != 0
	case OpLT:
		return value.Compare(v, c.Value) < 0
	case OpLE:
		return value.Compare(v, c.Value) <= 0
	case OpGT:
		return value.Compare(v, c.Value) > 0
	case OpGE:
		return value.Compare(v, c.Value) >= 0
	case OpIn:
		for _, cand := range c.Values {
			if value.Compare(v, cand) == 0 {
				return true
			}
		}
		return false
	case OpContains:
		s, ok1 := v.AsString()
		t, ok2 := c.Value.AsString()
		return ok1 && ok2 && strings.Contains(s, t)
	case OpHasPrefix:
		s, ok1 := v.AsString()
		t, ok2 := c.Value.AsString()
		return ok1 && ok2 && strings.HasPrefix(s, t)
	case OpHasSuffix:
		s, ok1 := v.AsString()
		t, ok2 := c.Value.AsString()
		return ok1 && ok2 && strings.HasSuffix(s, t)
	default:
		return false
	}
}
