// Package operator defines the executable plan-tree node shape spec §3
// and §6 name ("Operator contract"): each plan is a tree of Operator
// values tagged by Kind, carrying exactly the fields the executor needs
// for that variant. Factored out of the plan package so that the index
// strategies (which construct Operators) and the plan package (which
// enumerates, costs, and prints them) can both depend on this leaf
// package without an import cycle between index and plan.
//
// Generalizes datalog/planner/types.go's QueryPlan/Phase/PatternPlan
// struct-with-discriminant idiom (a type tag plus a flat set of
// optionally-populated fields, never an interface hierarchy per
// operator kind) to the operator variants spec §3 names.
package operator

import (
	"github.com/janusql/planner/condition"
	"github.com/janusql/planner/predicate"
)

// Kind discriminates which Operator variant is populated.
type Kind uint8

const (
	KindTableScan Kind = iota
	KindIndexScan
	KindIndexSeek
	KindIndexOnlyScan
	KindSkipScan
	KindFullTextScan
	KindVectorSearch
	KindSpatialScan
	KindUnion
	KindIntersection
	KindFilter
	KindSort
	KindLimit
	KindProject
	KindInUnion
	KindInJoin
)

func (k Kind) String() string {
	switch k {
	case KindTableScan:
		return "tableScan"
	case KindIndexScan:
		return "indexScan"
	case KindIndexSeek:
		return "indexSeek"
	case KindIndexOnlyScan:
		return "indexOnlyScan"
	case KindSkipScan:
		return "skipScan"
	case KindFullTextScan:
		return "fullTextScan"
	case KindVectorSearch:
		return "vectorSearch"
	case KindSpatialScan:
		return "spatialScan"
	case KindUnion:
		return "union"
	case KindIntersection:
		return "intersection"
	case KindFilter:
		return "filter"
	case KindSort:
		return "sort"
	case KindLimit:
		return "limit"
	case KindProject:
		return "project"
	case KindInUnion:
		return "inUnion"
	case KindInJoin:
		return "inJoin"
	default:
		return "unknown"
	}
}

// SortDescriptor names a sort key and direction for the Sort operator.
type SortDescriptor struct {
	Field      string
	Descending bool
}

// Operator is one node of a plan tree. Only the fields relevant to Kind
// are meaningful; the rest are zero. This mirrors PatternPlan's "flat
// struct with a type tag" shape rather than per-kind structs behind an
// interface, so the cost estimator and explain printer can switch on
// Kind without a type assertion per case.
type Operator struct {
	Kind Kind

	// Scan fields (tableScan, indexScan, indexSeek, indexOnlyScan,
	// skipScan, fullTextScan, vectorSearch, spatialScan).
	IndexName         string
	Bounds            *predicate.Bounds
	SeekValues        []interface{}
	Reverse           bool
	SatisfiedIDs      []string
	EstimatedEntries  int64
	Limit             *int
	FilterPredicate   *predicate.Predicate // tableScan's internal filter, never double-applied
	SearchTerms       []string
	MatchMode         condition.MatchMode
	SkipScanPrefixes  []interface{}

	// Combiner fields (union, intersection).
	Children      []*Operator
	Deduplicate   bool

	// Transform fields (filter, sort, limit, project).
	Input            *Operator
	Predicate        *predicate.Predicate
	Selectivity      float64
	SortDescriptors  []SortDescriptor
	LimitCount       *int
	Offset           *int
	ProjectFields    []string

	// Specialized IN fields (inUnion, inJoin).
	InField  string
	InValues []interface{}
}

// Leaf reports whether the operator is a scan with no input/children,
// used by the cost walker and tree printer to stop recursion.
func (o *Operator) Leaf() bool {
	switch o.Kind {
	case KindTableScan, KindIndexScan, KindIndexSeek, KindIndexOnlyScan,
		KindSkipScan, KindFullTextScan, KindVectorSearch, KindSpatialScan:
		return true
	default:
		return false
	}
}

// ChildrenOf returns the operator's direct children regardless of which
// field variant (Children vs Input) holds them.
func (o *Operator) ChildrenOf() []*Operator {
	if o.Leaf() {
		return nil
	}
	if o.Input != nil {
		return []*Operator{o.Input}
	}
	return o.Children
}
