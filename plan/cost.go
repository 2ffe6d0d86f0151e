package plan

import (
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/janusql/planner/operator"
)

// Weights configures the cost model's weighted sum (spec §4.7). Loadable
// from YAML so deployments can retune without a rebuild, generalizing
// the teacher's PlannerOptions struct-of-bool-flags
// (datalog/planner/types.go) to numeric tuning knobs.
type Weights struct {
	IndexReadWeight   float64 `yaml:"indexReadWeight"`
	RecordFetchWeight float64 `yaml:"recordFetchWeight"`
	FilterWeight      float64 `yaml:"filterWeight"`
	SortWeight        float64 `yaml:"sortWeight"`
}

// DefaultWeights favors fewer record fetches over many index reads, per
// spec §4.7 ("defaults favor fewer record fetches over many index
// reads").
func DefaultWeights() Weights {
	return Weights{
		IndexReadWeight:   1.0,
		RecordFetchWeight: 5.0,
		FilterWeight:      0.5,
		SortWeight:        50.0,
	}
}

// LoadWeights reads a Weights configuration from a YAML file at path,
// falling back to any fields the file omits by starting from
// DefaultWeights.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	f, err := os.Open(path)
	if err != nil {
		return w, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&w); err != nil {
		return w, err
	}
	return w, nil
}

// PlanCost is the cost breakdown spec §4.7 names.
type PlanCost struct {
	IndexReads      int64
	RecordFetches   int64
	PostFilterCount int64
	RequiresSort    bool
	AdditionalCost  float64
}

// Total computes totalCost = indexReads*indexReadWeight +
// recordFetches*recordFetchWeight + postFilterCount*filterWeight +
// (requiresSort ? sortWeight : 0) + additionalCost.
func (c PlanCost) Total(w Weights) float64 {
	total := float64(c.IndexReads)*w.IndexReadWeight +
		float64(c.RecordFetches)*w.RecordFetchWeight +
		float64(c.PostFilterCount)*w.FilterWeight +
		c.AdditionalCost
	if c.RequiresSort {
		total += w.SortWeight
	}
	return total
}

func (c PlanCost) add(o PlanCost) PlanCost {
	return PlanCost{
		IndexReads:      c.IndexReads + o.IndexReads,
		RecordFetches:   c.RecordFetches + o.RecordFetches,
		PostFilterCount: c.PostFilterCount + o.PostFilterCount,
		RequiresSort:    c.RequiresSort || o.RequiresSort,
		AdditionalCost:  c.AdditionalCost + o.AdditionalCost,
	}
}

// EstimateCost walks op bottom-up, multiplying child output size by
// child selectivity and adding the current operator's own cost (spec
// §4.7). It returns both the estimated output row count and the
// accumulated PlanCost.
func EstimateCost(op *operator.Operator) (outputSize int64, cost PlanCost) {
	if op == nil {
		return 0, PlanCost{}
	}

	switch op.Kind {
	case operator.KindTableScan:
		n := op.EstimatedEntries
		c := PlanCost{RecordFetches: n}
		if op.FilterPredicate != nil {
			c.PostFilterCount = 1
		}
		return n, c

	case operator.KindIndexScan, operator.KindIndexSeek, operator.KindSkipScan:
		n := op.EstimatedEntries
		return n, PlanCost{IndexReads: n, RecordFetches: n}

	case operator.KindIndexOnlyScan:
		n := op.EstimatedEntries
		return n, PlanCost{IndexReads: n}

	case operator.KindFullTextScan:
		n := op.EstimatedEntries
		return n, PlanCost{IndexReads: n, RecordFetches: n, AdditionalCost: float64(n) * 0.1}

	case operator.KindVectorSearch:
		n := op.EstimatedEntries
		k := float64(n)
		if k < 1 {
			k = 1
		}
		additional := math.Log2(k+1) * k
		return n, PlanCost{IndexReads: n, RecordFetches: n, AdditionalCost: additional}

	case operator.KindSpatialScan:
		n := op.EstimatedEntries
		return n, PlanCost{IndexReads: 2 * n, RecordFetches: n}

	case operator.KindUnion, operator.KindInUnion:
		var total int64
		var cost PlanCost
		for _, child := range op.Children {
			n, c := EstimateCost(child)
			total += n
			cost = cost.add(c)
		}
		return total, cost

	case operator.KindIntersection, operator.KindInJoin:
		var min int64 = -1
		var cost PlanCost
		for _, child := range op.Children {
			n, c := EstimateCost(child)
			if min == -1 || n < min {
				min = n
			}
			cost = cost.add(c)
		}
		if min == -1 {
			min = 0
		}
		return min, cost

	case operator.KindFilter:
		n, c := EstimateCost(op.Input)
		out := int64(float64(n) * op.Selectivity)
		c.PostFilterCount++
		return out, c

	case operator.KindSort:
		n, c := EstimateCost(op.Input)
		c.RequiresSort = true
		return n, c

	case operator.KindLimit:
		n, c := EstimateCost(op.Input)
		if op.LimitCount != nil && int64(*op.LimitCount) < n {
			n = int64(*op.LimitCount)
		}
		return n, c

	case operator.KindProject:
		return EstimateCost(op.Input)

	default:
		return EstimateCost(op.Input)
	}
}
