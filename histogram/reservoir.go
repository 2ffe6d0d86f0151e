package histogram

import (
	"math"
	"math/rand"

	"github.com/janusql/planner/value"
)

// Reservoir implements Algorithm L (Li, 1994) for fixed-size-k
// reservoir sampling over an unbounded stream, as required by spec
// §4.3: "Maintain a fixed-size k reservoir... on fill completion,
// initialize W = random()^(1/k)... nextIndex = elementsSeen +
// floor(log(random())/log1p(-W)) + 1... on each added element, if
// elementsSeen==nextIndex, replace a uniformly random slot and update
// W <- W*random()^(1/k) and recompute the next skip index."
//
// Memory is O(k) regardless of stream length (spec §5).
type Reservoir struct {
	k           int
	rng         *rand.Rand
	data        []value.Value
	elementsSeen int64
	w           float64
	nextIndex   int64
	filled      bool
}

// NewReservoir creates a reservoir of capacity k using rng for all
// randomness (pass a seeded rand.New for deterministic tests).
func NewReservoir(k int, rng *rand.Rand) *Reservoir {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Reservoir{k: k, rng: rng, data: make([]value.Value, 0, k)}
}

// Add offers v to the reservoir.
func (r *Reservoir) Add(v value.Value) {
	r.elementsSeen++

	if r.k == 0 {
		return
	}

	if !r.filled {
		r.data = append(r.data, v)
		if len(r.data) == r.k {
			r.initSkip()
		}
		return
	}

	if r.elementsSeen == r.nextIndex {
		slot := r.rng.Intn(r.k)
		r.data[slot] = v
		r.w *= math.Pow(r.rng.Float64(), 1.0/float64(r.k))
		r.advanceSkip()
	}
}

// initSkip runs once, immediately after the reservoir's initial fill,
// setting W and the first skip index.
func (r *Reservoir) initSkip() {
	r.filled = true
	r.w = math.Pow(r.rng.Float64(), 1.0/float64(r.k))
	r.advanceSkip()
}

// advanceSkip computes the next index to replace, using log1p(-W) for
// numerical stability near small W as spec §4.3 requires.
func (r *Reservoir) advanceSkip() {
	skip := math.Floor(math.Log(r.rng.Float64()) / math.Log1p(-r.w))
	r.nextIndex = r.elementsSeen + int64(skip) + 1
}

// Samples returns a copy of the current reservoir contents; the
// returned slice shares no backing array with internal state.
func (r *Reservoir) Samples() []value.Value {
	out := make([]value.Value, len(r.data))
	copy(out, r.data)
	return out
}

// Len returns the number of elements currently retained (min(k, seen)).
func (r *Reservoir) Len() int { return len(r.data) }

// ElementsSeen returns the total count of elements offered so far,
// independent of how many were retained.
func (r *Reservoir) ElementsSeen() int64 { return r.elementsSeen }
