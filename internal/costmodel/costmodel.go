// Package costmodel estimates join costs and row selectivities in linear,
// abstract units. It is pluggable: the optimizer depends only on the
// Model interface, never on this package's default implementation
// directly, so a caller can substitute its own cost accounting without
// touching the optimizer.
package costmodel

import "math"

// Model is the cost-estimation contract the optimizer is parametric
// over: hash-join cost, nested-loop cost, and the penalty multiplier
// applied to a nested-loop join that has no equi-predicates.
type Model interface {
	HashJoinCost(leftRows, rightRows float64) float64
	NestedLoopCost(leftRows, rightRows float64) float64
	CrossJoinPenalty() float64
}

// Default is the standard linear-unit cost model described by the
// end-to-end scenarios: hash-join cost is the sum of both input sizes
// (one pass to build, one to probe); nested-loop cost is damped by 0.4 to
// reflect cache/inner-reuse effects; a cross join (no equi-predicates)
// pays a further 2x penalty on top of the nested-loop estimate.
type Default struct{}

const (
	nestedLoopDamping  = 0.4
	crossJoinPenalty   = 2.0
)

func (Default) HashJoinCost(leftRows, rightRows float64) float64 {
	return leftRows + rightRows
}

func (Default) NestedLoopCost(leftRows, rightRows float64) float64 {
	return nestedLoopDamping * leftRows * rightRows
}

func (Default) CrossJoinPenalty() float64 {
	return crossJoinPenalty
}

// JoinAlgorithm names which physical join algorithm choose_join picked.
type JoinAlgorithm int

const (
	AlgoHashJoin JoinAlgorithm = iota
	AlgoNestedLoop
)

func (a JoinAlgorithm) String() string {
	if a == AlgoHashJoin {
		return "HashJoin"
	}
	return "NestedLoop"
}

// ChooseJoin picks the cheaper join algorithm for inputs of the given
// sizes. With an equi-predicate, it returns whichever of hash join and
// nested loop is cheaper; without one, it always returns nested loop with
// the cross-join penalty applied, since there is no hash key to build on.
func ChooseJoin(m Model, leftRows, rightRows float64, hasEqui bool) (algo JoinAlgorithm, cost float64) {
	nestedCost := m.NestedLoopCost(leftRows, rightRows)
	if !hasEqui {
		return AlgoNestedLoop, nestedCost * m.CrossJoinPenalty()
	}
	hashCost := m.HashJoinCost(leftRows, rightRows)
	if hashCost <= nestedCost {
		return AlgoHashJoin, hashCost
	}
	return AlgoNestedLoop, nestedCost
}

// minSelectivity and maxSelectivity bound every selectivity estimate to
// the open-closed interval (1e-12, 1].
const (
	minSelectivity = 1e-12
	maxSelectivity = 1.0
)

func clamp(s float64) float64 {
	if s > maxSelectivity {
		return maxSelectivity
	}
	if s <= minSelectivity {
		return minSelectivity
	}
	return s
}

// EqualitySelectivity estimates the fraction of rows an equality filter
// passes: 1/ndv, falling back to 1/sqrt(rows) when ndv is unknown (zero).
func EqualitySelectivity(ndv, rows float64) float64 {
	if ndv <= 0 {
		ndv = math.Sqrt(math.Max(rows, 0))
	}
	return clamp(1.0 / math.Max(ndv, 1))
}

// RangeSelectivity is the constant estimate used for <, <=, >, >= filters.
func RangeSelectivity() float64 {
	return clamp(1.0 / 3.0)
}

// JoinSelectivity estimates a join predicate's selectivity as the
// reciprocal of the larger side's NDV, the standard containment
// assumption for an equi-join.
func JoinSelectivity(ndvLeft, ndvRight float64) float64 {
	return clamp(1.0 / math.Max(math.Max(ndvLeft, ndvRight), 1))
}

// JoinOutputRows estimates a join's output cardinality from its inputs
// and selectivity, floored at 1 row: an optimizer that estimates zero
// rows for every candidate can no longer distinguish between them.
func JoinOutputRows(leftRows, rightRows, selectivity float64) float64 {
	out := leftRows * rightRows * selectivity
	if out < 1 {
		return 1
	}
	return out
}
