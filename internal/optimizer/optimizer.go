// Package optimizer picks a cheapest join order over a set of tables by
// System-R style dynamic programming over bitset-indexed subsets: each
// subset of tables gets one best Candidate, built by combining the best
// Candidates of two disjoint subsets that cover it.
package optimizer

import (
	"context"
	"fmt"
	"math/bits"
	"strings"

	"github.com/google/uuid"

	"github.com/brightlane/pagewise/internal/costmodel"
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/logging"
)

// MaxTables is the hard cap on query width: a 32-bit mask only needs 20
// bits for this DP to stay fast, and a query wider than that is almost
// certainly a planner bug upstream rather than a real join.
const MaxTables = 20

// FilterOp is a single-table filter predicate's comparison operator.
type FilterOp int

const (
	OpEq FilterOp = iota
	OpLt
	OpLe
	OpGt
	OpGe
)

// FilterPred is a single-table filter: table.col OP lit.
type FilterPred struct {
	Table string
	Col   string
	Op    FilterOp
	Lit   any
}

// JoinPred is an equi-join predicate between two tables' columns.
type JoinPred struct {
	TableL, ColL string
	TableR, ColR string
}

// Query is the optimizer's input: the tables to join, the filters that
// apply before joining, and the join predicates connecting them.
type Query struct {
	Tables  []string
	Filters []FilterPred
	Joins   []JoinPred
}

// TableStats is one table's row count, row width, and per-column
// distinct-value counts, as the optimizer needs them for selectivity and
// cardinality estimation.
type TableStats struct {
	Rows     float64
	RowWidth int
	NDV      map[string]float64
}

// Statistics is the read-only statistics collaborator the optimizer
// consults; it never builds or refreshes statistics itself.
type Statistics interface {
	Lookup(table string) (TableStats, error)
}

// MapStatistics is the simplest Statistics implementation: a fixed map,
// useful for tests and for small catalogs assembled ahead of time.
type MapStatistics map[string]TableStats

func (m MapStatistics) Lookup(table string) (TableStats, error) {
	s, ok := m[table]
	if !ok {
		return TableStats{}, &errs.LookupError{Kind: "table stats", Name: table}
	}
	return s, nil
}

// Candidate is one DP table entry: the best known plan for the set of
// tables named by Mask.
type Candidate struct {
	Mask        uint32
	Cost        float64
	Cardinality float64
	Plan        string
}

// Optimize runs the subset-DP join-order search and returns the Candidate
// covering every table in q. The chosen plan is logged at Info level
// under a fresh per-invocation query id.
func Optimize(ctx context.Context, q Query, stats Statistics, model costmodel.Model) (Candidate, error) {
	n := len(q.Tables)
	if n == 0 {
		return Candidate{}, &errs.UsageError{Operation: "Optimize", Message: "query has no tables"}
	}
	if n > MaxTables {
		return Candidate{}, &errs.UsageError{Operation: "Optimize", Message: fmt.Sprintf("%d tables exceeds the %d-table limit", n, MaxTables)}
	}

	ctx = logging.WithQueryID(ctx, uuid.NewString())

	index := make(map[string]int, n)
	for i, t := range q.Tables {
		index[t] = i
	}

	filtersByTable := make(map[string][]FilterPred)
	for _, f := range q.Filters {
		filtersByTable[f.Table] = append(filtersByTable[f.Table], f)
	}

	tableStats := make(map[string]TableStats, n)
	best := make(map[uint32]Candidate)
	for i, t := range q.Tables {
		ts, err := stats.Lookup(t)
		if err != nil {
			return Candidate{}, err
		}
		tableStats[t] = ts

		card := ts.Rows
		for _, f := range filtersByTable[t] {
			card *= filterSelectivity(f, ts)
		}
		if card < 1 {
			card = 1
		}
		mask := uint32(1) << uint(i)
		best[mask] = Candidate{Mask: mask, Cost: 0, Cardinality: card, Plan: t}
	}

	fullMask := uint32(1)<<uint(n) - 1

	for size := 2; size <= n; size++ {
		for mask := uint32(1); mask <= fullMask; mask++ {
			if bits.OnesCount32(mask) != size {
				continue
			}
			candidate, ok := bestSubsetJoin(mask, best, q.Joins, index, tableStats, model)
			if ok {
				best[mask] = candidate
			}
		}
	}

	result, ok := best[fullMask]
	if !ok {
		return Candidate{}, &errs.UsageError{Operation: "Optimize", Message: "no join order covers every table"}
	}

	logging.PlanChosen(ctx, result.Plan, result.Cost, result.Cardinality)
	return result, nil
}

// bestSubsetJoin finds the cheapest way to split mask into two disjoint,
// already-solved subsets and join them, using the "sub = (sub-1) & mask"
// idiom to walk mask's proper non-empty submasks without materializing a
// powerset.
func bestSubsetJoin(
	mask uint32,
	best map[uint32]Candidate,
	joins []JoinPred,
	index map[string]int,
	tableStats map[string]TableStats,
	model costmodel.Model,
) (Candidate, bool) {
	var result Candidate
	found := false

	for sub := (mask - 1) & mask; sub != 0; sub = (sub - 1) & mask {
		left := sub
		right := mask ^ left

		lc, ok := best[left]
		if !ok {
			continue
		}
		rc, ok := best[right]
		if !ok {
			continue
		}

		crossing := crossingPredicates(joins, index, left, right)
		hasEqui := len(crossing) > 0

		sel := 1.0
		for _, jp := range crossing {
			sel *= costmodel.JoinSelectivity(tableStats[jp.TableL].NDV[jp.ColL], tableStats[jp.TableR].NDV[jp.ColR])
		}
		outCard := costmodel.JoinOutputRows(lc.Cardinality, rc.Cardinality, sel)

		algo, jcost := costmodel.ChooseJoin(model, lc.Cardinality, rc.Cardinality, hasEqui)
		total := lc.Cost + rc.Cost + jcost

		if !found || total < result.Cost {
			result = Candidate{
				Mask:        mask,
				Cost:        total,
				Cardinality: outCard,
				Plan:        planString(algo, lc.Plan, rc.Plan, crossing),
			}
			found = true
		}
	}

	return result, found
}

// crossingPredicates returns the join predicates whose two tables sit one
// in left and one in right, regardless of which side each table is on.
func crossingPredicates(joins []JoinPred, index map[string]int, left, right uint32) []JoinPred {
	var out []JoinPred
	for _, jp := range joins {
		li, okL := index[jp.TableL]
		ri, okR := index[jp.TableR]
		if !okL || !okR {
			continue
		}
		lBit := uint32(1) << uint(li)
		rBit := uint32(1) << uint(ri)
		if (lBit&left != 0 && rBit&right != 0) || (lBit&right != 0 && rBit&left != 0) {
			out = append(out, jp)
		}
	}
	return out
}

func filterSelectivity(f FilterPred, ts TableStats) float64 {
	switch f.Op {
	case OpEq:
		return costmodel.EqualitySelectivity(ts.NDV[f.Col], ts.Rows)
	default:
		return costmodel.RangeSelectivity()
	}
}

func planString(algo costmodel.JoinAlgorithm, left, right string, preds []JoinPred) string {
	predList := "CROSS"
	if len(preds) > 0 {
		parts := make([]string, len(preds))
		for i, p := range preds {
			parts[i] = fmt.Sprintf("%s.%s=%s.%s", p.TableL, p.ColL, p.TableR, p.ColR)
		}
		predList = strings.Join(parts, " AND ")
	}
	return fmt.Sprintf("%s(%s) ⨝ [%s] (%s)", algo, left, predList, right)
}
