// Package planner translates a logical plan tree into a tree of physical
// operators (internal/operators). It never panics on an unrecognized
// logical node; that is reported as a typed planning error instead.
package planner

import (
	"fmt"

	"github.com/brightlane/pagewise/internal/btree"
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/operators"
	"github.com/brightlane/pagewise/internal/schema"
)

// LogicalNode is the tagged-variant interface every logical plan node
// implements. It carries no behavior of its own; Plan switches on the
// concrete type.
type LogicalNode interface {
	isLogicalNode()
}

// TableScan names a table to be read in full.
type TableScan struct {
	Table string
}

func (TableScan) isLogicalNode() {}

// Projection evaluates exprs over its child's output rows.
type Projection struct {
	Child LogicalNode
	Exprs []operators.Expr
	Names []string
}

func (Projection) isLogicalNode() {}

// Join combines two logical subtrees. On lists the equi-join key pairs
// (by column name on each side); an empty On means no known equi-join
// key, which the planner routes to a nested-loop cross join.
type Join struct {
	Left, Right LogicalNode
	On          []ColumnPair
	Type        operators.JoinType
}

func (Join) isLogicalNode() {}

// ColumnPair names one equi-join term by column name, resolved against
// each side's schema when the join is planned.
type ColumnPair struct {
	LeftColumn  string
	RightColumn string
}

// Plan recursively translates a logical tree into a physical operator
// tree, looking up table root pages and columns from cat.
func Plan(node LogicalNode, cat *schema.Catalog, db *btree.Database) (operators.Operator, error) {
	switch n := node.(type) {
	case TableScan:
		obj, err := cat.Lookup(n.Table)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(obj.Columns))
		for i, c := range obj.Columns {
			names[i] = c.Name
		}
		return operators.NewScan(n.Table, obj.RootPage, db, names), nil

	case Projection:
		child, err := Plan(n.Child, cat, db)
		if err != nil {
			return nil, err
		}
		return operators.NewProjection(child, n.Exprs, n.Names), nil

	case Join:
		left, err := Plan(n.Left, cat, db)
		if err != nil {
			return nil, err
		}
		right, err := Plan(n.Right, cat, db)
		if err != nil {
			return nil, err
		}

		keys, ok := resolveKeyPairs(left.Schema(), right.Schema(), n.On)
		if !ok || len(keys) == 0 {
			return operators.NewNestedLoopJoin(left, right, nil), nil
		}
		return operators.NewHashJoin(left, right, keys, n.Type)

	default:
		return nil, &errs.UsageError{Operation: "Plan", Message: fmt.Sprintf("unrecognized logical node type %T", node)}
	}
}

// resolveKeyPairs maps each ColumnPair's column names to their positions
// in the two child schemas. ok is false if any named column doesn't
// appear on its side, which the caller treats as "no equi-join key".
func resolveKeyPairs(leftSchema, rightSchema []string, pairs []ColumnPair) ([]operators.KeyPair, bool) {
	keys := make([]operators.KeyPair, 0, len(pairs))
	for _, p := range pairs {
		li := indexOf(leftSchema, p.LeftColumn)
		ri := indexOf(rightSchema, p.RightColumn)
		if li < 0 || ri < 0 {
			return nil, false
		}
		keys = append(keys, operators.KeyPair{LeftIndex: li, RightIndex: ri})
	}
	return keys, true
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
