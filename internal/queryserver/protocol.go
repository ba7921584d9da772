// Package queryserver exposes the physical operator tree over a
// WebSocket: a client sends a JSON-described logical plan, the server
// plans and executes it against an already-open database, and streams
// the resulting rows back as JSON messages.
package queryserver

import (
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/operators"
	"github.com/brightlane/pagewise/internal/planner"
)

// PlanNode is the wire representation of one planner.LogicalNode. Type
// selects which of the other fields apply: "scan", "projection", or
// "join".
type PlanNode struct {
	Type string `json:"type"`

	// scan
	Table string `json:"table,omitempty"`

	// projection
	Child   *PlanNode `json:"child,omitempty"`
	Columns []int     `json:"columns,omitempty"`
	Names   []string  `json:"names,omitempty"`

	// join
	Left  *PlanNode    `json:"left,omitempty"`
	Right *PlanNode    `json:"right,omitempty"`
	On    []ColumnPair `json:"on,omitempty"`
	Kind  string       `json:"kind,omitempty"` // "inner", "left", "right", "full"
}

// ColumnPair is the wire form of planner.ColumnPair.
type ColumnPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// RowMessage carries one result row.
type RowMessage struct {
	Type   string   `json:"type"`
	RowID  int64    `json:"row_id"`
	Values []string `json:"values"`
}

// DoneMessage signals that every row has been sent.
type DoneMessage struct {
	Type     string `json:"type"`
	RowCount int    `json:"row_count"`
}

// ErrorMessage reports a planning or execution failure.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ToLogicalNode converts the wire PlanNode into a planner.LogicalNode,
// rejecting any node whose Type isn't recognized rather than panicking.
func (n *PlanNode) ToLogicalNode() (planner.LogicalNode, error) {
	if n == nil {
		return nil, &errs.UsageError{Operation: "ToLogicalNode", Message: "nil plan node"}
	}
	switch n.Type {
	case "scan":
		if n.Table == "" {
			return nil, &errs.UsageError{Operation: "ToLogicalNode", Message: "scan node missing table name"}
		}
		return planner.TableScan{Table: n.Table}, nil

	case "projection":
		child, err := n.Child.ToLogicalNode()
		if err != nil {
			return nil, err
		}
		if len(n.Columns) != len(n.Names) {
			return nil, &errs.UsageError{Operation: "ToLogicalNode", Message: "projection columns and names length mismatch"}
		}
		exprs := make([]operators.Expr, len(n.Columns))
		for i, idx := range n.Columns {
			exprs[i] = operators.ColumnRef{Index: idx}
		}
		return planner.Projection{Child: child, Exprs: exprs, Names: n.Names}, nil

	case "join":
		left, err := n.Left.ToLogicalNode()
		if err != nil {
			return nil, err
		}
		right, err := n.Right.ToLogicalNode()
		if err != nil {
			return nil, err
		}
		pairs := make([]planner.ColumnPair, len(n.On))
		for i, p := range n.On {
			pairs[i] = planner.ColumnPair{LeftColumn: p.Left, RightColumn: p.Right}
		}
		joinType, err := parseJoinKind(n.Kind)
		if err != nil {
			return nil, err
		}
		return planner.Join{Left: left, Right: right, On: pairs, Type: joinType}, nil

	default:
		return nil, &errs.UsageError{Operation: "ToLogicalNode", Message: "unrecognized plan node type " + n.Type}
	}
}

func parseJoinKind(kind string) (operators.JoinType, error) {
	switch kind {
	case "", "inner":
		return operators.JoinInner, nil
	case "left":
		return operators.JoinLeft, nil
	case "right":
		return operators.JoinRight, nil
	case "full":
		return operators.JoinFull, nil
	default:
		return 0, &errs.UsageError{Operation: "parseJoinKind", Message: "unrecognized join kind " + kind}
	}
}
