package operators

import "github.com/brightlane/pagewise/internal/errs"

// Predicate tests whether a left and right row combination belongs in a
// nested-loop join's output. A nil predicate always matches, producing a
// full cross join.
type Predicate func(left, right Row) bool

// NestedLoopJoin emits every (outer row, inner row) combination the
// predicate accepts, re-scanning the inner child once per outer row. It
// is the only join this core uses for predicates that aren't a pure
// equi-join, and for plain cross joins.
type NestedLoopJoin struct {
	left, right Operator
	pred        Predicate
	schema      []string
}

// NewNestedLoopJoin builds a nested-loop join of left and right. A nil
// pred produces a cross join.
func NewNestedLoopJoin(left, right Operator, pred Predicate) *NestedLoopJoin {
	schema := make([]string, 0, len(left.Schema())+len(right.Schema()))
	schema = append(schema, left.Schema()...)
	schema = append(schema, right.Schema()...)
	return &NestedLoopJoin{left: left, right: right, pred: pred, schema: schema}
}

func (n *NestedLoopJoin) Schema() []string { return n.schema }

func (n *NestedLoopJoin) Execute() (RowSeq, error) {
	outerSeq, err := n.left.Execute()
	if err != nil {
		return nil, err
	}
	return &nestedLoopSeq{outerSeq: outerSeq, openInner: n.right.Execute, pred: n.pred}, nil
}

type nestedLoopSeq struct {
	outerSeq  RowSeq
	openInner func() (RowSeq, error)
	pred      Predicate

	haveOuter bool
	curOuter  Row
	curInner  RowSeq
}

func (s *nestedLoopSeq) Next() (Row, error) {
	for {
		if !s.haveOuter {
			row, err := s.outerSeq.Next()
			if err != nil {
				return Row{}, err
			}
			inner, err := s.openInner()
			if err != nil {
				return Row{}, err
			}
			s.curOuter = row
			s.curInner = inner
			s.haveOuter = true
		}

		innerRow, err := s.curInner.Next()
		if err != nil {
			if err == errs.ErrEndOfRow {
				s.haveOuter = false
				continue
			}
			return Row{}, err
		}

		if s.pred == nil || s.pred(s.curOuter, innerRow) {
			return combine(s.curOuter, innerRow), nil
		}
	}
}
