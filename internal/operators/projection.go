package operators

import "github.com/brightlane/pagewise/internal/record"

// Expr is a row-to-ColumnValue expression a Projection evaluates per
// input row. The core supports exactly two variants: a fixed-position
// column reference and a constant literal.
type Expr interface {
	Eval(row Row) record.ColumnValue
}

// ColumnRef returns the value at a fixed index of the input row.
type ColumnRef struct {
	Index int
}

func (c ColumnRef) Eval(row Row) record.ColumnValue { return row.Values[c.Index] }

// Literal returns a fixed constant regardless of the input row.
type Literal struct {
	Value record.ColumnValue
}

func (l Literal) Eval(Row) record.ColumnValue { return l.Value }

// Projection evaluates a fixed list of expressions against each row its
// child produces, emitting a new row with the same rowid.
type Projection struct {
	child Operator
	exprs []Expr
	names []string
}

// NewProjection builds a projection of exprs over child, labeled by
// names (same length and order as exprs).
func NewProjection(child Operator, exprs []Expr, names []string) *Projection {
	return &Projection{child: child, exprs: exprs, names: names}
}

func (p *Projection) Schema() []string { return p.names }

func (p *Projection) Execute() (RowSeq, error) {
	childSeq, err := p.child.Execute()
	if err != nil {
		return nil, err
	}
	return &projectionSeq{child: childSeq, exprs: p.exprs}, nil
}

type projectionSeq struct {
	child RowSeq
	exprs []Expr
}

func (s *projectionSeq) Next() (Row, error) {
	row, err := s.child.Next()
	if err != nil {
		return Row{}, err
	}
	values := make([]record.ColumnValue, len(s.exprs))
	for i, e := range s.exprs {
		values[i] = e.Eval(row)
	}
	return Row{RowID: row.RowID, Values: values}, nil
}
