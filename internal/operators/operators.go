// Package operators implements pull-based physical execution: Scan,
// Projection, HashJoin, and NestedLoopJoin. Every operator exposes a
// Schema computed at construction and an Execute that returns a lazy,
// single-pass RowSeq; nothing materializes more than one row at a time
// except a hash join's build side.
package operators

import (
	"github.com/brightlane/pagewise/internal/btree"
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/record"
)

// Row is one tuple flowing between operators: a rowid carried along for
// identity (as a table b-tree cursor would supply it) and its column
// values in schema order.
type Row struct {
	RowID  int64
	Values []record.ColumnValue
}

// RowSeq is a lazy, single-pass, non-restartable sequence of rows. Next
// returns errs.ErrEndOfRow (not a distinguished Go error type) once the
// sequence is exhausted; any other error is a genuine execution failure.
type RowSeq interface {
	Next() (Row, error)
}

// Operator is the minimal capability set every physical operator
// implements: a field list fixed at construction and a pull-based
// execution that produces rows lazily.
type Operator interface {
	Schema() []string
	Execute() (RowSeq, error)
}

// Scan reads every row of one table's B-tree in cursor order.
type Scan struct {
	tableName string
	rootPage  uint32
	db        *btree.Database
	columns   []string
}

// NewScan builds a full-table-scan operator. columns names the table's
// declared columns in storage order, becoming this operator's schema.
func NewScan(tableName string, rootPage uint32, db *btree.Database, columns []string) *Scan {
	return &Scan{tableName: tableName, rootPage: rootPage, db: db, columns: columns}
}

func (s *Scan) Schema() []string { return s.columns }

func (s *Scan) Execute() (RowSeq, error) {
	cur := btree.NewCursor(s.db, s.rootPage)
	if err := cur.MoveToFirst(); err != nil {
		return nil, err
	}
	return &scanSeq{cur: cur}, nil
}

type scanSeq struct {
	cur *btree.Cursor
}

func (s *scanSeq) Next() (Row, error) {
	if !s.cur.Valid() {
		return Row{}, errs.ErrEndOfRow
	}
	rec, err := s.cur.Record()
	if err != nil {
		return Row{}, err
	}
	row := Row{RowID: rec.RowID, Values: rec.Columns}
	if err := s.cur.Next(); err != nil && err != errs.ErrEndOfRow {
		return Row{}, err
	}
	return row, nil
}

// nullRow builds a row of the given width whose every value is SQL NULL,
// used to pad the non-matching side of an outer join.
func nullRow(width int) Row {
	vals := make([]record.ColumnValue, width)
	for i := range vals {
		vals[i] = record.ColumnValue{Kind: record.KindNull}
	}
	return Row{Values: vals}
}

// combine concatenates a left row's values with a right row's, left
// fields first, carrying the left row's rowid forward as the combined
// row's identity.
func combine(left, right Row) Row {
	values := make([]record.ColumnValue, 0, len(left.Values)+len(right.Values))
	values = append(values, left.Values...)
	values = append(values, right.Values...)
	return Row{RowID: left.RowID, Values: values}
}
