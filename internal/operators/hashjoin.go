package operators

import (
	"strconv"
	"strings"

	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/record"
)

// JoinType selects which standard relational join semantics a HashJoin
// applies once build and probe sides have been matched on key.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

// KeyPair names one equality term of a join's key: the index of the
// compared column on each side.
type KeyPair struct {
	LeftIndex  int
	RightIndex int
}

// HashJoin is an equi-join: the left child is fully materialized into a
// multimap keyed by the join-key tuple (the build phase), then the right
// child is streamed and probed against it.
type HashJoin struct {
	left, right Operator
	on          []KeyPair
	joinType    JoinType
	schema      []string
}

// NewHashJoin builds a hash join of left and right keyed by on. An empty
// key list is rejected: a hash join with no equi-predicate has no key to
// build on and should be a NestedLoopJoin instead.
func NewHashJoin(left, right Operator, on []KeyPair, joinType JoinType) (*HashJoin, error) {
	if len(on) == 0 {
		return nil, &errs.UsageError{Operation: "NewHashJoin", Message: "hash join requires at least one equi-predicate"}
	}
	schema := make([]string, 0, len(left.Schema())+len(right.Schema()))
	schema = append(schema, left.Schema()...)
	schema = append(schema, right.Schema()...)
	return &HashJoin{left: left, right: right, on: on, joinType: joinType, schema: schema}, nil
}

func (h *HashJoin) Schema() []string { return h.schema }

func (h *HashJoin) Execute() (RowSeq, error) {
	leftSeq, err := h.left.Execute()
	if err != nil {
		return nil, err
	}

	buildMap := make(map[string][]*buildEntry)
	var order []string
	for {
		row, err := leftSeq.Next()
		if err != nil {
			if err == errs.ErrEndOfRow {
				break
			}
			return nil, err
		}
		key := keyFor(row, leftIndices(h.on))
		if _, seen := buildMap[key]; !seen {
			order = append(order, key)
		}
		buildMap[key] = append(buildMap[key], &buildEntry{row: row})
	}

	rightSeq, err := h.right.Execute()
	if err != nil {
		return nil, err
	}

	return &hashJoinSeq{
		buildMap:   buildMap,
		order:      order,
		on:         h.on,
		right:      rightSeq,
		leftWidth:  len(h.left.Schema()),
		rightWidth: len(h.right.Schema()),
		joinType:   h.joinType,
	}, nil
}

type buildEntry struct {
	row     Row
	matched bool
}

type hashJoinSeq struct {
	buildMap   map[string][]*buildEntry
	order      []string
	on         []KeyPair
	right      RowSeq
	leftWidth  int
	rightWidth int
	joinType   JoinType

	pending     []Row
	rightDone   bool
	leftoverIdx int
}

func (s *hashJoinSeq) Next() (Row, error) {
	for {
		if len(s.pending) > 0 {
			row := s.pending[0]
			s.pending = s.pending[1:]
			return row, nil
		}
		if s.rightDone {
			return s.nextLeftover()
		}

		rightRow, err := s.right.Next()
		if err != nil {
			if err == errs.ErrEndOfRow {
				s.rightDone = true
				continue
			}
			return Row{}, err
		}

		key := keyFor(rightRow, rightIndices(s.on))
		entries := s.buildMap[key]
		if len(entries) == 0 {
			if s.joinType == JoinRight || s.joinType == JoinFull {
				s.pending = append(s.pending, combine(nullRow(s.leftWidth), rightRow))
			}
			continue
		}
		for _, e := range entries {
			e.matched = true
			s.pending = append(s.pending, combine(e.row, rightRow))
		}
	}
}

// nextLeftover emits, for Left/Full joins, the build-side rows that no
// probe row ever matched, padded with a null right side.
func (s *hashJoinSeq) nextLeftover() (Row, error) {
	if s.joinType != JoinLeft && s.joinType != JoinFull {
		return Row{}, errs.ErrEndOfRow
	}
	for s.leftoverIdx < len(s.order) {
		key := s.order[s.leftoverIdx]
		bucket := s.buildMap[key]
		for len(bucket) > 0 {
			e := bucket[0]
			bucket = bucket[1:]
			s.buildMap[key] = bucket
			if !e.matched {
				return combine(e.row, nullRow(s.rightWidth)), nil
			}
		}
		s.leftoverIdx++
	}
	return Row{}, errs.ErrEndOfRow
}

func leftIndices(on []KeyPair) []int {
	idx := make([]int, len(on))
	for i, kp := range on {
		idx[i] = kp.LeftIndex
	}
	return idx
}

func rightIndices(on []KeyPair) []int {
	idx := make([]int, len(on))
	for i, kp := range on {
		idx[i] = kp.RightIndex
	}
	return idx
}

// keyFor builds a canonical string key from the row's values at idxs,
// tagging each value with its Kind so a NULL, a 0, and a "" never collide.
func keyFor(row Row, idxs []int) string {
	var sb strings.Builder
	for _, i := range idxs {
		v := row.Values[i]
		sb.WriteByte(byte(v.Kind))
		sb.WriteByte(0)
		sb.WriteString(valueKeyPart(v))
		sb.WriteByte(0)
	}
	return sb.String()
}

func valueKeyPart(v record.ColumnValue) string {
	switch v.Kind {
	case record.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case record.KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case record.KindText:
		return v.Text
	case record.KindBlob:
		return string(v.Blob)
	default:
		return ""
	}
}
