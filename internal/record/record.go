// Package record decodes SQLite record payloads into typed column values.
// A record is a header of serial-type varints (prefixed by the header's
// own total length) followed by the value bytes those serial types
// describe.
package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/varint"
)

// Kind tags the variant held by a ColumnValue.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindText
	KindBlob
)

// ColumnValue is one decoded record field.
type ColumnValue struct {
	Kind Kind
	Int  int64
	Float float64
	Text  string
	Blob  []byte
}

func (c ColumnValue) String() string {
	switch c.Kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return fmt.Sprintf("%d", c.Int)
	case KindFloat:
		return fmt.Sprintf("%v", c.Float)
	case KindText:
		return c.Text
	case KindBlob:
		return fmt.Sprintf("blob(%d)", len(c.Blob))
	default:
		return "?"
	}
}

// IsNull reports whether the value is SQL NULL.
func (c ColumnValue) IsNull() bool { return c.Kind == KindNull }

var nullValue = ColumnValue{Kind: KindNull}

// Record is an ordered sequence of column values decoded from a payload,
// plus the rowid the cursor supplied (table b-trees carry the rowid
// outside the record itself).
type Record struct {
	RowID   int64
	Columns []ColumnValue
}

// Parse decodes a record payload: a header (total-length varint followed
// by one serial-type varint per column) followed by the value bytes the
// serial types describe, in the same order.
func Parse(payload []byte, rowID int64) (*Record, error) {
	headerLen, n, err := varint.Decode(payload)
	if err != nil {
		return nil, &errs.FormatError{Context: "record header", Message: "truncated header-length varint", Err: err}
	}
	if headerLen < int64(n) || int(headerLen) > len(payload) {
		return nil, &errs.FormatError{Context: "record header", Message: "header length out of range"}
	}

	var serialTypes []int64
	pos := n
	for pos < int(headerLen) {
		st, sn, err := varint.Decode(payload[pos:])
		if err != nil {
			return nil, &errs.FormatError{Context: "record header", Message: "truncated serial-type varint", Err: err}
		}
		serialTypes = append(serialTypes, st)
		pos += sn
	}
	if pos != int(headerLen) {
		return nil, &errs.FormatError{Context: "record header", Message: "serial types overran declared header length"}
	}

	cols := make([]ColumnValue, len(serialTypes))
	dataPos := int(headerLen)
	for i, st := range serialTypes {
		v, width, err := decodeValue(st, payload, dataPos)
		if err != nil {
			return nil, err
		}
		cols[i] = v
		dataPos += width
	}

	return &Record{RowID: rowID, Columns: cols}, nil
}

// decodeValue decodes one column value at payload[pos:] given its serial
// type code, returning the value and the number of bytes of payload it
// consumed.
func decodeValue(serial int64, payload []byte, pos int) (ColumnValue, int, error) {
	switch {
	case serial == 0:
		return nullValue, 0, nil
	case serial >= 1 && serial <= 6:
		width := []int{1, 2, 3, 4, 6, 8}[serial-1]
		if pos+width > len(payload) {
			return ColumnValue{}, 0, &errs.FormatError{Context: "record value", Message: "truncated integer value"}
		}
		return ColumnValue{Kind: KindInt, Int: decodeSignedInt(payload[pos : pos+width])}, width, nil
	case serial == 7:
		if pos+8 > len(payload) {
			return ColumnValue{}, 0, &errs.FormatError{Context: "record value", Message: "truncated float value"}
		}
		bits := binary.BigEndian.Uint64(payload[pos : pos+8])
		return ColumnValue{Kind: KindFloat, Float: math.Float64frombits(bits)}, 8, nil
	case serial == 8:
		return ColumnValue{Kind: KindInt, Int: 0}, 0, nil
	case serial == 9:
		return ColumnValue{Kind: KindInt, Int: 1}, 0, nil
	case serial >= 12 && serial%2 == 0:
		width := int((serial - 12) / 2)
		if pos+width > len(payload) {
			return ColumnValue{}, 0, &errs.FormatError{Context: "record value", Message: "truncated blob value"}
		}
		blob := make([]byte, width)
		copy(blob, payload[pos:pos+width])
		return ColumnValue{Kind: KindBlob, Blob: blob}, width, nil
	case serial >= 13 && serial%2 == 1:
		width := int((serial - 13) / 2)
		if pos+width > len(payload) {
			return ColumnValue{}, 0, &errs.FormatError{Context: "record value", Message: "truncated text value"}
		}
		raw := payload[pos : pos+width]
		var sb strings.Builder
		sb.Grow(width)
		for len(raw) > 0 {
			r, size := utf8.DecodeRune(raw)
			sb.WriteRune(r) // utf8.DecodeRune already substitutes utf8.RuneError for invalid sequences
			raw = raw[size:]
		}
		return ColumnValue{Kind: KindText, Text: sb.String()}, width, nil
	default:
		return ColumnValue{}, 0, &errs.FormatError{Context: "record value", Message: fmt.Sprintf("reserved or out-of-range serial type %d", serial)}
	}
}

// decodeSignedInt sign-extends a big-endian two's-complement integer of
// the given width (1, 2, 3, 4, 6, or 8 bytes) into an int64.
func decodeSignedInt(b []byte) int64 {
	var u uint64
	for _, by := range b {
		u = (u << 8) | uint64(by)
	}
	shift := uint(64 - 8*len(b))
	return int64(u<<shift) >> shift
}
