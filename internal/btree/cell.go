package btree

import (
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/varint"
)

// parseLeafTableCell decodes a LeafTable cell: a varint payload size, a
// varint rowid, then that many bytes of record payload.
//
// Overflow pages are not supported: when a cell's declared payload size
// extends past the bytes actually present in the page (the hallmark of a
// payload that spilled to an overflow chain), that is reported as a
// corrupt-page error rather than followed.
func parseLeafTableCell(buf []byte) (rowID int64, payload []byte, err error) {
	size, n1, err := varint.Decode(buf)
	if err != nil {
		return 0, nil, err
	}
	rowID, n2, err := varint.Decode(buf[n1:])
	if err != nil {
		return 0, nil, err
	}
	start := n1 + n2
	end := start + int(size)
	if size < 0 || end > len(buf) {
		return 0, nil, &errs.CorruptError{Message: "leaf table cell payload extends past page bounds (overflow pages unsupported)"}
	}
	return rowID, buf[start:end], nil
}
