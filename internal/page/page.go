// Package page parses SQLite-compatible B-tree pages: the database file
// header, the page header, and the cell-pointer array. It knows nothing
// about join planning or cursors — it is the byte-layer component that C3
// (record parsing), C4 (schema), and C7 (the B-tree cursor) all build on.
package page

import (
	"encoding/binary"
	"fmt"

	"github.com/brightlane/pagewise/internal/errs"
)

// Type identifies one of the four B-tree page kinds.
type Type byte

const (
	TypeInteriorIndex Type = 2
	TypeInteriorTable Type = 5
	TypeLeafIndex     Type = 10
	TypeLeafTable     Type = 13
)

func (t Type) String() string {
	switch t {
	case TypeInteriorIndex:
		return "interior-index"
	case TypeInteriorTable:
		return "interior-table"
	case TypeLeafIndex:
		return "leaf-index"
	case TypeLeafTable:
		return "leaf-table"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

func (t Type) valid() bool {
	switch t {
	case TypeInteriorIndex, TypeInteriorTable, TypeLeafIndex, TypeLeafTable:
		return true
	}
	return false
}

func (t Type) IsLeaf() bool {
	return t == TypeLeafIndex || t == TypeLeafTable
}

func (t Type) IsInterior() bool {
	return t == TypeInteriorIndex || t == TypeInteriorTable
}

func (t Type) IsTable() bool {
	return t == TypeInteriorTable || t == TypeLeafTable
}

// Header field offsets, relative to the start of the page header (which
// itself starts 100 bytes into page 1, and at offset 0 elsewhere).
const (
	offType            = 0
	offFirstFreeblock  = 1
	offNumberOfCells   = 3
	offContentStart    = 5
	offFragmentedBytes = 7
	offRightChild      = 8 // interior pages only

	HeaderSizeLeaf     = 8
	HeaderSizeInterior = 12
)

// Header is the parsed B-tree page header.
type Header struct {
	PageType            Type
	FirstFreeBlock      uint16
	NumberOfCells       uint16
	ContentStartOffset  uint16 // 0 means 65536
	FragmentedFreeBytes byte
	RightChildPage      uint32 // present iff PageType.IsInterior()

	headerOffset  int // 100 for page 1, 0 otherwise
	headerSize    int // 8 or 12
	cellPtrOffset int // headerOffset + headerSize
}

// ParseHeader parses the B-tree page header out of a raw page buffer.
// pageID is used only to detect page 1's 100-byte file header prefix.
func ParseHeader(buf []byte, pageID uint32) (*Header, error) {
	headerOffset := 0
	if pageID == 1 {
		headerOffset = DatabaseHeaderSize
	}
	if len(buf) < headerOffset+HeaderSizeLeaf {
		return nil, &errs.FormatError{Context: "page header", Message: "buffer too small"}
	}

	h := &Header{headerOffset: headerOffset}
	h.PageType = Type(buf[headerOffset+offType])
	if !h.PageType.valid() {
		return nil, &errs.CorruptError{PageID: pageID, Message: fmt.Sprintf("invalid page type 0x%02x", buf[headerOffset+offType])}
	}
	h.FirstFreeBlock = binary.BigEndian.Uint16(buf[headerOffset+offFirstFreeblock:])
	h.NumberOfCells = binary.BigEndian.Uint16(buf[headerOffset+offNumberOfCells:])
	h.ContentStartOffset = binary.BigEndian.Uint16(buf[headerOffset+offContentStart:])
	h.FragmentedFreeBytes = buf[headerOffset+offFragmentedBytes]

	if h.PageType.IsInterior() {
		if len(buf) < headerOffset+HeaderSizeInterior {
			return nil, &errs.FormatError{Context: "page header", Message: "interior page buffer too small"}
		}
		h.RightChildPage = binary.BigEndian.Uint32(buf[headerOffset+offRightChild:])
		h.headerSize = HeaderSizeInterior
	} else {
		h.headerSize = HeaderSizeLeaf
	}
	h.cellPtrOffset = headerOffset + h.headerSize

	contentStart := int(h.ContentStartOffset)
	if contentStart == 0 {
		contentStart = 65536
	}
	if int(h.NumberOfCells)*2+h.cellPtrOffset > contentStart {
		return nil, &errs.CorruptError{PageID: pageID, Message: "cell pointer array overruns content area"}
	}

	return h, nil
}

func (h *Header) IsLeaf() bool     { return h.PageType.IsLeaf() }
func (h *Header) IsInterior() bool { return h.PageType.IsInterior() }
func (h *Header) HeaderSize() int  { return h.headerSize }

// CellPointer returns the offset, within the same page buffer, of the
// i-th cell.
func (h *Header) CellPointer(buf []byte, i int) (uint16, error) {
	if i < 0 || i >= int(h.NumberOfCells) {
		return 0, &errs.UsageError{Operation: "CellPointer", Message: fmt.Sprintf("index %d out of range [0,%d)", i, h.NumberOfCells)}
	}
	off := h.cellPtrOffset + i*2
	if off+2 > len(buf) {
		return 0, &errs.CorruptError{Message: "cell pointer offset out of bounds"}
	}
	ptr := binary.BigEndian.Uint16(buf[off:])
	pageSize := len(buf)
	if int(ptr) < h.cellPointerFloor() || int(ptr) >= pageSize {
		return 0, &errs.CorruptError{Message: fmt.Sprintf("cell pointer %d outside page", ptr)}
	}
	return ptr, nil
}

// cellPointerFloor is the lowest legal cell-pointer value: the start of
// the content area, which sits at or after the cell-pointer array itself.
func (h *Header) cellPointerFloor() int {
	if h.ContentStartOffset == 0 {
		return 65536
	}
	return int(h.ContentStartOffset)
}

// ChildPageAt reads the 4-byte big-endian child page number at the start
// of the cell at index i. Only valid on interior pages.
func (h *Header) ChildPageAt(buf []byte, i int) (uint32, error) {
	if !h.IsInterior() {
		return 0, &errs.UsageError{Operation: "ChildPageAt", Message: "not an interior page"}
	}
	off, err := h.CellPointer(buf, i)
	if err != nil {
		return 0, err
	}
	if int(off)+4 > len(buf) {
		return 0, &errs.CorruptError{Message: "truncated interior cell"}
	}
	return binary.BigEndian.Uint32(buf[off:]), nil
}

// Page wraps a raw, immutable-once-loaded page buffer together with its
// parsed header.
type Page struct {
	ID     uint32
	Buf    []byte
	Header *Header
}

// Parse parses a raw page buffer into a Page.
func Parse(id uint32, buf []byte) (*Page, error) {
	h, err := ParseHeader(buf, id)
	if err != nil {
		return nil, err
	}
	return &Page{ID: id, Buf: buf, Header: h}, nil
}

func (p *Page) IsLeaf() bool             { return p.Header.IsLeaf() }
func (p *Page) IsInterior() bool         { return p.Header.IsInterior() }
func (p *Page) NumberOfCells() int       { return int(p.Header.NumberOfCells) }
func (p *Page) CellPointer(i int) (uint16, error) { return p.Header.CellPointer(p.Buf, i) }
func (p *Page) ChildPageAt(i int) (uint32, error) { return p.Header.ChildPageAt(p.Buf, i) }
func (p *Page) RightChild() uint32       { return p.Header.RightChildPage }

// CellBytes returns the raw bytes of the page starting at the i-th cell's
// pointer, for cell-body decoding by the record/btree layers.
func (p *Page) CellBytes(i int) ([]byte, error) {
	off, err := p.CellPointer(i)
	if err != nil {
		return nil, err
	}
	return p.Buf[off:], nil
}
