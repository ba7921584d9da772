package page

import (
	"encoding/binary"

	"github.com/brightlane/pagewise/internal/errs"
)

// Magic is the 16-byte string every SQLite-compatible file begins with.
const Magic = "SQLite format 3\x00"

// DatabaseHeaderSize is the fixed size of the file header at the start of
// page 1.
const DatabaseHeaderSize = 100

// DatabaseHeader is the 100-byte header present at the start of every
// SQLite-compatible database file.
type DatabaseHeader struct {
	PageSize         uint32 // offset 16, 16-bit BE (1 means 65536)
	FileFormatWrite  byte
	FileFormatRead   byte
	ReservedPerPage  byte
	MaxEmbeddedFrac  byte
	MinEmbeddedFrac  byte
	LeafFrac         byte
	FileChangeCount  uint32
	DatabaseSize     uint32 // pages, offset 28
	FreelistTrunk    uint32
	FreelistPages    uint32
	SchemaCookie     uint32
	SchemaFormat     uint32
	DefaultPageCache uint32
	LargestRootPage  uint32
	TextEncoding     uint32
	UserVersion      uint32
	IncrementalVac   uint32
	ApplicationID    uint32
	VersionValidFor  uint32
	SQLiteVersion    uint32
}

// ParseDatabaseHeader parses the 100-byte file header from the start of
// page 1. buf must contain at least DatabaseHeaderSize bytes.
func ParseDatabaseHeader(buf []byte) (*DatabaseHeader, error) {
	if len(buf) < DatabaseHeaderSize {
		return nil, &errs.FormatError{Context: "database header", Message: "buffer shorter than 100 bytes"}
	}
	if string(buf[0:16]) != Magic {
		return nil, &errs.FormatError{Context: "database header", Message: "bad magic string"}
	}

	h := &DatabaseHeader{}
	rawPageSize := binary.BigEndian.Uint16(buf[16:18])
	if rawPageSize == 1 {
		h.PageSize = 65536
	} else {
		h.PageSize = uint32(rawPageSize)
	}
	h.FileFormatWrite = buf[18]
	h.FileFormatRead = buf[19]
	h.ReservedPerPage = buf[20]
	h.MaxEmbeddedFrac = buf[21]
	h.MinEmbeddedFrac = buf[22]
	h.LeafFrac = buf[23]
	h.FileChangeCount = binary.BigEndian.Uint32(buf[24:28])
	h.DatabaseSize = binary.BigEndian.Uint32(buf[28:32])
	h.FreelistTrunk = binary.BigEndian.Uint32(buf[32:36])
	h.FreelistPages = binary.BigEndian.Uint32(buf[36:40])
	h.SchemaCookie = binary.BigEndian.Uint32(buf[40:44])
	h.SchemaFormat = binary.BigEndian.Uint32(buf[44:48])
	h.DefaultPageCache = binary.BigEndian.Uint32(buf[48:52])
	h.LargestRootPage = binary.BigEndian.Uint32(buf[52:56])
	h.TextEncoding = binary.BigEndian.Uint32(buf[56:60])
	h.UserVersion = binary.BigEndian.Uint32(buf[60:64])
	h.IncrementalVac = binary.BigEndian.Uint32(buf[64:68])
	h.ApplicationID = binary.BigEndian.Uint32(buf[68:72])
	h.VersionValidFor = binary.BigEndian.Uint32(buf[92:96])
	h.SQLiteVersion = binary.BigEndian.Uint32(buf[96:100])
	return h, nil
}

// UsableSize returns the number of bytes per page usable for content,
// i.e. PageSize minus any reserved space at the end of each page.
func (h *DatabaseHeader) UsableSize() uint32 {
	return h.PageSize - uint32(h.ReservedPerPage)
}
