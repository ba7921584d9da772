// Package wal parses a write-ahead-log file for the read-side: the
// 32-byte file header and each 24-byte frame header plus its page data,
// validating salts and the rolling checksum so only valid frames are
// surfaced. Frames are not grouped by commit: a valid frame after the last
// commit frame is surfaced as well. It never writes; there is no write
// path here.
package wal

import (
	"encoding/binary"

	"github.com/brightlane/pagewise/internal/errs"
)

const (
	// HeaderSize is the fixed size of the WAL file header.
	HeaderSize = 32
	// FrameHeaderSize is the fixed size of each frame header, preceding
	// PageSize bytes of page data.
	FrameHeaderSize = 24

	magic1 uint32 = 0x377f0682
	magic2 uint32 = 0x377f0683
)

// Header is the 32-byte WAL file header.
type Header struct {
	Magic          uint32
	FileFormat     uint32
	PageSize       uint32
	CheckpointSeq  uint32
	Salt1          uint32
	Salt2          uint32
	Checksum1      uint32
	Checksum2      uint32
	bigEndianCksum bool
}

// ParseHeader parses the 32-byte WAL header from buf.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, &errs.FormatError{Context: "wal header", Message: "buffer shorter than 32 bytes"}
	}
	h := &Header{
		Magic:         binary.BigEndian.Uint32(buf[0:4]),
		FileFormat:    binary.BigEndian.Uint32(buf[4:8]),
		PageSize:      binary.BigEndian.Uint32(buf[8:12]),
		CheckpointSeq: binary.BigEndian.Uint32(buf[12:16]),
		Salt1:         binary.BigEndian.Uint32(buf[16:20]),
		Salt2:         binary.BigEndian.Uint32(buf[20:24]),
		Checksum1:     binary.BigEndian.Uint32(buf[24:28]),
		Checksum2:     binary.BigEndian.Uint32(buf[28:32]),
	}
	if h.Magic != magic1 && h.Magic != magic2 {
		return nil, &errs.FormatError{Context: "wal header", Message: "bad magic"}
	}
	h.bigEndianCksum = h.Magic == magic2
	return h, nil
}

// FrameHeader is the 24-byte header preceding each frame's page data.
type FrameHeader struct {
	PageNumber       uint32
	DBSizeAfterCommit uint32 // nonzero only on a commit frame
	Salt1            uint32
	Salt2            uint32
	Checksum1        uint32
	Checksum2        uint32
}

// Frame is one parsed, checksum-validated WAL frame.
type Frame struct {
	Header FrameHeader
	Page   []byte
}

// Reader is the deterministic, read-only parse of a WAL file: a map from
// page number to the bytes of the most recent valid frame for that page.
// Parsing stops at the first frame whose salts or checksum don't match;
// that is not an error, it's simply the end of the valid log.
type Reader struct {
	Header *Header
	Frames []Frame
	byPage map[uint32][]byte
}

// Parse parses a full WAL file's bytes: the header followed by zero or
// more frames, each the fixed 24-byte frame header plus pageSize bytes of
// data (pageSize comes from the WAL header).
func Parse(buf []byte) (*Reader, error) {
	header, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}

	r := &Reader{Header: header, byPage: make(map[uint32][]byte)}
	cksum1, cksum2 := runningChecksum(header.bigEndianCksum, 0, 0, buf[:HeaderSize-8])

	pos := HeaderSize
	frameSize := FrameHeaderSize + int(header.PageSize)
	for pos+frameSize <= len(buf) {
		fh := buf[pos : pos+FrameHeaderSize]
		pageData := buf[pos+FrameHeaderSize : pos+frameSize]

		fr := FrameHeader{
			PageNumber:        binary.BigEndian.Uint32(fh[0:4]),
			DBSizeAfterCommit: binary.BigEndian.Uint32(fh[4:8]),
			Salt1:             binary.BigEndian.Uint32(fh[8:12]),
			Salt2:             binary.BigEndian.Uint32(fh[12:16]),
			Checksum1:         binary.BigEndian.Uint32(fh[16:20]),
			Checksum2:         binary.BigEndian.Uint32(fh[20:24]),
		}

		if fr.Salt1 != header.Salt1 || fr.Salt2 != header.Salt2 {
			break
		}

		runCksum1, runCksum2 := runningChecksum(header.bigEndianCksum, cksum1, cksum2, fh[:8])
		runCksum1, runCksum2 = runningChecksum(header.bigEndianCksum, runCksum1, runCksum2, pageData)
		if runCksum1 != fr.Checksum1 || runCksum2 != fr.Checksum2 {
			break
		}
		cksum1, cksum2 = runCksum1, runCksum2

		page := make([]byte, len(pageData))
		copy(page, pageData)
		r.Frames = append(r.Frames, Frame{Header: fr, Page: page})
		r.byPage[fr.PageNumber] = page

		pos += frameSize
	}

	return r, nil
}

// PageBytes returns the bytes of the most recent valid frame for pageID,
// if the WAL contains one.
func (r *Reader) PageBytes(pageID uint32) ([]byte, bool) {
	b, ok := r.byPage[pageID]
	return b, ok
}

// runningChecksum extends the SQLite WAL rolling checksum (a pair of
// 32-bit accumulators over successive 8-byte words, each half read in the
// byte order the header magic selects) across data, whose length must be a
// multiple of 8; any trailing partial word is ignored.
func runningChecksum(bigEndian bool, s0, s1 uint32, data []byte) (uint32, uint32) {
	for i := 0; i+8 <= len(data); i += 8 {
		var x0, x1 uint32
		if bigEndian {
			x0 = binary.BigEndian.Uint32(data[i : i+4])
			x1 = binary.BigEndian.Uint32(data[i+4 : i+8])
		} else {
			x0 = binary.LittleEndian.Uint32(data[i : i+4])
			x1 = binary.LittleEndian.Uint32(data[i+4 : i+8])
		}
		s0 += x0 + s1
		s1 += x1 + s0
	}
	return s0, s1
}
