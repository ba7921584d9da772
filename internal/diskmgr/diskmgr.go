// Package diskmgr provides byte-level page read/write over a single
// on-disk database file. It knows nothing about page formats or caching;
// it is the bottom of the read stack that internal/bufpool sits on top of.
package diskmgr

import (
	"io"
	"os"

	"github.com/brightlane/pagewise/internal/errs"
)

// Manager reads and writes fixed-size pages from one open file. PageSize
// is fixed for the lifetime of a Manager.
type Manager struct {
	file     *os.File
	pageSize uint32
}

// Open opens path for page-level access with the given page size.
func Open(path string, pageSize uint32) (*Manager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.IOError{Operation: "open", Path: path, Err: err}
	}
	return &Manager{file: f, pageSize: pageSize}, nil
}

// OpenFile wraps an already-open file, taking ownership of it.
func OpenFile(f *os.File, pageSize uint32) *Manager {
	return &Manager{file: f, pageSize: pageSize}
}

// PageSize returns the fixed page size this manager was opened with.
func (m *Manager) PageSize() uint32 { return m.pageSize }

// ReadPage reads exactly PageSize bytes for the given 1-based page id at
// offset (pageID-1)*PageSize, returning a freshly owned buffer.
func (m *Manager) ReadPage(pageID uint32) ([]byte, error) {
	if pageID == 0 {
		return nil, &errs.UsageError{Operation: "ReadPage", Message: "page id 0 is reserved/invalid"}
	}
	offset := int64(pageID-1) * int64(m.pageSize)
	buf := make([]byte, m.pageSize)
	n, err := m.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, &errs.IOError{Operation: "read", Path: m.file.Name(), Err: err}
	}
	if uint32(n) != m.pageSize {
		return nil, &errs.IOError{Operation: "read", Path: m.file.Name(), Err: io.ErrUnexpectedEOF}
	}
	return buf, nil
}

// WritePage writes exactly len(data) bytes (which must equal PageSize) at
// the offset for pageID. Out of scope for the read-only core but kept for
// symmetry with the disk manager the buffer pool's flush path targets.
func (m *Manager) WritePage(pageID uint32, data []byte) error {
	if pageID == 0 {
		return &errs.UsageError{Operation: "WritePage", Message: "page id 0 is reserved/invalid"}
	}
	if uint32(len(data)) != m.pageSize {
		return &errs.UsageError{Operation: "WritePage", Message: "data length does not match page size"}
	}
	offset := int64(pageID-1) * int64(m.pageSize)
	if _, err := m.file.WriteAt(data, offset); err != nil {
		return &errs.IOError{Operation: "write", Path: m.file.Name(), Err: err}
	}
	return nil
}

// Close closes the underlying file.
func (m *Manager) Close() error {
	return m.file.Close()
}
