// Package dbopen assembles the read stack (disk manager, optional WAL,
// buffer pool, btree handle, schema catalog) for a single database file,
// the way each of this module's commands needs to before it can run a
// query. It is glue, not a layer of its own.
package dbopen

import (
	"os"

	"github.com/brightlane/pagewise/internal/btree"
	"github.com/brightlane/pagewise/internal/bufpool"
	"github.com/brightlane/pagewise/internal/diskmgr"
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/page"
	"github.com/brightlane/pagewise/internal/schema"
	"github.com/brightlane/pagewise/internal/wal"
)

// DefaultBufferPoolCapacity is the number of pages kept resident when a
// caller doesn't have a more specific working-set estimate.
const DefaultBufferPoolCapacity = 256

// Database bundles the opened file, its btree handle, and its schema
// catalog, plus whatever must be closed when the caller is done with it.
type Database struct {
	Tree    *btree.Database
	Catalog *schema.Catalog
	disk    *diskmgr.Manager
}

// Close releases the underlying file handle.
func (d *Database) Close() error {
	return d.disk.Close()
}

// Open opens the SQLite-compatible file at path, reading its page size
// from the 100-byte file header, layering a WAL reader over it if a
// "<path>-wal" file exists, and loading the sqlite_master catalog from
// page 1.
func Open(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.IOError{Operation: "open", Path: path, Err: err}
	}

	headerBuf := make([]byte, page.DatabaseHeaderSize)
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		f.Close()
		return nil, &errs.IOError{Operation: "read", Path: path, Err: err}
	}
	dbHeader, err := page.ParseDatabaseHeader(headerBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	disk := diskmgr.OpenFile(f, dbHeader.PageSize)

	var walSource bufpool.WALSource
	if walBuf, err := os.ReadFile(path + "-wal"); err == nil {
		reader, err := wal.Parse(walBuf)
		if err != nil {
			disk.Close()
			return nil, err
		}
		walSource = reader
	}

	pool := bufpool.New(disk, walSource, DefaultBufferPoolCapacity)
	tree := btree.NewDatabase(pool, dbHeader.PageSize)

	cat, err := schema.Load(tree, 1)
	if err != nil {
		disk.Close()
		return nil, err
	}

	return &Database{Tree: tree, Catalog: cat, disk: disk}, nil
}
