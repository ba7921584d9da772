// Package btree implements a read-only cursor over a SQLite-compatible
// table B-tree: leftmost/rightmost descent, forward/backward stepping
// across leaf and interior pages, and leaf-cell decoding into records.
// It has no write path and no index B-tree support; only table b-trees
// (rowid-keyed) are walked.
package btree

import (
	"github.com/brightlane/pagewise/internal/page"
)

// PageSource is the minimal read contract a cursor needs from the page
// cache beneath it. internal/bufpool.Pool satisfies it.
type PageSource interface {
	Get(pageID uint32) (*page.Page, error)
}

// Database ties a page source to the file's page size; it is the handle
// cursors are opened against.
type Database struct {
	Pages    PageSource
	PageSize uint32
}

// NewDatabase builds a Database handle over an already-open page source.
func NewDatabase(pages PageSource, pageSize uint32) *Database {
	return &Database{Pages: pages, PageSize: pageSize}
}
