package btree

import (
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/page"
	"github.com/brightlane/pagewise/internal/record"
)

// maxDepth bounds how far a cursor will descend before treating the tree
// as corrupt, guarding against a cyclic child pointer in a damaged file.
const maxDepth = 20

// frame is one level of a cursor's root-to-leaf path on an interior page.
// index is the child currently being visited: 0..NumberOfCells-1 select a
// cell's left child, and NumberOfCells selects the page's right child.
type frame struct {
	pageID uint32
	index  int
}

// Cursor is a stateful navigator over one table B-tree, always resting on
// a leaf cell (or past the end) between calls.
type Cursor struct {
	db         *Database
	rootPage   uint32
	stack      []frame
	leaf       *page.Page
	leafIdx    int
	positioned bool
	atEOF      bool
}

// NewCursor opens a cursor on the table B-tree rooted at rootPage.
func NewCursor(db *Database, rootPage uint32) *Cursor {
	return &Cursor{db: db, rootPage: rootPage}
}

// Valid reports whether the cursor currently rests on a real cell.
func (c *Cursor) Valid() bool {
	return c.positioned && !c.atEOF
}

// MoveToRoot resets the cursor to an unpositioned state at the root page.
// A subsequent MoveToFirst or MoveToLast is required before reading.
func (c *Cursor) MoveToRoot() error {
	c.stack = c.stack[:0]
	c.leaf = nil
	c.leafIdx = 0
	c.positioned = false
	c.atEOF = false
	return nil
}

// MoveToFirst positions the cursor at the leftmost cell of the tree.
func (c *Cursor) MoveToFirst() error {
	c.stack = c.stack[:0]
	c.atEOF = false
	c.positioned = false
	if err := c.descendLeftmost(c.rootPage); err != nil {
		return err
	}
	c.positioned = true
	return nil
}

// MoveToLast positions the cursor at the rightmost cell of the tree.
func (c *Cursor) MoveToLast() error {
	c.stack = c.stack[:0]
	c.atEOF = false
	c.positioned = false
	if err := c.descendRightmost(c.rootPage); err != nil {
		return err
	}
	c.positioned = true
	return nil
}

// descendLeftmost walks from pageID down to a leaf always taking child 0,
// pushing an interior frame at each level, and leaves the cursor
// positioned at the leaf's first cell (or at EOF if the leaf is empty).
func (c *Cursor) descendLeftmost(pageID uint32) error {
	for depth := 0; ; depth++ {
		if depth >= maxDepth {
			return &errs.CorruptError{Message: "btree descent exceeded maximum depth"}
		}
		pg, err := c.db.Pages.Get(pageID)
		if err != nil {
			return err
		}
		if pg.IsLeaf() {
			c.leaf = pg
			if pg.NumberOfCells() == 0 {
				c.leafIdx = 0
				c.atEOF = true
			} else {
				c.leafIdx = 0
			}
			return nil
		}
		c.stack = append(c.stack, frame{pageID: pageID, index: 0})
		child, err := pg.ChildPageAt(0)
		if err != nil {
			return err
		}
		pageID = child
	}
}

// descendRightmost is descendLeftmost's mirror: it always takes the
// interior page's right child, pushing a frame positioned past the last
// cell index (NumberOfCells, meaning "currently in the right child").
func (c *Cursor) descendRightmost(pageID uint32) error {
	for depth := 0; ; depth++ {
		if depth >= maxDepth {
			return &errs.CorruptError{Message: "btree descent exceeded maximum depth"}
		}
		pg, err := c.db.Pages.Get(pageID)
		if err != nil {
			return err
		}
		if pg.IsLeaf() {
			c.leaf = pg
			n := pg.NumberOfCells()
			if n == 0 {
				c.leafIdx = 0
				c.atEOF = true
			} else {
				c.leafIdx = n - 1
			}
			return nil
		}
		c.stack = append(c.stack, frame{pageID: pageID, index: pg.NumberOfCells()})
		pageID = pg.RightChild()
	}
}

// Next advances to the next cell in rowid order. Once the cursor is
// already past the last cell, Next returns errs.ErrEndOfRow rather than
// treating exhaustion as a Go error.
func (c *Cursor) Next() error {
	if !c.positioned {
		return &errs.UsageError{Operation: "Next", Message: "cursor has not been positioned"}
	}
	if c.atEOF {
		return errs.ErrEndOfRow
	}
	if c.leafIdx+1 < c.leaf.NumberOfCells() {
		c.leafIdx++
		return nil
	}
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		pg, err := c.db.Pages.Get(top.pageID)
		if err != nil {
			return err
		}
		n := pg.NumberOfCells()
		if top.index >= n {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		top.index++
		var childPage uint32
		if top.index < n {
			childPage, err = pg.ChildPageAt(top.index)
		} else {
			childPage = pg.RightChild()
		}
		if err != nil {
			return err
		}
		return c.descendLeftmost(childPage)
	}
	c.atEOF = true
	return errs.ErrEndOfRow
}

// Previous steps to the preceding cell in rowid order, the mirror of
// Next, and likewise signals exhaustion with errs.ErrEndOfRow.
func (c *Cursor) Previous() error {
	if !c.positioned {
		return &errs.UsageError{Operation: "Previous", Message: "cursor has not been positioned"}
	}
	if c.atEOF {
		return errs.ErrEndOfRow
	}
	if c.leafIdx > 0 {
		c.leafIdx--
		return nil
	}
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		if top.index <= 0 {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		top.index--
		pg, err := c.db.Pages.Get(top.pageID)
		if err != nil {
			return err
		}
		var childPage uint32
		if top.index == pg.NumberOfCells() {
			childPage = pg.RightChild()
		} else {
			childPage, err = pg.ChildPageAt(top.index)
		}
		if err != nil {
			return err
		}
		return c.descendRightmost(childPage)
	}
	c.atEOF = true
	return errs.ErrEndOfRow
}

// RowID returns the rowid of the cell the cursor currently rests on.
func (c *Cursor) RowID() (int64, error) {
	if !c.Valid() {
		return 0, &errs.UsageError{Operation: "RowID", Message: "cursor is not positioned on a cell"}
	}
	cellBuf, err := c.leaf.CellBytes(c.leafIdx)
	if err != nil {
		return 0, err
	}
	rowID, _, err := parseLeafTableCell(cellBuf)
	return rowID, err
}

// Record decodes and returns the full record the cursor currently rests
// on.
func (c *Cursor) Record() (*record.Record, error) {
	if !c.Valid() {
		return nil, &errs.UsageError{Operation: "Record", Message: "cursor is not positioned on a cell"}
	}
	cellBuf, err := c.leaf.CellBytes(c.leafIdx)
	if err != nil {
		return nil, err
	}
	rowID, payload, err := parseLeafTableCell(cellBuf)
	if err != nil {
		return nil, err
	}
	return record.Parse(payload, rowID)
}
