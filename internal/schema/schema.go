// Package schema loads the sqlite_master table on page 1 into a catalog
// of table name -> root page + columns. It has no SQL grammar of its own:
// column names are pulled out of each CREATE TABLE statement's column
// list by a small bracket-aware splitter, not a full parser, since
// logical-plan construction from SQL text is out of scope for this core.
package schema

import (
	"sort"
	"strings"

	"github.com/brightlane/pagewise/internal/btree"
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/logging"
	"github.com/brightlane/pagewise/internal/record"
)

// Kind is the sqlite_master row kind.
type Kind int

const (
	KindTable Kind = iota
	KindIndex
	KindView
	KindTrigger
)

func parseKind(s string) (Kind, bool) {
	switch s {
	case "table":
		return KindTable, true
	case "index":
		return KindIndex, true
	case "view":
		return KindView, true
	case "trigger":
		return KindTrigger, true
	default:
		return 0, false
	}
}

// Column is one column of a table, as declared in its CREATE TABLE
// statement.
type Column struct {
	Name string
}

// SchemaObject is one row of sqlite_master, with its CREATE TABLE columns
// parsed out when the row is a table.
type SchemaObject struct {
	Kind     Kind
	Name     string
	TblName  string
	RootPage uint32
	SQL      string
	Columns  []Column
}

// Catalog is the read-only, name-indexed view over sqlite_master that C9
// (the physical planner) consults for root pages and column lists.
type Catalog struct {
	tables map[string]*SchemaObject
}

// Load walks the leaf cells of the sqlite_master B-tree rooted at
// rootPage and builds a Catalog from the table rows it finds. Table rows
// whose DDL cannot be split into a column list (such as a system table
// with no SQL), and the sqlite_sequence bookkeeping table, are skipped
// with a logged warning rather than failing the whole load. Index, view
// and trigger rows are parsed but not added to the catalog.
func Load(db *btree.Database, rootPage uint32) (*Catalog, error) {
	cat := &Catalog{tables: make(map[string]*SchemaObject)}

	cur := btree.NewCursor(db, rootPage)
	if err := cur.MoveToFirst(); err != nil {
		return nil, err
	}
	if !cur.Valid() {
		return cat, nil // empty schema table
	}

	for {
		rec, err := cur.Record()
		if err != nil {
			return nil, err
		}

		obj, ok, skipReason := rowToObject(rec)
		switch {
		case !ok:
			logging.SchemaRowSkipped(rowName(rec), skipReason)
		case obj.Kind == KindTable:
			cat.tables[obj.Name] = obj
		}

		if err := cur.Next(); err != nil {
			if err == errs.ErrEndOfRow {
				return cat, nil
			}
			return nil, err
		}
	}
}

// Lookup returns the table's root page and columns, or a LookupError if
// no table by that name is cataloged.
func (c *Catalog) Lookup(name string) (*SchemaObject, error) {
	obj, ok := c.tables[name]
	if !ok {
		return nil, &errs.LookupError{Kind: "table", Name: name}
	}
	return obj, nil
}

// TableNames returns every cataloged table's name in sorted order.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rowName returns the best-effort name column of a master row, for
// logging a skip reason even when the row is otherwise malformed.
func rowName(rec *record.Record) string {
	if len(rec.Columns) > 1 && rec.Columns[1].Kind == record.KindText {
		return rec.Columns[1].Text
	}
	return "<unknown>"
}

// rowToObject converts one sqlite_master record {type, name, tbl_name,
// rootpage, sql} into a SchemaObject. The second return value is false
// when the row should be skipped; the third names why.
func rowToObject(rec *record.Record) (*SchemaObject, bool, string) {
	if len(rec.Columns) < 5 {
		return nil, false, "fewer than 5 columns in sqlite_master row"
	}

	typ := textOrEmpty(rec.Columns[0])
	name := textOrEmpty(rec.Columns[1])
	tblName := textOrEmpty(rec.Columns[2])
	sql := textOrEmpty(rec.Columns[4])

	kind, ok := parseKind(typ)
	if !ok {
		return nil, false, "unrecognized schema row type " + typ
	}

	var rootPage uint32
	if rec.Columns[3].Kind == record.KindInt {
		rootPage = uint32(rec.Columns[3].Int)
	}

	obj := &SchemaObject{
		Kind:     kind,
		Name:     name,
		TblName:  tblName,
		RootPage: rootPage,
		SQL:      sql,
	}

	if kind != KindTable {
		return obj, true, ""
	}

	if name == "sqlite_sequence" {
		return nil, false, "sqlite_sequence is an internal bookkeeping table, not a queryable schema object"
	}

	cols, err := parseColumns(sql)
	if err != nil {
		return nil, false, err.Error()
	}
	obj.Columns = cols
	return obj, true, ""
}

func textOrEmpty(v record.ColumnValue) string {
	if v.Kind == record.KindText {
		return v.Text
	}
	return ""
}

// parseColumns extracts column names from a CREATE TABLE statement's
// parenthesized column list. It splits on top-level commas (respecting
// nested parentheses so default expressions like `DEFAULT (1+2)` don't
// break the split) and takes the first identifier of each part, skipping
// parts that open with a table-level constraint keyword.
func parseColumns(sql string) ([]Column, error) {
	open := strings.IndexByte(sql, '(')
	if open < 0 {
		return nil, &errs.FormatError{Context: "schema DDL", Message: "no column list found in CREATE TABLE statement"}
	}
	closeIdx := matchingParen(sql, open)
	if closeIdx < 0 {
		return nil, &errs.FormatError{Context: "schema DDL", Message: "unbalanced parentheses in CREATE TABLE statement"}
	}

	parts := splitTopLevel(sql[open+1 : closeIdx])
	var cols []Column
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || isTableConstraint(part) {
			continue
		}
		name := firstIdentifier(part)
		if name == "" {
			continue
		}
		cols = append(cols, Column{Name: name})
	}
	if len(cols) == 0 {
		return nil, &errs.FormatError{Context: "schema DDL", Message: "no columns parsed from CREATE TABLE statement"}
	}
	return cols, nil
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func isTableConstraint(part string) bool {
	upper := strings.ToUpper(strings.TrimSpace(part))
	for _, kw := range []string{"PRIMARY KEY", "UNIQUE", "CHECK", "FOREIGN KEY", "CONSTRAINT"} {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

func firstIdentifier(part string) string {
	part = strings.TrimSpace(part)
	if part == "" {
		return ""
	}
	if part[0] == '"' || part[0] == '`' || part[0] == '[' {
		closer := byte('"')
		switch part[0] {
		case '`':
			closer = '`'
		case '[':
			closer = ']'
		}
		if end := strings.IndexByte(part[1:], closer); end >= 0 {
			return part[1 : end+1]
		}
	}
	end := strings.IndexAny(part, " \t\n(")
	if end < 0 {
		return part
	}
	return part[:end]
}
