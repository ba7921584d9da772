// Package divergence cross-checks this repo's own page/record/schema/
// cursor reading against a real SQLite file. modernc.org/sqlite (pure
// Go, no cgo) writes the fixture through database/sql; this repo's own
// dbopen/schema/planner stack then reads the same bytes back and the
// two sets of rows must match exactly.
package divergence

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/brightlane/pagewise/internal/dbopen"
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/planner"
)

func writeFixture(t *testing.T, statements []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func queryReferenceRows(t *testing.T, path, query string, numCols int) [][]string {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(query)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		vals := make([]any, numCols)
		ptrs := make([]any, numCols)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			t.Fatalf("Scan: %v", err)
		}
		row := make([]string, numCols)
		for i, v := range vals {
			if v == nil {
				row[i] = "NULL"
				continue
			}
			row[i] = fmt.Sprintf("%v", v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err: %v", err)
	}
	return out
}

func scanOwnRows(t *testing.T, path, table string) [][]string {
	t.Helper()
	db, err := dbopen.Open(path)
	if err != nil {
		t.Fatalf("dbopen.Open: %v", err)
	}
	defer db.Close()

	op, err := planner.Plan(planner.TableScan{Table: table}, db.Catalog, db.Tree)
	if err != nil {
		t.Fatalf("planner.Plan: %v", err)
	}
	seq, err := op.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var out [][]string
	for {
		row, err := seq.Next()
		if err != nil {
			if err == errs.ErrEndOfRow {
				break
			}
			t.Fatalf("Next: %v", err)
		}
		vals := make([]string, len(row.Values))
		for i, v := range row.Values {
			vals[i] = v.String()
		}
		out = append(out, vals)
	}
	return out
}

func assertSameRows(t *testing.T, want, got [][]string) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("row count mismatch: modernc.org/sqlite=%d own=%d\nwant=%v\ngot=%v", len(want), len(got), want, got)
	}
	for i := range want {
		if len(want[i]) != len(got[i]) {
			t.Fatalf("row %d column count mismatch: want %v got %v", i, want[i], got[i])
		}
		for j := range want[i] {
			if want[i][j] != got[i][j] {
				t.Errorf("row %d col %d: modernc.org/sqlite=%q own=%q", i, j, want[i][j], got[i][j])
			}
		}
	}
}

func TestDivergenceBasicIntegersAndText(t *testing.T) {
	path := writeFixture(t, []string{
		`CREATE TABLE widgets (id INTEGER, name TEXT)`,
		`INSERT INTO widgets VALUES (1, 'alpha')`,
		`INSERT INTO widgets VALUES (2, 'beta')`,
		`INSERT INTO widgets VALUES (3, 'gamma')`,
	})

	want := queryReferenceRows(t, path, `SELECT id, name FROM widgets`, 2)
	got := scanOwnRows(t, path, "widgets")
	assertSameRows(t, want, got)
}

func TestDivergenceUnicodeText(t *testing.T) {
	path := writeFixture(t, []string{
		`CREATE TABLE verses (id INTEGER, text TEXT)`,
		`INSERT INTO verses VALUES (1, 'בְּרֵאשִׁית בָּרָא אֱלֹהִים')`,
		`INSERT INTO verses VALUES (2, '太初有道')`,
		`INSERT INTO verses VALUES (3, '🙏 ❤️')`,
	})

	want := queryReferenceRows(t, path, `SELECT id, text FROM verses`, 2)
	got := scanOwnRows(t, path, "verses")
	assertSameRows(t, want, got)
}

func TestDivergenceNullHandling(t *testing.T) {
	path := writeFixture(t, []string{
		`CREATE TABLE nullable (id INTEGER, val TEXT)`,
		`INSERT INTO nullable VALUES (1, NULL)`,
		`INSERT INTO nullable VALUES (2, 'present')`,
		`INSERT INTO nullable VALUES (3, NULL)`,
	})

	want := queryReferenceRows(t, path, `SELECT id, val FROM nullable`, 2)
	got := scanOwnRows(t, path, "nullable")
	assertSameRows(t, want, got)
}

func TestDivergenceMultipleTables(t *testing.T) {
	path := writeFixture(t, []string{
		`CREATE TABLE authors (id INTEGER, name TEXT)`,
		`CREATE TABLE books (id INTEGER, title TEXT, author_id INTEGER)`,
		`INSERT INTO authors VALUES (1, 'John Doe')`,
		`INSERT INTO authors VALUES (2, 'Jane Smith')`,
		`INSERT INTO books VALUES (1, 'Book A', 1)`,
		`INSERT INTO books VALUES (2, 'Book B', 1)`,
		`INSERT INTO books VALUES (3, 'Book C', 2)`,
	})

	wantAuthors := queryReferenceRows(t, path, `SELECT id, name FROM authors`, 2)
	gotAuthors := scanOwnRows(t, path, "authors")
	assertSameRows(t, wantAuthors, gotAuthors)

	wantBooks := queryReferenceRows(t, path, `SELECT id, title, author_id FROM books`, 3)
	gotBooks := scanOwnRows(t, path, "books")
	assertSameRows(t, wantBooks, gotBooks)
}

func TestDivergenceManyRowsAcrossPages(t *testing.T) {
	stmts := []string{`CREATE TABLE numbers (value INTEGER, label TEXT)`}
	for i := 0; i < 500; i++ {
		stmts = append(stmts, fmt.Sprintf(`INSERT INTO numbers VALUES (%d, 'row-%d')`, i, i))
	}
	path := writeFixture(t, stmts)

	want := queryReferenceRows(t, path, `SELECT value, label FROM numbers`, 2)
	got := scanOwnRows(t, path, "numbers")
	assertSameRows(t, want, got)
}
