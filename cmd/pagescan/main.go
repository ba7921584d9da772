// Command pagescan is a read-only inspector for a SQLite-compatible
// database file: page headers, the cataloged schema, raw table scans, and
// the join-order optimizer's chosen plan for a fixed set of join
// predicates and statistics. It is not a SQL shell; it never parses SQL
// text beyond the column-name extraction the schema catalog already does.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/brightlane/pagewise/internal/costmodel"
	"github.com/brightlane/pagewise/internal/dbopen"
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/operators"
	"github.com/brightlane/pagewise/internal/optimizer"
	"github.com/brightlane/pagewise/internal/planner"
)

const version = "0.1.0"

// CLI defines pagescan's command-line interface.
var CLI struct {
	DB string `required:"" short:"d" help:"Path to a SQLite-compatible database file" type:"existingfile"`

	Schema   SchemaCmd   `cmd:"" help:"List cataloged tables and their columns"`
	Page     PageCmd     `cmd:"" help:"Print one page's header fields"`
	Scan     ScanCmd     `cmd:"" help:"Scan a table and print its rows"`
	Optimize OptimizeCmd `cmd:"" help:"Run the join-order optimizer over a query description"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// SchemaCmd lists every cataloged table and its columns.
type SchemaCmd struct{}

func (c *SchemaCmd) Run() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, name := range db.Catalog.TableNames() {
		obj, err := db.Catalog.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s (root page %d)\n", obj.Name, obj.RootPage)
		for _, col := range obj.Columns {
			fmt.Printf("  %s\n", col.Name)
		}
	}
	return nil
}

// PageCmd prints one page's parsed header fields.
type PageCmd struct {
	ID uint32 `arg:"" help:"Page id to inspect (1-based)"`
}

func (c *PageCmd) Run() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	pg, err := db.Tree.Pages.Get(c.ID)
	if err != nil {
		return err
	}
	fmt.Printf("page %d\n", c.ID)
	fmt.Printf("  type: %v\n", pg.Header.PageType)
	fmt.Printf("  cells: %d\n", pg.Header.NumberOfCells)
	fmt.Printf("  content starts at: %d\n", pg.Header.ContentStartOffset)
	fmt.Printf("  first free block: %d\n", pg.Header.FirstFreeBlock)
	fmt.Printf("  fragmented free bytes: %d\n", pg.Header.FragmentedFreeBytes)
	if pg.IsInterior() {
		fmt.Printf("  right child: %d\n", pg.Header.RightChildPage)
	}
	return nil
}

// ScanCmd scans one table in cursor order and prints each row's column
// values.
type ScanCmd struct {
	Table string `arg:"" help:"Table name to scan"`
	Limit int    `help:"Stop after this many rows (0 means no limit)" default:"0"`
}

func (c *ScanCmd) Run() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	node := planner.TableScan{Table: c.Table}
	op, err := planner.Plan(node, db.Catalog, db.Tree)
	if err != nil {
		return err
	}

	seq, err := op.Execute()
	if err != nil {
		return err
	}

	fmt.Println(op.Schema())
	count := 0
	for {
		row, err := seq.Next()
		if err != nil {
			if err == errs.ErrEndOfRow {
				break
			}
			return err
		}
		printRow(row)
		count++
		if c.Limit > 0 && count >= c.Limit {
			break
		}
	}
	fmt.Printf("%d row(s)\n", count)
	return nil
}

func printRow(row operators.Row) {
	vals := make([]string, len(row.Values))
	for i, v := range row.Values {
		vals[i] = v.String()
	}
	fmt.Printf("rowid=%d %v\n", row.RowID, vals)
}

// OptimizeCmd runs the join-order optimizer over a query description read
// from a JSON file and prints the chosen plan.
type OptimizeCmd struct {
	QueryFile string `arg:"" help:"Path to a JSON file describing tables, filters, and joins" type:"existingfile"`
	StatsFile string `required:"" help:"Path to a JSON file of per-table statistics" type:"existingfile"`
}

func (c *OptimizeCmd) Run() error {
	queryData, err := os.ReadFile(c.QueryFile)
	if err != nil {
		return &errs.IOError{Operation: "read", Path: c.QueryFile, Err: err}
	}
	var q optimizer.Query
	if err := json.Unmarshal(queryData, &q); err != nil {
		return &errs.FormatError{Context: "query file", Message: err.Error()}
	}

	statsData, err := os.ReadFile(c.StatsFile)
	if err != nil {
		return &errs.IOError{Operation: "read", Path: c.StatsFile, Err: err}
	}
	var stats optimizer.MapStatistics
	if err := json.Unmarshal(statsData, &stats); err != nil {
		return &errs.FormatError{Context: "stats file", Message: err.Error()}
	}

	result, err := optimizer.Optimize(context.Background(), q, stats, costmodel.Default{})
	if err != nil {
		return err
	}

	fmt.Printf("plan: %s\n", result.Plan)
	fmt.Printf("cost: %g\n", result.Cost)
	fmt.Printf("estimated rows: %g\n", result.Cardinality)
	return nil
}

// VersionCmd prints the tool's version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("pagescan version %s\n", version)
	return nil
}

func openDB() (*dbopen.Database, error) {
	return dbopen.Open(CLI.DB)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("pagescan"),
		kong.Description("Read-only page, schema, and plan inspector for a SQLite-compatible file"),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
