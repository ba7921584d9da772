package optimizer

import (
	"context"
	"strings"
	"testing"

	"github.com/brightlane/pagewise/internal/costmodel"
	"github.com/brightlane/pagewise/internal/errs"
)

func TestOptimizeCustomerAccountTransactionPrefersHashChain(t *testing.T) {
	stats := MapStatistics{
		"customer":    {Rows: 1_000_000, NDV: map[string]float64{"customer_id": 1_000_000}},
		"account":     {Rows: 5_000_000, NDV: map[string]float64{"customer_id": 1_000_000, "account_id": 5_000_000}},
		"transaction": {Rows: 50_000_000, NDV: map[string]float64{"account_id": 5_000_000}},
	}
	q := Query{
		Tables: []string{"customer", "account", "transaction"},
		Joins: []JoinPred{
			{TableL: "customer", ColL: "customer_id", TableR: "account", ColR: "customer_id"},
			{TableL: "account", ColL: "account_id", TableR: "transaction", ColR: "account_id"},
		},
	}
	result, err := Optimize(context.Background(), q, stats, costmodel.Default{})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if !strings.Contains(result.Plan, "HashJoin") {
		t.Errorf("plan %q should use hash joins throughout", result.Plan)
	}
	if !strings.Contains(result.Plan, "customer") || !strings.Contains(result.Plan, "account") || !strings.Contains(result.Plan, "transaction") {
		t.Errorf("plan %q should mention all three tables", result.Plan)
	}
}

func TestOptimizeIsDeterministicAcrossRuns(t *testing.T) {
	stats := MapStatistics{
		"a": {Rows: 1000, NDV: map[string]float64{"k": 100}},
		"b": {Rows: 2000, NDV: map[string]float64{"k": 200}},
		"c": {Rows: 3000, NDV: map[string]float64{"k": 300}},
	}
	q := Query{
		Tables: []string{"a", "b", "c"},
		Joins: []JoinPred{
			{TableL: "a", ColL: "k", TableR: "b", ColR: "k"},
			{TableL: "b", ColL: "k", TableR: "c", ColR: "k"},
		},
	}
	r1, err := Optimize(context.Background(), q, stats, costmodel.Default{})
	if err != nil {
		t.Fatalf("Optimize (1): %v", err)
	}
	r2, err := Optimize(context.Background(), q, stats, costmodel.Default{})
	if err != nil {
		t.Fatalf("Optimize (2): %v", err)
	}
	if r1.Cost != r2.Cost || r1.Cardinality != r2.Cardinality {
		t.Errorf("optimize is not idempotent: %+v vs %+v", r1, r2)
	}
}

func TestOptimizeRejectsTooManyTables(t *testing.T) {
	tables := make([]string, MaxTables+1)
	stats := MapStatistics{}
	for i := range tables {
		name := string(rune('a' + i))
		tables[i] = name
		stats[name] = TableStats{Rows: 10}
	}
	q := Query{Tables: tables}
	if _, err := Optimize(context.Background(), q, stats, costmodel.Default{}); err == nil {
		t.Fatal("expected usage error for exceeding MaxTables")
	}
}

func TestOptimizeCrossJoinsDisconnectedJoinGraph(t *testing.T) {
	stats := MapStatistics{
		"a": {Rows: 10},
		"b": {Rows: 10},
	}
	q := Query{Tables: []string{"a", "b"}} // no joins connecting them
	result, err := Optimize(context.Background(), q, stats, costmodel.Default{})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if !strings.Contains(result.Plan, "NestedLoop") || !strings.Contains(result.Plan, "CROSS") {
		t.Errorf("plan %q should be a nested-loop CROSS join when no join predicate connects the tables", result.Plan)
	}
}

func TestOptimizeMissingStatsFails(t *testing.T) {
	stats := MapStatistics{"a": {Rows: 10}}
	q := Query{Tables: []string{"a", "ghost"}}
	_, err := Optimize(context.Background(), q, stats, costmodel.Default{})
	if err == nil {
		t.Fatal("expected LookupError for missing table statistics")
	}
	var lookupErr *errs.LookupError
	if !errorsAs(err, &lookupErr) {
		t.Errorf("error = %v, want *errs.LookupError", err)
	}
}

// errorsAs avoids importing errors.As just for one assertion in this test file.
func errorsAs(err error, target **errs.LookupError) bool {
	le, ok := err.(*errs.LookupError)
	if ok {
		*target = le
	}
	return ok
}
