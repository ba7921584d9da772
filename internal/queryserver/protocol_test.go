package queryserver

import (
	"testing"

	"github.com/brightlane/pagewise/internal/operators"
	"github.com/brightlane/pagewise/internal/planner"
)

func TestToLogicalNodeScan(t *testing.T) {
	node := &PlanNode{Type: "scan", Table: "customer"}
	logical, err := node.ToLogicalNode()
	if err != nil {
		t.Fatalf("ToLogicalNode: %v", err)
	}
	scan, ok := logical.(planner.TableScan)
	if !ok {
		t.Fatalf("got %T, want planner.TableScan", logical)
	}
	if scan.Table != "customer" {
		t.Errorf("Table = %q, want customer", scan.Table)
	}
}

func TestToLogicalNodeScanMissingTable(t *testing.T) {
	node := &PlanNode{Type: "scan"}
	if _, err := node.ToLogicalNode(); err == nil {
		t.Fatal("expected an error for a scan node with no table name")
	}
}

func TestToLogicalNodeProjection(t *testing.T) {
	node := &PlanNode{
		Type:    "projection",
		Child:   &PlanNode{Type: "scan", Table: "customer"},
		Columns: []int{1},
		Names:   []string{"name"},
	}
	logical, err := node.ToLogicalNode()
	if err != nil {
		t.Fatalf("ToLogicalNode: %v", err)
	}
	proj, ok := logical.(planner.Projection)
	if !ok {
		t.Fatalf("got %T, want planner.Projection", logical)
	}
	if len(proj.Exprs) != 1 || len(proj.Names) != 1 || proj.Names[0] != "name" {
		t.Fatalf("unexpected projection: %+v", proj)
	}
}

func TestToLogicalNodeProjectionLengthMismatch(t *testing.T) {
	node := &PlanNode{
		Type:    "projection",
		Child:   &PlanNode{Type: "scan", Table: "customer"},
		Columns: []int{0, 1},
		Names:   []string{"only_one"},
	}
	if _, err := node.ToLogicalNode(); err == nil {
		t.Fatal("expected an error when columns and names lengths differ")
	}
}

func TestToLogicalNodeJoin(t *testing.T) {
	node := &PlanNode{
		Type:  "join",
		Left:  &PlanNode{Type: "scan", Table: "customer"},
		Right: &PlanNode{Type: "scan", Table: "account"},
		On:    []ColumnPair{{Left: "customer_id", Right: "customer_id"}},
		Kind:  "left",
	}
	logical, err := node.ToLogicalNode()
	if err != nil {
		t.Fatalf("ToLogicalNode: %v", err)
	}
	join, ok := logical.(planner.Join)
	if !ok {
		t.Fatalf("got %T, want planner.Join", logical)
	}
	if join.Type != operators.JoinLeft {
		t.Errorf("Type = %v, want JoinLeft", join.Type)
	}
	if len(join.On) != 1 || join.On[0].LeftColumn != "customer_id" {
		t.Fatalf("unexpected join keys: %+v", join.On)
	}
}

func TestToLogicalNodeJoinBadKind(t *testing.T) {
	node := &PlanNode{
		Type:  "join",
		Left:  &PlanNode{Type: "scan", Table: "customer"},
		Right: &PlanNode{Type: "scan", Table: "account"},
		Kind:  "sideways",
	}
	if _, err := node.ToLogicalNode(); err == nil {
		t.Fatal("expected an error for an unrecognized join kind")
	}
}

func TestToLogicalNodeUnrecognizedType(t *testing.T) {
	node := &PlanNode{Type: "aggregate"}
	if _, err := node.ToLogicalNode(); err == nil {
		t.Fatal("expected an error for an unrecognized node type")
	}
}

func TestToLogicalNodeNil(t *testing.T) {
	var node *PlanNode
	if _, err := node.ToLogicalNode(); err == nil {
		t.Fatal("expected an error for a nil plan node")
	}
}
